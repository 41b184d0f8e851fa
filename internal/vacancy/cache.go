package vacancy

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
)

// Cache serves vacancy lookups from an in-memory snapshot refreshed on a
// cron interval. The funnel hits the source on every city prompt and every
// offer, so request paths must not depend on catalog latency; staleness up to
// one refresh interval is acceptable by contract.
type Cache struct {
	source Source
	cron   *cron.Cron
	spec   string // cron spec, e.g. "@every 5m"

	mu     sync.RWMutex
	cities []string
	byCity map[string][]Vacancy
}

// NewCache creates a Cache that refreshes every intervalMinutes minutes.
func NewCache(source Source, intervalMinutes int) *Cache {
	return &Cache{
		source: source,
		cron:   cron.New(cron.WithLogger(cron.DefaultLogger)),
		spec:   fmt.Sprintf("@every %dm", intervalMinutes),
		byCity: make(map[string][]Vacancy),
	}
}

// Start registers the refresh job and runs one refresh immediately so the
// snapshot is populated before the first event arrives.
func (c *Cache) Start(ctx context.Context) error {
	if err := c.refresh(ctx); err != nil {
		return fmt.Errorf("initial vacancy refresh: %w", err)
	}
	_, err := c.cron.AddFunc(c.spec, func() {
		if err := c.refresh(ctx); err != nil {
			log.Printf("[vacancy] refresh error: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	c.cron.Start()
	log.Printf("[vacancy] snapshot refresh started — spec: %s", c.spec)
	return nil
}

// Stop gracefully shuts down the refresh loop.
func (c *Cache) Stop() {
	c.cron.Stop()
	log.Println("[vacancy] snapshot refresh stopped")
}

func (c *Cache) refresh(ctx context.Context) error {
	cities, err := c.source.OpenCities(ctx)
	if err != nil {
		return err
	}
	byCity := make(map[string][]Vacancy, len(cities))
	for _, city := range cities {
		open, err := c.source.ListOpen(ctx, city)
		if err != nil {
			return err
		}
		byCity[city] = open
	}

	c.mu.Lock()
	c.cities = cities
	c.byCity = byCity
	c.mu.Unlock()

	log.Printf("[vacancy] snapshot refreshed — %d cities", len(cities))
	return nil
}

// OpenCities serves from the snapshot.
func (c *Cache) OpenCities(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.cities...), nil
}

// ListOpen serves from the snapshot.
func (c *Cache) ListOpen(ctx context.Context, city string) ([]Vacancy, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for k, v := range c.byCity {
		if strings.EqualFold(k, city) {
			return append([]Vacancy(nil), v...), nil
		}
	}
	return nil, nil
}
