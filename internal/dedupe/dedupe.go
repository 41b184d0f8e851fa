// Package dedupe prevents double-processing of redelivered channel messages.
//
// Entries live for a bounded window that must exceed the transport's
// redelivery window. A guard failure fails OPEN: the event is treated as new
// and the degraded mode is logged — duplicate processing is recoverable,
// silently dropping a first-time message is not.
package dedupe

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard answers "has this message id been seen inside the window?" with an
// atomic check-and-set.
type Guard interface {
	// MarkIfNew records the message id and reports whether it was unseen.
	MarkIfNew(ctx context.Context, messageID string) bool
}

// Redis implements Guard on a shared Redis instance via SETNX with a TTL.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis returns a Redis-backed guard whose entries expire after ttl.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

func (g *Redis) MarkIfNew(ctx context.Context, messageID string) bool {
	isNew, err := g.rdb.SetNX(ctx, "seen:"+messageID, 1, g.ttl).Result()
	if err != nil {
		// Fail open: never drop a potentially first-time event.
		slog.Warn("dedupe guard degraded, treating event as new",
			"messageId", messageID, "err", err)
		return true
	}
	return isNew
}

// Memory is an in-process Guard for tests and local runs.
type Memory struct {
	ttl  time.Duration
	mu   sync.Mutex
	seen map[string]time.Time
}

// NewMemory returns an empty in-memory guard.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, seen: make(map[string]time.Time)}
}

func (g *Memory) MarkIfNew(ctx context.Context, messageID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	for id, at := range g.seen {
		if now.Sub(at) > g.ttl {
			delete(g.seen, id)
		}
	}
	if at, ok := g.seen[messageID]; ok && now.Sub(at) <= g.ttl {
		return false
	}
	g.seen[messageID] = now
	return true
}
