package dedupe_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/robertmcarvalho/rh-kelly-agent/internal/dedupe"
)

func TestMemory_MarkIfNew(t *testing.T) {
	g := dedupe.NewMemory(time.Minute)
	ctx := context.Background()

	assert.True(t, g.MarkIfNew(ctx, "wamid.1"), "first delivery is new")
	assert.False(t, g.MarkIfNew(ctx, "wamid.1"), "redelivery inside the window is a duplicate")
	assert.True(t, g.MarkIfNew(ctx, "wamid.2"), "distinct message ids are independent")
}

func TestMemory_EntriesExpire(t *testing.T) {
	g := dedupe.NewMemory(10 * time.Millisecond)
	ctx := context.Background()

	assert.True(t, g.MarkIfNew(ctx, "wamid.1"))
	time.Sleep(25 * time.Millisecond)
	assert.True(t, g.MarkIfNew(ctx, "wamid.1"), "entries past the window are forgotten")
}

func TestMemory_ConcurrentMarkExactlyOneNew(t *testing.T) {
	g := dedupe.NewMemory(time.Minute)
	ctx := context.Background()

	const deliveries = 32
	var wg sync.WaitGroup
	results := make(chan bool, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- g.MarkIfNew(ctx, "wamid.same")
		}()
	}
	wg.Wait()
	close(results)

	news := 0
	for isNew := range results {
		if isNew {
			news++
		}
	}
	assert.Equal(t, 1, news, "near-simultaneous redeliveries must serialize to one new")
}
