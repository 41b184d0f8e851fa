package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertmcarvalho/rh-kelly-agent/internal/funnel"
	"github.com/robertmcarvalho/rh-kelly-agent/internal/store"
)

// countingTier wraps the in-memory tier and counts durable reads so tests can
// tell which tier actually served a call.
type countingTier struct {
	*store.Memory
	gets    int
	creates int
}

func (c *countingTier) Get(ctx context.Context, senderID string) (*funnel.LeadContext, error) {
	c.gets++
	return c.Memory.Get(ctx, senderID)
}

func (c *countingTier) CreateIfAbsent(ctx context.Context, senderID string, initial funnel.Stage) (*funnel.LeadContext, error) {
	c.creates++
	return c.Memory.CreateIfAbsent(ctx, senderID, initial)
}

// stalledTier never answers inside the deadline.
type stalledTier struct{}

func (stalledTier) Get(ctx context.Context, _ string) (*funnel.LeadContext, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stalledTier) CreateIfAbsent(ctx context.Context, _ string, _ funnel.Stage) (*funnel.LeadContext, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stalledTier) CompareAndSwap(ctx context.Context, _ string, _ int64, _ *funnel.LeadContext) error {
	<-ctx.Done()
	return ctx.Err()
}

func newTwoTier(t *testing.T) (*store.TwoTier, *countingTier, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	durable := &countingTier{Memory: store.NewMemory()}
	return store.NewTwoTier(durable, rdb, time.Hour, time.Second), durable, mr
}

func TestTwoTier_GetHydratesFastTierOnMiss(t *testing.T) {
	tt, durable, mr := newTwoTier(t)
	ctx := context.Background()

	_, err := durable.Memory.CreateIfAbsent(ctx, "+551100", funnel.StageIntro)
	require.NoError(t, err)

	lead, err := tt.Get(ctx, "+551100")
	require.NoError(t, err)
	assert.Equal(t, funnel.StageIntro, lead.Stage)
	assert.Equal(t, 1, durable.gets, "miss must read the durable tier")
	assert.True(t, mr.Exists("lead:+551100"), "read must hydrate the fast tier")

	// Second read is served from the fast tier.
	_, err = tt.Get(ctx, "+551100")
	require.NoError(t, err)
	assert.Equal(t, 1, durable.gets, "hit must not touch the durable tier")
}

func TestTwoTier_CorruptFastTierEntryFallsBack(t *testing.T) {
	tt, durable, mr := newTwoTier(t)
	ctx := context.Background()

	_, err := durable.Memory.CreateIfAbsent(ctx, "+551100", funnel.StageCitySelection)
	require.NoError(t, err)
	require.NoError(t, mr.Set("lead:+551100", "{not json"))

	lead, err := tt.Get(ctx, "+551100")
	require.NoError(t, err, "an undecodable cache entry must degrade, not fail")
	assert.Equal(t, funnel.StageCitySelection, lead.Stage)
	assert.Equal(t, 1, durable.gets)
}

func TestTwoTier_CreateIfAbsentServesFromFastTier(t *testing.T) {
	tt, durable, _ := newTwoTier(t)
	ctx := context.Background()

	lead, err := tt.CreateIfAbsent(ctx, "+551100", funnel.StageIntro)
	require.NoError(t, err)
	assert.Equal(t, 1, durable.creates)

	// Commit a change; the fast tier is refreshed alongside.
	lead.Stage = funnel.StageCitySelection
	require.NoError(t, tt.CompareAndSwap(ctx, "+551100", 1, lead))

	again, err := tt.CreateIfAbsent(ctx, "+551100", funnel.StageIntro)
	require.NoError(t, err)
	assert.Equal(t, funnel.StageCitySelection, again.Stage)
	assert.Equal(t, int64(2), again.Version)
	assert.Equal(t, 1, durable.creates, "fast-tier hit must not reach the durable tier")
}

func TestTwoTier_VersionConflictEvictsFastTierCopy(t *testing.T) {
	tt, durable, mr := newTwoTier(t)
	ctx := context.Background()

	lead, err := tt.CreateIfAbsent(ctx, "+551100", funnel.StageIntro)
	require.NoError(t, err)
	require.True(t, mr.Exists("lead:+551100"))

	// A competing writer commits straight to the durable tier, leaving the
	// fast-tier copy stale at version 1.
	racing := lead.Clone()
	racing.City = "São Paulo"
	require.NoError(t, durable.Memory.CompareAndSwap(ctx, "+551100", 1, racing))

	err = tt.CompareAndSwap(ctx, "+551100", 1, lead.Clone())
	assert.ErrorIs(t, err, store.ErrVersionConflict)
	assert.False(t, mr.Exists("lead:+551100"), "stale copy must be evicted on conflict")

	// The retry's read now reaches the durable tier and sees the winner.
	fresh, err := tt.CreateIfAbsent(ctx, "+551100", funnel.StageIntro)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fresh.Version)
	assert.Equal(t, "São Paulo", fresh.City)
}

func TestTwoTier_FastTierOutageIsNonFatal(t *testing.T) {
	// A client pointed at nothing: every Redis call fails immediately.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	durable := &countingTier{Memory: store.NewMemory()}
	tt := store.NewTwoTier(durable, rdb, time.Hour, time.Second)
	ctx := context.Background()

	lead, err := tt.CreateIfAbsent(ctx, "+551100", funnel.StageIntro)
	require.NoError(t, err, "durable tier alone must carry the request")

	lead.Stage = funnel.StageCitySelection
	require.NoError(t, tt.CompareAndSwap(ctx, "+551100", 1, lead))

	got, err := tt.Get(ctx, "+551100")
	require.NoError(t, err)
	assert.Equal(t, funnel.StageCitySelection, got.Stage)
}

func TestTwoTier_TimeoutReadsAsStoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tt := store.NewTwoTier(stalledTier{}, rdb, time.Hour, 20*time.Millisecond)
	ctx := context.Background()

	_, err := tt.Get(ctx, "+551100")
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)

	_, err = tt.CreateIfAbsent(ctx, "+551100", funnel.StageIntro)
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)

	err = tt.CompareAndSwap(ctx, "+551100", 1, &funnel.LeadContext{SenderID: "+551100"})
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)
}
