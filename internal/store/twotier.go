package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/robertmcarvalho/rh-kelly-agent/internal/funnel"
)

// TwoTier places a TTL-bearing Redis copy in front of a durable tier.
//
// Reads consult Redis first and hydrate it from the durable tier on miss.
// Writes commit to the durable tier; the Redis copy is refreshed best-effort
// afterwards — losing it only degrades the next read to the hydration path.
// All calls are bounded by a timeout, and a timeout reads as store
// unavailability.
type TwoTier struct {
	durable Tier
	rdb     *redis.Client
	ttl     time.Duration
	timeout time.Duration
}

// NewTwoTier wires the composite. ttl bounds the fast-tier copy lifetime;
// timeout bounds every store call.
func NewTwoTier(durable Tier, rdb *redis.Client, ttl, timeout time.Duration) *TwoTier {
	return &TwoTier{durable: durable, rdb: rdb, ttl: ttl, timeout: timeout}
}

func leadKey(senderID string) string { return "lead:" + senderID }

// fastGet reads the fast-tier copy. A miss, an undecodable entry or a Redis
// failure all report false; the caller falls through to the durable tier.
func (t *TwoTier) fastGet(ctx context.Context, senderID string) (*funnel.LeadContext, bool) {
	raw, err := t.rdb.Get(ctx, leadKey(senderID)).Bytes()
	if err == nil {
		var lead funnel.LeadContext
		if uerr := json.Unmarshal(raw, &lead); uerr == nil {
			return &lead, true
		}
		slog.Warn("discarding undecodable fast-tier entry", "sender", senderID)
	} else if err != redis.Nil {
		slog.Warn("fast tier read failed, falling back to durable tier",
			"sender", senderID, "err", err)
	}
	return nil, false
}

// Get serves from the fast tier when possible, hydrating it on miss.
func (t *TwoTier) Get(ctx context.Context, senderID string) (*funnel.LeadContext, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if lead, ok := t.fastGet(ctx, senderID); ok {
		return lead, nil
	}
	lead, err := t.durable.Get(ctx, senderID)
	if err != nil {
		return nil, t.mapErr(err)
	}
	t.refreshFastTier(ctx, lead)
	return lead, nil
}

// CreateIfAbsent serves a known sender from the fast tier; only on miss does
// the durable tier initialize (or return) the row, after which the fast tier
// is hydrated. A version conflict on the subsequent CompareAndSwap evicts the
// fast-tier copy, so the retry re-reads the durable tier here instead of
// looping on the same stale version.
func (t *TwoTier) CreateIfAbsent(ctx context.Context, senderID string, initial funnel.Stage) (*funnel.LeadContext, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if lead, ok := t.fastGet(ctx, senderID); ok {
		return lead, nil
	}
	lead, err := t.durable.CreateIfAbsent(ctx, senderID, initial)
	if err != nil {
		return nil, t.mapErr(err)
	}
	t.refreshFastTier(ctx, lead)
	return lead, nil
}

// CompareAndSwap commits to the durable tier; only then is the fast tier
// refreshed, best-effort.
func (t *TwoTier) CompareAndSwap(ctx context.Context, senderID string, expectedVersion int64, lead *funnel.LeadContext) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := t.durable.CompareAndSwap(ctx, senderID, expectedVersion, lead); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			// The copy that produced the stale read must go, or the caller's
			// retry would read the same version again.
			if derr := t.rdb.Del(ctx, leadKey(senderID)).Err(); derr != nil {
				slog.Warn("fast tier invalidation failed after version conflict",
					"sender", senderID, "err", derr)
			}
		}
		return t.mapErr(err)
	}
	t.refreshFastTier(ctx, lead)
	return nil
}

// refreshFastTier writes the lead copy to Redis. Failures are logged only:
// the durable write already committed and the next read self-heals.
func (t *TwoTier) refreshFastTier(ctx context.Context, lead *funnel.LeadContext) {
	raw, err := json.Marshal(lead)
	if err != nil {
		slog.Warn("encode lead for fast tier failed", "sender", lead.SenderID, "err", err)
		return
	}
	if err := t.rdb.Set(ctx, leadKey(lead.SenderID), raw, t.ttl).Err(); err != nil {
		slog.Warn("fast tier write failed, next read will hydrate",
			"sender", lead.SenderID, "err", err)
	}
}

// mapErr folds timeouts into ErrStoreUnavailable so callers see one failure
// taxonomy.
func (t *TwoTier) mapErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return err
}
