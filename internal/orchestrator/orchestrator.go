// Package orchestrator drives one unit of work per inbound event:
// dedupe → load context → evaluate transition → compare-and-swap → intents.
//
// Concurrent events for different senders are fully independent; events for
// the same sender serialize solely through the store's optimistic versioning.
// A failed unit of work mutates nothing and emits nothing beyond the generic
// try-again acknowledgment.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robertmcarvalho/rh-kelly-agent/internal/dedupe"
	"github.com/robertmcarvalho/rh-kelly-agent/internal/funnel"
	"github.com/robertmcarvalho/rh-kelly-agent/internal/store"
)

// Publisher emits internal notification events. Failures are logged, never
// propagated — notifications ride along with a request, they do not gate it.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Orchestrator ties the guard, the store and the machine together.
type Orchestrator struct {
	store      store.Tier
	guard      dedupe.Guard
	machine    *funnel.Machine
	pub        Publisher // optional
	maxRetries int
}

// New constructs an Orchestrator. pub may be nil. maxRetries bounds the
// read-decide-write loop on version conflicts.
func New(st store.Tier, guard dedupe.Guard, machine *funnel.Machine, pub Publisher, maxRetries int) *Orchestrator {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Orchestrator{store: st, guard: guard, machine: machine, pub: pub, maxRetries: maxRetries}
}

// HandleEvent processes one inbound event and returns the outbound intents
// for the transport collaborator to deliver.
//
// A recognized duplicate returns (nil, nil): no intents, no error, nothing
// written. Any returned error means no state was mutated by this call; the
// accompanying intents carry the generic try-again acknowledgment.
func (o *Orchestrator) HandleEvent(ctx context.Context, ev funnel.Event) ([]funnel.Intent, error) {
	if ev.SenderID == "" {
		return nil, fmt.Errorf("event without sender id")
	}
	if ev.MessageID != "" && !o.guard.MarkIfNew(ctx, ev.MessageID) {
		slog.Info("duplicate event discarded", "messageId", ev.MessageID, "sender", ev.SenderID)
		return nil, nil
	}

	for attempt := 0; attempt < o.maxRetries; attempt++ {
		current, err := o.store.CreateIfAbsent(ctx, ev.SenderID, o.machine.InitialStage())
		if err != nil {
			return o.tryAgain(ev), fmt.Errorf("load context: %w", err)
		}

		working := current.Clone()
		decision, err := o.machine.Evaluate(ctx, working, ev)
		if err != nil {
			return o.tryAgain(ev), fmt.Errorf("evaluate event: %w", err)
		}

		if !decision.Mutated {
			return decision.Intents, nil
		}

		err = o.store.CompareAndSwap(ctx, ev.SenderID, current.Version, working)
		if errors.Is(err, store.ErrVersionConflict) {
			slog.Info("version conflict, retrying transition",
				"sender", ev.SenderID, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return o.tryAgain(ev), fmt.Errorf("persist context: %w", err)
		}

		if working.Stage != current.Stage {
			o.notifyStageChange(ctx, current.Stage, working)
		}
		return decision.Intents, nil
	}

	return o.tryAgain(ev), fmt.Errorf("transition for %s: %w", ev.SenderID, store.ErrVersionConflict)
}

func (o *Orchestrator) tryAgain(ev funnel.Event) []funnel.Intent {
	return []funnel.Intent{o.machine.TryAgainIntent(ev.SenderID)}
}

// notifyStageChange publishes EVENT_STAGE_CHANGED, and on form handoff also
// EVENT_CANDIDATE_INTEREST with the data the downstream pipeline records.
func (o *Orchestrator) notifyStageChange(ctx context.Context, from funnel.Stage, lead *funnel.LeadContext) {
	if o.pub == nil {
		return
	}

	event, _ := json.Marshal(map[string]string{
		"type":     "EVENT_STAGE_CHANGED",
		"senderId": lead.SenderID,
		"from":     string(from),
		"to":       string(lead.Stage),
	})
	if err := o.pub.Publish(ctx, "EVENT_STAGE_CHANGED", event); err != nil {
		slog.Warn("publish EVENT_STAGE_CHANGED failed", "err", err)
	}

	if lead.Stage != funnel.StageFormHandoff {
		return
	}
	dominant := ""
	if lead.DiscResult != nil {
		dominant = string(lead.DiscResult.Dominant)
	}
	interest, _ := json.Marshal(map[string]string{
		"type":         "EVENT_CANDIDATE_INTEREST",
		"senderId":     lead.SenderID,
		"city":         lead.City,
		"vacancyId":    lead.SelectedVacancyID,
		"discDominant": dominant,
		"formToken":    lead.FormToken,
	})
	if err := o.pub.Publish(ctx, "EVENT_CANDIDATE_INTEREST", interest); err != nil {
		slog.Warn("publish EVENT_CANDIDATE_INTEREST failed", "err", err)
	}
}
