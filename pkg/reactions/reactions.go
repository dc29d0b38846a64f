// Package reactions implements the reaction aggregator: confirmed-only
// toggles guarded against rapid double-taps. Reaction state is always
// replaced wholesale from the latest authoritative payload, never patched
// incrementally, so lost or reordered events cannot cause drift.
package reactions

import (
	"context"
	"sync"
	"time"

	"chatsync/pkg/errdefs"
	"chatsync/pkg/logger"
	"chatsync/pkg/models"
	"chatsync/pkg/telemetry"
)

// Toggler is the REST side of a reaction toggle. It returns the full
// message with the resolved reaction set.
type Toggler interface {
	ToggleReaction(ctx context.Context, groupID, msgID, emoji string) (*models.Message, error)
}

// FeedApplier receives the authoritative payload after a successful
// toggle. The feed session implements it.
type FeedApplier interface {
	ApplyServerMessage(models.Message)
}

// ErrToggleInFlight rejects a toggle while an identical one is
// outstanding or cooling down.
var ErrToggleInFlight = errdefs.New(errdefs.KindServerRejected, "reaction toggle already in flight")

type guardKey struct {
	msgID string
	emoji string
}

// Aggregator issues reaction toggles with an in-flight guard per
// (message, emoji) pair.
type Aggregator struct {
	toggler  Toggler
	cooldown time.Duration

	mu       sync.Mutex
	inflight map[guardKey]struct{}
}

// New builds an aggregator. cooldown keeps the guard armed after a toggle
// resolves so the push echo of the same action cannot re-trigger it.
func New(toggler Toggler, cooldown time.Duration) *Aggregator {
	if cooldown <= 0 {
		cooldown = 400 * time.Millisecond
	}
	return &Aggregator{
		toggler:  toggler,
		cooldown: cooldown,
		inflight: map[guardKey]struct{}{},
	}
}

// Toggle flips the local user's emoji on a message. If a toggle for the
// same (message, emoji) pair is already outstanding, the request is
// rejected locally with ErrToggleInFlight: no network call, no state
// change. On success the feed receives the server's full message so the
// reaction set is replaced wholesale; on failure nothing is mutated.
func (a *Aggregator) Toggle(ctx context.Context, dst FeedApplier, groupID, msgID, emoji string) (models.Message, error) {
	k := guardKey{msgID: msgID, emoji: emoji}
	a.mu.Lock()
	if _, busy := a.inflight[k]; busy {
		a.mu.Unlock()
		telemetry.ReactionGuardRejections.Inc()
		return models.Message{}, ErrToggleInFlight
	}
	a.inflight[k] = struct{}{}
	a.mu.Unlock()

	// The marker outlives the call by the cooldown, not just until the
	// response: the push echo of this very toggle lands shortly after.
	defer time.AfterFunc(a.cooldown, func() {
		a.mu.Lock()
		delete(a.inflight, k)
		a.mu.Unlock()
	})

	msg, err := a.toggler.ToggleReaction(ctx, groupID, msgID, emoji)
	if err != nil {
		logger.Warn("reaction_toggle_failed", "group", groupID, "msg", msgID, "emoji", emoji, "err", err)
		return models.Message{}, err
	}
	if dst != nil {
		dst.ApplyServerMessage(*msg)
	}
	return *msg, nil
}

// Busy reports whether a toggle for the pair is outstanding or cooling
// down.
func (a *Aggregator) Busy(msgID, emoji string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.inflight[guardKey{msgID: msgID, emoji: emoji}]
	return ok
}
