// Package typing tracks the ephemeral "currently typing" set per group.
// Entries expire on a sliding TTL evicted by a background tick, so a lost
// "stopped typing" event can never leave a stuck indicator. Nothing here
// is persisted.
package typing

import (
	"sort"
	"sync"
	"time"
)

type entryKey struct {
	groupID string
	userID  string
}

// Tracker is safe for concurrent use.
type Tracker struct {
	ttl   time.Duration
	sweep time.Duration

	mu      sync.Mutex
	entries map[entryKey]time.Time // expiry instants

	done chan struct{}
	once sync.Once
}

// NewTracker starts the eviction ticker immediately.
func NewTracker(ttl, sweep time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = 4 * time.Second
	}
	if sweep <= 0 {
		sweep = time.Second
	}
	t := &Tracker{
		ttl:     ttl,
		sweep:   sweep,
		entries: map[entryKey]time.Time{},
		done:    make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *Tracker) run() {
	tick := time.NewTicker(t.sweep)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			t.evict(time.Now())
		case <-t.done:
			return
		}
	}
}

func (t *Tracker) evict(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, exp := range t.entries {
		if !exp.After(now) {
			delete(t.entries, k)
		}
	}
}

// MarkTyping inserts or refreshes an entry with a sliding expiry.
func (t *Tracker) MarkTyping(groupID, userID string) {
	t.mu.Lock()
	t.entries[entryKey{groupID, userID}] = time.Now().Add(t.ttl)
	t.mu.Unlock()
}

// StopTyping removes an entry eagerly when a stop event does arrive.
func (t *Tracker) StopTyping(groupID, userID string) {
	t.mu.Lock()
	delete(t.entries, entryKey{groupID, userID})
	t.mu.Unlock()
}

// Snapshot returns the users currently typing in a group, sorted. Expired
// entries are excluded even if the sweep has not run yet.
func (t *Tracker) Snapshot(groupID string) []string {
	now := time.Now()
	t.mu.Lock()
	var out []string
	for k, exp := range t.entries {
		if k.groupID == groupID && exp.After(now) {
			out = append(out, k.userID)
		}
	}
	t.mu.Unlock()
	sort.Strings(out)
	return out
}

// Close stops the eviction ticker.
func (t *Tracker) Close() {
	t.once.Do(func() { close(t.done) })
}
