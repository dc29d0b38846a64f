// Package feed implements the reconciling message feed: the ordered,
// de-duplicated message list of one active group or conversation. Every
// mutation (optimistic local edits, REST completions, push deliveries)
// is funneled through a single serialized event queue per feed, so the
// reconciliation rules run deterministically without locks around the
// list itself.
package feed

import "chatsync/pkg/models"

// feedState is the mutable list plus its identity indexes. It is owned by
// the session worker goroutine; nothing else touches it.
type feedState struct {
	entries       []*models.Message
	byID          map[string]int
	byCorrelation map[string]int
}

func newFeedState() *feedState {
	return &feedState{
		byID:          map[string]int{},
		byCorrelation: map[string]int{},
	}
}

func (f *feedState) append(m *models.Message) {
	f.entries = append(f.entries, m)
	i := len(f.entries) - 1
	if m.ID != "" {
		f.byID[m.ID] = i
	}
	if m.CorrelationID != "" {
		f.byCorrelation[m.CorrelationID] = i
	}
}

// replaceAt swaps the entry at i for m, keeping position. The previous
// identity is retired: at most one entry ever occupies a confirmed ID.
func (f *feedState) replaceAt(i int, m *models.Message) {
	prev := f.entries[i]
	delete(f.byID, prev.ID)
	if prev.CorrelationID != "" && prev.CorrelationID != m.CorrelationID {
		delete(f.byCorrelation, prev.CorrelationID)
	}
	f.entries[i] = m
	if m.ID != "" {
		f.byID[m.ID] = i
	}
	if m.CorrelationID != "" {
		f.byCorrelation[m.CorrelationID] = i
	}
}

// remove deletes the identity outright. No tombstone is kept client-side;
// the server retains the audit trail. Returns false when id is absent.
func (f *feedState) remove(id string) bool {
	i, ok := f.byID[id]
	if !ok {
		return false
	}
	prev := f.entries[i]
	delete(f.byID, prev.ID)
	if prev.CorrelationID != "" {
		delete(f.byCorrelation, prev.CorrelationID)
	}
	f.entries = append(f.entries[:i], f.entries[i+1:]...)
	for j := i; j < len(f.entries); j++ {
		if f.entries[j].ID != "" {
			f.byID[f.entries[j].ID] = j
		}
		if f.entries[j].CorrelationID != "" {
			f.byCorrelation[f.entries[j].CorrelationID] = j
		}
	}
	return true
}

// get returns the entry for id, or nil.
func (f *feedState) get(id string) *models.Message {
	if i, ok := f.byID[id]; ok {
		return f.entries[i]
	}
	return nil
}

// snapshot returns a deep-enough copy for readers: a fresh slice of
// message values so later mutations cannot show through.
func (f *feedState) snapshot() []models.Message {
	out := make([]models.Message, len(f.entries))
	for i, m := range f.entries {
		out[i] = *m
	}
	return out
}
