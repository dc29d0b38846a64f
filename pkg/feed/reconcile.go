package feed

import "chatsync/pkg/models"

// DeltaKind classifies the outcome of reconciling one incoming payload.
type DeltaKind string

const (
	// DeltaAppended: no identity or correlation match; inserted at the end.
	DeltaAppended DeltaKind = "appended"
	// DeltaReplaced: confirmed identity already present; replaced in place.
	DeltaReplaced DeltaKind = "replaced"
	// DeltaRetired: a draft/sent temporary entry was retired and the
	// confirmed message took its position.
	DeltaRetired DeltaKind = "retired"
	// DeltaRemoved: the identity was deleted from the feed.
	DeltaRemoved DeltaKind = "removed"
	// DeltaNone: duplicate delivery of an already-confirmed, identical
	// message; no change.
	DeltaNone DeltaKind = "none"
)

// FeedDelta describes the visible effect of one reconciliation.
type FeedDelta struct {
	Kind    DeltaKind
	Index   int
	Message *models.Message
}

// reconcile merges an incoming authoritative payload into the feed.
// Must only be called from the feed worker goroutine.
//
// Rules, in order:
//  1. Confirmed identity already present: replace in place (content or
//     timestamps may have changed, e.g. an edit). Identical content is a
//     no-op so duplicate push deliveries emit no delta.
//  2. Confirmed identity absent but a draft/sent temporary entry matches
//     by correlation token: retire the temporary entry and put the
//     confirmed message at its position. Sender-side continuity is
//     preferred over server-side chronological order for this one swap.
//  3. Otherwise append at the end (assumed newest).
func (f *feedState) reconcile(incoming models.Message) FeedDelta {
	incoming.Status = models.StatusConfirmed

	if i, ok := f.byID[incoming.ID]; ok {
		if sameContent(f.entries[i], &incoming) {
			return FeedDelta{Kind: DeltaNone, Index: i, Message: f.entries[i]}
		}
		m := incoming
		f.replaceAt(i, &m)
		return FeedDelta{Kind: DeltaReplaced, Index: i, Message: &m}
	}

	if incoming.CorrelationID != "" {
		if i, ok := f.byCorrelation[incoming.CorrelationID]; ok {
			prev := f.entries[i]
			if prev.Status == models.StatusDraft || prev.Status == models.StatusSent {
				m := incoming
				f.replaceAt(i, &m)
				return FeedDelta{Kind: DeltaRetired, Index: i, Message: &m}
			}
		}
	}

	m := incoming
	f.append(&m)
	return FeedDelta{Kind: DeltaAppended, Index: len(f.entries) - 1, Message: &m}
}

// sameContent reports whether two representations of one message are
// observably identical, so a duplicate delivery produces no delta.
func sameContent(a, b *models.Message) bool {
	if a.Body != b.Body || a.UpdatedTS != b.UpdatedTS || a.Status != b.Status {
		return false
	}
	if len(a.Attachments) != len(b.Attachments) || len(a.Reactions) != len(b.Reactions) {
		return false
	}
	for i := range a.Attachments {
		if a.Attachments[i] != b.Attachments[i] {
			return false
		}
	}
	for i := range a.Reactions {
		if a.Reactions[i] != b.Reactions[i] {
			return false
		}
	}
	return true
}
