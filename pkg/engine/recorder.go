package engine

import (
	"chatsync/pkg/feed"
	"chatsync/pkg/logger"
	"chatsync/pkg/models"
	"chatsync/pkg/store"
)

// newRecorder persists newly confirmed messages of a direct conversation
// into the local cache. It watches the session's snapshots and writes any
// confirmed identity it has not seen before; the cache applies its own
// append-then-trim bound. Returns a stop func.
func newRecorder(key models.ConversationKey, s *feed.Session, history []models.Message) func() {
	seen := make(map[string]struct{}, len(history))
	for _, m := range history {
		seen[m.ID] = struct{}{}
	}

	ch, cancel := s.Watch()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for snap := range ch {
			for _, m := range snap {
				if m.Status != models.StatusConfirmed {
					continue
				}
				if _, ok := seen[m.ID]; ok {
					continue
				}
				seen[m.ID] = struct{}{}
				if err := store.Persist(key, m); err != nil {
					logger.Error("direct_persist_failed", "conversation", key.String(), "msg", m.ID, "err", err)
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
