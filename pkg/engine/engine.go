// Package engine ties the synchronization pieces together: one feed
// session per active group or conversation, push subscriptions scoped to
// the sessions that exist, the reaction aggregator, the typing tracker
// and the moderation queues.
package engine

import (
	"context"
	"sync"

	"chatsync/pkg/config"
	"chatsync/pkg/feed"
	"chatsync/pkg/logger"
	"chatsync/pkg/models"
	"chatsync/pkg/moderation"
	"chatsync/pkg/reactions"
	"chatsync/pkg/store"
	"chatsync/pkg/transport"
	"chatsync/pkg/typing"
)

// Engine is the single entry point the local surface talks to.
type Engine struct {
	cfg       *config.Config
	rest      *transport.REST
	push      *transport.Push
	typing    *typing.Tracker
	reactions *reactions.Aggregator
	localUser models.Author

	mu         sync.Mutex
	sessions   map[string]*feed.Session
	moderation map[string]*moderation.Queue
	recorders  map[string]func()
}

// New wires an engine; Run on the push adapter is the caller's job.
func New(cfg *config.Config, rest *transport.REST, push *transport.Push, tracker *typing.Tracker) *Engine {
	return &Engine{
		cfg:        cfg,
		rest:       rest,
		push:       push,
		typing:     tracker,
		reactions:  reactions.New(rest, cfg.Sync.ReactionCooldown.Duration()),
		localUser:  models.Author{ID: cfg.Identity.LocalUserID},
		sessions:   map[string]*feed.Session{},
		moderation: map[string]*moderation.Queue{},
		recorders:  map[string]func(){},
	}
}

func (e *Engine) sessionOptions() feed.Options {
	return feed.Options{
		QueueCapacity:  e.cfg.Sync.FeedQueueCapacity,
		ConfirmTimeout: e.cfg.Sync.ConfirmTimeout.Duration(),
		LocalUser:      e.localUser,
	}
}

// OpenGroup returns the live session for a group, creating it and joining
// the push scope on first use.
func (e *Engine) OpenGroup(groupID string) *feed.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.sessions[groupID]; ok {
		return s
	}
	s := feed.NewSession(groupID, e.rest, e.sessionOptions())
	e.sessions[groupID] = s
	e.push.Subscribe(groupID, s)
	logger.Info("group_opened", "group", groupID)
	return s
}

// Session returns an already-open session, or nil.
func (e *Engine) Session(groupID string) *feed.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions[groupID]
}

// CloseGroup stops consuming the group's push events and closes the
// session. In-flight REST calls complete and their results are discarded.
func (e *Engine) CloseGroup(groupID string) {
	e.mu.Lock()
	s := e.sessions[groupID]
	delete(e.sessions, groupID)
	stop := e.recorders[groupID]
	delete(e.recorders, groupID)
	delete(e.moderation, groupID)
	e.mu.Unlock()
	if s == nil {
		return
	}
	e.push.Unsubscribe(groupID)
	if stop != nil {
		stop()
	}
	s.Close()
	logger.Info("group_closed", "group", groupID)
}

// OpenDirect returns the session for a direct conversation, backed by the
// local durable cache: history is replayed into the feed on open and
// every newly confirmed message is persisted.
func (e *Engine) OpenDirect(counterpartID, topicID string) (*feed.Session, models.ConversationKey, error) {
	key := models.ConversationKey{
		LocalUserID:   e.localUser.ID,
		CounterpartID: counterpartID,
		TopicID:       topicID,
	}
	channel := key.String()

	e.mu.Lock()
	if s, ok := e.sessions[channel]; ok {
		e.mu.Unlock()
		return s, key, nil
	}
	e.mu.Unlock()

	history, err := store.LoadHistory(key)
	if err != nil {
		return nil, key, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.sessions[channel]; ok {
		return s, key, nil
	}
	s := feed.NewSession(channel, e.rest, e.sessionOptions())
	e.sessions[channel] = s
	for _, m := range history {
		s.ApplyServerMessage(m)
	}
	e.recorders[channel] = newRecorder(key, s, history)
	e.push.Subscribe(channel, s)
	logger.Info("direct_opened", "conversation", channel, "history", len(history))
	return s, key, nil
}

// Moderation returns the moderation queue for a group, refreshed on first
// use.
func (e *Engine) Moderation(ctx context.Context, groupID string) (*moderation.Queue, error) {
	e.mu.Lock()
	q, ok := e.moderation[groupID]
	if !ok {
		q = moderation.NewQueue(e.rest, groupID, e.localUser.ID)
		e.moderation[groupID] = q
	}
	e.mu.Unlock()
	if !ok {
		if err := q.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// React toggles the local user's reaction through the in-flight guard.
func (e *Engine) React(ctx context.Context, groupID, msgID, emoji string) (models.Message, error) {
	s := e.Session(groupID)
	var dst reactions.FeedApplier
	if s != nil {
		dst = s
	}
	return e.reactions.Toggle(ctx, dst, groupID, msgID, emoji)
}

// Typing exposes the tracker for snapshot reads.
func (e *Engine) Typing() *typing.Tracker { return e.typing }

// LocalUser returns the identity this engine synchronizes for.
func (e *Engine) LocalUser() models.Author { return e.localUser }

// Close closes every session and stops the recorders.
func (e *Engine) Close() {
	e.mu.Lock()
	sessions := e.sessions
	recorders := e.recorders
	e.sessions = map[string]*feed.Session{}
	e.recorders = map[string]func(){}
	e.mu.Unlock()
	for _, stop := range recorders {
		stop()
	}
	for id, s := range sessions {
		e.push.Unsubscribe(id)
		s.Close()
	}
}
