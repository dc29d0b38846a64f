package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatsync/pkg/logger"
	"chatsync/pkg/models"
	"chatsync/pkg/telemetry"
)

// Sender is the authoritative write side consumed by a session. The REST
// transport adapter implements it.
type Sender interface {
	CreateMessage(ctx context.Context, groupID, body string, attachments []string, correlationID string) (*models.Message, error)
	EditMessage(ctx context.Context, groupID, msgID, body string) (*models.Message, error)
	DeleteMessage(ctx context.Context, groupID, msgID string) error
}

// Options tunes one session.
type Options struct {
	QueueCapacity int
	// ConfirmTimeout bounds how long a draft whose REST write failed may
	// wait for a push confirmation before transitioning to failed.
	ConfirmTimeout time.Duration
	LocalUser      models.Author
}

func (o *Options) normalize() {
	if o.QueueCapacity <= 0 {
		o.QueueCapacity = defaultQueueCapacity
	}
	if o.ConfirmTimeout <= 0 {
		o.ConfirmTimeout = 8 * time.Second
	}
}

// Session owns the feed of one group/conversation for the lifetime of the
// client's visit. It serializes every mutation through its event queue and
// publishes immutable snapshots to watchers.
type Session struct {
	groupID string
	sender  Sender
	opts    Options

	q     *queue
	state *feedState

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.RWMutex
	snap        []models.Message
	watchers    map[int]chan []models.Message
	nextWatcher int
}

// NewSession builds and starts a session; the worker goroutine runs until
// Close.
func NewSession(groupID string, sender Sender, opts Options) *Session {
	opts.normalize()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		groupID:  groupID,
		sender:   sender,
		opts:     opts,
		q:        newQueue(opts.QueueCapacity),
		state:    newFeedState(),
		ctx:      ctx,
		cancel:   cancel,
		watchers: map[int]chan []models.Message{},
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// GroupID returns the group this session synchronizes.
func (s *Session) GroupID() string { return s.groupID }

// run is the single logical owner of the feed state.
func (s *Session) run() {
	defer s.wg.Done()
	for ev := range s.q.ch {
		delta := s.apply(ev)
		telemetry.FeedQueueDepth.WithLabelValues(s.groupID).Set(float64(s.q.depth()))
		if delta.Kind == DeltaNone {
			continue
		}
		s.publish()
	}
}

func (s *Session) apply(ev event) FeedDelta {
	switch ev.kind {
	case evAppend:
		m := ev.msg
		s.state.append(&m)
		return FeedDelta{Kind: DeltaAppended, Index: len(s.state.entries) - 1, Message: &m}
	case evServer:
		delta := s.state.reconcile(ev.msg)
		telemetry.ReconcileOutcomes.WithLabelValues(string(delta.Kind)).Inc()
		if delta.Kind == DeltaNone {
			logger.Debug("duplicate_delivery", "group", s.groupID, "msg", ev.msg.ID)
		}
		return delta
	case evServerDelete, evRemove:
		if s.state.remove(ev.id) {
			telemetry.ReconcileOutcomes.WithLabelValues(string(DeltaRemoved)).Inc()
			return FeedDelta{Kind: DeltaRemoved}
		}
		// deleting an unknown identity is an expected condition (push echo
		// of an optimistic removal), resolved silently
		return FeedDelta{Kind: DeltaNone}
	case evMarkSent:
		if m := s.state.get(ev.id); m != nil && (m.Status == models.StatusDraft || m.Status == models.StatusFailed) {
			m.Status = models.StatusSent
			return FeedDelta{Kind: DeltaReplaced, Message: m}
		}
		return FeedDelta{Kind: DeltaNone}
	case evMarkFailed:
		if m := s.state.get(ev.id); m != nil && m.Status != models.StatusConfirmed {
			m.Status = models.StatusFailed
			telemetry.SendFailures.Inc()
			logger.Warn("send_confirm_timeout", "group", s.groupID, "msg", ev.id)
			return FeedDelta{Kind: DeltaReplaced, Message: m}
		}
		return FeedDelta{Kind: DeltaNone}
	}
	return FeedDelta{Kind: DeltaNone}
}

// publish refreshes the shared snapshot and fans it out to watchers,
// latest-wins per watcher.
func (s *Session) publish() {
	snap := s.state.snapshot()
	s.mu.Lock()
	s.snap = snap
	for _, ch := range s.watchers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
	s.mu.Unlock()
}

// Snapshot returns the current ordered, de-duplicated message list.
func (s *Session) Snapshot() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Watch registers a snapshot subscriber. The returned cancel must be
// called when the watcher goes away.
func (s *Session) Watch() (<-chan []models.Message, func()) {
	ch := make(chan []models.Message, 1)
	s.mu.Lock()
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = ch
	s.mu.Unlock()
	return ch, func() {
		s.mu.Lock()
		if _, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(ch)
		}
		s.mu.Unlock()
	}
}

// Send creates an optimistic draft, appends it immediately, then issues
// the REST write in the background. Confirmation arrives through either
// the REST response or a push echo, whichever lands first.
func (s *Session) Send(ctx context.Context, body string, attachments []string) (models.Message, error) {
	if body == "" && len(attachments) == 0 {
		return models.Message{}, fmt.Errorf("empty message")
	}
	draft := models.Message{
		ID:            models.NewTempID(),
		CorrelationID: uuid.NewString(),
		GroupID:       s.groupID,
		Author:        s.opts.LocalUser,
		Body:          body,
		Attachments:   attachments,
		Status:        models.StatusDraft,
		CreatedTS:     time.Now().UTC().UnixNano(),
	}
	if err := s.q.enqueue(ctx, event{kind: evAppend, msg: draft}); err != nil {
		return models.Message{}, err
	}
	s.wg.Add(1)
	go s.dispatchSend(draft)
	return draft, nil
}

func (s *Session) dispatchSend(draft models.Message) {
	defer s.wg.Done()
	_ = s.q.tryEnqueue(event{kind: evMarkSent, id: draft.ID})
	msg, err := s.sender.CreateMessage(s.ctx, s.groupID, draft.Body, draft.Attachments, draft.CorrelationID)
	if err != nil {
		logger.Warn("rest_send_failed", "group", s.groupID, "msg", draft.ID, "err", err)
		// The draft stays visible; a push confirmation may still retire it.
		// Only after the bounded wait does it transition to failed.
		time.AfterFunc(s.opts.ConfirmTimeout, func() {
			_ = s.q.tryEnqueue(event{kind: evMarkFailed, id: draft.ID})
		})
		return
	}
	if msg.CorrelationID == "" {
		msg.CorrelationID = draft.CorrelationID
	}
	if err := s.q.tryEnqueue(event{kind: evServer, msg: *msg}); err != nil {
		// session closed while the call was in flight; result discarded
		logger.Debug("rest_result_discarded", "group", s.groupID, "msg", msg.ID)
	}
}

// Retry re-issues the REST write for a failed draft.
func (s *Session) Retry(ctx context.Context, id string) error {
	s.mu.RLock()
	var draft *models.Message
	for i := range s.snap {
		if s.snap[i].ID == id {
			m := s.snap[i]
			draft = &m
			break
		}
	}
	s.mu.RUnlock()
	if draft == nil {
		return fmt.Errorf("unknown message %s", id)
	}
	if draft.Status != models.StatusFailed {
		return fmt.Errorf("message %s is not failed", id)
	}
	if err := s.q.enqueue(ctx, event{kind: evMarkSent, id: id}); err != nil {
		return err
	}
	s.wg.Add(1)
	go s.dispatchSend(*draft)
	return nil
}

// Discard drops a failed draft the user no longer wants.
func (s *Session) Discard(ctx context.Context, id string) error {
	return s.q.enqueue(ctx, event{kind: evRemove, id: id})
}

// Edit applies the change optimistically and issues the REST write; the
// server response (or push echo) reconciles by identity. Only confirmed
// messages are editable: a draft still carries its temporary ID, so the
// backend has nothing to address the edit to yet.
func (s *Session) Edit(ctx context.Context, id, body string) error {
	s.mu.RLock()
	var current *models.Message
	for i := range s.snap {
		if s.snap[i].ID == id {
			m := s.snap[i]
			current = &m
			break
		}
	}
	s.mu.RUnlock()
	if current == nil {
		return fmt.Errorf("unknown message %s", id)
	}
	if current.Status != models.StatusConfirmed {
		return fmt.Errorf("message %s is not confirmed yet", id)
	}
	optimistic := *current
	optimistic.Body = body
	optimistic.UpdatedTS = time.Now().UTC().UnixNano()
	if err := s.q.enqueue(ctx, event{kind: evServer, msg: optimistic}); err != nil {
		return err
	}
	msg, err := s.sender.EditMessage(ctx, s.groupID, id, body)
	if err != nil {
		return err
	}
	return s.q.enqueue(ctx, event{kind: evServer, msg: *msg})
}

// Delete removes the message locally at once and issues the REST delete.
// The push messageDeleted echo reconciles to a no-op.
func (s *Session) Delete(ctx context.Context, id string) error {
	if err := s.q.enqueue(ctx, event{kind: evRemove, id: id}); err != nil {
		return err
	}
	if models.IsTempID(id) {
		// never reached the server; nothing to delete remotely
		return nil
	}
	return s.sender.DeleteMessage(ctx, s.groupID, id)
}

// ApplyServerMessage feeds a push payload (new, updated or reacted
// message) into the serialized queue. Non-blocking: a full queue drops the
// event and counts it rather than stalling the push read loop.
func (s *Session) ApplyServerMessage(msg models.Message) {
	if err := s.q.tryEnqueue(event{kind: evServer, msg: msg}); err != nil {
		telemetry.FeedEventsDropped.Inc()
		logger.Warn("push_event_dropped", "group", s.groupID, "msg", msg.ID, "err", err)
	}
}

// ApplyServerDelete feeds a push messageDeleted event into the queue.
func (s *Session) ApplyServerDelete(id string) {
	if err := s.q.tryEnqueue(event{kind: evServerDelete, id: id}); err != nil {
		telemetry.FeedEventsDropped.Inc()
		logger.Warn("push_delete_dropped", "group", s.groupID, "msg", id, "err", err)
	}
}

// Dropped reports events rejected because the queue was full.
func (s *Session) Dropped() uint64 { return s.q.droppedCount() }

// Close stops consuming events. In-flight REST calls complete in the
// background and their results are discarded.
func (s *Session) Close() {
	s.cancel()
	s.q.close()
	s.wg.Wait()
	s.mu.Lock()
	for id, ch := range s.watchers {
		delete(s.watchers, id)
		close(ch)
	}
	s.mu.Unlock()
}
