package feed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"chatsync/pkg/models"
)

// Default and configuration values.
const defaultQueueCapacity = 1024
const fallbackQueueCapacity = 64

var (
	// ErrQueueFull is returned by tryEnqueue when the queue is at capacity.
	ErrQueueFull = errors.New("feed queue full")
	// ErrQueueClosed is returned once the feed has been closed.
	ErrQueueClosed = errors.New("feed queue closed")
)

type eventKind uint8

const (
	evAppend eventKind = iota + 1
	evServer
	evServerDelete
	evRemove
	evMarkSent
	evMarkFailed
)

// event is one serialized mutation of a feed. All writers (user actions,
// REST completions, push deliveries) funnel through the queue so no two
// mutations interleave mid-update.
type event struct {
	kind eventKind
	msg  models.Message
	// id addresses remove/markSent/markFailed events.
	id string
	// enqSeq is a monotonic sequence assigned on accept, for deterministic
	// ordering in logs.
	enqSeq uint64
}

// queue is a bounded serialized event queue owned by exactly one worker
// goroutine. Producers are concurrent; consumption is single-threaded.
type queue struct {
	ch       chan event
	capacity int
	dropped  uint64
	closed   int32
	seq      uint64

	enqWg     sync.WaitGroup
	closeOnce sync.Once
}

func newQueue(capacity int) *queue {
	if capacity <= 0 {
		capacity = fallbackQueueCapacity
	}
	return &queue{ch: make(chan event, capacity), capacity: capacity}
}

// tryEnqueue enqueues without blocking; returns ErrQueueFull when at
// capacity so push adapters can drop-and-count rather than stall a read
// loop.
func (q *queue) tryEnqueue(ev event) error {
	if atomic.LoadInt32(&q.closed) == 1 {
		return ErrQueueClosed
	}
	q.enqWg.Add(1)
	defer q.enqWg.Done()
	if atomic.LoadInt32(&q.closed) == 1 {
		return ErrQueueClosed
	}
	ev.enqSeq = atomic.AddUint64(&q.seq, 1)
	select {
	case q.ch <- ev:
		return nil
	default:
		atomic.AddUint64(&q.dropped, 1)
		return ErrQueueFull
	}
}

// enqueue blocks until the event is accepted or ctx is done.
func (q *queue) enqueue(ctx context.Context, ev event) error {
	if atomic.LoadInt32(&q.closed) == 1 {
		return ErrQueueClosed
	}
	q.enqWg.Add(1)
	defer q.enqWg.Done()
	if atomic.LoadInt32(&q.closed) == 1 {
		return ErrQueueClosed
	}
	ev.enqSeq = atomic.AddUint64(&q.seq, 1)
	select {
	case q.ch <- ev:
		return nil
	case <-ctx.Done():
		atomic.AddUint64(&q.dropped, 1)
		return ctx.Err()
	}
}

// close marks the queue closed, waits for in-flight producers, then closes
// the channel. The worker drains remaining events before exiting.
func (q *queue) close() {
	q.closeOnce.Do(func() {
		atomic.StoreInt32(&q.closed, 1)
		q.enqWg.Wait()
		close(q.ch)
	})
}

func (q *queue) droppedCount() uint64 { return atomic.LoadUint64(&q.dropped) }

func (q *queue) depth() int { return len(q.ch) }
