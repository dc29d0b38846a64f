package reactions

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chatsync/pkg/models"
)

type fakeToggler struct {
	calls int32
	delay time.Duration
	fail  bool
	resp  models.Message
}

func (f *fakeToggler) ToggleReaction(ctx context.Context, groupID, msgID, emoji string) (*models.Message, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail {
		return nil, errors.New("backend down")
	}
	m := f.resp
	return &m, nil
}

type captureApplier struct {
	mu   sync.Mutex
	msgs []models.Message
}

func (c *captureApplier) ApplyServerMessage(m models.Message) {
	c.mu.Lock()
	c.msgs = append(c.msgs, m)
	c.mu.Unlock()
}

func TestToggleAppliesAuthoritativePayload(t *testing.T) {
	toggler := &fakeToggler{resp: models.Message{
		ID:        "m1",
		Reactions: []models.Reaction{{UserID: "me", Emoji: "❤️"}},
		Status:    models.StatusConfirmed,
	}}
	dst := &captureApplier{}
	a := New(toggler, 10*time.Millisecond)

	msg, err := a.Toggle(context.Background(), dst, "g1", "m1", "❤️")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if len(msg.Reactions) != 1 {
		t.Fatalf("expected resolved reaction set, got %+v", msg.Reactions)
	}
	dst.mu.Lock()
	defer dst.mu.Unlock()
	if len(dst.msgs) != 1 || dst.msgs[0].ID != "m1" {
		t.Fatalf("feed did not receive the payload: %+v", dst.msgs)
	}
}

func TestDoubleTapMakesExactlyOneNetworkCall(t *testing.T) {
	toggler := &fakeToggler{delay: 50 * time.Millisecond, resp: models.Message{ID: "m1"}}
	a := New(toggler, 10*time.Millisecond)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = a.Toggle(context.Background(), nil, "g1", "m1", "👍")
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&toggler.calls); got != 1 {
		t.Fatalf("double-tap made %d network calls, want 1", got)
	}
	rejected := 0
	for _, err := range errs {
		if errors.Is(err, ErrToggleInFlight) {
			rejected++
		} else if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if rejected != 1 {
		t.Fatalf("%d toggles rejected, want exactly 1", rejected)
	}
}

func TestGuardStaysArmedThroughCooldown(t *testing.T) {
	toggler := &fakeToggler{resp: models.Message{ID: "m1"}}
	a := New(toggler, 80*time.Millisecond)

	if _, err := a.Toggle(context.Background(), nil, "g1", "m1", "👍"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	// Resolved, but still cooling down: the push echo window.
	if !a.Busy("m1", "👍") {
		t.Fatal("guard disarmed immediately after resolution")
	}
	if _, err := a.Toggle(context.Background(), nil, "g1", "m1", "👍"); !errors.Is(err, ErrToggleInFlight) {
		t.Fatalf("expected in-flight rejection during cooldown, got %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for a.Busy("m1", "👍") {
		if time.Now().After(deadline) {
			t.Fatal("guard never disarmed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := a.Toggle(context.Background(), nil, "g1", "m1", "👍"); err != nil {
		t.Fatalf("toggle after cooldown: %v", err)
	}
	if got := atomic.LoadInt32(&toggler.calls); got != 2 {
		t.Fatalf("expected 2 network calls, got %d", got)
	}
}

func TestDistinctPairsAreIndependent(t *testing.T) {
	toggler := &fakeToggler{delay: 50 * time.Millisecond, resp: models.Message{ID: "m1"}}
	a := New(toggler, 10*time.Millisecond)

	var wg sync.WaitGroup
	var failures int32
	for _, emoji := range []string{"👍", "❤️"} {
		wg.Add(1)
		go func(e string) {
			defer wg.Done()
			if _, err := a.Toggle(context.Background(), nil, "g1", "m1", e); err != nil {
				atomic.AddInt32(&failures, 1)
			}
		}(emoji)
	}
	wg.Wait()
	if failures != 0 {
		t.Fatalf("distinct emoji toggles must not block each other, %d failed", failures)
	}
	if got := atomic.LoadInt32(&toggler.calls); got != 2 {
		t.Fatalf("expected 2 network calls, got %d", got)
	}
}

func TestFailedToggleMutatesNothing(t *testing.T) {
	toggler := &fakeToggler{fail: true}
	dst := &captureApplier{}
	a := New(toggler, 10*time.Millisecond)

	if _, err := a.Toggle(context.Background(), dst, "g1", "m1", "👍"); err == nil {
		t.Fatal("expected error from failing backend")
	}
	dst.mu.Lock()
	defer dst.mu.Unlock()
	if len(dst.msgs) != 0 {
		t.Fatalf("failed toggle must not touch the feed: %+v", dst.msgs)
	}
}
