package store

import (
	"fmt"
	"sync"
	"testing"

	"chatsync/pkg/models"
)

func openTestStore(t *testing.T) {
	t.Helper()
	if err := Open(t.TempDir()); err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		_ = Close()
		SetHistoryCap(100)
	})
}

func testKey(counterpart string) models.ConversationKey {
	return models.ConversationKey{LocalUserID: "me", CounterpartID: counterpart}
}

func msgFrom(author, body string) models.Message {
	return models.Message{
		ID:     "id-" + body,
		Author: models.Author{ID: author},
		Body:   body,
		Status: models.StatusConfirmed,
	}
}

func TestPersistAndLoadRoundTrip(t *testing.T) {
	openTestStore(t)
	key := testKey("alice")

	for i := 0; i < 3; i++ {
		if err := Persist(key, msgFrom("me", fmt.Sprintf("m%d", i))); err != nil {
			t.Fatalf("persist: %v", err)
		}
	}
	history, err := LoadHistory(key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(history))
	}
	if history[0].Body != "m0" || history[2].Body != "m2" {
		t.Fatalf("insertion order lost: %+v", history)
	}
}

func TestHistoryBoundedAtCap(t *testing.T) {
	openTestStore(t)
	key := testKey("alice")

	for i := 0; i < 150; i++ {
		if err := Persist(key, msgFrom("me", fmt.Sprintf("m%03d", i))); err != nil {
			t.Fatalf("persist #%d: %v", i, err)
		}
	}
	history, err := LoadHistory(key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(history) != 100 {
		t.Fatalf("expected history capped at 100, got %d", len(history))
	}
	// the oldest 50 are gone, the newest survive
	if history[0].Body != "m050" {
		t.Fatalf("wrong eviction end: oldest kept is %s", history[0].Body)
	}
	if history[99].Body != "m149" {
		t.Fatalf("newest message missing: %s", history[99].Body)
	}
}

func TestVisibilityRequiresExchangedMessage(t *testing.T) {
	openTestStore(t)

	// joined but nothing exchanged yet
	if err := SaveConversation(&models.Conversation{Key: testKey("ghost")}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := Persist(testKey("alice"), msgFrom("alice", "hi")); err != nil {
		t.Fatalf("persist: %v", err)
	}

	convs, err := ListConversations()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("expected 1 visible conversation, got %d", len(convs))
	}
	if convs[0].Key.CounterpartID != "alice" {
		t.Fatalf("wrong conversation visible: %+v", convs[0].Key)
	}
}

func TestListOrdersByRecency(t *testing.T) {
	openTestStore(t)

	if err := Persist(testKey("alice"), msgFrom("alice", "old")); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if err := Persist(testKey("bob"), msgFrom("bob", "new")); err != nil {
		t.Fatalf("persist: %v", err)
	}

	convs, err := ListConversations()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}
	if convs[0].Key.CounterpartID != "bob" {
		t.Fatalf("newest conversation must sort first, got %s", convs[0].Key.CounterpartID)
	}
}

func TestUnreadCountsOnlyCounterpartMessages(t *testing.T) {
	openTestStore(t)
	key := testKey("alice")

	_ = Persist(key, msgFrom("alice", "a"))
	_ = Persist(key, msgFrom("alice", "b"))
	_ = Persist(key, msgFrom("me", "mine"))

	conv, err := GetConversation(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if conv.Unread != 2 {
		t.Fatalf("expected 2 unread, got %d", conv.Unread)
	}

	if err := MarkRead(key); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	conv, _ = GetConversation(key)
	if conv.Unread != 0 {
		t.Fatalf("unread not reset: %d", conv.Unread)
	}
}

func TestConcurrentPersistsLoseNoUnreadIncrements(t *testing.T) {
	openTestStore(t)
	key := testKey("alice")

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			if err := Persist(key, msgFrom("alice", fmt.Sprintf("c%02d", i))); err != nil {
				t.Errorf("persist #%d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	conv, err := GetConversation(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if conv.Unread != n {
		t.Fatalf("unread increments lost: expected %d, got %d", n, conv.Unread)
	}
}

func TestClearAllDeletesEverything(t *testing.T) {
	openTestStore(t)
	key := testKey("alice")
	_ = Persist(key, msgFrom("alice", "hi"))

	if err := ClearAll(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	history, err := LoadHistory(key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("history survived clear: %d entries", len(history))
	}
	convs, err := ListConversations()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(convs) != 0 {
		t.Fatalf("conversations survived clear: %d", len(convs))
	}
}

func TestTrimAllAfterCapDecrease(t *testing.T) {
	openTestStore(t)
	key := testKey("alice")

	for i := 0; i < 30; i++ {
		_ = Persist(key, msgFrom("me", fmt.Sprintf("m%02d", i)))
	}
	SetHistoryCap(10)
	trimmed, err := TrimAll()
	if err != nil {
		t.Fatalf("trim all: %v", err)
	}
	if trimmed != 1 {
		t.Fatalf("expected 1 conversation trimmed, got %d", trimmed)
	}
	history, _ := LoadHistory(key)
	if len(history) != 10 {
		t.Fatalf("expected history of 10 after sweep, got %d", len(history))
	}
	if history[9].Body != "m29" {
		t.Fatalf("sweep evicted from the wrong end: %s", history[9].Body)
	}
}
