// Package store is the local durable cache for direct-chat conversations.
// It is the system of record only for conversations without server-side
// history; group chat never touches it. All operations are pure local
// reads/writes and remain safe with no network available.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"

	"chatsync/pkg/logger"
	"chatsync/pkg/models"
)

var db *pebble.DB
var dbPath string

// metaMu serializes read-modify-write of conversation index records, so a
// recorder appending a message and a mark-read from the local surface
// cannot lose an unread update to each other.
var metaMu sync.Mutex

// seq reduces key collisions when multiple messages share the same
// nanosecond timestamp.
var seq uint64

// historyCap bounds stored history per conversation; insertion beyond the
// cap evicts the oldest entries.
var historyCap int64 = 100

// SetHistoryCap overrides the per-conversation history bound.
func SetHistoryCap(n int) {
	if n > 0 {
		atomic.StoreInt64(&historyCap, int64(n))
	}
}

// HistoryCap returns the configured per-conversation bound.
func HistoryCap() int { return int(atomic.LoadInt64(&historyCap)) }

// Open opens (or creates) a Pebble database at the given path and keeps a
// global handle for simple usage in this package.
func Open(path string) error {
	var err error
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "err", err)
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool { return db != nil }

func msgPrefix(key models.ConversationKey) []byte {
	return []byte("conv:" + key.String() + ":msg:")
}

func metaKey(key models.ConversationKey) []byte {
	return []byte("convmeta:" + key.String())
}

// Persist appends a message to a conversation's history and updates the
// conversation index record. The history is trimmed back to the cap in the
// same call (append-then-trim).
func Persist(key models.ConversationKey, msg models.Message) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	ts := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&seq, 1)
	k := fmt.Sprintf("conv:%s:msg:%020d-%06d", key.String(), ts, s)

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := db.Set([]byte(k), data, pebble.Sync); err != nil {
		logger.Error("persist_message_failed", "conv", key.String(), "err", err)
		return err
	}

	metaMu.Lock()
	conv, err := GetConversation(key)
	if err != nil {
		conv = &models.Conversation{Key: key, CreatedTS: ts}
	}
	m := msg
	conv.LastMessage = &m
	conv.LastMessageTS = ts
	if msg.Author.ID != key.LocalUserID {
		conv.Unread++
	}
	err = SaveConversation(conv)
	metaMu.Unlock()
	if err != nil {
		return err
	}
	return trim(key)
}

// trim deletes the oldest entries beyond the history cap.
func trim(key models.ConversationKey) error {
	cap64 := atomic.LoadInt64(&historyCap)
	keys, err := historyKeys(key)
	if err != nil {
		return err
	}
	excess := int64(len(keys)) - cap64
	if excess <= 0 {
		return nil
	}
	b := db.NewBatch()
	defer b.Close()
	for _, k := range keys[:excess] {
		if err := b.Delete(k, nil); err != nil {
			return err
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return err
	}
	logger.Debug("history_trimmed", "conv", key.String(), "evicted", excess)
	return nil
}

func historyKeys(key models.ConversationKey) ([][]byte, error) {
	prefix := msgPrefix(key)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var keys [][]byte
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		k := make([]byte, len(iter.Key()))
		copy(k, iter.Key())
		keys = append(keys, k)
	}
	return keys, iter.Error()
}

// LoadHistory returns the cached messages of one conversation in insertion
// order (oldest first).
func LoadHistory(key models.ConversationKey) ([]models.Message, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	prefix := msgPrefix(key)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Message
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			logger.Warn("history_decode_failed", "conv", key.String(), "err", err)
			continue
		}
		out = append(out, m)
	}
	return out, iter.Error()
}

// SaveConversation writes the conversation index record.
func SaveConversation(c *models.Conversation) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}
	return db.Set(metaKey(c.Key), data, pebble.Sync)
}

// GetConversation loads one conversation record.
func GetConversation(key models.ConversationKey) (*models.Conversation, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	v, closer, err := db.Get(metaKey(key))
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	var c models.Conversation
	if err := json.Unmarshal(v, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListConversations returns visible conversations ordered by recency.
// Conversations without an exchanged message are filtered out: joining
// alone does not make a conversation visible.
func ListConversations() ([]models.Conversation, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	prefix := []byte("convmeta:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Conversation
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var c models.Conversation
		if err := json.Unmarshal(iter.Value(), &c); err != nil {
			logger.Warn("conversation_decode_failed", "key", string(iter.Key()), "err", err)
			continue
		}
		if !c.Visible() {
			continue
		}
		out = append(out, c)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	// recency order, newest first
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageTS > out[j].LastMessageTS })
	return out, nil
}

// MarkRead resets the unread counter of one conversation.
func MarkRead(key models.ConversationKey) error {
	metaMu.Lock()
	defer metaMu.Unlock()
	c, err := GetConversation(key)
	if err != nil {
		return err
	}
	c.Unread = 0
	return SaveConversation(c)
}

// ClearAll removes every conversation record and cached history. This is
// the only path that deletes conversations; nothing expires them
// automatically.
func ClearAll() error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	if err := db.DeleteRange([]byte("conv:"), []byte("conv;"), pebble.Sync); err != nil {
		return err
	}
	if err := db.DeleteRange([]byte("convmeta:"), []byte("convmeta;"), pebble.Sync); err != nil {
		return err
	}
	logger.Info("cache_cleared")
	return nil
}

// TrimAll re-applies the history cap across every conversation. Used by
// the maintenance sweep after a cap decrease.
func TrimAll() (int, error) {
	convs, err := allConversationKeys()
	if err != nil {
		return 0, err
	}
	trimmed := 0
	for _, key := range convs {
		before, err := historyKeys(key)
		if err != nil {
			return trimmed, err
		}
		if int64(len(before)) > atomic.LoadInt64(&historyCap) {
			if err := trim(key); err != nil {
				return trimmed, err
			}
			trimmed++
		}
	}
	return trimmed, nil
}

func allConversationKeys() ([]models.ConversationKey, error) {
	prefix := []byte("convmeta:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.ConversationKey
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if key, ok := models.ParseConversationKey(string(iter.Key()[len(prefix):])); ok {
			out = append(out, key)
		}
	}
	return out, iter.Error()
}
