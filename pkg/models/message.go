package models

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// TempIDPrefix marks client-generated message identities. A temp identity
// exists only until the server-assigned counterpart is observed.
const TempIDPrefix = "tmp-"

// MessageStatus tracks the client-side lifecycle of a message.
type MessageStatus string

const (
	StatusDraft     MessageStatus = "draft"
	StatusSent      MessageStatus = "sent"
	StatusConfirmed MessageStatus = "confirmed"
	StatusFailed    MessageStatus = "failed"
)

// Author is the canonical author shape. The backend may deliver an author
// as either a bare identifier or a nested object; both decode into this
// struct so the ambiguity never travels past the transport boundary.
type Author struct {
	ID        string `json:"id"`
	Username  string `json:"username,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// UnmarshalJSON accepts `"u42"` as well as `{"id":"u42",...}`.
func (a *Author) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if len(s) > 0 && s[0] == '"' {
		var id string
		if err := json.Unmarshal(b, &id); err != nil {
			return err
		}
		*a = Author{ID: id}
		return nil
	}
	type plain Author
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*a = Author(p)
	return nil
}

// Reaction is one (user, emoji) pair. A user holds at most one reaction of
// a given emoji on a given message.
type Reaction struct {
	UserID string `json:"user_id"`
	Emoji  string `json:"emoji"`
}

// ReactionGroup is the per-emoji aggregate view exposed to consumers.
type ReactionGroup struct {
	Emoji string   `json:"emoji"`
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// Message is the single message shape used by both transports so the feed
// can treat REST responses and push payloads uniformly.
type Message struct {
	ID string `json:"id"`
	// CorrelationID links a draft to its eventual confirmed counterpart.
	CorrelationID string        `json:"correlation_id,omitempty"`
	GroupID       string        `json:"group_id"`
	Author        Author        `json:"author"`
	Body          string        `json:"body"`
	Attachments   []string      `json:"attachments,omitempty"`
	Reactions     []Reaction    `json:"reactions,omitempty"`
	Status        MessageStatus `json:"status,omitempty"`
	// CreatedTS / UpdatedTS are unix nanoseconds.
	CreatedTS int64 `json:"created_ts"`
	UpdatedTS int64 `json:"updated_ts,omitempty"`
}

// NewTempID returns a fresh temporary identity.
func NewTempID() string { return TempIDPrefix + uuid.NewString() }

// IsTempID reports whether id is a client-generated temporary identity.
func IsTempID(id string) bool { return strings.HasPrefix(id, TempIDPrefix) }

// Confirmed reports whether the message carries a server-assigned identity.
func (m *Message) Confirmed() bool { return m.ID != "" && !IsTempID(m.ID) }

// HasReaction reports whether userID already holds emoji on the message.
func (m *Message) HasReaction(userID, emoji string) bool {
	for _, r := range m.Reactions {
		if r.UserID == userID && r.Emoji == emoji {
			return true
		}
	}
	return false
}

// GroupReactions folds a flat reaction list into per-emoji aggregates,
// preserving first-seen emoji order.
func GroupReactions(rs []Reaction) []ReactionGroup {
	var order []string
	byEmoji := map[string]*ReactionGroup{}
	for _, r := range rs {
		g, ok := byEmoji[r.Emoji]
		if !ok {
			g = &ReactionGroup{Emoji: r.Emoji}
			byEmoji[r.Emoji] = g
			order = append(order, r.Emoji)
		}
		g.Count++
		g.Users = append(g.Users, r.UserID)
	}
	out := make([]ReactionGroup, 0, len(order))
	for _, e := range order {
		out = append(out, *byEmoji[e])
	}
	return out
}
