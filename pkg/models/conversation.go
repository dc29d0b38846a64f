package models

import "strings"

// ConversationKey addresses one direct-chat conversation in the local
// cache. TopicID is optional.
type ConversationKey struct {
	LocalUserID   string `json:"local_user_id"`
	CounterpartID string `json:"counterpart_id"`
	TopicID       string `json:"topic_id,omitempty"`
}

// String renders the key in its storage form. Components are joined with
// '|', which is rejected in IDs by validation upstream.
func (k ConversationKey) String() string {
	if k.TopicID == "" {
		return k.LocalUserID + "|" + k.CounterpartID
	}
	return k.LocalUserID + "|" + k.CounterpartID + "|" + k.TopicID
}

// ParseConversationKey is the inverse of ConversationKey.String.
func ParseConversationKey(s string) (ConversationKey, bool) {
	parts := strings.Split(s, "|")
	switch len(parts) {
	case 2:
		return ConversationKey{LocalUserID: parts[0], CounterpartID: parts[1]}, true
	case 3:
		return ConversationKey{LocalUserID: parts[0], CounterpartID: parts[1], TopicID: parts[2]}, true
	}
	return ConversationKey{}, false
}

// Conversation is the direct-chat index record. A conversation becomes
// visible in listings only once it has at least one exchanged message.
type Conversation struct {
	Key           ConversationKey `json:"key"`
	LastMessage   *Message        `json:"last_message,omitempty"`
	LastMessageTS int64           `json:"last_message_ts,omitempty"`
	Unread        int             `json:"unread,omitempty"`
	CreatedTS     int64           `json:"created_ts,omitempty"`
}

// Visible reports whether the conversation should appear in listings.
func (c *Conversation) Visible() bool { return c.LastMessage != nil }
