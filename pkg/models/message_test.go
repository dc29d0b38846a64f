package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuthorAcceptsBothWireShapes(t *testing.T) {
	var m Message
	require.NoError(t, json.Unmarshal([]byte(`{"id":"m1","author":"u42","body":"hi"}`), &m))
	require.Equal(t, "u42", m.Author.ID)

	var m2 Message
	require.NoError(t, json.Unmarshal([]byte(`{"id":"m2","author":{"id":"u42","username":"ann"},"body":"hi"}`), &m2))
	require.Equal(t, "u42", m2.Author.ID)
	require.Equal(t, "ann", m2.Author.Username)
}

func TestTempIdentity(t *testing.T) {
	id := NewTempID()
	require.True(t, IsTempID(id))
	require.NotEqual(t, id, NewTempID(), "temp ids must be unique")

	m := Message{ID: id}
	require.False(t, m.Confirmed())
	m.ID = "srv-1"
	require.True(t, m.Confirmed())
	require.False(t, (&Message{}).Confirmed())
}

func TestGroupReactionsAggregatesPerEmoji(t *testing.T) {
	groups := GroupReactions([]Reaction{
		{UserID: "a", Emoji: "👍"},
		{UserID: "b", Emoji: "❤️"},
		{UserID: "c", Emoji: "👍"},
	})
	require.Len(t, groups, 2)
	// first-seen order
	require.Equal(t, "👍", groups[0].Emoji)
	require.Equal(t, 2, groups[0].Count)
	require.Equal(t, []string{"a", "c"}, groups[0].Users)
	require.Equal(t, 1, groups[1].Count)
}

func TestHasReaction(t *testing.T) {
	m := Message{Reactions: []Reaction{{UserID: "a", Emoji: "👍"}}}
	require.True(t, m.HasReaction("a", "👍"))
	require.False(t, m.HasReaction("a", "❤️"))
	require.False(t, m.HasReaction("b", "👍"))
}

func TestConversationKeyRoundTrip(t *testing.T) {
	key := ConversationKey{LocalUserID: "me", CounterpartID: "alice", TopicID: "plans"}
	parsed, ok := ParseConversationKey(key.String())
	require.True(t, ok)
	require.Equal(t, key, parsed)

	_, ok = ParseConversationKey("garbage")
	require.False(t, ok)
}

func TestConversationVisibility(t *testing.T) {
	c := Conversation{Key: ConversationKey{LocalUserID: "me", CounterpartID: "alice"}}
	require.False(t, c.Visible(), "no exchanged message yet")
	c.LastMessage = &Message{ID: "m1", Body: "hi"}
	require.True(t, c.Visible())
}
