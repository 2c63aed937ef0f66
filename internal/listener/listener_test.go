package listener

import (
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"

	"chat-relay/internal/relay"
)

func TestDecodeMessage(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := decodeMessage("m1", map[string]interface{}{
		"uid":         "alice",
		"displayName": "Alice",
		"body":        "ciphertext",
		"createdAt":   created,
	})

	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "alice", msg.SenderID)
	assert.Equal(t, "Alice", msg.DisplayName)
	assert.Equal(t, created, msg.CreatedAt)
}

func TestDecodeMessage_ToleratesMissingAndMistypedFields(t *testing.T) {
	// A message with a broken createdAt must still become an event; the
	// filter admits zero timestamps rather than suppressing the message.
	msg := decodeMessage("m2", map[string]interface{}{
		"uid":       42, // wrong type
		"createdAt": "yesterday",
	})

	assert.Equal(t, "m2", msg.ID)
	assert.Empty(t, msg.SenderID)
	assert.True(t, msg.CreatedAt.IsZero())

	msg = decodeMessage("m3", map[string]interface{}{})
	assert.True(t, msg.CreatedAt.IsZero())
}

func TestChangeKind(t *testing.T) {
	assert.Equal(t, relay.ChangeAdded, changeKind(firestore.DocumentAdded))
	assert.Equal(t, relay.ChangeModified, changeKind(firestore.DocumentModified))
	assert.Equal(t, relay.ChangeRemoved, changeKind(firestore.DocumentRemoved))
}
