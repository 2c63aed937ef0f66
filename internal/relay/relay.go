// Package relay implements the notification fan-out pipeline: a change event
// for a newly created chat message is filtered for staleness, resolved to its
// recipients, mapped to registered device tokens, and dispatched as a single
// FCM multicast push.
//
// Pipeline: admit → resolve recipients → look up tokens → dispatch → report.
// Message bodies are never transmitted; the push carries a fixed placeholder.
package relay

import (
	"context"
	"errors"
	"time"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// PushBody is the only body ever sent. Message content is encrypted
	// end to end and cannot be included in the clear.
	PushBody = "New Message 🔒"

	// FallbackTitle is used when the sender has no display name.
	FallbackTitle = "New message"

	// fcmBatchLimit is the provider's maximum tokens per multicast call.
	fcmBatchLimit = 500

	// tokenSuffixLen is how many trailing characters of a device token are
	// kept when logging. Full tokens are credentials and never logged.
	tokenSuffixLen = 6
)

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrNotFound is returned by stores for a missing document.
	ErrNotFound = errors.New("not found")

	// ErrChatNotFound is returned by the resolver when the message's chat
	// record does not exist. Non-fatal: the event is abandoned, the
	// subscription keeps running.
	ErrChatNotFound = errors.New("chat not found")
)

// --------------------------------------------------------------------------
// Change events
// --------------------------------------------------------------------------

// ChangeKind tags a document change event.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

// Message is the snapshot of a chat message document. Created by an upstream
// writer; read-only here. Body is opaque ciphertext and is never inspected.
type Message struct {
	ID          string
	SenderID    string
	DisplayName string
	CreatedAt   time.Time
	Body        string
}

// Event is a single change observed on a messages sub-collection, paired
// with the owning chat's identifier.
type Event struct {
	Kind    ChangeKind
	ChatID  string
	Message Message
}

// --------------------------------------------------------------------------
// Store records and interfaces
// --------------------------------------------------------------------------

// Chat is the participant roster of a chat. Externally owned, read-only.
type Chat struct {
	ID           string
	Participants []string
}

// ActiveUser is a device registration record. An empty FCMToken means the
// user has no reachable device, which is a normal state, not an error.
type ActiveUser struct {
	UserID      string
	DisplayName string
	FCMToken    string
}

// ChatStore fetches chat records by id. Returns ErrNotFound for a missing
// chat.
type ChatStore interface {
	Chat(ctx context.Context, id string) (*Chat, error)
}

// UserStore fetches device registration records by user id. Returns
// ErrNotFound for a user with no registration record.
type UserStore interface {
	User(ctx context.Context, id string) (*ActiveUser, error)
}

// RedactToken returns the trailing characters of a device token for logging
// and display. Full tokens are credentials and are never printed.
func RedactToken(token string) string {
	if len(token) <= tokenSuffixLen {
		return "…" + token
	}
	return "…" + token[len(token)-tokenSuffixLen:]
}
