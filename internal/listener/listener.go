// Package listener subscribes to message creation events across every chat's
// `messages` sub-collection via a Firestore collection-group snapshot query,
// scoped to `createdAt > lower bound` so the stream only carries messages
// newer than the service's admission window.
//
// The snapshot iterator surfaces terminal stream errors, so the listener
// restarts the query itself with exponential backoff, re-anchoring on the
// original lower bound; the staleness filter drops anything replayed from a
// long gap.
package listener

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"

	"chat-relay/internal/relay"
)

const (
	messagesCollection = "messages"
	createdAtField     = "createdAt"

	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// Start listens for message changes and submits them to the pipeline. It
// reconnects automatically on stream loss. Blocks until ctx is cancelled.
// Intended to be called with `go`.
func Start(ctx context.Context, client *firestore.Client, pipe *relay.Pipeline, lowerBound time.Time, logger *slog.Logger) {
	logger = logger.With("component", "listener")
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, client, pipe, lowerBound, logger)
		if ctx.Err() != nil {
			logger.Info("Message listener stopped (context cancelled)")
			return
		}

		logger.Error("Message stream disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single snapshot stream. Returns when the stream breaks
// or the context is cancelled.
func listenLoop(ctx context.Context, client *firestore.Client, pipe *relay.Pipeline, lowerBound time.Time, logger *slog.Logger) error {
	it := client.CollectionGroup(messagesCollection).
		Where(createdAtField, ">", lowerBound).
		Snapshots(ctx)
	defer it.Stop()

	logger.Info("Listening for new messages", "since", lowerBound)

	for {
		snap, err := it.Next()
		if err != nil {
			return fmt.Errorf("next snapshot: %w", err)
		}

		for _, change := range snap.Changes {
			ev, err := toEvent(change)
			if err != nil {
				logger.Warn("Skipping malformed change",
					"path", change.Doc.Ref.Path, "error", err)
				continue
			}
			pipe.Submit(ctx, ev)
		}
	}
}

// toEvent converts a Firestore document change into a pipeline event. The
// owning chat is the grandparent of the message document
// (chats/{chat}/messages/{message}).
func toEvent(change firestore.DocumentChange) (relay.Event, error) {
	chatRef := change.Doc.Ref.Parent.Parent
	if chatRef == nil {
		return relay.Event{}, fmt.Errorf("message %s has no parent chat", change.Doc.Ref.ID)
	}

	return relay.Event{
		Kind:    changeKind(change.Kind),
		ChatID:  chatRef.ID,
		Message: decodeMessage(change.Doc.Ref.ID, change.Doc.Data()),
	}, nil
}

func changeKind(kind firestore.DocumentChangeKind) relay.ChangeKind {
	switch kind {
	case firestore.DocumentAdded:
		return relay.ChangeAdded
	case firestore.DocumentModified:
		return relay.ChangeModified
	default:
		return relay.ChangeRemoved
	}
}

// decodeMessage tolerantly extracts message fields from raw document data.
// Missing or mistyped fields decode to zero values rather than failing the
// event: a message with a broken createdAt must still reach the filter,
// which admits it (see the filter's boundary policy).
func decodeMessage(id string, data map[string]interface{}) relay.Message {
	msg := relay.Message{ID: id}
	msg.SenderID, _ = data["uid"].(string)
	msg.DisplayName, _ = data["displayName"].(string)
	msg.Body, _ = data["body"].(string)
	if t, ok := data[createdAtField].(time.Time); ok {
		msg.CreatedAt = t
	}
	return msg
}
