// Package store provides Firestore-backed point lookups for the chat and
// device registration collections. Both collections are owned and mutated by
// the client apps; this service only ever reads them.
package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"chat-relay/internal/relay"
)

// Collection names, matching the client apps' schema.
const (
	chatsCollection = "chats"
	usersCollection = "active_users"
)

// Firestore implements relay.ChatStore and relay.UserStore.
type Firestore struct {
	client *firestore.Client
}

// New wraps a Firestore client.
func New(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

type chatDoc struct {
	Participants []string `firestore:"participants"`
}

type userDoc struct {
	Name     string `firestore:"name"`
	FCMToken string `firestore:"fcmToken"`
}

// Chat fetches a chat's participant roster. Returns relay.ErrNotFound for a
// missing chat document.
func (s *Firestore) Chat(ctx context.Context, id string) (*relay.Chat, error) {
	snap, err := s.client.Collection(chatsCollection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, relay.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chat %s: %w", id, err)
	}

	var doc chatDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode chat %s: %w", id, err)
	}
	return &relay.Chat{ID: snap.Ref.ID, Participants: doc.Participants}, nil
}

// User fetches a user's device registration record. Returns relay.ErrNotFound
// for a user that never registered.
func (s *Firestore) User(ctx context.Context, id string) (*relay.ActiveUser, error) {
	snap, err := s.client.Collection(usersCollection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, relay.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}

	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", id, err)
	}
	return &relay.ActiveUser{
		UserID:      snap.Ref.ID,
		DisplayName: doc.Name,
		FCMToken:    doc.FCMToken,
	}, nil
}
