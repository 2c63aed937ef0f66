package relay

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatStore struct {
	chats map[string]*Chat
	err   error
}

func (s *fakeChatStore) Chat(_ context.Context, id string) (*Chat, error) {
	if s.err != nil {
		return nil, s.err
	}
	chat, ok := s.chats[id]
	if !ok {
		return nil, ErrNotFound
	}
	return chat, nil
}

func TestRecipientResolver_ExcludesSender(t *testing.T) {
	store := &fakeChatStore{chats: map[string]*Chat{
		"c1": {ID: "c1", Participants: []string{"alice", "bob", "carol"}},
	}}
	resolver := NewRecipientResolver(store, discardLogger())

	got, err := resolver.Resolve(context.Background(), "c1", "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, got)
}

func TestRecipientResolver_CollapsesDuplicates(t *testing.T) {
	store := &fakeChatStore{chats: map[string]*Chat{
		"c1": {ID: "c1", Participants: []string{"bob", "alice", "bob", "carol", "carol"}},
	}}
	resolver := NewRecipientResolver(store, discardLogger())

	got, err := resolver.Resolve(context.Background(), "c1", "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, got)
}

func TestRecipientResolver_ChatNotFound(t *testing.T) {
	resolver := NewRecipientResolver(&fakeChatStore{}, discardLogger())

	got, err := resolver.Resolve(context.Background(), "missing", "alice")
	require.ErrorIs(t, err, ErrChatNotFound)
	assert.Empty(t, got)
}

func TestRecipientResolver_EmptyChat(t *testing.T) {
	store := &fakeChatStore{chats: map[string]*Chat{
		"c1": {ID: "c1"},
	}}
	resolver := NewRecipientResolver(store, discardLogger())

	got, err := resolver.Resolve(context.Background(), "c1", "alice")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRecipientResolver_SenderOnlyChat(t *testing.T) {
	store := &fakeChatStore{chats: map[string]*Chat{
		"c1": {ID: "c1", Participants: []string{"alice", "alice"}},
	}}
	resolver := NewRecipientResolver(store, discardLogger())

	got, err := resolver.Resolve(context.Background(), "c1", "alice")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRecipientResolver_StoreErrorPropagates(t *testing.T) {
	storeErr := errors.New("store unavailable")
	resolver := NewRecipientResolver(&fakeChatStore{err: storeErr}, discardLogger())

	_, err := resolver.Resolve(context.Background(), "c1", "alice")
	require.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, ErrChatNotFound)
}
