package relay

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeUserStore struct {
	users map[string]*ActiveUser
	errs  map[string]error
}

func (s *fakeUserStore) User(_ context.Context, id string) (*ActiveUser, error) {
	if err, ok := s.errs[id]; ok {
		return nil, err
	}
	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return user, nil
}

func TestTokenLookup_SkipsRecipientsWithoutTokens(t *testing.T) {
	store := &fakeUserStore{users: map[string]*ActiveUser{
		"bob":   {UserID: "bob", DisplayName: "Bob", FCMToken: "T_B"},
		"carol": {UserID: "carol", DisplayName: "Carol"}, // logged in, no device
		// dave has no registration record at all
	}}
	lookup := NewTokenLookup(store, discardLogger())

	got := lookup.LookupTokens(context.Background(), []string{"bob", "carol", "dave"})
	assert.Equal(t, []string{"T_B"}, got)
}

func TestTokenLookup_PreservesRecipientOrder(t *testing.T) {
	store := &fakeUserStore{users: map[string]*ActiveUser{
		"a": {UserID: "a", FCMToken: "T_A"},
		"b": {UserID: "b", FCMToken: "T_B"},
		"c": {UserID: "c", FCMToken: "T_C"},
	}}
	lookup := NewTokenLookup(store, discardLogger())

	got := lookup.LookupTokens(context.Background(), []string{"c", "a", "b"})
	assert.Equal(t, []string{"T_C", "T_A", "T_B"}, got)
}

func TestTokenLookup_IsolatesPerRecipientFailures(t *testing.T) {
	store := &fakeUserStore{
		users: map[string]*ActiveUser{
			"bob":   {UserID: "bob", FCMToken: "T_B"},
			"carol": {UserID: "carol", FCMToken: "T_C"},
		},
		errs: map[string]error{"flaky": errors.New("store unavailable")},
	}
	lookup := NewTokenLookup(store, discardLogger())

	// The failing recipient is skipped, not fatal for the others.
	got := lookup.LookupTokens(context.Background(), []string{"bob", "flaky", "carol"})
	assert.Equal(t, []string{"T_B", "T_C"}, got)
}

func TestTokenLookup_EmptyRecipients(t *testing.T) {
	lookup := NewTokenLookup(&fakeUserStore{}, discardLogger())
	assert.Empty(t, lookup.LookupTokens(context.Background(), nil))
}
