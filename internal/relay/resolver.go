package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
)

// RecipientResolver turns a chat id and a sender id into the set of users to
// notify: the chat's participants minus the sender, deduplicated.
type RecipientResolver struct {
	chats  ChatStore
	logger *slog.Logger
}

// NewRecipientResolver creates a resolver backed by the given chat store.
func NewRecipientResolver(chats ChatStore, logger *slog.Logger) *RecipientResolver {
	return &RecipientResolver{
		chats:  chats,
		logger: logger.With("component", "resolver"),
	}
}

// Resolve returns the recipients of a message sent to chatID by senderID, in
// stored participant order with duplicates collapsed. A missing chat returns
// ErrChatNotFound; an empty chat returns an empty slice without error.
func (r *RecipientResolver) Resolve(ctx context.Context, chatID, senderID string) ([]string, error) {
	chat, err := r.chats.Chat(ctx, chatID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrChatNotFound, chatID)
		}
		return nil, fmt.Errorf("fetch chat %s: %w", chatID, err)
	}

	recipients := lo.Uniq(chat.Participants)
	recipients = lo.Without(recipients, senderID)
	return recipients, nil
}
