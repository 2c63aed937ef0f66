package relay

import (
	"context"
	"errors"
	"log/slog"
)

// TokenLookup maps recipient ids to registered device tokens. Message bodies
// cannot be inspected, so it logs one line per recipient to keep the fan-out
// debuggable from logs alone.
type TokenLookup struct {
	users  UserStore
	logger *slog.Logger
}

// NewTokenLookup creates a lookup backed by the given user store.
func NewTokenLookup(users UserStore, logger *slog.Logger) *TokenLookup {
	return &TokenLookup{
		users:  users,
		logger: logger.With("component", "lookup"),
	}
}

// LookupTokens returns the device tokens of the recipients that have one,
// preserving the input order. Recipients without a registration record or
// without a token are skipped silently. A store failure for one recipient is
// logged and skipped; it never aborts the lookups for the rest.
func (l *TokenLookup) LookupTokens(ctx context.Context, recipientIDs []string) []string {
	tokens := make([]string, 0, len(recipientIDs))
	for _, uid := range recipientIDs {
		user, err := l.users.User(ctx, uid)
		switch {
		case errors.Is(err, ErrNotFound):
			l.logger.Info("Recipient has no registration record", "user_id", uid)
		case err != nil:
			l.logger.Warn("Token lookup failed, skipping recipient",
				"user_id", uid, "error", err)
		case user.FCMToken == "":
			l.logger.Info("Recipient has no device token", "user_id", uid)
		default:
			l.logger.Info("Recipient token found",
				"user_id", uid, "token", RedactToken(user.FCMToken))
			tokens = append(tokens, user.FCMToken)
		}
	}
	return tokens
}
