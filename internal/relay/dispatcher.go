package relay

import (
	"context"
	"fmt"
	"log/slog"

	"firebase.google.com/go/v4/errorutils"
	"firebase.google.com/go/v4/messaging"
	"github.com/samber/lo"
	"golang.org/x/time/rate"
)

// MulticastSender is the slice of the FCM client the dispatcher uses.
// Satisfied by *messaging.Client.
type MulticastSender interface {
	SendEachForMulticast(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// TokenOutcome is the per-token result of a dispatch. Token holds only the
// redacted suffix.
type TokenOutcome struct {
	Token string
	OK    bool
	Code  string
}

// DispatchReport aggregates the outcomes of one dispatch, index-aligned with
// the tokens that were attempted.
type DispatchReport struct {
	SuccessCount int
	FailureCount int
	Outcomes     []TokenOutcome
}

// Dispatcher sends a notification to a set of device tokens as multicast
// requests, chunked at the provider's batch limit, with a rate limiter for
// backpressure against provider quotas.
//
// Delivery is best-effort: per-token failures are reported, never retried.
// Expired tokens are expected to be pruned by the registration lifecycle,
// which is external to this service.
type Dispatcher struct {
	client  MulticastSender
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher. A nil limiter disables rate limiting.
func NewDispatcher(client MulticastSender, limiter *rate.Limiter, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client:  client,
		limiter: limiter,
		logger:  logger.With("component", "dispatcher"),
	}
}

// Dispatch sends title/body to every token. An empty token slice is a no-op
// that performs no network call and returns an empty report. A request-level
// error aborts the remaining chunks and returns the partial report alongside
// the error.
func (d *Dispatcher) Dispatch(ctx context.Context, tokens []string, title, body string) (*DispatchReport, error) {
	report := &DispatchReport{}
	if len(tokens) == 0 {
		return report, nil
	}
	if title == "" {
		title = FallbackTitle
	}

	for _, batch := range lo.Chunk(tokens, fcmBatchLimit) {
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				return report, fmt.Errorf("rate limiter: %w", err)
			}
		}

		resp, err := d.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens: batch,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
		})
		if err != nil {
			return report, fmt.Errorf("multicast send: %w", err)
		}

		report.SuccessCount += resp.SuccessCount
		report.FailureCount += resp.FailureCount
		for i, r := range resp.Responses {
			outcome := TokenOutcome{Token: RedactToken(batch[i]), OK: r.Success}
			if !r.Success {
				outcome.Code = classifySendError(r.Error)
				d.logger.Warn("Token delivery failed",
					"token", outcome.Token, "code", outcome.Code)
			}
			report.Outcomes = append(report.Outcomes, outcome)
		}
	}

	return report, nil
}

// classifySendError maps a per-token FCM error to an operator-facing code.
func classifySendError(err error) string {
	switch {
	case err == nil:
		return ""
	case messaging.IsUnregistered(err):
		return "unregistered"
	case errorutils.IsInvalidArgument(err):
		return "invalid-argument"
	case messaging.IsQuotaExceeded(err):
		return "quota-exceeded"
	case messaging.IsSenderIDMismatch(err):
		return "sender-id-mismatch"
	case errorutils.IsUnavailable(err):
		return "unavailable"
	case errorutils.IsInternal(err):
		return "internal"
	default:
		return "unknown"
	}
}
