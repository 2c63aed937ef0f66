package relay

import (
	"log/slog"
	"time"
)

// Default staleness windows. The grace window widens the subscription's
// lower time bound so messages created in the race between process start and
// subscription establishment are not missed; the max age bounds how old an
// admitted message may be, so a backlog replayed after an outage does not
// turn into a notification storm.
const (
	DefaultGraceWindow   = 60 * time.Second
	DefaultMaxMessageAge = 90 * time.Second
)

// StalenessFilter guards the pipeline. It admits only insert events whose
// message timestamp falls inside the service's staleness window.
//
// Boundary policy: an event is admitted when its age is strictly less than
// the max age (age >= maxAge drops), and when createdAt is strictly after
// the lower bound. A missing (zero) createdAt always admits: the absence of
// a timestamp must never silently suppress a legitimate new message.
type StalenessFilter struct {
	start  time.Time
	grace  time.Duration
	maxAge time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewStalenessFilter captures the service start instant as the admission
// threshold shared by all events. Non-positive windows fall back to the
// defaults.
func NewStalenessFilter(start time.Time, grace, maxAge time.Duration, logger *slog.Logger) *StalenessFilter {
	if grace <= 0 {
		grace = DefaultGraceWindow
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxMessageAge
	}
	return &StalenessFilter{
		start:  start,
		grace:  grace,
		maxAge: maxAge,
		now:    time.Now,
		logger: logger.With("component", "filter"),
	}
}

// LowerBound is the subscription-level time filter: the event source must
// only deliver messages created strictly after this instant.
func (f *StalenessFilter) LowerBound() time.Time {
	return f.start.Add(-f.grace)
}

// Admit reports whether an event should enter the pipeline.
func (f *StalenessFilter) Admit(ev Event) bool {
	if ev.Kind != ChangeAdded {
		return false
	}

	created := ev.Message.CreatedAt
	if created.IsZero() {
		f.logger.Warn("Message has no createdAt, admitting",
			"chat_id", ev.ChatID, "message_id", ev.Message.ID)
		return true
	}

	// Re-check the subscription bound; the source applies it too, but a
	// restarted stream re-anchors on the original bound and this keeps the
	// contract independent of the source.
	if !created.After(f.LowerBound()) {
		f.logger.Info("Dropped message before start window",
			"chat_id", ev.ChatID, "message_id", ev.Message.ID,
			"created_at", created)
		return false
	}

	if age := f.now().Sub(created); age >= f.maxAge {
		f.logger.Info("Dropped stale message",
			"chat_id", ev.ChatID, "message_id", ev.Message.ID,
			"age", age, "max_age", f.maxAge)
		return false
	}

	return true
}
