package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Pool defaults. The original design fanned every event out into its own
// goroutine with no bound; a fixed pool keeps the no-ordering contract while
// adding backpressure ahead of the provider.
const (
	DefaultWorkers   = 8
	DefaultQueueSize = 64
)

// Pipeline runs admitted events through resolve → lookup → dispatch on a
// fixed-size worker pool. Events are independent: no ordering is guaranteed
// across them, and none is needed — a reordered push is harmless.
type Pipeline struct {
	filter     *StalenessFilter
	resolver   *RecipientResolver
	lookup     *TokenLookup
	dispatcher *Dispatcher
	logger     *slog.Logger

	events  chan Event
	workers int
	wg      sync.WaitGroup
}

// NewPipeline assembles the stages. Non-positive workers or queueSize fall
// back to the defaults.
func NewPipeline(filter *StalenessFilter, resolver *RecipientResolver, lookup *TokenLookup, dispatcher *Dispatcher, workers, queueSize int, logger *slog.Logger) *Pipeline {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Pipeline{
		filter:     filter,
		resolver:   resolver,
		lookup:     lookup,
		dispatcher: dispatcher,
		logger:     logger.With("component", "pipeline"),
		events:     make(chan Event, queueSize),
		workers:    workers,
	}
}

// Start launches the worker pool and blocks until ctx is cancelled and all
// workers have drained. Intended to be called with `go`.
func (p *Pipeline) Start(ctx context.Context) {
	p.logger.Info("Pipeline workers started", "workers", p.workers)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case ev := <-p.events:
					p.process(ctx, ev)
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	p.wg.Wait()
	p.logger.Info("Pipeline workers stopped")
}

// Submit filters an event and, when admitted, queues it for processing.
// Blocks when the queue is full, which backpressures the event source.
// Returns whether the event was admitted.
func (p *Pipeline) Submit(ctx context.Context, ev Event) bool {
	if !p.filter.Admit(ev) {
		return false
	}
	select {
	case p.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// process runs one admitted event to completion. Every failure here is
// per-event recoverable: it is logged and the event abandoned, the
// subscription keeps serving.
func (p *Pipeline) process(ctx context.Context, ev Event) {
	logger := p.logger.With(
		"event_id", uuid.NewString(),
		"chat_id", ev.ChatID,
		"message_id", ev.Message.ID,
	)
	logger.Info("New message", "sender", ev.Message.DisplayName)

	recipients, err := p.resolver.Resolve(ctx, ev.ChatID, ev.Message.SenderID)
	if err != nil {
		if errors.Is(err, ErrChatNotFound) {
			logger.Warn("Chat not found, abandoning event")
		} else {
			logger.Error("Recipient resolution failed", "error", err)
		}
		return
	}
	if len(recipients) == 0 {
		logger.Info("No recipients")
		return
	}

	tokens := p.lookup.LookupTokens(ctx, recipients)
	if len(tokens) == 0 {
		logger.Info("No reachable devices", "recipients", len(recipients))
		return
	}

	report, err := p.dispatcher.Dispatch(ctx, tokens, ev.Message.DisplayName, PushBody)
	if err != nil {
		logger.Error("Dispatch failed",
			"recipients", len(recipients), "tokens", len(tokens), "error", err)
		return
	}
	logger.Info("Notifications dispatched",
		"success", report.SuccessCount, "failed", report.FailureCount)
}
