package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"eventdesk/pkg/requestcontext"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByOwner(ctx context.Context, ownerID string) ([]Event, error)
}

// Sink receives a copy of every event for out-of-process consumers. Sinks
// are best-effort; a sink failure never fails the business operation.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Publisher captures structured audit events, persisting through the store
// and fanning out to optional sinks.
type Publisher struct {
	store  Store
	sinks  []Sink
	logger *slog.Logger
}

// NewPublisher constructs a Publisher. Sinks may be empty.
func NewPublisher(store Store, logger *slog.Logger, sinks ...Sink) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{store: store, sinks: sinks, logger: logger}
}

// Emit records one event. Store failures are returned; sink failures are
// only logged.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			p.logger.WarnContext(ctx, "audit sink publish failed",
				"action", event.Action,
				"error", err.Error(),
			)
		}
	}
	return nil
}

// List returns the owner's audit trail, newest first per store contract.
func (p *Publisher) List(ctx context.Context, ownerID string) ([]Event, error) {
	return p.store.ListByOwner(ctx, ownerID)
}
