package roster

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Event describes one completed transition. Delivery is fire-and-forget:
// the orchestrator logs publish failures and never rolls back for them.
type Event struct {
	EntityID    uuid.UUID  `json:"entity_id"`
	EntityKind  EntityKind `json:"entity_kind"`
	Transition  Transition `json:"transition"`
	EffectiveAt time.Time  `json:"effective_at"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// Sink receives one event per completed transition. Implementations decide
// what notification, indexing or bookkeeping follows; the engine does not
// retry or await acknowledgement.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// LogSink writes events to the logger. Used in development and as the
// fallback when no queue is configured.
type LogSink struct {
	Logger *slog.Logger
}

// Publish logs the event.
func (s LogSink) Publish(_ context.Context, event Event) error {
	if s.Logger != nil {
		s.Logger.Info("roster transition",
			slog.String("entity_id", event.EntityID.String()),
			slog.String("entity_kind", string(event.EntityKind)),
			slog.String("transition", string(event.Transition)),
			slog.Time("effective_at", event.EffectiveAt))
	}
	return nil
}
