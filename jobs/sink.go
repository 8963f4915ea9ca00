package jobs

import (
	"context"

	"github.com/ringside-hq/ringside/internal/roster"
)

// Sink publishes roster transition events as queue tasks. Implements
// roster.Sink; delivery to subscribers is the worker's concern.
type Sink struct {
	client *Client
}

// NewSink constructs a queue-backed event sink.
func NewSink(client *Client) *Sink {
	return &Sink{client: client}
}

// Publish enqueues one transition notice.
func (s *Sink) Publish(ctx context.Context, event roster.Event) error {
	_, err := s.client.EnqueueTransitionNotice(ctx, TransitionNoticePayload{
		EntityID:    event.EntityID.String(),
		EntityKind:  string(event.EntityKind),
		Transition:  string(event.Transition),
		EffectiveAt: event.EffectiveAt,
		OccurredAt:  event.OccurredAt,
	})
	return err
}
