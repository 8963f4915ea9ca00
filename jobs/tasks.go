package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeTransitionNotice fans out one notification per completed
	// roster transition.
	TaskTypeTransitionNotice = "roster:transition"
)

// TransitionNoticePayload carries the facts of one completed transition.
type TransitionNoticePayload struct {
	EntityID    string    `json:"entity_id"`
	EntityKind  string    `json:"entity_kind"`
	Transition  string    `json:"transition"`
	EffectiveAt time.Time `json:"effective_at"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewTransitionNoticeTask constructs an Asynq task.
func NewTransitionNoticeTask(payload TransitionNoticePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeTransitionNotice, data), nil
}

// HandleTransitionNoticeTask processes TaskTypeTransitionNotice tasks.
// Notification content and channels are deliberately outside the engine;
// subscribers hang off this handler.
func HandleTransitionNoticeTask(ctx context.Context, t *asynq.Task) error {
	var payload TransitionNoticePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	slog.Default().Info("roster transition notice",
		slog.String("entity_id", payload.EntityID),
		slog.String("entity_kind", payload.EntityKind),
		slog.String("transition", payload.Transition),
		slog.Time("effective_at", payload.EffectiveAt))
	return nil
}
