package roster

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PeriodStore is the period query/mutation contract of the engine. All writes
// are durable through the backing repository; reads issued through the same
// transaction observe earlier writes of that transaction.
type PeriodStore interface {
	// OpenPeriod starts a new period of the kind. Fails with
	// ErrOpenPeriodExists when an unended period of that kind already exists.
	OpenPeriod(ctx context.Context, ownerID uuid.UUID, kind PeriodKind, startedAt time.Time, groupID *uuid.UUID) (Period, error)
	// ClosePeriod ends the unended period of the kind. Fails with
	// ErrNoOpenPeriod when none exists and ErrInvalidPeriodRange when the end
	// would precede the period's start.
	ClosePeriod(ctx context.Context, ownerID uuid.UUID, kind PeriodKind, endedAt time.Time) (Period, error)
	// DiscardScheduledPeriod removes an unended period whose start lies
	// after the given instant. A scheduled period never took effect, so this
	// is the engine's only physical delete (undoing a creation that is being
	// replaced within the same action). Fails with ErrNoOpenPeriod when no
	// such period exists.
	DiscardScheduledPeriod(ctx context.Context, ownerID uuid.UUID, kind PeriodKind, after time.Time) error
	// CurrentPeriod returns the unended period of the kind, or nil.
	CurrentPeriod(ctx context.Context, ownerID uuid.UUID, kind PeriodKind) (*Period, error)
	// LatestClosedPeriod returns the most recently ended period, or nil.
	LatestClosedPeriod(ctx context.Context, ownerID uuid.UUID, kind PeriodKind) (*Period, error)
	// FirstPeriod returns the chronologically earliest period, or nil.
	FirstPeriod(ctx context.Context, ownerID uuid.UUID, kind PeriodKind) (*Period, error)
	// PeriodHistory returns all periods of the kind, oldest first.
	PeriodHistory(ctx context.Context, ownerID uuid.UUID, kind PeriodKind) ([]Period, error)
	// PeriodSnapshot loads the resolver input for the given kinds in one read.
	PeriodSnapshot(ctx context.Context, ownerID uuid.UUID, kinds []PeriodKind) (Snapshot, error)
}

// EntityStore is the entity persistence contract.
type EntityStore interface {
	CreateEntity(ctx context.Context, entity Entity) (Entity, error)
	GetEntity(ctx context.Context, id uuid.UUID) (*Entity, error)
	ListEntities(ctx context.Context, filter ListFilter) ([]Entity, int, error)
	// SoftDeleteEntity marks the entity deleted; period history is retained
	// so the entity can be restored.
	SoftDeleteEntity(ctx context.Context, id uuid.UUID, at time.Time) error
	RestoreEntity(ctx context.Context, id uuid.UUID) error
}

// TxStore is the store surface available inside one orchestration.
type TxStore interface {
	PeriodStore
	EntityStore
}

// Store is the full repository contract the orchestrator depends on. Every
// action runs its mutations inside a single WithTx unit so either all period
// operations persist or none do.
type Store interface {
	TxStore
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error
}

// ListFilter narrows and pages entity listings.
type ListFilter struct {
	Kind           EntityKind
	IncludeDeleted bool
	Limit          int
	Offset         int
}
