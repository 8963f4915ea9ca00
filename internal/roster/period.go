package roster

import (
	"time"

	"github.com/google/uuid"
)

// PeriodKind identifies one status dimension tracked per entity.
type PeriodKind string

const (
	KindEmployment PeriodKind = "EMPLOYMENT"
	KindSuspension PeriodKind = "SUSPENSION"
	KindInjury     PeriodKind = "INJURY"
	KindRetirement PeriodKind = "RETIREMENT"
	KindActivity   PeriodKind = "ACTIVITY"
	KindMembership PeriodKind = "MEMBERSHIP"
)

// IsValid checks if the period kind is known.
func (k PeriodKind) IsValid() bool {
	switch k {
	case KindEmployment, KindSuspension, KindInjury, KindRetirement, KindActivity, KindMembership:
		return true
	default:
		return false
	}
}

// Period is one append-only row of a status dimension for one entity.
// A nil EndedAt means the period is currently in effect. Rows are never
// rewritten after creation except to set EndedAt once.
type Period struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	OwnerID   uuid.UUID  `json:"owner_id" db:"owner_id"`
	Kind      PeriodKind `json:"kind" db:"kind"`
	GroupID   *uuid.UUID `json:"group_id,omitempty" db:"group_id"`
	StartedAt time.Time  `json:"started_at" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// IsOpen reports whether the period has no end instant.
func (p Period) IsOpen() bool {
	return p.EndedAt == nil
}

// Covers reports whether the period was in effect at the given instant.
// An open period covers every instant at or after its start.
func (p Period) Covers(at time.Time) bool {
	if at.Before(p.StartedAt) {
		return false
	}
	return p.EndedAt == nil || at.Before(*p.EndedAt)
}

// StartsAfter reports whether the period begins strictly after the instant.
func (p Period) StartsAfter(at time.Time) bool {
	return p.StartedAt.After(at)
}
