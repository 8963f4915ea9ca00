package roster

import "time"

// ============================================================================
// PERIOD SNAPSHOT
// ============================================================================

// KindState is everything the resolver needs to know about one period kind:
// the unended period if one exists, and whether any period was ever recorded.
type KindState struct {
	// Unended is the period with no end instant, if any. Its start may lie
	// in the future (scheduled but not yet in effect).
	Unended *Period
	// HasAny reports whether at least one period of this kind exists.
	HasAny bool
	// First is the chronologically earliest period, used for debut lookups.
	First *Period
}

// Snapshot captures the per-kind state of one entity at read time.
type Snapshot map[PeriodKind]KindState

func (s Snapshot) kind(k PeriodKind) KindState {
	return s[k]
}

// openAt returns the unended period of the kind when it is in effect at the
// given instant. A scheduled period whose start lies after the instant is not
// yet open.
func (s Snapshot) openAt(k PeriodKind, at time.Time) *Period {
	st := s.kind(k)
	if st.Unended == nil || st.Unended.StartsAfter(at) {
		return nil
	}
	return st.Unended
}

// ============================================================================
// STATUS RESOLUTION
// ============================================================================

// Resolve derives the single current status of an entity from its period
// snapshot. First match in the family's precedence order wins.
//
// Precedence is deliberate: suspension and injury outrank employment because
// an employed-but-suspended entity must not look bookable, and retirement
// outranks everything because it is terminal until explicitly reversed.
func Resolve(family Family, snap Snapshot, now time.Time) Status {
	switch family {
	case FamilyActivation:
		return resolveActivation(snap, now)
	default:
		return resolveEmployment(snap, now)
	}
}

func resolveEmployment(snap Snapshot, now time.Time) Status {
	if snap.openAt(KindRetirement, now) != nil {
		return StatusRetired
	}
	if snap.openAt(KindSuspension, now) != nil {
		return StatusSuspended
	}
	if snap.openAt(KindInjury, now) != nil {
		return StatusInjured
	}
	if snap.openAt(KindEmployment, now) != nil {
		return StatusEmployed
	}
	emp := snap.kind(KindEmployment)
	if emp.Unended != nil && emp.Unended.StartsAfter(now) {
		return StatusFutureEmployment
	}
	if emp.HasAny {
		return StatusReleased
	}
	return StatusUnemployed
}

func resolveActivation(snap Snapshot, now time.Time) Status {
	if snap.openAt(KindRetirement, now) != nil {
		return StatusRetired
	}
	if snap.openAt(KindActivity, now) != nil {
		return StatusActive
	}
	if snap.kind(KindActivity).HasAny {
		return StatusInactive
	}
	return StatusUnactivated
}

// ============================================================================
// HISTORICAL RECONSTRUCTION
// ============================================================================

// SnapshotAt rebuilds the snapshot as it stood at a past instant from full
// period histories, so status can be resolved as of any historical moment.
// Periods that had not started and periods already closed by the instant
// count toward HasAny only if they had begun.
func SnapshotAt(history map[PeriodKind][]Period, at time.Time) Snapshot {
	snap := make(Snapshot, len(history))
	for kind, periods := range history {
		var st KindState
		var scheduled *Period
		for i := range periods {
			p := periods[i]
			if !p.StartedAt.After(at) {
				st.HasAny = true
				if st.First == nil || p.StartedAt.Before(st.First.StartedAt) {
					st.First = &periods[i]
				}
			} else if scheduled == nil || p.StartedAt.Before(scheduled.StartedAt) {
				scheduled = &periods[i]
			}
			if p.Covers(at) {
				st.Unended = &periods[i]
			}
		}
		if st.Unended == nil {
			// A period that had not yet begun counts as scheduled, so the
			// resolver can still report future employment for that moment.
			st.Unended = scheduled
		}
		snap[kind] = st
	}
	return snap
}

// ResolveAt derives the status an entity held at a past instant.
func ResolveAt(family Family, history map[PeriodKind][]Period, at time.Time) Status {
	return Resolve(family, SnapshotAt(history, at), at)
}
