package roster

import "errors"

// Guard rejections. These are business-rule violations: expected, recoverable
// at the caller's boundary, and never preceded by a partial write.
var (
	ErrCannotBeEmployed    = errors.New("cannot be employed in current status")
	ErrCannotBeReleased    = errors.New("cannot be released in current status")
	ErrCannotBeSuspended   = errors.New("cannot be suspended in current status")
	ErrCannotBeReinstated  = errors.New("cannot be reinstated in current status")
	ErrCannotBeInjured     = errors.New("cannot be injured in current status")
	ErrCannotBeHealed      = errors.New("cannot be healed in current status")
	ErrCannotBeRetired     = errors.New("cannot be retired in current status")
	ErrCannotBeUnretired   = errors.New("cannot be unretired in current status")
	ErrCannotBeActivated   = errors.New("cannot be activated in current status")
	ErrCannotBeDeactivated = errors.New("cannot be deactivated in current status")
	ErrAlreadyMember       = errors.New("already has an open membership")
	ErrNotMember           = errors.New("no open membership to leave")
)

// Period-store invariant violations. The guard should make these unreachable;
// hitting one means a programming or data-integrity fault and the whole
// request is aborted.
var (
	ErrOpenPeriodExists   = errors.New("an open period of this kind already exists")
	ErrNoOpenPeriod       = errors.New("no open period of this kind")
	ErrInvalidPeriodRange = errors.New("period end precedes its start")
)

// Lookup and input errors.
var (
	ErrNotFound       = errors.New("roster entity not found")
	ErrKindNotTracked = errors.New("period kind not tracked for this entity family")
	ErrNameRequired   = errors.New("entity name is required")
)

var guardErrors = []error{
	ErrCannotBeEmployed,
	ErrCannotBeReleased,
	ErrCannotBeSuspended,
	ErrCannotBeReinstated,
	ErrCannotBeInjured,
	ErrCannotBeHealed,
	ErrCannotBeRetired,
	ErrCannotBeUnretired,
	ErrCannotBeActivated,
	ErrCannotBeDeactivated,
	ErrAlreadyMember,
	ErrNotMember,
}

// IsGuardRejection reports whether err is an expected transition rejection,
// as opposed to an invariant fault.
func IsGuardRejection(err error) bool {
	for _, g := range guardErrors {
		if errors.Is(err, g) {
			return true
		}
	}
	return false
}

// IsInvariantFault reports whether err indicates corrupted period state.
func IsInvariantFault(err error) bool {
	return errors.Is(err, ErrOpenPeriodExists) ||
		errors.Is(err, ErrNoOpenPeriod) ||
		errors.Is(err, ErrInvalidPeriodRange)
}
