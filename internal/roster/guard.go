package roster

// Transition identifies one requested state change.
type Transition string

const (
	TransitionEmploy     Transition = "EMPLOY"
	TransitionRelease    Transition = "RELEASE"
	TransitionSuspend    Transition = "SUSPEND"
	TransitionReinstate  Transition = "REINSTATE"
	TransitionInjure     Transition = "INJURE"
	TransitionHeal       Transition = "HEAL"
	TransitionRetire     Transition = "RETIRE"
	TransitionUnretire   Transition = "UNRETIRE"
	TransitionActivate   Transition = "ACTIVATE"
	TransitionDeactivate Transition = "DEACTIVATE"
	TransitionJoin       Transition = "JOIN"
	TransitionLeave      Transition = "LEAVE"
)

// guardRule pairs the statuses a transition is legal from with the typed
// rejection returned otherwise.
type guardRule struct {
	legal  []Status
	reject error
}

var guardRules = map[Family]map[Transition]guardRule{
	FamilyEmployment: {
		TransitionEmploy:    {legal: []Status{StatusUnemployed, StatusReleased, StatusFutureEmployment, StatusRetired}, reject: ErrCannotBeEmployed},
		TransitionRelease:   {legal: []Status{StatusEmployed, StatusSuspended, StatusInjured}, reject: ErrCannotBeReleased},
		TransitionSuspend:   {legal: []Status{StatusEmployed}, reject: ErrCannotBeSuspended},
		TransitionReinstate: {legal: []Status{StatusSuspended}, reject: ErrCannotBeReinstated},
		TransitionInjure:    {legal: []Status{StatusEmployed}, reject: ErrCannotBeInjured},
		TransitionHeal:      {legal: []Status{StatusInjured}, reject: ErrCannotBeHealed},
		TransitionRetire:    {legal: []Status{StatusEmployed, StatusSuspended, StatusInjured, StatusReleased}, reject: ErrCannotBeRetired},
		TransitionUnretire:  {legal: []Status{StatusRetired}, reject: ErrCannotBeUnretired},
	},
	FamilyActivation: {
		TransitionActivate:   {legal: []Status{StatusUnactivated, StatusInactive, StatusRetired}, reject: ErrCannotBeActivated},
		TransitionDeactivate: {legal: []Status{StatusActive}, reject: ErrCannotBeDeactivated},
		TransitionRetire:     {legal: []Status{StatusActive, StatusInactive}, reject: ErrCannotBeRetired},
		TransitionUnretire:   {legal: []Status{StatusRetired}, reject: ErrCannotBeUnretired},
	},
}

// CheckTransition evaluates the guard for a transition against the resolved
// status. It inspects, never mutates: a nil return permits the transition and
// a non-nil return is the typed rejection the caller must surface unchanged.
func CheckTransition(family Family, tr Transition, status Status) error {
	rules, ok := guardRules[family]
	if !ok {
		return ErrKindNotTracked
	}
	rule, ok := rules[tr]
	if !ok {
		return ErrKindNotTracked
	}
	for _, s := range rule.legal {
		if s == status {
			return nil
		}
	}
	return rule.reject
}

// CheckJoin guards membership joins on raw period state: an entity holds at
// most one open membership at a time.
func CheckJoin(snap Snapshot) error {
	if st := snap.kind(KindMembership); st.Unended != nil {
		return ErrAlreadyMember
	}
	return nil
}

// CheckLeave guards membership leaves.
func CheckLeave(snap Snapshot) error {
	if st := snap.kind(KindMembership); st.Unended == nil {
		return ErrNotMember
	}
	return nil
}
