package roster

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ringside-hq/ringside/internal/shared"
)

// Auditor records completed transitions for the audit trail.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates roster transitions: it resolves status, evaluates the
// guard, and issues the ordered period operations for each action inside one
// transaction. Zero writes happen on a guard rejection.
type Service struct {
	store  Store
	sink   Sink
	cache  *StatusCache
	audit  Auditor
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a roster service.
func NewService(store Store, sink Sink, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = LogSink{Logger: logger}
	}
	return &Service{store: store, sink: sink, logger: logger, now: time.Now}
}

// SetStatusCache enables the redis status cache.
func (s *Service) SetStatusCache(cache *StatusCache) {
	s.cache = cache
}

// SetAuditor enables audit-trail recording.
func (s *Service) SetAuditor(audit Auditor) {
	s.audit = audit
}

// ============================================================================
// TRANSITIONS
// ============================================================================

// steps performs the period operations of one transition after the guard has
// accepted it. The snapshot reflects state immediately before any mutation.
type steps func(ctx context.Context, tx TxStore, entity *Entity, snap Snapshot, at time.Time) error

// clearBlockingPeriod removes the unended period of a blocking kind before a
// terminal close. A period already in effect closes at the effective instant;
// one whose start lies after it never took effect by then and is discarded,
// so no blocking kind stays open once the transition lands.
func clearBlockingPeriod(ctx context.Context, tx TxStore, ownerID uuid.UUID, kind PeriodKind, snap Snapshot, at time.Time) error {
	st := snap.kind(kind)
	if st.Unended == nil {
		return nil
	}
	if st.Unended.StartsAfter(at) {
		return tx.DiscardScheduledPeriod(ctx, ownerID, kind, at)
	}
	_, err := tx.ClosePeriod(ctx, ownerID, kind, at)
	return err
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, tr Transition, at time.Time, run steps) (*Entity, error) {
	if at.IsZero() {
		at = s.now()
	}
	var entity *Entity
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		e, err := tx.GetEntity(ctx, id)
		if err != nil {
			return err
		}
		if e.DeletedAt != nil {
			return ErrNotFound
		}
		family := e.Family()
		snap, err := tx.PeriodSnapshot(ctx, e.ID, family.Config().Kinds)
		if err != nil {
			return err
		}
		status := Resolve(family, snap, at)

		switch tr {
		case TransitionJoin:
			err = CheckJoin(snap)
		case TransitionLeave:
			err = CheckLeave(snap)
		default:
			err = CheckTransition(family, tr, status)
		}
		if err != nil {
			return err
		}

		if err := run(ctx, tx, e, snap, at); err != nil {
			return err
		}

		after, err := tx.PeriodSnapshot(ctx, e.ID, family.Config().Kinds)
		if err != nil {
			return err
		}
		e.Status = Resolve(family, after, at)
		entity = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, entity, tr, at)
	return entity, nil
}

// afterTransition handles post-commit side effects. None of them can fail the
// already committed action; failures are logged and dropped.
func (s *Service) afterTransition(ctx context.Context, entity *Entity, tr Transition, at time.Time) {
	if err := s.cache.Invalidate(ctx, entity.ID); err != nil {
		s.logger.Warn("invalidate status cache", slog.Any("error", err))
	}
	event := Event{
		EntityID:    entity.ID,
		EntityKind:  entity.Kind,
		Transition:  tr,
		EffectiveAt: at,
		OccurredAt:  s.now(),
	}
	if err := s.sink.Publish(ctx, event); err != nil {
		s.logger.Warn("publish transition event", slog.Any("error", err))
	}
	if s.audit != nil {
		log := shared.AuditLog{
			Action:   strings.ToLower(string(tr)),
			Entity:   string(entity.Kind),
			EntityID: entity.ID.String(),
			Meta:     map[string]any{"effective_at": at.Format(time.RFC3339)},
			At:       s.now(),
		}
		if err := s.audit.Record(ctx, log); err != nil {
			s.logger.Warn("record audit log", slog.Any("error", err))
		}
	}
}

// Employ puts an entity on the active roster. Employing out of retirement
// closes the retirement period first; employing over a scheduled future
// start discards the never-begun period and opens a fresh one.
func (s *Service) Employ(ctx context.Context, id uuid.UUID, effectiveAt time.Time) (*Entity, error) {
	return s.transition(ctx, id, TransitionEmploy, effectiveAt, func(ctx context.Context, tx TxStore, e *Entity, snap Snapshot, at time.Time) error {
		status := Resolve(e.Family(), snap, at)
		if status == StatusRetired {
			if _, err := tx.ClosePeriod(ctx, e.ID, KindRetirement, at); err != nil {
				return err
			}
		}
		if status == StatusFutureEmployment {
			if err := tx.DiscardScheduledPeriod(ctx, e.ID, KindEmployment, at); err != nil {
				return err
			}
		}
		_, err := tx.OpenPeriod(ctx, e.ID, KindEmployment, at, nil)
		return err
	})
}

// Release takes an entity off the roster. Unended suspension and injury
// periods clear first, forward-dated ones included, so the resolver can never
// observe a released-but-suspended composite.
func (s *Service) Release(ctx context.Context, id uuid.UUID, effectiveAt time.Time) (*Entity, error) {
	return s.transition(ctx, id, TransitionRelease, effectiveAt, func(ctx context.Context, tx TxStore, e *Entity, snap Snapshot, at time.Time) error {
		for _, kind := range []PeriodKind{KindSuspension, KindInjury} {
			if err := clearBlockingPeriod(ctx, tx, e.ID, kind, snap, at); err != nil {
				return err
			}
		}
		_, err := tx.ClosePeriod(ctx, e.ID, KindEmployment, at)
		return err
	})
}

// Suspend opens a suspension period.
func (s *Service) Suspend(ctx context.Context, id uuid.UUID, effectiveAt time.Time) (*Entity, error) {
	return s.transition(ctx, id, TransitionSuspend, effectiveAt, func(ctx context.Context, tx TxStore, e *Entity, _ Snapshot, at time.Time) error {
		_, err := tx.OpenPeriod(ctx, e.ID, KindSuspension, at, nil)
		return err
	})
}

// Reinstate closes the open suspension period.
func (s *Service) Reinstate(ctx context.Context, id uuid.UUID, effectiveAt time.Time) (*Entity, error) {
	return s.transition(ctx, id, TransitionReinstate, effectiveAt, func(ctx context.Context, tx TxStore, e *Entity, _ Snapshot, at time.Time) error {
		_, err := tx.ClosePeriod(ctx, e.ID, KindSuspension, at)
		return err
	})
}

// Injure opens an injury period.
func (s *Service) Injure(ctx context.Context, id uuid.UUID, effectiveAt time.Time) (*Entity, error) {
	return s.transition(ctx, id, TransitionInjure, effectiveAt, func(ctx context.Context, tx TxStore, e *Entity, _ Snapshot, at time.Time) error {
		_, err := tx.OpenPeriod(ctx, e.ID, KindInjury, at, nil)
		return err
	})
}

// Heal closes the open injury period.
func (s *Service) Heal(ctx context.Context, id uuid.UUID, effectiveAt time.Time) (*Entity, error) {
	return s.transition(ctx, id, TransitionHeal, effectiveAt, func(ctx context.Context, tx TxStore, e *Entity, _ Snapshot, at time.Time) error {
		_, err := tx.ClosePeriod(ctx, e.ID, KindInjury, at)
		return err
	})
}

// Retire closes every blocking period (suspension, injury, employment or
// activity) and opens a retirement period.
func (s *Service) Retire(ctx context.Context, id uuid.UUID, effectiveAt time.Time) (*Entity, error) {
	return s.transition(ctx, id, TransitionRetire, effectiveAt, func(ctx context.Context, tx TxStore, e *Entity, snap Snapshot, at time.Time) error {
		var blocking []PeriodKind
		if e.Family() == FamilyActivation {
			blocking = []PeriodKind{KindActivity}
		} else {
			blocking = []PeriodKind{KindSuspension, KindInjury, KindEmployment}
		}
		for _, kind := range blocking {
			if err := clearBlockingPeriod(ctx, tx, e.ID, kind, snap, at); err != nil {
				return err
			}
		}
		_, err := tx.OpenPeriod(ctx, e.ID, KindRetirement, at, nil)
		return err
	})
}

// Unretire closes the retirement period and reopens the kind the entity's
// family configures: employment-family entities rejoin the active roster,
// activation-family entities resume programming.
func (s *Service) Unretire(ctx context.Context, id uuid.UUID, effectiveAt time.Time) (*Entity, error) {
	return s.transition(ctx, id, TransitionUnretire, effectiveAt, func(ctx context.Context, tx TxStore, e *Entity, _ Snapshot, at time.Time) error {
		if _, err := tx.ClosePeriod(ctx, e.ID, KindRetirement, at); err != nil {
			return err
		}
		_, err := tx.OpenPeriod(ctx, e.ID, e.Family().Config().UnretireOpens, at, nil)
		return err
	})
}

// Activate brings a title or stable into programming. Activating out of
// retirement closes the retirement period first.
func (s *Service) Activate(ctx context.Context, id uuid.UUID, effectiveAt time.Time) (*Entity, error) {
	return s.transition(ctx, id, TransitionActivate, effectiveAt, func(ctx context.Context, tx TxStore, e *Entity, snap Snapshot, at time.Time) error {
		if Resolve(e.Family(), snap, at) == StatusRetired {
			if _, err := tx.ClosePeriod(ctx, e.ID, KindRetirement, at); err != nil {
				return err
			}
		}
		_, err := tx.OpenPeriod(ctx, e.ID, KindActivity, at, nil)
		return err
	})
}

// Deactivate pulls a title or stable from programming.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID, effectiveAt time.Time) (*Entity, error) {
	return s.transition(ctx, id, TransitionDeactivate, effectiveAt, func(ctx context.Context, tx TxStore, e *Entity, _ Snapshot, at time.Time) error {
		_, err := tx.ClosePeriod(ctx, e.ID, KindActivity, at)
		return err
	})
}

// Join opens a membership period tying the entity to a group. An entity
// holds at most one open membership.
func (s *Service) Join(ctx context.Context, id, groupID uuid.UUID, effectiveAt time.Time) (*Entity, error) {
	group, err := s.store.GetEntity(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.DeletedAt != nil {
		return nil, ErrNotFound
	}
	if group.Kind != EntityStable && group.Kind != EntityTagTeam {
		return nil, fmt.Errorf("%w: %s is not a joinable group", ErrKindNotTracked, group.Kind)
	}
	return s.transition(ctx, id, TransitionJoin, effectiveAt, func(ctx context.Context, tx TxStore, e *Entity, _ Snapshot, at time.Time) error {
		if !e.Family().Tracks(KindMembership) {
			return ErrKindNotTracked
		}
		_, err := tx.OpenPeriod(ctx, e.ID, KindMembership, at, &groupID)
		return err
	})
}

// Leave closes the entity's open membership period.
func (s *Service) Leave(ctx context.Context, id uuid.UUID, effectiveAt time.Time) (*Entity, error) {
	return s.transition(ctx, id, TransitionLeave, effectiveAt, func(ctx context.Context, tx TxStore, e *Entity, _ Snapshot, at time.Time) error {
		_, err := tx.ClosePeriod(ctx, e.ID, KindMembership, at)
		return err
	})
}

// ============================================================================
// ENTITY LIFECYCLE
// ============================================================================

// CreateParams describes a new roster entity. A non-nil StartAt opens the
// family's starting period (employment or activity) at that instant;
// otherwise the entity begins unemployed/unactivated.
type CreateParams struct {
	Kind    EntityKind
	Name    string
	StartAt *time.Time
}

var nameCaser = cases.Title(language.English, cases.NoLower)

func normalizeName(name string) string {
	return nameCaser.String(strings.Join(strings.Fields(name), " "))
}

// Create adds an entity to the roster.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Entity, error) {
	if !params.Kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown entity kind %q", ErrKindNotTracked, params.Kind)
	}
	name := normalizeName(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	var entity *Entity
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		e, err := tx.CreateEntity(ctx, Entity{Kind: params.Kind, Name: name})
		if err != nil {
			return err
		}
		if params.StartAt != nil {
			if _, err := tx.OpenPeriod(ctx, e.ID, params.Kind.Family().Config().StartOpens, *params.StartAt, nil); err != nil {
				return err
			}
		}
		snap, err := tx.PeriodSnapshot(ctx, e.ID, e.Family().Config().Kinds)
		if err != nil {
			return err
		}
		e.Status = Resolve(e.Family(), snap, s.now())
		entity = &e
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		log := shared.AuditLog{
			Action:   "create",
			Entity:   string(entity.Kind),
			EntityID: entity.ID.String(),
			At:       s.now(),
		}
		if err := s.audit.Record(ctx, log); err != nil {
			s.logger.Warn("record audit log", slog.Any("error", err))
		}
	}
	return entity, nil
}

// Delete soft-deletes an entity. Period history is kept for restoration.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.SoftDeleteEntity(ctx, id, s.now()); err != nil {
		return err
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn("invalidate status cache", slog.Any("error", err))
	}
	return nil
}

// Restore clears a soft delete.
func (s *Service) Restore(ctx context.Context, id uuid.UUID) error {
	return s.store.RestoreEntity(ctx, id)
}

// ============================================================================
// QUERIES
// ============================================================================

func (s *Service) resolveCurrent(ctx context.Context, entity *Entity) (Status, error) {
	return s.cache.Resolve(ctx, entity.ID, func(ctx context.Context) (Status, error) {
		snap, err := s.store.PeriodSnapshot(ctx, entity.ID, entity.Family().Config().Kinds)
		if err != nil {
			return "", err
		}
		return Resolve(entity.Family(), snap, s.now()), nil
	})
}

// Get returns the entity with its resolved current status.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Entity, error) {
	entity, err := s.store.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	status, err := s.resolveCurrent(ctx, entity)
	if err != nil {
		return nil, err
	}
	entity.Status = status
	return entity, nil
}

// StatusAt reconstructs the status the entity held at a past instant.
func (s *Service) StatusAt(ctx context.Context, id uuid.UUID, at time.Time) (Status, error) {
	entity, err := s.store.GetEntity(ctx, id)
	if err != nil {
		return "", err
	}
	family := entity.Family()
	history := make(map[PeriodKind][]Period)
	for _, kind := range family.Config().Kinds {
		periods, err := s.store.PeriodHistory(ctx, id, kind)
		if err != nil {
			return "", err
		}
		history[kind] = periods
	}
	return ResolveAt(family, history, at), nil
}

// History returns the full chronological period history of one kind.
func (s *Service) History(ctx context.Context, id uuid.UUID, kind PeriodKind) ([]Period, error) {
	entity, err := s.store.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entity.Family().Tracks(kind) {
		return nil, fmt.Errorf("%w: %s does not track %s", ErrKindNotTracked, entity.Kind, kind)
	}
	return s.store.PeriodHistory(ctx, id, kind)
}

// Debut returns the instant the entity first went on the books, or nil when
// it has not debuted yet.
func (s *Service) Debut(ctx context.Context, id uuid.UUID) (*time.Time, error) {
	entity, err := s.store.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	first, err := s.store.FirstPeriod(ctx, id, entity.Family().Config().StartOpens)
	if err != nil {
		return nil, err
	}
	if first == nil {
		return nil, nil
	}
	started := first.StartedAt
	return &started, nil
}

// LastStint returns the most recently concluded period of the kind the
// entity's family starts with (employment or activity), or nil when no stint
// has ended yet.
func (s *Service) LastStint(ctx context.Context, id uuid.UUID) (*Period, error) {
	entity, err := s.store.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.store.LatestClosedPeriod(ctx, id, entity.Family().Config().StartOpens)
}

// List returns a page of entities with resolved statuses and the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Entity, int, error) {
	entities, total, err := s.store.ListEntities(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	for i := range entities {
		status, err := s.resolveCurrent(ctx, &entities[i])
		if err != nil {
			return nil, 0, err
		}
		entities[i].Status = status
	}
	return entities, total, nil
}
