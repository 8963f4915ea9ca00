package roster

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memStore is an in-memory Store used by service and handler tests. WithTx
// snapshots state up front and restores it on error, matching the all-or-
// nothing behavior of the postgres repository.
type memStore struct {
	mu       sync.Mutex
	entities map[uuid.UUID]Entity
	periods  map[uuid.UUID][]Period
	writes   int
}

func newMemStore() *memStore {
	return &memStore{
		entities: make(map[uuid.UUID]Entity),
		periods:  make(map[uuid.UUID][]Period),
	}
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error {
	m.mu.Lock()
	backupEntities := make(map[uuid.UUID]Entity, len(m.entities))
	for k, v := range m.entities {
		backupEntities[k] = v
	}
	backupPeriods := make(map[uuid.UUID][]Period, len(m.periods))
	for k, v := range m.periods {
		backupPeriods[k] = append([]Period(nil), v...)
	}
	backupWrites := m.writes
	m.mu.Unlock()

	if err := fn(ctx, m); err != nil {
		m.mu.Lock()
		m.entities = backupEntities
		m.periods = backupPeriods
		m.writes = backupWrites
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *memStore) OpenPeriod(_ context.Context, ownerID uuid.UUID, kind PeriodKind, startedAt time.Time, groupID *uuid.UUID) (Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.periods[ownerID] {
		if p.Kind == kind && p.EndedAt == nil {
			return Period{}, ErrOpenPeriodExists
		}
	}
	period := Period{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Kind:      kind,
		GroupID:   groupID,
		StartedAt: startedAt,
		CreatedAt: time.Now(),
	}
	m.periods[ownerID] = append(m.periods[ownerID], period)
	m.writes++
	return period, nil
}

func (m *memStore) ClosePeriod(_ context.Context, ownerID uuid.UUID, kind PeriodKind, endedAt time.Time) (Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.periods[ownerID] {
		if p.Kind == kind && p.EndedAt == nil {
			if endedAt.Before(p.StartedAt) {
				return Period{}, fmt.Errorf("%w: close before start", ErrInvalidPeriodRange)
			}
			ended := endedAt
			m.periods[ownerID][i].EndedAt = &ended
			m.writes++
			return m.periods[ownerID][i], nil
		}
	}
	return Period{}, ErrNoOpenPeriod
}

func (m *memStore) DiscardScheduledPeriod(_ context.Context, ownerID uuid.UUID, kind PeriodKind, after time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.periods[ownerID] {
		if p.Kind == kind && p.EndedAt == nil && p.StartedAt.After(after) {
			m.periods[ownerID] = append(m.periods[ownerID][:i], m.periods[ownerID][i+1:]...)
			m.writes++
			return nil
		}
	}
	return ErrNoOpenPeriod
}

func (m *memStore) CurrentPeriod(_ context.Context, ownerID uuid.UUID, kind PeriodKind) (*Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.periods[ownerID] {
		if p.Kind == kind && p.EndedAt == nil {
			period := m.periods[ownerID][i]
			return &period, nil
		}
	}
	return nil, nil
}

func (m *memStore) LatestClosedPeriod(_ context.Context, ownerID uuid.UUID, kind PeriodKind) (*Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *Period
	for i, p := range m.periods[ownerID] {
		if p.Kind == kind && p.EndedAt != nil {
			if latest == nil || p.EndedAt.After(*latest.EndedAt) {
				period := m.periods[ownerID][i]
				latest = &period
			}
		}
	}
	return latest, nil
}

func (m *memStore) FirstPeriod(_ context.Context, ownerID uuid.UUID, kind PeriodKind) (*Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var first *Period
	for i, p := range m.periods[ownerID] {
		if p.Kind == kind {
			if first == nil || p.StartedAt.Before(first.StartedAt) {
				period := m.periods[ownerID][i]
				first = &period
			}
		}
	}
	return first, nil
}

func (m *memStore) PeriodHistory(_ context.Context, ownerID uuid.UUID, kind PeriodKind) ([]Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var history []Period
	for _, p := range m.periods[ownerID] {
		if p.Kind == kind {
			history = append(history, p)
		}
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].StartedAt.Before(history[j].StartedAt)
	})
	return history, nil
}

func (m *memStore) PeriodSnapshot(_ context.Context, ownerID uuid.UUID, kinds []PeriodKind) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := make(Snapshot, len(kinds))
	for _, kind := range kinds {
		var st KindState
		for i, p := range m.periods[ownerID] {
			if p.Kind != kind {
				continue
			}
			st.HasAny = true
			if st.First == nil || p.StartedAt.Before(st.First.StartedAt) {
				period := m.periods[ownerID][i]
				st.First = &period
			}
			if p.EndedAt == nil {
				period := m.periods[ownerID][i]
				st.Unended = &period
			}
		}
		snap[kind] = st
	}
	return snap, nil
}

func (m *memStore) CreateEntity(_ context.Context, entity Entity) (Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}
	entity.CreatedAt = time.Now()
	entity.UpdatedAt = entity.CreatedAt
	m.entities[entity.ID] = entity
	m.writes++
	return entity, nil
}

func (m *memStore) GetEntity(_ context.Context, id uuid.UUID) (*Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entity, ok := m.entities[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &entity, nil
}

func (m *memStore) ListEntities(_ context.Context, filter ListFilter) ([]Entity, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var entities []Entity
	for _, e := range m.entities {
		if filter.Kind != "" && e.Kind != filter.Kind {
			continue
		}
		if e.DeletedAt != nil && !filter.IncludeDeleted {
			continue
		}
		entities = append(entities, e)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i].Name < entities[j].Name })
	return entities, len(entities), nil
}

func (m *memStore) SoftDeleteEntity(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entity, ok := m.entities[id]
	if !ok || entity.DeletedAt != nil {
		return ErrNotFound
	}
	entity.DeletedAt = &at
	m.entities[id] = entity
	m.writes++
	return nil
}

func (m *memStore) RestoreEntity(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entity, ok := m.entities[id]
	if !ok || entity.DeletedAt == nil {
		return ErrNotFound
	}
	entity.DeletedAt = nil
	m.entities[id] = entity
	m.writes++
	return nil
}
