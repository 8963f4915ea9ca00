package roster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier abstracts pgxpool.Pool and pgx.Tx so the same queries serve both
// pooled reads and transactional orchestration.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides PostgreSQL backed persistence for entities and periods.
type Repository struct {
	pool *pgxpool.Pool
	q    querier
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, q: pool}
}

// WithTx runs fn against a transaction-scoped store. RepeatableRead plus the
// partial unique index on (owner_id, kind) WHERE ended_at IS NULL makes
// "open if not already open" safe against concurrent writers.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("roster: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, &Repository{pool: r.pool, q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("roster: commit tx: %w", err)
	}
	return nil
}

// ============================================================================
// PERIOD STORE
// ============================================================================

const periodColumns = `id, owner_id, kind, group_id, started_at, ended_at, created_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.OwnerID, &p.Kind, &p.GroupID, &p.StartedAt, &p.EndedAt, &p.CreatedAt)
	return p, err
}

// OpenPeriod inserts a new unended period. The roster_periods_open_uniq
// partial index rejects a second writer racing on the same (owner, kind).
func (r *Repository) OpenPeriod(ctx context.Context, ownerID uuid.UUID, kind PeriodKind, startedAt time.Time, groupID *uuid.UUID) (Period, error) {
	row := r.q.QueryRow(ctx,
		`INSERT INTO roster_periods (id, owner_id, kind, group_id, started_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+periodColumns,
		uuid.New(), ownerID, kind, groupID, startedAt)
	p, err := scanPeriod(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Period{}, ErrOpenPeriodExists
		}
		return Period{}, fmt.Errorf("open period: %w", err)
	}
	return p, nil
}

// DiscardScheduledPeriod deletes an unended period that has not begun yet.
func (r *Repository) DiscardScheduledPeriod(ctx context.Context, ownerID uuid.UUID, kind PeriodKind, after time.Time) error {
	tag, err := r.q.Exec(ctx,
		`DELETE FROM roster_periods
		 WHERE owner_id = $1 AND kind = $2 AND ended_at IS NULL AND started_at > $3`,
		ownerID, kind, after)
	if err != nil {
		return fmt.Errorf("discard scheduled period: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoOpenPeriod
	}
	return nil
}

// ClosePeriod sets the end instant on the unended period of the kind.
func (r *Repository) ClosePeriod(ctx context.Context, ownerID uuid.UUID, kind PeriodKind, endedAt time.Time) (Period, error) {
	current, err := r.CurrentPeriod(ctx, ownerID, kind)
	if err != nil {
		return Period{}, err
	}
	if current == nil {
		return Period{}, ErrNoOpenPeriod
	}
	if endedAt.Before(current.StartedAt) {
		return Period{}, fmt.Errorf("%w: close %s before start %s", ErrInvalidPeriodRange,
			endedAt.Format(time.RFC3339), current.StartedAt.Format(time.RFC3339))
	}
	row := r.q.QueryRow(ctx,
		`UPDATE roster_periods SET ended_at = $2 WHERE id = $1 AND ended_at IS NULL
		 RETURNING `+periodColumns,
		current.ID, endedAt)
	p, err := scanPeriod(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost a race with another closer.
			return Period{}, ErrNoOpenPeriod
		}
		return Period{}, fmt.Errorf("close period: %w", err)
	}
	return p, nil
}

// CurrentPeriod returns the unended period of the kind, or nil.
func (r *Repository) CurrentPeriod(ctx context.Context, ownerID uuid.UUID, kind PeriodKind) (*Period, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+periodColumns+` FROM roster_periods
		 WHERE owner_id = $1 AND kind = $2 AND ended_at IS NULL`,
		ownerID, kind)
	p, err := scanPeriod(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("current period: %w", err)
	}
	return &p, nil
}

// LatestClosedPeriod returns the most recently ended period of the kind, or nil.
func (r *Repository) LatestClosedPeriod(ctx context.Context, ownerID uuid.UUID, kind PeriodKind) (*Period, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+periodColumns+` FROM roster_periods
		 WHERE owner_id = $1 AND kind = $2 AND ended_at IS NOT NULL
		 ORDER BY ended_at DESC LIMIT 1`,
		ownerID, kind)
	p, err := scanPeriod(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest closed period: %w", err)
	}
	return &p, nil
}

// FirstPeriod returns the chronologically earliest period of the kind, or nil.
func (r *Repository) FirstPeriod(ctx context.Context, ownerID uuid.UUID, kind PeriodKind) (*Period, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+periodColumns+` FROM roster_periods
		 WHERE owner_id = $1 AND kind = $2
		 ORDER BY started_at ASC LIMIT 1`,
		ownerID, kind)
	p, err := scanPeriod(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("first period: %w", err)
	}
	return &p, nil
}

// PeriodHistory returns all periods of the kind, oldest first.
func (r *Repository) PeriodHistory(ctx context.Context, ownerID uuid.UUID, kind PeriodKind) ([]Period, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+periodColumns+` FROM roster_periods
		 WHERE owner_id = $1 AND kind = $2
		 ORDER BY started_at ASC, created_at ASC`,
		ownerID, kind)
	if err != nil {
		return nil, fmt.Errorf("period history: %w", err)
	}
	defer rows.Close()
	var periods []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("period history: %w", err)
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("period history: %w", err)
	}
	return periods, nil
}

// PeriodSnapshot loads the resolver input for the given kinds in one query.
func (r *Repository) PeriodSnapshot(ctx context.Context, ownerID uuid.UUID, kinds []PeriodKind) (Snapshot, error) {
	rows, err := r.q.Query(ctx,
		`SELECT kind,
		        count(*),
		        min(started_at)
		 FROM roster_periods
		 WHERE owner_id = $1 AND kind = ANY($2)
		 GROUP BY kind`,
		ownerID, kindStrings(kinds))
	if err != nil {
		return nil, fmt.Errorf("period snapshot: %w", err)
	}
	defer rows.Close()

	snap := make(Snapshot, len(kinds))
	for rows.Next() {
		var kind PeriodKind
		var count int64
		var first time.Time
		if err := rows.Scan(&kind, &count, &first); err != nil {
			return nil, fmt.Errorf("period snapshot: %w", err)
		}
		snap[kind] = KindState{HasAny: count > 0, First: &Period{OwnerID: ownerID, Kind: kind, StartedAt: first}}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("period snapshot: %w", err)
	}

	open, err := r.q.Query(ctx,
		`SELECT `+periodColumns+` FROM roster_periods
		 WHERE owner_id = $1 AND kind = ANY($2) AND ended_at IS NULL`,
		ownerID, kindStrings(kinds))
	if err != nil {
		return nil, fmt.Errorf("period snapshot: %w", err)
	}
	defer open.Close()
	for open.Next() {
		p, err := scanPeriod(open)
		if err != nil {
			return nil, fmt.Errorf("period snapshot: %w", err)
		}
		st := snap[p.Kind]
		period := p
		st.Unended = &period
		snap[p.Kind] = st
	}
	if err := open.Err(); err != nil {
		return nil, fmt.Errorf("period snapshot: %w", err)
	}
	return snap, nil
}

func kindStrings(kinds []PeriodKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

// ============================================================================
// ENTITY STORE
// ============================================================================

const entityColumns = `id, kind, name, created_at, updated_at, deleted_at`

func scanEntity(row pgx.Row) (Entity, error) {
	var e Entity
	err := row.Scan(&e.ID, &e.Kind, &e.Name, &e.CreatedAt, &e.UpdatedAt, &e.DeletedAt)
	return e, err
}

// CreateEntity inserts a roster entity.
func (r *Repository) CreateEntity(ctx context.Context, entity Entity) (Entity, error) {
	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}
	row := r.q.QueryRow(ctx,
		`INSERT INTO roster_entities (id, kind, name)
		 VALUES ($1, $2, $3)
		 RETURNING `+entityColumns,
		entity.ID, entity.Kind, entity.Name)
	e, err := scanEntity(row)
	if err != nil {
		return Entity{}, fmt.Errorf("create entity: %w", err)
	}
	return e, nil
}

// GetEntity fetches an entity by ID, including soft-deleted rows so that a
// restore can find them.
func (r *Repository) GetEntity(ctx context.Context, id uuid.UUID) (*Entity, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+entityColumns+` FROM roster_entities WHERE id = $1`, id)
	e, err := scanEntity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", err)
	}
	return &e, nil
}

// ListEntities returns a page of entities plus the total match count.
func (r *Repository) ListEntities(ctx context.Context, filter ListFilter) ([]Entity, int, error) {
	where := `WHERE ($1 = '' OR kind = $1) AND (deleted_at IS NULL OR $2)`
	var total int
	if err := r.q.QueryRow(ctx,
		`SELECT count(*) FROM roster_entities `+where,
		string(filter.Kind), filter.IncludeDeleted).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entities: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.q.Query(ctx,
		`SELECT `+entityColumns+` FROM roster_entities `+where+`
		 ORDER BY name ASC, id ASC LIMIT $3 OFFSET $4`,
		string(filter.Kind), filter.IncludeDeleted, limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()
	var entities []Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("list entities: %w", err)
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list entities: %w", err)
	}
	return entities, total, nil
}

// SoftDeleteEntity marks an entity deleted while retaining period history.
func (r *Repository) SoftDeleteEntity(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE roster_entities SET deleted_at = $2, updated_at = now()
		 WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("soft delete entity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RestoreEntity clears the soft-delete marker.
func (r *Repository) RestoreEntity(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE roster_entities SET deleted_at = NULL, updated_at = now()
		 WHERE id = $1 AND deleted_at IS NOT NULL`, id)
	if err != nil {
		return fmt.Errorf("restore entity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
