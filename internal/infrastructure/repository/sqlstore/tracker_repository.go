package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
)

const trackerColumns = `user_id, last_generation_at, last_source_doc_count_mark, in_flight, lock_acquired_at, strategy`

// TrackerRepository stores per-user generation state. The in_flight column is
// the generation lock; TryAcquire takes it with a single conditional upsert.
type TrackerRepository struct {
	conn
}

func NewTrackerRepository(db *sql.DB, dialect Dialect) *TrackerRepository {
	return &TrackerRepository{conn{db: db, dialect: dialect}}
}

func (r *TrackerRepository) GetTracker(ctx context.Context, userID string) (*domain.TrackerState, error) {
	row := r.db.QueryRowContext(ctx, r.q(`
SELECT `+trackerColumns+`
FROM generation_trackers
WHERE user_id = $1
`), userID)

	state, err := scanTracker(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get tracker", fmt.Errorf("user_id=%s", userID))
		}
		return nil, fmt.Errorf("get tracker: %w", err)
	}
	return state, nil
}

// TryAcquire inserts or takes over the tracker row when no live lock exists. A
// lock taken at or before staleBefore counts as abandoned. The conditional upsert
// touches zero rows when another holder owns the lock.
func (r *TrackerRepository) TryAcquire(ctx context.Context, userID string, now, staleBefore time.Time) (*domain.TrackerState, bool, error) {
	result, err := r.db.ExecContext(ctx, r.q(`
INSERT INTO generation_trackers (user_id, last_source_doc_count_mark, in_flight, lock_acquired_at, strategy)
VALUES ($1, 0, TRUE, $2, '')
ON CONFLICT (user_id) DO UPDATE
SET in_flight = TRUE, lock_acquired_at = excluded.lock_acquired_at
WHERE generation_trackers.in_flight = FALSE
	OR generation_trackers.lock_acquired_at IS NULL
	OR generation_trackers.lock_acquired_at <= $3
`), userID, now.UTC(), staleBefore.UTC())
	if err != nil {
		return nil, false, fmt.Errorf("acquire tracker lock: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("acquire tracker lock rows affected: %w", err)
	}
	if rows == 0 {
		return nil, false, nil
	}

	state, err := r.GetTracker(ctx, userID)
	if err != nil {
		return nil, true, err
	}
	return state, true, nil
}

func (r *TrackerRepository) ReleaseSuccess(ctx context.Context, userID string, now time.Time, docCountMark int, strategy domain.GenerationStrategy) error {
	result, err := r.db.ExecContext(ctx, r.q(`
UPDATE generation_trackers
SET in_flight = FALSE, lock_acquired_at = NULL, last_generation_at = $2, last_source_doc_count_mark = $3, strategy = $4
WHERE user_id = $1
`), userID, now.UTC(), docCountMark, string(strategy))
	if err != nil {
		return fmt.Errorf("release tracker: %w", err)
	}
	return requireRow(result, "release tracker", userID)
}

func (r *TrackerRepository) ReleaseFailure(ctx context.Context, userID string) error {
	result, err := r.db.ExecContext(ctx, r.q(`
UPDATE generation_trackers
SET in_flight = FALSE, lock_acquired_at = NULL
WHERE user_id = $1
`), userID)
	if err != nil {
		return fmt.Errorf("release tracker after failure: %w", err)
	}
	return requireRow(result, "release tracker after failure", userID)
}

func (r *TrackerRepository) ReleaseStale(ctx context.Context, staleBefore time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, r.q(`
UPDATE generation_trackers
SET in_flight = FALSE, lock_acquired_at = NULL
WHERE in_flight = TRUE AND (lock_acquired_at IS NULL OR lock_acquired_at <= $1)
`), staleBefore.UTC())
	if err != nil {
		return 0, fmt.Errorf("release stale trackers: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("release stale trackers rows affected: %w", err)
	}
	return int(rows), nil
}

func scanTracker(row rowScanner) (*domain.TrackerState, error) {
	var (
		state          domain.TrackerState
		lastGeneration sql.NullTime
		lockAcquired   sql.NullTime
		strategy       string
	)
	err := row.Scan(
		&state.UserID,
		&lastGeneration,
		&state.LastSourceDocCountMark,
		&state.InFlight,
		&lockAcquired,
		&strategy,
	)
	if err != nil {
		return nil, err
	}
	state.LastGenerationAt = nullTimePtr(lastGeneration)
	state.LockAcquiredAt = nullTimePtr(lockAcquired)
	state.Strategy = domain.GenerationStrategy(strategy)
	return &state, nil
}

func requireRow(result sql.Result, op, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, op, fmt.Errorf("id=%s", id))
	}
	return nil
}
