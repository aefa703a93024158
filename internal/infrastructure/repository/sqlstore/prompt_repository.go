package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
)

type PromptRepository struct {
	conn
}

func NewPromptRepository(db *sql.DB, dialect Dialect) *PromptRepository {
	return &PromptRepository{conn{db: db, dialect: dialect}}
}

// AssignPrompts retires the user's outstanding prompts and stores the new set in
// one transaction.
func (r *PromptRepository) AssignPrompts(ctx context.Context, userID string, prompts []domain.PromptAssignment) error {
	if len(prompts) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assign tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// The new set replaces whatever the user had not answered yet.
	if _, err := tx.ExecContext(ctx, r.q(`
UPDATE prompt_assignments
SET resolved_at = $2
WHERE user_id = $1 AND resolved_at IS NULL
`), userID, prompts[0].AssignedAt.UTC()); err != nil {
		return fmt.Errorf("supersede outstanding prompts: %w", err)
	}

	query := r.q(`
INSERT INTO prompt_assignments (id, user_id, candidate_id, text, theme, score, assigned_at, resolved_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`)
	for _, p := range prompts {
		if _, err := tx.ExecContext(ctx, query, p.ID, userID, p.CandidateID, p.Text, p.Theme, p.Score, p.AssignedAt.UTC(), timeArg(p.ResolvedAt)); err != nil {
			return fmt.Errorf("insert prompt assignment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assign tx: %w", err)
	}
	return nil
}

func (r *PromptRepository) ResolvePrompt(ctx context.Context, userID, promptID string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, r.q(`
UPDATE prompt_assignments
SET resolved_at = $3
WHERE user_id = $1 AND id = $2 AND resolved_at IS NULL
`), userID, promptID, at.UTC())
	if err != nil {
		return fmt.Errorf("resolve prompt: %w", err)
	}
	return requireRow(result, "resolve prompt", promptID)
}

func (r *PromptRepository) ListOutstanding(ctx context.Context, userID string) ([]domain.PromptAssignment, error) {
	rows, err := r.db.QueryContext(ctx, r.q(`
SELECT id, user_id, candidate_id, text, theme, score, assigned_at, resolved_at
FROM prompt_assignments
WHERE user_id = $1 AND resolved_at IS NULL
ORDER BY assigned_at DESC, score DESC
`), userID)
	if err != nil {
		return nil, fmt.Errorf("list outstanding prompts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PromptAssignment, 0)
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prompts: %w", err)
	}
	return out, nil
}

func (r *PromptRepository) CountOutstanding(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, r.q(`
SELECT COUNT(*) FROM prompt_assignments WHERE user_id = $1 AND resolved_at IS NULL
`), userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count outstanding prompts: %w", err)
	}
	return count, nil
}

func scanPrompt(row rowScanner) (domain.PromptAssignment, error) {
	var (
		p        domain.PromptAssignment
		resolved sql.NullTime
	)
	err := row.Scan(&p.ID, &p.UserID, &p.CandidateID, &p.Text, &p.Theme, &p.Score, &p.AssignedAt, &resolved)
	if err != nil {
		return domain.PromptAssignment{}, fmt.Errorf("scan prompt: %w", err)
	}
	p.AssignedAt = p.AssignedAt.UTC()
	p.ResolvedAt = nullTimePtr(resolved)
	return p, nil
}
