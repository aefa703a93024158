package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
)

type CandidateRepository struct {
	conn
}

func NewCandidateRepository(db *sql.DB, dialect Dialect) *CandidateRepository {
	return &CandidateRepository{conn{db: db, dialect: dialect}}
}

func (r *CandidateRepository) ListCandidates(ctx context.Context) ([]domain.Candidate, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, display_text, theme, keyword_text
FROM candidates
ORDER BY id
`)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Candidate, 0, 32)
	for rows.Next() {
		var c domain.Candidate
		if err := rows.Scan(&c.ID, &c.DisplayText, &c.Theme, &c.KeywordText); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}

// Seed upserts the catalog in one transaction so readers never see a partial pool.
func (r *CandidateRepository) Seed(ctx context.Context, candidates []domain.Candidate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := r.q(`
INSERT INTO candidates (id, display_text, theme, keyword_text)
VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE
SET display_text = excluded.display_text, theme = excluded.theme, keyword_text = excluded.keyword_text
`)
	for _, c := range candidates {
		if _, err := tx.ExecContext(ctx, query, c.ID, c.DisplayText, c.Theme, c.KeywordText); err != nil {
			return fmt.Errorf("seed candidate %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}
	return nil
}
