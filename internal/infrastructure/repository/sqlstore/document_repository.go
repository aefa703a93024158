package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
)

// DocumentRepository reads user documents. The table is written by the journaling
// application, never by this service.
type DocumentRepository struct {
	conn
}

func NewDocumentRepository(db *sql.DB, dialect Dialect) *DocumentRepository {
	return &DocumentRepository{conn{db: db, dialect: dialect}}
}

func (r *DocumentRepository) ListRecent(ctx context.Context, userID string, limit int) ([]domain.Document, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, r.q(`
SELECT id, user_id, text, created_at
FROM documents
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0, limit)
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ID, &doc.UserID, &doc.Text, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.CreatedAt = doc.CreatedAt.UTC()
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (r *DocumentRepository) CountDocuments(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, r.q(`SELECT COUNT(*) FROM documents WHERE user_id = $1`), userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}
