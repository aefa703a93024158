package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
)

type ArtifactRepository struct {
	conn
}

func NewArtifactRepository(db *sql.DB, dialect Dialect) *ArtifactRepository {
	return &ArtifactRepository{conn{db: db, dialect: dialect}}
}

func (r *ArtifactRepository) GetArtifact(ctx context.Context, userID string, artifactType domain.ArtifactType) (*domain.Artifact, error) {
	row := r.db.QueryRowContext(ctx, r.q(`
SELECT id, user_id, type, content, generated_at, expires_at, source_doc_count, valid
FROM artifacts
WHERE user_id = $1 AND type = $2
`), userID, string(artifactType))

	var (
		artifact domain.Artifact
		typ      string
	)
	err := row.Scan(
		&artifact.ID,
		&artifact.UserID,
		&typ,
		&artifact.Content,
		&artifact.GeneratedAt,
		&artifact.ExpiresAt,
		&artifact.SourceDocCount,
		&artifact.Valid,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get artifact", fmt.Errorf("user_id=%s type=%s", userID, artifactType))
		}
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	artifact.Type = domain.ArtifactType(typ)
	artifact.GeneratedAt = artifact.GeneratedAt.UTC()
	artifact.ExpiresAt = artifact.ExpiresAt.UTC()
	return &artifact, nil
}

// UpsertArtifact replaces the single entry kept per (user, type). The last writer
// wins.
func (r *ArtifactRepository) UpsertArtifact(ctx context.Context, artifact *domain.Artifact) error {
	_, err := r.db.ExecContext(ctx, r.q(`
INSERT INTO artifacts (id, user_id, type, content, generated_at, expires_at, source_doc_count, valid)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (user_id, type) DO UPDATE
SET id = excluded.id,
	content = excluded.content,
	generated_at = excluded.generated_at,
	expires_at = excluded.expires_at,
	source_doc_count = excluded.source_doc_count,
	valid = excluded.valid
`),
		artifact.ID,
		artifact.UserID,
		string(artifact.Type),
		artifact.Content,
		artifact.GeneratedAt.UTC(),
		artifact.ExpiresAt.UTC(),
		artifact.SourceDocCount,
		artifact.Valid,
	)
	if err != nil {
		return fmt.Errorf("upsert artifact: %w", err)
	}
	return nil
}

// InvalidateArtifact clears the valid flag of one specific entry. A newer entry
// written under a different id is left alone.
func (r *ArtifactRepository) InvalidateArtifact(ctx context.Context, userID string, artifactType domain.ArtifactType, artifactID string) error {
	_, err := r.db.ExecContext(ctx, r.q(`
UPDATE artifacts
SET valid = FALSE
WHERE user_id = $1 AND type = $2 AND id = $3
`), userID, string(artifactType), artifactID)
	if err != nil {
		return fmt.Errorf("invalidate artifact: %w", err)
	}
	return nil
}
