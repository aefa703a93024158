package sqlstore

import "strings"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	text TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_user_created ON documents(user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS candidates (
	id TEXT PRIMARY KEY,
	display_text TEXT NOT NULL,
	theme TEXT NOT NULL,
	keyword_text TEXT NOT NULL DEFAULT ''
)`,
	`CREATE TABLE IF NOT EXISTS artifacts (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	type TEXT NOT NULL,
	content TEXT NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	source_doc_count INTEGER NOT NULL DEFAULT 0,
	valid BOOLEAN NOT NULL DEFAULT TRUE,
	UNIQUE (user_id, type)
)`,
	`CREATE TABLE IF NOT EXISTS generation_trackers (
	user_id TEXT PRIMARY KEY,
	last_generation_at TIMESTAMPTZ,
	last_source_doc_count_mark INTEGER NOT NULL DEFAULT 0,
	in_flight BOOLEAN NOT NULL DEFAULT FALSE,
	lock_acquired_at TIMESTAMPTZ,
	strategy TEXT NOT NULL DEFAULT ''
)`,
	`CREATE INDEX IF NOT EXISTS idx_generation_trackers_in_flight ON generation_trackers(lock_acquired_at) WHERE in_flight`,
	`CREATE TABLE IF NOT EXISTS prompt_assignments (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	candidate_id TEXT NOT NULL,
	text TEXT NOT NULL,
	theme TEXT NOT NULL,
	score DOUBLE PRECISION NOT NULL,
	assigned_at TIMESTAMPTZ NOT NULL,
	resolved_at TIMESTAMPTZ
)`,
	`CREATE INDEX IF NOT EXISTS idx_prompt_assignments_outstanding ON prompt_assignments(user_id) WHERE resolved_at IS NULL`,
}

// schemaStatements returns the DDL for dialect. SQLite only parses timestamps back
// into time.Time for DATETIME-typed columns.
func schemaStatements(dialect Dialect) []string {
	if dialect != DialectSQLite {
		return schema
	}
	out := make([]string, len(schema))
	for i, stmt := range schema {
		out[i] = strings.ReplaceAll(stmt, "TIMESTAMPTZ", "DATETIME")
	}
	return out
}
