package postgres

import "context"

// The body is kept as TEXT rather than JSONB so a document reads back byte for
// byte as it was written; clients recognise their own writes that way.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS canvas_documents (
    key        TEXT PRIMARY KEY,
    body       TEXT NOT NULL,
    revision   BIGINT NOT NULL DEFAULT 1,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_canvas_documents_updated_at ON canvas_documents(updated_at);
`

// CreateSchema creates the canvas_documents table if it doesn't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the canvas_documents table.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS canvas_documents CASCADE;`)
	return err
}
