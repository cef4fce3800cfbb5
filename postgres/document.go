package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/meikuraledutech/canvas"
)

// DocumentInfo describes a stored document without its body.
type DocumentInfo struct {
	Key       string    `json:"key"`
	Revision  int64     `json:"revision"`
	Bytes     int       `json:"bytes"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Load returns the document stored under key.
// Returns canvas.ErrNotFound if nothing is stored there.
func (s *PGStore) Load(ctx context.Context, key string) ([]byte, error) {
	var body string
	err := s.db.QueryRow(ctx,
		`SELECT body FROM canvas_documents WHERE key = $1`, key,
	).Scan(&body)
	if err != nil {
		if isNoRows(err) {
			return nil, canvas.ErrNotFound
		}
		return nil, fmt.Errorf("canvas: load %s: %w", key, err)
	}
	return []byte(body), nil
}

// Save replaces the document under key and notifies listeners in the same
// transaction, so a notification never arrives before the write is visible.
func (s *PGStore) Save(ctx context.Context, key string, data []byte) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("canvas: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO canvas_documents (key, body) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE
		 SET body = EXCLUDED.body, revision = canvas_documents.revision + 1, updated_at = NOW()`,
		key, string(data),
	); err != nil {
		return fmt.Errorf("canvas: save %s: %w", key, err)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, channel, key); err != nil {
		return fmt.Errorf("canvas: notify %s: %w", key, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("canvas: commit: %w", err)
	}
	return nil
}

// Delete removes the document under key.
// Returns canvas.ErrNotFound if nothing is stored there.
func (s *PGStore) Delete(ctx context.Context, key string) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM canvas_documents WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("canvas: delete %s: %w", key, err)
	}
	if ct.RowsAffected() == 0 {
		return canvas.ErrNotFound
	}
	return nil
}

// List returns every stored document ordered by key.
func (s *PGStore) List(ctx context.Context) ([]DocumentInfo, error) {
	rows, err := s.db.Query(ctx,
		`SELECT key, revision, octet_length(body), updated_at FROM canvas_documents ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("canvas: query documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentInfo
	for rows.Next() {
		var d DocumentInfo
		if err := rows.Scan(&d.Key, &d.Revision, &d.Bytes, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("canvas: scan document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("canvas: rows documents: %w", err)
	}
	return out, nil
}
