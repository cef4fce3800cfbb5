// Package postgres stores canvas documents in PostgreSQL and fans out writes
// to other clients with LISTEN/NOTIFY.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/canvas"
)

// channel is the NOTIFY channel; the payload is the saved document's key.
const channel = "canvas_documents"

// PGStore implements canvas.Store using PostgreSQL via pgx.
type PGStore struct {
	db *pgxpool.Pool
}

var _ canvas.Store = (*PGStore)(nil)

// New creates a new PGStore backed by the given pgx connection pool.
func New(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// Connect opens a pool for databaseURL and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("canvas: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("canvas: ping: %w", err)
	}
	return pool, nil
}

// isNoRows checks if the error is a "no rows" error from pgx.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
