package postgres

import (
	"context"
	"fmt"
)

// Subscribe holds a dedicated connection listening for writes to key and
// delivers each new body on the returned channel. The channel is closed when
// ctx is done or the connection fails.
func (s *PGStore) Subscribe(ctx context.Context, key string) (<-chan []byte, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("canvas: acquire listener: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("canvas: listen: %w", err)
	}

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		defer func() {
			// The connection goes back to the pool; it must stop listening first.
			if _, err := conn.Exec(context.Background(), "UNLISTEN "+channel); err != nil {
				conn.Conn().Close(context.Background())
			}
			conn.Release()
		}()

		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				return
			}
			if n.Payload != key {
				continue
			}
			data, err := s.Load(ctx, key)
			if err != nil {
				continue
			}
			select {
			case out <- data:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
