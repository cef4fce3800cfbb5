package canvas

import (
	"context"
	"errors"
)

var (
	ErrNotFound             = errors.New("canvas: document not found")
	ErrNodeNotFound         = errors.New("canvas: node not found")
	ErrEdgeNotFound         = errors.New("canvas: edge not found")
	ErrWorkspaceNotFound    = errors.New("canvas: workspace not found")
	ErrLastWorkspace        = errors.New("canvas: cannot close the last workspace")
	ErrWorkspaceLocked      = errors.New("canvas: workspace is locked")
	ErrInvalidChange        = errors.New("canvas: invalid change")
	ErrDuplicateID          = errors.New("canvas: duplicate id")
	ErrSelectionSpansGroups = errors.New("canvas: selection spans multiple groups")
)

// Store defines the contract for durable storage of serialized workspace documents.
// Writes made by one client are observable by every other subscriber of the same key,
// which is how tabs of one user stay consistent.
type Store interface {
	// Load returns the stored document for key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save replaces the stored document for key and notifies subscribers.
	Save(ctx context.Context, key string, data []byte) error

	// Subscribe delivers every document saved under key until ctx is done.
	// The channel is closed when the subscription ends.
	Subscribe(ctx context.Context, key string) (<-chan []byte, error)
}
