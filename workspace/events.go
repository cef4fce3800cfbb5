package workspace

import (
	"time"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/bus"
)

// Origin tells subscribers what produced a graph change.
type Origin string

const (
	OriginLocal       Origin = "local"
	OriginContainment Origin = "containment"
	OriginHistory     Origin = "history"
	OriginRemote      Origin = "remote"
	OriginImport      Origin = "import"
)

// GraphChanged is published after the active graph changed.
type GraphChanged struct {
	WorkspaceID string
	Origin      Origin
}

// ContainerResized is published for every container whose box or membership
// was updated by containment recomputation.
type ContainerResized struct {
	WorkspaceID string
	ContainerID string
	Box         canvas.Rect
	Members     []string
}

// WorkspaceSwitched is published when the active workspace changes.
type WorkspaceSwitched struct {
	From string
	To   string
}

// Persisted is published after the workspace set was written to storage.
type Persisted struct {
	Bytes int
	At    time.Time
}

// PersistFailed is published when writing to storage failed. Editing continues
// in memory.
type PersistFailed struct {
	Err error
}

// Events groups the topics a Store publishes on. Events are delivered after the
// store has released its lock, so subscribers may call back into the store.
type Events struct {
	GraphChanged      bus.Topic[GraphChanged]
	ContainerResized  bus.Topic[ContainerResized]
	WorkspaceSwitched bus.Topic[WorkspaceSwitched]
	Persisted         bus.Topic[Persisted]
	PersistFailed     bus.Topic[PersistFailed]
}
