// Package history implements a bounded linear undo/redo log of graph snapshots.
package history

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/meikuraledutech/canvas"
)

// DefaultCap is the number of snapshots kept before the oldest is evicted.
const DefaultCap = 50

// Snapshot is an immutable deep copy of a graph. Callers receive copies and may
// modify them freely.
type Snapshot struct {
	graph canvas.Graph
}

// Graph returns a deep copy of the snapshot's graph.
func (s Snapshot) Graph() canvas.Graph {
	return s.graph.Clone()
}

// structural ignores selection and treats nil and empty collections alike.
var structural = cmp.Options{
	cmpopts.EquateEmpty(),
	cmpopts.IgnoreFields(canvas.Node{}, "Selected"),
	cmpopts.IgnoreFields(canvas.Edge{}, "Selected"),
}

// Equal reports whether two graphs are structurally identical for history purposes.
func Equal(a, b canvas.Graph) bool {
	return cmp.Equal(a, b, structural)
}

// Manager holds snapshots and a cursor. It is not safe for concurrent use; the
// owner serializes access.
type Manager struct {
	cap       int
	snapshots []Snapshot
	cursor    int
}

// New creates a manager holding at most limit snapshots; limit <= 0 uses DefaultCap.
func New(limit int) *Manager {
	if limit <= 0 {
		limit = DefaultCap
	}
	return &Manager{cap: limit, cursor: -1}
}

// Initialize seeds the log with g unless it already holds a snapshot.
// It reports whether the seed was recorded.
func (m *Manager) Initialize(g canvas.Graph) bool {
	if len(m.snapshots) > 0 {
		return false
	}
	m.snapshots = []Snapshot{{graph: g.Clone()}}
	m.cursor = 0
	return true
}

// Push records g after the cursor, discarding any redo entries. A graph
// structurally equal to the snapshot at the cursor is ignored. Push reports
// whether a snapshot was added.
func (m *Manager) Push(g canvas.Graph) bool {
	if m.cursor >= 0 && Equal(m.snapshots[m.cursor].graph, g) {
		return false
	}
	m.snapshots = append(m.snapshots[:m.cursor+1], Snapshot{graph: g.Clone()})
	m.cursor++
	if over := len(m.snapshots) - m.cap; over > 0 {
		m.snapshots = append([]Snapshot(nil), m.snapshots[over:]...)
		m.cursor -= over
	}
	return true
}

// Undo moves the cursor back and returns the snapshot there.
func (m *Manager) Undo() (Snapshot, bool) {
	if !m.CanUndo() {
		return Snapshot{}, false
	}
	m.cursor--
	return m.snapshots[m.cursor], true
}

// Redo moves the cursor forward and returns the snapshot there.
func (m *Manager) Redo() (Snapshot, bool) {
	if !m.CanRedo() {
		return Snapshot{}, false
	}
	m.cursor++
	return m.snapshots[m.cursor], true
}

// CanUndo reports whether Undo would return a snapshot.
func (m *Manager) CanUndo() bool { return m.cursor > 0 }

// CanRedo reports whether Redo would return a snapshot.
func (m *Manager) CanRedo() bool { return m.cursor >= 0 && m.cursor < len(m.snapshots)-1 }

// Len returns the number of snapshots held.
func (m *Manager) Len() int { return len(m.snapshots) }

// Cursor returns the index of the current snapshot, or -1 when empty.
func (m *Manager) Cursor() int { return m.cursor }

// Clear drops every snapshot.
func (m *Manager) Clear() {
	m.snapshots = nil
	m.cursor = -1
}
