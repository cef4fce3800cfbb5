package containment

import (
	"slices"
	"sort"

	"github.com/meikuraledutech/canvas"
)

// Scheduler tracks which containers need recomputation. Callers mark containers
// dirty as node geometry changes and flush once per frame; only dirty
// containers are recomputed. A Scheduler is not safe for concurrent use.
type Scheduler struct {
	engine *Engine
	dirty  map[string]struct{}
	all    bool
}

// NewScheduler creates a scheduler that recomputes with e.
func NewScheduler(e *Engine) *Scheduler {
	return &Scheduler{engine: e, dirty: make(map[string]struct{})}
}

// MarkAll marks every container dirty.
func (s *Scheduler) MarkAll() {
	s.all = true
}

// Mark marks the named containers dirty.
func (s *Scheduler) Mark(ids ...string) {
	for _, id := range ids {
		s.dirty[id] = struct{}{}
	}
}

// MarkAffected marks every container whose membership or size may change because
// the geometry of node id changed. before is the node's box prior to the change,
// or nil when the node is new.
func (s *Scheduler) MarkAffected(nodes []canvas.Node, id string, before *canvas.Rect) {
	if s.all {
		return
	}
	var moved *canvas.Node
	for i := range nodes {
		if nodes[i].ID == id {
			moved = &nodes[i]
			break
		}
	}

	for i := range nodes {
		c := &nodes[i]
		if !c.IsContainer() {
			continue
		}
		if c.ID == id {
			s.dirty[c.ID] = struct{}{}
			continue
		}
		box := s.engine.BoxOf(c)
		switch {
		case c.Data.Containment != nil && slices.Contains(c.Data.Containment.ChildNodeIDs, id):
		case before != nil && box.Contains(before.Center()):
		case moved != nil && box.Contains(s.engine.BoxOf(moved).Center()):
		case moved != nil && c.Type == canvas.TypeGroup && c.Data.GroupID != "" && moved.Data.GroupID == c.Data.GroupID:
		default:
			continue
		}
		s.dirty[c.ID] = struct{}{}
	}
}

// Pending reports whether any container is dirty.
func (s *Scheduler) Pending() bool {
	return s.all || len(s.dirty) > 0
}

// Flush recomputes the dirty containers against nodes and clears the dirty set.
// The returned results are not yet applied.
func (s *Scheduler) Flush(nodes []canvas.Node) []Result {
	if !s.Pending() {
		return nil
	}
	var ids []string
	if !s.all {
		ids = make([]string, 0, len(s.dirty))
		for id := range s.dirty {
			ids = append(ids, id)
		}
		sort.Strings(ids)
	}
	s.all = false
	clear(s.dirty)
	return s.engine.Recompute(nodes, ids)
}
