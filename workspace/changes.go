package workspace

import (
	"fmt"
	"math"
	"slices"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/geometry"
	"github.com/meikuraledutech/canvas/grouping"
	"github.com/meikuraledutech/canvas/history"
)

// ApplyNodeChanges applies a batch of node changes to the active graph.
//
// The batch is validated as a whole first; on error nothing is applied. On a
// locked workspace only selection changes are accepted. Position changes move
// group peers and container members along, and translate the geometry of the
// affected edges. Removing a node removes its edges in the same step.
func (s *Store) ApplyNodeChanges(changes []canvas.NodeChange) error {
	if len(changes) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.unlock()

	structural := slices.ContainsFunc(changes, canvas.NodeChange.Structural)
	if structural && s.lockedLocked() {
		return canvas.ErrWorkspaceLocked
	}
	changes, err := s.validateNodeChangesLocked(changes)
	if err != nil {
		return err
	}

	nodes := s.live.Nodes
	before := make(map[string]canvas.Rect)
	remember := func(n *canvas.Node) {
		if _, ok := before[n.ID]; !ok {
			before[n.ID] = s.engine.BoxOf(n)
		}
	}
	batch := geometry.Batch{}
	removed := make(map[string]bool)
	var added []string
	record := false

	for _, c := range changes {
		record = record || c.Completes()
		idx := canvas.IndexNodes(nodes)
		switch c.Kind {
		case canvas.ChangeAdd:
			n := c.Item.Clone()
			canvas.NormalizeNode(&n)
			nodes = append(nodes, n)
			added = append(added, n.ID)
		case canvas.ChangeRemove:
			remember(&nodes[idx[c.ID]])
			removed[c.ID] = true
			nodes = slices.DeleteFunc(nodes, func(n canvas.Node) bool { return n.ID == c.ID })
		case canvas.ChangeReplace:
			n := &nodes[idx[c.ID]]
			remember(n)
			*n = c.Item.Clone()
			canvas.NormalizeNode(n)
		case canvas.ChangePosition:
			n := &nodes[idx[c.ID]]
			remember(n)
			d := batch[c.ID]
			d.DX += c.Position.X - n.Position.X
			d.DY += c.Position.Y - n.Position.Y
			batch[c.ID] = d
			n.Position = *c.Position
		case canvas.ChangeDimensions:
			n := &nodes[idx[c.ID]]
			remember(n)
			n.Width, n.Height = c.Dimensions.W, c.Dimensions.H
			if c.Manual && n.Data.Containment != nil {
				n.Data.Containment.ManuallyResized = true
			}
		case canvas.ChangeSelect:
			nodes[idx[c.ID]].Selected = c.Selected
		}
	}
	s.live.Nodes = nodes

	for id, d := range batch {
		if d.Zero() || removed[id] {
			delete(batch, id)
		}
	}
	if len(batch) > 0 {
		moves := geometry.Propagate(s.live.Nodes, batch)
		for i := range s.live.Nodes {
			n := &s.live.Nodes[i]
			if _, direct := batch[n.ID]; direct {
				continue
			}
			if d, ok := moves[n.ID]; ok {
				remember(n)
				n.Position.X += d.DX
				n.Position.Y += d.DY
			}
		}
		geometry.TranslateEdges(s.live.Edges, s.live.Nodes, moves)
	}

	if len(removed) > 0 {
		s.removeNodesLocked(removed)
	}
	for id, box := range before {
		b := box
		s.sched.MarkAffected(s.live.Nodes, id, &b)
	}
	for _, id := range added {
		s.sched.MarkAffected(s.live.Nodes, id, nil)
	}

	s.changedLocked(OriginLocal, structural, record)
	return nil
}

// validateNodeChangesLocked checks the batch against the live graph, simulating
// adds and removes in order. It returns the batch with generated IDs filled in.
func (s *Store) validateNodeChangesLocked(changes []canvas.NodeChange) ([]canvas.NodeChange, error) {
	exists := make(map[string]bool, len(s.live.Nodes))
	for i := range s.live.Nodes {
		exists[s.live.Nodes[i].ID] = true
	}
	out := make([]canvas.NodeChange, len(changes))
	for i, c := range changes {
		switch c.Kind {
		case canvas.ChangeAdd:
			if c.Item == nil {
				return nil, fmt.Errorf("%w: add without item", canvas.ErrInvalidChange)
			}
			item := *c.Item
			if item.ID == "" {
				item.ID = s.opts.NewID()
			}
			if exists[item.ID] {
				return nil, fmt.Errorf("%w: node %s", canvas.ErrDuplicateID, item.ID)
			}
			exists[item.ID] = true
			c.Item = &item
			c.ID = item.ID
		case canvas.ChangeRemove, canvas.ChangeSelect:
			if !exists[c.ID] {
				return nil, fmt.Errorf("%w: %s", canvas.ErrNodeNotFound, c.ID)
			}
			if c.Kind == canvas.ChangeRemove {
				delete(exists, c.ID)
			}
		case canvas.ChangeReplace:
			if !exists[c.ID] {
				return nil, fmt.Errorf("%w: %s", canvas.ErrNodeNotFound, c.ID)
			}
			if c.Item == nil || (c.Item.ID != "" && c.Item.ID != c.ID) {
				return nil, fmt.Errorf("%w: replace item must keep id %s", canvas.ErrInvalidChange, c.ID)
			}
			item := *c.Item
			item.ID = c.ID
			c.Item = &item
		case canvas.ChangePosition:
			if !exists[c.ID] {
				return nil, fmt.Errorf("%w: %s", canvas.ErrNodeNotFound, c.ID)
			}
			if c.Position == nil || !finite(c.Position.X, c.Position.Y) {
				return nil, fmt.Errorf("%w: bad position for %s", canvas.ErrInvalidChange, c.ID)
			}
		case canvas.ChangeDimensions:
			if !exists[c.ID] {
				return nil, fmt.Errorf("%w: %s", canvas.ErrNodeNotFound, c.ID)
			}
			if c.Dimensions == nil || !finite(c.Dimensions.W, c.Dimensions.H) || c.Dimensions.W <= 0 || c.Dimensions.H <= 0 {
				return nil, fmt.Errorf("%w: bad dimensions for %s", canvas.ErrInvalidChange, c.ID)
			}
		default:
			return nil, fmt.Errorf("%w: unknown node change %q", canvas.ErrInvalidChange, c.Kind)
		}
		out[i] = c
	}
	return out, nil
}

// ApplyEdgeChanges applies a batch of edge changes to the active graph. The
// batch is validated as a whole first; on error nothing is applied.
func (s *Store) ApplyEdgeChanges(changes []canvas.EdgeChange) error {
	if len(changes) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.unlock()

	structural := slices.ContainsFunc(changes, canvas.EdgeChange.Structural)
	if structural && s.lockedLocked() {
		return canvas.ErrWorkspaceLocked
	}
	changes, err := s.validateEdgeChangesLocked(changes)
	if err != nil {
		return err
	}

	record := false
	for _, c := range changes {
		record = record || c.Completes()
		idx := canvas.IndexEdges(s.live.Edges)
		switch c.Kind {
		case canvas.ChangeAdd:
			e := c.Item.Clone()
			canvas.NormalizeEdge(&e)
			s.live.Edges = append(s.live.Edges, e)
		case canvas.ChangeRemove:
			s.live.Edges = slices.DeleteFunc(s.live.Edges, func(e canvas.Edge) bool { return e.ID == c.ID })
		case canvas.ChangeReplace:
			e := c.Item.Clone()
			canvas.NormalizeEdge(&e)
			s.live.Edges[idx[c.ID]] = e
		case canvas.ChangeSelect:
			s.live.Edges[idx[c.ID]].Selected = c.Selected
		case canvas.ChangeLabel:
			s.live.Edges[idx[c.ID]].Data.Label = c.Label
		}
	}

	s.changedLocked(OriginLocal, structural, record)
	return nil
}

func (s *Store) validateEdgeChangesLocked(changes []canvas.EdgeChange) ([]canvas.EdgeChange, error) {
	nodes := make(map[string]bool, len(s.live.Nodes))
	for i := range s.live.Nodes {
		nodes[s.live.Nodes[i].ID] = true
	}
	exists := make(map[string]bool, len(s.live.Edges))
	for i := range s.live.Edges {
		exists[s.live.Edges[i].ID] = true
	}
	endpoints := func(e *canvas.Edge) error {
		for _, id := range []string{e.Source, e.Target} {
			if !nodes[id] {
				return fmt.Errorf("%w: edge endpoint %q", canvas.ErrNodeNotFound, id)
			}
		}
		return nil
	}

	out := make([]canvas.EdgeChange, len(changes))
	for i, c := range changes {
		switch c.Kind {
		case canvas.ChangeAdd:
			if c.Item == nil {
				return nil, fmt.Errorf("%w: add without item", canvas.ErrInvalidChange)
			}
			item := *c.Item
			if item.ID == "" {
				item.ID = s.opts.NewID()
			}
			if exists[item.ID] {
				return nil, fmt.Errorf("%w: edge %s", canvas.ErrDuplicateID, item.ID)
			}
			if err := endpoints(&item); err != nil {
				return nil, err
			}
			exists[item.ID] = true
			c.Item = &item
			c.ID = item.ID
		case canvas.ChangeReplace:
			if !exists[c.ID] {
				return nil, fmt.Errorf("%w: %s", canvas.ErrEdgeNotFound, c.ID)
			}
			if c.Item == nil || (c.Item.ID != "" && c.Item.ID != c.ID) {
				return nil, fmt.Errorf("%w: replace item must keep id %s", canvas.ErrInvalidChange, c.ID)
			}
			item := *c.Item
			item.ID = c.ID
			if err := endpoints(&item); err != nil {
				return nil, err
			}
			c.Item = &item
		case canvas.ChangeRemove, canvas.ChangeSelect, canvas.ChangeLabel:
			if !exists[c.ID] {
				return nil, fmt.Errorf("%w: %s", canvas.ErrEdgeNotFound, c.ID)
			}
			if c.Kind == canvas.ChangeRemove {
				delete(exists, c.ID)
			}
		default:
			return nil, fmt.Errorf("%w: unknown edge change %q", canvas.ErrInvalidChange, c.Kind)
		}
		out[i] = c
	}
	return out, nil
}

// Connect creates an edge between two existing nodes and returns it.
func (s *Store) Connect(conn canvas.Connection) (canvas.Edge, error) {
	s.mu.Lock()
	defer s.unlock()

	if s.lockedLocked() {
		return canvas.Edge{}, canvas.ErrWorkspaceLocked
	}
	idx := canvas.IndexNodes(s.live.Nodes)
	for _, id := range []string{conn.Source, conn.Target} {
		if _, ok := idx[id]; !ok {
			return canvas.Edge{}, fmt.Errorf("%w: %q", canvas.ErrNodeNotFound, id)
		}
	}

	e := canvas.Edge{
		ID:           s.opts.NewID(),
		Source:       conn.Source,
		Target:       conn.Target,
		SourceHandle: conn.SourceHandle,
		TargetHandle: conn.TargetHandle,
		Data: canvas.EdgeData{
			ConnectionType: conn.ConnectionType,
			PathType:       conn.PathType,
		},
	}
	if e.Data.ConnectionType == "" {
		e.Data.ConnectionType = "default"
	}
	canvas.NormalizeEdge(&e)
	s.live.Edges = append(s.live.Edges, e)

	s.changedLocked(OriginLocal, true, true)
	return e.Clone(), nil
}

// Delete removes the selected nodes together with every edge touching them, and
// the selected edges. Unknown IDs reject the whole selection.
func (s *Store) Delete(sel canvas.Selection) error {
	if sel.Empty() {
		return nil
	}
	s.mu.Lock()
	defer s.unlock()

	if s.lockedLocked() {
		return canvas.ErrWorkspaceLocked
	}
	nodeIdx := canvas.IndexNodes(s.live.Nodes)
	edgeIdx := canvas.IndexEdges(s.live.Edges)
	removed := make(map[string]bool, len(sel.NodeIDs))
	for _, id := range sel.NodeIDs {
		if _, ok := nodeIdx[id]; !ok {
			return fmt.Errorf("%w: %s", canvas.ErrNodeNotFound, id)
		}
		removed[id] = true
	}
	dropEdges := make(map[string]bool, len(sel.EdgeIDs))
	for _, id := range sel.EdgeIDs {
		if _, ok := edgeIdx[id]; !ok {
			return fmt.Errorf("%w: %s", canvas.ErrEdgeNotFound, id)
		}
		dropEdges[id] = true
	}

	for id := range removed {
		n := &s.live.Nodes[nodeIdx[id]]
		box := s.engine.BoxOf(n)
		s.sched.MarkAffected(s.live.Nodes, id, &box)
	}
	s.live.Edges = slices.DeleteFunc(s.live.Edges, func(e canvas.Edge) bool { return dropEdges[e.ID] })
	s.removeNodesLocked(removed)

	s.changedLocked(OriginLocal, true, true)
	return nil
}

// removeNodesLocked finishes the joint delete of already-removed nodes: their
// edges go and no container keeps them as members.
func (s *Store) removeNodesLocked(removed map[string]bool) {
	s.live.Nodes = slices.DeleteFunc(s.live.Nodes, func(n canvas.Node) bool { return removed[n.ID] })
	s.live.Edges = slices.DeleteFunc(s.live.Edges, func(e canvas.Edge) bool {
		return removed[e.Source] || removed[e.Target]
	})
	for i := range s.live.Nodes {
		ct := s.live.Nodes[i].Data.Containment
		if ct == nil {
			continue
		}
		ct.ChildNodeIDs = slices.DeleteFunc(ct.ChildNodeIDs, func(id string) bool { return removed[id] })
	}
}

// Group expands the selected nodes across their connections and tags the result
// with one group ID. An empty selection is a no-op.
func (s *Store) Group(nodeIDs []string) (grouping.Result, error) {
	s.mu.Lock()
	defer s.unlock()

	if s.lockedLocked() {
		return grouping.Result{}, canvas.ErrWorkspaceLocked
	}
	r, err := grouping.Resolve(s.live.Nodes, s.live.Edges, nodeIDs, s.opts.NewID)
	if err != nil || r.Empty() {
		return r, err
	}
	grouping.Apply(s.live.Nodes, s.live.Edges, r)
	for i := range s.live.Nodes {
		n := &s.live.Nodes[i]
		if n.Type == canvas.TypeGroup && n.Data.GroupID == r.GroupID {
			s.sched.Mark(n.ID)
		}
	}

	s.changedLocked(OriginLocal, true, true)
	return r, nil
}

// Ungroup clears groupID from every node and edge carrying it.
func (s *Store) Ungroup(groupID string) error {
	s.mu.Lock()
	defer s.unlock()

	if s.lockedLocked() {
		return canvas.ErrWorkspaceLocked
	}
	if grouping.Ungroup(s.live.Nodes, s.live.Edges, groupID) == 0 {
		return nil
	}
	s.sched.MarkAll()
	s.changedLocked(OriginLocal, true, true)
	return nil
}

// Undo restores the previous snapshot of the active workspace. It reports
// whether anything was restored.
func (s *Store) Undo() (bool, error) {
	return s.replay(func(h *history.Manager) (canvas.Graph, bool) {
		snap, ok := h.Undo()
		return snap.Graph(), ok
	})
}

// Redo re-applies the next snapshot of the active workspace. It reports whether
// anything was restored.
func (s *Store) Redo() (bool, error) {
	return s.replay(func(h *history.Manager) (canvas.Graph, bool) {
		snap, ok := h.Redo()
		return snap.Graph(), ok
	})
}

func (s *Store) replay(step func(*history.Manager) (canvas.Graph, bool)) (bool, error) {
	s.mu.Lock()
	defer s.unlock()

	if s.lockedLocked() {
		return false, canvas.ErrWorkspaceLocked
	}
	g, ok := step(s.histories[s.activeID])
	if !ok {
		return false, nil
	}

	s.replaying = true
	defer func() { s.replaying = false }()

	s.live = g
	s.sched.MarkAll()
	s.changedLocked(OriginHistory, true, true)
	return true, nil
}

// changedLocked runs the reactions shared by every mutation: a completed edit
// settles containment and is recorded in history (unless a replay is in
// progress), structural changes are persisted, and subscribers are told.
func (s *Store) changedLocked(origin Origin, structural, record bool) {
	if record && !s.replaying {
		s.flushContainmentLocked()
		if s.histories[s.activeID].Push(s.live) {
			historySnapshotsTotal.Inc()
		}
	}
	if structural {
		s.schedulePersistLocked()
	}
	s.scheduleFrameLocked()
	s.emitGraphChanged(origin)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
