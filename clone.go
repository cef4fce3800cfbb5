package canvas

// Clone creates a deep copy of the node.
func (n Node) Clone() Node {
	c := n
	c.Style = cloneMap(n.Style)
	c.Data.Config = cloneMap(n.Data.Config)
	if n.Data.Containment != nil {
		ct := *n.Data.Containment
		ct.ChildNodeIDs = append([]string(nil), n.Data.Containment.ChildNodeIDs...)
		c.Data.Containment = &ct
	}
	return c
}

// Clone creates a deep copy of the edge.
func (e Edge) Clone() Edge {
	c := e
	c.Data.Geometry = e.Data.Geometry.Clone()
	return c
}

// Clone creates a deep copy of the geometry record.
func (g Geometry) Clone() Geometry {
	var c Geometry
	if g.Waypoint != nil {
		p := *g.Waypoint
		c.Waypoint = &p
	}
	if g.Waypoints != nil {
		c.Waypoints = append([]Waypoint(nil), g.Waypoints...)
	}
	if g.VerticalSegmentX != nil {
		v := *g.VerticalSegmentX
		c.VerticalSegmentX = &v
	}
	return c
}

// CloneNodes deep-copies a node slice. A nil input yields an empty slice.
func CloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i := range nodes {
		out[i] = nodes[i].Clone()
	}
	return out
}

// CloneEdges deep-copies an edge slice. A nil input yields an empty slice.
func CloneEdges(edges []Edge) []Edge {
	out := make([]Edge, len(edges))
	for i := range edges {
		out[i] = edges[i].Clone()
	}
	return out
}

// Clone creates a deep copy of the graph.
func (g Graph) Clone() Graph {
	return Graph{Nodes: CloneNodes(g.Nodes), Edges: CloneEdges(g.Edges)}
}

// Clone creates a deep copy of the workspace.
func (w Workspace) Clone() Workspace {
	c := w
	c.Nodes = CloneNodes(w.Nodes)
	c.Edges = CloneEdges(w.Edges)
	if w.Viewport != nil {
		v := *w.Viewport
		c.Viewport = &v
	}
	return c
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}
