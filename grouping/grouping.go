// Package grouping turns a node selection into a persisted group by expanding it
// across the connectivity graph.
package grouping

import (
	"fmt"
	"slices"

	"github.com/meikuraledutech/canvas"
)

// Result is a resolved group: the ID and every node and edge that carries it.
type Result struct {
	GroupID string   `json:"groupId"`
	NodeIDs []string `json:"nodeIds"`
	EdgeIDs []string `json:"edgeIds"`
}

// Empty reports whether r groups nothing.
func (r Result) Empty() bool {
	return len(r.NodeIDs) == 0
}

// Resolve expands selection to its connected component within the subgraph of
// non-container nodes that are ungrouped or already in the target group.
//
// When no selected node is grouped, the target group is a fresh ID from newID.
// When the selected nodes carry exactly one existing group, that group is
// extended and keeps its ID. A selection spanning more than one existing group
// is rejected with ErrSelectionSpansGroups. An empty selection resolves to an
// empty Result.
func Resolve(nodes []canvas.Node, edges []canvas.Edge, selection []string, newID func() string) (Result, error) {
	if len(selection) == 0 {
		return Result{}, nil
	}

	idx := canvas.IndexNodes(nodes)
	existing := ""
	for _, id := range selection {
		i, ok := idx[id]
		if !ok {
			return Result{}, fmt.Errorf("%w: %s", canvas.ErrNodeNotFound, id)
		}
		g := nodes[i].Data.GroupID
		if g == "" {
			continue
		}
		if existing != "" && existing != g {
			return Result{}, canvas.ErrSelectionSpansGroups
		}
		existing = g
	}

	groupID := existing
	if groupID == "" {
		groupID = newID()
	}

	in := make(map[string]bool, len(selection))
	for _, id := range selection {
		in[id] = true
	}
	if existing != "" {
		for i := range nodes {
			if nodes[i].Data.GroupID == existing {
				in[nodes[i].ID] = true
			}
		}
	}

	eligible := func(id string) bool {
		i, ok := idx[id]
		if !ok {
			return false
		}
		n := &nodes[i]
		if n.IsContainer() {
			return false
		}
		return n.Data.GroupID == "" || n.Data.GroupID == groupID
	}

	for added := true; added; {
		added = false
		for _, e := range edges {
			src, dst := in[e.Source], in[e.Target]
			switch {
			case src && !dst && eligible(e.Target):
				in[e.Target] = true
				added = true
			case dst && !src && eligible(e.Source):
				in[e.Source] = true
				added = true
			}
		}
	}

	r := Result{GroupID: groupID}
	for i := range nodes {
		if in[nodes[i].ID] {
			r.NodeIDs = append(r.NodeIDs, nodes[i].ID)
		}
	}
	for _, e := range edges {
		if in[e.Source] && in[e.Target] {
			r.EdgeIDs = append(r.EdgeIDs, e.ID)
		}
	}
	return r, nil
}

// Apply tags the nodes and edges named in r with its group ID.
func Apply(nodes []canvas.Node, edges []canvas.Edge, r Result) {
	for i := range nodes {
		if slices.Contains(r.NodeIDs, nodes[i].ID) {
			nodes[i].Data.GroupID = r.GroupID
		}
	}
	for i := range edges {
		if slices.Contains(r.EdgeIDs, edges[i].ID) {
			edges[i].Data.GroupID = r.GroupID
		}
	}
}

// Ungroup clears groupID from every node and edge carrying it and returns how
// many entries changed.
func Ungroup(nodes []canvas.Node, edges []canvas.Edge, groupID string) int {
	if groupID == "" {
		return 0
	}
	n := 0
	for i := range nodes {
		if nodes[i].Data.GroupID == groupID {
			nodes[i].Data.GroupID = ""
			n++
		}
	}
	for i := range edges {
		if edges[i].Data.GroupID == groupID {
			edges[i].Data.GroupID = ""
			n++
		}
	}
	return n
}
