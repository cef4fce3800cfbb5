// Package geometry keeps edge control geometry rigid relative to the nodes it
// connects while those nodes are dragged.
package geometry

import (
	"sort"

	"github.com/meikuraledutech/canvas"
)

// Delta is a position change of a single node.
type Delta struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// Zero reports whether d moves nothing.
func (d Delta) Zero() bool { return d.DX == 0 && d.DY == 0 }

// Batch holds the deltas produced by one drag interaction, keyed by node ID.
type Batch map[string]Delta

// Average returns the mean of every delta in the batch.
func (b Batch) Average() Delta {
	if len(b) == 0 {
		return Delta{}
	}
	var sum Delta
	for _, id := range b.ids() {
		sum.DX += b[id].DX
		sum.DY += b[id].DY
	}
	n := float64(len(b))
	return Delta{DX: sum.DX / n, DY: sum.DY / n}
}

// ids returns the batch keys in a stable order.
func (b Batch) ids() []string {
	ids := make([]string, 0, len(b))
	for id := range b {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Propagate extends batch with the nodes that move rigidly with the dragged ones:
// every node sharing a groupId with a moved node, and the current members of a
// moved container. Each follower receives the delta of the node that pulled it in;
// nodes already in the batch keep their own delta. The input batch is not modified.
func Propagate(nodes []canvas.Node, batch Batch) Batch {
	out := make(Batch, len(batch))
	for id, d := range batch {
		out[id] = d
	}
	if len(batch) == 0 {
		return out
	}

	byGroup := make(map[string][]string)
	idx := canvas.IndexNodes(nodes)
	for i := range nodes {
		if g := nodes[i].Data.GroupID; g != "" {
			byGroup[g] = append(byGroup[g], nodes[i].ID)
		}
	}

	queue := batch.ids()
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		i, ok := idx[id]
		if !ok {
			continue
		}
		d := out[id]
		n := &nodes[i]

		var followers []string
		if g := n.Data.GroupID; g != "" {
			followers = append(followers, byGroup[g]...)
		}
		if n.Data.Containment != nil {
			followers = append(followers, n.Data.Containment.ChildNodeIDs...)
		}
		for _, f := range followers {
			if _, moved := out[f]; moved {
				continue
			}
			if _, exists := idx[f]; !exists {
				continue
			}
			out[f] = d
			queue = append(queue, f)
		}
	}
	return out
}

// TranslateEdges moves the control geometry of every edge affected by batch and
// returns how many edges changed.
//
// An edge whose source or target moved is translated by that node's delta; when
// both moved it is translated by the average of the two. An edge with neither
// endpoint in the batch but carrying the groupId of a moved node is translated by
// the average of the whole batch.
func TranslateEdges(edges []canvas.Edge, nodes []canvas.Node, batch Batch) int {
	if len(batch) == 0 {
		return 0
	}

	movedGroups := make(map[string]bool)
	for i := range nodes {
		if _, ok := batch[nodes[i].ID]; ok && nodes[i].Data.GroupID != "" {
			movedGroups[nodes[i].Data.GroupID] = true
		}
	}

	changed := 0
	var batchAvg *Delta
	for i := range edges {
		e := &edges[i]
		src, srcMoved := batch[e.Source]
		dst, dstMoved := batch[e.Target]

		var d Delta
		switch {
		case srcMoved && dstMoved:
			d = Delta{DX: (src.DX + dst.DX) / 2, DY: (src.DY + dst.DY) / 2}
		case srcMoved:
			d = src
		case dstMoved:
			d = dst
		case e.Data.GroupID != "" && movedGroups[e.Data.GroupID]:
			if batchAvg == nil {
				avg := batch.Average()
				batchAvg = &avg
			}
			d = *batchAvg
		default:
			continue
		}

		if d.Zero() {
			continue
		}
		if Translate(&e.Data.Geometry, d) {
			changed++
		}
	}
	return changed
}

// Translate moves every geometry representation present in g by d.
// Vertical segments only follow the horizontal component. A record holding no
// representation is left untouched and reported as unchanged.
func Translate(g *canvas.Geometry, d Delta) bool {
	changed := false
	if len(g.Waypoints) > 0 {
		for i := range g.Waypoints {
			g.Waypoints[i].X += d.DX
			g.Waypoints[i].Y += d.DY
		}
		changed = true
	}
	if g.Waypoint != nil {
		g.Waypoint.X += d.DX
		g.Waypoint.Y += d.DY
		changed = true
	}
	if g.VerticalSegmentX != nil {
		*g.VerticalSegmentX += d.DX
		changed = true
	}
	return changed
}
