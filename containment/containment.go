// Package containment keeps container nodes' membership and size consistent
// with the nodes spatially inside them.
//
// A plain node is a member of a container when its center lies inside the
// container's box. Containers never become members of other containers. Unless
// a container was resized by hand, its box is recomputed as the bounding box of
// its members plus padding, clamped to the minimum size for its type; its
// position is never moved.
package containment

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/meikuraledutech/canvas"
)

// Options configures the engine.
type Options struct {
	// Padding is added around the members' bounding box.
	Padding float64
	// MinSizes holds the minimum (and empty) size per container type.
	MinSizes map[string]canvas.Size
	// NodeSize is used for nodes without measured dimensions.
	NodeSize canvas.Size
}

// DefaultOptions returns the sizes used by the editor.
func DefaultOptions() Options {
	return Options{
		Padding: 40,
		MinSizes: map[string]canvas.Size{
			canvas.TypeSystem:    {W: 600, H: 400},
			canvas.TypeContainer: {W: 400, H: 300},
			canvas.TypeGroup:     {W: 300, H: 200},
		},
		NodeSize: canvas.Size{W: 160, H: 80},
	}
}

// Result is the outcome of recomputing one container.
type Result struct {
	ContainerID string      `json:"containerId"`
	Box         canvas.Rect `json:"box"`
	Members     []string    `json:"members"`

	Resized           bool `json:"resized"`
	MembershipChanged bool `json:"membershipChanged"`
}

// Changed reports whether applying r would modify the container.
func (r Result) Changed() bool {
	return r.Resized || r.MembershipChanged
}

// Engine computes container membership and boxes. It holds no graph state.
type Engine struct {
	opts   Options
	logger *slog.Logger
}

// New creates an engine. A nil logger uses slog.Default().
func New(opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MinSizes == nil {
		opts.MinSizes = DefaultOptions().MinSizes
	}
	if opts.NodeSize.W <= 0 || opts.NodeSize.H <= 0 {
		opts.NodeSize = DefaultOptions().NodeSize
	}
	return &Engine{opts: opts, logger: logger}
}

// MinSize returns the minimum size of a container of the given type.
func (e *Engine) MinSize(nodeType string) canvas.Size {
	if s, ok := e.opts.MinSizes[nodeType]; ok {
		return s
	}
	return e.opts.NodeSize
}

// BoxOf returns the box of n, resolving unset dimensions from its type.
func (e *Engine) BoxOf(n *canvas.Node) canvas.Rect {
	if n.IsContainer() {
		return n.Box(e.MinSize(n.Type))
	}
	return n.Box(e.opts.NodeSize)
}

// Recompute evaluates the containers named in ids, or every container when ids
// is nil. A container that fails to compute is logged and skipped; the others
// are still evaluated. Recompute does not modify nodes.
func (e *Engine) Recompute(nodes []canvas.Node, ids []string) []Result {
	var want map[string]bool
	if ids != nil {
		want = make(map[string]bool, len(ids))
		for _, id := range ids {
			want[id] = true
		}
	}

	var results []Result
	for i := range nodes {
		c := &nodes[i]
		if !c.IsContainer() || (want != nil && !want[c.ID]) {
			continue
		}
		r, err := e.recomputeOne(nodes, c)
		if err != nil {
			e.logger.Warn("containment recompute failed", "container_id", c.ID, "error", err)
			continue
		}
		results = append(results, r)
	}
	return results
}

func (e *Engine) recomputeOne(nodes []canvas.Node, c *canvas.Node) (r Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("containment: container %s: %v", c.ID, p)
		}
	}()

	box := e.BoxOf(c)
	if !box.Finite() {
		return Result{}, fmt.Errorf("containment: container %s has a non-finite box", c.ID)
	}

	manual := c.Data.Containment != nil && c.Data.Containment.ManuallyResized
	members, bound := e.collect(nodes, c, box)
	next := e.size(c, box, members, bound, manual)

	// A grown box can take in further nodes, which can grow it again. Members
	// always stay inside the box sized for them, so the set only grows and the
	// loop ends within len(nodes) rounds.
	for round := 0; !manual && round < len(nodes); round++ {
		more, moreBound := e.collect(nodes, c, next)
		if len(more) == len(members) {
			break
		}
		members, bound = more, moreBound
		next = e.size(c, box, members, bound, manual)
	}

	var current []string
	if c.Data.Containment != nil {
		current = c.Data.Containment.ChildNodeIDs
	}
	if members == nil {
		members = []string{}
	}
	return Result{
		ContainerID:       c.ID,
		Box:               next,
		Members:           members,
		Resized:           next.W != c.Width || next.H != c.Height,
		MembershipChanged: !sameSet(current, members),
	}, nil
}

// collect returns the non-container nodes whose center lies in box, plus the
// nodes tagged with a group container's own groupId, and their bounding box.
func (e *Engine) collect(nodes []canvas.Node, c *canvas.Node, box canvas.Rect) ([]string, canvas.Rect) {
	var members []string
	var bound canvas.Rect
	for i := range nodes {
		n := &nodes[i]
		if n.ID == c.ID || n.IsContainer() {
			continue
		}
		nb := e.BoxOf(n)
		if !nb.Finite() {
			continue
		}
		inside := box.Contains(nb.Center())
		if !inside && c.Type == canvas.TypeGroup && c.Data.GroupID != "" {
			inside = n.Data.GroupID == c.Data.GroupID
		}
		if !inside {
			continue
		}
		if len(members) == 0 {
			bound = nb
		} else {
			bound = bound.Union(nb)
		}
		members = append(members, n.ID)
	}
	return members, bound
}

// size returns the box for c given its members. The origin never moves, so the
// box grows and shrinks on its right and bottom edges only.
func (e *Engine) size(c *canvas.Node, box canvas.Rect, members []string, bound canvas.Rect, manual bool) canvas.Rect {
	next := box
	switch {
	case manual:
	case len(members) == 0:
		floor := e.MinSize(c.Type)
		next.W, next.H = floor.W, floor.H
	default:
		floor := e.MinSize(c.Type)
		next.W = math.Max(floor.W, bound.Right()+e.opts.Padding-box.X)
		next.H = math.Max(floor.H, bound.Bottom()+e.opts.Padding-box.Y)
	}
	return next
}

// Apply writes the changed results into nodes and returns the results it applied.
// Results naming containers that no longer exist are ignored.
func Apply(nodes []canvas.Node, results []Result) []Result {
	idx := canvas.IndexNodes(nodes)
	var applied []Result
	for _, r := range results {
		i, ok := idx[r.ContainerID]
		if !ok || !r.Changed() {
			continue
		}
		n := &nodes[i]
		if n.Data.Containment == nil {
			n.Data.Containment = &canvas.Containment{}
		}
		n.Data.Containment.ChildNodeIDs = slices.Clone(r.Members)
		n.Width, n.Height = r.Box.W, r.Box.H
		applied = append(applied, r)
	}
	return applied
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	in := make(map[string]bool, len(a))
	for _, id := range a {
		in[id] = true
	}
	for _, id := range b {
		if !in[id] {
			return false
		}
	}
	return true
}
