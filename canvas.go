package canvas

// Graph is the node/edge pair that makes up one editable diagram.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node represents a component on the diagram (service, store, gateway, container...).
// Width and Height are zero until measured or set; use SizeOr to resolve a size.
type Node struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Position Point          `json:"position"`
	Width    float64        `json:"width,omitempty"`
	Height   float64        `json:"height,omitempty"`
	Style    map[string]any `json:"style,omitempty"`
	Selected bool           `json:"selected,omitempty"`
	Data     NodeData       `json:"data"`
}

// NodeData is the data bag carried by every node.
// Containment is only set on container-capable node types.
type NodeData struct {
	Label       string         `json:"label"`
	GroupID     string         `json:"groupId,omitempty"`
	Containment *Containment   `json:"containment,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
}

// Containment records which nodes a container currently encloses.
type Containment struct {
	ChildNodeIDs    []string `json:"childNodeIds"`
	ManuallyResized bool     `json:"manuallyResized"`
}

// Edge represents a typed connection between two nodes.
type Edge struct {
	ID           string   `json:"id"`
	Source       string   `json:"source"`
	Target       string   `json:"target"`
	SourceHandle string   `json:"sourceHandle,omitempty"`
	TargetHandle string   `json:"targetHandle,omitempty"`
	Deletable    bool     `json:"deletable"`
	Selected     bool     `json:"selected,omitempty"`
	Data         EdgeData `json:"data"`
}

// EdgeData is the data bag carried by every edge. The geometry fields are inlined.
type EdgeData struct {
	ConnectionType string   `json:"connectionType"`
	Label          string   `json:"label,omitempty"`
	PathType       PathType `json:"pathType,omitempty"`
	GroupID        string   `json:"groupId,omitempty"`
	Geometry
}

// Geometry holds the control geometry of an edge. Exactly one representation is
// expected to be present: the legacy single Waypoint, the Waypoints list, or
// VerticalSegmentX for orthogonal routing.
type Geometry struct {
	Waypoint         *Point     `json:"waypoint,omitempty"`
	Waypoints        []Waypoint `json:"waypoints,omitempty"`
	VerticalSegmentX *float64   `json:"verticalSegmentX,omitempty"`
}

// PathType selects how an edge path is routed.
type PathType string

const (
	PathOrthogonal PathType = "smoothstep"
	PathStraight   PathType = "straight"
	PathBezier     PathType = "bezier"
	PathWaypoints  PathType = "waypoints"
)

// Waypoint is a user-adjustable control point on an edge.
type Waypoint struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	ID string  `json:"id,omitempty"`
}

// Workspace is one independent, named graph among several.
type Workspace struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Nodes    []Node    `json:"nodes"`
	Edges    []Edge    `json:"edges"`
	Viewport *Viewport `json:"viewport,omitempty"`
	Locked   bool      `json:"locked,omitempty"`
}

// Graph returns the workspace's nodes and edges (not copied).
func (w *Workspace) Graph() Graph {
	return Graph{Nodes: w.Nodes, Edges: w.Edges}
}

// Viewport is the persisted pan/zoom of a workspace.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// Node types that can contain other nodes.
const (
	TypeSystem    = "system"
	TypeContainer = "container"
	TypeGroup     = "group"
)

// IsContainerType reports whether nodes of type t hold a containment record.
func IsContainerType(t string) bool {
	switch t {
	case TypeSystem, TypeContainer, TypeGroup:
		return true
	}
	return false
}

// IsContainer reports whether n is a container-capable node.
func (n *Node) IsContainer() bool {
	return IsContainerType(n.Type)
}

// SizeOr returns the node's size, falling back to def for unset dimensions.
func (n *Node) SizeOr(def Size) Size {
	s := Size{W: n.Width, H: n.Height}
	if s.W <= 0 {
		s.W = def.W
	}
	if s.H <= 0 {
		s.H = def.H
	}
	return s
}

// Box returns the node's bounding rectangle using def for unset dimensions.
func (n *Node) Box(def Size) Rect {
	s := n.SizeOr(def)
	return Rect{X: n.Position.X, Y: n.Position.Y, W: s.W, H: s.H}
}

// IndexNodes maps node IDs to their index in nodes.
func IndexNodes(nodes []Node) map[string]int {
	idx := make(map[string]int, len(nodes))
	for i := range nodes {
		idx[nodes[i].ID] = i
	}
	return idx
}

// IndexEdges maps edge IDs to their index in edges.
func IndexEdges(edges []Edge) map[string]int {
	idx := make(map[string]int, len(edges))
	for i := range edges {
		idx[edges[i].ID] = i
	}
	return idx
}
