package canvas

// ChangeKind identifies what a NodeChange or EdgeChange does.
type ChangeKind string

const (
	ChangeAdd        ChangeKind = "add"
	ChangeRemove     ChangeKind = "remove"
	ChangeReplace    ChangeKind = "replace"
	ChangePosition   ChangeKind = "position"
	ChangeDimensions ChangeKind = "dimensions"
	ChangeSelect     ChangeKind = "select"
	ChangeLabel      ChangeKind = "label"
)

// NodeChange is one entry of a node change batch.
//
// Position changes carry the new absolute position; Dragging is true for
// in-flight drag frames and false on release. Dimensions changes carry the new
// size; Manual marks a user resize (as opposed to a size reported by the
// renderer) and Resizing is true while the resize handle is still held.
type NodeChange struct {
	Kind       ChangeKind `json:"type"`
	ID         string     `json:"id,omitempty"`
	Position   *Point     `json:"position,omitempty"`
	Dragging   bool       `json:"dragging,omitempty"`
	Dimensions *Size      `json:"dimensions,omitempty"`
	Resizing   bool       `json:"resizing,omitempty"`
	Manual     bool       `json:"manual,omitempty"`
	Selected   bool       `json:"selected,omitempty"`
	Item       *Node      `json:"item,omitempty"`
}

// Structural reports whether applying c modifies the graph rather than only selection.
func (c NodeChange) Structural() bool {
	return c.Kind != ChangeSelect
}

// Completes reports whether c ends an edit and should be recorded in history.
func (c NodeChange) Completes() bool {
	switch c.Kind {
	case ChangeAdd, ChangeRemove, ChangeReplace:
		return true
	case ChangePosition:
		return !c.Dragging
	case ChangeDimensions:
		return c.Manual && !c.Resizing
	}
	return false
}

// EdgeChange is one entry of an edge change batch.
type EdgeChange struct {
	Kind     ChangeKind `json:"type"`
	ID       string     `json:"id,omitempty"`
	Selected bool       `json:"selected,omitempty"`
	Label    string     `json:"label,omitempty"`
	Item     *Edge      `json:"item,omitempty"`
}

// Structural reports whether applying c modifies the graph rather than only selection.
func (c EdgeChange) Structural() bool {
	return c.Kind != ChangeSelect
}

// Completes reports whether c ends an edit and should be recorded in history.
// Label edits are cosmetic and never recorded.
func (c EdgeChange) Completes() bool {
	switch c.Kind {
	case ChangeAdd, ChangeRemove, ChangeReplace:
		return true
	}
	return false
}

// Connection is the payload of a connect gesture.
type Connection struct {
	Source         string   `json:"source"`
	Target         string   `json:"target"`
	SourceHandle   string   `json:"sourceHandle,omitempty"`
	TargetHandle   string   `json:"targetHandle,omitempty"`
	ConnectionType string   `json:"connectionType,omitempty"`
	PathType       PathType `json:"pathType,omitempty"`
}

// Selection names the nodes and edges affected by a delete or group action.
type Selection struct {
	NodeIDs []string `json:"nodeIds"`
	EdgeIDs []string `json:"edgeIds,omitempty"`
}

// Empty reports whether s names nothing.
func (s Selection) Empty() bool {
	return len(s.NodeIDs) == 0 && len(s.EdgeIDs) == 0
}
