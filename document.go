package canvas

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// DocumentVersion is written into every encoded document.
const DocumentVersion = "2.0"

// Document is the persisted record of a workspace set. The legacy single-graph
// shape (top-level nodes/edges) is accepted on decode and converted into a
// single workspace; encode always writes the multi-workspace shape.
type Document struct {
	Version    string      `json:"version"`
	Workspaces []Workspace `json:"workspaces"`

	// Dropped counts nodes, edges, and membership entries discarded as corrupt during decode.
	Dropped int `json:"-"`
}

type rawDocument struct {
	Version    string       `json:"version"`
	Workspaces *[]Workspace `json:"workspaces"`
	Nodes      *[]Node      `json:"nodes"`
	Edges      *[]Edge      `json:"edges"`
}

// LoadError reports a document that cannot be loaded. The current state is left untouched.
type LoadError struct {
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("canvas: load document: %s: %v", e.Reason, e.Err)
	}
	return "canvas: load document: " + e.Reason
}

func (e *LoadError) Unwrap() error { return e.Err }

// DecodeDocument parses and normalizes a persisted document.
//
// Normalization gives every edge a path type (orthogonal when absent) and forces
// it deletable. Edges whose endpoints are missing, duplicate nodes or edges, and
// membership entries naming missing nodes are dropped.
func DecodeDocument(data []byte) (*Document, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &LoadError{Reason: "invalid json", Err: err}
	}
	if raw.Workspaces == nil && raw.Nodes == nil && raw.Edges == nil {
		return nil, &LoadError{Reason: "no workspaces or graph present"}
	}

	doc := &Document{Version: raw.Version}
	switch {
	case raw.Workspaces != nil && len(*raw.Workspaces) > 0:
		doc.Workspaces = *raw.Workspaces
	case raw.Nodes != nil || raw.Edges != nil:
		ws := NewWorkspace("Workspace 1")
		if raw.Nodes != nil {
			ws.Nodes = *raw.Nodes
		}
		if raw.Edges != nil {
			ws.Edges = *raw.Edges
		}
		doc.Workspaces = []Workspace{ws}
	default:
		doc.Workspaces = []Workspace{NewWorkspace("Workspace 1")}
	}

	seen := make(map[string]bool, len(doc.Workspaces))
	for i := range doc.Workspaces {
		ws := &doc.Workspaces[i]
		if ws.ID == "" {
			return nil, &LoadError{Reason: fmt.Sprintf("workspace %d has no id", i)}
		}
		if seen[ws.ID] {
			return nil, &LoadError{Reason: fmt.Sprintf("duplicate workspace id %q", ws.ID)}
		}
		seen[ws.ID] = true

		dropped, err := normalizeWorkspace(ws)
		if err != nil {
			return nil, &LoadError{Reason: fmt.Sprintf("workspace %q", ws.ID), Err: err}
		}
		doc.Dropped += dropped
	}
	return doc, nil
}

// EncodeDocument serializes a workspace set in the multi-workspace shape.
func EncodeDocument(workspaces []Workspace) ([]byte, error) {
	data, err := json.Marshal(Document{Version: DocumentVersion, Workspaces: workspaces})
	if err != nil {
		return nil, fmt.Errorf("canvas: encode document: %w", err)
	}
	return data, nil
}

// NewWorkspace returns an empty workspace with a fresh ID.
func NewWorkspace(name string) Workspace {
	return Workspace{
		ID:    uuid.NewString(),
		Name:  name,
		Nodes: []Node{},
		Edges: []Edge{},
	}
}

// normalizeWorkspace repairs ws in place and returns how many entries it dropped.
func normalizeWorkspace(ws *Workspace) (int, error) {
	dropped := 0

	nodes := make([]Node, 0, len(ws.Nodes))
	ids := make(map[string]bool, len(ws.Nodes))
	for _, n := range ws.Nodes {
		if n.ID == "" {
			return 0, fmt.Errorf("%w: node without id", ErrInvalidChange)
		}
		if ids[n.ID] {
			dropped++
			continue
		}
		ids[n.ID] = true
		nodes = append(nodes, n)
	}

	for i := range nodes {
		n := &nodes[i]
		NormalizeNode(n)
		if n.Data.Containment == nil {
			continue
		}
		kept := make([]string, 0, len(n.Data.Containment.ChildNodeIDs))
		members := make(map[string]bool)
		for _, id := range n.Data.Containment.ChildNodeIDs {
			if id == n.ID || !ids[id] || members[id] {
				dropped++
				continue
			}
			members[id] = true
			kept = append(kept, id)
		}
		n.Data.Containment.ChildNodeIDs = kept
	}

	edges := make([]Edge, 0, len(ws.Edges))
	edgeIDs := make(map[string]bool, len(ws.Edges))
	for _, e := range ws.Edges {
		if e.ID == "" || edgeIDs[e.ID] || !ids[e.Source] || !ids[e.Target] {
			dropped++
			continue
		}
		edgeIDs[e.ID] = true
		NormalizeEdge(&e)
		edges = append(edges, e)
	}

	ws.Nodes = nodes
	ws.Edges = edges
	return dropped, nil
}

// NormalizeNode gives container types a containment record and strips it from
// every other type.
func NormalizeNode(n *Node) {
	switch {
	case !n.IsContainer():
		n.Data.Containment = nil
	case n.Data.Containment == nil:
		n.Data.Containment = &Containment{ChildNodeIDs: []string{}}
	case n.Data.Containment.ChildNodeIDs == nil:
		n.Data.Containment.ChildNodeIDs = []string{}
	}
}

// NormalizeEdge applies the load-time defaults to e.
func NormalizeEdge(e *Edge) {
	if e.Data.PathType == "" {
		e.Data.PathType = PathOrthogonal
	}
	e.Deletable = true
}
