package canvas_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/meikuraledutech/canvas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const multiDoc = `{
  "version": "2.0",
  "workspaces": [
    {
      "id": "w1",
      "name": "Payments",
      "locked": true,
      "viewport": {"x": -120, "y": 40, "zoom": 0.75},
      "nodes": [
        {"id": "sys", "type": "system", "position": {"x": 0, "y": 0}, "width": 600, "height": 400,
         "data": {"label": "Core", "containment": {"childNodeIds": ["api", "api", "ghost", "sys"], "manuallyResized": true}}},
        {"id": "api", "type": "service", "position": {"x": 100, "y": 100},
         "data": {"label": "API", "groupId": "g1", "config": {"replicas": 3, "tags": ["a", "b"]}}},
        {"id": "db", "type": "database", "position": {"x": 800, "y": 100}, "data": {"label": "DB", "groupId": "g1"}}
      ],
      "edges": [
        {"id": "e1", "source": "api", "target": "db", "deletable": false,
         "data": {"connectionType": "tcp", "groupId": "g1", "verticalSegmentX": 450,
                  "waypoints": [{"x": 300, "y": 120, "id": "wp1"}, {"x": 450, "y": 120}]}},
        {"id": "e2", "source": "db", "target": "nowhere", "data": {}},
        {"id": "e1", "source": "db", "target": "api", "data": {}}
      ]
    },
    {"id": "w2", "name": "Empty"}
  ]
}`

func TestDecodeDocument_MultiWorkspace(t *testing.T) {
	doc, err := canvas.DecodeDocument([]byte(multiDoc))
	require.NoError(t, err)
	require.Len(t, doc.Workspaces, 2)
	assert.Equal(t, 5, doc.Dropped)

	w1 := doc.Workspaces[0]
	assert.True(t, w1.Locked)
	assert.Equal(t, &canvas.Viewport{X: -120, Y: 40, Zoom: 0.75}, w1.Viewport)
	require.Len(t, w1.Nodes, 3)

	sys := w1.Nodes[0]
	require.NotNil(t, sys.Data.Containment)
	assert.Equal(t, []string{"api"}, sys.Data.Containment.ChildNodeIDs)
	assert.True(t, sys.Data.Containment.ManuallyResized)
	assert.Nil(t, w1.Nodes[1].Data.Containment)

	require.Len(t, w1.Edges, 1)
	e := w1.Edges[0]
	assert.True(t, e.Deletable)
	assert.Equal(t, canvas.PathOrthogonal, e.Data.PathType)
	assert.Equal(t, "g1", e.Data.GroupID)
	require.NotNil(t, e.Data.VerticalSegmentX)
	assert.Equal(t, 450.0, *e.Data.VerticalSegmentX)
	assert.Equal(t, []canvas.Waypoint{{X: 300, Y: 120, ID: "wp1"}, {X: 450, Y: 120}}, e.Data.Waypoints)

	w2 := doc.Workspaces[1]
	assert.Empty(t, w2.Nodes)
	assert.Empty(t, w2.Edges)
}

func TestDecodeDocument_Legacy(t *testing.T) {
	data := `{"nodes":[{"id":"a","type":"container","position":{"x":0,"y":0},"data":{"label":"A"}}],
		"edges":[{"id":"x","source":"a","target":"a","data":{"pathType":"bezier"}}]}`

	doc, err := canvas.DecodeDocument([]byte(data))
	require.NoError(t, err)
	require.Len(t, doc.Workspaces, 1)

	ws := doc.Workspaces[0]
	assert.NotEmpty(t, ws.ID)
	assert.Equal(t, "Workspace 1", ws.Name)
	require.Len(t, ws.Nodes, 1)
	require.NotNil(t, ws.Nodes[0].Data.Containment)
	assert.Equal(t, []string{}, ws.Nodes[0].Data.Containment.ChildNodeIDs)
	assert.Equal(t, canvas.PathBezier, ws.Edges[0].Data.PathType)
}

func TestDecodeDocument_EmptyWorkspaceList(t *testing.T) {
	doc, err := canvas.DecodeDocument([]byte(`{"version":"2.0","workspaces":[]}`))
	require.NoError(t, err)
	require.Len(t, doc.Workspaces, 1)
	assert.Empty(t, doc.Workspaces[0].Nodes)
}

func TestDecodeDocument_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `{"workspaces": [`},
		{"not an object", `[1, 2]`},
		{"nothing present", `{"version":"2.0"}`},
		{"workspace without id", `{"workspaces":[{"name":"x"}]}`},
		{"duplicate workspace", `{"workspaces":[{"id":"a"},{"id":"a"}]}`},
		{"node without id", `{"workspaces":[{"id":"a","nodes":[{"type":"service"}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := canvas.DecodeDocument([]byte(tt.data))
			var loadErr *canvas.LoadError
			assert.ErrorAs(t, err, &loadErr)
		})
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	first, err := canvas.DecodeDocument([]byte(multiDoc))
	require.NoError(t, err)

	data, err := canvas.EncodeDocument(first.Workspaces)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version":"2.0"`)

	second, err := canvas.DecodeDocument(data)
	require.NoError(t, err)
	assert.Zero(t, second.Dropped)
	assert.Empty(t, cmp.Diff(first.Workspaces, second.Workspaces, cmpopts.EquateEmpty()))
}

func TestNewWorkspace(t *testing.T) {
	a := canvas.NewWorkspace("A")
	b := canvas.NewWorkspace("B")
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotNil(t, a.Nodes)
	assert.NotNil(t, a.Edges)
}
