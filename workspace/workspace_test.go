package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequence returns an ID generator producing prefix-1, prefix-2, ...
func sequence(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func openStore(t *testing.T, backend canvas.Store, tweak ...func(*Options)) *Store {
	t.Helper()
	opts := Options{
		PersistDebounce: time.Hour,
		FrameInterval:   time.Hour,
		NewID:           sequence("id"),
	}
	for _, fn := range tweak {
		fn(&opts)
	}
	s, err := Open(context.Background(), backend, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func addNode(t *testing.T, s *Store, n canvas.Node) {
	t.Helper()
	require.NoError(t, s.ApplyNodeChanges([]canvas.NodeChange{{Kind: canvas.ChangeAdd, Item: &n}}))
}

func drag(t *testing.T, s *Store, id string, to canvas.Point) {
	t.Helper()
	require.NoError(t, s.ApplyNodeChanges([]canvas.NodeChange{{Kind: canvas.ChangePosition, ID: id, Position: &to, Dragging: true}}))
	require.NoError(t, s.ApplyNodeChanges([]canvas.NodeChange{{Kind: canvas.ChangePosition, ID: id, Position: &to}}))
}

func findNode(t *testing.T, g canvas.Graph, id string) canvas.Node {
	t.Helper()
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	t.Fatalf("node %s not found", id)
	return canvas.Node{}
}

func findEdge(t *testing.T, g canvas.Graph, id string) canvas.Edge {
	t.Helper()
	for _, e := range g.Edges {
		if e.ID == id {
			return e
		}
	}
	t.Fatalf("edge %s not found", id)
	return canvas.Edge{}
}

func service(id string, x, y float64) canvas.Node {
	return canvas.Node{ID: id, Type: "service", Position: canvas.Point{X: x, Y: y}, Width: 100, Height: 50, Data: canvas.NodeData{Label: id}}
}

func TestOpen_EmptyBackend(t *testing.T) {
	s := openStore(t, memstore.New())

	ws := s.Workspaces()
	require.Len(t, ws, 1)
	assert.Equal(t, ws[0].ID, s.ActiveID())
	assert.Empty(t, s.Graph().Nodes)
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())
}

func TestOpen_RejectsMalformedDocument(t *testing.T) {
	backend := memstore.New()
	require.NoError(t, backend.Save(context.Background(), DefaultKey, []byte("{not json")))

	_, err := Open(context.Background(), backend, Options{})
	var loadErr *canvas.LoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestExampleScenario_DragAndUndo(t *testing.T) {
	s := openStore(t, memstore.New())

	addNode(t, s, canvas.Node{ID: "A", Type: canvas.TypeSystem, Width: 600, Height: 400, Data: canvas.NodeData{Label: "A"}})
	addNode(t, s, canvas.Node{ID: "B", Type: "service", Position: canvas.Point{X: 100, Y: 100}, Width: 200, Height: 120, Data: canvas.NodeData{Label: "B"}})

	a := findNode(t, s.Graph(), "A")
	assert.Equal(t, []string{"B"}, a.Data.Containment.ChildNodeIDs)
	assert.GreaterOrEqual(t, a.Width, 600.0)
	assert.GreaterOrEqual(t, a.Height, 400.0)

	drag(t, s, "B", canvas.Point{X: 150, Y: 130})
	assert.Equal(t, canvas.Point{X: 150, Y: 130}, findNode(t, s.Graph(), "B").Position)

	ok, err := s.Undo()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, canvas.Point{X: 100, Y: 100}, findNode(t, s.Graph(), "B").Position)

	ok, err = s.Redo()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, canvas.Point{X: 150, Y: 130}, findNode(t, s.Graph(), "B").Position)
}

func TestDragFramesAreNotRecorded(t *testing.T) {
	s := openStore(t, memstore.New())
	addNode(t, s, service("a", 0, 0))

	for i := 1; i <= 10; i++ {
		p := canvas.Point{X: float64(i), Y: 0}
		require.NoError(t, s.ApplyNodeChanges([]canvas.NodeChange{{Kind: canvas.ChangePosition, ID: "a", Position: &p, Dragging: true}}))
	}
	p := canvas.Point{X: 10, Y: 0}
	require.NoError(t, s.ApplyNodeChanges([]canvas.NodeChange{{Kind: canvas.ChangePosition, ID: "a", Position: &p}}))

	ok, err := s.Undo()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0.0, findNode(t, s.Graph(), "a").Position.X, "one undo reverts the whole drag")
}

func TestSelectionIsNotRecorded(t *testing.T) {
	s := openStore(t, memstore.New())
	addNode(t, s, service("a", 0, 0))
	require.True(t, s.CanUndo())
	s.Undo()
	require.False(t, s.CanUndo())

	s.Redo()
	require.NoError(t, s.ApplyNodeChanges([]canvas.NodeChange{{Kind: canvas.ChangeSelect, ID: "a", Selected: true}}))
	assert.False(t, s.CanRedo())
	ok, _ := s.Undo()
	assert.True(t, ok)
	assert.Empty(t, s.Graph().Nodes)
}

func TestDragTranslatesEdgeGeometry(t *testing.T) {
	s := openStore(t, memstore.New())
	addNode(t, s, service("a", 0, 0))
	addNode(t, s, service("b", 400, 0))
	seg := 200.0
	edges := []canvas.EdgeChange{
		{Kind: canvas.ChangeAdd, Item: &canvas.Edge{ID: "ab", Source: "a", Target: "b",
			Data: canvas.EdgeData{Geometry: canvas.Geometry{Waypoints: []canvas.Waypoint{{X: 50, Y: 50}}}}}},
		{Kind: canvas.ChangeAdd, Item: &canvas.Edge{ID: "ba", Source: "b", Target: "a",
			Data: canvas.EdgeData{Geometry: canvas.Geometry{VerticalSegmentX: &seg}}}},
	}
	require.NoError(t, s.ApplyEdgeChanges(edges))

	drag(t, s, "a", canvas.Point{X: 10, Y: 20})
	g := s.Graph()
	assert.Equal(t, canvas.Waypoint{X: 60, Y: 70}, findEdge(t, g, "ab").Data.Waypoints[0])
	assert.Equal(t, 210.0, *findEdge(t, g, "ba").Data.VerticalSegmentX)
	assert.Equal(t, canvas.PathOrthogonal, findEdge(t, g, "ab").Data.PathType)
	assert.True(t, findEdge(t, g, "ab").Deletable)

	pa, pb := canvas.Point{X: 20, Y: 20}, canvas.Point{X: 430, Y: 40}
	require.NoError(t, s.ApplyNodeChanges([]canvas.NodeChange{
		{Kind: canvas.ChangePosition, ID: "a", Position: &pa},
		{Kind: canvas.ChangePosition, ID: "b", Position: &pb},
	}))
	assert.Equal(t, canvas.Waypoint{X: 80, Y: 90}, findEdge(t, s.Graph(), "ab").Data.Waypoints[0])
}

func TestGroupDragMovesPeers(t *testing.T) {
	s := openStore(t, memstore.New())
	addNode(t, s, service("a", 0, 0))
	addNode(t, s, service("b", 200, 0))
	addNode(t, s, service("c", 400, 0))
	_, err := s.Connect(canvas.Connection{Source: "a", Target: "b"})
	require.NoError(t, err)

	r, err := s.Group([]string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, r.NodeIDs)
	require.Len(t, r.EdgeIDs, 1)

	drag(t, s, "a", canvas.Point{X: 5, Y: 5})
	g := s.Graph()
	assert.Equal(t, canvas.Point{X: 205, Y: 5}, findNode(t, g, "b").Position)
	assert.Equal(t, canvas.Point{X: 400, Y: 0}, findNode(t, g, "c").Position)

	require.NoError(t, s.Ungroup(r.GroupID))
	for _, n := range s.Graph().Nodes {
		assert.Empty(t, n.Data.GroupID)
	}
	for _, e := range s.Graph().Edges {
		assert.Empty(t, e.Data.GroupID)
	}
}

func TestContainerDragMovesMembers(t *testing.T) {
	s := openStore(t, memstore.New())
	addNode(t, s, canvas.Node{ID: "sys", Type: canvas.TypeSystem, Width: 600, Height: 400})
	addNode(t, s, service("in", 100, 100))
	addNode(t, s, service("out", 1000, 1000))

	drag(t, s, "sys", canvas.Point{X: 50, Y: 0})
	g := s.Graph()
	assert.Equal(t, canvas.Point{X: 150, Y: 100}, findNode(t, g, "in").Position)
	assert.Equal(t, canvas.Point{X: 1000, Y: 1000}, findNode(t, g, "out").Position)
	assert.Equal(t, []string{"in"}, findNode(t, g, "sys").Data.Containment.ChildNodeIDs)
}

func TestManualResizeIsKept(t *testing.T) {
	s := openStore(t, memstore.New())
	addNode(t, s, canvas.Node{ID: "sys", Type: canvas.TypeSystem, Width: 600, Height: 400})
	addNode(t, s, service("in", 100, 100))

	size := canvas.Size{W: 900, H: 700}
	require.NoError(t, s.ApplyNodeChanges([]canvas.NodeChange{{Kind: canvas.ChangeDimensions, ID: "sys", Dimensions: &size, Manual: true}}))
	s.FlushContainment()

	sys := findNode(t, s.Graph(), "sys")
	assert.True(t, sys.Data.Containment.ManuallyResized)
	assert.Equal(t, 900.0, sys.Width)
	assert.Equal(t, []string{"in"}, sys.Data.Containment.ChildNodeIDs)
}

func TestContainerResizedEvents(t *testing.T) {
	s := openStore(t, memstore.New())
	var got []ContainerResized
	s.Events().ContainerResized.Subscribe(func(ev ContainerResized) { got = append(got, ev) })

	addNode(t, s, canvas.Node{ID: "sys", Type: canvas.TypeSystem, Width: 600, Height: 400})
	addNode(t, s, service("in", 550, 100))

	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.Equal(t, "sys", last.ContainerID)
	assert.Equal(t, []string{"in"}, last.Members)
	assert.Equal(t, 690.0, last.Box.W)
}

func TestInvalidBatchLeavesGraphUntouched(t *testing.T) {
	s := openStore(t, memstore.New())
	addNode(t, s, service("a", 0, 0))
	before := s.Graph()

	err := s.ApplyNodeChanges([]canvas.NodeChange{
		{Kind: canvas.ChangeAdd, Item: &canvas.Node{ID: "x", Type: "service"}},
		{Kind: canvas.ChangePosition, ID: "missing", Position: &canvas.Point{}},
	})
	assert.ErrorIs(t, err, canvas.ErrNodeNotFound)

	err = s.ApplyNodeChanges([]canvas.NodeChange{{Kind: canvas.ChangeAdd, Item: &canvas.Node{ID: "a"}}})
	assert.ErrorIs(t, err, canvas.ErrDuplicateID)

	err = s.ApplyEdgeChanges([]canvas.EdgeChange{{Kind: canvas.ChangeAdd, Item: &canvas.Edge{ID: "e", Source: "a", Target: "ghost"}}})
	assert.ErrorIs(t, err, canvas.ErrNodeNotFound)

	_, err = s.Connect(canvas.Connection{Source: "a", Target: "ghost"})
	assert.ErrorIs(t, err, canvas.ErrNodeNotFound)

	assert.Equal(t, before, s.Graph())
}

func TestDeleteIsJoint(t *testing.T) {
	s := openStore(t, memstore.New())
	addNode(t, s, canvas.Node{ID: "sys", Type: canvas.TypeSystem, Width: 600, Height: 400})
	addNode(t, s, service("a", 100, 100))
	addNode(t, s, service("b", 1000, 0))
	_, err := s.Connect(canvas.Connection{Source: "a", Target: "b"})
	require.NoError(t, err)

	assert.ErrorIs(t, s.Delete(canvas.Selection{NodeIDs: []string{"a", "nope"}}), canvas.ErrNodeNotFound)
	assert.Len(t, s.Graph().Nodes, 3)

	require.NoError(t, s.Delete(canvas.Selection{NodeIDs: []string{"a"}}))
	g := s.Graph()
	assert.Len(t, g.Nodes, 2)
	assert.Empty(t, g.Edges)
	assert.Empty(t, findNode(t, g, "sys").Data.Containment.ChildNodeIDs)

	ok, err := s.Undo()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, s.Graph().Edges, 1)
}

func TestNodeRemoveChangeRemovesEdges(t *testing.T) {
	s := openStore(t, memstore.New())
	addNode(t, s, service("a", 0, 0))
	addNode(t, s, service("b", 300, 0))
	_, err := s.Connect(canvas.Connection{Source: "a", Target: "b"})
	require.NoError(t, err)

	require.NoError(t, s.ApplyNodeChanges([]canvas.NodeChange{{Kind: canvas.ChangeRemove, ID: "b"}}))
	assert.Empty(t, s.Graph().Edges)
}

func TestLockedWorkspace(t *testing.T) {
	s := openStore(t, memstore.New())
	addNode(t, s, service("a", 0, 0))
	addNode(t, s, service("b", 300, 0))

	locked, err := s.ToggleLock(s.ActiveID())
	require.NoError(t, err)
	require.True(t, locked)
	before := s.Graph()

	p := canvas.Point{X: 99, Y: 99}
	assert.ErrorIs(t, s.ApplyNodeChanges([]canvas.NodeChange{{Kind: canvas.ChangePosition, ID: "a", Position: &p}}), canvas.ErrWorkspaceLocked)
	assert.ErrorIs(t, s.ApplyNodeChanges([]canvas.NodeChange{
		{Kind: canvas.ChangeSelect, ID: "a", Selected: true},
		{Kind: canvas.ChangeRemove, ID: "b"},
	}), canvas.ErrWorkspaceLocked)
	_, err = s.Connect(canvas.Connection{Source: "a", Target: "b"})
	assert.ErrorIs(t, err, canvas.ErrWorkspaceLocked)
	assert.ErrorIs(t, s.Delete(canvas.Selection{NodeIDs: []string{"a"}}), canvas.ErrWorkspaceLocked)
	_, err = s.Group([]string{"a"})
	assert.ErrorIs(t, err, canvas.ErrWorkspaceLocked)
	_, err = s.Undo()
	assert.ErrorIs(t, err, canvas.ErrWorkspaceLocked)
	assert.Equal(t, before, s.Graph())

	require.NoError(t, s.ApplyNodeChanges([]canvas.NodeChange{{Kind: canvas.ChangeSelect, ID: "a", Selected: true}}))
	assert.True(t, findNode(t, s.Graph(), "a").Selected)
	require.NoError(t, s.SetViewport(canvas.Viewport{X: 10, Y: 20, Zoom: 1.5}))
	assert.Equal(t, &canvas.Viewport{X: 10, Y: 20, Zoom: 1.5}, s.Viewport())

	locked, err = s.ToggleLock(s.ActiveID())
	require.NoError(t, err)
	assert.False(t, locked)
	assert.NoError(t, s.ApplyNodeChanges([]canvas.NodeChange{{Kind: canvas.ChangePosition, ID: "a", Position: &p}}))
}

func TestWorkspaceLifecycle(t *testing.T) {
	s := openStore(t, memstore.New())
	first := s.ActiveID()
	addNode(t, s, service("a", 0, 0))
	require.NoError(t, s.SetViewport(canvas.Viewport{X: 1, Y: 2, Zoom: 1}))

	var switched []WorkspaceSwitched
	s.Events().WorkspaceSwitched.Subscribe(func(ev WorkspaceSwitched) { switched = append(switched, ev) })

	second := s.CreateWorkspace("")
	assert.Equal(t, "Workspace 2", second.Name)
	assert.Equal(t, second.ID, s.ActiveID())
	assert.Empty(t, s.Graph().Nodes)
	assert.Nil(t, s.Viewport())
	addNode(t, s, service("z", 0, 0))

	require.NoError(t, s.SwitchActive(first))
	assert.Equal(t, "a", s.Graph().Nodes[0].ID)
	assert.Equal(t, &canvas.Viewport{X: 1, Y: 2, Zoom: 1}, s.Viewport())
	assert.False(t, s.CanRedo())

	require.NoError(t, s.RenameWorkspace(second.ID, "Payments"))
	assert.ErrorIs(t, s.RenameWorkspace(second.ID, "  "), canvas.ErrInvalidChange)
	assert.ErrorIs(t, s.SwitchActive("nope"), canvas.ErrWorkspaceNotFound)

	require.NoError(t, s.CloseWorkspace(first))
	assert.Equal(t, second.ID, s.ActiveID())
	assert.Equal(t, "z", s.Graph().Nodes[0].ID)
	ws := s.Workspaces()
	require.Len(t, ws, 1)
	assert.Equal(t, "Payments", ws[0].Name)

	assert.ErrorIs(t, s.CloseWorkspace(second.ID), canvas.ErrLastWorkspace)
	assert.Len(t, s.Workspaces(), 1)

	require.Len(t, switched, 3)
	assert.Equal(t, WorkspaceSwitched{From: first, To: second.ID}, switched[2])
}

func TestUndoDoesNotCrossWorkspaces(t *testing.T) {
	s := openStore(t, memstore.New())
	addNode(t, s, service("a", 0, 0))
	s.CreateWorkspace("other")

	assert.False(t, s.CanUndo())
	ok, err := s.Undo()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPersistWritesDocument(t *testing.T) {
	backend := memstore.New()
	s := openStore(t, backend)
	addNode(t, s, service("a", 0, 0))
	require.NoError(t, s.SetViewport(canvas.Viewport{X: 3, Y: 4, Zoom: 2}))

	var persisted []Persisted
	s.Events().Persisted.Subscribe(func(ev Persisted) { persisted = append(persisted, ev) })
	require.NoError(t, s.Persist(context.Background()))
	require.NoError(t, s.Persist(context.Background()))
	assert.Len(t, persisted, 1, "identical document is written once")

	data, err := backend.Load(context.Background(), DefaultKey)
	require.NoError(t, err)
	doc, err := canvas.DecodeDocument(data)
	require.NoError(t, err)
	require.Len(t, doc.Workspaces, 1)
	assert.Equal(t, "a", doc.Workspaces[0].Nodes[0].ID)
	assert.Equal(t, &canvas.Viewport{X: 3, Y: 4, Zoom: 2}, doc.Workspaces[0].Viewport)

	reopened := openStore(t, backend)
	assert.Equal(t, s.ActiveID(), reopened.ActiveID())
	assert.Equal(t, "a", reopened.Graph().Nodes[0].ID)
}

func TestPersistIsDebounced(t *testing.T) {
	backend := memstore.New()
	s := openStore(t, backend, func(o *Options) { o.PersistDebounce = 20 * time.Millisecond })

	writes := make(chan Persisted, 10)
	s.Events().Persisted.Subscribe(func(ev Persisted) { writes <- ev })

	for i := 0; i < 5; i++ {
		addNode(t, s, service(fmt.Sprintf("n%d", i), float64(i*200), 0))
	}

	select {
	case <-writes:
	case <-time.After(2 * time.Second):
		t.Fatal("no debounced write")
	}
	require.Eventually(t, func() bool {
		data, err := backend.Load(context.Background(), DefaultKey)
		if err != nil {
			return false
		}
		doc, err := canvas.DecodeDocument(data)
		return err == nil && len(doc.Workspaces[0].Nodes) == 5
	}, 2*time.Second, 10*time.Millisecond)
}

type failingStore struct {
	canvas.Store
}

func (failingStore) Save(context.Context, string, []byte) error {
	return errors.New("quota exceeded")
}

func TestPersistFailureIsNonFatal(t *testing.T) {
	s := openStore(t, failingStore{Store: memstore.New()})
	var failures []PersistFailed
	s.Events().PersistFailed.Subscribe(func(ev PersistFailed) { failures = append(failures, ev) })

	addNode(t, s, service("a", 0, 0))
	err := s.Persist(context.Background())
	require.Error(t, err)
	require.Len(t, failures, 1)
	assert.ErrorContains(t, failures[0].Err, "quota exceeded")

	addNode(t, s, service("b", 300, 0))
	assert.Len(t, s.Graph().Nodes, 2)
	assert.Error(t, s.Persist(context.Background()), "failed write is retried")
}

func TestCrossTabSync(t *testing.T) {
	backend := memstore.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tabA := openStore(t, backend)
	require.NoError(t, tabA.Persist(ctx))
	tabB := openStore(t, backend, func(o *Options) { o.NewID = sequence("b") })
	require.Equal(t, tabA.ActiveID(), tabB.ActiveID())

	var remoteInA int
	var mu sync.Mutex
	tabA.Events().GraphChanged.Subscribe(func(ev GraphChanged) {
		if ev.Origin == OriginRemote {
			mu.Lock()
			remoteInA++
			mu.Unlock()
		}
	})

	go tabA.Run(ctx)
	go tabB.Run(ctx)
	time.Sleep(20 * time.Millisecond)

	addNode(t, tabA, service("a", 0, 0))
	require.NoError(t, tabA.Persist(ctx))

	require.Eventually(t, func() bool {
		return len(tabB.Graph().Nodes) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "a", tabB.Graph().Nodes[0].ID)

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 0, remoteInA, "own write must be ignored as an echo")
	mu.Unlock()

	tabB.CreateWorkspace("from b")
	require.NoError(t, tabB.Persist(ctx))
	require.Eventually(t, func() bool {
		return len(tabA.Workspaces()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "a", tabA.Graph().Nodes[0].ID, "unaffected active workspace keeps its live state")
}

func TestCreateWorkspaceAvoidsIDCollision(t *testing.T) {
	backend := memstore.New()
	ctx := context.Background()

	tabA := openStore(t, backend)
	require.NoError(t, tabA.Persist(ctx))

	// Same id sequence as tabA, so the first id it mints is already taken.
	tabB := openStore(t, backend)
	ws := tabB.CreateWorkspace("from b")
	assert.NotEqual(t, tabA.ActiveID(), ws.ID)

	ids := map[string]bool{}
	for _, w := range tabB.Workspaces() {
		ids[w.ID] = true
	}
	assert.Len(t, ids, 2)

	require.NoError(t, tabB.Persist(ctx))
	reopened := openStore(t, backend)
	assert.Len(t, reopened.Workspaces(), 2)
}

func TestCreateWorkspaceWithStuckIDGenerator(t *testing.T) {
	s := openStore(t, memstore.New(), func(o *Options) { o.NewID = func() string { return "same" } })
	first := s.ActiveID()
	a := s.CreateWorkspace("a")
	b := s.CreateWorkspace("b")
	assert.Equal(t, "same", first)
	assert.NotEqual(t, first, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, s.Workspaces(), 3)
}

func TestRemoteRemovalOfActiveWorkspace(t *testing.T) {
	backend := memstore.New()
	s := openStore(t, backend)
	keep := s.ActiveID()
	other := s.CreateWorkspace("doomed")
	require.Equal(t, other.ID, s.ActiveID())

	doc, err := canvas.EncodeDocument([]canvas.Workspace{{ID: keep, Name: "kept", Nodes: []canvas.Node{service("k", 0, 0)}}})
	require.NoError(t, err)
	s.applyRemote(doc)

	assert.Equal(t, keep, s.ActiveID())
	assert.Equal(t, "k", s.Graph().Nodes[0].ID)
	assert.Len(t, s.Workspaces(), 1)

	s.applyRemote([]byte("garbage"))
	assert.Equal(t, keep, s.ActiveID())
}

func TestImportExport(t *testing.T) {
	s := openStore(t, memstore.New())
	addNode(t, s, service("a", 0, 0))
	before := s.Workspaces()

	err := s.ImportDocument([]byte(`{"version":"2.0","workspaces":[{"name":"no id"}]}`))
	var loadErr *canvas.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, before, s.Workspaces())

	legacy := `{"version":"1.0","nodes":[{"id":"x","type":"service","position":{"x":1,"y":2},"data":{"label":"x"}},
		{"id":"y","type":"service","position":{"x":1,"y":2},"data":{"label":"y"}}],
		"edges":[{"id":"xy","source":"x","target":"y","data":{"connectionType":"http"}},
		{"id":"dangling","source":"x","target":"gone","data":{}}]}`
	require.NoError(t, s.ImportDocument([]byte(legacy)))
	g := s.Graph()
	assert.Len(t, g.Nodes, 2)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, canvas.PathOrthogonal, g.Edges[0].Data.PathType)
	assert.False(t, s.CanUndo())

	data, err := s.ExportDocument()
	require.NoError(t, err)
	doc, err := canvas.DecodeDocument(data)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(s.Workspaces(), doc.Workspaces, cmpopts.EquateEmpty()))
}

func TestImportResetsHistoryOfReusedWorkspace(t *testing.T) {
	s := openStore(t, memstore.New())
	addNode(t, s, service("a", 0, 0))
	data, err := s.ExportDocument()
	require.NoError(t, err)

	addNode(t, s, service("b", 300, 0))
	require.True(t, s.CanUndo())

	// The document carries the active workspace's own id.
	require.NoError(t, s.ImportDocument(data))
	assert.Len(t, s.Graph().Nodes, 1)
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())

	undone, err := s.Undo()
	require.NoError(t, err)
	assert.False(t, undone)
	assert.Len(t, s.Graph().Nodes, 1)
}
