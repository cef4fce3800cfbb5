// Package workspace owns the set of workspaces, the live graph of the active
// one, and every path by which that graph changes.
//
// All entry points, timer callbacks and storage notifications run to completion
// under a single lock, so the live graph has exactly one writer at a time.
// Containment reacts to geometry changes once per frame, persistence is
// debounced, and other clients' writes arrive through the storage subscription
// started by Run.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/containment"
	"github.com/meikuraledutech/canvas/history"
)

// DefaultKey is the storage key used when Options.Key is empty.
const DefaultKey = "canvas-document"

// Options configures a Store.
type Options struct {
	// Key names the document in storage.
	Key string
	// HistoryCap bounds each workspace's undo log.
	HistoryCap int
	// PersistDebounce is the quiet period after the last change before the
	// workspace set is written to storage.
	PersistDebounce time.Duration
	// FrameInterval is how often dirty containers are recomputed.
	FrameInterval time.Duration
	Containment   containment.Options
	Logger        *slog.Logger
	// NewID generates IDs for workspaces, groups, nodes and edges.
	NewID func() string
}

func (o *Options) setDefaults() {
	if o.Key == "" {
		o.Key = DefaultKey
	}
	if o.HistoryCap <= 0 {
		o.HistoryCap = history.DefaultCap
	}
	if o.PersistDebounce <= 0 {
		o.PersistDebounce = 500 * time.Millisecond
	}
	if o.FrameInterval <= 0 {
		o.FrameInterval = 16 * time.Millisecond
	}
	if o.Containment.Padding == 0 && o.Containment.MinSizes == nil {
		o.Containment = containment.DefaultOptions()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
}

// Store is the canonical owner of the workspace set and the live graph.
type Store struct {
	backend canvas.Store
	opts    Options
	logger  *slog.Logger
	events  Events
	engine  *containment.Engine
	persist *debouncer

	// saveMu orders writes to the backend; it is always taken before mu.
	saveMu sync.Mutex

	mu         sync.Mutex
	workspaces []canvas.Workspace
	activeID   string
	live       canvas.Graph
	viewport   *canvas.Viewport
	histories  map[string]*history.Manager
	sched      *containment.Scheduler
	replaying  bool
	lastSaved  []byte
	frameTimer *time.Timer
	closed     bool
	outbox     []func()
}

// Open loads the workspace set stored under opts.Key and activates its first
// workspace. When nothing is stored yet, a single empty workspace is created.
func Open(ctx context.Context, backend canvas.Store, opts Options) (*Store, error) {
	opts.setDefaults()
	s := &Store{
		backend:   backend,
		opts:      opts,
		logger:    opts.Logger.With("store_key", opts.Key),
		histories: make(map[string]*history.Manager),
	}
	s.engine = containment.New(opts.Containment, s.logger)
	s.sched = containment.NewScheduler(s.engine)
	s.persist = newDebouncer(opts.PersistDebounce, func() {
		if err := s.Persist(context.Background()); err != nil {
			s.logger.Debug("debounced persist failed", "error", err)
		}
	})

	data, err := backend.Load(ctx, opts.Key)
	switch {
	case errors.Is(err, canvas.ErrNotFound):
		ws := canvas.NewWorkspace("Workspace 1")
		ws.ID = opts.NewID()
		s.workspaces = []canvas.Workspace{ws}
	case err != nil:
		return nil, fmt.Errorf("canvas: load workspaces: %w", err)
	default:
		doc, err := canvas.DecodeDocument(data)
		if err != nil {
			return nil, err
		}
		if doc.Dropped > 0 {
			s.logger.Warn("dropped corrupt entries while loading", "count", doc.Dropped)
		}
		s.workspaces = doc.Workspaces
		s.lastSaved = data
	}

	s.mu.Lock()
	defer s.unlock()
	s.activateLocked(s.workspaces[0].ID)
	workspacesGauge.Set(float64(len(s.workspaces)))
	return s, nil
}

// Events returns the topics the store publishes on.
func (s *Store) Events() *Events {
	return &s.events
}

// Graph returns a copy of the active workspace's live graph.
func (s *Store) Graph() canvas.Graph {
	s.mu.Lock()
	defer s.unlock()
	return s.live.Clone()
}

// ActiveID returns the ID of the active workspace.
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.unlock()
	return s.activeID
}

// Viewport returns the active workspace's viewport, or nil if none was set.
func (s *Store) Viewport() *canvas.Viewport {
	s.mu.Lock()
	defer s.unlock()
	if s.viewport == nil {
		return nil
	}
	v := *s.viewport
	return &v
}

// Workspaces returns copies of every workspace, with the active one reflecting
// its live state.
func (s *Store) Workspaces() []canvas.Workspace {
	s.mu.Lock()
	defer s.unlock()
	return s.snapshotLocked()
}

// Locked reports whether the active workspace is locked.
func (s *Store) Locked() bool {
	s.mu.Lock()
	defer s.unlock()
	return s.lockedLocked()
}

// CanUndo reports whether Undo would change the active graph.
func (s *Store) CanUndo() bool {
	s.mu.Lock()
	defer s.unlock()
	return s.histories[s.activeID].CanUndo()
}

// CanRedo reports whether Redo would change the active graph.
func (s *Store) CanRedo() bool {
	s.mu.Lock()
	defer s.unlock()
	return s.histories[s.activeID].CanRedo()
}

// Close stops timers and writes any pending state to storage.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	if s.frameTimer != nil {
		s.frameTimer.Stop()
		s.frameTimer = nil
	}
	s.flushContainmentLocked()
	s.unlock()

	s.persist.Stop()
	return s.Persist(ctx)
}

// unlock releases mu and then delivers the events queued while it was held.
func (s *Store) unlock() {
	pending := s.outbox
	s.outbox = nil
	s.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

func (s *Store) emit(fn func()) {
	s.outbox = append(s.outbox, fn)
}

func (s *Store) emitGraphChanged(origin Origin) {
	ev := GraphChanged{WorkspaceID: s.activeID, Origin: origin}
	s.emit(func() { s.events.GraphChanged.Publish(ev) })
}

func (s *Store) indexOfLocked(id string) int {
	for i := range s.workspaces {
		if s.workspaces[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) lockedLocked() bool {
	if i := s.indexOfLocked(s.activeID); i >= 0 {
		return s.workspaces[i].Locked
	}
	return false
}

// flushLiveLocked writes the live graph and viewport into the active record.
func (s *Store) flushLiveLocked() {
	i := s.indexOfLocked(s.activeID)
	if i < 0 {
		return
	}
	ws := &s.workspaces[i]
	ws.Nodes = canvas.CloneNodes(s.live.Nodes)
	ws.Edges = canvas.CloneEdges(s.live.Edges)
	ws.Viewport = nil
	if s.viewport != nil {
		v := *s.viewport
		ws.Viewport = &v
	}
}

// snapshotLocked returns a deep copy of the workspace set with live state applied.
func (s *Store) snapshotLocked() []canvas.Workspace {
	out := make([]canvas.Workspace, len(s.workspaces))
	for i := range s.workspaces {
		out[i] = s.workspaces[i].Clone()
		if out[i].ID != s.activeID {
			continue
		}
		out[i].Nodes = canvas.CloneNodes(s.live.Nodes)
		out[i].Edges = canvas.CloneEdges(s.live.Edges)
		out[i].Viewport = nil
		if s.viewport != nil {
			v := *s.viewport
			out[i].Viewport = &v
		}
	}
	return out
}

// activateLocked replaces the live state with the stored record of id. The
// outgoing workspace must already have been flushed.
func (s *Store) activateLocked(id string) {
	i := s.indexOfLocked(id)
	if i < 0 {
		return
	}
	ws := s.workspaces[i].Clone()
	s.activeID = ws.ID
	s.live = canvas.Graph{Nodes: ws.Nodes, Edges: ws.Edges}
	s.viewport = ws.Viewport

	h, ok := s.histories[id]
	if !ok {
		h = history.New(s.opts.HistoryCap)
		s.histories[id] = h
	}
	h.Initialize(s.live)

	s.sched.MarkAll()
	s.scheduleFrameLocked()
}
