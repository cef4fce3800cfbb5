package workspace

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/containment"
)

// Persist writes the workspace set to storage now. A write identical to the
// last known stored document is skipped. Failures are logged and published on
// Events().PersistFailed; the in-memory state is unaffected.
func (s *Store) Persist(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	s.flushLiveLocked()
	data, err := canvas.EncodeDocument(s.workspaces)
	if err != nil {
		s.unlock()
		return err
	}
	if bytes.Equal(data, s.lastSaved) {
		s.unlock()
		return nil
	}
	previous := s.lastSaved
	s.lastSaved = data
	s.unlock()

	if err := s.backend.Save(ctx, s.opts.Key, data); err != nil {
		s.mu.Lock()
		if bytes.Equal(s.lastSaved, data) {
			s.lastSaved = previous
		}
		s.unlock()

		persistFailuresTotal.Inc()
		s.logger.Warn("failed to persist workspaces", "bytes", len(data), "error", err)
		err = fmt.Errorf("canvas: persist workspaces: %w", err)
		s.events.PersistFailed.Publish(PersistFailed{Err: err})
		return err
	}

	persistWritesTotal.Inc()
	s.events.Persisted.Publish(Persisted{Bytes: len(data), At: time.Now()})
	return nil
}

func (s *Store) schedulePersistLocked() {
	if s.closed {
		return
	}
	s.persist.Trigger()
}

// Run applies documents written by other clients of the same storage key until
// ctx is done. Notifications equal to the last document this store wrote or
// received are ignored as echoes. Run returns nil when ctx ends and an error if
// the subscription closes before that.
func (s *Store) Run(ctx context.Context) error {
	updates, err := s.backend.Subscribe(ctx, s.opts.Key)
	if err != nil {
		return fmt.Errorf("canvas: subscribe to %s: %w", s.opts.Key, err)
	}
	for data := range updates {
		s.applyRemote(data)
	}
	if ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("canvas: subscription to %s closed", s.opts.Key)
}

// applyRemote replaces the workspace set with a document written elsewhere.
// The live graph is only replaced when the active workspace itself changed,
// which makes concurrent edits to the same workspace last-write-wins.
func (s *Store) applyRemote(data []byte) {
	s.mu.Lock()
	defer s.unlock()

	if bytes.Equal(data, s.lastSaved) {
		remoteUpdatesTotal.WithLabelValues("echo").Inc()
		return
	}
	doc, err := canvas.DecodeDocument(data)
	if err != nil {
		remoteUpdatesTotal.WithLabelValues("invalid").Inc()
		s.logger.Warn("ignoring malformed remote document", "error", err)
		return
	}
	remoteUpdatesTotal.WithLabelValues("applied").Inc()

	var previous *canvas.Workspace
	if i := s.indexOfLocked(s.activeID); i >= 0 {
		ws := s.workspaces[i]
		previous = &ws
	}
	s.lastSaved = data
	s.workspaces = doc.Workspaces
	workspacesGauge.Set(float64(len(s.workspaces)))

	for id := range s.histories {
		if s.indexOfLocked(id) < 0 {
			delete(s.histories, id)
		}
	}

	i := s.indexOfLocked(s.activeID)
	switch {
	case i < 0:
		from := s.activeID
		s.activateLocked(s.workspaces[0].ID)
		ev := WorkspaceSwitched{From: from, To: s.activeID}
		s.emit(func() { s.events.WorkspaceSwitched.Publish(ev) })
		s.emitGraphChanged(OriginRemote)
	case previous == nil || !sameWorkspace(*previous, s.workspaces[i]):
		ws := s.workspaces[i].Clone()
		s.live = canvas.Graph{Nodes: ws.Nodes, Edges: ws.Edges}
		s.viewport = ws.Viewport
		s.sched.MarkAll()
		s.scheduleFrameLocked()
		s.emitGraphChanged(OriginRemote)
	default:
		s.logger.Debug("remote update left the active workspace unchanged", "workspace_id", s.activeID)
	}
}

var workspaceEquality = cmp.Options{cmpopts.EquateEmpty()}

func sameWorkspace(a, b canvas.Workspace) bool {
	return cmp.Equal(a, b, workspaceEquality)
}

// FlushContainment recomputes dirty containers immediately instead of waiting
// for the next frame.
func (s *Store) FlushContainment() {
	s.mu.Lock()
	defer s.unlock()
	s.flushContainmentLocked()
}

func (s *Store) scheduleFrameLocked() {
	if s.closed || s.frameTimer != nil || !s.sched.Pending() {
		return
	}
	s.frameTimer = time.AfterFunc(s.opts.FrameInterval, func() {
		s.mu.Lock()
		defer s.unlock()
		s.frameTimer = nil
		s.flushContainmentLocked()
	})
}

// flushContainmentLocked applies containment results through the store so the
// live graph keeps a single writer. Resizes are not recorded in history.
func (s *Store) flushContainmentLocked() {
	results := s.sched.Flush(s.live.Nodes)
	applied := containment.Apply(s.live.Nodes, results)
	if len(applied) == 0 {
		return
	}
	containmentUpdatesTotal.Add(float64(len(applied)))
	for _, r := range applied {
		ev := ContainerResized{
			WorkspaceID: s.activeID,
			ContainerID: r.ContainerID,
			Box:         r.Box,
			Members:     append([]string(nil), r.Members...),
		}
		s.emit(func() { s.events.ContainerResized.Publish(ev) })
	}
	s.schedulePersistLocked()
	s.emitGraphChanged(OriginContainment)
}
