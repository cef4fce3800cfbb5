package workspace

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/meikuraledutech/canvas"
)

// maxIDAttempts bounds how often Options.NewID is retried on a collision.
const maxIDAttempts = 8

// SwitchActive stores the live state of the current workspace and makes id the
// active one.
func (s *Store) SwitchActive(id string) error {
	s.mu.Lock()
	defer s.unlock()

	if id == s.activeID {
		return nil
	}
	if s.indexOfLocked(id) < 0 {
		return fmt.Errorf("%w: %s", canvas.ErrWorkspaceNotFound, id)
	}
	s.switchLocked(id)
	return nil
}

func (s *Store) switchLocked(id string) {
	from := s.activeID
	s.flushLiveLocked()
	s.activateLocked(id)

	ev := WorkspaceSwitched{From: from, To: id}
	s.emit(func() { s.events.WorkspaceSwitched.Publish(ev) })
	s.emitGraphChanged(OriginLocal)
	s.schedulePersistLocked()
}

// CreateWorkspace appends an empty workspace, makes it active and returns it.
// An empty name is replaced by "Workspace N".
func (s *Store) CreateWorkspace(name string) canvas.Workspace {
	s.mu.Lock()
	defer s.unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Workspace %d", len(s.workspaces)+1)
	}
	ws := canvas.NewWorkspace(name)
	ws.ID = s.newWorkspaceIDLocked()
	s.workspaces = append(s.workspaces, ws)
	workspacesGauge.Set(float64(len(s.workspaces)))

	s.switchLocked(ws.ID)
	return ws.Clone()
}

// newWorkspaceIDLocked mints an id no open workspace uses. Another tab sharing
// the same backend can hand out the same ids, and a persisted document with a
// duplicate workspace id does not load again.
func (s *Store) newWorkspaceIDLocked() string {
	for range maxIDAttempts {
		if id := s.opts.NewID(); id != "" && s.indexOfLocked(id) < 0 {
			return id
		}
	}
	id := uuid.NewString()
	for s.indexOfLocked(id) >= 0 {
		id = uuid.NewString()
	}
	return id
}

// CloseWorkspace removes a workspace. The last remaining workspace cannot be
// closed. Closing the active workspace activates its left neighbour, or the new
// first workspace.
func (s *Store) CloseWorkspace(id string) error {
	s.mu.Lock()
	defer s.unlock()

	i := s.indexOfLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", canvas.ErrWorkspaceNotFound, id)
	}
	if len(s.workspaces) == 1 {
		return canvas.ErrLastWorkspace
	}

	s.workspaces = append(s.workspaces[:i:i], s.workspaces[i+1:]...)
	delete(s.histories, id)
	workspacesGauge.Set(float64(len(s.workspaces)))

	if id == s.activeID {
		next := s.workspaces[max(i-1, 0)].ID
		s.activateLocked(next)
		ev := WorkspaceSwitched{From: id, To: next}
		s.emit(func() { s.events.WorkspaceSwitched.Publish(ev) })
		s.emitGraphChanged(OriginLocal)
	}
	s.schedulePersistLocked()
	return nil
}

// RenameWorkspace changes a workspace's display name.
func (s *Store) RenameWorkspace(id, name string) error {
	s.mu.Lock()
	defer s.unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty workspace name", canvas.ErrInvalidChange)
	}
	i := s.indexOfLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", canvas.ErrWorkspaceNotFound, id)
	}
	s.workspaces[i].Name = name
	s.schedulePersistLocked()
	return nil
}

// ToggleLock flips a workspace's lock and returns the new state.
func (s *Store) ToggleLock(id string) (bool, error) {
	s.mu.Lock()
	defer s.unlock()

	i := s.indexOfLocked(id)
	if i < 0 {
		return false, fmt.Errorf("%w: %s", canvas.ErrWorkspaceNotFound, id)
	}
	s.workspaces[i].Locked = !s.workspaces[i].Locked
	s.schedulePersistLocked()
	return s.workspaces[i].Locked, nil
}

// SetViewport records the active workspace's pan and zoom. It is allowed on
// locked workspaces.
func (s *Store) SetViewport(v canvas.Viewport) error {
	if !finite(v.X, v.Y, v.Zoom) || v.Zoom <= 0 {
		return fmt.Errorf("%w: bad viewport", canvas.ErrInvalidChange)
	}
	s.mu.Lock()
	defer s.unlock()

	s.viewport = &v
	s.schedulePersistLocked()
	return nil
}

// ImportDocument replaces the whole workspace set with a decoded document and
// activates its first workspace. A document that fails to load leaves the
// store untouched.
func (s *Store) ImportDocument(data []byte) error {
	doc, err := canvas.DecodeDocument(data)
	if err != nil {
		return err
	}
	if doc.Dropped > 0 {
		s.logger.Warn("dropped corrupt entries while importing", "count", doc.Dropped)
	}

	s.mu.Lock()
	defer s.unlock()

	from := s.activeID
	s.workspaces = doc.Workspaces
	for id, h := range s.histories {
		h.Clear()
		if s.indexOfLocked(id) < 0 {
			delete(s.histories, id)
		}
	}
	workspacesGauge.Set(float64(len(s.workspaces)))
	s.activateLocked(s.workspaces[0].ID)

	ev := WorkspaceSwitched{From: from, To: s.activeID}
	s.emit(func() { s.events.WorkspaceSwitched.Publish(ev) })
	s.emitGraphChanged(OriginImport)
	s.schedulePersistLocked()
	return nil
}

// ExportDocument serializes the workspace set, including unsaved live state.
func (s *Store) ExportDocument() ([]byte, error) {
	s.mu.Lock()
	defer s.unlock()
	return canvas.EncodeDocument(s.snapshotLocked())
}
