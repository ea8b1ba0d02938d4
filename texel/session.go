// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: texel/session.go
// Summary: The session aggregate: workspaces, surfaces, focus and notifications.
// Usage: One Session exists per process. Every mutation runs under the writer
// lock; queries share the reader lock. Listeners are notified after the lock
// is released.

package texel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"pkt.systems/pslog"

	"github.com/framegrace/texelsplit/registry"
)

// Options configures a Session.
type Options struct {
	Registry *registry.Registry
	Logger   pslog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// NewID defaults to uuid.NewString.
	NewID func() string
}

// Session owns all layout state for the process.
type Session struct {
	mu     sync.RWMutex
	closed bool

	reg   *registry.Registry
	log   pslog.Logger
	now   func() time.Time
	newID func() string

	workspaces    []*Workspace
	selected      WorkspaceID
	surfaces      surfaceTable
	focused       SurfaceID
	notifications []*Notification
	app           appFocus

	diag       *Diagnostics
	dispatcher *EventDispatcher

	// Events are queued under mu in commit order and delivered by one
	// goroutine at a time, outside mu.
	qmu        sync.Mutex
	queue      []Event
	delivering bool
}

// NewSession creates an empty session. Call NewWorkspace to create the first
// workspace.
func NewSession(opts Options) *Session {
	s := &Session{
		reg:        opts.Registry,
		log:        opts.Logger,
		now:        opts.Now,
		newID:      opts.NewID,
		surfaces:   newSurfaceTable(),
		dispatcher: NewEventDispatcher(),
	}
	if s.reg == nil {
		s.reg = registry.NewDefault()
	}
	if s.log == nil {
		s.log = pslog.Ctx(context.Background())
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	s.diag = &Diagnostics{session: s}
	return s
}

// Registry returns the panel kind registry used by the session.
func (s *Session) Registry() *registry.Registry {
	return s.reg
}

// Subscribe registers a listener for session events.
func (s *Session) Subscribe(l Listener) {
	s.dispatcher.Subscribe(l)
}

// Unsubscribe removes a listener registered with Subscribe.
func (s *Session) Unsubscribe(l Listener) {
	s.dispatcher.Unsubscribe(l)
}

// Diagnostics returns the test introspection interface.
func (s *Session) Diagnostics() *Diagnostics {
	return s.diag
}

// Close tears the session down. Surfaces are destroyed and announced to
// listeners; later calls fail with ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	tx := &txn{s: s}
	for _, w := range s.workspaces {
		tx.destroyTree(w)
	}
	s.workspaces = nil
	s.selected = ""
	s.focused = ""
	s.notifications = nil
	s.closed = true
	s.enqueue(tx.events)
	s.mu.Unlock()
	s.deliver()
}

// txn collects the events raised by one mutation.
type txn struct {
	s      *Session
	events []Event
}

func (tx *txn) emit(ev Event) {
	tx.events = append(tx.events, ev)
}

// mutate runs fn under the writer lock and broadcasts its events afterwards.
func (s *Session) mutate(fn func(tx *txn) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	tx := &txn{s: s}
	err := fn(tx)
	s.enqueue(tx.events)
	s.mu.Unlock()

	s.deliver()
	return err
}

// enqueue appends a committed batch. Callers hold the writer lock.
func (s *Session) enqueue(events []Event) {
	if len(events) == 0 {
		return
	}
	s.qmu.Lock()
	s.queue = append(s.queue, events...)
	s.qmu.Unlock()
}

// deliver broadcasts queued events until the queue drains. When another
// goroutine is already delivering, including a listener mutating the session
// from inside Broadcast, it returns at once and that goroutine sends the batch.
func (s *Session) deliver() {
	s.qmu.Lock()
	if s.delivering {
		s.qmu.Unlock()
		return
	}
	s.delivering = true
	for len(s.queue) > 0 {
		ev := s.queue[0]
		s.queue[0] = Event{}
		s.queue = s.queue[1:]
		s.qmu.Unlock()
		s.dispatcher.Broadcast(ev)
		s.qmu.Lock()
	}
	s.queue = nil
	s.delivering = false
	s.qmu.Unlock()
}

// view runs fn under the reader lock.
func (s *Session) view(fn func() error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return fn()
}

// commitTree validates candidate and publishes it as w's root. A candidate
// that breaks the split invariants is counted, logged and dropped.
func (tx *txn) commitTree(w *Workspace, candidate *Node) error {
	if violations := Validate(candidate); len(violations) > 0 {
		tx.s.diag.recordUnderflow()
		tx.s.log.Error("split tree invariant violated",
			"workspace", w.ID, "violations", len(violations), "first", violations[0].String())
		tx.emit(Event{Type: EventInvariantViolation, Workspace: w.ID, Payload: ViolationPayload{Violations: violations}})
		return fmt.Errorf("%w: split tree invariant violated: %s", ErrInvalidState, violations[0])
	}
	w.tree.publish(candidate)
	tx.emit(Event{Type: EventTreeChanged, Workspace: w.ID})
	return nil
}

// destroyTree removes every surface of w and their notifications.
func (tx *txn) destroyTree(w *Workspace) {
	s := tx.s
	for _, id := range Leaves(w.Root()) {
		surf, err := s.surfaces.lookup(id)
		if err != nil {
			continue
		}
		info := s.surfaces.info(surf, s.focused)
		_ = s.surfaces.destroy(id)
		s.dropNotifications(id)
		tx.emit(Event{Type: EventSurfaceClosed, Workspace: w.ID, Surface: id, Payload: SurfacePayload{Info: info}})
	}
	w.tree.publish(nil)
	w.active = ""
}

// NewWorkspace creates a workspace holding one surface of the default panel
// kind, selects it and focuses the new surface.
func (s *Session) NewWorkspace(title string) (WorkspaceInfo, SurfaceID, error) {
	var info WorkspaceInfo
	var surfaceID SurfaceID
	err := s.mutate(func(tx *txn) error {
		panel, err := s.reg.Resolve("")
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
		now := s.now()
		w := &Workspace{ID: WorkspaceID(s.newID()), Title: title, Created: now}
		if w.Title == "" {
			w.Title = fmt.Sprintf("Workspace %d", len(s.workspaces)+1)
		}
		surfaceID = SurfaceID(s.newID())
		if err := tx.commitTree(w, NewLeaf(surfaceID)); err != nil {
			return err
		}
		surf := s.surfaces.create(surfaceID, panel, w.ID, now)
		s.workspaces = append(s.workspaces, w)
		tx.emit(Event{Type: EventWorkspaceCreated, Workspace: w.ID})
		tx.emit(Event{Type: EventSurfaceCreated, Workspace: w.ID, Surface: surfaceID, Payload: SurfacePayload{Info: s.surfaces.info(surf, s.focused)}})

		tx.focus(surfaceID)
		info = s.workspaceInfo(len(s.workspaces)-1, w)
		return nil
	})
	return info, surfaceID, err
}

// SelectWorkspace selects id and moves focus to the surface it remembers.
func (s *Session) SelectWorkspace(id WorkspaceID) (WorkspaceInfo, error) {
	var info WorkspaceInfo
	err := s.mutate(func(tx *txn) error {
		index, w, err := s.findWorkspace(id)
		if err != nil {
			return err
		}
		tx.selectWorkspace(w)
		info = s.workspaceInfo(index, w)
		return nil
	})
	return info, err
}

func (tx *txn) selectWorkspace(w *Workspace) {
	s := tx.s
	if s.selected != w.ID {
		s.selected = w.ID
		tx.emit(Event{Type: EventWorkspaceSelected, Workspace: w.ID})
	}
	switch {
	case w.active != "" && s.focused != w.active:
		tx.focus(w.active)
	case w.active == "" && s.focused != "":
		tx.clearFocus()
	}
}

// CloseWorkspace destroys a workspace and everything in it. The last
// workspace cannot be closed.
func (s *Session) CloseWorkspace(id WorkspaceID) error {
	return s.mutate(func(tx *txn) error {
		index, w, err := s.findWorkspace(id)
		if err != nil {
			return err
		}
		if len(s.workspaces) == 1 {
			return fmt.Errorf("%w: cannot close the last workspace", ErrInvalidState)
		}
		tx.removeWorkspace(index, w)
		return nil
	})
}

// removeWorkspace drops w from the table and, when it was selected, selects
// the workspace that takes its place.
func (tx *txn) removeWorkspace(index int, w *Workspace) {
	s := tx.s
	hadFocus := false
	if s.focused != "" {
		surf, ok := s.surfaces.byID[s.focused]
		hadFocus = !ok || surf.Workspace == w.ID
	}
	tx.destroyTree(w)
	s.workspaces = append(s.workspaces[:index], s.workspaces[index+1:]...)
	tx.emit(Event{Type: EventWorkspaceClosed, Workspace: w.ID})

	if hadFocus {
		prev := s.focused
		s.focused = ""
		tx.emit(Event{Type: EventFocusChanged, Surface: "", Payload: FocusPayload{Previous: prev}})
	}
	if s.selected != w.ID {
		return
	}
	s.selected = ""
	if len(s.workspaces) == 0 {
		return
	}
	if index >= len(s.workspaces) {
		index = len(s.workspaces) - 1
	}
	tx.selectWorkspace(s.workspaces[index])
}

// Workspaces lists the workspace table in order.
func (s *Session) Workspaces() ([]WorkspaceInfo, error) {
	var out []WorkspaceInfo
	err := s.view(func() error {
		for i, w := range s.workspaces {
			out = append(out, s.workspaceInfo(i, w))
		}
		return nil
	})
	return out, err
}

// SelectedWorkspace returns the selected workspace.
func (s *Session) SelectedWorkspace() (WorkspaceInfo, error) {
	var info WorkspaceInfo
	err := s.view(func() error {
		index, w, err := s.resolveWorkspace("")
		if err != nil {
			return err
		}
		info = s.workspaceInfo(index, w)
		return nil
	})
	return info, err
}

// Split creates a surface of panel kind next to target (the focused surface
// when empty) and focuses it.
func (s *Session) Split(target SurfaceID, dir Direction, panelKind string) (SurfaceInfo, error) {
	var info SurfaceInfo
	err := s.mutate(func(tx *txn) error {
		if target == "" {
			if s.focused == "" {
				return fmt.Errorf("%w: no focused surface to split", ErrInvalidState)
			}
			target = s.focused
		}
		panel, err := s.reg.Resolve(panelKind)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
		surf, err := s.surfaces.lookup(target)
		if err != nil {
			return err
		}
		_, w, err := s.findWorkspace(surf.Workspace)
		if err != nil {
			return fmt.Errorf("%w: surface %q has no workspace", ErrInvalidState, target)
		}

		newID := SurfaceID(s.newID())
		candidate, err := SplitLeaf(w.Root(), target, dir, newID)
		if err != nil {
			return fmt.Errorf("%w: surface %q is not in any tree", ErrInvalidState, target)
		}
		if err := tx.commitTree(w, candidate); err != nil {
			return err
		}
		created := s.surfaces.create(newID, panel, w.ID, s.now())
		tx.emit(Event{Type: EventSurfaceCreated, Workspace: w.ID, Surface: newID, Payload: SurfacePayload{Info: s.surfaces.info(created, s.focused)}})

		tx.focus(newID)
		info = s.surfaces.info(created, s.focused)
		return nil
	})
	return info, err
}

// CloseResult describes what closing a surface did.
type CloseResult struct {
	Surface         SurfaceID
	Workspace       WorkspaceID
	WorkspaceClosed bool
	Focused         SurfaceID
}

// CloseSurface removes a surface (the focused one when id is empty). When
// its workspace becomes empty the workspace is closed unless it is the last
// one, which stays selected with no focus.
func (s *Session) CloseSurface(id SurfaceID) (CloseResult, error) {
	var res CloseResult
	err := s.mutate(func(tx *txn) error {
		if id == "" {
			if s.focused == "" {
				return fmt.Errorf("%w: no focused surface to close", ErrInvalidState)
			}
			id = s.focused
		}
		surf, err := s.surfaces.lookup(id)
		if err != nil {
			return err
		}
		index, w, err := s.findWorkspace(surf.Workspace)
		if err != nil {
			return fmt.Errorf("%w: surface %q has no workspace", ErrInvalidState, id)
		}

		root := w.Root()
		successor := siblingAfterRemoval(root, id)
		candidate, err := RemoveLeaf(root, id)
		if err != nil {
			return err
		}
		if err := tx.commitTree(w, candidate); err != nil {
			return err
		}
		info := s.surfaces.info(surf, s.focused)
		_ = s.surfaces.destroy(id)
		s.dropNotifications(id)
		tx.emit(Event{Type: EventSurfaceClosed, Workspace: w.ID, Surface: id, Payload: SurfacePayload{Info: info}})

		res = CloseResult{Surface: id, Workspace: w.ID}
		wasFocused := s.focused == id
		if w.active == id {
			w.active = successor
		}

		if candidate == nil && len(s.workspaces) > 1 {
			tx.removeWorkspace(index, w)
			res.WorkspaceClosed = true
			res.Focused = s.focused
			return nil
		}
		if wasFocused {
			if w.active != "" {
				tx.focus(w.active)
			} else {
				tx.clearFocus()
			}
		}
		res.Focused = s.focused
		return nil
	})
	return res, err
}

// SwapSurface exchanges id (the focused surface when empty) with its
// neighbor in dir. It is a no-op at the edge of the tree.
func (s *Session) SwapSurface(id SurfaceID, dir Direction) error {
	return s.mutate(func(tx *txn) error {
		if id == "" {
			id = s.focused
		}
		surf, err := s.surfaces.lookup(id)
		if err != nil {
			return err
		}
		_, w, err := s.findWorkspace(surf.Workspace)
		if err != nil {
			return err
		}
		other, err := Neighbor(w.Root(), id, dir)
		if err != nil {
			return err
		}
		if other == "" {
			return nil
		}
		candidate, err := SwapLeaves(w.Root(), id, other)
		if err != nil {
			return err
		}
		return tx.commitTree(w, candidate)
	})
}

// PaneInfo is one row of a pane listing.
type PaneInfo struct {
	Index   int
	ID      SurfaceID
	Focused bool
	Kind    registry.Kind
	Rect    Rect
	Depth   int
}

// Panes lists the surfaces of a workspace (the selected one when empty) in
// layout order.
func (s *Session) Panes(workspace WorkspaceID) ([]PaneInfo, error) {
	_, out, err := s.WorkspacePanes(workspace)
	return out, err
}

// WorkspacePanes is Panes plus the id of the workspace it read, resolved
// under the same lock.
func (s *Session) WorkspacePanes(workspace WorkspaceID) (WorkspaceID, []PaneInfo, error) {
	var (
		id  WorkspaceID
		out []PaneInfo
	)
	err := s.view(func() error {
		_, w, err := s.resolveWorkspace(workspace)
		if err != nil {
			return err
		}
		id = w.ID
		for _, g := range Layout(w.Root(), FullRect) {
			surf, err := s.surfaces.lookup(g.Surface)
			if err != nil {
				return fmt.Errorf("%w: leaf %q has no surface", ErrInvalidState, g.Surface)
			}
			out = append(out, PaneInfo{
				Index:   surf.Index,
				ID:      surf.ID,
				Focused: surf.ID == s.focused,
				Kind:    surf.Panel.Name,
				Rect:    g.Rect,
				Depth:   g.Depth,
			})
		}
		return nil
	})
	return id, out, err
}

// TreeSnapshot returns the published root of a workspace. The tree is
// immutable and may be retained.
func (s *Session) TreeSnapshot(workspace WorkspaceID) (WorkspaceID, *Node, error) {
	var id WorkspaceID
	var root *Node
	err := s.view(func() error {
		_, w, err := s.resolveWorkspace(workspace)
		if err != nil {
			return err
		}
		id, root = w.ID, w.Root()
		return nil
	})
	return id, root, err
}

// SurfaceHealth is the health report of one surface.
type SurfaceHealth struct {
	Index     int
	ID        SurfaceID
	Type      registry.Kind
	InWindow  bool
	Portal    bool
	ViewDepth int
}

// Health reports every surface of a workspace in layout order. Surfaces are
// in the window only when their workspace is selected.
func (s *Session) Health(workspace WorkspaceID) ([]SurfaceHealth, error) {
	var out []SurfaceHealth
	err := s.view(func() error {
		_, w, err := s.resolveWorkspace(workspace)
		if err != nil {
			return err
		}
		inWindow := w.ID == s.selected
		for _, g := range Layout(w.Root(), FullRect) {
			surf, err := s.surfaces.lookup(g.Surface)
			if err != nil {
				return fmt.Errorf("%w: leaf %q has no surface", ErrInvalidState, g.Surface)
			}
			out = append(out, SurfaceHealth{
				Index:     surf.Index,
				ID:        surf.ID,
				Type:      surf.Panel.Name,
				InWindow:  inWindow,
				Portal:    inWindow && surf.Panel.Portal,
				ViewDepth: g.Depth,
			})
		}
		return nil
	})
	return out, err
}

// Surface returns a surface's metrics and panel description.
func (s *Session) Surface(id SurfaceID) (SurfaceInfo, error) {
	var info SurfaceInfo
	err := s.view(func() error {
		surf, err := s.surfaces.lookup(id)
		if err != nil {
			return err
		}
		info = s.surfaces.info(surf, s.focused)
		return nil
	})
	return info, err
}

// ResolveSurface maps an empty id to the focused surface.
func (s *Session) ResolveSurface(id SurfaceID) (SurfaceInfo, error) {
	if id != "" {
		return s.Surface(id)
	}
	var info SurfaceInfo
	err := s.view(func() error {
		if s.focused == "" {
			return fmt.Errorf("%w: no focused surface", ErrInvalidState)
		}
		surf, err := s.surfaces.lookup(s.focused)
		if err != nil {
			return err
		}
		info = s.surfaces.info(surf, s.focused)
		return nil
	})
	return info, err
}

// SurfaceAt returns the surface of the selected workspace under a
// fractional point.
func (s *Session) SurfaceAt(x, y float64) (SurfaceID, bool) {
	var id SurfaceID
	var ok bool
	_ = s.view(func() error {
		_, w, err := s.resolveWorkspace("")
		if err != nil {
			return err
		}
		id, ok = LeafAt(w.Root(), x, y)
		return nil
	})
	return id, ok
}

// RecordDraw increments a surface's draw counter.
func (s *Session) RecordDraw(id SurfaceID) (uint64, error) {
	var count uint64
	err := s.mutate(func(tx *txn) error {
		var err error
		count, err = s.surfaces.incrementDraw(id)
		return err
	})
	return count, err
}
