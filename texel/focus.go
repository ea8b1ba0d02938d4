// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: texel/focus.go
// Summary: Global focus pointer, the focus transition and flash signalling.
// Usage: Every focus move, whether requested or made by the session itself,
// goes through txn.focus so reads and flashes stay coupled.

package texel

import "fmt"

// FocusChange reports a focus transition.
type FocusChange struct {
	Previous SurfaceID
	Current  SurfaceID
}

// Focus moves the global focus to id. The target's unread notifications
// become read and its flash counter increases by one, even when it already
// had focus. A surface in another workspace selects that workspace.
func (s *Session) Focus(id SurfaceID) (FocusChange, error) {
	var change FocusChange
	err := s.mutate(func(tx *txn) error {
		surf, err := s.surfaces.lookup(id)
		if err != nil {
			return err
		}
		_, w, err := s.findWorkspace(surf.Workspace)
		if err != nil || !Contains(w.Root(), id) {
			return fmt.Errorf("%w: surface %q is not in any tree", ErrNotFound, id)
		}
		change = tx.focus(id)
		return nil
	})
	return change, err
}

// FocusDirection moves focus to the neighbor of the focused surface. At the
// edge of the tree focus stays where it is and nothing flashes.
func (s *Session) FocusDirection(dir Direction) (FocusChange, error) {
	var change FocusChange
	err := s.mutate(func(tx *txn) error {
		if s.focused == "" {
			return fmt.Errorf("%w: no focused surface", ErrInvalidState)
		}
		surf, err := s.surfaces.lookup(s.focused)
		if err != nil {
			return err
		}
		_, w, err := s.findWorkspace(surf.Workspace)
		if err != nil {
			return err
		}
		next, err := Neighbor(w.Root(), s.focused, dir)
		if err != nil {
			return err
		}
		if next == "" {
			change = FocusChange{Previous: s.focused, Current: s.focused}
			return nil
		}
		change = tx.focus(next)
		return nil
	})
	return change, err
}

// focus performs the transition. The caller has validated id.
func (tx *txn) focus(id SurfaceID) FocusChange {
	s := tx.s
	surf := s.surfaces.byID[id]
	change := FocusChange{Previous: s.focused, Current: id}

	_, w, _ := s.findWorkspace(surf.Workspace)
	w.active = id
	if s.selected != w.ID {
		s.selected = w.ID
		tx.emit(Event{Type: EventWorkspaceSelected, Workspace: w.ID})
	}

	s.focused = id
	tx.emit(Event{Type: EventFocusChanged, Workspace: w.ID, Surface: id, Payload: FocusPayload(change)})

	if read := s.markRead(id); read > 0 {
		tx.emit(Event{Type: EventNotificationsRead, Workspace: w.ID, Surface: id, Payload: ReadPayload{Count: read}})
	}
	surf.flashCount++
	tx.emit(Event{Type: EventFlash, Workspace: w.ID, Surface: id, Payload: FlashPayload{Count: surf.flashCount, Reason: "focus"}})
	return change
}

// clearFocus leaves no surface focused.
func (tx *txn) clearFocus() {
	s := tx.s
	if s.focused == "" {
		return
	}
	prev := s.focused
	s.focused = ""
	tx.emit(Event{Type: EventFocusChanged, Payload: FocusPayload{Previous: prev}})
}

// Focused returns the focused surface, or "" when none is.
func (s *Session) Focused() SurfaceID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.focused
}

// TriggerFlash increments a surface's flash counter without touching focus.
func (s *Session) TriggerFlash(id SurfaceID) (uint64, error) {
	var count uint64
	err := s.mutate(func(tx *txn) error {
		surf, err := s.surfaces.lookup(id)
		if err != nil {
			return err
		}
		count, _ = s.surfaces.incrementFlash(id)
		tx.emit(Event{Type: EventFlash, Workspace: surf.Workspace, Surface: id, Payload: FlashPayload{Count: count, Reason: "trigger"}})
		return nil
	})
	return count, err
}

// FlashCount returns a surface's flash counter.
func (s *Session) FlashCount(id SurfaceID) (uint64, error) {
	var count uint64
	err := s.view(func() error {
		surf, err := s.surfaces.lookup(id)
		if err != nil {
			return err
		}
		count = surf.flashCount
		return nil
	})
	return count, err
}

// appFocus tracks whether the host application window is active.
type appFocus struct {
	active   bool
	override *bool
}

func (a appFocus) focused() bool {
	if a.override != nil {
		return *a.override
	}
	return a.active
}

// AppFocus is the application focus state.
type AppFocus struct {
	Focused  bool
	Override *bool
}

func (a appFocus) snapshot() AppFocus {
	out := AppFocus{Focused: a.focused()}
	if a.override != nil {
		v := *a.override
		out.Override = &v
	}
	return out
}

// ActivateApp marks the host application as active.
func (s *Session) ActivateApp() (AppFocus, error) {
	var out AppFocus
	err := s.mutate(func(tx *txn) error {
		s.app.active = true
		out = s.app.snapshot()
		return nil
	})
	return out, err
}

// SetAppFocus forces the reported application focus. A nil value removes
// the override.
func (s *Session) SetAppFocus(v *bool) (AppFocus, error) {
	var out AppFocus
	err := s.mutate(func(tx *txn) error {
		if v == nil {
			s.app.override = nil
		} else {
			b := *v
			s.app.override = &b
		}
		out = s.app.snapshot()
		return nil
	})
	return out, err
}

// AppFocusState returns the application focus state.
func (s *Session) AppFocusState() AppFocus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.app.snapshot()
}
