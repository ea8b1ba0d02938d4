// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: texel/input.go
// Summary: Routes pointer events to surfaces through the drag gate.
// Usage: The control server feeds simulated events to Route. HandleMouse is
// the adapter for a program embedding the router behind its own tcell screen.

package texel

import (
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/framegrace/texelsplit/dragdrop"
)

// MouseResult describes how a pointer event was handled.
type MouseResult struct {
	Event    dragdrop.EventKind
	Captured bool
	Surface  SurfaceID
	Focus    *FocusChange
}

// InputRouter hit-tests pointer events against the selected workspace.
type InputRouter struct {
	session    *Session
	pasteboard *dragdrop.Pasteboard

	mu          sync.Mutex
	lastButtons tcell.ButtonMask
}

// NewInputRouter creates a router for session consulting pasteboard.
func NewInputRouter(session *Session, pasteboard *dragdrop.Pasteboard) *InputRouter {
	return &InputRouter{session: session, pasteboard: pasteboard}
}

// HandleMouse converts a tcell mouse event on a width x height screen to a
// drag-gate event and fractional point, then calls Route. Nothing in this
// module owns a tcell screen; it exists for embedders.
func (r *InputRouter) HandleMouse(ev *tcell.EventMouse, width, height int) (MouseResult, error) {
	if ev == nil || width <= 0 || height <= 0 {
		return MouseResult{Event: dragdrop.EventNone}, nil
	}
	buttons := ev.Buttons()
	r.mu.Lock()
	kind := dragdrop.ClassifyMouse(r.lastButtons, buttons)
	if kind != dragdrop.EventScrollWheel {
		// Wheel events do not report held buttons reliably.
		r.lastButtons = buttons
	}
	r.mu.Unlock()

	x, y := ev.Position()
	fx := (float64(x) + 0.5) / float64(width)
	fy := (float64(y) + 0.5) / float64(height)
	return r.Route(kind, fx, fy)
}

// Route applies the drag gate to kind at the fractional point (x, y). A
// captured event reaches no surface. A left press focuses the surface under
// the point unless it already has focus.
func (r *InputRouter) Route(kind dragdrop.EventKind, x, y float64) (MouseResult, error) {
	res := MouseResult{Event: kind}
	if r.pasteboard.ShouldCapture(kind) {
		res.Captured = true
		return res, nil
	}
	id, ok := r.session.SurfaceAt(x, y)
	if !ok {
		return res, nil
	}
	res.Surface = id
	if kind != dragdrop.EventLeftMouseDown || r.session.Focused() == id {
		return res, nil
	}
	change, err := r.session.Focus(id)
	if err != nil {
		return res, err
	}
	res.Focus = &change
	return res, nil
}
