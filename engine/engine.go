// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: engine/engine.go
// Summary: Interfaces for the rendering and input collaborators.
// Usage: The control server attaches a renderer to every surface that
// renders and forwards simulated input to it. Implementations report
// repaints and shell exits through Hooks.

package engine

import (
	"fmt"

	"github.com/framegrace/texelsplit/registry"
	"github.com/framegrace/texelsplit/texel"
)

// ErrNotAttached reports a surface with no renderer behind it.
var ErrNotAttached = fmt.Errorf("%w: surface has no renderer", texel.ErrUnsupported)

// ErrNoInput reports a surface whose panel kind does not accept input.
var ErrNoInput = fmt.Errorf("%w: panel does not accept input", texel.ErrUnsupported)

// Renderer owns what a surface displays.
type Renderer interface {
	Attach(id texel.SurfaceID, panel registry.Manifest) error
	Detach(id texel.SurfaceID) error
	ReadText(id texel.SurfaceID) (string, error)
}

// ShortcutResult reports side effects of a shortcut.
type ShortcutResult struct {
	// Exit is set when the shortcut ended the surface's program.
	Exit bool
}

// Input injects simulated user input.
type Input interface {
	Type(id texel.SurfaceID, text string) error
	Shortcut(id texel.SurfaceID, combo string) (ShortcutResult, error)
	DropFiles(id texel.SurfaceID, paths []string) error
}

// Engine is a combined renderer and input sink.
type Engine interface {
	Renderer
	Input
	Close() error
}

// DrawObserver is told about every repaint of a surface.
type DrawObserver func(id texel.SurfaceID)

// ExitObserver is told when a surface's program exits on its own.
type ExitObserver func(id texel.SurfaceID)

// Hooks connects an engine back to the session.
type Hooks struct {
	OnDraw DrawObserver
	OnExit ExitObserver
}

func (h Hooks) draw(id texel.SurfaceID) {
	if h.OnDraw != nil {
		h.OnDraw(id)
	}
}

func (h Hooks) exit(id texel.SurfaceID) {
	if h.OnExit != nil {
		h.OnExit(id)
	}
}
