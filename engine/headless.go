// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: engine/headless.go
// Summary: In-process engine that echoes input onto simulation screens.
// Usage: Used by tests and by servers started without a real shell. Typing
// echoes text, ctrl+d on an empty line ends the surface, ctrl+l clears.

package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"pkt.systems/pslog"

	"github.com/framegrace/texelsplit/registry"
	"github.com/framegrace/texelsplit/texel"
)

type headlessSurface struct {
	mu     sync.Mutex
	panel  registry.Manifest
	screen *textScreen
}

// Headless keeps one simulation screen per rendering surface.
type Headless struct {
	cols, rows int
	hooks      Hooks
	log        pslog.Logger

	mu       sync.RWMutex
	surfaces map[texel.SurfaceID]*headlessSurface
}

// NewHeadless creates an engine with cols x rows screens.
func NewHeadless(cols, rows int, hooks Hooks, log pslog.Logger) *Headless {
	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 24
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	return &Headless{
		cols:     cols,
		rows:     rows,
		hooks:    hooks,
		log:      log,
		surfaces: make(map[texel.SurfaceID]*headlessSurface),
	}
}

// Attach creates a screen for id. Panels that do not render are ignored.
func (h *Headless) Attach(id texel.SurfaceID, panel registry.Manifest) error {
	if !panel.Renders {
		return nil
	}
	screen, err := newTextScreen(h.cols, h.rows)
	if err != nil {
		return fmt.Errorf("engine: init screen for %s: %w", id, err)
	}
	h.mu.Lock()
	if old, ok := h.surfaces[id]; ok {
		old.screen.fini()
	}
	h.surfaces[id] = &headlessSurface{panel: panel, screen: screen}
	h.mu.Unlock()

	screen.paint()
	h.hooks.draw(id)
	return nil
}

// Detach releases id's screen.
func (h *Headless) Detach(id texel.SurfaceID) error {
	h.mu.Lock()
	s, ok := h.surfaces[id]
	delete(h.surfaces, id)
	h.mu.Unlock()
	if !ok {
		return nil
	}
	s.mu.Lock()
	s.screen.fini()
	s.mu.Unlock()
	return nil
}

func (h *Headless) lookup(id texel.SurfaceID) (*headlessSurface, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.surfaces[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotAttached, id)
	}
	return s, nil
}

func (h *Headless) input(id texel.SurfaceID) (*headlessSurface, error) {
	s, err := h.lookup(id)
	if err != nil {
		return nil, err
	}
	if !s.panel.AcceptsInput {
		return nil, fmt.Errorf("%w: %s", ErrNoInput, s.panel.Name)
	}
	return s, nil
}

// ReadText returns the visible text of id.
func (h *Headless) ReadText(id texel.SurfaceID) (string, error) {
	s, err := h.lookup(id)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screen.text(), nil
}

// Type echoes text onto id's screen.
func (h *Headless) Type(id texel.SurfaceID, text string) error {
	s, err := h.input(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.screen.write(text)
	s.screen.paint()
	s.mu.Unlock()
	h.hooks.draw(id)
	return nil
}

// Shortcut applies a key combination to id.
func (h *Headless) Shortcut(id texel.SurfaceID, combo string) (ShortcutResult, error) {
	ev, err := ParseCombo(combo)
	if err != nil {
		return ShortcutResult{}, err
	}
	s, err := h.input(id)
	if err != nil {
		return ShortcutResult{}, err
	}

	var res ShortcutResult
	s.mu.Lock()
	switch ev.Key() {
	case tcell.KeyCtrlD:
		if len(s.screen.current()) == 0 {
			res.Exit = true
		}
	case tcell.KeyCtrlL:
		s.screen.clear()
	case tcell.KeyCtrlC:
		s.screen.write("^C\n")
	case tcell.KeyCtrlU:
		s.screen.eraseLine()
	case tcell.KeyEnter:
		s.screen.write("\n")
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		s.screen.backspace()
	case tcell.KeyRune:
		if ev.Modifiers()&(tcell.ModCtrl|tcell.ModAlt|tcell.ModMeta) == 0 {
			s.screen.write(string(ev.Rune()))
		}
	}
	if !res.Exit {
		s.screen.paint()
	}
	s.mu.Unlock()

	if res.Exit {
		h.log.Debug("headless surface exited", "surface", id)
		return res, nil
	}
	h.hooks.draw(id)
	return res, nil
}

// DropFiles types the shell-quoted paths separated by spaces.
func (h *Headless) DropFiles(id texel.SurfaceID, paths []string) error {
	return h.Type(id, quotePaths(paths))
}

// Close releases every screen.
func (h *Headless) Close() error {
	h.mu.Lock()
	surfaces := h.surfaces
	h.surfaces = make(map[texel.SurfaceID]*headlessSurface)
	h.mu.Unlock()
	for _, s := range surfaces {
		s.mu.Lock()
		s.screen.fini()
		s.mu.Unlock()
	}
	return nil
}

// quotePaths renders paths the way a terminal inserts dropped files.
func quotePaths(paths []string) string {
	quoted := make([]string, 0, len(paths))
	for _, p := range paths {
		quoted = append(quoted, shellQuote(p))
	}
	return strings.Join(quoted, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("@%_+=:,./-~", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
