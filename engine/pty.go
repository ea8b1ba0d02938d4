// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: engine/pty.go
// Summary: Engine that runs a real shell behind every terminal surface.
// Usage: Output is stripped of escape sequences and printed as plain text;
// this is a process host, not a terminal emulator. Other panel kinds fall
// back to the headless engine.

package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/creack/pty"
	"pkt.systems/pslog"

	"github.com/framegrace/texelsplit/registry"
	"github.com/framegrace/texelsplit/texel"
)

type ptySurface struct {
	mu       sync.Mutex
	screen   *textScreen
	cmd      *exec.Cmd
	pty      *os.File
	detached bool
	done     chan struct{}
}

// PTYHost spawns shell for each terminal surface.
type PTYHost struct {
	shell      string
	cols, rows int
	hooks      Hooks
	log        pslog.Logger
	fallback   *Headless

	mu       sync.RWMutex
	surfaces map[texel.SurfaceID]*ptySurface
}

// NewPTYHost creates a host running shell on cols x rows ptys.
func NewPTYHost(shell string, cols, rows int, hooks Hooks, log pslog.Logger) *PTYHost {
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	fallback := NewHeadless(cols, rows, hooks, log)
	return &PTYHost{
		shell:    shell,
		cols:     fallback.cols,
		rows:     fallback.rows,
		hooks:    hooks,
		log:      log,
		fallback: fallback,
		surfaces: make(map[texel.SurfaceID]*ptySurface),
	}
}

// Attach starts a shell for terminal surfaces.
func (p *PTYHost) Attach(id texel.SurfaceID, panel registry.Manifest) error {
	if panel.Name != registry.KindTerminal {
		return p.fallback.Attach(id, panel)
	}
	screen, err := newTextScreen(p.cols, p.rows)
	if err != nil {
		return fmt.Errorf("engine: init screen for %s: %w", id, err)
	}

	cmd := exec.Command(p.shell)
	cmd.Env = append(os.Environ(),
		"TERM=dumb",
		"TEXELSPLIT_SURFACE="+string(id),
	)
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(p.rows),
		Cols: uint16(p.cols),
	})
	if err != nil {
		screen.fini()
		p.log.Warn("failed to start pty", "surface", id, "shell", p.shell, "err", err)
		return fmt.Errorf("engine: start %s: %w", p.shell, err)
	}

	s := &ptySurface{screen: screen, cmd: cmd, pty: ptmx, done: make(chan struct{})}
	p.mu.Lock()
	p.surfaces[id] = s
	p.mu.Unlock()

	p.log.Debug("pty started", "surface", id, "pid", cmd.Process.Pid)
	go p.pump(id, s)
	return nil
}

// pump copies pty output onto the surface's screen until the shell exits.
func (p *PTYHost) pump(id texel.SurfaceID, s *ptySurface) {
	buf := make([]byte, 4096)
	for {
		n, err := s.pty.Read(buf)
		if n > 0 {
			text := ansi.Strip(string(buf[:n]))
			s.mu.Lock()
			live := !s.detached
			if live {
				s.screen.write(text)
				s.screen.paint()
			}
			s.mu.Unlock()
			if live {
				p.hooks.draw(id)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				p.log.Debug("pty read ended", "surface", id, "err", err)
			}
			break
		}
	}
	_ = s.cmd.Wait()
	close(s.done)

	s.mu.Lock()
	detached := s.detached
	s.mu.Unlock()
	if !detached {
		p.log.Info("shell exited", "surface", id)
		p.hooks.exit(id)
	}
}

// Detach stops the shell behind id.
func (p *PTYHost) Detach(id texel.SurfaceID) error {
	p.mu.Lock()
	s, ok := p.surfaces[id]
	delete(p.surfaces, id)
	p.mu.Unlock()
	if !ok {
		return p.fallback.Detach(id)
	}
	p.stop(s)
	return nil
}

func (p *PTYHost) stop(s *ptySurface) {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return
	}
	s.detached = true
	s.screen.fini()
	s.mu.Unlock()

	_ = s.pty.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
	}
}

func (p *PTYHost) lookup(id texel.SurfaceID) (*ptySurface, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.surfaces[id]
	return s, ok
}

// ReadText returns the visible text of id.
func (p *PTYHost) ReadText(id texel.SurfaceID) (string, error) {
	s, ok := p.lookup(id)
	if !ok {
		return p.fallback.ReadText(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return "", fmt.Errorf("%w: %s", ErrNotAttached, id)
	}
	return s.screen.text(), nil
}

func (p *PTYHost) send(s *ptySurface, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if _, err := s.pty.Write(data); err != nil {
		return fmt.Errorf("engine: write to pty: %w", err)
	}
	return nil
}

// Type writes text to id's shell.
func (p *PTYHost) Type(id texel.SurfaceID, text string) error {
	s, ok := p.lookup(id)
	if !ok {
		return p.fallback.Type(id, text)
	}
	return p.send(s, []byte(text))
}

// Shortcut sends the key combination's terminal encoding. Exits are
// reported later through the exit hook.
func (p *PTYHost) Shortcut(id texel.SurfaceID, combo string) (ShortcutResult, error) {
	s, ok := p.lookup(id)
	if !ok {
		return p.fallback.Shortcut(id, combo)
	}
	ev, err := ParseCombo(combo)
	if err != nil {
		return ShortcutResult{}, err
	}
	return ShortcutResult{}, p.send(s, keyBytes(ev))
}

// DropFiles writes the shell-quoted paths to id's shell.
func (p *PTYHost) DropFiles(id texel.SurfaceID, paths []string) error {
	s, ok := p.lookup(id)
	if !ok {
		return p.fallback.DropFiles(id, paths)
	}
	return p.send(s, []byte(quotePaths(paths)))
}

// Close stops every shell.
func (p *PTYHost) Close() error {
	p.mu.Lock()
	surfaces := p.surfaces
	p.surfaces = make(map[texel.SurfaceID]*ptySurface)
	p.mu.Unlock()
	for _, s := range surfaces {
		p.stop(s)
	}
	return p.fallback.Close()
}
