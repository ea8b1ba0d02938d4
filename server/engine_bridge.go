// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: server/engine_bridge.go
// Summary: Keeps the terminal engine in step with the session's surfaces.
// Usage: Surfaces are attached when created and detached when closed.
// Engine draws feed render_stats and shell exits close their surface.

package server

import (
	"errors"
	"fmt"

	"pkt.systems/pslog"

	"github.com/framegrace/texelsplit/engine"
	"github.com/framegrace/texelsplit/internal/logx"
	"github.com/framegrace/texelsplit/texel"
)

// EngineHooks returns hooks that report engine activity to session. Pass
// them to the engine constructor before handing the engine to NewServer.
func EngineHooks(session *texel.Session, log pslog.Logger) engine.Hooks {
	return engine.Hooks{
		OnDraw: func(id texel.SurfaceID) {
			if _, err := session.RecordDraw(id); err != nil && !errors.Is(err, texel.ErrNotFound) && !errors.Is(err, texel.ErrClosed) {
				logx.WithSurface(log, id).Warn("record draw failed", "err", err)
			}
		},
		OnExit: func(id texel.SurfaceID) {
			if _, err := session.CloseSurface(id); err != nil && !errors.Is(err, texel.ErrNotFound) && !errors.Is(err, texel.ErrClosed) {
				logx.WithSurface(log, id).Warn("close exited surface failed", "err", err)
			}
		},
	}
}

type engineBridge struct {
	session *texel.Session
	engine  engine.Engine
	log     pslog.Logger
}

func newEngineBridge(session *texel.Session, eng engine.Engine, log pslog.Logger) *engineBridge {
	return &engineBridge{session: session, engine: eng, log: log.With("component", "engine")}
}

// start subscribes to the session and attaches surfaces that already exist.
func (b *engineBridge) start() error {
	b.session.Subscribe(b)
	workspaces, err := b.session.Workspaces()
	if err != nil {
		return err
	}
	for _, ws := range workspaces {
		panes, err := b.session.Panes(ws.ID)
		if err != nil {
			return err
		}
		for _, p := range panes {
			info, err := b.session.Surface(p.ID)
			if err != nil {
				return err
			}
			if err := b.engine.Attach(info.ID, info.Panel); err != nil {
				return fmt.Errorf("server: attach %s: %w", info.ID, err)
			}
		}
	}
	return nil
}

func (b *engineBridge) stop() {
	b.session.Unsubscribe(b)
	if err := b.engine.Close(); err != nil {
		b.log.Warn("engine close failed", "err", err)
	}
}

// OnEvent implements texel.Listener.
func (b *engineBridge) OnEvent(ev texel.Event) {
	switch ev.Type {
	case texel.EventSurfaceCreated:
		p, ok := ev.Payload.(texel.SurfacePayload)
		if !ok {
			return
		}
		if err := b.engine.Attach(ev.Surface, p.Info.Panel); err != nil {
			logx.WithSurface(b.log, ev.Surface).Error("engine attach failed", "err", err)
		}
	case texel.EventSurfaceClosed:
		if err := b.engine.Detach(ev.Surface); err != nil {
			logx.WithSurface(b.log, ev.Surface).Warn("engine detach failed", "err", err)
		}
	}
}
