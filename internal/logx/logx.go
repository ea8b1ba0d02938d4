// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: internal/logx/logx.go
// Summary: Logger field helpers shared by the server and engines.

package logx

import (
	"context"

	"pkt.systems/pslog"

	"github.com/framegrace/texelsplit/texel"
)

type contextKey int

const connKey contextKey = iota

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithConnection annotates the logger from ctx with a connection id and
// returns a context carrying both the id and the annotated logger.
func WithConnection(ctx context.Context, connID string) (context.Context, pslog.Logger) {
	log := pslog.Ctx(ctx)
	if connID == "" {
		return ctx, log
	}
	if current, ok := ctx.Value(connKey).(string); ok && current == connID {
		return ctx, log
	}
	log = log.With("conn", connID)
	ctx = context.WithValue(ctx, connKey, connID)
	return pslog.ContextWithLogger(ctx, log), log
}

// ConnectionID returns the connection id stored by WithConnection.
func ConnectionID(ctx context.Context) string {
	id, _ := ctx.Value(connKey).(string)
	return id
}

// WithSurface annotates the logger with a surface id when available.
func WithSurface(log pslog.Logger, id texel.SurfaceID) pslog.Logger {
	if id != "" {
		log = log.With("surface", string(id))
	}
	return log
}

// WithWorkspace annotates the logger with a workspace id when available.
func WithWorkspace(log pslog.Logger, id texel.WorkspaceID) pslog.Logger {
	if id != "" {
		log = log.With("workspace", string(id))
	}
	return log
}

// WithCommand annotates the logger with a control command name.
func WithCommand(log pslog.Logger, cmd string) pslog.Logger {
	if cmd != "" {
		log = log.With("cmd", cmd)
	}
	return log
}
