// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: server/dispatch.go
// Summary: Command table for the control protocol.
// Usage: A handler returns a reply value or an error. Framing errors close
// the connection; every other error becomes an error reply.

package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/framegrace/texelsplit/dragdrop"
	"github.com/framegrace/texelsplit/internal/logx"
	"github.com/framegrace/texelsplit/journal"
	"github.com/framegrace/texelsplit/protocol"
	"github.com/framegrace/texelsplit/texel"
)

type handlerFunc func(ctx context.Context, s *Server, f protocol.Frame) (any, error)

var handlers map[string]handlerFunc

func init() {
	handlers = map[string]handlerFunc{
		protocol.CmdPing:                        handlePing,
		protocol.CmdNewWorkspace:                handleNewWorkspace,
		protocol.CmdSelectWorkspace:             handleSelectWorkspace,
		protocol.CmdCloseWorkspace:              handleCloseWorkspace,
		protocol.CmdListWorkspaces:              handleListWorkspaces,
		protocol.CmdNewSplit:                    handleNewSplit,
		protocol.CmdNewSurface:                  handleNewSurface,
		protocol.CmdCloseSurface:                handleCloseSurface,
		protocol.CmdFocusSurface:                handleFocusSurface,
		protocol.CmdFocusPane:                   handleFocusSurface,
		protocol.CmdFocusDirection:              handleFocusDirection,
		protocol.CmdSwapSurface:                 handleSwapSurface,
		protocol.CmdListPanes:                   handleListPanes,
		protocol.CmdListSurfaces:                handleListPanes,
		protocol.CmdTreeSnapshot:                handleTreeSnapshot,
		protocol.CmdSurfaceHealth:               handleSurfaceHealth,
		protocol.CmdNotifySurface:               handleNotifySurface,
		protocol.CmdListNotifications:           handleListNotifications,
		protocol.CmdClearNotifications:          handleClearNotifications,
		protocol.CmdFlashCount:                  handleFlashCount,
		protocol.CmdTriggerFlash:                handleTriggerFlash,
		protocol.CmdResetFlashCounts:            diagnosticsOnly(handleResetFlashCounts),
		protocol.CmdOverlayHitGate:              handleOverlayHitGate,
		protocol.CmdClearDragPasteboard:         handleClearDragPasteboard,
		protocol.CmdSeedDragFileURL:             seedPasteboard(dragdrop.KindFileURL),
		protocol.CmdSeedDragTabTransfer:         seedPasteboard(dragdrop.KindTabTransfer),
		protocol.CmdSeedDragSidebarReorder:      seedPasteboard(dragdrop.KindSidebarReorder),
		protocol.CmdRenderStats:                 handleRenderStats,
		protocol.CmdReadTerminalText:            handleReadTerminalText,
		protocol.CmdSimulateType:                handleSimulateType,
		protocol.CmdSimulateShortcut:            handleSimulateShortcut,
		protocol.CmdSimulateFileDrop:            handleSimulateFileDrop,
		protocol.CmdSimulateMouse:               handleSimulateMouse,
		protocol.CmdBonsplitUnderflowCount:      diagnosticsOnly(handleUnderflowCount),
		protocol.CmdResetBonsplitUnderflowCount: diagnosticsOnly(handleResetUnderflowCount),
		protocol.CmdActivateApp:                 handleActivateApp,
		protocol.CmdSetAppFocus:                 handleSetAppFocus,
		protocol.CmdJournalTail:                 handleJournalTail,
	}
}

// dispatch runs one command. The returned error is non-nil only when the
// connection must be closed.
func (s *Server) dispatch(ctx context.Context, f protocol.Frame) (any, error) {
	log := logx.WithCommand(logx.Ctx(ctx), f.Type)
	h, ok := handlers[f.Type]
	if !ok {
		s.metrics.RecordCommand(ctx, unknownCommand, protocol.KindProtocolError)
		log.Debug("unknown command")
		return protocol.ErrorReply{
			Type:    protocol.MsgError,
			Kind:    protocol.KindProtocolError,
			Message: fmt.Sprintf("unknown command %q", f.Type),
			Command: f.Type,
		}, nil
	}
	reply, err := h(ctx, s, f)
	if err == nil {
		s.metrics.RecordCommand(ctx, f.Type, "ok")
		return reply, nil
	}
	if errors.Is(err, protocol.ErrProtocol) {
		s.metrics.RecordCommand(ctx, f.Type, protocol.KindProtocolError)
		return nil, err
	}
	kind := texel.KindOf(err)
	s.metrics.RecordCommand(ctx, f.Type, string(kind))
	if kind == texel.KindInternal {
		log.Error("command failed", "err", err)
	} else {
		log.Debug("command rejected", "kind", string(kind), "err", err)
	}
	return protocol.ErrorReply{
		Type:    protocol.MsgError,
		Kind:    string(kind),
		Message: err.Error(),
		Command: f.Type,
	}, nil
}

func okReply() protocol.OK {
	return protocol.OK{Type: protocol.MsgOK}
}

func diagnosticsOnly(h handlerFunc) handlerFunc {
	return func(ctx context.Context, s *Server, f protocol.Frame) (any, error) {
		if !s.diagnostics {
			return nil, fmt.Errorf("%w: %s requires diagnostics to be enabled", texel.ErrUnsupported, f.Type)
		}
		return h(ctx, s, f)
	}
}

func optSurface(f protocol.Frame) (texel.SurfaceID, error) {
	id, err := f.OptString("id")
	return texel.SurfaceID(id), err
}

func reqSurface(f protocol.Frame) (texel.SurfaceID, error) {
	id, err := f.String("id")
	return texel.SurfaceID(id), err
}

func optWorkspace(f protocol.Frame) (texel.WorkspaceID, error) {
	id, err := f.OptString("workspace")
	return texel.WorkspaceID(id), err
}

func parseEventKind(f protocol.Frame) (dragdrop.EventKind, error) {
	name, err := f.String("event_kind")
	if err != nil {
		return "", err
	}
	kind, err := dragdrop.ParseEventKind(name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", texel.ErrInvalidState, err)
	}
	return kind, nil
}

func handlePing(_ context.Context, _ *Server, _ protocol.Frame) (any, error) {
	return protocol.Pong{Type: protocol.MsgPong}, nil
}

// Workspaces.

func handleNewWorkspace(_ context.Context, s *Server, f protocol.Frame) (any, error) {
	title, err := f.OptString("title")
	if err != nil {
		return nil, err
	}
	info, surface, err := s.session.NewWorkspace(title)
	if err != nil {
		return nil, err
	}
	return protocol.WorkspaceReply{
		Type:      "workspace",
		ID:        string(info.ID),
		Index:     info.Index,
		Title:     info.Title,
		SurfaceID: string(surface),
	}, nil
}

func handleSelectWorkspace(_ context.Context, s *Server, f protocol.Frame) (any, error) {
	id, err := f.String("id")
	if err != nil {
		return nil, err
	}
	info, err := s.session.SelectWorkspace(texel.WorkspaceID(id))
	if err != nil {
		return nil, err
	}
	return protocol.WorkspaceReply{
		Type:      "workspace",
		ID:        string(info.ID),
		Index:     info.Index,
		Title:     info.Title,
		SurfaceID: string(info.Active),
	}, nil
}

func handleCloseWorkspace(_ context.Context, s *Server, f protocol.Frame) (any, error) {
	id, err := f.String("id")
	if err != nil {
		return nil, err
	}
	if err := s.session.CloseWorkspace(texel.WorkspaceID(id)); err != nil {
		return nil, err
	}
	return okReply(), nil
}

func handleListWorkspaces(_ context.Context, s *Server, _ protocol.Frame) (any, error) {
	list, err := s.session.Workspaces()
	if err != nil {
		return nil, err
	}
	out := protocol.WorkspacesReply{Type: "workspaces", Workspaces: make([]protocol.WorkspaceEntry, 0, len(list))}
	for _, info := range list {
		out.Workspaces = append(out.Workspaces, workspaceEntry(info))
	}
	return out, nil
}

// Layout.

func handleNewSplit(_ context.Context, s *Server, f protocol.Frame) (any, error) {
	name, err := f.String("direction")
	if err != nil {
		return nil, err
	}
	target, err := optSurface(f)
	if err != nil {
		return nil, err
	}
	panel, err := f.OptString("panel_type")
	if err != nil {
		return nil, err
	}
	dir, err := texel.ParseDirection(name)
	if err != nil {
		return nil, err
	}
	info, err := s.session.Split(target, dir, panel)
	if err != nil {
		return nil, err
	}
	return surfaceReply(info), nil
}

func handleNewSurface(_ context.Context, s *Server, f protocol.Frame) (any, error) {
	panel, err := f.OptString("panel_type")
	if err != nil {
		return nil, err
	}
	name, err := f.OptString("direction")
	if err != nil {
		return nil, err
	}
	dir := texel.DirRight
	if name != "" {
		if dir, err = texel.ParseDirection(name); err != nil {
			return nil, err
		}
	}
	info, err := s.session.Split("", dir, panel)
	if err != nil {
		return nil, err
	}
	return surfaceReply(info), nil
}

func handleCloseSurface(_ context.Context, s *Server, f protocol.Frame) (any, error) {
	id, err := optSurface(f)
	if err != nil {
		return nil, err
	}
	if _, err := s.session.CloseSurface(id); err != nil {
		return nil, err
	}
	return okReply(), nil
}

func handleSwapSurface(_ context.Context, s *Server, f protocol.Frame) (any, error) {
	name, err := f.String("direction")
	if err != nil {
		return nil, err
	}
	id, err := optSurface(f)
	if err != nil {
		return nil, err
	}
	dir, err := texel.ParseDirection(name)
	if err != nil {
		return nil, err
	}
	if err := s.session.SwapSurface(id, dir); err != nil {
		return nil, err
	}
	return okReply(), nil
}

func handleListPanes(_ context.Context, s *Server, f protocol.Frame) (any, error) {
	ws, err := optWorkspace(f)
	if err != nil {
		return nil, err
	}
	resolved, panes, err := s.session.WorkspacePanes(ws)
	if err != nil {
		return nil, err
	}
	out := protocol.PanesReply{Type: "panes", Workspace: string(resolved), Panes: make([]protocol.PaneEntry, 0, len(panes))}
	for _, p := range panes {
		out.Panes = append(out.Panes, paneEntry(p))
	}
	return out, nil
}

func handleTreeSnapshot(_ context.Context, s *Server, f protocol.Frame) (any, error) {
	ws, err := optWorkspace(f)
	if err != nil {
		return nil, err
	}
	id, root, err := s.session.TreeSnapshot(ws)
	if err != nil {
		return nil, err
	}
	return protocol.TreeReply{Type: "tree", Workspace: string(id), Root: buildProtocolTreeNode(root)}, nil
}

func handleSurfaceHealth(_ context.Context, s *Server, f protocol.Frame) (any, error) {
	ws, err := optWorkspace(f)
	if err != nil {
		return nil, err
	}
	list, err := s.session.Health(ws)
	if err != nil {
		return nil, err
	}
	out := protocol.HealthReply{Type: "health", Surfaces: make([]protocol.HealthEntry, 0, len(list))}
	for _, h := range list {
		out.Surfaces = append(out.Surfaces, healthEntry(h))
	}
	return out, nil
}

// Focus and notifications.

func handleFocusSurface(_ context.Context, s *Server, f protocol.Frame) (any, error) {
	id, err := reqSurface(f)
	if err != nil {
		return nil, err
	}
	change, err := s.session.Focus(id)
	if err != nil {
		return nil, err
	}
	return focusReply(change), nil
}

func handleFocusDirection(_ context.Context, s *Server, f protocol.Frame) (any, error) {
	name, err := f.String("direction")
	if err != nil {
		return nil, err
	}
	dir, err := texel.ParseDirection(name)
	if err != nil {
		return nil, err
	}
	change, err := s.session.FocusDirection(dir)
	if err != nil {
		return nil, err
	}
	return focusReply(change), nil
}

func handleNotifySurface(_ context.Context, s *Server, f protocol.Frame) (any, error) {
	id, err := reqSurface(f)
	if err != nil {
		return nil, err
	}
	title, err := f.String("title")
	if err != nil {
		return nil, err
	}
	kind, err := f.OptString("kind")
	if err != nil {
		return nil, err
	}
	body, err := f.OptString("body")
	if err != nil {
		return nil, err
	}
	n, err := s.session.Notify(id, title, kind, body)
	if err != nil {
		return nil, err
	}
	return protocol.NotificationReply{Type: "notification", Notification: notificationEntry(n)}, nil
}

func handleListNotifications(_ context.Context, s *Server, f protocol.Frame) (any, error) {
	id, err := optSurface(f)
	if err != nil {
		return nil, err
	}
	list, err := s.session.Notifications(texel.NotificationFilter{Surface: id})
	if err != nil {
		return nil, err
	}
	out := protocol.NotificationsReply{Type: "notifications", Notifications: make([]protocol.NotificationEntry, 0, len(list))}
	for _, n := range list {
		out.Notifications = append(out.Notifications, notificationEntry(n))
	}
	return out, nil
}

func handleClearNotifications(_ context.Context, s *Server, f protocol.Frame) (any, error) {
	id, err := optSurface(f)
	if err != nil {
		return nil, err
	}
	if _, err := s.session.ClearNotifications(id); err != nil {
		return nil, err
	}
	return okReply(), nil
}

func handleFlashCount(_ context.Context, s *Server, f protocol.Frame) (any, error) {
	id, err := reqSurface(f)
	if err != nil {
		return nil, err
	}
	count, err := s.session.FlashCount(id)
	if err != nil {
		return nil, err
	}
	return protocol.CountReply{Type: "flash_count", ID: string(id), Count: count}, nil
}

func handleTriggerFlash(_ context.Context, s *Server, f protocol.Frame) (any, error) {
	id, err := reqSurface(f)
	if err != nil {
		return nil, err
	}
	count, err := s.session.TriggerFlash(id)
	if err != nil {
		return nil, err
	}
	return protocol.CountReply{Type: "flash_count", ID: string(id), Count: count}, nil
}

func handleResetFlashCounts(_ context.Context, s *Server, _ protocol.Frame) (any, error) {
	if err := s.session.Diagnostics().ResetFlashCounts(); err != nil {
		return nil, err
	}
	return okReply(), nil
}

// Drag gate and pointer input.

func handleOverlayHitGate(_ context.Context, s *Server, f protocol.Frame) (any, error) {
	kind, err := parseEventKind(f)
	if err != nil {
		return nil, err
	}
	drag := s.pasteboard.Kind()
	return protocol.GateReply{
		Type:      "gate",
		EventKind: string(kind),
		DragKind:  string(drag),
		Capture:   dragdrop.ShouldCaptureHitTest(kind, drag),
	}, nil
}

func handleClearDragPasteboard(_ context.Context, s *Server, _ protocol.Frame) (any, error) {
	s.pasteboard.Clear()
	return okReply(), nil
}

func seedPasteboard(kind dragdrop.Kind) handlerFunc {
	return func(_ context.Context, s *Server, _ protocol.Frame) (any, error) {
		s.pasteboard.Seed(kind)
		return okReply(), nil
	}
}

func handleSimulateMouse(_ context.Context, s *Server, f protocol.Frame) (any, error) {
	kind, err := parseEventKind(f)
	if err != nil {
		return nil, err
	}
	x, err := f.Float("x")
	if err != nil {
		return nil, err
	}
	y, err := f.Float("y")
	if err != nil {
		return nil, err
	}
	res, err := s.input.Route(kind, x, y)
	if err != nil {
		return nil, err
	}
	out := protocol.MouseReply{Type: "mouse", Captured: res.Captured, Surface: string(res.Surface)}
	if res.Focus != nil {
		out.Focused = string(res.Focus.Current)
	}
	return out, nil
}

// Terminal engine.

func (s *Server) requireEngine() error {
	if s.engine == nil {
		return fmt.Errorf("%w: no terminal engine configured", texel.ErrUnsupported)
	}
	return nil
}

// engineTarget resolves the optional id field to a live surface.
func (s *Server) engineTarget(f protocol.Frame) (texel.SurfaceInfo, error) {
	id, err := optSurface(f)
	if err != nil {
		return texel.SurfaceInfo{}, err
	}
	if err := s.requireEngine(); err != nil {
		return texel.SurfaceInfo{}, err
	}
	return s.session.ResolveSurface(id)
}

func handleRenderStats(_ context.Context, s *Server, f protocol.Frame) (any, error) {
	id, err := reqSurface(f)
	if err != nil {
		return nil, err
	}
	info, err := s.session.Surface(id)
	if err != nil {
		return nil, err
	}
	return protocol.RenderStatsReply{Type: "render_stats", ID: string(info.ID), DrawCount: info.DrawCount}, nil
}

func handleReadTerminalText(_ context.Context, s *Server, f protocol.Frame) (any, error) {
	info, err := s.engineTarget(f)
	if err != nil {
		return nil, err
	}
	text, err := s.engine.ReadText(info.ID)
	if err != nil {
		return nil, err
	}
	return protocol.TerminalTextReply{Type: "terminal_text", ID: string(info.ID), Text: text}, nil
}

func handleSimulateType(_ context.Context, s *Server, f protocol.Frame) (any, error) {
	text, err := f.String("text")
	if err != nil {
		return nil, err
	}
	info, err := s.engineTarget(f)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Type(info.ID, text); err != nil {
		return nil, err
	}
	return okReply(), nil
}

func handleSimulateShortcut(ctx context.Context, s *Server, f protocol.Frame) (any, error) {
	combo, err := f.String("combo")
	if err != nil {
		return nil, err
	}
	info, err := s.engineTarget(f)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.Shortcut(info.ID, combo)
	if err != nil {
		return nil, err
	}
	if !res.Exit {
		return okReply(), nil
	}
	logx.WithSurface(logx.Ctx(ctx), info.ID).Info("surface exited on shortcut", "combo", combo)
	if _, err := s.session.CloseSurface(info.ID); err != nil {
		return nil, err
	}
	return protocol.OK{Type: protocol.MsgOK, Closed: true}, nil
}

func handleSimulateFileDrop(_ context.Context, s *Server, f protocol.Frame) (any, error) {
	paths, err := f.Strings("paths")
	if err != nil {
		return nil, err
	}
	info, err := s.engineTarget(f)
	if err != nil {
		return nil, err
	}
	if err := s.engine.DropFiles(info.ID, paths); err != nil {
		return nil, err
	}
	return okReply(), nil
}

// Diagnostics.

func handleUnderflowCount(_ context.Context, s *Server, _ protocol.Frame) (any, error) {
	return protocol.CountReply{Type: "underflow_count", Count: s.session.Diagnostics().UnderflowCount()}, nil
}

func handleResetUnderflowCount(_ context.Context, s *Server, _ protocol.Frame) (any, error) {
	s.session.Diagnostics().ResetUnderflowCount()
	return okReply(), nil
}

// Application focus.

func handleActivateApp(_ context.Context, s *Server, _ protocol.Frame) (any, error) {
	state, err := s.session.ActivateApp()
	if err != nil {
		return nil, err
	}
	return appFocusReply(state), nil
}

func handleSetAppFocus(_ context.Context, s *Server, f protocol.Frame) (any, error) {
	v, err := f.NullableBool("focused")
	if err != nil {
		return nil, err
	}
	state, err := s.session.SetAppFocus(v)
	if err != nil {
		return nil, err
	}
	return appFocusReply(state), nil
}

// Journal.

func handleJournalTail(ctx context.Context, s *Server, f protocol.Frame) (any, error) {
	limit, _, err := f.OptInt("limit")
	if err != nil {
		return nil, err
	}
	if s.journal == nil {
		return nil, fmt.Errorf("%w: journal is disabled", texel.ErrUnsupported)
	}
	entries, err := s.journal.Tail(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := protocol.JournalReply{Type: "journal", Entries: make([]protocol.JournalEntry, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, journalEntry(e))
	}
	return out, nil
}

func journalEntry(e journal.Entry) protocol.JournalEntry {
	return protocol.JournalEntry{
		Seq:       e.Seq,
		Time:      e.Time.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Event:     e.Event,
		Workspace: e.Workspace,
		Surface:   e.Surface,
		Detail:    e.Detail,
	}
}
