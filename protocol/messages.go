// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: protocol/messages.go
// Summary: Message names and payload shapes exchanged on the control socket.

package protocol

import (
	"encoding/json"
	"fmt"
	"math"
)

// Handshake and generic replies.
const (
	MsgHello   = "hello"
	MsgWelcome = "welcome"
	MsgError   = "error"
	MsgOK      = "ok"
	MsgPong    = "pong"
)

// Commands accepted after the handshake.
const (
	CmdPing                        = "ping"
	CmdNewWorkspace                = "new_workspace"
	CmdSelectWorkspace             = "select_workspace"
	CmdCloseWorkspace              = "close_workspace"
	CmdListWorkspaces              = "list_workspaces"
	CmdNewSplit                    = "new_split"
	CmdNewSurface                  = "new_surface"
	CmdCloseSurface                = "close_surface"
	CmdFocusSurface                = "focus_surface"
	CmdFocusPane                   = "focus_pane"
	CmdFocusDirection              = "focus_direction"
	CmdSwapSurface                 = "swap_surface"
	CmdListPanes                   = "list_panes"
	CmdListSurfaces                = "list_surfaces"
	CmdTreeSnapshot                = "tree_snapshot"
	CmdSurfaceHealth               = "surface_health"
	CmdNotifySurface               = "notify_surface"
	CmdListNotifications           = "list_notifications"
	CmdClearNotifications          = "clear_notifications"
	CmdFlashCount                  = "flash_count"
	CmdTriggerFlash                = "trigger_flash"
	CmdResetFlashCounts            = "reset_flash_counts"
	CmdOverlayHitGate              = "overlay_hit_gate"
	CmdClearDragPasteboard         = "clear_drag_pasteboard"
	CmdSeedDragFileURL             = "seed_drag_pasteboard_fileurl"
	CmdSeedDragTabTransfer         = "seed_drag_pasteboard_tabtransfer"
	CmdSeedDragSidebarReorder      = "seed_drag_pasteboard_sidebar_reorder"
	CmdRenderStats                 = "render_stats"
	CmdReadTerminalText            = "read_terminal_text"
	CmdSimulateType                = "simulate_type"
	CmdSimulateShortcut            = "simulate_shortcut"
	CmdSimulateFileDrop            = "simulate_file_drop"
	CmdSimulateMouse               = "simulate_mouse"
	CmdBonsplitUnderflowCount      = "bonsplit_underflow_count"
	CmdResetBonsplitUnderflowCount = "reset_bonsplit_underflow_count"
	CmdActivateApp                 = "activate_app"
	CmdSetAppFocus                 = "set_app_focus"
	CmdJournalTail                 = "journal_tail"
)

// Error kinds carried by error replies.
const (
	KindProtocolError = "ProtocolError"
)

// Hello initiates the handshake from client to server.
type Hello struct {
	Type    string `json:"type"`
	Version int    `json:"version"`
	Client  string `json:"client,omitempty"`
}

// Welcome is returned by the server acknowledging the handshake.
type Welcome struct {
	Type         string   `json:"type"`
	Version      int      `json:"version"`
	Server       string   `json:"server"`
	ConnectionID string   `json:"connection_id"`
	Capabilities []string `json:"capabilities"`
}

// DecodeHello validates the first frame of a connection. The version must
// be present and integral.
func DecodeHello(f Frame) (Hello, error) {
	var h Hello
	if f.Type != MsgHello {
		return h, fmt.Errorf("%w: expected hello, got %q", ErrUnexpectedMsg, f.Type)
	}
	raw, ok := f.Raw("version")
	if !ok || isNull(raw) {
		return h, fmt.Errorf("%w: version", ErrMissingField)
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil || v != math.Trunc(v) {
		return h, fmt.Errorf("%w: version", ErrFieldType)
	}
	client, err := f.OptString("client")
	if err != nil {
		return h, err
	}
	h = Hello{Type: MsgHello, Version: int(v), Client: client}
	return h, nil
}

// ErrorReply is sent when a command fails.
type ErrorReply struct {
	Type    string `json:"type"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Command string `json:"command,omitempty"`
}

// OK acknowledges a command with no result. Closed is set when the command
// ended the surface it targeted.
type OK struct {
	Type   string `json:"type"`
	Closed bool   `json:"closed,omitempty"`
}

// Pong answers ping.
type Pong struct {
	Type string `json:"type"`
}

// WorkspaceReply describes a workspace.
type WorkspaceReply struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	Index     int    `json:"index"`
	Title     string `json:"title"`
	SurfaceID string `json:"surface_id,omitempty"`
}

// WorkspaceEntry is one row of list_workspaces.
type WorkspaceEntry struct {
	ID           string `json:"id"`
	Index        int    `json:"index"`
	Title        string `json:"title"`
	Selected     bool   `json:"selected"`
	SurfaceCount int    `json:"surface_count"`
	Active       string `json:"active,omitempty"`
}

// WorkspacesReply answers list_workspaces.
type WorkspacesReply struct {
	Type       string           `json:"type"`
	Workspaces []WorkspaceEntry `json:"workspaces"`
}

// SurfaceReply describes a created surface.
type SurfaceReply struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	Index     int    `json:"index"`
	Panel     string `json:"panel_type"`
	Workspace string `json:"workspace"`
}

// FocusReply reports a focus transition.
type FocusReply struct {
	Type     string `json:"type"`
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

// Rect is a fractional rectangle.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// PaneEntry is one row of list_panes.
type PaneEntry struct {
	Index   int    `json:"index"`
	ID      string `json:"id"`
	Focused bool   `json:"focused"`
	Type    string `json:"type"`
	Rect    Rect   `json:"rect"`
}

// PanesReply answers list_panes and list_surfaces.
type PanesReply struct {
	Type      string      `json:"type"`
	Workspace string      `json:"workspace"`
	Panes     []PaneEntry `json:"panes"`
}

// TreeNode mirrors a split tree node.
type TreeNode struct {
	Surface  string     `json:"surface,omitempty"`
	Split    string     `json:"split,omitempty"`
	Ratios   []float64  `json:"ratios,omitempty"`
	Children []TreeNode `json:"children,omitempty"`
}

// TreeReply answers tree_snapshot. Root is nil for an empty workspace.
type TreeReply struct {
	Type      string    `json:"type"`
	Workspace string    `json:"workspace"`
	Root      *TreeNode `json:"root"`
}

// HealthEntry is one row of surface_health.
type HealthEntry struct {
	Index     int    `json:"index"`
	ID        string `json:"id"`
	Type      string `json:"type"`
	InWindow  bool   `json:"in_window"`
	Portal    bool   `json:"portal"`
	ViewDepth int    `json:"view_depth"`
}

// HealthReply answers surface_health.
type HealthReply struct {
	Type     string        `json:"type"`
	Surfaces []HealthEntry `json:"surfaces"`
}

// NotificationEntry describes a notification.
type NotificationEntry struct {
	ID      string `json:"id"`
	Surface string `json:"surface_id"`
	Title   string `json:"title"`
	Kind    string `json:"kind"`
	Body    string `json:"body"`
	IsRead  bool   `json:"is_read"`
}

// NotificationReply answers notify_surface.
type NotificationReply struct {
	Type         string            `json:"type"`
	Notification NotificationEntry `json:"notification"`
}

// NotificationsReply answers list_notifications.
type NotificationsReply struct {
	Type          string              `json:"type"`
	Notifications []NotificationEntry `json:"notifications"`
}

// CountReply carries a counter: flash counts and the underflow counter.
type CountReply struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Count uint64 `json:"count"`
}

// GateReply answers overlay_hit_gate.
type GateReply struct {
	Type      string `json:"type"`
	EventKind string `json:"event_kind"`
	DragKind  string `json:"drag_kind"`
	Capture   bool   `json:"capture"`
}

// RenderStatsReply answers render_stats.
type RenderStatsReply struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	DrawCount uint64 `json:"drawCount"`
}

// TerminalTextReply answers read_terminal_text.
type TerminalTextReply struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Text string `json:"text"`
}

// MouseReply answers simulate_mouse.
type MouseReply struct {
	Type     string `json:"type"`
	Captured bool   `json:"captured"`
	Surface  string `json:"surface,omitempty"`
	Focused  string `json:"focused,omitempty"`
}

// AppFocusReply answers activate_app and set_app_focus.
type AppFocusReply struct {
	Type     string `json:"type"`
	Focused  bool   `json:"focused"`
	Override *bool  `json:"override"`
}

// JournalEntry is one recorded session event.
type JournalEntry struct {
	Seq       int64  `json:"seq"`
	Time      string `json:"time"`
	Event     string `json:"event"`
	Workspace string `json:"workspace,omitempty"`
	Surface   string `json:"surface,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// JournalReply answers journal_tail.
type JournalReply struct {
	Type    string         `json:"type"`
	Entries []JournalEntry `json:"entries"`
}
