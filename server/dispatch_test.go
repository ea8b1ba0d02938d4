package server

import (
	"context"
	"testing"

	"github.com/framegrace/texelsplit/journal"
	"github.com/framegrace/texelsplit/protocol"
)

func TestSplitFocusExitScenario(t *testing.T) {
	srv := newTestServer(t, withHeadless)
	c := pipeClient(t, srv)
	c.hello()

	split := c.call("new_split", "direction", "right")
	expectType(t, split, "surface")
	if split["id"] != "id-3" || split["panel_type"] != "terminal" {
		t.Fatalf("unexpected split reply %v", split)
	}

	focus := c.call("focus_surface", "id", "id-2")
	expectType(t, focus, "focus")
	if focus["previous"] != "id-3" || focus["current"] != "id-2" {
		t.Fatalf("unexpected focus reply %v", focus)
	}

	expectType(t, c.call("simulate_type", "text", "ls"), protocol.MsgOK)
	text := c.call("read_terminal_text")
	if text["id"] != "id-2" || text["text"] != "ls" {
		t.Fatalf("unexpected terminal text %v", text)
	}
	expectType(t, c.call("simulate_shortcut", "combo", "ctrl+u"), protocol.MsgOK)

	closed := c.call("simulate_shortcut", "combo", "ctrl+d")
	expectType(t, closed, protocol.MsgOK)
	if closed["closed"] != true {
		t.Fatalf("expected surface closed, got %v", closed)
	}

	panes := c.call("list_panes")
	list, _ := panes["panes"].([]any)
	if len(list) != 1 {
		t.Fatalf("expected 1 pane, got %v", panes)
	}
	only := list[0].(map[string]any)
	if only["id"] != "id-3" || only["focused"] != true {
		t.Fatalf("expected focus on the sibling, got %v", only)
	}
	rect := only["rect"].(map[string]any)
	if rect["w"] != 1.0 || rect["h"] != 1.0 {
		t.Fatalf("expected full rect, got %v", rect)
	}
	tree := c.call("tree_snapshot")
	root := tree["root"].(map[string]any)
	if root["surface"] != "id-3" {
		t.Fatalf("expected single leaf tree, got %v", tree)
	}
}

func TestUnknownCommandKeepsStream(t *testing.T) {
	srv := newTestServer(t)
	c := pipeClient(t, srv)
	c.hello()

	expectError(t, c.call("warp_drive"), protocol.KindProtocolError)
	expectType(t, c.call("ping"), protocol.MsgPong)
	expectError(t, c.call("hello", "version", 1), protocol.KindProtocolError)
}

func TestMissingRequiredFieldClosesConnection(t *testing.T) {
	srv := newTestServer(t)
	c := pipeClient(t, srv)
	c.hello()
	c.send(map[string]any{"type": "focus_surface"})
	c.expectClosed()
}

func TestWrongFieldTypeClosesConnection(t *testing.T) {
	srv := newTestServer(t)
	c := pipeClient(t, srv)
	c.hello()
	c.send(map[string]any{"type": "new_split", "direction": 3})
	c.expectClosed()
}

func TestErrorKinds(t *testing.T) {
	srv := newTestServer(t)
	c := pipeClient(t, srv)
	c.hello()

	expectError(t, c.call("focus_surface", "id", "nope"), "NotFound")
	expectError(t, c.call("new_split", "direction", "diagonal"), "InvalidState")
	expectError(t, c.call("new_split", "direction", "down", "panel_type", "spreadsheet"), "InvalidState")
	expectError(t, c.call("close_workspace", "id", "id-1"), "InvalidState")
	expectError(t, c.call("read_terminal_text"), "Unsupported")
	expectError(t, c.call("bonsplit_underflow_count"), "Unsupported")
	expectError(t, c.call("journal_tail"), "Unsupported")
	expectError(t, c.call("overlay_hit_gate", "event_kind", "teleport"), "InvalidState")
}

func TestWorkspaceCommands(t *testing.T) {
	srv := newTestServer(t)
	c := pipeClient(t, srv)
	c.hello()

	ws := c.call("new_workspace", "title", "logs")
	expectType(t, ws, "workspace")
	if ws["title"] != "logs" || ws["index"] != 1.0 || ws["surface_id"] == "" {
		t.Fatalf("unexpected workspace reply %v", ws)
	}
	list := c.call("list_workspaces")["workspaces"].([]any)
	if len(list) != 2 || list[1].(map[string]any)["selected"] != true {
		t.Fatalf("expected new workspace selected, got %v", list)
	}

	sel := c.call("select_workspace", "id", "id-1")
	if sel["surface_id"] != "id-2" {
		t.Fatalf("expected active surface restored, got %v", sel)
	}
	health := c.call("surface_health", "workspace", ws["id"])["surfaces"].([]any)
	if len(health) != 1 || health[0].(map[string]any)["in_window"] != false {
		t.Fatalf("unselected workspace is not in window: %v", health)
	}
	expectType(t, c.call("close_workspace", "id", ws["id"]), protocol.MsgOK)
	if n := len(c.call("list_workspaces")["workspaces"].([]any)); n != 1 {
		t.Fatalf("expected 1 workspace, got %d", n)
	}
}

func TestNotificationCommands(t *testing.T) {
	srv := newTestServer(t)
	c := pipeClient(t, srv)
	c.hello()

	c.call("new_surface", "direction", "down")
	n := c.call("notify_surface", "id", "id-2", "title", "done", "body", "build finished")
	expectType(t, n, "notification")
	if n["notification"].(map[string]any)["is_read"] != false {
		t.Fatalf("new notification must be unread: %v", n)
	}
	if got := c.call("flash_count", "id", "id-2")["count"]; got != 1.0 {
		t.Fatalf("notify must not flash, count %v", got)
	}

	c.call("focus_surface", "id", "id-2")
	list := c.call("list_notifications", "id", "id-2")["notifications"].([]any)
	if len(list) != 1 || list[0].(map[string]any)["is_read"] != true {
		t.Fatalf("focus must mark read: %v", list)
	}
	if got := c.call("trigger_flash", "id", "id-2")["count"]; got != 3.0 {
		t.Fatalf("unexpected flash count %v", got)
	}
	expectType(t, c.call("clear_notifications"), protocol.MsgOK)
	if list := c.call("list_notifications")["notifications"].([]any); len(list) != 0 {
		t.Fatalf("expected cleared notifications, got %v", list)
	}
}

func TestDragGateCommands(t *testing.T) {
	srv := newTestServer(t)
	c := pipeClient(t, srv)
	c.hello()

	gate := func(kind string) bool {
		t.Helper()
		reply := c.call("overlay_hit_gate", "event_kind", kind)
		expectType(t, reply, "gate")
		return reply["capture"].(bool)
	}
	if gate("leftMouseDragged") {
		t.Fatalf("empty pasteboard must not capture")
	}
	c.call("seed_drag_pasteboard_fileurl")
	if !gate("leftMouseDragged") || !gate("otherMouseDragged") {
		t.Fatalf("file drag in motion must capture")
	}
	if gate("leftMouseDown") || gate("none") {
		t.Fatalf("clicks must pass through")
	}
	c.call("seed_drag_pasteboard_tabtransfer")
	if gate("leftMouseDragged") {
		t.Fatalf("tab transfer must pass through")
	}

	c.call("seed_drag_pasteboard_fileurl")
	mouse := c.call("simulate_mouse", "event_kind", "leftMouseDragged", "x", 0.5, "y", 0.5)
	if mouse["captured"] != true {
		t.Fatalf("expected captured drag, got %v", mouse)
	}
	c.call("clear_drag_pasteboard")
	mouse = c.call("simulate_mouse", "event_kind", "leftMouseDown", "x", 0.5, "y", 0.5)
	if mouse["captured"] != false || mouse["surface"] != "id-2" {
		t.Fatalf("expected click on id-2, got %v", mouse)
	}
}

func TestDiagnosticsCommands(t *testing.T) {
	srv := newTestServer(t, withDiagnostics)
	c := pipeClient(t, srv)
	c.hello()

	expectType(t, c.call("trigger_flash", "id", "id-2"), "flash_count")
	expectType(t, c.call("reset_flash_counts"), protocol.MsgOK)
	if got := c.call("flash_count", "id", "id-2")["count"]; got != 0.0 {
		t.Fatalf("expected reset flash count, got %v", got)
	}
	under := c.call("bonsplit_underflow_count")
	expectType(t, under, "underflow_count")
	if under["count"] != 0.0 {
		t.Fatalf("expected no underflows, got %v", under)
	}
	expectType(t, c.call("reset_bonsplit_underflow_count"), protocol.MsgOK)
}

func TestRenderStatsCountDraws(t *testing.T) {
	srv := newTestServer(t, withHeadless)
	c := pipeClient(t, srv)
	c.hello()

	before := c.call("render_stats", "id", "id-2")["drawCount"].(float64)
	if before < 1 {
		t.Fatalf("attach should draw, got %v", before)
	}
	c.call("simulate_type", "text", "echo hi")
	c.call("simulate_file_drop", "paths", []string{"/tmp/a b"})
	after := c.call("render_stats", "id", "id-2")["drawCount"].(float64)
	if after != before+2 {
		t.Fatalf("expected two more draws, got %v -> %v", before, after)
	}
	if text := c.call("read_terminal_text", "id", "id-2")["text"]; text != "echo hi'/tmp/a b'" {
		t.Fatalf("unexpected text %q", text)
	}

	md := c.call("new_split", "direction", "right", "panel_type", "markdown")
	expectError(t, c.call("simulate_type", "id", md["id"], "text", "x"), "Unsupported")
}

func TestAppFocusCommands(t *testing.T) {
	srv := newTestServer(t)
	c := pipeClient(t, srv)
	c.hello()

	reply := c.call("activate_app")
	if reply["focused"] != true || reply["override"] != nil {
		t.Fatalf("unexpected activate reply %v", reply)
	}
	reply = c.call("set_app_focus", "focused", false)
	if reply["focused"] != false || reply["override"] != false {
		t.Fatalf("unexpected override reply %v", reply)
	}
	reply = c.call("set_app_focus", "focused", nil)
	if reply["focused"] != true || reply["override"] != nil {
		t.Fatalf("unexpected cleared override %v", reply)
	}
	c.send(map[string]any{"type": "set_app_focus"})
	c.expectClosed()
}

func TestJournalTailCommand(t *testing.T) {
	j, err := journal.Open(context.Background(), journal.MemoryPath, quietLogger())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer j.Close()
	srv := newTestServer(t, func(o *Options) {
		o.Journal = j
		o.Session.Subscribe(j)
	})
	c := pipeClient(t, srv)
	c.hello()

	c.call("trigger_flash", "id", "id-2")
	reply := c.call("journal_tail", "limit", 1)
	expectType(t, reply, "journal")
	entries := reply["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %v", entries)
	}
	e := entries[0].(map[string]any)
	if e["event"] != "flash" || e["surface"] != "id-2" || e["detail"] != "trigger #2" {
		t.Fatalf("unexpected entry %v", e)
	}
}

func TestListPanesDuringWorkspaceChurn(t *testing.T) {
	srv := newTestServer(t)
	c := pipeClient(t, srv)
	c.hello()

	stop := make(chan struct{})
	churned := make(chan struct{})
	go func() {
		defer close(churned)
		for {
			select {
			case <-stop:
				return
			default:
			}
			ws, _, err := srv.session.NewWorkspace("churn")
			if err != nil {
				t.Errorf("new workspace: %v", err)
				return
			}
			if err := srv.session.CloseWorkspace(ws.ID); err != nil {
				t.Errorf("close workspace: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 200; i++ {
		reply := c.call("list_panes")
		expectType(t, reply, "panes")
		panes := reply["panes"].([]any)
		if len(panes) != 1 {
			t.Fatalf("round %d: expected 1 pane, got %v", i, reply)
		}
		id := panes[0].(map[string]any)["id"]
		if reply["workspace"] == "id-1" && id != "id-2" {
			t.Fatalf("round %d: panes of id-1 came from another workspace: %v", i, reply)
		}
	}
	close(stop)
	<-churned
}
