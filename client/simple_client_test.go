package client

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"pkt.systems/pslog"

	"github.com/framegrace/texelsplit/server"
	"github.com/framegrace/texelsplit/texel"
)

func startServer(t *testing.T) *server.Server {
	t.Helper()
	log := pslog.NewWithOptions(io.Discard, pslog.Options{Mode: pslog.ModeStructured, NoColor: true, MinLevel: pslog.ErrorLevel})
	session := texel.NewSession(texel.Options{Logger: log})
	if _, _, err := session.NewWorkspace("main"); err != nil {
		t.Fatalf("new workspace: %v", err)
	}
	srv, err := server.NewServer(server.Options{
		SocketPath: filepath.Join(t.TempDir(), "ctl.sock"),
		Session:    session,
		Logger:     log,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
		session.Close()
	})
	return srv
}

func TestConnectAndCall(t *testing.T) {
	srv := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := NewSimpleClient(srv.Addr()).Connect(ctx)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()
	if conn.Welcome().ConnectionID == "" {
		t.Fatalf("expected connection id in welcome")
	}

	reply, err := conn.Call(ctx, map[string]any{"type": "list_workspaces"})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	var ws struct {
		Workspaces []struct {
			Title string `json:"title"`
		} `json:"workspaces"`
	}
	if err := reply.Decode(&ws); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ws.Workspaces) != 1 || ws.Workspaces[0].Title != "main" {
		t.Fatalf("unexpected workspaces %+v", ws)
	}

	reply, err = conn.Call(ctx, map[string]any{"type": "focus_surface", "id": "missing"})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	var se *ServerError
	if !errors.As(reply.Err(), &se) || se.Kind != "NotFound" {
		t.Fatalf("expected NotFound error reply, got %v", reply.Err())
	}
}

func TestCallReportsServerHangup(t *testing.T) {
	srv := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := NewSimpleClient(srv.Addr()).Connect(ctx)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Call(ctx, map[string]any{"type": "notify_surface"}); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("expected closed connection, got %v", err)
	}
}

func TestConnectFailsWithoutServer(t *testing.T) {
	_, err := NewSimpleClient(filepath.Join(t.TempDir(), "none.sock")).Connect(context.Background())
	if err == nil {
		t.Fatalf("expected dial error")
	}
}
