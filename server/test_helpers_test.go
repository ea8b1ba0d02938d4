package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"pkt.systems/pslog"

	"github.com/framegrace/texelsplit/engine"
	"github.com/framegrace/texelsplit/protocol"
	"github.com/framegrace/texelsplit/texel"
)

func quietLogger() pslog.Logger {
	return pslog.NewWithOptions(io.Discard, pslog.Options{
		Mode:     pslog.ModeStructured,
		NoColor:  true,
		MinLevel: pslog.ErrorLevel,
	})
}

// newTestSession returns a session with one workspace. Ids are "id-N".
func newTestSession(t *testing.T) *texel.Session {
	t.Helper()
	var mu sync.Mutex
	n := 0
	s := texel.NewSession(texel.Options{
		Logger: quietLogger(),
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("id-%d", n)
		},
	})
	if _, _, err := s.NewWorkspace("main"); err != nil {
		t.Fatalf("new workspace: %v", err)
	}
	return s
}

type testServerOption func(*Options)

func withHeadless(o *Options) {
	o.Engine = engine.NewHeadless(40, 6, EngineHooks(o.Session, o.Logger), o.Logger)
}

func withDiagnostics(o *Options) {
	o.Diagnostics = true
}

func newTestServer(t *testing.T, opts ...testServerOption) *Server {
	t.Helper()
	o := Options{
		SocketPath: filepath.Join(t.TempDir(), "texelsplit.sock"),
		Session:    newTestSession(t),
		Logger:     quietLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	srv, err := NewServer(o)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() {
		if srv.bridge != nil {
			srv.bridge.stop()
		}
		srv.session.Close()
	})
	return srv
}

type testClient struct {
	t    *testing.T
	conn net.Conn
	r    *protocol.Reader
	done chan struct{}
}

// pipeClient serves one end of a net.Pipe and returns the other.
func pipeClient(t *testing.T, srv *Server) *testClient {
	t.Helper()
	client, server := net.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.ServeConn(server)
	}()
	c := &testClient{t: t, conn: client, r: protocol.NewReader(client, 0), done: done}
	t.Cleanup(func() {
		_ = client.Close()
		<-done
	})
	return c
}

func (c *testClient) send(v any) {
	c.t.Helper()
	if err := protocol.WriteFrame(c.conn, v); err != nil {
		c.t.Fatalf("write frame: %v", err)
	}
}

func (c *testClient) recv() map[string]any {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := c.r.ReadLine()
	if err != nil {
		c.t.Fatalf("read reply: %v", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(line, &out); err != nil {
		c.t.Fatalf("decode reply %q: %v", line, err)
	}
	return out
}

func (c *testClient) hello() map[string]any {
	c.t.Helper()
	c.send(map[string]any{"type": "hello", "version": protocol.Version, "client": "test"})
	welcome := c.recv()
	if welcome["type"] != protocol.MsgWelcome {
		c.t.Fatalf("expected welcome, got %v", welcome)
	}
	return welcome
}

func (c *testClient) call(cmd string, fields ...any) map[string]any {
	c.t.Helper()
	frame := map[string]any{"type": cmd}
	for i := 0; i+1 < len(fields); i += 2 {
		frame[fields[i].(string)] = fields[i+1]
	}
	c.send(frame)
	return c.recv()
}

// expectClosed asserts the server hung up without writing anything.
func (c *testClient) expectClosed() {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := c.r.ReadLine()
	if err == nil {
		c.t.Fatalf("expected closed connection, got %q", line)
	}
	if err != io.EOF {
		c.t.Fatalf("expected EOF, got %v", err)
	}
}

func expectType(t *testing.T, reply map[string]any, typ string) {
	t.Helper()
	if reply["type"] != typ {
		t.Fatalf("expected %s reply, got %v", typ, reply)
	}
}

func expectError(t *testing.T, reply map[string]any, kind string) {
	t.Helper()
	if reply["type"] != protocol.MsgError || reply["kind"] != kind {
		t.Fatalf("expected %s error, got %v", kind, reply)
	}
}
