package server

import (
	"strings"
	"testing"

	"github.com/framegrace/texelsplit/protocol"
)

func TestHandshakeWelcomesHello(t *testing.T) {
	srv := newTestServer(t, withDiagnostics)
	c := pipeClient(t, srv)

	welcome := c.hello()
	if welcome["server"] != Name {
		t.Fatalf("unexpected server name: %v", welcome)
	}
	if v, _ := welcome["version"].(float64); int(v) != protocol.Version {
		t.Fatalf("unexpected version: %v", welcome)
	}
	id, _ := welcome["connection_id"].(string)
	if id == "" {
		t.Fatalf("expected connection id")
	}
	info, err := srv.Manager().Lookup(id)
	if err != nil || !info.Ready || info.Client != "test" {
		t.Fatalf("connection not tracked as ready: %+v %v", info, err)
	}
	caps, _ := welcome["capabilities"].([]any)
	found := false
	for _, c := range caps {
		if c == "diagnostics" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected diagnostics capability, got %v", caps)
	}
}

func TestConnectionReadyOnceWelcomed(t *testing.T) {
	srv := newTestServer(t)
	for i := 0; i < 20; i++ {
		c := pipeClient(t, srv)
		id, _ := c.hello()["connection_id"].(string)
		info, err := srv.Manager().Lookup(id)
		if err != nil || !info.Ready {
			t.Fatalf("round %d: welcomed connection not ready: %+v %v", i, info, err)
		}
	}
}

func TestHandshakeRejectsBadFirstFrames(t *testing.T) {
	cases := map[string]string{
		"missing version": `{"type":"hello"}`,
		"null version":    `{"type":"hello","version":null}`,
		"fractional":      `{"type":"hello","version":1.5}`,
		"string version":  `{"type":"hello","version":"1"}`,
		"not hello":       `{"type":"ping"}`,
		"missing type":    `{"version":1}`,
		"malformed json":  `{"type":"hello",`,
		"not an object":   `[1,2,3]`,
	}
	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			srv := newTestServer(t)
			c := pipeClient(t, srv)
			if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
				t.Fatalf("write: %v", err)
			}
			c.expectClosed()
		})
	}
}

func TestHandshakeAcceptsPartialWrites(t *testing.T) {
	srv := newTestServer(t)
	c := pipeClient(t, srv)
	for _, part := range []string{`{"type":"hel`, `lo","vers`, `ion":1}`, "\n"} {
		if _, err := c.conn.Write([]byte(part)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	expectType(t, c.recv(), protocol.MsgWelcome)
}

func TestOverlongLineClosesConnection(t *testing.T) {
	srv := newTestServer(t)
	srv.maxLine = 64
	c := pipeClient(t, srv)
	c.hello()
	go func() {
		_, _ = c.conn.Write([]byte(`{"type":"ping","pad":"` + strings.Repeat("x", 256) + "\"}\n"))
	}()
	c.expectClosed()
}
