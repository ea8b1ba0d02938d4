// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: client/simple_client.go
// Summary: Minimal control socket client used by `texelsplit ctl` and tests.

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/framegrace/texelsplit/protocol"
)

// ErrConnectionClosed is returned when the server hangs up instead of
// replying. The server does this for malformed or incomplete commands.
var ErrConnectionClosed = errors.New("client: connection closed by server")

// ServerError is an error reply.
type ServerError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Command string `json:"command"`
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Reply is one response frame.
type Reply struct {
	Type string
	Raw  json.RawMessage
}

// Err returns the reply as a *ServerError when it is an error reply.
func (r Reply) Err() error {
	if r.Type != protocol.MsgError {
		return nil
	}
	var se ServerError
	if err := json.Unmarshal(r.Raw, &se); err != nil {
		return fmt.Errorf("client: decode error reply: %w", err)
	}
	return &se
}

// Decode unmarshals the reply into v.
func (r Reply) Decode(v any) error {
	return json.Unmarshal(r.Raw, v)
}

// SimpleClient dials a control socket.
type SimpleClient struct {
	socketPath string
	name       string
}

// NewSimpleClient creates a client for socketPath.
func NewSimpleClient(socketPath string) *SimpleClient {
	return &SimpleClient{socketPath: socketPath, name: "texelsplit-ctl"}
}

// Conn is a handshaken connection. Calls are serialized.
type Conn struct {
	conn    net.Conn
	reader  *protocol.Reader
	welcome protocol.Welcome

	mu sync.Mutex
}

// Connect dials the socket and performs the hello/welcome exchange.
func (c *SimpleClient) Connect(ctx context.Context) (*Conn, error) {
	d := net.Dialer{Timeout: 5 * time.Second}
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	cc := &Conn{conn: conn, reader: protocol.NewReader(conn, 0)}
	hello := protocol.Hello{Type: protocol.MsgHello, Version: protocol.Version, Client: c.name}
	reply, err := cc.roundTrip(ctx, hello)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if reply.Type != protocol.MsgWelcome {
		conn.Close()
		return nil, fmt.Errorf("client: unexpected message %q", reply.Type)
	}
	if err := reply.Decode(&cc.welcome); err != nil {
		conn.Close()
		return nil, fmt.Errorf("client: decode welcome: %w", err)
	}
	return cc, nil
}

// Welcome returns the server's welcome frame.
func (c *Conn) Welcome() protocol.Welcome {
	return c.welcome
}

// Call sends one command and waits for its reply. An error reply is
// returned as a Reply; use Reply.Err to inspect it.
func (c *Conn) Call(ctx context.Context, cmd any) (Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roundTrip(ctx, cmd)
}

func (c *Conn) roundTrip(ctx context.Context, v any) (Reply, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
		defer c.conn.SetDeadline(time.Time{})
	}
	if err := protocol.WriteFrame(c.conn, v); err != nil {
		return Reply{}, fmt.Errorf("client: write: %w", err)
	}
	line, err := c.reader.ReadLine()
	if err != nil {
		if errors.Is(err, net.ErrClosed) || isEOF(err) {
			return Reply{}, ErrConnectionClosed
		}
		return Reply{}, fmt.Errorf("client: read: %w", err)
	}
	frame, err := protocol.ParseFrame(line)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Type: frame.Type, Raw: append(json.RawMessage(nil), line...)}, nil
}

// Close closes the connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET)
}
