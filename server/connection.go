// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: server/connection.go
// Summary: Per-connection state machine: awaitHello, ready, closed.

package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"
	"pkt.systems/pslog"

	"github.com/framegrace/texelsplit/internal/logx"
	"github.com/framegrace/texelsplit/protocol"
)

type connState int

const (
	stateAwaitHello connState = iota
	stateReady
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateAwaitHello:
		return "await_hello"
	case stateReady:
		return "ready"
	default:
		return "closed"
	}
}

type connection struct {
	id     string
	srv    *Server
	conn   net.Conn
	reader *protocol.Reader
	writer *bufio.Writer
	ctx    context.Context
	log    pslog.Logger

	mu     sync.Mutex
	state  connState
	client string
}

func newConnection(srv *Server, conn net.Conn) *connection {
	id := uuid.NewString()
	ctx := pslog.ContextWithLogger(context.Background(), srv.log)
	ctx, log := logx.WithConnection(ctx, id)
	return &connection{
		id:     id,
		srv:    srv,
		conn:   conn,
		reader: protocol.NewReader(conn, srv.maxLine),
		writer: bufio.NewWriter(conn),
		ctx:    ctx,
		log:    log,
	}
}

func (c *connection) info() ConnectionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConnectionInfo{ID: c.id, Client: c.client, Ready: c.state == stateReady}
}

func (c *connection) setState(st connState) {
	c.mu.Lock()
	c.state = st
	c.mu.Unlock()
}

// serve runs the connection. A nil return is an orderly close by the peer.
func (c *connection) serve() error {
	defer c.setState(stateClosed)

	hello, err := readHello(c.reader)
	if err != nil {
		return err
	}
	// Ready before welcome goes out: a client that saw welcome may query us.
	c.mu.Lock()
	c.client = hello.Client
	c.state = stateReady
	c.mu.Unlock()
	if err := writeWelcome(c.conn, c.id, c.srv.capabilities()); err != nil {
		return err
	}
	c.log.Debug("handshake complete", "client", hello.Client, "version", hello.Version)

	for {
		frame, err := c.reader.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		reply, err := c.srv.dispatch(c.ctx, frame)
		if err != nil {
			return err
		}
		if err := protocol.WriteFrame(c.writer, reply); err != nil {
			return err
		}
		if err := c.writer.Flush(); err != nil {
			return err
		}
	}
}
