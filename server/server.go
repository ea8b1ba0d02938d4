// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: server/server.go
// Summary: Unix socket control server for a texel session.
// Usage: NewServer, Start, then Stop on shutdown. Each connection runs in its
// own goroutine and is served strictly in request order.

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"pkt.systems/pslog"

	"github.com/framegrace/texelsplit/dragdrop"
	"github.com/framegrace/texelsplit/engine"
	"github.com/framegrace/texelsplit/internal/logx"
	"github.com/framegrace/texelsplit/journal"
	"github.com/framegrace/texelsplit/protocol"
	"github.com/framegrace/texelsplit/texel"
)

// Name is reported in the welcome frame.
const Name = "texelsplit"

// ErrTransportNotConfigured is returned when no socket path was given.
var ErrTransportNotConfigured = errors.New("server: no control socket configured; must enable one with --socket, socket_path or TEXELSPLIT_SOCKET")

// Options configures a Server.
type Options struct {
	SocketPath   string
	Session      *texel.Session
	Engine       engine.Engine
	Journal      *journal.Journal
	Diagnostics  bool
	MaxLineBytes int
	Logger       pslog.Logger
	Metrics      *Metrics
}

// Server listens on a Unix domain socket and serves control connections.
type Server struct {
	addr        string
	session     *texel.Session
	engine      engine.Engine
	journal     *journal.Journal
	pasteboard  *dragdrop.Pasteboard
	input       *texel.InputRouter
	diagnostics bool
	maxLine     int
	log         pslog.Logger
	metrics     *Metrics
	manager     *Manager
	bridge      *engineBridge

	listener net.Listener
	quit     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewServer validates opts and wires the engine to the session.
func NewServer(opts Options) (*Server, error) {
	if opts.SocketPath == "" {
		return nil, ErrTransportNotConfigured
	}
	if opts.Logger == nil {
		opts.Logger = pslog.Ctx(context.Background())
	}
	if opts.Session == nil {
		opts.Session = texel.NewSession(texel.Options{Logger: opts.Logger})
	}
	pasteboard := dragdrop.NewPasteboard()
	s := &Server{
		addr:        opts.SocketPath,
		session:     opts.Session,
		engine:      opts.Engine,
		journal:     opts.Journal,
		pasteboard:  pasteboard,
		input:       texel.NewInputRouter(opts.Session, pasteboard),
		diagnostics: opts.Diagnostics,
		maxLine:     opts.MaxLineBytes,
		log:         opts.Logger.With("component", "server"),
		metrics:     opts.Metrics,
		manager:     NewManager(),
		quit:        make(chan struct{}),
	}
	s.session.Subscribe(violationCounter{s})
	s.session.SubscribeFocus(focusLogger{s.log})
	if opts.Engine != nil {
		s.bridge = newEngineBridge(s.session, opts.Engine, s.log)
		if err := s.bridge.start(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Start binds the socket and begins accepting connections.
func (s *Server) Start() error {
	l, err := listenUnix(s.addr)
	if err != nil {
		return err
	}
	s.listener = l
	s.log.Info("control socket listening", "socket", s.addr)
	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) && !ne.Timeout() {
				s.log.Error("accept failed", "err", err)
				return
			}
			continue
		}

		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			s.ServeConn(c)
		}(conn)
	}
}

// ServeConn runs the protocol on conn until the peer disconnects or sends
// a malformed frame. conn is closed on return.
func (s *Server) ServeConn(conn net.Conn) {
	c := newConnection(s, conn)
	s.manager.add(c)
	defer s.manager.remove(c.id)
	defer conn.Close()

	s.metrics.RecordConnection(c.ctx)
	if err := c.serve(); err != nil {
		if errors.Is(err, protocol.ErrProtocol) {
			s.metrics.RecordFramingError(c.ctx)
			c.log.Warn("closing connection on framing error", "err", err)
			return
		}
		select {
		case <-s.quit:
		default:
			c.log.Debug("connection ended", "err", err)
		}
	}
}

// Stop closes the listener and every connection, then waits for their
// goroutines or ctx.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		close(s.quit)
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.manager.closeAll()
	})
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if s.bridge != nil {
		s.bridge.stop()
	}
	if s.listener != nil {
		if err := os.Remove(s.addr); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("server: remove socket: %w", err)
		}
	}
	return nil
}

// Addr returns the socket path.
func (s *Server) Addr() string {
	return s.addr
}

// Session returns the session served.
func (s *Server) Session() *texel.Session {
	return s.session
}

// Manager returns the connection manager.
func (s *Server) Manager() *Manager {
	return s.manager
}

// capabilities lists the optional feature groups this server answers.
func (s *Server) capabilities() []string {
	caps := []string{"layout", "focus", "notifications", "drag_gate"}
	if s.engine != nil {
		caps = append(caps, "terminal")
	}
	if s.journal != nil {
		caps = append(caps, "journal")
	}
	if s.diagnostics {
		caps = append(caps, "diagnostics")
	}
	return caps
}

type violationCounter struct {
	s *Server
}

func (v violationCounter) OnEvent(ev texel.Event) {
	if ev.Type != texel.EventInvariantViolation {
		return
	}
	v.s.metrics.RecordViolation(context.Background())
	if p, ok := ev.Payload.(texel.ViolationPayload); ok {
		logx.WithWorkspace(v.s.log, ev.Workspace).Warn("layout edit rejected", "violations", len(p.Violations))
	}
}

type focusLogger struct {
	log pslog.Logger
}

func (f focusLogger) SurfaceFocused(previous, current texel.SurfaceID) {
	f.log.Debug("focus changed", "previous", previous, "current", current)
}
