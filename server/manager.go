// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: server/manager.go
// Summary: Tracks live control connections.

package server

import (
	"errors"
	"sync"
)

var (
	ErrConnectionNotFound = errors.New("server: connection not found")
)

// ConnectionInfo describes a live connection.
type ConnectionInfo struct {
	ID     string
	Client string
	Ready  bool
}

// Manager tracks active connections by id.
type Manager struct {
	mu    sync.RWMutex
	conns map[string]*connection
}

func NewManager() *Manager {
	return &Manager{conns: make(map[string]*connection)}
}

func (m *Manager) add(c *connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[c.id] = c
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conns, id)
}

// Lookup returns the connection with id.
func (m *Manager) Lookup(id string) (ConnectionInfo, error) {
	m.mu.RLock()
	c, ok := m.conns[id]
	m.mu.RUnlock()
	if !ok {
		return ConnectionInfo{}, ErrConnectionNotFound
	}
	return c.info(), nil
}

// ActiveConnections returns the number of open connections.
func (m *Manager) ActiveConnections() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

func (m *Manager) closeAll() {
	m.mu.RLock()
	conns := make([]*connection, 0, len(m.conns))
	for _, c := range m.conns {
		conns = append(conns, c)
	}
	m.mu.RUnlock()
	for _, c := range conns {
		_ = c.conn.Close()
	}
}
