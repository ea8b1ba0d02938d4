// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: server/handshake.go
// Summary: Hello/welcome exchange that opens every connection.

package server

import (
	"io"

	"github.com/framegrace/texelsplit/protocol"
)

// readHello reads and validates the client's first frame. Any failure is a
// framing error and nothing is written.
func readHello(r *protocol.Reader) (protocol.Hello, error) {
	frame, err := r.ReadFrame()
	if err != nil {
		return protocol.Hello{}, err
	}
	return protocol.DecodeHello(frame)
}

// writeWelcome answers an accepted hello.
func writeWelcome(w io.Writer, connID string, caps []string) error {
	return protocol.WriteFrame(w, protocol.Welcome{
		Type:         protocol.MsgWelcome,
		Version:      protocol.Version,
		Server:       Name,
		ConnectionID: connID,
		Capabilities: caps,
	})
}
