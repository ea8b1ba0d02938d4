// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: texel/errors.go
// Summary: Error taxonomy shared by the session core and the control server.

package texel

import "errors"

var (
	// ErrNotFound reports an unknown workspace, surface or notification id.
	ErrNotFound = errors.New("texel: not found")
	// ErrInvalidState reports a request that cannot apply to the current state.
	ErrInvalidState = errors.New("texel: invalid state")
	// ErrUnsupported reports a request that needs an unavailable collaborator.
	ErrUnsupported = errors.New("texel: unsupported")
	// ErrClosed is returned once the session has been torn down.
	ErrClosed = errors.New("texel: session closed")
)

// ErrorKind is the wire name of an error class.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "NotFound"
	KindInvalidState ErrorKind = "InvalidState"
	KindUnsupported  ErrorKind = "Unsupported"
	KindInternal     ErrorKind = "InternalError"
)

// KindOf classifies err. Unknown errors are internal.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrClosed):
		return KindInvalidState
	case errors.Is(err, ErrUnsupported):
		return KindUnsupported
	default:
		return KindInternal
	}
}
