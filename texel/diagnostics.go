// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: texel/diagnostics.go
// Summary: Test introspection counters kept apart from the session API.

package texel

import "sync/atomic"

// Diagnostics exposes counters used by regression harnesses. The server
// only serves it when diagnostics are enabled.
type Diagnostics struct {
	session   *Session
	underflow atomic.Uint64
}

func (d *Diagnostics) recordUnderflow() {
	d.underflow.Add(1)
}

// UnderflowCount returns how many candidate trees failed validation.
func (d *Diagnostics) UnderflowCount() uint64 {
	return d.underflow.Load()
}

// ResetUnderflowCount zeroes the underflow counter.
func (d *Diagnostics) ResetUnderflowCount() {
	d.underflow.Store(0)
}

// ResetFlashCounts zeroes every surface's flash counter.
func (d *Diagnostics) ResetFlashCounts() error {
	return d.session.mutate(func(tx *txn) error {
		d.session.surfaces.resetFlashCounts()
		return nil
	})
}

// CheckTrees validates every published tree and returns the violations
// found, keyed by workspace.
func (d *Diagnostics) CheckTrees() map[WorkspaceID][]Violation {
	out := make(map[WorkspaceID][]Violation)
	s := d.session
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.workspaces {
		if v := Validate(w.Root()); len(v) > 0 {
			out[w.ID] = v
		}
	}
	return out
}
