// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: texel/surface.go
// Summary: Surface registry: identity, lifecycle and per-surface counters.

package texel

import (
	"fmt"
	"time"

	"github.com/framegrace/texelsplit/registry"
)

// SurfaceID identifies a surface. It is stable for the surface's lifetime.
type SurfaceID string

// Surface is a panel instance and the leaf unit of a split tree.
type Surface struct {
	ID        SurfaceID
	Index     int
	Panel     registry.Manifest
	Workspace WorkspaceID
	Created   time.Time

	drawCount  uint64
	flashCount uint64
}

// SurfaceInfo is a read-only view of a surface.
type SurfaceInfo struct {
	ID         SurfaceID
	Index      int
	Panel      registry.Manifest
	Workspace  WorkspaceID
	Focused    bool
	DrawCount  uint64
	FlashCount uint64
	Created    time.Time
}

// surfaceTable owns every live surface. Callers hold the session lock.
type surfaceTable struct {
	byID map[SurfaceID]*Surface
}

func newSurfaceTable() surfaceTable {
	return surfaceTable{byID: make(map[SurfaceID]*Surface)}
}

// create registers a surface with the smallest index not used by another
// surface of the same workspace.
func (t *surfaceTable) create(id SurfaceID, panel registry.Manifest, ws WorkspaceID, now time.Time) *Surface {
	used := make(map[int]bool)
	for _, s := range t.byID {
		if s.Workspace == ws {
			used[s.Index] = true
		}
	}
	index := 0
	for used[index] {
		index++
	}
	s := &Surface{ID: id, Index: index, Panel: panel, Workspace: ws, Created: now}
	t.byID[id] = s
	return s
}

func (t *surfaceTable) lookup(id SurfaceID) (*Surface, error) {
	s, ok := t.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: surface %q", ErrNotFound, id)
	}
	return s, nil
}

func (t *surfaceTable) destroy(id SurfaceID) error {
	if _, ok := t.byID[id]; !ok {
		return fmt.Errorf("%w: surface %q", ErrNotFound, id)
	}
	delete(t.byID, id)
	return nil
}

func (t *surfaceTable) incrementDraw(id SurfaceID) (uint64, error) {
	s, err := t.lookup(id)
	if err != nil {
		return 0, err
	}
	s.drawCount++
	return s.drawCount, nil
}

func (t *surfaceTable) incrementFlash(id SurfaceID) (uint64, error) {
	s, err := t.lookup(id)
	if err != nil {
		return 0, err
	}
	s.flashCount++
	return s.flashCount, nil
}

func (t *surfaceTable) resetFlashCounts() {
	for _, s := range t.byID {
		s.flashCount = 0
	}
}

func (t *surfaceTable) info(s *Surface, focused SurfaceID) SurfaceInfo {
	return SurfaceInfo{
		ID:         s.ID,
		Index:      s.Index,
		Panel:      s.Panel,
		Workspace:  s.Workspace,
		Focused:    s.ID == focused,
		DrawCount:  s.drawCount,
		FlashCount: s.flashCount,
		Created:    s.Created,
	}
}
