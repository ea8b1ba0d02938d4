// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: texel/workspace.go
// Summary: Implements workspace capabilities for the session core.
// Usage: A workspace owns one split tree and remembers which of its surfaces
// focus returns to when it is selected.

package texel

import (
	"fmt"
	"time"
)

// WorkspaceID identifies a workspace.
type WorkspaceID string

// Workspace represents a single workspace with its own split tree.
type Workspace struct {
	ID      WorkspaceID
	Title   string
	Created time.Time

	tree   Tree
	active SurfaceID
}

// Root returns the published root of the workspace's tree.
func (w *Workspace) Root() *Node {
	return w.tree.Root()
}

// WorkspaceInfo is a read-only view of a workspace.
type WorkspaceInfo struct {
	ID           WorkspaceID
	Index        int
	Title        string
	Selected     bool
	SurfaceCount int
	Active       SurfaceID
	Created      time.Time
}

func (s *Session) workspaceInfo(index int, w *Workspace) WorkspaceInfo {
	return WorkspaceInfo{
		ID:           w.ID,
		Index:        index,
		Title:        w.Title,
		Selected:     w.ID == s.selected,
		SurfaceCount: len(Leaves(w.Root())),
		Active:       w.active,
		Created:      w.Created,
	}
}

func (s *Session) findWorkspace(id WorkspaceID) (int, *Workspace, error) {
	for i, w := range s.workspaces {
		if w.ID == id {
			return i, w, nil
		}
	}
	return -1, nil, fmt.Errorf("%w: workspace %q", ErrNotFound, id)
}

// resolveWorkspace maps an empty id to the selected workspace.
func (s *Session) resolveWorkspace(id WorkspaceID) (int, *Workspace, error) {
	if id == "" {
		if s.selected == "" {
			return -1, nil, fmt.Errorf("%w: no workspace selected", ErrInvalidState)
		}
		id = s.selected
	}
	return s.findWorkspace(id)
}

// siblingAfterRemoval picks the surface that should become active when id
// leaves the tree: the next sibling's first leaf, or the previous one when id
// was last.
func siblingAfterRemoval(root *Node, id SurfaceID) SurfaceID {
	path, leaf := findPath(root, id)
	if leaf == nil || len(path) == 0 {
		return ""
	}
	last := path[len(path)-1]
	next := last.index + 1
	if next >= len(last.node.Children) {
		next = last.index - 1
	}
	return firstLeaf(last.node.Children[next]).Surface
}
