// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: server/tree_convert.go
// Summary: Converts session values into wire replies.

package server

import (
	"github.com/framegrace/texelsplit/protocol"
	"github.com/framegrace/texelsplit/texel"
)

func buildProtocolTreeNode(node *texel.Node) *protocol.TreeNode {
	if node == nil {
		return nil
	}
	if node.IsLeaf() {
		return &protocol.TreeNode{Surface: string(node.Surface)}
	}
	out := &protocol.TreeNode{
		Split:    node.Split.String(),
		Ratios:   append([]float64(nil), node.Ratios...),
		Children: make([]protocol.TreeNode, 0, len(node.Children)),
	}
	for _, child := range node.Children {
		if c := buildProtocolTreeNode(child); c != nil {
			out.Children = append(out.Children, *c)
		}
	}
	return out
}

func workspaceEntry(info texel.WorkspaceInfo) protocol.WorkspaceEntry {
	return protocol.WorkspaceEntry{
		ID:           string(info.ID),
		Index:        info.Index,
		Title:        info.Title,
		Selected:     info.Selected,
		SurfaceCount: info.SurfaceCount,
		Active:       string(info.Active),
	}
}

func paneEntry(p texel.PaneInfo) protocol.PaneEntry {
	return protocol.PaneEntry{
		Index:   p.Index,
		ID:      string(p.ID),
		Focused: p.Focused,
		Type:    string(p.Kind),
		Rect:    protocol.Rect{X: p.Rect.X, Y: p.Rect.Y, W: p.Rect.W, H: p.Rect.H},
	}
}

func healthEntry(h texel.SurfaceHealth) protocol.HealthEntry {
	return protocol.HealthEntry{
		Index:     h.Index,
		ID:        string(h.ID),
		Type:      string(h.Type),
		InWindow:  h.InWindow,
		Portal:    h.Portal,
		ViewDepth: h.ViewDepth,
	}
}

func notificationEntry(n texel.Notification) protocol.NotificationEntry {
	return protocol.NotificationEntry{
		ID:      string(n.ID),
		Surface: string(n.Surface),
		Title:   n.Title,
		Kind:    n.Kind,
		Body:    n.Body,
		IsRead:  n.IsRead,
	}
}

func surfaceReply(info texel.SurfaceInfo) protocol.SurfaceReply {
	return protocol.SurfaceReply{
		Type:      "surface",
		ID:        string(info.ID),
		Index:     info.Index,
		Panel:     string(info.Panel.Name),
		Workspace: string(info.Workspace),
	}
}

func focusReply(change texel.FocusChange) protocol.FocusReply {
	return protocol.FocusReply{
		Type:     "focus",
		Previous: string(change.Previous),
		Current:  string(change.Current),
	}
}

func appFocusReply(a texel.AppFocus) protocol.AppFocusReply {
	return protocol.AppFocusReply{Type: "app_focus", Focused: a.Focused, Override: a.Override}
}
