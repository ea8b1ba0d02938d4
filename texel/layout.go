// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: texel/layout.go
// Summary: Computes leaf geometry from split ratios.

package texel

// Rect defines a rectangle using fractional coordinates (0.0 to 1.0).
type Rect struct {
	X, Y, W, H float64
}

// FullRect covers the whole workspace area.
var FullRect = Rect{W: 1, H: 1}

// Contains reports whether the point lies inside r. The right and bottom
// edges are exclusive.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// LeafGeometry is the computed placement of one surface.
type LeafGeometry struct {
	Surface SurfaceID
	Rect    Rect
	Depth   int
}

// Layout assigns every leaf its share of area, in layout order.
func Layout(root *Node, area Rect) []LeafGeometry {
	var out []LeafGeometry
	layoutNode(root, area, 0, &out)
	return out
}

func layoutNode(n *Node, area Rect, depth int, out *[]LeafGeometry) {
	if n == nil {
		return
	}
	if n.IsLeaf() {
		*out = append(*out, LeafGeometry{Surface: n.Surface, Rect: area, Depth: depth})
		return
	}
	if len(n.Ratios) != len(n.Children) {
		return
	}

	offset := 0.0
	for i, child := range n.Children {
		share := n.Ratios[i]
		if i == len(n.Children)-1 {
			share = 1 - offset
		}
		sub := area
		if n.Split == Vertical {
			sub.X = area.X + area.W*offset
			sub.W = area.W * share
		} else {
			sub.Y = area.Y + area.H*offset
			sub.H = area.H * share
		}
		layoutNode(child, sub, depth+1, out)
		offset += share
	}
}

// LeafAt returns the surface whose rectangle contains the fractional point.
func LeafAt(root *Node, x, y float64) (SurfaceID, bool) {
	for _, g := range Layout(root, FullRect) {
		if g.Rect.Contains(x, y) {
			return g.Surface, true
		}
	}
	return "", false
}
