// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: texel/tree.go
// Summary: Implements the split tree for a workspace.
// Usage: Nodes are immutable once published. Every edit rebuilds the path from
// the root to the edited node and the workspace swaps its root in one store,
// so readers observe either the old or the new tree and never a split that
// is being rebuilt.

package texel

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
)

// Orientation is the axis along which a split lays out its children.
type Orientation int

const (
	// Horizontal stacks children top to bottom.
	Horizontal Orientation = iota
	// Vertical places children left to right.
	Vertical
)

func (o Orientation) String() string {
	if o == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// Direction names a side of a surface.
type Direction int

const (
	DirUp Direction = iota
	DirDown
	DirLeft
	DirRight
)

// ParseDirection accepts "up", "down", "left" and "right".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return DirUp, nil
	case "down":
		return DirDown, nil
	case "left":
		return DirLeft, nil
	case "right":
		return DirRight, nil
	}
	return 0, fmt.Errorf("%w: unknown direction %q", ErrInvalidState, s)
}

func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	case DirLeft:
		return "left"
	default:
		return "right"
	}
}

// Orientation returns the split axis a direction moves along.
func (d Direction) Orientation() Orientation {
	if d == DirLeft || d == DirRight {
		return Vertical
	}
	return Horizontal
}

// leading reports whether the direction points towards lower child indexes.
func (d Direction) leading() bool {
	return d == DirLeft || d == DirUp
}

// Node represents a node in the split tree. A leaf carries a surface id and
// no children; a split carries two or more children and one ratio per child.
type Node struct {
	Surface  SurfaceID
	Split    Orientation
	Ratios   []float64
	Children []*Node
}

// NewLeaf returns a leaf node for id.
func NewLeaf(id SurfaceID) *Node {
	return &Node{Surface: id}
}

// IsLeaf reports whether n holds a surface.
func (n *Node) IsLeaf() bool {
	return n != nil && len(n.Children) == 0
}

func (n *Node) clone() *Node {
	c := &Node{Surface: n.Surface, Split: n.Split}
	if len(n.Children) > 0 {
		c.Children = append([]*Node(nil), n.Children...)
		c.Ratios = append([]float64(nil), n.Ratios...)
	}
	return c
}

// pathStep records an ancestor and the index of the child taken from it.
type pathStep struct {
	node  *Node
	index int
}

// findPath returns the ancestors of the leaf holding id, root first, and the
// leaf itself. The leaf is nil when id is absent.
func findPath(root *Node, id SurfaceID) ([]pathStep, *Node) {
	if root == nil {
		return nil, nil
	}
	if root.IsLeaf() {
		if root.Surface == id {
			return nil, root
		}
		return nil, nil
	}
	for i, child := range root.Children {
		path, leaf := findPath(child, id)
		if leaf != nil {
			return append([]pathStep{{node: root, index: i}}, path...), leaf
		}
	}
	return nil, nil
}

// rebuild copies every ancestor in path, bottom up, substituting replacement
// for the child the path went through. It returns the new root.
func rebuild(path []pathStep, replacement *Node) *Node {
	for i := len(path) - 1; i >= 0; i-- {
		c := path[i].node.clone()
		c.Children[path[i].index] = replacement
		replacement = c
	}
	return replacement
}

// SplitLeaf replaces the leaf holding target with a two-child split holding
// target and newID with equal ratios. Directions left/up put the new leaf
// first.
func SplitLeaf(root *Node, target SurfaceID, dir Direction, newID SurfaceID) (*Node, error) {
	path, leaf := findPath(root, target)
	if leaf == nil {
		return nil, fmt.Errorf("%w: surface %q is not in this tree", ErrNotFound, target)
	}
	fresh := NewLeaf(newID)
	children := []*Node{leaf, fresh}
	if dir.leading() {
		children = []*Node{fresh, leaf}
	}
	split := &Node{
		Split:    dir.Orientation(),
		Ratios:   []float64{0.5, 0.5},
		Children: children,
	}
	return rebuild(path, split), nil
}

// RemoveLeaf removes the leaf holding target. A parent left with a single
// child is replaced by that child, which inherits the parent's slot and
// ratio. Removing the only leaf yields a nil root.
func RemoveLeaf(root *Node, target SurfaceID) (*Node, error) {
	path, leaf := findPath(root, target)
	if leaf == nil {
		return nil, fmt.Errorf("%w: surface %q is not in this tree", ErrNotFound, target)
	}
	if len(path) == 0 {
		return nil, nil
	}
	last := path[len(path)-1]
	parent := last.node

	var replacement *Node
	if len(parent.Children) == 2 {
		replacement = parent.Children[1-last.index]
	} else {
		replacement = &Node{Split: parent.Split}
		for i, child := range parent.Children {
			if i == last.index {
				continue
			}
			replacement.Children = append(replacement.Children, child)
			replacement.Ratios = append(replacement.Ratios, parent.Ratios[i])
		}
		replacement.Ratios = normalizeRatios(replacement.Ratios)
	}
	return rebuild(path[:len(path)-1], replacement), nil
}

// SwapLeaves exchanges the surfaces held by two leaves. Shape and ratios are
// unchanged.
func SwapLeaves(root *Node, a, b SurfaceID) (*Node, error) {
	for _, id := range []SurfaceID{a, b} {
		if !Contains(root, id) {
			return nil, fmt.Errorf("%w: surface %q is not in this tree", ErrNotFound, id)
		}
	}
	if a == b {
		return root, nil
	}
	return swapWalk(root, a, b), nil
}

// swapWalk copies only the nodes on the paths to a and b.
func swapWalk(n *Node, a, b SurfaceID) *Node {
	if n.IsLeaf() {
		switch n.Surface {
		case a:
			return NewLeaf(b)
		case b:
			return NewLeaf(a)
		}
		return n
	}
	var c *Node
	for i, child := range n.Children {
		next := swapWalk(child, a, b)
		if next == child {
			continue
		}
		if c == nil {
			c = n.clone()
		}
		c.Children[i] = next
	}
	if c == nil {
		return n
	}
	return c
}

// Neighbor returns the surface adjacent to id in direction dir. It walks up
// the ancestors until one splits along the direction's axis and has a
// sibling on that side, then descends to that sibling's first leaf.
func Neighbor(root *Node, id SurfaceID, dir Direction) (SurfaceID, error) {
	path, leaf := findPath(root, id)
	if leaf == nil {
		return "", fmt.Errorf("%w: surface %q is not in this tree", ErrNotFound, id)
	}
	for i := len(path) - 1; i >= 0; i-- {
		step := path[i]
		if step.node.Split != dir.Orientation() {
			continue
		}
		next := step.index + 1
		if dir.leading() {
			next = step.index - 1
		}
		if next >= 0 && next < len(step.node.Children) {
			return firstLeaf(step.node.Children[next]).Surface, nil
		}
	}
	return "", nil
}

func firstLeaf(n *Node) *Node {
	for n != nil && !n.IsLeaf() {
		n = n.Children[0]
	}
	return n
}

// Leaves returns the surfaces of the tree in layout order.
func Leaves(root *Node) []SurfaceID {
	var out []SurfaceID
	Walk(root, func(n *Node, _ int) {
		if n.IsLeaf() {
			out = append(out, n.Surface)
		}
	})
	return out
}

// Contains reports whether id is a leaf of the tree.
func Contains(root *Node, id SurfaceID) bool {
	_, leaf := findPath(root, id)
	return leaf != nil
}

// Depth returns the number of splits above the leaf holding id, or -1.
func Depth(root *Node, id SurfaceID) int {
	path, leaf := findPath(root, id)
	if leaf == nil {
		return -1
	}
	return len(path)
}

// Walk visits every node depth first with its depth.
func Walk(root *Node, fn func(n *Node, depth int)) {
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		if n == nil {
			return
		}
		fn(n, depth)
		for _, child := range n.Children {
			walk(child, depth+1)
		}
	}
	walk(root, 0)
}

// Violation describes a node breaking a structural invariant.
type Violation struct {
	Depth    int
	Children int
	Reason   string
}

func (v Violation) String() string {
	return fmt.Sprintf("depth %d: %s (children=%d)", v.Depth, v.Reason, v.Children)
}

const ratioEpsilon = 1e-6

// Validate scans the whole tree. Every split needs at least two children,
// one ratio per child, and ratios summing to 1.
func Validate(root *Node) []Violation {
	var out []Violation
	Walk(root, func(n *Node, depth int) {
		if n.IsLeaf() {
			if n.Surface == "" {
				out = append(out, Violation{Depth: depth, Reason: "leaf without surface"})
			}
			return
		}
		if len(n.Children) < 2 {
			out = append(out, Violation{Depth: depth, Children: len(n.Children), Reason: "split underflow"})
		}
		if len(n.Ratios) != len(n.Children) {
			out = append(out, Violation{Depth: depth, Children: len(n.Children), Reason: "ratio count mismatch"})
			return
		}
		sum := 0.0
		for _, r := range n.Ratios {
			sum += r
		}
		if math.Abs(sum-1) > ratioEpsilon {
			out = append(out, Violation{Depth: depth, Children: len(n.Children), Reason: fmt.Sprintf("ratios sum to %.6f", sum)})
		}
	})
	return out
}

func normalizeRatios(ratios []float64) []float64 {
	if len(ratios) == 0 {
		return ratios
	}
	total := 0.0
	for _, r := range ratios {
		total += r
	}
	out := make([]float64, len(ratios))
	if total <= 0 {
		for i := range out {
			out[i] = 1 / float64(len(out))
		}
		return out
	}
	rest := 1.0
	for i := range ratios[:len(ratios)-1] {
		out[i] = ratios[i] / total
		rest -= out[i]
	}
	out[len(out)-1] = rest
	return out
}

// Tree holds the published root of a workspace's split tree.
type Tree struct {
	root atomic.Pointer[Node]
}

// Root returns the current root. The returned tree is never mutated.
func (t *Tree) Root() *Node {
	return t.root.Load()
}

func (t *Tree) publish(root *Node) {
	t.root.Store(root)
}
