// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: dragdrop/gate.go
// Summary: Decides whether a generic drop overlay may capture a pointer event.
// Usage: Consulted by the input hit-testing path before routing a mouse event
// to the surface beneath it; also queryable directly by test harnesses.

package dragdrop

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
)

// Kind classifies the content of the current drag session.
type Kind string

const (
	KindEmpty          Kind = "empty"
	KindTabTransfer    Kind = "tab-transfer"
	KindSidebarReorder Kind = "sidebar-reorder"
	KindFileURL        Kind = "file-url"
)

// EventKind names a pointer event.
type EventKind string

const (
	EventNone              EventKind = "none"
	EventLeftMouseDown     EventKind = "leftMouseDown"
	EventLeftMouseUp       EventKind = "leftMouseUp"
	EventRightMouseDown    EventKind = "rightMouseDown"
	EventRightMouseUp      EventKind = "rightMouseUp"
	EventOtherMouseDown    EventKind = "otherMouseDown"
	EventOtherMouseUp      EventKind = "otherMouseUp"
	EventLeftMouseDragged  EventKind = "leftMouseDragged"
	EventRightMouseDragged EventKind = "rightMouseDragged"
	EventOtherMouseDragged EventKind = "otherMouseDragged"
	EventScrollWheel       EventKind = "scrollWheel"
	EventMouseMoved        EventKind = "mouseMoved"
)

var eventKinds = map[EventKind]struct{}{
	EventNone:              {},
	EventLeftMouseDown:     {},
	EventLeftMouseUp:       {},
	EventRightMouseDown:    {},
	EventRightMouseUp:      {},
	EventOtherMouseDown:    {},
	EventOtherMouseUp:      {},
	EventLeftMouseDragged:  {},
	EventRightMouseDragged: {},
	EventOtherMouseDragged: {},
	EventScrollWheel:       {},
	EventMouseMoved:        {},
}

// ParseEventKind validates an event kind name.
func ParseEventKind(s string) (EventKind, error) {
	k := EventKind(s)
	if _, ok := eventKinds[k]; !ok {
		return "", fmt.Errorf("dragdrop: unknown event kind %q", s)
	}
	return k, nil
}

// IsDragMotion reports whether e is a drag-motion event.
func (e EventKind) IsDragMotion() bool {
	switch e {
	case EventLeftMouseDragged, EventRightMouseDragged, EventOtherMouseDragged:
		return true
	}
	return false
}

// ShouldCaptureHitTest reports whether a generic drop overlay may capture e
// while the pasteboard holds kind. Only external file drags in motion are
// captured; clicks and intra-application drags always pass through.
func ShouldCaptureHitTest(e EventKind, kind Kind) bool {
	return kind == KindFileURL && e.IsDragMotion()
}

// Pasteboard holds the drag session classification.
type Pasteboard struct {
	mu   sync.RWMutex
	kind Kind
}

// NewPasteboard returns an empty pasteboard.
func NewPasteboard() *Pasteboard {
	return &Pasteboard{kind: KindEmpty}
}

// Seed starts a drag session of the given kind.
func (p *Pasteboard) Seed(kind Kind) {
	p.mu.Lock()
	p.kind = kind
	p.mu.Unlock()
}

// Clear ends the drag session.
func (p *Pasteboard) Clear() {
	p.Seed(KindEmpty)
}

// Kind returns the current classification.
func (p *Pasteboard) Kind() Kind {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.kind
}

// ShouldCapture applies the gate to the current drag session.
func (p *Pasteboard) ShouldCapture(e EventKind) bool {
	return ShouldCaptureHitTest(e, p.Kind())
}

const wheelMask = tcell.WheelUp | tcell.WheelDown | tcell.WheelLeft | tcell.WheelRight

// ClassifyMouse maps a tcell button transition to an event kind. prev is
// the button mask of the previous mouse event.
func ClassifyMouse(prev, cur tcell.ButtonMask) EventKind {
	if cur&wheelMask != 0 {
		return EventScrollWheel
	}
	buttons := []struct {
		mask              tcell.ButtonMask
		down, up, dragged EventKind
	}{
		{tcell.ButtonPrimary, EventLeftMouseDown, EventLeftMouseUp, EventLeftMouseDragged},
		{tcell.ButtonSecondary, EventRightMouseDown, EventRightMouseUp, EventRightMouseDragged},
		{tcell.ButtonMiddle, EventOtherMouseDown, EventOtherMouseUp, EventOtherMouseDragged},
	}
	for _, b := range buttons {
		was := prev&b.mask != 0
		now := cur&b.mask != 0
		switch {
		case was && now:
			return b.dragged
		case now:
			return b.down
		case was:
			return b.up
		}
	}
	return EventMouseMoved
}
