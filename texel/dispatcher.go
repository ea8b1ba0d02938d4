// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: texel/dispatcher.go
// Summary: Implements the session event dispatcher.
// Usage: Events are collected while the session lock is held and broadcast
// after it is released, so listeners may call back into the session.

package texel

import "sync"

// EventType defines the type of an event.
type EventType int

const (
	EventWorkspaceCreated EventType = iota
	EventWorkspaceSelected
	EventWorkspaceClosed
	EventSurfaceCreated
	EventSurfaceClosed
	EventTreeChanged
	EventFocusChanged
	EventNotificationCreated
	EventNotificationsRead
	EventNotificationsCleared
	EventFlash
	EventInvariantViolation
)

var eventNames = map[EventType]string{
	EventWorkspaceCreated:     "workspace_created",
	EventWorkspaceSelected:    "workspace_selected",
	EventWorkspaceClosed:      "workspace_closed",
	EventSurfaceCreated:       "surface_created",
	EventSurfaceClosed:        "surface_closed",
	EventTreeChanged:          "tree_changed",
	EventFocusChanged:         "focus_changed",
	EventNotificationCreated:  "notification_created",
	EventNotificationsRead:    "notifications_read",
	EventNotificationsCleared: "notifications_cleared",
	EventFlash:                "flash",
	EventInvariantViolation:   "invariant_violation",
}

func (t EventType) String() string {
	if name, ok := eventNames[t]; ok {
		return name
	}
	return "unknown"
}

// Event represents a message passed through the system.
type Event struct {
	Type      EventType
	Workspace WorkspaceID
	Surface   SurfaceID
	Payload   interface{}
}

// SurfacePayload accompanies EventSurfaceCreated and EventSurfaceClosed.
type SurfacePayload struct {
	Info SurfaceInfo
}

// FocusPayload accompanies EventFocusChanged.
type FocusPayload struct {
	Previous SurfaceID
	Current  SurfaceID
}

// FlashPayload accompanies EventFlash.
type FlashPayload struct {
	Count  uint64
	Reason string
}

// ReadPayload accompanies EventNotificationsRead and EventNotificationsCleared.
type ReadPayload struct {
	Count int
}

// ViolationPayload accompanies EventInvariantViolation.
type ViolationPayload struct {
	Violations []Violation
}

// Listener is an interface that any component can implement to receive events.
type Listener interface {
	// OnEvent is the callback method for receiving events.
	OnEvent(event Event)
}

// ListenerFunc adapts a function to Listener. Function values are not
// comparable, so a ListenerFunc cannot be passed to Unsubscribe.
type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(event Event) { f(event) }

// EventDispatcher manages a list of listeners and broadcasts events to them.
type EventDispatcher struct {
	mu        sync.RWMutex
	listeners []Listener
}

// NewEventDispatcher creates a new dispatcher.
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{
		listeners: make([]Listener, 0),
	}
}

// Subscribe adds a new listener to receive events.
func (d *EventDispatcher) Subscribe(listener Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, listener)
}

// Unsubscribe removes a listener.
func (d *EventDispatcher) Unsubscribe(listener Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, l := range d.listeners {
		if l == listener {
			d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
			break
		}
	}
}

// Broadcast sends an event to all subscribed listeners.
func (d *EventDispatcher) Broadcast(event Event) {
	d.mu.RLock()
	listeners := append([]Listener(nil), d.listeners...)
	d.mu.RUnlock()
	for _, l := range listeners {
		l.OnEvent(event)
	}
}
