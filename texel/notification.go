// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: texel/notification.go
// Summary: Per-surface notifications and their read state.

package texel

import (
	"fmt"
	"time"
)

// NotificationID identifies a notification.
type NotificationID string

// Notification belongs to exactly one surface. It becomes read only when its
// surface gains focus.
type Notification struct {
	ID      NotificationID
	Surface SurfaceID
	Title   string
	Kind    string
	Body    string
	IsRead  bool
	Created time.Time
}

// NotificationFilter selects notifications. The zero value matches all.
type NotificationFilter struct {
	Surface    SurfaceID
	UnreadOnly bool
}

func (f NotificationFilter) match(n *Notification) bool {
	if f.Surface != "" && n.Surface != f.Surface {
		return false
	}
	if f.UnreadOnly && n.IsRead {
		return false
	}
	return true
}

// Notify attaches an unread notification to a surface. It never flashes.
func (s *Session) Notify(id SurfaceID, title, kind, body string) (Notification, error) {
	var out Notification
	err := s.mutate(func(tx *txn) error {
		surf, err := s.surfaces.lookup(id)
		if err != nil {
			return err
		}
		n := &Notification{
			ID:      NotificationID(s.newID()),
			Surface: surf.ID,
			Title:   title,
			Kind:    kind,
			Body:    body,
			Created: s.now(),
		}
		s.notifications = append(s.notifications, n)
		out = *n
		tx.emit(Event{Type: EventNotificationCreated, Workspace: surf.Workspace, Surface: surf.ID, Payload: out})
		return nil
	})
	return out, err
}

// Notifications lists notifications in creation order.
func (s *Session) Notifications(filter NotificationFilter) ([]Notification, error) {
	var out []Notification
	err := s.view(func() error {
		if filter.Surface != "" {
			if _, err := s.surfaces.lookup(filter.Surface); err != nil {
				return err
			}
		}
		for _, n := range s.notifications {
			if filter.match(n) {
				out = append(out, *n)
			}
		}
		return nil
	})
	return out, err
}

// IsRead reports the read state of one notification.
func (s *Session) IsRead(id NotificationID) (bool, error) {
	var read bool
	err := s.view(func() error {
		for _, n := range s.notifications {
			if n.ID == id {
				read = n.IsRead
				return nil
			}
		}
		return fmt.Errorf("%w: notification %q", ErrNotFound, id)
	})
	return read, err
}

// ClearNotifications removes the notifications of one surface, or all of
// them when id is empty. It returns how many were removed.
func (s *Session) ClearNotifications(id SurfaceID) (int, error) {
	var removed int
	err := s.mutate(func(tx *txn) error {
		if id != "" {
			if _, err := s.surfaces.lookup(id); err != nil {
				return err
			}
		}
		before := len(s.notifications)
		if id == "" {
			s.notifications = nil
		} else {
			s.dropNotifications(id)
		}
		removed = before - len(s.notifications)
		if removed > 0 {
			tx.emit(Event{Type: EventNotificationsCleared, Surface: id, Payload: ReadPayload{Count: removed}})
		}
		return nil
	})
	return removed, err
}

func (s *Session) dropNotifications(id SurfaceID) {
	kept := s.notifications[:0]
	for _, n := range s.notifications {
		if n.Surface != id {
			kept = append(kept, n)
		}
	}
	for i := len(kept); i < len(s.notifications); i++ {
		s.notifications[i] = nil
	}
	s.notifications = kept
}

// markRead flips every unread notification of id and returns the count.
func (s *Session) markRead(id SurfaceID) int {
	count := 0
	for _, n := range s.notifications {
		if n.Surface == id && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count
}
