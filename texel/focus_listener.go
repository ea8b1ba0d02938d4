// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: texel/focus_listener.go
// Summary: Adapts focus-only consumers onto the session dispatcher.

package texel

// FocusListener describes consumers interested in focus changes only.
type FocusListener interface {
	SurfaceFocused(previous, current SurfaceID)
}

// SubscribeFocus registers l for focus changes.
func (s *Session) SubscribeFocus(l FocusListener) {
	s.dispatcher.Subscribe(ListenerFunc(func(ev Event) {
		if ev.Type != EventFocusChanged {
			return
		}
		if p, ok := ev.Payload.(FocusPayload); ok {
			l.SurfaceFocused(p.Previous, p.Current)
		}
	}))
}
