// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: engine/keys.go
// Summary: Parses shortcut strings such as "ctrl+d" into tcell key events.

package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"

	"github.com/framegrace/texelsplit/texel"
)

var keysByName = func() map[string]tcell.Key {
	out := make(map[string]tcell.Key, len(tcell.KeyNames))
	for k, name := range tcell.KeyNames {
		out[strings.ToLower(name)] = k
	}
	out["return"] = tcell.KeyEnter
	out["esc"] = tcell.KeyEscape
	out["escape"] = tcell.KeyEscape
	return out
}()

// ParseCombo turns "ctrl+d", "alt+x", "enter" or "shift+tab" into a key
// event. Names are case-insensitive and joined by '+'.
func ParseCombo(combo string) (*tcell.EventKey, error) {
	combo = strings.ToLower(strings.TrimSpace(combo))
	if combo == "" {
		return nil, fmt.Errorf("%w: empty shortcut", texel.ErrInvalidState)
	}
	parts := strings.FieldsFunc(combo, func(r rune) bool { return r == '+' })
	if strings.HasSuffix(combo, "++") || combo == "+" {
		parts = append(parts, "+")
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: bad shortcut %q", texel.ErrInvalidState, combo)
	}

	var mod tcell.ModMask
	for _, m := range parts[:len(parts)-1] {
		switch m {
		case "ctrl", "control":
			mod |= tcell.ModCtrl
		case "alt", "opt", "option":
			mod |= tcell.ModAlt
		case "shift":
			mod |= tcell.ModShift
		case "meta", "cmd", "super":
			mod |= tcell.ModMeta
		default:
			return nil, fmt.Errorf("%w: unknown modifier %q in %q", texel.ErrInvalidState, m, combo)
		}
	}
	key := parts[len(parts)-1]

	if utf8.RuneCountInString(key) == 1 {
		r, _ := utf8.DecodeRuneInString(key)
		if mod&tcell.ModCtrl != 0 && r >= 'a' && r <= 'z' {
			return tcell.NewEventKey(tcell.KeyCtrlA+tcell.Key(r-'a'), r, mod), nil
		}
		return tcell.NewEventKey(tcell.KeyRune, r, mod), nil
	}
	if key == "space" {
		return tcell.NewEventKey(tcell.KeyRune, ' ', mod), nil
	}
	if k, ok := keysByName[key]; ok {
		return tcell.NewEventKey(k, 0, mod), nil
	}
	if mod&tcell.ModCtrl != 0 {
		if k, ok := keysByName["ctrl-"+key]; ok {
			return tcell.NewEventKey(k, 0, mod), nil
		}
	}
	return nil, fmt.Errorf("%w: unknown key %q", texel.ErrInvalidState, key)
}

// keyBytes encodes a key event the way a terminal would send it to a pty.
func keyBytes(ev *tcell.EventKey) []byte {
	var out []byte
	if ev.Modifiers()&tcell.ModAlt != 0 {
		out = append(out, 0x1b)
	}
	switch k := ev.Key(); {
	case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ:
		return append(out, byte(k-tcell.KeyCtrlA+1))
	case k == tcell.KeyRune:
		return append(out, []byte(string(ev.Rune()))...)
	case k == tcell.KeyEnter:
		return append(out, '\r')
	case k == tcell.KeyTab:
		return append(out, '\t')
	case k == tcell.KeyBacktab:
		return append(out, "\x1b[Z"...)
	case k == tcell.KeyBackspace || k == tcell.KeyBackspace2:
		return append(out, 0x7f)
	case k == tcell.KeyEscape:
		return append(out, 0x1b)
	case k == tcell.KeyUp:
		return append(out, "\x1b[A"...)
	case k == tcell.KeyDown:
		return append(out, "\x1b[B"...)
	case k == tcell.KeyRight:
		return append(out, "\x1b[C"...)
	case k == tcell.KeyLeft:
		return append(out, "\x1b[D"...)
	case k == tcell.KeyHome:
		return append(out, "\x1b[H"...)
	case k == tcell.KeyEnd:
		return append(out, "\x1b[F"...)
	case k == tcell.KeyDelete:
		return append(out, "\x1b[3~"...)
	}
	return out
}
