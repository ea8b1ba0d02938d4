// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: engine/screen.go
// Summary: A plain-text scrollback painted onto a tcell simulation screen.

package engine

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

const maxScrollback = 1000

// textScreen keeps lines of text and paints the visible tail. Callers
// serialize access.
type textScreen struct {
	screen tcell.SimulationScreen
	cols   int
	rows   int
	lines  [][]rune
	// col is the cursor position within the last line, in runes.
	col int
}

func newTextScreen(cols, rows int) (*textScreen, error) {
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.SetSize(cols, rows)
	return &textScreen{screen: screen, cols: cols, rows: rows, lines: [][]rune{nil}}, nil
}

func (t *textScreen) fini() {
	t.screen.Fini()
}

func (t *textScreen) current() []rune {
	return t.lines[len(t.lines)-1]
}

// write prints text at the cursor. '\n' starts a new line, '\r' moves the
// cursor to column 0 so later runes overwrite, backspace and DEL erase the
// rune before the cursor, other control runes are dropped.
func (t *textScreen) write(text string) {
	for _, r := range text {
		switch {
		case r == '\n':
			t.newline()
		case r == '\r':
			t.col = 0
		case r == '\b' || r == 0x7f:
			t.backspace()
		case r == '\t':
			t.appendRune(' ')
		case r < ' ':
		default:
			t.appendRune(r)
		}
	}
}

func (t *textScreen) appendRune(r rune) {
	cur := t.current()
	if t.col < len(cur) {
		cur[t.col] = r
	} else {
		cur = append(cur, r)
	}
	t.lines[len(t.lines)-1] = cur
	t.col++
}

func (t *textScreen) newline() {
	t.lines = append(t.lines, nil)
	t.col = 0
	if len(t.lines) > maxScrollback {
		t.lines = append([][]rune(nil), t.lines[len(t.lines)-maxScrollback:]...)
	}
}

func (t *textScreen) backspace() bool {
	if t.col == 0 {
		return false
	}
	cur := t.current()
	t.lines[len(t.lines)-1] = append(cur[:t.col-1], cur[t.col:]...)
	t.col--
	return true
}

// eraseLine empties the line being typed.
func (t *textScreen) eraseLine() {
	t.lines[len(t.lines)-1] = nil
	t.col = 0
}

func (t *textScreen) clear() {
	t.lines = [][]rune{nil}
	t.col = 0
}

// wrapped splits logical lines into screen rows by display width.
func (t *textScreen) wrapped() [][]rune {
	var out [][]rune
	for _, line := range t.lines {
		var row []rune
		width := 0
		for _, r := range line {
			w := runewidth.RuneWidth(r)
			if width+w > t.cols && len(row) > 0 {
				out = append(out, row)
				row, width = nil, 0
			}
			row = append(row, r)
			width += w
		}
		out = append(out, row)
	}
	return out
}

// paint redraws the visible tail of the scrollback.
func (t *textScreen) paint() {
	t.screen.Clear()
	rows := t.wrapped()
	if len(rows) > t.rows {
		rows = rows[len(rows)-t.rows:]
	}
	for y, row := range rows {
		x := 0
		for _, r := range row {
			w := runewidth.RuneWidth(r)
			if w == 0 {
				continue
			}
			t.screen.SetContent(x, y, r, nil, tcell.StyleDefault)
			x += w
		}
	}
	t.screen.Show()
}

// text reads the screen back, one line per row, without trailing blanks.
func (t *textScreen) text() string {
	lines := make([]string, 0, t.rows)
	for y := 0; y < t.rows; y++ {
		var b strings.Builder
		for x := 0; x < t.cols; {
			ch, comb, _, w := t.screen.GetContent(x, y)
			if ch == 0 {
				ch = ' '
			}
			b.WriteRune(ch)
			for _, c := range comb {
				b.WriteRune(c)
			}
			if w < 1 {
				w = 1
			}
			x += w
		}
		lines = append(lines, strings.TrimRight(b.String(), " "))
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
