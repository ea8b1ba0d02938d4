// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: journal/journal.go
// Summary: SQLite event journal fed by the session dispatcher.
// Usage: Subscribe a Journal to a texel.Session; journal_tail reads it back.
// The journal records what happened, it is not used to restore layouts.

package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
	"pkt.systems/pslog"

	"github.com/framegrace/texelsplit/texel"
)

// MemoryPath keeps the journal in memory for the process lifetime.
const MemoryPath = ":memory:"

// DefaultTail is used when Tail is asked for a non-positive limit.
const DefaultTail = 50

const schema = `
CREATE TABLE IF NOT EXISTS events (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	at TEXT NOT NULL,
	event TEXT NOT NULL,
	workspace TEXT NOT NULL DEFAULT '',
	surface TEXT NOT NULL DEFAULT '',
	detail TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS events_surface ON events(surface);
`

var recorded = map[texel.EventType]bool{
	texel.EventWorkspaceCreated:    true,
	texel.EventWorkspaceClosed:     true,
	texel.EventSurfaceCreated:      true,
	texel.EventSurfaceClosed:       true,
	texel.EventFocusChanged:        true,
	texel.EventNotificationCreated: true,
	texel.EventNotificationsRead:   true,
	texel.EventFlash:               true,
	texel.EventInvariantViolation:  true,
}

// Entry is one recorded event.
type Entry struct {
	Seq       int64
	Time      time.Time
	Event     string
	Workspace string
	Surface   string
	Detail    string
}

// Journal appends session events to a sqlite table.
type Journal struct {
	db     *sql.DB
	log    pslog.Logger
	now    func() time.Time
	failed atomic.Uint64
}

// Open creates or reopens the journal at path.
func Open(ctx context.Context, path string, log pslog.Logger) (*Journal, error) {
	if log == nil {
		log = pslog.Ctx(ctx)
	}
	dsn := "file::memory:"
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("journal: create dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open sqlite: %w", err)
	}
	// One connection: an in-memory database is per connection.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}
	if path != MemoryPath {
		if err := os.Chmod(path, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
			_ = db.Close()
			return nil, fmt.Errorf("journal: chmod: %w", err)
		}
	}
	return &Journal{db: db, log: log.With("component", "journal"), now: time.Now}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Failed reports how many events could not be written.
func (j *Journal) Failed() uint64 {
	return j.failed.Load()
}

// OnEvent implements texel.Listener.
func (j *Journal) OnEvent(ev texel.Event) {
	if !recorded[ev.Type] {
		return
	}
	err := j.Append(context.Background(), Entry{
		Time:      j.now(),
		Event:     ev.Type.String(),
		Workspace: string(ev.Workspace),
		Surface:   string(ev.Surface),
		Detail:    describe(ev),
	})
	if err != nil {
		j.failed.Add(1)
		j.log.Warn("journal write failed", "event", ev.Type.String(), "err", err)
	}
}

// Append writes e. A zero Time is stamped with the current time.
func (j *Journal) Append(ctx context.Context, e Entry) error {
	if e.Time.IsZero() {
		e.Time = j.now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO events(at, event, workspace, surface, detail) VALUES (?, ?, ?, ?, ?)`,
		e.Time.UTC().Format(time.RFC3339Nano), e.Event, e.Workspace, e.Surface, e.Detail)
	if err != nil {
		return fmt.Errorf("journal: insert: %w", err)
	}
	return nil
}

// Tail returns the last limit entries, oldest first.
func (j *Journal) Tail(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultTail
	}
	rows, err := j.db.QueryContext(ctx, `
SELECT seq, at, event, workspace, surface, detail FROM (
	SELECT * FROM events ORDER BY seq DESC LIMIT ?
) ORDER BY seq ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.Seq, &at, &e.Event, &e.Workspace, &e.Surface, &e.Detail); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.Time, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("journal: bad timestamp %q: %w", at, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: rows: %w", err)
	}
	return out, nil
}

func describe(ev texel.Event) string {
	switch p := ev.Payload.(type) {
	case texel.FocusPayload:
		return fmt.Sprintf("%s -> %s", orNone(string(p.Previous)), orNone(string(p.Current)))
	case texel.FlashPayload:
		return p.Reason + " #" + strconv.FormatUint(p.Count, 10)
	case texel.ReadPayload:
		return strconv.Itoa(p.Count) + " read"
	case texel.SurfacePayload:
		return string(p.Info.Panel.Name)
	case texel.Notification:
		return p.Title
	case texel.ViolationPayload:
		parts := make([]string, 0, len(p.Violations))
		for _, v := range p.Violations {
			parts = append(parts, v.String())
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
