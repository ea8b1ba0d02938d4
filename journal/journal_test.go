package journal

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/framegrace/texelsplit/texel"
)

func newSession(t *testing.T) *texel.Session {
	t.Helper()
	n := 0
	return texel.NewSession(texel.Options{NewID: func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}})
}

func TestJournalRecordsSessionEvents(t *testing.T) {
	ctx := context.Background()
	j, err := Open(ctx, MemoryPath, nil)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer j.Close()

	s := newSession(t)
	s.Subscribe(j)
	_, first, err := s.NewWorkspace("")
	if err != nil {
		t.Fatalf("new workspace: %v", err)
	}
	second, err := s.Split(first, texel.DirRight, "")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if _, err := s.Notify(first, "build done", "info", ""); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if _, err := s.Focus(first); err != nil {
		t.Fatalf("focus: %v", err)
	}
	if _, err := s.CloseSurface(second.ID); err != nil {
		t.Fatalf("close: %v", err)
	}

	entries, err := j.Tail(ctx, 0)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	seen := make(map[string]int)
	for i, e := range entries {
		seen[e.Event]++
		if i > 0 && e.Seq <= entries[i-1].Seq {
			t.Fatalf("entries out of order: %+v", entries)
		}
	}
	for _, want := range []string{"surface_created", "focus_changed", "notification_created", "notifications_read", "flash", "surface_closed"} {
		if seen[want] == 0 {
			t.Fatalf("expected %s in journal, got %v", want, seen)
		}
	}
	if seen["tree_changed"] != 0 {
		t.Fatalf("tree changes are not journaled")
	}
	last := entries[len(entries)-1]
	if last.Event != "surface_closed" || last.Surface != string(second.ID) || last.Detail != "terminal" {
		t.Fatalf("unexpected last entry %+v", last)
	}
}

func TestTailLimitKeepsNewest(t *testing.T) {
	ctx := context.Background()
	j, err := Open(ctx, filepath.Join(t.TempDir(), "sub", "journal.db"), nil)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer j.Close()

	for i := 0; i < 5; i++ {
		if err := j.Append(ctx, Entry{Event: "flash", Detail: fmt.Sprintf("n%d", i)}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	entries, err := j.Tail(ctx, 2)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(entries) != 2 || entries[0].Detail != "n3" || entries[1].Detail != "n4" {
		t.Fatalf("unexpected tail %+v", entries)
	}
	if entries[0].Time.IsZero() {
		t.Fatalf("expected timestamps")
	}
}

func TestDescribeFocus(t *testing.T) {
	got := describe(texel.Event{Type: texel.EventFocusChanged, Payload: texel.FocusPayload{Current: "b"}})
	if got != "none -> b" {
		t.Fatalf("unexpected detail %q", got)
	}
}
