package dragdrop

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestShouldCaptureHitTestTable(t *testing.T) {
	kinds := []Kind{KindEmpty, KindTabTransfer, KindSidebarReorder, KindFileURL}
	events := []EventKind{
		EventNone,
		EventLeftMouseDown, EventLeftMouseUp,
		EventRightMouseDown, EventRightMouseUp,
		EventOtherMouseDown, EventOtherMouseUp,
		EventLeftMouseDragged, EventRightMouseDragged, EventOtherMouseDragged,
		EventScrollWheel, EventMouseMoved,
	}
	for _, k := range kinds {
		for _, e := range events {
			want := k == KindFileURL && e.IsDragMotion()
			if got := ShouldCaptureHitTest(e, k); got != want {
				t.Fatalf("ShouldCaptureHitTest(%s, %s) = %v, want %v", e, k, got, want)
			}
		}
	}
}

func TestShouldCaptureHitTestExamples(t *testing.T) {
	cases := []struct {
		event EventKind
		kind  Kind
		want  bool
	}{
		{EventLeftMouseDragged, KindFileURL, true},
		{EventLeftMouseDown, KindFileURL, false},
		{EventLeftMouseDragged, KindTabTransfer, false},
		{EventLeftMouseDragged, KindSidebarReorder, false},
		{EventScrollWheel, KindFileURL, false},
	}
	for _, tc := range cases {
		if got := ShouldCaptureHitTest(tc.event, tc.kind); got != tc.want {
			t.Fatalf("(%s, %s): expected %v, got %v", tc.event, tc.kind, tc.want, got)
		}
	}
}

func TestPasteboardGateIsIdempotent(t *testing.T) {
	pb := NewPasteboard()
	pb.Seed(KindFileURL)
	first := pb.ShouldCapture(EventNone)
	for i := 0; i < 10; i++ {
		if got := pb.ShouldCapture(EventNone); got != first {
			t.Fatalf("call %d returned %v, expected %v", i, got, first)
		}
	}
	if pb.Kind() != KindFileURL {
		t.Fatalf("gate query mutated pasteboard: %s", pb.Kind())
	}
	pb.Clear()
	if pb.Kind() != KindEmpty {
		t.Fatalf("expected empty after clear, got %s", pb.Kind())
	}
}

func TestParseEventKind(t *testing.T) {
	if _, err := ParseEventKind("leftMouseDragged"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k, err := ParseEventKind("none"); err != nil || k != EventNone {
		t.Fatalf("expected none, got %q %v", k, err)
	}
	if _, err := ParseEventKind("doubleClick"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestClassifyMouse(t *testing.T) {
	cases := []struct {
		prev, cur tcell.ButtonMask
		want      EventKind
	}{
		{tcell.ButtonNone, tcell.ButtonPrimary, EventLeftMouseDown},
		{tcell.ButtonPrimary, tcell.ButtonPrimary, EventLeftMouseDragged},
		{tcell.ButtonPrimary, tcell.ButtonNone, EventLeftMouseUp},
		{tcell.ButtonNone, tcell.ButtonSecondary, EventRightMouseDown},
		{tcell.ButtonSecondary, tcell.ButtonSecondary, EventRightMouseDragged},
		{tcell.ButtonMiddle, tcell.ButtonNone, EventOtherMouseUp},
		{tcell.ButtonNone, tcell.WheelUp, EventScrollWheel},
		{tcell.ButtonNone, tcell.ButtonNone, EventMouseMoved},
	}
	for _, tc := range cases {
		if got := ClassifyMouse(tc.prev, tc.cur); got != tc.want {
			t.Fatalf("ClassifyMouse(%v, %v) = %s, want %s", tc.prev, tc.cur, got, tc.want)
		}
	}
}
