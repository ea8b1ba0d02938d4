package texel

import (
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/framegrace/texelsplit/dragdrop"
)

func TestInputRouterClickFocusesSurface(t *testing.T) {
	s := newTestSession(t)
	_, left := newWorkspace(t, s)
	right, _ := s.Split(left, DirRight, "")
	router := NewInputRouter(s, dragdrop.NewPasteboard())

	res, err := router.HandleMouse(tcell.NewEventMouse(10, 5, tcell.Button1, 0), 80, 24)
	if err != nil {
		t.Fatalf("route failed: %v", err)
	}
	if res.Event != dragdrop.EventLeftMouseDown || res.Surface != left || res.Focus == nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Focus.Previous != right.ID || s.Focused() != left {
		t.Fatalf("expected focus moved to %s, got %s", left, s.Focused())
	}

	res, _ = router.HandleMouse(tcell.NewEventMouse(12, 5, tcell.Button1, 0), 80, 24)
	if res.Event != dragdrop.EventLeftMouseDragged || res.Focus != nil {
		t.Fatalf("expected drag without focus change, got %+v", res)
	}
}

func TestInputRouterGateCapturesFileDrag(t *testing.T) {
	s := newTestSession(t)
	_, left := newWorkspace(t, s)
	_, _ = s.Split(left, DirRight, "")
	pb := dragdrop.NewPasteboard()
	router := NewInputRouter(s, pb)

	pb.Seed(dragdrop.KindFileURL)
	res, err := router.Route(dragdrop.EventLeftMouseDragged, 0.25, 0.5)
	if err != nil || !res.Captured || res.Surface != "" {
		t.Fatalf("expected capture, got %+v %v", res, err)
	}

	res, _ = router.Route(dragdrop.EventLeftMouseDown, 0.25, 0.5)
	if res.Captured || s.Focused() != left {
		t.Fatalf("clicks must pass through during file drags, got %+v", res)
	}

	pb.Seed(dragdrop.KindTabTransfer)
	res, _ = router.Route(dragdrop.EventLeftMouseDragged, 0.75, 0.5)
	if res.Captured {
		t.Fatalf("tab transfer must not be captured")
	}
}
