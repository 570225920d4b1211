package undo

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type host struct {
	state    map[string]any
	restored []map[string]any
	failNext bool
	mgr      *Manager[map[string]any]
}

func newHost(t *testing.T, capacity int) *host {
	t.Helper()
	h := &host{state: map[string]any{"signs": []any{}}}
	mgr, err := New(
		func() (map[string]any, error) { return h.state, nil },
		func(s map[string]any) error {
			if h.failNext {
				h.failNext = false
				return errors.New("restore failed")
			}
			h.restored = append(h.restored, s)
			h.state = s
			if _, err := h.mgr.Capture("from restore"); err != nil {
				t.Errorf("nested capture: %v", err)
			}
			return nil
		},
		WithCapacity[map[string]any](capacity),
	)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	h.mgr = mgr
	return h
}

func TestCaptureDeduplicatesIdenticalState(t *testing.T) {
	h := newHost(t, 10)
	if ok, err := h.mgr.Capture("add sign"); !ok || err != nil {
		t.Fatalf("first capture: ok=%v err=%v", ok, err)
	}
	h.state = map[string]any{"signs": []any{}}
	if ok, err := h.mgr.Capture("add sign"); ok || err != nil {
		t.Fatalf("identical capture should be a no-op: ok=%v err=%v", ok, err)
	}
	if h.mgr.Len() != 1 {
		t.Fatalf("history length = %d, want 1", h.mgr.Len())
	}
}

func TestCaptureEvictsOldestAndKeepsWindow(t *testing.T) {
	const capacity = 3
	h := newHost(t, capacity)
	for i := 0; i <= capacity; i++ {
		h.state = map[string]any{"step": i}
		if _, err := h.mgr.Capture(fmt.Sprintf("step %d", i)); err != nil {
			t.Fatalf("capture %d: %v", i, err)
		}
	}
	if h.mgr.Len() != capacity {
		t.Fatalf("len = %d, want %d", h.mgr.Len(), capacity)
	}
	if diff := cmp.Diff([]string{"step 1", "step 2", "step 3"}, h.mgr.Labels()); diff != "" {
		t.Fatalf("labels mismatch (-want +got):\n%s", diff)
	}
	for i := 0; i < capacity-1; i++ {
		if _, ok := h.mgr.Undo(); !ok {
			t.Fatalf("undo %d failed", i)
		}
	}
	if got := h.state["step"]; got != 1 {
		t.Fatalf("expected oldest surviving state 1, got %v", got)
	}
	if _, ok := h.mgr.Undo(); ok {
		t.Fatalf("undo past the oldest surviving entry must fail")
	}
}

func TestUndoRedoLabelsAndGuard(t *testing.T) {
	h := newHost(t, 10)
	h.state = map[string]any{"n": 0}
	h.mgr.Capture("open")
	h.state = map[string]any{"n": 1}
	h.mgr.Capture("add sign")

	label, ok := h.mgr.Undo()
	if !ok || label != "add sign" {
		t.Fatalf("undo = %q %v", label, ok)
	}
	if h.mgr.Len() != 2 {
		t.Fatalf("restore must not append history, len = %d", h.mgr.Len())
	}
	if !h.mgr.CanRedo() || h.mgr.CanUndo() {
		t.Fatalf("unexpected can-undo/redo state")
	}
	label, ok = h.mgr.Redo()
	if !ok || label != "add sign" {
		t.Fatalf("redo = %q %v", label, ok)
	}
	if _, ok := h.mgr.Redo(); ok {
		t.Fatalf("redo at the newest entry must fail")
	}
	if h.mgr.Busy() {
		t.Fatalf("guard should be released")
	}
}

func TestCaptureAfterUndoPrunesRedoBranch(t *testing.T) {
	h := newHost(t, 10)
	for i := 0; i < 3; i++ {
		h.state = map[string]any{"n": i}
		h.mgr.Capture(fmt.Sprintf("n=%d", i))
	}
	h.mgr.Undo()
	h.mgr.Undo()
	h.state = map[string]any{"n": "branch"}
	if ok, _ := h.mgr.Capture("branch"); !ok {
		t.Fatalf("capture should append")
	}
	if diff := cmp.Diff([]string{"n=0", "branch"}, h.mgr.Labels()); diff != "" {
		t.Fatalf("labels mismatch (-want +got):\n%s", diff)
	}
	if h.mgr.CanRedo() {
		t.Fatalf("redo branch should be pruned")
	}
}

func TestFailedRestoreKeepsIndex(t *testing.T) {
	h := newHost(t, 10)
	h.state = map[string]any{"n": 0}
	h.mgr.Capture("a")
	h.state = map[string]any{"n": 1}
	h.mgr.Capture("b")
	h.failNext = true
	if _, ok := h.mgr.Undo(); ok {
		t.Fatalf("undo should report failure")
	}
	if h.mgr.Index() != 1 {
		t.Fatalf("index = %d, want 1", h.mgr.Index())
	}
}

func TestCaptureErrorReleasesGuard(t *testing.T) {
	mgr, err := New(
		func() (int, error) { return 0, errors.New("no state") },
		func(int) error { return nil },
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := mgr.Capture("x"); err == nil {
		t.Fatalf("expected capture error")
	}
	if mgr.Busy() {
		t.Fatalf("guard must be released after an error")
	}
	mgr.Clear()
	if mgr.Index() != -1 || mgr.Len() != 0 {
		t.Fatalf("clear should reset history")
	}
}
