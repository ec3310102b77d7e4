package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

// recordingSave captures persisted snapshots and optionally blocks or fails.
type recordingSave struct {
	mu    sync.Mutex
	calls []Snapshot
	ids   []string
	err   error
	block chan struct{} // when non-nil, save waits for a signal
}

func (r *recordingSave) fn(ctx context.Context, recordID string, snap Snapshot) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, snap)
	r.ids = append(r.ids, recordID)
	return r.err
}

func (r *recordingSave) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *recordingSave) last() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1]
}

func elems(s string) json.RawMessage { return json.RawMessage(s) }

func isSaving(a *AutoSave) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saving
}

func TestLoadStates(t *testing.T) {
	a := NewAutoSave(time.Hour, (&recordingSave{}).fn, nil)
	if a.State() != LoadStateNotLoaded {
		t.Fatalf("initial state = %v, want not_loaded", a.State())
	}

	a.Load("rec-1", nil)
	if a.State() != LoadStateEmpty {
		t.Errorf("after Load(nil) state = %v, want empty", a.State())
	}

	a.Load("rec-2", &Snapshot{Elements: elems(`[{"id":"e1"}]`)})
	if a.State() != LoadStateLoaded {
		t.Errorf("after Load(snap) state = %v, want loaded", a.State())
	}
	if string(a.Current().Elements) != `[{"id":"e1"}]` {
		t.Errorf("Current() lost the loaded elements")
	}
}

func TestChangesBeforeReadyAreIgnored(t *testing.T) {
	save := &recordingSave{}
	a := NewAutoSave(10*time.Millisecond, save.fn, nil)
	a.Load("rec-1", nil)

	// the surface emits a spurious clear during initialization
	a.RecordChange(Snapshot{Elements: elems(`[]`)})
	if a.HasUnsavedChanges() {
		t.Fatal("pre-ready change must not mark unsaved")
	}

	a.Ready()
	a.RecordChange(Snapshot{Elements: elems(`[{"id":"e1"}]`)})
	if !a.HasUnsavedChanges() {
		t.Fatal("post-ready change must mark unsaved")
	}
}

func TestChangesBeforeLoadAreIgnored(t *testing.T) {
	a := NewAutoSave(time.Hour, (&recordingSave{}).fn, nil)
	a.Ready()
	a.RecordChange(Snapshot{Elements: elems(`[{"id":"e1"}]`)})
	if a.HasUnsavedChanges() {
		t.Fatal("change with no record loaded must be dropped")
	}
}

func TestDebouncePersistsOnlyLastSnapshot(t *testing.T) {
	save := &recordingSave{}
	a := NewAutoSave(30*time.Millisecond, save.fn, nil)
	defer a.Close()
	a.Load("rec-1", nil)
	a.Ready()

	a.RecordChange(Snapshot{Elements: elems(`[{"id":"e1"}]`)})
	a.RecordChange(Snapshot{Elements: elems(`[{"id":"e1"},{"id":"e2"}]`)})
	a.RecordChange(Snapshot{Elements: elems(`[{"id":"e1"},{"id":"e2"},{"id":"e3"}]`)})

	deadline := time.Now().Add(2 * time.Second)
	for save.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := save.count(); got != 1 {
		t.Fatalf("save calls = %d, want 1", got)
	}
	if string(save.last().Elements) != `[{"id":"e1"},{"id":"e2"},{"id":"e3"}]` {
		t.Errorf("persisted snapshot is not the last one: %s", save.last().Elements)
	}
	if a.HasUnsavedChanges() {
		t.Error("unsaved flag not cleared after a successful save")
	}
}

func TestEmptyBecomesLoadedOnFirstChange(t *testing.T) {
	a := NewAutoSave(time.Hour, (&recordingSave{}).fn, nil)
	defer a.Close()
	a.Load("rec-1", nil)
	a.Ready()
	a.RecordChange(Snapshot{Elements: elems(`[{"id":"e1"}]`)})
	if a.State() != LoadStateLoaded {
		t.Errorf("state = %v, want loaded", a.State())
	}
}

func TestFlushPersistsImmediately(t *testing.T) {
	save := &recordingSave{}
	a := NewAutoSave(time.Hour, save.fn, nil)
	defer a.Close()
	a.Load("rec-1", nil)
	a.Ready()
	a.RecordChange(Snapshot{Elements: elems(`[{"id":"e1"}]`)})

	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if save.count() != 1 {
		t.Fatalf("save calls = %d, want 1", save.count())
	}
	if a.HasUnsavedChanges() {
		t.Error("unsaved flag not cleared")
	}

	// nothing pending: flush is a no-op
	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("idle Flush failed: %v", err)
	}
	if save.count() != 1 {
		t.Error("idle flush must not persist again")
	}
}

func TestFailedSaveKeepsUnsavedFlag(t *testing.T) {
	save := &recordingSave{err: errors.New("db down")}
	a := NewAutoSave(time.Hour, save.fn, nil)
	defer a.Close()
	a.Load("rec-1", nil)
	a.Ready()
	a.RecordChange(Snapshot{Elements: elems(`[{"id":"e1"}]`)})

	if err := a.Flush(context.Background()); err == nil {
		t.Fatal("expected the save error")
	}
	if !a.HasUnsavedChanges() {
		t.Fatal("failed save must keep the unsaved flag set")
	}

	// the retry succeeds and clears the flag
	save.err = nil
	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if a.HasUnsavedChanges() {
		t.Error("flag still set after a successful retry")
	}
}

func TestFlushCoalescesWhileSaving(t *testing.T) {
	save := &recordingSave{block: make(chan struct{})}
	a := NewAutoSave(time.Hour, save.fn, nil)
	defer a.Close()
	a.Load("rec-1", nil)
	a.Ready()
	a.RecordChange(Snapshot{Elements: elems(`[{"id":"e1"}]`)})

	done := make(chan error, 1)
	go func() { done <- a.Flush(context.Background()) }()

	// wait until the first save is in flight
	deadline := time.Now().Add(2 * time.Second)
	for !isSaving(a) && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	a.RecordChange(Snapshot{Elements: elems(`[{"id":"e1"},{"id":"e2"}]`)})
	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("coalesced Flush failed: %v", err)
	}

	close(save.block)
	if err := <-done; err != nil {
		t.Fatalf("first Flush failed: %v", err)
	}

	// the outstanding save loops once more and persists the newer snapshot
	deadline = time.Now().Add(2 * time.Second)
	for save.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if save.count() != 2 {
		t.Fatalf("save calls = %d, want 2", save.count())
	}
	if string(save.last().Elements) != `[{"id":"e1"},{"id":"e2"}]` {
		t.Errorf("second save did not pick up the newer snapshot: %s", save.last().Elements)
	}
}

func TestLoadResetsReadyGate(t *testing.T) {
	save := &recordingSave{}
	a := NewAutoSave(time.Hour, save.fn, nil)
	defer a.Close()
	a.Load("rec-1", nil)
	a.Ready()
	a.RecordChange(Snapshot{Elements: elems(`[{"id":"e1"}]`)})

	a.Load("rec-2", nil)
	if a.HasUnsavedChanges() {
		t.Error("Load must discard pending state")
	}
	a.RecordChange(Snapshot{Elements: elems(`[{"id":"e2"}]`)})
	if a.HasUnsavedChanges() {
		t.Error("the gate must close again after a record switch")
	}
}

func TestSanitizedStripsCollaborators(t *testing.T) {
	snap := Snapshot{AppState: map[string]any{
		"zoom":          1.5,
		"collaborators": map[string]any{"u1": true},
	}}
	clean := snap.Sanitized()
	if _, ok := clean.AppState["collaborators"]; ok {
		t.Error("collaborators survived sanitization")
	}
	if clean.AppState["zoom"] != 1.5 {
		t.Error("unrelated app state dropped")
	}
	// the original is untouched
	if _, ok := snap.AppState["collaborators"]; !ok {
		t.Error("Sanitized mutated its receiver")
	}
}

func TestSanitizedSavedNotRawAppState(t *testing.T) {
	save := &recordingSave{}
	a := NewAutoSave(time.Hour, save.fn, nil)
	defer a.Close()
	a.Load("rec-1", nil)
	a.Ready()
	a.RecordChange(Snapshot{
		Elements: elems(`[]`),
		AppState: map[string]any{"collaborators": map[string]any{}},
	})
	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if _, ok := save.last().AppState["collaborators"]; ok {
		t.Error("persisted snapshot was not sanitized")
	}
}
