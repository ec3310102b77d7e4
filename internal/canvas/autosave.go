package canvas

import (
	"context"
	"sync"
	"time"

	"caredesk-server/internal/metrics"
)

// SaveFunc persists a sanitized snapshot keyed by clinical response id.
type SaveFunc func(ctx context.Context, recordID string, snap Snapshot) error

// AutoSave buffers drawing changes for one clinical record and persists them
// after a quiet period. Changes arriving before the surface reports ready are
// ignored (the drawing library emits a spurious clear during its own
// initialization). The debounce timer restarts on every change, so only the
// last snapshot of a burst is persisted. At most one persistence call is in
// flight at a time; a flush requested while one is outstanding is coalesced.
type AutoSave struct {
	mu         sync.Mutex
	delay      time.Duration
	save       SaveFunc
	onError    func(error)
	recordID   string
	state      LoadState
	current    Snapshot
	gen        uint64 // bumped on every change; guards the unsaved flag
	ready      bool
	hasUnsaved bool
	saving     bool
	queued     bool
	timer      *time.Timer
}

// NewAutoSave builds an auto-saver. onError receives failures of
// timer-driven saves (manual Flush returns its error directly); it may be
// nil.
func NewAutoSave(delay time.Duration, save SaveFunc, onError func(error)) *AutoSave {
	if delay <= 0 {
		delay = 3 * time.Second
	}
	return &AutoSave{delay: delay, save: save, onError: onError, state: LoadStateNotLoaded}
}

// Load replaces the buffered state wholesale for a (possibly different)
// record. A nil snapshot marks the record as empty rather than not loaded.
// The ready gate resets: the surface re-initializes after every load.
func (a *AutoSave) Load(recordID string, snap *Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopTimerLocked()
	a.recordID = recordID
	a.ready = false
	a.hasUnsaved = false
	a.queued = false
	a.gen++
	if snap == nil {
		a.state = LoadStateEmpty
		a.current = Snapshot{}
	} else {
		a.state = LoadStateLoaded
		a.current = *snap
	}
}

// Ready opens the change gate. Called once the drawing surface reports it
// finished initializing.
func (a *AutoSave) Ready() {
	a.mu.Lock()
	a.ready = true
	a.mu.Unlock()
}

// State returns the current load state.
func (a *AutoSave) State() LoadState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Current returns the buffered snapshot.
func (a *AutoSave) Current() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// HasUnsavedChanges reports whether a change is still waiting to be
// persisted. The flag survives failed saves deliberately so the UI keeps
// indicating unsynced state.
func (a *AutoSave) HasUnsavedChanges() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hasUnsaved
}

// RecordChange buffers a new snapshot and (re)starts the debounce timer.
// Changes before Ready or before a record is loaded are ignored.
func (a *AutoSave) RecordChange(snap Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.ready || a.state == LoadStateNotLoaded {
		return
	}
	a.current = snap
	if a.state == LoadStateEmpty {
		a.state = LoadStateLoaded
	}
	a.hasUnsaved = true
	a.gen++
	a.stopTimerLocked()
	a.timer = time.AfterFunc(a.delay, a.timerFlush)
}

// Flush persists the buffered state immediately, bypassing the timer. If a
// save is already in flight the request is coalesced into it and Flush
// returns nil; the outstanding save picks up the latest snapshot afterwards.
func (a *AutoSave) Flush(ctx context.Context) error {
	a.mu.Lock()
	if a.saving {
		a.queued = true
		a.mu.Unlock()
		return nil
	}
	return a.flushLocked(ctx)
}

// Close stops any pending timer. Buffered state is not persisted.
func (a *AutoSave) Close() {
	a.mu.Lock()
	a.stopTimerLocked()
	a.mu.Unlock()
}

func (a *AutoSave) timerFlush() {
	if err := a.Flush(context.Background()); err != nil && a.onError != nil {
		a.onError(err)
	}
}

// flushLocked runs the save loop. It enters holding the lock and returns
// with it released. Looping covers flushes queued while a save was in
// flight.
func (a *AutoSave) flushLocked(ctx context.Context) error {
	for {
		if !a.hasUnsaved {
			a.queued = false
			a.mu.Unlock()
			return nil
		}
		a.stopTimerLocked()
		snap := a.current.Sanitized()
		recordID := a.recordID
		gen := a.gen
		a.saving = true
		a.mu.Unlock()

		err := a.save(ctx, recordID, snap)

		a.mu.Lock()
		a.saving = false
		if err != nil {
			// flag stays set so the UI keeps showing unsynced state
			a.queued = false
			a.mu.Unlock()
			return err
		}
		metrics.CanvasAutosaves.Inc()
		if a.gen == gen {
			// changes that arrived mid-save keep the flag and their own timer
			a.hasUnsaved = false
		}
		if !a.queued {
			a.mu.Unlock()
			return nil
		}
		a.queued = false
	}
}

func (a *AutoSave) stopTimerLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}
