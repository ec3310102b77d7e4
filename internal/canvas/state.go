package canvas

import (
	"encoding/json"
)

// LoadState distinguishes the three states a canvas record can be in after a
// record switch. Collapsing them into a nullable convention causes flicker
// (rendering "empty" while still loading) or data loss (treating loaded
// content as absent), so the state is an explicit variant.
type LoadState int

const (
	// LoadStateNotLoaded means the record has not been fetched yet; render a
	// loading indicator.
	LoadStateNotLoaded LoadState = iota
	// LoadStateEmpty means the record exists but has no prior content;
	// render nothing.
	LoadStateEmpty
	// LoadStateLoaded means prior content is present; render it.
	LoadStateLoaded
)

// String returns the wire name of the state.
func (s LoadState) String() string {
	switch s {
	case LoadStateEmpty:
		return "empty"
	case LoadStateLoaded:
		return "loaded"
	default:
		return "not_loaded"
	}
}

// Snapshot is one drawing-surface state: the element list plus the view
// state. Both are opaque to the server.
type Snapshot struct {
	Elements json.RawMessage `json:"elements"`
	AppState map[string]any  `json:"appState"`
}

// Sanitized returns a copy with non-serializable surface fields stripped.
// The drawing library attaches a live collaborators map to its app state;
// persisting it is meaningless and breaks round-tripping.
func (s Snapshot) Sanitized() Snapshot {
	if s.AppState == nil {
		return s
	}
	clean := make(map[string]any, len(s.AppState))
	for k, v := range s.AppState {
		if k == "collaborators" {
			continue
		}
		clean[k] = v
	}
	s.AppState = clean
	return s
}
