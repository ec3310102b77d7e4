package canvas

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"caredesk-server/internal/models"
)

// Manager keeps one AutoSave session per clinical response id, loading prior
// content from the database on first touch. Sessions persist through the
// gorm-backed SaveFunc and are evicted explicitly when the consultation
// closes.
type Manager struct {
	mu       sync.Mutex
	delay    time.Duration
	db       *gorm.DB
	sessions map[string]*AutoSave
}

// NewManager builds a session manager saving into the given database.
func NewManager(db *gorm.DB, delay time.Duration) *Manager {
	return &Manager{delay: delay, db: db, sessions: make(map[string]*AutoSave)}
}

// Session returns the AutoSave for a clinical response, creating and loading
// it on first access. tenantID and visitID are captured for newly created
// notes.
func (m *Manager) Session(ctx context.Context, tenantID, responseID, visitID string) (*AutoSave, error) {
	m.mu.Lock()
	if s, ok := m.sessions[responseID]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	snap, found, err := m.loadNote(ctx, tenantID, responseID)
	if err != nil {
		return nil, err
	}

	s := NewAutoSave(m.delay, m.saveFunc(tenantID, visitID), func(err error) {
		log.Printf("canvas: autosave for response %s failed: %v", responseID, err)
	})
	if found {
		s.Load(responseID, &snap)
	} else {
		s.Load(responseID, nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[responseID]; ok {
		// lost the race; keep the first session
		s.Close()
		return existing, nil
	}
	m.sessions[responseID] = s
	return s, nil
}

// Evict flushes and removes a session.
func (m *Manager) Evict(ctx context.Context, responseID string) error {
	m.mu.Lock()
	s, ok := m.sessions[responseID]
	delete(m.sessions, responseID)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	defer s.Close()
	return s.Flush(ctx)
}

// loadNote reads prior canvas content. found is false when the record exists
// in no form yet (a new empty record, distinct from "not yet loaded").
func (m *Manager) loadNote(ctx context.Context, tenantID, responseID string) (Snapshot, bool, error) {
	var note models.CanvasNote
	err := m.db.WithContext(ctx).
		Where("tenant_id = ? AND clinical_response_id = ?", tenantID, responseID).
		First(&note).Error
	if err == gorm.ErrRecordNotFound {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}

	snap := Snapshot{Elements: json.RawMessage(note.Elements)}
	if note.AppState != "" {
		if err := json.Unmarshal([]byte(note.AppState), &snap.AppState); err != nil {
			// damaged app state is recoverable; elements are what matter
			snap.AppState = nil
		}
	}
	return snap, true, nil
}

// saveFunc upserts the note row keyed by clinical response id.
func (m *Manager) saveFunc(tenantID, visitID string) SaveFunc {
	return func(ctx context.Context, responseID string, snap Snapshot) error {
		appState := "{}"
		if snap.AppState != nil {
			raw, err := json.Marshal(snap.AppState)
			if err != nil {
				return err
			}
			appState = string(raw)
		}
		elements := "[]"
		if len(snap.Elements) > 0 {
			elements = string(snap.Elements)
		}

		var note models.CanvasNote
		err := m.db.WithContext(ctx).
			Where("tenant_id = ? AND clinical_response_id = ?", tenantID, responseID).
			First(&note).Error
		if err == gorm.ErrRecordNotFound {
			note = models.CanvasNote{
				TenantModel:        models.TenantModel{TenantID: tenantID},
				ClinicalResponseID: responseID,
				VisitID:            visitID,
				Elements:           elements,
				AppState:           appState,
			}
			return m.db.WithContext(ctx).Create(&note).Error
		}
		if err != nil {
			return err
		}
		note.Elements = elements
		note.AppState = appState
		return m.db.WithContext(ctx).Save(&note).Error
	}
}
