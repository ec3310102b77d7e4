package models

// CanvasNote stores the drawing/annotation payload of a clinical consultation
// note, keyed by the clinical response it belongs to. Elements and AppState
// are opaque JSON produced by the embedded drawing surface; the server never
// interprets them beyond stripping non-serializable fields on save.
type CanvasNote struct {
	TenantModel
	ClinicalResponseID string `gorm:"size:36;uniqueIndex;not null" json:"clinicalResponseId"`
	VisitID            string `gorm:"size:36;index" json:"visitId,omitempty"`
	Elements           string `gorm:"type:longtext" json:"elements"` // JSON array
	AppState           string `gorm:"type:longtext" json:"appState"` // JSON object

	// Relations
	Visit Visit `gorm:"foreignKey:VisitID" json:"-"`
}
