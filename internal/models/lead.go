package models

import (
	"time"
)

// LeadStatus represents the pipeline stage of a CRM lead
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusLost      LeadStatus = "lost"
)

// Lead represents a CRM pipeline entry for a prospective patient
type Lead struct {
	TenantModel
	Name         string     `gorm:"size:150;not null" json:"name"`
	PhoneNumber  string     `gorm:"size:20;index" json:"phoneNumber"`
	Email        string     `gorm:"size:255" json:"email,omitempty"`
	Source       string     `gorm:"size:50" json:"source,omitempty"` // e.g. whatsapp, walk_in, referral
	Status       LeadStatus `gorm:"size:20;default:'new';index" json:"status"`
	AssignedToID string     `gorm:"size:36;index" json:"assignedToId,omitempty"`
	Notes        string     `gorm:"type:text" json:"notes,omitempty"`

	// Relations
	AssignedTo User       `gorm:"foreignKey:AssignedToID" json:"-"`
	Tasks      []LeadTask `gorm:"foreignKey:LeadID" json:"tasks,omitempty"`
}

// AllowedTransition reports whether a lead may move to the requested stage.
// Leads advance forward through the pipeline; lost is reachable from any
// non-terminal stage and a lost lead may be reopened as contacted.
func (l *Lead) AllowedTransition(next LeadStatus) bool {
	if next == LeadStatusLost {
		return l.Status != LeadStatusConverted && l.Status != LeadStatusLost
	}
	switch l.Status {
	case LeadStatusNew:
		return next == LeadStatusContacted
	case LeadStatusContacted:
		return next == LeadStatusQualified
	case LeadStatusQualified:
		return next == LeadStatusConverted
	case LeadStatusLost:
		return next == LeadStatusContacted
	}
	return false
}

// LeadTask represents a follow-up task attached to a lead
type LeadTask struct {
	TenantModel
	LeadID       string     `gorm:"size:36;index;not null" json:"leadId"`
	AssignedToID string     `gorm:"size:36;index" json:"assignedToId,omitempty"`
	Title        string     `gorm:"size:255;not null" json:"title"`
	DueAt        *time.Time `json:"dueAt,omitempty"`
	IsDone       bool       `gorm:"default:false" json:"isDone"`

	// Relations
	Lead       Lead `gorm:"foreignKey:LeadID" json:"-"`
	AssignedTo User `gorm:"foreignKey:AssignedToID" json:"-"`
}
