package models

import (
	"fmt"
	"strings"
	"time"
)

// MessageTemplate represents an approved WhatsApp message template.
// Body placeholders use the gateway convention {{1}}, {{2}}, ...
type MessageTemplate struct {
	TenantModel
	Name     string `gorm:"size:100;not null" json:"name"`
	Language string `gorm:"size:10;default:'en'" json:"language"`
	Body     string `gorm:"type:text;not null" json:"body"`
	IsActive bool   `gorm:"default:true" json:"isActive"`
}

// Render substitutes positional parameters into the template body.
// Missing parameters leave their placeholders in place.
func (t *MessageTemplate) Render(params []string) string {
	body := t.Body
	for i, p := range params {
		body = strings.ReplaceAll(body, fmt.Sprintf("{{%d}}", i+1), p)
	}
	return body
}

// CampaignStatus represents the lifecycle of a bulk-send campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusQueued    CampaignStatus = "queued"
	CampaignStatusSending   CampaignStatus = "sending"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusFailed    CampaignStatus = "failed"
)

// Campaign represents a bulk WhatsApp send to a list of contacts.
// Recipients are stored as a JSON array of phone numbers; delivery happens in
// a background job, never in the request path.
type Campaign struct {
	TenantModel
	Name         string         `gorm:"size:150;not null" json:"name"`
	TemplateID   string         `gorm:"size:36;index;not null" json:"templateId"`
	Params       string         `gorm:"type:text" json:"params"`     // JSON array of template parameters
	Recipients   string         `gorm:"type:text" json:"recipients"` // JSON array of phone numbers
	Status       CampaignStatus `gorm:"size:20;default:'draft';index" json:"status"`
	SentCount    int            `gorm:"default:0" json:"sentCount"`
	FailCount    int            `gorm:"default:0" json:"failCount"`
	DispatchedAt *time.Time     `json:"dispatchedAt,omitempty"`

	// Relations
	Template MessageTemplate `gorm:"foreignKey:TemplateID" json:"-"`
}
