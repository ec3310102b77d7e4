package models

import (
	"time"
)

// ChatContact represents a WhatsApp contact a tenant has a conversation with.
// Contacts are usually mirrored from the gateway; the phone number is the
// correlation key used to resolve incoming events to a conversation.
type ChatContact struct {
	TenantModel
	Name          string     `gorm:"size:150" json:"name"`
	PhoneNumber   string     `gorm:"size:20;index;not null" json:"phoneNumber"`
	GatewayID     string     `gorm:"size:64;index" json:"gatewayId,omitempty"` // contact id on the gateway side
	PatientID     string     `gorm:"size:36;index" json:"patientId,omitempty"` // set once a contact is linked to a patient
	LeadID        string     `gorm:"size:36;index" json:"leadId,omitempty"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`

	// Relations
	Patient Patient `gorm:"foreignKey:PatientID" json:"-"`
	Lead    Lead    `gorm:"foreignKey:LeadID" json:"-"`
}
