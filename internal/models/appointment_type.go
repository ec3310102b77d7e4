package models

// AppointmentType represents a tenant-scoped catalog entry for kinds of
// medical appointments (e.g. "consultation", "follow_up"). The code is unique
// within a tenant and referenced by visits for default duration and fee.
type AppointmentType struct {
	TenantModel
	Name                string  `gorm:"size:100;not null" json:"name"`
	Code                string  `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Description         string  `gorm:"type:text" json:"description,omitempty"`
	DurationDefault     int     `gorm:"default:15" json:"durationDefault"` // minutes
	BaseConsultationFee float64 `gorm:"type:decimal(10,2);default:0" json:"baseConsultationFee"`
	IsActive            bool    `gorm:"default:true;index" json:"isActive"`
	Color               string  `gorm:"size:7;default:'#3b82f6'" json:"color"` // hex color for UI display
}
