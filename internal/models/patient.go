package models

import (
	"time"
)

// Patient represents a registered patient of a tenant clinic
type Patient struct {
	TenantModel
	FirstName   string     `gorm:"size:100;not null" json:"firstName"`
	LastName    string     `gorm:"size:100" json:"lastName"`
	PhoneNumber string     `gorm:"size:20;index" json:"phoneNumber"`
	Email       string     `gorm:"size:255" json:"email,omitempty"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	Gender      string     `gorm:"size:10" json:"gender,omitempty"`
	Address     string     `gorm:"size:255" json:"address,omitempty"`
	MRN         string     `gorm:"size:30;index" json:"mrn,omitempty"` // medical record number

	// Relations
	Visits []Visit `gorm:"foreignKey:PatientID" json:"-"`
}

// VisitType distinguishes outpatient and inpatient visits
type VisitType string

const (
	VisitTypeOPD VisitType = "opd"
	VisitTypeIPD VisitType = "ipd"
)

// VisitStatus represents the state of a visit in the clinic queue
type VisitStatus string

const (
	VisitStatusWaiting        VisitStatus = "waiting"
	VisitStatusInConsultation VisitStatus = "in_consultation"
	VisitStatusCompleted      VisitStatus = "completed"
	VisitStatusAdmitted       VisitStatus = "admitted"
	VisitStatusDischarged     VisitStatus = "discharged"
	VisitStatusCancelled      VisitStatus = "cancelled"
)

// Visit represents a single OPD/IPD encounter for a patient
type Visit struct {
	TenantModel
	PatientID         string      `gorm:"size:36;index;not null" json:"patientId"`
	DoctorID          string      `gorm:"size:36;index" json:"doctorId"`
	AppointmentTypeID string      `gorm:"size:36;index" json:"appointmentTypeId,omitempty"`
	Type              VisitType   `gorm:"size:10;default:'opd'" json:"type"`
	Status            VisitStatus `gorm:"size:20;default:'waiting'" json:"status"`
	VisitDate         time.Time   `json:"visitDate"`
	Reason            string      `gorm:"size:255" json:"reason"`
	Notes             string      `gorm:"type:text" json:"notes"`
	ConsultationFee   float64     `gorm:"type:decimal(10,2);default:0" json:"consultationFee"`

	// Relations
	Patient         Patient         `gorm:"foreignKey:PatientID" json:"-"`
	Doctor          User            `gorm:"foreignKey:DoctorID" json:"-"`
	AppointmentType AppointmentType `gorm:"foreignKey:AppointmentTypeID" json:"-"`
}

// AllowedTransition reports whether a visit may move from its current status
// to the requested one. OPD visits flow waiting -> in_consultation ->
// completed; IPD visits flow admitted -> discharged. Cancellation is allowed
// from any non-terminal state.
func (v *Visit) AllowedTransition(next VisitStatus) bool {
	if next == VisitStatusCancelled {
		return v.Status != VisitStatusCompleted && v.Status != VisitStatusDischarged && v.Status != VisitStatusCancelled
	}
	switch v.Status {
	case VisitStatusWaiting:
		return next == VisitStatusInConsultation || next == VisitStatusAdmitted
	case VisitStatusInConsultation:
		return next == VisitStatusCompleted || next == VisitStatusAdmitted
	case VisitStatusAdmitted:
		return next == VisitStatusDischarged
	}
	return false
}
