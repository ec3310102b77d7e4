package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"caredesk-server/internal/middleware"
	"caredesk-server/internal/models"
	"caredesk-server/internal/utils"
)

// PatientHandler handles patient and visit related requests.
type PatientHandler struct {
	DB *gorm.DB
}

// NewPatientHandler creates a new PatientHandler.
func NewPatientHandler(db *gorm.DB) *PatientHandler {
	return &PatientHandler{DB: db}
}

// CreatePatientRequest represents the request body for registering a patient.
type CreatePatientRequest struct {
	FirstName   string `json:"firstName" binding:"required"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Email       string `json:"email"`
	Gender      string `json:"gender"`
	Address     string `json:"address"`
	MRN         string `json:"mrn"`
}

// CreatePatient handles registering a new patient.
func (h *PatientHandler) CreatePatient(c *gin.Context) {
	var req CreatePatientRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	tenantID, exists := middleware.GetTenantIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Tenant not found in token")
		return
	}

	patient := models.Patient{
		TenantModel: models.TenantModel{TenantID: tenantID},
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Gender:      req.Gender,
		Address:     req.Address,
		MRN:         req.MRN,
	}
	if err := h.DB.Create(&patient).Error; err != nil {
		utils.InternalServerError(c, "Failed to create patient: "+err.Error())
		return
	}

	utils.Created(c, "Patient registered successfully", patient)
}

// GetPatients handles listing the tenant's patients, optionally filtered by
// phone number.
func (h *PatientHandler) GetPatients(c *gin.Context) {
	tenantID, exists := middleware.GetTenantIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Tenant not found in token")
		return
	}

	query := h.DB.Where("tenant_id = ?", tenantID).Order("created_at desc")
	if phone := c.Query("phone"); phone != "" {
		query = query.Where("phone_number = ?", phone)
	}

	var patients []models.Patient
	if err := query.Limit(200).Find(&patients).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch patients: "+err.Error())
		return
	}

	utils.Success(c, "Patients fetched successfully", patients)
}

// GetPatientByID handles fetching a single patient.
func (h *PatientHandler) GetPatientByID(c *gin.Context) {
	tenantID, exists := middleware.GetTenantIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Tenant not found in token")
		return
	}

	var patient models.Patient
	if err := h.DB.Where("id = ? AND tenant_id = ?", c.Param("id"), tenantID).First(&patient).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "Patient fetched successfully", patient)
}

// CreateVisitRequest represents the request body for opening a visit.
type CreateVisitRequest struct {
	PatientID         string `json:"patientId" binding:"required,uuid"`
	DoctorID          string `json:"doctorId"`
	AppointmentTypeID string `json:"appointmentTypeId"`
	Type              string `json:"type" binding:"omitempty,oneof=opd ipd"`
	Reason            string `json:"reason"`
	Notes             string `json:"notes"`
}

// CreateVisit handles opening a new OPD/IPD visit for a patient. The
// consultation fee defaults from the appointment type when one is given.
func (h *PatientHandler) CreateVisit(c *gin.Context) {
	var req CreateVisitRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	tenantID, exists := middleware.GetTenantIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Tenant not found in token")
		return
	}

	var patient models.Patient
	if err := h.DB.Where("id = ? AND tenant_id = ?", req.PatientID, tenantID).First(&patient).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Patient not found")
		} else {
			utils.InternalServerError(c, "Database error verifying patient: "+err.Error())
		}
		return
	}

	visitType := models.VisitTypeOPD
	if req.Type == string(models.VisitTypeIPD) {
		visitType = models.VisitTypeIPD
	}
	status := models.VisitStatusWaiting
	if visitType == models.VisitTypeIPD {
		status = models.VisitStatusAdmitted
	}

	visit := models.Visit{
		TenantModel:       models.TenantModel{TenantID: tenantID},
		PatientID:         req.PatientID,
		DoctorID:          req.DoctorID,
		AppointmentTypeID: req.AppointmentTypeID,
		Type:              visitType,
		Status:            status,
		VisitDate:         time.Now(),
		Reason:            req.Reason,
		Notes:             req.Notes,
	}

	if req.AppointmentTypeID != "" {
		var apptType models.AppointmentType
		if err := h.DB.Where("id = ? AND tenant_id = ? AND is_active = ?", req.AppointmentTypeID, tenantID, true).
			First(&apptType).Error; err != nil {
			utils.BadRequest(c, "Appointment type not found or inactive")
			return
		}
		visit.ConsultationFee = apptType.BaseConsultationFee
	}

	if err := h.DB.Create(&visit).Error; err != nil {
		utils.InternalServerError(c, "Failed to create visit: "+err.Error())
		return
	}

	utils.Created(c, "Visit created successfully", visit)
}

// GetVisits handles listing visits, filtered by patient, status, or type.
func (h *PatientHandler) GetVisits(c *gin.Context) {
	tenantID, exists := middleware.GetTenantIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Tenant not found in token")
		return
	}

	query := h.DB.Where("tenant_id = ?", tenantID).Order("visit_date desc")
	if patientID := c.Query("patientId"); patientID != "" {
		query = query.Where("patient_id = ?", patientID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if visitType := c.Query("type"); visitType != "" {
		query = query.Where("type = ?", visitType)
	}

	var visits []models.Visit
	if err := query.Limit(200).Find(&visits).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch visits: "+err.Error())
		return
	}

	utils.Success(c, "Visits fetched successfully", visits)
}

// UpdateVisitStatusRequest represents the status transition request.
type UpdateVisitStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=waiting in_consultation completed admitted discharged cancelled"`
}

// UpdateVisitStatus handles moving a visit through the queue. Illegal
// transitions are rejected.
func (h *PatientHandler) UpdateVisitStatus(c *gin.Context) {
	var req UpdateVisitStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	tenantID, exists := middleware.GetTenantIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Tenant not found in token")
		return
	}

	var visit models.Visit
	if err := h.DB.Where("id = ? AND tenant_id = ?", c.Param("id"), tenantID).First(&visit).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Visit not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	next := models.VisitStatus(req.Status)
	if !visit.AllowedTransition(next) {
		utils.BadRequest(c, "Cannot transition visit from "+string(visit.Status)+" to "+string(next))
		return
	}

	visit.Status = next
	if err := h.DB.Save(&visit).Error; err != nil {
		utils.InternalServerError(c, "Failed to update visit status: "+err.Error())
		return
	}

	utils.Success(c, "Visit status updated successfully", visit)
}
