package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"caredesk-server/internal/middleware"
	"caredesk-server/internal/models"
	"caredesk-server/internal/utils"
)

// AppointmentTypeHandler handles the tenant's appointment type catalog.
type AppointmentTypeHandler struct {
	DB *gorm.DB
}

// NewAppointmentTypeHandler creates a new AppointmentTypeHandler.
func NewAppointmentTypeHandler(db *gorm.DB) *AppointmentTypeHandler {
	return &AppointmentTypeHandler{DB: db}
}

// CreateAppointmentTypeRequest represents the request body for creating an
// appointment type.
type CreateAppointmentTypeRequest struct {
	Name                string  `json:"name" binding:"required"`
	Code                string  `json:"code" binding:"required"`
	Description         string  `json:"description"`
	DurationDefault     int     `json:"durationDefault" binding:"omitempty,gt=0"`
	BaseConsultationFee float64 `json:"baseConsultationFee" binding:"omitempty,gte=0"`
	Color               string  `json:"color" binding:"omitempty,hexcolor"`
}

// CreateAppointmentType handles adding a catalog entry.
func (h *AppointmentTypeHandler) CreateAppointmentType(c *gin.Context) {
	var req CreateAppointmentTypeRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	tenantID, exists := middleware.GetTenantIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Tenant not found in token")
		return
	}

	apptType := models.AppointmentType{
		TenantModel:         models.TenantModel{TenantID: tenantID},
		Name:                req.Name,
		Code:                req.Code,
		Description:         req.Description,
		DurationDefault:     req.DurationDefault,
		BaseConsultationFee: req.BaseConsultationFee,
		IsActive:            true,
		Color:               req.Color,
	}
	if apptType.DurationDefault == 0 {
		apptType.DurationDefault = 15
	}
	if apptType.Color == "" {
		apptType.Color = "#3b82f6"
	}

	if err := h.DB.Create(&apptType).Error; err != nil {
		utils.InternalServerError(c, "Failed to create appointment type: "+err.Error())
		return
	}

	utils.Created(c, "Appointment type created successfully", apptType)
}

// GetAppointmentTypes handles listing the tenant's catalog. Inactive entries
// are included only when ?all=true.
func (h *AppointmentTypeHandler) GetAppointmentTypes(c *gin.Context) {
	tenantID, exists := middleware.GetTenantIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Tenant not found in token")
		return
	}

	query := h.DB.Where("tenant_id = ?", tenantID).Order("name asc")
	if c.Query("all") != "true" {
		query = query.Where("is_active = ?", true)
	}

	var types []models.AppointmentType
	if err := query.Find(&types).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch appointment types: "+err.Error())
		return
	}

	utils.Success(c, "Appointment types fetched successfully", types)
}

// UpdateAppointmentTypeRequest represents the mutable catalog fields.
type UpdateAppointmentTypeRequest struct {
	Name                *string  `json:"name"`
	Description         *string  `json:"description"`
	DurationDefault     *int     `json:"durationDefault" binding:"omitempty,gt=0"`
	BaseConsultationFee *float64 `json:"baseConsultationFee" binding:"omitempty,gte=0"`
	IsActive            *bool    `json:"isActive"`
	Color               *string  `json:"color" binding:"omitempty,hexcolor"`
}

// UpdateAppointmentType handles catalog edits. The code is immutable once
// created; visits reference it.
func (h *AppointmentTypeHandler) UpdateAppointmentType(c *gin.Context) {
	var req UpdateAppointmentTypeRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	tenantID, exists := middleware.GetTenantIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Tenant not found in token")
		return
	}

	var apptType models.AppointmentType
	if err := h.DB.Where("id = ? AND tenant_id = ?", c.Param("id"), tenantID).First(&apptType).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment type not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if req.Name != nil {
		apptType.Name = *req.Name
	}
	if req.Description != nil {
		apptType.Description = *req.Description
	}
	if req.DurationDefault != nil {
		apptType.DurationDefault = *req.DurationDefault
	}
	if req.BaseConsultationFee != nil {
		apptType.BaseConsultationFee = *req.BaseConsultationFee
	}
	if req.IsActive != nil {
		apptType.IsActive = *req.IsActive
	}
	if req.Color != nil {
		apptType.Color = *req.Color
	}

	if err := h.DB.Save(&apptType).Error; err != nil {
		utils.InternalServerError(c, "Failed to update appointment type: "+err.Error())
		return
	}

	utils.Success(c, "Appointment type updated successfully", apptType)
}
