package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"caredesk-server/internal/middleware"
	"caredesk-server/internal/models"
	"caredesk-server/internal/utils"
)

// LeadHandler handles CRM pipeline requests.
type LeadHandler struct {
	DB *gorm.DB
}

// NewLeadHandler creates a new LeadHandler.
func NewLeadHandler(db *gorm.DB) *LeadHandler {
	return &LeadHandler{DB: db}
}

// CreateLeadRequest represents the request body for creating a lead.
type CreateLeadRequest struct {
	Name         string `json:"name" binding:"required"`
	PhoneNumber  string `json:"phoneNumber" binding:"required"`
	Email        string `json:"email" binding:"omitempty,email"`
	Source       string `json:"source"`
	AssignedToID string `json:"assignedToId" binding:"omitempty,uuid"`
	Notes        string `json:"notes"`
}

// CreateLead handles adding a new lead to the pipeline.
func (h *LeadHandler) CreateLead(c *gin.Context) {
	var req CreateLeadRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	tenantID, exists := middleware.GetTenantIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Tenant not found in token")
		return
	}

	lead := models.Lead{
		TenantModel:  models.TenantModel{TenantID: tenantID},
		Name:         req.Name,
		PhoneNumber:  req.PhoneNumber,
		Email:        req.Email,
		Source:       req.Source,
		Status:       models.LeadStatusNew,
		AssignedToID: req.AssignedToID,
		Notes:        req.Notes,
	}
	if err := h.DB.Create(&lead).Error; err != nil {
		utils.InternalServerError(c, "Failed to create lead: "+err.Error())
		return
	}

	utils.Created(c, "Lead created successfully", lead)
}

// GetLeads handles listing the pipeline, filtered by status or assignee.
func (h *LeadHandler) GetLeads(c *gin.Context) {
	tenantID, exists := middleware.GetTenantIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Tenant not found in token")
		return
	}

	query := h.DB.Preload("Tasks").Where("tenant_id = ?", tenantID).Order("created_at desc")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if assignee := c.Query("assignedTo"); assignee != "" {
		query = query.Where("assigned_to_id = ?", assignee)
	}

	var leads []models.Lead
	if err := query.Limit(200).Find(&leads).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch leads: "+err.Error())
		return
	}

	utils.Success(c, "Leads fetched successfully", leads)
}

// UpdateLeadStatusRequest represents the pipeline stage transition request.
type UpdateLeadStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=new contacted qualified converted lost"`
}

// UpdateLeadStatus handles moving a lead through the pipeline. Illegal
// transitions are rejected.
func (h *LeadHandler) UpdateLeadStatus(c *gin.Context) {
	var req UpdateLeadStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	tenantID, exists := middleware.GetTenantIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Tenant not found in token")
		return
	}

	var lead models.Lead
	if err := h.DB.Where("id = ? AND tenant_id = ?", c.Param("id"), tenantID).First(&lead).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Lead not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	next := models.LeadStatus(req.Status)
	if !lead.AllowedTransition(next) {
		utils.BadRequest(c, "Cannot transition lead from "+string(lead.Status)+" to "+string(next))
		return
	}

	lead.Status = next
	if err := h.DB.Save(&lead).Error; err != nil {
		utils.InternalServerError(c, "Failed to update lead status: "+err.Error())
		return
	}

	utils.Success(c, "Lead status updated successfully", lead)
}

// CreateLeadTaskRequest represents the request body for a follow-up task.
type CreateLeadTaskRequest struct {
	Title        string     `json:"title" binding:"required"`
	AssignedToID string     `json:"assignedToId" binding:"omitempty,uuid"`
	DueAt        *time.Time `json:"dueAt"`
}

// CreateLeadTask handles attaching a follow-up task to a lead.
func (h *LeadHandler) CreateLeadTask(c *gin.Context) {
	var req CreateLeadTaskRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	tenantID, exists := middleware.GetTenantIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Tenant not found in token")
		return
	}

	var lead models.Lead
	if err := h.DB.Where("id = ? AND tenant_id = ?", c.Param("id"), tenantID).First(&lead).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Lead not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	task := models.LeadTask{
		TenantModel:  models.TenantModel{TenantID: tenantID},
		LeadID:       lead.ID,
		AssignedToID: req.AssignedToID,
		Title:        req.Title,
		DueAt:        req.DueAt,
	}
	if err := h.DB.Create(&task).Error; err != nil {
		utils.InternalServerError(c, "Failed to create task: "+err.Error())
		return
	}

	utils.Created(c, "Task created successfully", task)
}

// CompleteLeadTask handles marking a follow-up task done.
func (h *LeadHandler) CompleteLeadTask(c *gin.Context) {
	tenantID, exists := middleware.GetTenantIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Tenant not found in token")
		return
	}

	var task models.LeadTask
	if err := h.DB.Where("id = ? AND tenant_id = ?", c.Param("taskId"), tenantID).First(&task).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Task not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if task.IsDone {
		utils.Success(c, "Task already completed", task)
		return
	}

	task.IsDone = true
	if err := h.DB.Save(&task).Error; err != nil {
		utils.InternalServerError(c, "Failed to update task: "+err.Error())
		return
	}

	utils.Success(c, "Task completed successfully", task)
}
