package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"caredesk-server/internal/middleware"
	"caredesk-server/internal/models"
	"caredesk-server/internal/tasks"
	"caredesk-server/internal/utils"
)

// CampaignHandler handles message templates and bulk-send campaigns.
// Dispatch only enqueues; delivery happens in the background workers.
type CampaignHandler struct {
	DB    *gorm.DB
	Queue *asynq.Client
}

// NewCampaignHandler creates a new CampaignHandler.
func NewCampaignHandler(db *gorm.DB, queue *asynq.Client) *CampaignHandler {
	return &CampaignHandler{DB: db, Queue: queue}
}

// CreateTemplateRequest represents the request body for a message template.
type CreateTemplateRequest struct {
	Name     string `json:"name" binding:"required"`
	Language string `json:"language"`
	Body     string `json:"body" binding:"required"`
}

// CreateTemplate handles registering a message template.
func (h *CampaignHandler) CreateTemplate(c *gin.Context) {
	var req CreateTemplateRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	tenantID, exists := middleware.GetTenantIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Tenant not found in token")
		return
	}

	template := models.MessageTemplate{
		TenantModel: models.TenantModel{TenantID: tenantID},
		Name:        req.Name,
		Language:    req.Language,
		Body:        req.Body,
		IsActive:    true,
	}
	if template.Language == "" {
		template.Language = "en"
	}

	if err := h.DB.Create(&template).Error; err != nil {
		utils.InternalServerError(c, "Failed to create template: "+err.Error())
		return
	}

	utils.Created(c, "Template created successfully", template)
}

// GetTemplates handles listing the tenant's active templates.
func (h *CampaignHandler) GetTemplates(c *gin.Context) {
	tenantID, exists := middleware.GetTenantIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Tenant not found in token")
		return
	}

	var templates []models.MessageTemplate
	if err := h.DB.Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("name asc").Find(&templates).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch templates: "+err.Error())
		return
	}

	utils.Success(c, "Templates fetched successfully", templates)
}

// CreateCampaignRequest represents the request body for creating a campaign.
type CreateCampaignRequest struct {
	Name       string   `json:"name" binding:"required"`
	TemplateID string   `json:"templateId" binding:"required,uuid"`
	Params     []string `json:"params"`
	Recipients []string `json:"recipients" binding:"required,min=1,dive,required"`
}

// CreateCampaign handles creating a draft campaign.
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	var req CreateCampaignRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	tenantID, exists := middleware.GetTenantIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Tenant not found in token")
		return
	}

	var template models.MessageTemplate
	if err := h.DB.Where("id = ? AND tenant_id = ? AND is_active = ?", req.TemplateID, tenantID, true).
		First(&template).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Template not found or inactive")
		} else {
			utils.InternalServerError(c, "Database error verifying template: "+err.Error())
		}
		return
	}

	recipients, err := json.Marshal(req.Recipients)
	if err != nil {
		utils.BadRequest(c, "Invalid recipients list")
		return
	}
	params, err := json.Marshal(req.Params)
	if err != nil {
		utils.BadRequest(c, "Invalid params list")
		return
	}

	campaign := models.Campaign{
		TenantModel: models.TenantModel{TenantID: tenantID},
		Name:        req.Name,
		TemplateID:  req.TemplateID,
		Params:      string(params),
		Recipients:  string(recipients),
		Status:      models.CampaignStatusDraft,
	}
	if err := h.DB.Create(&campaign).Error; err != nil {
		utils.InternalServerError(c, "Failed to create campaign: "+err.Error())
		return
	}

	utils.Created(c, "Campaign created successfully", campaign)
}

// GetCampaigns handles listing the tenant's campaigns.
func (h *CampaignHandler) GetCampaigns(c *gin.Context) {
	tenantID, exists := middleware.GetTenantIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Tenant not found in token")
		return
	}

	var campaigns []models.Campaign
	if err := h.DB.Where("tenant_id = ?", tenantID).Order("created_at desc").
		Limit(100).Find(&campaigns).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch campaigns: "+err.Error())
		return
	}

	utils.Success(c, "Campaigns fetched successfully", campaigns)
}

// DispatchCampaign handles queueing a draft campaign for background sending.
func (h *CampaignHandler) DispatchCampaign(c *gin.Context) {
	tenantID, exists := middleware.GetTenantIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Tenant not found in token")
		return
	}

	var campaign models.Campaign
	if err := h.DB.Where("id = ? AND tenant_id = ?", c.Param("id"), tenantID).First(&campaign).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Campaign not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if campaign.Status != models.CampaignStatusDraft && campaign.Status != models.CampaignStatusFailed {
		utils.BadRequest(c, "Campaign is not dispatchable in status "+string(campaign.Status))
		return
	}

	task, err := tasks.NewCampaignSendTask(campaign.ID)
	if err != nil {
		utils.InternalServerError(c, "Failed to build campaign task: "+err.Error())
		return
	}
	if _, err := h.Queue.EnqueueContext(c.Request.Context(), task,
		asynq.Queue(tasks.QueueCampaigns), asynq.MaxRetry(3)); err != nil {
		utils.InternalServerError(c, "Failed to enqueue campaign: "+err.Error())
		return
	}

	campaign.Status = models.CampaignStatusQueued
	if err := h.DB.Save(&campaign).Error; err != nil {
		utils.InternalServerError(c, "Failed to update campaign status: "+err.Error())
		return
	}

	utils.Success(c, "Campaign queued successfully", campaign)
}
