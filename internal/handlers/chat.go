package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"caredesk-server/internal/cache"
	"caredesk-server/internal/chat"
	"caredesk-server/internal/events"
	"caredesk-server/internal/gateway"
	"caredesk-server/internal/middleware"
	"caredesk-server/internal/models"
	"caredesk-server/internal/utils"
)

// ChatHandler handles WhatsApp conversation requests: optimistic sends,
// conversation views, the gateway event webhook, and the websocket feed.
type ChatHandler struct {
	DB       *gorm.DB
	Service  *chat.Service
	Gateway  *gateway.Client
	Bus      *events.Bus
	Previews *cache.PreviewCache
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(db *gorm.DB, svc *chat.Service, gw *gateway.Client, bus *events.Bus, previews *cache.PreviewCache) *ChatHandler {
	return &ChatHandler{DB: db, Service: svc, Gateway: gw, Bus: bus, Previews: previews}
}

// SendMessageRequest represents the request body for sending a text message.
type SendMessageRequest struct {
	ContactID string `json:"contactId" binding:"required,uuid"`
	Text      string `json:"text" binding:"required"`
}

// SendMessage handles sending a new text message to a contact. The message
// becomes visible (and is pushed to websocket subscribers) before the gateway
// acknowledges; on gateway failure the entry stays visible marked failed and
// the error is surfaced for the client toast.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	contact, ok := h.contactForTenant(c, req.ContactID)
	if !ok {
		return
	}
	h.ensureOpen(c, &contact)

	msg, err := h.Service.SendText(c.Request.Context(), contact.ID, contact.PhoneNumber, contact.GatewayID, req.Text)
	if errors.Is(err, chat.ErrEmptyMessage) {
		utils.BadRequest(c, "Message text must not be empty")
		return
	}
	if err != nil {
		// the failed entry stays in the conversation; return it with the error
		utils.ErrorWithData(c, 502, "Failed to send message: "+err.Error(), msg)
		return
	}

	h.touchContact(c, &contact)
	utils.Created(c, "Message sent successfully", msg)
}

// SendMediaRequest represents the request body for sending a media message.
type SendMediaRequest struct {
	ContactID string `json:"contactId" binding:"required,uuid"`
	MediaType string `json:"mediaType" binding:"required,oneof=image video audio document"`
	URL       string `json:"url" binding:"required,url"`
	Caption   string `json:"caption"`
	Filename  string `json:"filename"`
}

// SendMediaMessage handles sending a media message to a contact.
func (h *ChatHandler) SendMediaMessage(c *gin.Context) {
	var req SendMediaRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	contact, ok := h.contactForTenant(c, req.ContactID)
	if !ok {
		return
	}
	h.ensureOpen(c, &contact)

	upload := chat.MediaUpload{
		Type:     chat.MessageType(req.MediaType),
		URL:      req.URL,
		Caption:  req.Caption,
		Filename: req.Filename,
	}
	msg, err := h.Service.SendMedia(c.Request.Context(), contact.ID, contact.PhoneNumber, contact.GatewayID, upload)
	if err != nil {
		utils.ErrorWithData(c, 502, "Failed to send media: "+err.Error(), msg)
		return
	}

	h.touchContact(c, &contact)
	utils.Created(c, "Media sent successfully", msg)
}

// GetConversationMessages handles fetching the reconciled message list for a
// contact, loading it from the gateway on first access (with the legacy
// phone-keyed fallback when the contact cannot be resolved).
func (h *ChatHandler) GetConversationMessages(c *gin.Context) {
	contact, ok := h.contactForTenant(c, c.Param("contactId"))
	if !ok {
		return
	}

	records, gatewayID, err := h.Gateway.MessagesForContact(c.Request.Context(), contact.GatewayID, contact.PhoneNumber)
	if err != nil {
		utils.BadGateway(c, "Failed to fetch messages: "+err.Error())
		return
	}
	if gatewayID != "" && gatewayID != contact.GatewayID {
		contact.GatewayID = gatewayID
		h.DB.Model(&contact).Update("gateway_id", gatewayID)
	}

	msgs := h.Service.Open(contact.ID, contact.PhoneNumber, contact.GatewayID, records)
	utils.Success(c, "Messages fetched successfully", msgs)
}

// GetConversations handles fetching the tenant's conversation list with
// last-message previews, served from the redis cache when fresh.
func (h *ChatHandler) GetConversations(c *gin.Context) {
	tenantID, exists := middleware.GetTenantIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Tenant not found in token")
		return
	}

	if h.Previews != nil {
		if previews, ok := h.Previews.GetTenantList(c.Request.Context(), tenantID); ok {
			utils.Success(c, "Conversations fetched successfully", previews)
			return
		}
	}

	var contacts []models.ChatContact
	if err := h.DB.Where("tenant_id = ?", tenantID).
		Order("last_message_at desc").
		Limit(200).
		Find(&contacts).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch contacts: "+err.Error())
		return
	}

	previews := make([]cache.ConversationPreview, 0, len(contacts))
	for _, contact := range contacts {
		preview := cache.ConversationPreview{
			ContactID:   contact.ID,
			ContactName: contact.Name,
			PhoneNumber: contact.PhoneNumber,
		}
		if last, ok := h.Service.LastMessage(contact.ID); ok {
			preview.LastMessage = &last
			for _, m := range h.Service.Snapshot(contact.ID) {
				if m.Direction == chat.DirectionIncoming && m.Status != chat.StatusRead {
					preview.UnreadCount++
				}
			}
		}
		previews = append(previews, preview)
	}

	if h.Previews != nil {
		_ = h.Previews.SetTenantList(c.Request.Context(), tenantID, previews)
	}
	utils.Success(c, "Conversations fetched successfully", previews)
}

// GatewayEventRequest is the push payload delivered by the gateway webhook.
type GatewayEventRequest struct {
	Event     string `json:"event" binding:"required"`
	ContactID string `json:"contact_id"`
	Phone     string `json:"phone"`
	Data      struct {
		Messages []chat.RawRecord `json:"messages"`
	} `json:"data"`
}

// HandleGatewayEvent folds an asynchronous gateway event batch into the
// affected conversation and notifies websocket subscribers. Events for
// conversations without local state are acknowledged and dropped; the next
// load re-derives the view from the gateway.
func (h *ChatHandler) HandleGatewayEvent(c *gin.Context) {
	var req GatewayEventRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if req.Event != "updated" || len(req.Data.Messages) == 0 {
		utils.Success(c, "Event ignored", nil)
		return
	}

	contact, err := h.resolveEventContact(c, req)
	if err != nil {
		utils.Success(c, "Event ignored: no matching contact", nil)
		return
	}

	merged := h.Service.ApplyEvents(contact.ID, req.Data.Messages)
	h.touchContact(c, &contact)
	utils.Success(c, "Event merged", gin.H{"count": len(merged)})
}

// ServeWS upgrades to a websocket subscribed to one conversation's events.
func (h *ChatHandler) ServeWS(c *gin.Context) {
	contact, ok := h.contactForTenant(c, c.Query("contactId"))
	if !ok {
		return
	}
	if err := events.ServeWS(h.Bus, c.Writer, c.Request, contact.ID); err != nil {
		// upgrade failures have already written a response
		return
	}
}

// contactForTenant loads a contact enforcing tenant ownership.
func (h *ChatHandler) contactForTenant(c *gin.Context, contactID string) (models.ChatContact, bool) {
	tenantID, exists := middleware.GetTenantIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Tenant not found in token")
		return models.ChatContact{}, false
	}
	if contactID == "" {
		utils.BadRequest(c, "Contact ID is required")
		return models.ChatContact{}, false
	}

	var contact models.ChatContact
	if err := h.DB.Where("id = ? AND tenant_id = ?", contactID, tenantID).First(&contact).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Contact not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return models.ChatContact{}, false
	}
	return contact, true
}

// ensureOpen lazily loads conversation state so a send against a fresh
// conversation still reconciles against history.
func (h *ChatHandler) ensureOpen(c *gin.Context, contact *models.ChatContact) {
	if h.Service.IsOpen(contact.ID) {
		return
	}
	records, gatewayID, err := h.Gateway.MessagesForContact(c.Request.Context(), contact.GatewayID, contact.PhoneNumber)
	if err != nil {
		// a send can proceed without history; the merger catches up later
		records = nil
	}
	if gatewayID != "" && gatewayID != contact.GatewayID {
		contact.GatewayID = gatewayID
		h.DB.Model(contact).Update("gateway_id", gatewayID)
	}
	h.Service.Open(contact.ID, contact.PhoneNumber, contact.GatewayID, records)
}

// touchContact bumps the contact's last-message marker and drops the tenant's
// cached conversation list.
func (h *ChatHandler) touchContact(c *gin.Context, contact *models.ChatContact) {
	now := time.Now()
	contact.LastMessageAt = &now
	h.DB.Model(contact).Update("last_message_at", now)
	if h.Previews != nil {
		_ = h.Previews.InvalidateTenantList(c.Request.Context(), contact.TenantID)
	}
}

// resolveEventContact maps a gateway event to a tenant contact, preferring
// the gateway contact id and falling back to the phone number.
func (h *ChatHandler) resolveEventContact(c *gin.Context, req GatewayEventRequest) (models.ChatContact, error) {
	var contact models.ChatContact
	if req.ContactID != "" {
		if err := h.DB.Where("gateway_id = ?", req.ContactID).First(&contact).Error; err == nil {
			return contact, nil
		}
	}
	if req.Phone != "" {
		if err := h.DB.Where("phone_number = ?", req.Phone).First(&contact).Error; err == nil {
			return contact, nil
		}
	}
	return models.ChatContact{}, gorm.ErrRecordNotFound
}
