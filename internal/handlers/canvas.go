package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"caredesk-server/internal/canvas"
	"caredesk-server/internal/middleware"
	"caredesk-server/internal/utils"
)

// CanvasHandler exposes the auto-saving drawing canvas attached to clinical
// responses: load state, the ready gate, change recording, and manual flush.
type CanvasHandler struct {
	DB      *gorm.DB
	Manager *canvas.Manager
}

// NewCanvasHandler creates a new CanvasHandler.
func NewCanvasHandler(db *gorm.DB, mgr *canvas.Manager) *CanvasHandler {
	return &CanvasHandler{DB: db, Manager: mgr}
}

// GetCanvasState handles fetching the buffered canvas for a clinical
// response, loading it from the database on first access.
func (h *CanvasHandler) GetCanvasState(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	snap := session.Current()
	utils.Success(c, "Canvas state fetched successfully", gin.H{
		"state":             session.State().String(),
		"elements":          rawOrNull(snap.Elements),
		"appState":          snap.AppState,
		"hasUnsavedChanges": session.HasUnsavedChanges(),
	})
}

// MarkCanvasReady opens the change gate once the drawing surface finished
// initializing. Changes posted before this call are dropped.
func (h *CanvasHandler) MarkCanvasReady(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	session.Ready()
	utils.Success(c, "Canvas marked ready", gin.H{"state": session.State().String()})
}

// RecordCanvasChangeRequest carries one drawing snapshot.
type RecordCanvasChangeRequest struct {
	Elements json.RawMessage `json:"elements" binding:"required"`
	AppState map[string]any  `json:"appState"`
}

// RecordCanvasChange buffers a new snapshot and restarts the debounce timer.
// Persistence happens after the quiet period, not in this request.
func (h *CanvasHandler) RecordCanvasChange(c *gin.Context) {
	var req RecordCanvasChangeRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	session, ok := h.session(c)
	if !ok {
		return
	}
	session.RecordChange(canvas.Snapshot{Elements: req.Elements, AppState: req.AppState})
	utils.Success(c, "Canvas change recorded", gin.H{
		"hasUnsavedChanges": session.HasUnsavedChanges(),
	})
}

// FlushCanvas persists the buffered snapshot immediately.
func (h *CanvasHandler) FlushCanvas(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if err := session.Flush(c.Request.Context()); err != nil {
		utils.InternalServerError(c, "Failed to save canvas: "+err.Error())
		return
	}
	utils.Success(c, "Canvas saved successfully", gin.H{
		"hasUnsavedChanges": session.HasUnsavedChanges(),
	})
}

// CloseCanvas flushes and evicts the session when the consultation closes.
func (h *CanvasHandler) CloseCanvas(c *gin.Context) {
	if _, exists := middleware.GetTenantIDFromContext(c); !exists {
		utils.Unauthorized(c, "Tenant not found in token")
		return
	}
	if err := h.Manager.Evict(c.Request.Context(), c.Param("responseId")); err != nil {
		utils.InternalServerError(c, "Failed to save canvas on close: "+err.Error())
		return
	}
	utils.Success(c, "Canvas session closed", nil)
}

// session resolves the AutoSave for the response id in the path, writing the
// error response on failure.
func (h *CanvasHandler) session(c *gin.Context) (*canvas.AutoSave, bool) {
	tenantID, exists := middleware.GetTenantIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Tenant not found in token")
		return nil, false
	}
	responseID := c.Param("responseId")
	if responseID == "" {
		utils.BadRequest(c, "Response ID is required")
		return nil, false
	}

	session, err := h.Manager.Session(c.Request.Context(), tenantID, responseID, c.Query("visitId"))
	if err != nil {
		utils.InternalServerError(c, "Failed to load canvas: "+err.Error())
		return nil, false
	}
	return session, true
}

func rawOrNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
