package cache

import (
	"context"
	"encoding/json"
	"time"

	"caredesk-server/internal/chat"
)

const (
	previewKeyPrefix  = "chat:preview:"
	previewListPrefix = "chat:conversations:"
	previewTTL        = 15 * time.Minute
)

// ConversationPreview is the sidebar entry for one conversation.
type ConversationPreview struct {
	ContactID   string        `json:"contactId"`
	ContactName string        `json:"contactName"`
	PhoneNumber string        `json:"phoneNumber"`
	LastMessage *chat.Message `json:"lastMessage,omitempty"`
	UnreadCount int           `json:"unreadCount"`
}

// PreviewCache holds the conversation-list previews. It is a plain cache,
// not a signaling channel; change notification goes through the event bus.
type PreviewCache struct {
	store Store
}

// NewPreviewCache wraps a Store.
func NewPreviewCache(store Store) *PreviewCache {
	return &PreviewCache{store: store}
}

// Ensure the tracker can invalidate previews through this cache.
var _ chat.PreviewInvalidator = (*PreviewCache)(nil)

// InvalidatePreview drops the cached preview for one conversation. The
// tenant-level list is invalidated separately by the HTTP layer, which knows
// the tenant.
func (p *PreviewCache) InvalidatePreview(ctx context.Context, conversationID string) error {
	_, err := p.store.Del(ctx, previewKeyPrefix+conversationID)
	return err
}

// InvalidateTenantList drops a tenant's cached conversation list.
func (p *PreviewCache) InvalidateTenantList(ctx context.Context, tenantID string) error {
	_, err := p.store.Del(ctx, previewListPrefix+tenantID)
	return err
}

// GetTenantList returns the cached conversation list for a tenant, or
// (nil, false) on miss.
func (p *PreviewCache) GetTenantList(ctx context.Context, tenantID string) ([]ConversationPreview, bool) {
	raw, err := p.store.Get(ctx, previewListPrefix+tenantID)
	if err != nil {
		return nil, false
	}
	var previews []ConversationPreview
	if err := json.Unmarshal([]byte(raw), &previews); err != nil {
		return nil, false
	}
	return previews, true
}

// SetTenantList caches the conversation list for a tenant.
func (p *PreviewCache) SetTenantList(ctx context.Context, tenantID string, previews []ConversationPreview) error {
	raw, err := json.Marshal(previews)
	if err != nil {
		return err
	}
	return p.store.Set(ctx, previewListPrefix+tenantID, string(raw), previewTTL)
}
