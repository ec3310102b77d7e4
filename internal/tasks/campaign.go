package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"caredesk-server/internal/gateway"
	"caredesk-server/internal/metrics"
	"caredesk-server/internal/models"
)

// TypeCampaignSend is the queue task name for dispatching a campaign.
const TypeCampaignSend = "campaign:send"

// QueueCampaigns is the dedicated queue for bulk sends so interactive traffic
// is never stuck behind them.
const QueueCampaigns = "campaigns"

// CampaignSendPayload is the JSON payload transported via the queue. Kept to
// the campaign id only; the worker reloads the row so retries see current
// state.
type CampaignSendPayload struct {
	CampaignID string `json:"campaignId"`
}

// NewCampaignSendTask builds the enqueueable task for a campaign.
func NewCampaignSendTask(campaignID string) (*asynq.Task, error) {
	payload, err := json.Marshal(CampaignSendPayload{CampaignID: campaignID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCampaignSend, payload), nil
}

// CampaignProcessor executes campaign sends against the gateway.
type CampaignProcessor struct {
	DB      *gorm.DB
	Gateway *gateway.Client
}

// NewCampaignProcessor creates a new CampaignProcessor.
func NewCampaignProcessor(db *gorm.DB, gw *gateway.Client) *CampaignProcessor {
	return &CampaignProcessor{DB: db, Gateway: gw}
}

// Register binds the processor's handlers to the mux.
func (p *CampaignProcessor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeCampaignSend, p.ProcessCampaignSend)
}

// ProcessCampaignSend fans a campaign out to its recipients. Partial failures
// are counted rather than aborting the run; the task only errors (and
// retries) when the campaign cannot be processed at all.
func (p *CampaignProcessor) ProcessCampaignSend(ctx context.Context, t *asynq.Task) error {
	var payload CampaignSendPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		// malformed payload will not improve on retry
		return fmt.Errorf("campaign: unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	var campaign models.Campaign
	if err := p.DB.WithContext(ctx).Preload("Template").First(&campaign, "id = ?", payload.CampaignID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("campaign %s not found: %w", payload.CampaignID, asynq.SkipRetry)
		}
		return err
	}
	if campaign.Status == models.CampaignStatusCompleted {
		return nil // idempotent re-delivery
	}

	var recipients []string
	if err := json.Unmarshal([]byte(campaign.Recipients), &recipients); err != nil {
		return fmt.Errorf("campaign %s: bad recipients: %v: %w", campaign.ID, err, asynq.SkipRetry)
	}
	var params []string
	if campaign.Params != "" {
		if err := json.Unmarshal([]byte(campaign.Params), &params); err != nil {
			return fmt.Errorf("campaign %s: bad params: %v: %w", campaign.ID, err, asynq.SkipRetry)
		}
	}

	body := campaign.Template.Render(params)
	now := time.Now()
	campaign.Status = models.CampaignStatusSending
	campaign.DispatchedAt = &now
	if err := p.DB.WithContext(ctx).Save(&campaign).Error; err != nil {
		return err
	}

	sent, failed := 0, 0
	for _, phone := range recipients {
		if _, err := p.Gateway.SendText(ctx, phone, body, uuid.NewString()); err != nil {
			log.Printf("campaign %s: send to %s failed: %v", campaign.ID, phone, err)
			failed++
			continue
		}
		metrics.CampaignSends.Inc()
		sent++
	}

	campaign.SentCount = sent
	campaign.FailCount = failed
	if sent == 0 && failed > 0 {
		campaign.Status = models.CampaignStatusFailed
	} else {
		campaign.Status = models.CampaignStatusCompleted
	}
	return p.DB.WithContext(ctx).Save(&campaign).Error
}
