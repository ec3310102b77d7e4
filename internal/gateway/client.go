package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"caredesk-server/internal/chat"
	"caredesk-server/internal/config"
)

// ErrContactNotFound is returned when a phone number resolves to no chat
// contact on the gateway. Callers fall back to the legacy message-fetch path.
var ErrContactNotFound = errors.New("gateway: contact not found")

// Client talks to the WhatsApp Business gateway. Outbound sends go through a
// shared rate limiter so bulk traffic (campaigns) cannot starve interactive
// sends of gateway quota.
type Client struct {
	baseURL string
	token   string
	tenant  string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient builds a gateway client from configuration.
func NewClient(cfg config.GatewayConfig, sendRatePerSec int) *Client {
	if sendRatePerSec <= 0 {
		sendRatePerSec = 20
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.APIToken,
		tenant:  cfg.TenantKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(sendRatePerSec), sendRatePerSec),
	}
}

// Ensure the client satisfies the tracker's outbound contract.
var _ chat.Sender = (*Client)(nil)

// Contact is the gateway's view of a chat contact.
type Contact struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
	Timestamp string `json:"timestamp"`
}

// SendText sends a plain text message. The client token travels with the
// request so gateway events can echo it back for exact reconciliation.
func (c *Client) SendText(ctx context.Context, to, text, clientToken string) (chat.SendResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return chat.SendResult{}, err
	}
	body := map[string]string{"to": to, "text": text}
	if clientToken != "" {
		body["client_token"] = clientToken
	}
	var out sendResponse
	if err := c.post(ctx, "/api/send", body, &out); err != nil {
		return chat.SendResult{}, err
	}
	return chat.SendResult{MessageID: out.MessageID, Timestamp: chat.NormalizeTimestamp(out.Timestamp)}, nil
}

// SendMedia sends a media message for a gateway contact.
func (c *Client) SendMedia(ctx context.Context, contactID string, upload chat.MediaUpload) (chat.SendResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return chat.SendResult{}, err
	}
	body := map[string]string{
		"contact_id": contactID,
		"media_type": string(upload.Type),
		"url":        upload.URL,
	}
	if upload.Caption != "" {
		body["caption"] = upload.Caption
	}
	if upload.Filename != "" {
		body["filename"] = upload.Filename
	}
	var out sendResponse
	if err := c.post(ctx, "/api/send-media", body, &out); err != nil {
		return chat.SendResult{}, err
	}
	return chat.SendResult{MessageID: out.MessageID, Timestamp: chat.NormalizeTimestamp(out.Timestamp)}, nil
}

type messagesResponse struct {
	Messages []chat.RawRecord `json:"messages"`
}

// FetchMessages returns the raw message records of a gateway contact.
func (c *Client) FetchMessages(ctx context.Context, contactID string) ([]chat.RawRecord, error) {
	var out messagesResponse
	if err := c.get(ctx, "/api/contacts/"+url.PathEscape(contactID)+"/messages", &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// FetchMessagesByPhone is the legacy message-fetch path used when a phone
// number has no resolvable chat contact.
func (c *Client) FetchMessagesByPhone(ctx context.Context, phone string) ([]chat.RawRecord, error) {
	var out messagesResponse
	if err := c.get(ctx, "/api/messages?phone="+url.QueryEscape(phone), &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// ResolveContact looks a contact up by phone number.
func (c *Client) ResolveContact(ctx context.Context, phone string) (Contact, error) {
	var out struct {
		Contacts []Contact `json:"contacts"`
	}
	if err := c.get(ctx, "/api/contacts?phone="+url.QueryEscape(phone), &out); err != nil {
		return Contact{}, err
	}
	if len(out.Contacts) == 0 {
		return Contact{}, ErrContactNotFound
	}
	return out.Contacts[0], nil
}

// MessagesForContact fetches a contact's conversation, resolving the gateway
// contact by phone when no gateway id is known and degrading to the legacy
// phone-keyed endpoint when resolution fails.
func (c *Client) MessagesForContact(ctx context.Context, gatewayID, phone string) ([]chat.RawRecord, string, error) {
	if gatewayID != "" {
		records, err := c.FetchMessages(ctx, gatewayID)
		return records, gatewayID, err
	}
	contact, err := c.ResolveContact(ctx, phone)
	if err == nil {
		records, ferr := c.FetchMessages(ctx, contact.ID)
		return records, contact.ID, ferr
	}
	if !errors.Is(err, ErrContactNotFound) {
		return nil, "", err
	}
	records, err := c.FetchMessagesByPhone(ctx, phone)
	return records, "", err
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.tenant != "" {
		req.Header.Set("X-Tenant-Key", c.tenant)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("gateway: %s %s: status %d: %s", req.Method, req.URL.Path, res.StatusCode, string(snippet))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
