package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"caredesk-server/internal/metrics"
)

// ErrEmptyMessage is returned when a send is attempted with no content.
var ErrEmptyMessage = errors.New("chat: message text is empty")

// SendResult is the gateway acknowledgement for an outbound send.
type SendResult struct {
	MessageID string
	Timestamp string
}

// MediaUpload describes an outbound media message.
type MediaUpload struct {
	Type     MessageType
	URL      string
	Caption  string
	Filename string
}

// Sender is the outbound half of the gateway the tracker depends on.
type Sender interface {
	SendText(ctx context.Context, to, text, clientToken string) (SendResult, error)
	SendMedia(ctx context.Context, contactID string, upload MediaUpload) (SendResult, error)
}

// Notifier receives message lifecycle events for fan-out to subscribers.
type Notifier interface {
	MessageUpserted(conversationID string, m Message)
	ConversationRefreshed(conversationID string, msgs []Message)
}

// PreviewInvalidator drops the cached conversation-list preview so the
// sidebar's last-message entry is rebuilt. Called only after a confirmed
// send, never for in-flight or failed ones.
type PreviewInvalidator interface {
	InvalidatePreview(ctx context.Context, conversationID string) error
}

// Tracker presents user-initiated sends as immediately visible pending
// messages and reconciles them with the network outcome. Concurrent sends are
// not serialized; each temporary entry resolves independently.
type Tracker struct {
	store    *Store
	to       string // destination phone number
	contact  string // gateway contact id, used by the media flow
	sender   Sender
	notify   Notifier
	previews PreviewInvalidator
}

// NewTracker builds a tracker for one conversation. notify and previews may
// be nil.
func NewTracker(store *Store, to, contactID string, sender Sender, notify Notifier, previews PreviewInvalidator) *Tracker {
	return &Tracker{store: store, to: to, contact: contactID, sender: sender, notify: notify, previews: previews}
}

// SendText appends an optimistic outgoing message and issues the gateway
// send. On success the message is marked delivered in place; its authoritative
// id arrives later through the event merger. On failure the message stays
// visible, marked failed with the error recorded in its metadata, and the
// error is returned so the caller can surface it.
func (t *Tracker) SendText(ctx context.Context, text string) (Message, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Message{}, ErrEmptyMessage
	}

	token := uuid.NewString()
	msg := Message{
		ID:        NewTempID(),
		Direction: DirectionOutgoing,
		Text:      text,
		Type:      MessageTypeText,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Status:    StatusSent,
		Metadata:  map[string]any{MetaClientToken: token},
	}
	t.store.Append(msg)
	t.emit(msg)

	res, err := t.sender.SendText(ctx, t.to, trimmed, token)
	if err != nil {
		return t.fail(msg.ID, err)
	}
	_ = res // id adopted later via the event merger

	t.store.UpdateStatus(msg.ID, StatusDelivered)
	t.confirmed(ctx, msg.ID)
	return t.current(msg.ID), nil
}

// SendMedia appends an optimistic media message and issues the gateway
// upload. Unlike text sends, the server-provided id is adopted directly on
// success because no independent event stream confirms media.
func (t *Tracker) SendMedia(ctx context.Context, upload MediaUpload) (Message, error) {
	if upload.URL == "" {
		return Message{}, fmt.Errorf("chat: media upload requires a url")
	}

	msg := Message{
		ID:        NewTempID(),
		Direction: DirectionOutgoing,
		Text:      upload.Caption,
		Type:      upload.Type,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Status:    StatusSent,
		Metadata: map[string]any{
			MetaClientToken: uuid.NewString(),
			MetaMediaURL:    upload.URL,
		},
	}
	if upload.Caption != "" {
		msg.Metadata[MetaCaption] = upload.Caption
	}
	if upload.Filename != "" {
		msg.Metadata[MetaFilename] = upload.Filename
	}
	t.store.Append(msg)
	t.emit(msg)

	res, err := t.sender.SendMedia(ctx, t.contact, upload)
	if err != nil {
		return t.fail(msg.ID, err)
	}

	id := msg.ID
	if res.MessageID != "" {
		t.store.ReplaceID(msg.ID, res.MessageID)
		id = res.MessageID
	}
	t.store.UpdateStatus(id, StatusDelivered)
	t.confirmed(ctx, id)
	return t.current(id), nil
}

// fail marks the message failed in place and returns the wrapped error. The
// entry stays visible so the user can see what failed.
func (t *Tracker) fail(id string, cause error) (Message, error) {
	t.store.Update(id, func(m *Message) {
		m.Status = StatusFailed
		if m.Metadata == nil {
			m.Metadata = make(map[string]any)
		}
		m.Metadata[MetaError] = cause.Error()
	})
	metrics.SendFailures.Inc()
	failed := t.current(id)
	t.emit(failed)
	return failed, fmt.Errorf("chat: send failed: %w", cause)
}

func (t *Tracker) confirmed(ctx context.Context, id string) {
	metrics.MessagesSent.Inc()
	if t.previews != nil {
		_ = t.previews.InvalidatePreview(ctx, t.store.ConversationID())
	}
	t.emit(t.current(id))
}

func (t *Tracker) current(id string) Message {
	m, _ := t.store.Get(id)
	return m
}

func (t *Tracker) emit(m Message) {
	if t.notify != nil {
		t.notify.MessageUpserted(t.store.ConversationID(), m)
	}
}
