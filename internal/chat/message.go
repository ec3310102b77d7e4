package chat

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Direction indicates whether a message was received or sent by the tenant.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// MessageType represents the kind of message content
type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeVideo    MessageType = "video"
	MessageTypeAudio    MessageType = "audio"
	MessageTypeDocument MessageType = "document"
)

// Status represents the delivery state of a message
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
)

// Metadata keys used by the tracker and merger. Other keys are pass-through
// gateway fields (template/interactive payloads and the like).
const (
	MetaError       = "error"
	MetaClientToken = "client_token"
	MetaMediaURL    = "media_url"
	MetaCaption     = "caption"
	MetaFilename    = "filename"
)

// Message is the local view of a single conversation entry. The ID is either
// a server-confirmed identifier or a locally generated temporary token that
// the merger later replaces with its authoritative counterpart.
type Message struct {
	ID        string         `json:"id"`
	Direction Direction      `json:"direction"`
	Text      string         `json:"text"`
	Type      MessageType    `json:"type"`
	Timestamp string         `json:"timestamp"` // ISO-8601 with explicit offset or Z
	Status    Status         `json:"status,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

const tempIDPrefix = "temp_"

var tempSeq atomic.Uint64

// NewTempID returns a collision-resistant temporary message id. The monotonic
// suffix keeps ids unique even when several sends land on the same
// millisecond.
func NewTempID() string {
	return fmt.Sprintf("%s%d_%d", tempIDPrefix, time.Now().UnixMilli(), tempSeq.Add(1))
}

// IsTempID reports whether id is a locally generated temporary id.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}

// ClientToken returns the client idempotency token carried in the message
// metadata, or "" when absent.
func (m Message) ClientToken() string {
	if m.Metadata == nil {
		return ""
	}
	if v, ok := m.Metadata[MetaClientToken].(string); ok {
		return v
	}
	return ""
}
