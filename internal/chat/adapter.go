package chat

import (
	"fmt"
	"strconv"
	"time"
)

// RawRecord is a message record as returned by the gateway. Field names vary
// between gateway endpoints, so records stay untyped until FromRawRecord
// normalizes them.
type RawRecord map[string]any

// Field priority orders for the shapes observed across gateway endpoints.
var (
	idFields        = []string{"id", "message_id"}
	textFields      = []string{"message", "message_body", "text"}
	timestampFields = []string{"messaged_at", "created_at", "timestamp"}
)

// FromRawRecord converts a raw gateway record into a Message. Extraction is
// defensive: each logical field is resolved through a fixed priority chain of
// candidate names, and absence of every candidate yields a safe default
// (empty text, incoming direction, current time). It never fails.
func FromRawRecord(rec RawRecord) Message {
	msg := Message{
		ID:        firstString(rec, idFields),
		Text:      firstString(rec, textFields),
		Direction: extractDirection(rec),
		Type:      extractType(rec),
		Timestamp: NormalizeTimestamp(firstString(rec, timestampFields)),
	}
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if s, ok := stringValue(rec["status"]); ok {
		switch Status(s) {
		case StatusSent, StatusDelivered, StatusRead, StatusFailed:
			msg.Status = Status(s)
		}
	}

	// Pass-through fields the UI needs verbatim.
	for _, key := range []string{"template", "interactive", MetaMediaURL, MetaCaption, MetaFilename} {
		if v, ok := rec[key]; ok && v != nil {
			if msg.Metadata == nil {
				msg.Metadata = make(map[string]any)
			}
			msg.Metadata[key] = v
		}
	}
	if tok, ok := stringValue(rec[MetaClientToken]); ok && tok != "" {
		if msg.Metadata == nil {
			msg.Metadata = make(map[string]any)
		}
		msg.Metadata[MetaClientToken] = tok
	}
	return msg
}

// FromRawRecords converts a batch, dropping nothing: records missing every
// field still become (mostly empty) messages the merger can dedupe.
func FromRawRecords(recs []RawRecord) []Message {
	msgs := make([]Message, 0, len(recs))
	for _, rec := range recs {
		msgs = append(msgs, FromRawRecord(rec))
	}
	return msgs
}

// extractDirection prefers the is_incoming_message boolean over the direction
// string; absence of both defaults to incoming.
func extractDirection(rec RawRecord) Direction {
	switch v := rec["is_incoming_message"].(type) {
	case bool:
		if v {
			return DirectionIncoming
		}
		return DirectionOutgoing
	case float64:
		// some endpoints encode the flag as 0/1
		if v != 0 {
			return DirectionIncoming
		}
		return DirectionOutgoing
	}
	if s, ok := stringValue(rec["direction"]); ok {
		if Direction(s) == DirectionOutgoing {
			return DirectionOutgoing
		}
	}
	return DirectionIncoming
}

func extractType(rec RawRecord) MessageType {
	if s, ok := stringValue(rec["type"]); ok {
		switch MessageType(s) {
		case MessageTypeImage, MessageTypeVideo, MessageTypeAudio, MessageTypeDocument:
			return MessageType(s)
		}
	}
	return MessageTypeText
}

// firstString returns the first candidate field that resolves to a non-empty
// string.
func firstString(rec RawRecord, fields []string) string {
	for _, f := range fields {
		if s, ok := stringValue(rec[f]); ok && s != "" {
			return s
		}
	}
	return ""
}

// stringValue coerces scalar JSON values to a string. Gateways occasionally
// serialize ids as numbers.
func stringValue(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10), true
		}
		return fmt.Sprintf("%v", t), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	}
	return "", false
}
