package events

import (
	"sync"

	"caredesk-server/internal/chat"
)

// EventType enumerates the typed topics carried by the bus.
type EventType string

const (
	// EventMessageUpserted carries a single created or mutated message.
	EventMessageUpserted EventType = "message.upserted"
	// EventConversationRefreshed carries the full merged list after an
	// authoritative event batch was folded in.
	EventConversationRefreshed EventType = "conversation.refreshed"
)

// Event is a typed bus payload scoped to one conversation.
type Event struct {
	Type           EventType      `json:"type"`
	ConversationID string         `json:"conversationId"`
	Message        *chat.Message  `json:"message,omitempty"`
	Messages       []chat.Message `json:"messages,omitempty"`
}

// Bus is an in-process pub-sub bus with per-conversation topics. It replaces
// the loosely-typed cache-key signaling the frontend used: subscribers get
// typed events for exactly the conversation they asked for. Delivery is
// best-effort; a subscriber that stops draining loses events rather than
// blocking publishers.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan Event // conversationID -> subscriber id -> channel
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]chan Event)}
}

// Subscribe registers interest in one conversation. The returned cancel
// function must be called to release the subscription; the channel is closed
// by cancel.
func (b *Bus) Subscribe(conversationID string, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	topic := b.subs[conversationID]
	if topic == nil {
		topic = make(map[int]chan Event)
		b.subs[conversationID] = topic
	}
	topic[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if topic, ok := b.subs[conversationID]; ok {
			if sub, ok := topic[id]; ok {
				delete(topic, id)
				close(sub)
			}
			if len(topic) == 0 {
				delete(b.subs, conversationID)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber of its conversation. Slow
// subscribers with a full buffer are skipped.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	for _, ch := range b.subs[ev.ConversationID] {
		select {
		case ch <- ev:
		default:
		}
	}
	b.mu.RUnlock()
}

// MessageUpserted implements chat.Notifier.
func (b *Bus) MessageUpserted(conversationID string, m chat.Message) {
	b.Publish(Event{Type: EventMessageUpserted, ConversationID: conversationID, Message: &m})
}

// ConversationRefreshed implements chat.Notifier.
func (b *Bus) ConversationRefreshed(conversationID string, msgs []chat.Message) {
	b.Publish(Event{Type: EventConversationRefreshed, ConversationID: conversationID, Messages: msgs})
}
