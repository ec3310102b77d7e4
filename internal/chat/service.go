package chat

import (
	"context"
	"sync"
)

// conversation bundles the store and tracker owned by one active
// conversation.
type conversation struct {
	store   *Store
	tracker *Tracker
}

// Service manages the per-conversation stores and trackers. It is the single
// entry point the HTTP and event layers use; conversations are created on
// first access and replaced wholesale when reloaded.
type Service struct {
	mu       sync.Mutex
	sender   Sender
	notify   Notifier
	previews PreviewInvalidator
	convs    map[string]*conversation
}

// NewService builds a Service. notify and previews may be nil.
func NewService(sender Sender, notify Notifier, previews PreviewInvalidator) *Service {
	return &Service{
		sender:   sender,
		notify:   notify,
		previews: previews,
		convs:    make(map[string]*conversation),
	}
}

// Open (re)loads a conversation from an authoritative batch of raw gateway
// records, discarding any previous local state for that conversation.
func (s *Service) Open(conversationID, phone, gatewayContactID string, records []RawRecord) []Message {
	msgs := Merge(nil, FromRawRecords(records))
	conv := s.conv(conversationID, phone, gatewayContactID)
	conv.store.Reset(msgs)
	return conv.store.Snapshot()
}

// IsOpen reports whether local state exists for the conversation.
func (s *Service) IsOpen(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.convs[conversationID]
	return ok
}

// Close evicts the conversation's local state.
func (s *Service) Close(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, conversationID)
}

// Snapshot returns the current ordered message list for the conversation.
func (s *Service) Snapshot(conversationID string) []Message {
	s.mu.Lock()
	conv, ok := s.convs[conversationID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return conv.store.Snapshot()
}

// SendText sends through the conversation's tracker.
func (s *Service) SendText(ctx context.Context, conversationID, phone, gatewayContactID, text string) (Message, error) {
	conv := s.conv(conversationID, phone, gatewayContactID)
	return conv.tracker.SendText(ctx, text)
}

// SendMedia sends a media message through the conversation's tracker.
func (s *Service) SendMedia(ctx context.Context, conversationID, phone, gatewayContactID string, upload MediaUpload) (Message, error) {
	conv := s.conv(conversationID, phone, gatewayContactID)
	return conv.tracker.SendMedia(ctx, upload)
}

// ApplyEvents folds an authoritative event batch into the conversation and
// notifies subscribers with the refreshed list. Events for conversations with
// no local state are ignored; the next Open re-derives the view from the
// gateway anyway.
func (s *Service) ApplyEvents(conversationID string, records []RawRecord) []Message {
	s.mu.Lock()
	conv, ok := s.convs[conversationID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	merged := conv.store.ApplyEvents(FromRawRecords(records))
	if s.notify != nil {
		s.notify.ConversationRefreshed(conversationID, merged)
	}
	return merged
}

// LastMessage returns the newest message of the conversation, if any.
func (s *Service) LastMessage(conversationID string) (Message, bool) {
	msgs := s.Snapshot(conversationID)
	if len(msgs) == 0 {
		return Message{}, false
	}
	return msgs[len(msgs)-1], true
}

func (s *Service) conv(conversationID, phone, gatewayContactID string) *conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.convs[conversationID]; ok {
		return conv
	}
	store := NewStore(conversationID)
	conv := &conversation{
		store:   store,
		tracker: NewTracker(store, phone, gatewayContactID, s.sender, s.notify, s.previews),
	}
	s.convs[conversationID] = conv
	return conv
}
