package chat

import (
	"sync"
)

// Store owns the in-memory ordered message list for one conversation.
// Mutation goes through the tracker and the merger; readers always get a
// copy. A store is reset wholesale when its conversation is reloaded.
type Store struct {
	mu             sync.RWMutex
	conversationID string
	messages       []Message
}

// NewStore returns an empty store bound to the given conversation.
func NewStore(conversationID string) *Store {
	return &Store{conversationID: conversationID}
}

// ConversationID returns the conversation this store belongs to.
func (s *Store) ConversationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversationID
}

// Reset discards the current list and replaces it with msgs, already merged
// and ordered by the caller. Used on conversation load and reload.
func (s *Store) Reset(msgs []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = make([]Message, len(msgs))
	copy(s.messages, msgs)
}

// Snapshot returns a copy of the current ordered list.
func (s *Store) Snapshot() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Append adds a message to the end of the list.
func (s *Store) Append(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
}

// Get returns the message with the given id.
func (s *Store) Get(id string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// Update applies fn to the message with the given id, in place.
func (s *Store) Update(id string, fn func(*Message)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == id {
			fn(&s.messages[i])
			return true
		}
	}
	return false
}

// UpdateStatus transitions the message status in place.
func (s *Store) UpdateStatus(id string, st Status) bool {
	return s.Update(id, func(m *Message) { m.Status = st })
}

// ReplaceID swaps a temporary id for the server-provided one, preserving the
// message's position. Used by the media send flow, which has no independent
// event stream to confirm it.
func (s *Store) ReplaceID(oldID, newID string) bool {
	return s.Update(oldID, func(m *Message) { m.ID = newID })
}

// ApplyEvents merges an authoritative batch into the list and returns the
// merged snapshot.
func (s *Store) ApplyEvents(incoming []Message) []Message {
	s.mu.Lock()
	s.messages = Merge(s.messages, incoming)
	merged := make([]Message, len(s.messages))
	copy(merged, s.messages)
	s.mu.Unlock()
	return merged
}
