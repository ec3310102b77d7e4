package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// fakeSender records calls and returns a scripted outcome.
type fakeSender struct {
	mu     sync.Mutex
	err    error
	result SendResult
	texts  []string
	tokens []string
	// observed store length at the moment of the call, to prove the
	// optimistic entry was already visible
	visibleAtCall int
	store         *Store
}

func (f *fakeSender) SendText(ctx context.Context, to, text, clientToken string) (SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	f.tokens = append(f.tokens, clientToken)
	if f.store != nil {
		f.visibleAtCall = f.store.Len()
	}
	return f.result, f.err
}

func (f *fakeSender) SendMedia(ctx context.Context, contactID string, upload MediaUpload) (SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.err
}

type fakeNotifier struct {
	mu       sync.Mutex
	upserts  []Message
	refreshs int
}

func (f *fakeNotifier) MessageUpserted(conversationID string, m Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, m)
}

func (f *fakeNotifier) ConversationRefreshed(conversationID string, msgs []Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshs++
}

func TestSendTextOptimisticVisibility(t *testing.T) {
	store := NewStore("conv-1")
	sender := &fakeSender{store: store}
	notify := &fakeNotifier{}
	tracker := NewTracker(store, "+15550001", "gw-1", sender, notify, nil)

	msg, err := tracker.SendText(context.Background(), "hello")
	if err != nil {
		t.Fatalf("SendText failed: %v", err)
	}
	if sender.visibleAtCall != 1 {
		t.Error("message was not visible before the gateway call")
	}
	if msg.Status != StatusDelivered {
		t.Errorf("Status = %q, want delivered", msg.Status)
	}
	if !IsTempID(msg.ID) {
		t.Errorf("text send must keep its temp id until the merger promotes it, got %q", msg.ID)
	}
	if msg.ClientToken() == "" {
		t.Error("outbound message carries no client token")
	}
	if len(sender.tokens) != 1 || sender.tokens[0] != msg.ClientToken() {
		t.Error("client token not passed to the gateway")
	}
	if len(notify.upserts) < 2 {
		t.Errorf("expected pending and confirmed notifications, got %d", len(notify.upserts))
	}
}

func TestSendTextRejectsWhitespaceOnly(t *testing.T) {
	store := NewStore("conv-1")
	tracker := NewTracker(store, "+15550001", "gw-1", &fakeSender{}, nil, nil)

	for _, text := range []string{"", "   ", "\n\t "} {
		if _, err := tracker.SendText(context.Background(), text); !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("SendText(%q) err = %v, want ErrEmptyMessage", text, err)
		}
	}
	if store.Len() != 0 {
		t.Error("rejected sends must not leave entries behind")
	}
}

func TestSendTextTrimsForTransmitButKeepsOriginal(t *testing.T) {
	store := NewStore("conv-1")
	sender := &fakeSender{}
	tracker := NewTracker(store, "+15550001", "gw-1", sender, nil, nil)

	msg, err := tracker.SendText(context.Background(), "  padded  ")
	if err != nil {
		t.Fatalf("SendText failed: %v", err)
	}
	if sender.texts[0] != "padded" {
		t.Errorf("transmitted text = %q, want trimmed", sender.texts[0])
	}
	if msg.Text != "  padded  " {
		t.Errorf("local text = %q, want original", msg.Text)
	}
}

func TestSendTextFailureMarksFailedInPlace(t *testing.T) {
	store := NewStore("conv-1")
	sender := &fakeSender{err: errors.New("gateway timeout")}
	tracker := NewTracker(store, "+15550001", "gw-1", sender, nil, nil)

	msg, err := tracker.SendText(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected an error")
	}
	if store.Len() != 1 {
		t.Fatal("failed message must stay visible")
	}
	if msg.Status != StatusFailed {
		t.Errorf("Status = %q, want failed", msg.Status)
	}
	if msg.Metadata[MetaError] != "gateway timeout" {
		t.Errorf("metadata error = %v", msg.Metadata[MetaError])
	}
}

func TestSendMediaAdoptsServerID(t *testing.T) {
	store := NewStore("conv-1")
	sender := &fakeSender{result: SendResult{MessageID: "wamid.media"}}
	tracker := NewTracker(store, "+15550001", "gw-1", sender, nil, nil)

	msg, err := tracker.SendMedia(context.Background(), MediaUpload{
		Type: MessageTypeImage, URL: "https://cdn.example.com/x.jpg", Caption: "scan",
	})
	if err != nil {
		t.Fatalf("SendMedia failed: %v", err)
	}
	if msg.ID != "wamid.media" {
		t.Errorf("ID = %q, want server id", msg.ID)
	}
	if msg.Metadata[MetaMediaURL] != "https://cdn.example.com/x.jpg" {
		t.Error("media url missing from metadata")
	}
	if msg.Text != "scan" {
		t.Errorf("caption not used as text: %q", msg.Text)
	}
}

func TestSendMediaRequiresURL(t *testing.T) {
	tracker := NewTracker(NewStore("conv-1"), "+15550001", "gw-1", &fakeSender{}, nil, nil)
	if _, err := tracker.SendMedia(context.Background(), MediaUpload{Type: MessageTypeImage}); err == nil {
		t.Fatal("expected an error for a media upload without a url")
	}
}

func TestServiceOptimisticSendThenEventPromotion(t *testing.T) {
	sender := &fakeSender{}
	notify := &fakeNotifier{}
	svc := NewService(sender, notify, nil)

	svc.Open("conv-1", "+15550001", "gw-1", nil)
	msg, err := svc.SendText(context.Background(), "conv-1", "+15550001", "gw-1", "hello")
	if err != nil {
		t.Fatalf("SendText failed: %v", err)
	}

	// the gateway later pushes the authoritative record echoing the token
	merged := svc.ApplyEvents("conv-1", []RawRecord{{
		"id":                  "wamid.real",
		"message":             "hello",
		"is_incoming_message": false,
		"messaged_at":         "2024-01-15 10:00:00",
		"client_token":        msg.ClientToken(),
	}})

	if len(merged) != 1 {
		t.Fatalf("expected 1 message after promotion, got %d", len(merged))
	}
	if merged[0].ID != "wamid.real" {
		t.Errorf("temp id not promoted: %q", merged[0].ID)
	}
	if notify.refreshs != 1 {
		t.Errorf("refresh notifications = %d, want 1", notify.refreshs)
	}
}

func TestServiceApplyEventsIgnoresUnopenedConversation(t *testing.T) {
	svc := NewService(&fakeSender{}, nil, nil)
	merged := svc.ApplyEvents("nope", []RawRecord{{"id": "wamid.1", "message": "hi"}})
	if merged != nil {
		t.Errorf("expected nil for an unopened conversation, got %v", merged)
	}
	if svc.IsOpen("nope") {
		t.Error("ApplyEvents must not create conversation state")
	}
}

func TestServiceOpenReplacesState(t *testing.T) {
	svc := NewService(&fakeSender{}, nil, nil)
	svc.Open("conv-1", "+15550001", "gw-1", []RawRecord{
		{"id": "wamid.old", "message": "old", "messaged_at": "2024-01-15 09:00:00"},
	})
	msgs := svc.Open("conv-1", "+15550001", "gw-1", []RawRecord{
		{"id": "wamid.new", "message": "new", "messaged_at": "2024-01-15 10:00:00"},
	})
	if len(msgs) != 1 || msgs[0].ID != "wamid.new" {
		t.Fatalf("Open must replace state wholesale, got %v", msgIDs(msgs))
	}
}
