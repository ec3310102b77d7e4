package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"caredesk-server/internal/chat"
	"caredesk-server/internal/config"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(config.GatewayConfig{
		BaseURL:   srv.URL,
		APIToken:  "secret-token",
		TenantKey: "tenant-1",
	}, 100)
	return client, srv
}

func TestSendTextPayloadAndHeaders(t *testing.T) {
	var gotBody map[string]string
	var gotAuth, gotTenant string
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/send" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotTenant = r.Header.Get("X-Tenant-Key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("bad body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"message_id": "wamid.1",
			"timestamp":  "2024-01-15 10:00:00",
		})
	}))

	res, err := client.SendText(context.Background(), "+15550001", "hello", "tok-1")
	if err != nil {
		t.Fatalf("SendText failed: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotTenant != "tenant-1" {
		t.Errorf("X-Tenant-Key = %q", gotTenant)
	}
	want := map[string]string{"to": "+15550001", "text": "hello", "client_token": "tok-1"}
	for k, v := range want {
		if gotBody[k] != v {
			t.Errorf("body[%q] = %q, want %q", k, gotBody[k], v)
		}
	}
	if res.MessageID != "wamid.1" {
		t.Errorf("MessageID = %q", res.MessageID)
	}
	if res.Timestamp != "2024-01-15T10:00:00Z" {
		t.Errorf("Timestamp not normalized: %q", res.Timestamp)
	}
}

func TestSendTextErrorIncludesStatusAndSnippet(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota exceeded"}`, http.StatusTooManyRequests)
	}))

	_, err := client.SendText(context.Background(), "+15550001", "hello", "")
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := err.Error(); !strings.Contains(got, "429") || !strings.Contains(got, "quota exceeded") {
		t.Errorf("error lacks status or body snippet: %q", got)
	}
}

func TestSendMediaPayload(t *testing.T) {
	var gotBody map[string]string
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/send-media" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"message_id": "wamid.m"})
	}))

	_, err := client.SendMedia(context.Background(), "gw-1", chat.MediaUpload{
		Type: chat.MessageTypeDocument, URL: "https://cdn.example.com/r.pdf", Filename: "report.pdf",
	})
	if err != nil {
		t.Fatalf("SendMedia failed: %v", err)
	}
	if gotBody["contact_id"] != "gw-1" || gotBody["media_type"] != "document" || gotBody["filename"] != "report.pdf" {
		t.Errorf("unexpected body: %v", gotBody)
	}
	if _, ok := gotBody["caption"]; ok {
		t.Error("empty caption must be omitted")
	}
}

func TestResolveContactNotFound(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"contacts": []any{}})
	}))

	_, err := client.ResolveContact(context.Background(), "+15550001")
	if !errors.Is(err, ErrContactNotFound) {
		t.Fatalf("err = %v, want ErrContactNotFound", err)
	}
}

func TestMessagesForContactKnownGatewayID(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/contacts/gw-7/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"messages": []map[string]any{{"id": "wamid.1"}}})
	}))

	records, gatewayID, err := client.MessagesForContact(context.Background(), "gw-7", "+15550001")
	if err != nil {
		t.Fatalf("MessagesForContact failed: %v", err)
	}
	if gatewayID != "gw-7" || len(records) != 1 {
		t.Errorf("gatewayID=%q records=%d", gatewayID, len(records))
	}
}

func TestMessagesForContactResolvesByPhone(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/contacts":
			if r.URL.Query().Get("phone") != "+15550001" {
				t.Errorf("phone = %q", r.URL.Query().Get("phone"))
			}
			json.NewEncoder(w).Encode(map[string]any{"contacts": []map[string]any{
				{"id": "gw-9", "name": "Asha", "phone_number": "+15550001"},
			}})
		case "/api/contacts/gw-9/messages":
			json.NewEncoder(w).Encode(map[string]any{"messages": []map[string]any{{"id": "wamid.1"}, {"id": "wamid.2"}}})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			http.NotFound(w, r)
		}
	}))

	records, gatewayID, err := client.MessagesForContact(context.Background(), "", "+15550001")
	if err != nil {
		t.Fatalf("MessagesForContact failed: %v", err)
	}
	if gatewayID != "gw-9" {
		t.Errorf("resolved gatewayID = %q, want gw-9", gatewayID)
	}
	if len(records) != 2 {
		t.Errorf("records = %d, want 2", len(records))
	}
}

func TestMessagesForContactLegacyFallback(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/contacts":
			json.NewEncoder(w).Encode(map[string]any{"contacts": []any{}})
		case "/api/messages":
			if r.URL.Query().Get("phone") != "+15550001" {
				t.Errorf("phone = %q", r.URL.Query().Get("phone"))
			}
			json.NewEncoder(w).Encode(map[string]any{"messages": []map[string]any{{"id": "wamid.legacy"}}})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			http.NotFound(w, r)
		}
	}))

	records, gatewayID, err := client.MessagesForContact(context.Background(), "", "+15550001")
	if err != nil {
		t.Fatalf("MessagesForContact failed: %v", err)
	}
	if gatewayID != "" {
		t.Errorf("legacy path must not resolve a gateway id, got %q", gatewayID)
	}
	if len(records) != 1 {
		t.Errorf("records = %d, want 1", len(records))
	}
}
