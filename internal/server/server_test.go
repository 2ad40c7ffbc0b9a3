package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gigdesk/intake/internal/chat"
	"github.com/gigdesk/intake/internal/llm"
	"github.com/gigdesk/intake/internal/schema"
	"github.com/gigdesk/intake/internal/store"
)

const recordReply = "```json\n" +
	`{"project": {"id": "p-1", "title": "Aplikasi Kasir", "slug": "aplikasi-kasir"}, "talent": {"id": "t-1", "name": "Backend Developer"}}` +
	"\n```"

func newTestServer(t *testing.T, completer llm.Completer) *Server {
	t.Helper()
	ctx := context.Background()

	st, err := store.NewSQLiteStore(ctx, ":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.InitSchema(ctx); err != nil {
		t.Fatalf("failed to initialize store schema: %v", err)
	}

	def, err := schema.Default()
	if err != nil {
		t.Fatalf("failed to load schema: %v", err)
	}

	chain := chat.NewChain(completer, st, def, chat.NewTrigger(chat.ModeConfirmation, nil), zerolog.Nop())
	return New(chain, st, zerolog.Nop())
}

func postChat(t *testing.T, handler http.Handler, req ChatRequest) (*httptest.ResponseRecorder, ChatResponse) {
	t.Helper()

	body, _ := json.Marshal(req)
	r := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	var resp ChatResponse
	if w.Code == http.StatusOK {
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
	return w, resp
}

// TestServer_NewSessionConversation tests the plain conversational path with
// implicit session creation.
func TestServer_NewSessionConversation(t *testing.T) {
	fake := llm.NewFakeCompleter("Proyek yang menarik! Ceritakan lebih detail.")
	srv := newTestServer(t, fake)
	handler := srv.Handler()

	w, resp := postChat(t, handler, ChatRequest{UserID: "user-1", Content: "saya mau bikin aplikasi kasir"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if resp.SessionID == "" {
		t.Error("expected a generated session_id")
	}
	if resp.Messages.Role != "assistant" || resp.Messages.Content != fake.Responses[0] {
		t.Errorf("unexpected reply envelope: %+v", resp.Messages)
	}
	if resp.ProjectData != nil {
		t.Errorf("expected no project_data, got %v", resp.ProjectData)
	}

	// Both turns were persisted.
	msgs, err := srv.messages.ListMessages(context.Background(), resp.SessionID)
	if err != nil {
		t.Fatalf("failed to list messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("unexpected persisted roles: %v", msgs)
	}
}

// TestServer_FinalizedRecordEcho tests that a confirmed conversation stores
// and echoes the normalized record.
func TestServer_FinalizedRecordEcho(t *testing.T) {
	fake := llm.NewFakeCompleter("Berapa budget Anda?", recordReply)
	srv := newTestServer(t, fake)
	handler := srv.Handler()

	_, first := postChat(t, handler, ChatRequest{UserID: "user-1", Content: "saya mau bikin aplikasi kasir"})
	w, resp := postChat(t, handler, ChatRequest{UserID: "user-1", SessionID: first.SessionID, Content: "ok"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	if resp.ProjectData == nil {
		t.Fatal("expected project_data in response")
	}
	talents, ok := resp.ProjectData["talents"].([]any)
	if !ok || len(talents) != 1 {
		t.Errorf("expected one-element talents array, got %v", resp.ProjectData["talents"])
	}
	if _, ok := resp.ProjectData["talent"]; ok {
		t.Error("singular talent key should be absent in stored record")
	}
}

// TestServer_GenerationFailure tests that a backend outage maps to a 502 with
// a generic detail and persists nothing.
func TestServer_GenerationFailure(t *testing.T) {
	fake := llm.NewFakeCompleter()
	fake.Err = context.DeadlineExceeded
	srv := newTestServer(t, fake)
	handler := srv.Handler()

	w, _ := postChat(t, handler, ChatRequest{UserID: "user-1", Content: "halo"})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}

	var detail errorResponse
	if err := json.NewDecoder(w.Body).Decode(&detail); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if detail.Detail != "failed to process message" {
		t.Errorf("detail = %q, raw errors must not leak to clients", detail.Detail)
	}
}

// TestServer_BadRequest tests input validation.
func TestServer_BadRequest(t *testing.T) {
	srv := newTestServer(t, llm.NewFakeCompleter("ignored"))
	handler := srv.Handler()

	w, _ := postChat(t, handler, ChatRequest{UserID: "", Content: ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	r := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for malformed body", rec.Code)
	}
}

// TestServer_CORSPreflight tests the permissive CORS policy.
func TestServer_CORSPreflight(t *testing.T) {
	srv := newTestServer(t, llm.NewFakeCompleter("ignored"))
	handler := srv.Handler()

	r := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}
