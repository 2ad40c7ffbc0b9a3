// Package server exposes the chat pipeline over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/gigdesk/intake/internal/chat"
	"github.com/gigdesk/intake/internal/store"
)

// ChatRequest is the inbound message envelope.
type ChatRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	Content   string `json:"content"`
}

// ChatMessage is the assistant reply inside a ChatResponse.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the outbound envelope. ProjectData echoes the latest
// finalized record stored for the session, if any.
type ChatResponse struct {
	SessionID   string         `json:"session_id"`
	Messages    ChatMessage    `json:"messages"`
	ProjectData map[string]any `json:"project_data,omitempty"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Server wires the conversation chain and the message store behind HTTP
// handlers.
type Server struct {
	chain    *chat.Chain
	messages store.Store
	log      zerolog.Logger
}

// New creates a Server.
func New(chain *chat.Chain, messages store.Store, logger zerolog.Logger) *Server {
	return &Server{chain: chain, messages: messages, log: logger}
}

// Handler returns the HTTP handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("POST /chat", s.handleChat)
	return withCORS(mux)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "service start..."})
}

// handleChat accepts one user message, runs the conversation chain and
// persists both turns plus any finalized record. Turns are stored only after
// the chain succeeds, so a failed generation leaves nothing behind.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
		return
	}
	if req.UserID == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "user_id and content are required"})
		return
	}

	ctx := r.Context()

	sessionID := req.SessionID
	if sessionID == "" {
		id, err := s.messages.CreateSession(ctx, req.UserID)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to create session")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "failed to create session"})
			return
		}
		sessionID = id
		s.chain.ResetSession(sessionID)
	}

	result, err := s.chain.ProcessMessage(ctx, sessionID, req.Content)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("failed to process message")
		status := http.StatusInternalServerError
		if errors.Is(err, chat.ErrGeneration) {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, errorResponse{Detail: "failed to process message"})
		return
	}

	if err := s.messages.AppendMessage(ctx, sessionID, string(chat.RoleUser), req.Content); err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("failed to store user message")
	}
	if err := s.messages.AppendMessage(ctx, sessionID, string(chat.RoleAssistant), result.Response); err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("failed to store assistant message")
	}

	if result.Final && result.Record != nil {
		if err := s.messages.SaveProjectRecord(ctx, sessionID, result.Record); err != nil {
			s.log.Error().Err(err).Str("session_id", sessionID).Msg("failed to store project record")
		}
	}

	record, err := s.messages.LatestProjectRecord(ctx, sessionID)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("failed to load project record")
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		SessionID:   sessionID,
		Messages:    ChatMessage{Role: string(chat.RoleAssistant), Content: result.Response},
		ProjectData: record,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// withCORS applies a permissive CORS policy.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
