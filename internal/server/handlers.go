package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/impacttracker/esgrag/internal/auth"
	"github.com/impacttracker/esgrag/internal/llm"
	"github.com/impacttracker/esgrag/internal/memory"
	"github.com/impacttracker/esgrag/internal/service"
	"github.com/impacttracker/esgrag/internal/vectorstore"
)

// ChatPipeline is the part of the chat service the handler needs
type ChatPipeline interface {
	Ask(ctx context.Context, userQuery string, history []llm.Message) (*service.ChatResult, error)
}

// chatRequest is the POST /api/chat request body. History is optional; on
// the session route the server manages history keyed by the bearer token's
// session instead.
type chatRequest struct {
	Message string        `json:"message"`
	History []chatMessage `json:"history,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the POST /api/chat response body
type chatResponse struct {
	Answer          string                `json:"answer"`
	Sources         []string              `json:"sources"`
	QuestionType    string                `json:"question_type"`
	CitationSummary string                `json:"citation_summary,omitempty"`
	Verification    *service.Verification `json:"verification,omitempty"`
}

// ChatHandler serves the conversational endpoints
type ChatHandler struct {
	pipeline ChatPipeline
	memory   *memory.Store
	store    vectorstore.VectorStore
	logger   *slog.Logger

	collection string
}

// NewChatHandler creates a ChatHandler. The memory store backs server-side
// sessions; the vector store is only used by the readiness probe.
func NewChatHandler(pipeline ChatPipeline, mem *memory.Store, store vectorstore.VectorStore, collection string, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{
		pipeline:   pipeline,
		memory:     mem,
		store:      store,
		logger:     logger,
		collection: collection,
	}
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, _ := auth.SessionFromContext(r.Context())
	history := h.resolveHistory(session, &req)

	result, err := h.pipeline.Ask(r.Context(), req.Message, history)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, "message is empty")
			return
		}
		h.logger.Error("chat pipeline failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if h.memory != nil && session != nil {
		h.memory.AddUserTurn(session.ID.String(), req.Message)
		h.memory.AddAssistantTurn(session.ID.String(), result.Answer)
	}

	sources := result.Sources
	if sources == nil {
		sources = []string{}
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Answer:          result.Answer,
		Sources:         sources,
		QuestionType:    string(result.QuestionType),
		CitationSummary: result.CitationSummary,
		Verification:    result.Verification,
	})
}

// resolveHistory prefers server-side session history over client-sent turns.
// The session comes from the validated bearer token, never the request body.
func (h *ChatHandler) resolveHistory(session *auth.SessionInfo, req *chatRequest) []llm.Message {
	if h.memory != nil && session != nil {
		return h.memory.Recent(session.ID.String(), memory.DefaultMaxTurns)
	}

	history := make([]llm.Message, 0, len(req.History))
	for _, m := range req.History {
		role := m.Role
		if role != llm.RoleUser && role != llm.RoleAssistant {
			continue
		}
		history = append(history, llm.Message{Role: role, Content: m.Content})
	}
	return history
}

// CreateSession handles POST /api/session: issues a session ID and token
func (h *ChatHandler) CreateSession(manager *auth.JWTManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Channel string `json:"channel"`
		}
		// Body is optional
		_ = json.NewDecoder(r.Body).Decode(&req)

		sessionID := uuid.New()
		token, err := manager.GenerateToken(sessionID, req.Channel)
		if err != nil {
			h.logger.Error("session token generation failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"session_id": sessionID.String(),
			"token":      token,
		})
	}
}

// Readiness handles GET /readyz: verifies the index is reachable
func (h *ChatHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
		return
	}

	count, err := h.store.Count(r.Context(), h.collection)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"chunks": count,
	})
}
