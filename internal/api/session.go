package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/oselz/docent/internal/assistant"
	"github.com/oselz/docent/internal/log"
	"github.com/oselz/docent/internal/session"
)

// sessionHandler handles session and assistant listing endpoints.
type sessionHandler struct {
	sessions   *session.Manager
	store      session.Store
	registry   *assistant.Registry
	dispatcher Dispatcher
	logger     log.Logger
}

// SessionResponse is the JSON shape of a session.
type SessionResponse struct {
	SessionID       string `json:"session_id"`
	UserID          string `json:"user_id"`
	ActiveAssistant string `json:"active_assistant,omitempty"`
	DocumentName    string `json:"document_name,omitempty"`
	DocumentChunks  int    `json:"document_chunks"`
	Turns           int    `json:"turns"`
}

// create creates a new session for the caller.
func (h *sessionHandler) create(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	sess := h.sessions.Create(userID)

	// Persistence is best effort: a storage outage must not block new
	// conversations.
	if err := h.store.CreateSession(r.Context(), sess.ID, sess.UserID); err != nil {
		h.logger.Warn("failed to persist session", "error", err, "session_id", sess.ID)
	}

	h.logger.Info("session created", "session_id", sess.ID, "user_id", userID)
	writeJSON(w, http.StatusCreated, SessionResponse{
		SessionID: sess.ID.String(),
		UserID:    sess.UserID,
	})
}

// get returns the session's current metadata.
func (h *sessionHandler) get(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r, h.sessions)
	if !ok {
		return
	}

	// Session state is only touched from the session's dispatch worker,
	// so the snapshot goes through the dispatcher too.
	var resp SessionResponse
	err := h.dispatcher.Do(r.Context(), sess.ID, func(context.Context) error {
		resp = SessionResponse{
			SessionID:       sess.ID.String(),
			UserID:          sess.UserID,
			ActiveAssistant: sess.ActiveAssistant,
			DocumentName:    sess.DocumentName,
			DocumentChunks:  indexLen(sess),
			Turns:           sess.Memory.Len(),
		}
		return nil
	})
	if err != nil {
		h.logger.Error("failed to read session state", "error", err, "session_id", sess.ID)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to read session state")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// AssistantResponse is the JSON shape of a registered assistant.
type AssistantResponse struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
}

// listAssistants returns all registered assistants in registration order.
func (h *sessionHandler) listAssistants(w http.ResponseWriter, _ *http.Request) {
	descriptors := h.registry.List()

	assistants := make([]AssistantResponse, 0, len(descriptors))
	for _, d := range descriptors {
		assistants = append(assistants, AssistantResponse{
			Name:        d.Name,
			Command:     d.Command,
			Description: d.Description,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"assistants": assistants,
		"total":      len(assistants),
	})
}

// lookupSession resolves the {id} path segment to a live session, writing
// the error response itself when the ID is malformed or unknown.
func lookupSession(w http.ResponseWriter, r *http.Request, sessions *session.Manager) (*session.Session, bool) {
	return sessionByID(w, sessions, r.PathValue("id"))
}

// sessionByID resolves a raw session ID string to a live session.
func sessionByID(w http.ResponseWriter, sessions *session.Manager, raw string) (*session.Session, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_session_id", "session id must be a UUID")
		return nil, false
	}

	sess, err := sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "session_not_found", "no such session")
		return nil, false
	}
	return sess, true
}

// indexLen reports the chunk count of the session's index, 0 when no
// document has been ingested.
func indexLen(sess *session.Session) int {
	if sess.Index == nil {
		return 0
	}
	return sess.Index.Len()
}
