package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/oselz/docent/internal/assistant"
	"github.com/oselz/docent/internal/log"
	"github.com/oselz/docent/internal/provider"
	"github.com/oselz/docent/internal/rag"
	"github.com/oselz/docent/internal/router"
	"github.com/oselz/docent/internal/session"
)

// chatHandler handles the synchronous and streaming chat endpoints.
type chatHandler struct {
	sessions   *session.Manager
	dispatcher Dispatcher
	pipeline   Pipeline
	logger     log.Logger
}

// ChatRequest is the request body for both chat endpoints.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// SourceResponse is one retrieved chunk backing a grounded answer.
type SourceResponse struct {
	Seq   int     `json:"seq"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// ChatResponse is the synchronous chat response.
type ChatResponse struct {
	Response  string           `json:"response"`
	SessionID string           `json:"session_id"`
	Grounded  bool             `json:"grounded"`
	Sources   []SourceResponse `json:"sources,omitempty"`
}

// send handles POST /api/chat.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	req, sess, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	var answer rag.Answer
	err := h.dispatcher.Do(r.Context(), sess.ID, func(ctx context.Context) error {
		var handleErr error
		answer, handleErr = h.pipeline.Handle(ctx, sess, req.Message, nil)
		return handleErr
	})
	if err != nil {
		h.writeChatError(w, sess, err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Response:  answer.Text,
		SessionID: sess.ID.String(),
		Grounded:  answer.Grounded,
		Sources:   toSourceResponses(answer),
	})
}

// SSEEvent payload shapes. The stream carries three event types:
// "chunk" for partial text, "done" for the final answer, "error" on
// failure. The connection closes after done or error.

// SSEChunkData is the data for "chunk" events.
type SSEChunkData struct {
	Text string `json:"text"`
}

// SSEDoneData is the data for "done" events.
type SSEDoneData struct {
	Response  string           `json:"response"`
	SessionID string           `json:"sessionId"`
	Grounded  bool             `json:"grounded"`
	Sources   []SourceResponse `json:"sources,omitempty"`
}

// SSEErrorData is the data for "error" events.
type SSEErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// stream handles POST /api/chat/stream with Server-Sent Events.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("streaming not supported")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeSSEError(w, flusher, "invalid_request", fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.SessionID == "" {
		h.writeSSEError(w, flusher, "missing_session_id", "session_id is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		h.writeSSEError(w, flusher, "missing_message", "message is required")
		return
	}

	sess, err := h.lookupForStream(req.SessionID)
	if err != nil {
		h.writeSSEError(w, flusher, "session_not_found", err.Error())
		return
	}

	ctx := r.Context()
	h.logger.Info("SSE stream started", "session_id", sess.ID)

	hasChunks := false
	streamFn := func(chunkCtx context.Context, chunk string) error {
		if err := chunkCtx.Err(); err != nil {
			return err
		}
		hasChunks = true
		h.writeSSEChunk(w, flusher, chunk)
		return nil
	}

	var answer rag.Answer
	err = h.dispatcher.Do(ctx, sess.ID, func(taskCtx context.Context) error {
		var handleErr error
		answer, handleErr = h.pipeline.Handle(taskCtx, sess, req.Message, streamFn)
		return handleErr
	})
	if err != nil {
		if ctx.Err() != nil {
			h.logger.Info("client disconnected", "session_id", sess.ID)
			return
		}
		code, message := chatErrorCode(err)
		h.logger.Error("stream failed", "error", err, "session_id", sess.ID)
		h.writeSSEError(w, flusher, code, message)
		return
	}

	h.writeSSEDone(w, flusher, answer, sess.ID.String())
	h.logger.Info("SSE stream completed",
		"session_id", sess.ID,
		"has_chunks", hasChunks,
		"response_len", len(answer.Text),
	)
}

// parseRequest decodes and validates the chat request body and resolves
// the session, writing the error response itself on failure.
func (h *chatHandler) parseRequest(w http.ResponseWriter, r *http.Request) (ChatRequest, *session.Session, bool) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return req, nil, false
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "missing_session_id", "session_id is required")
		return req, nil, false
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "missing_message", "message is required")
		return req, nil, false
	}

	sess, ok := sessionByID(w, h.sessions, req.SessionID)
	if !ok {
		return req, nil, false
	}
	return req, sess, true
}

// lookupForStream resolves a session ID for the SSE path, where errors
// are reported as events rather than HTTP statuses.
func (h *chatHandler) lookupForStream(raw string) (*session.Session, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, errors.New("session id must be a UUID")
	}
	sess, err := h.sessions.Get(id)
	if err != nil {
		return nil, errors.New("no such session")
	}
	return sess, nil
}

// writeChatError maps pipeline failures to HTTP responses.
func (h *chatHandler) writeChatError(w http.ResponseWriter, sess *session.Session, err error) {
	code, message := chatErrorCode(err)

	status := http.StatusInternalServerError
	switch code {
	case "unknown_assistant":
		status = http.StatusBadRequest
	case "generation_failed", "embedding_failed":
		status = http.StatusBadGateway
	case "server_closed":
		status = http.StatusServiceUnavailable
	}

	h.logger.Error("chat failed", "error", err, "session_id", sess.ID)
	writeError(w, status, code, message)
}

// chatErrorCode classifies a pipeline error into a stable code and a
// client-safe message.
func chatErrorCode(err error) (code, message string) {
	switch {
	case errors.Is(err, assistant.ErrUnknownAssistant):
		return "unknown_assistant", err.Error()
	case errors.Is(err, provider.ErrGeneration):
		return "generation_failed", "the model failed to generate a response"
	case errors.Is(err, provider.ErrEmbedding):
		return "embedding_failed", "failed to embed the question"
	case errors.Is(err, rag.ErrIndexMismatch):
		return "index_mismatch", "the session index does not match the configured embedder"
	case errors.Is(err, router.ErrDispatcherClosed):
		return "server_closed", "the server is shutting down"
	default:
		return "internal_error", "internal server error"
	}
}

func toSourceResponses(answer rag.Answer) []SourceResponse {
	if len(answer.Sources) == 0 {
		return nil
	}
	sources := make([]SourceResponse, 0, len(answer.Sources))
	for _, hit := range answer.Sources {
		sources = append(sources, SourceResponse{
			Seq:   hit.Entry.Seq,
			Text:  hit.Entry.Text,
			Score: hit.Score,
		})
	}
	return sources
}

// writeSSEChunk writes a chunk event to the SSE stream.
func (h *chatHandler) writeSSEChunk(w http.ResponseWriter, flusher http.Flusher, text string) {
	data, _ := json.Marshal(SSEChunkData{Text: text})
	fmt.Fprintf(w, "event: chunk\ndata: %s\n\n", data)
	flusher.Flush()
}

// writeSSEDone writes a done event to the SSE stream.
func (h *chatHandler) writeSSEDone(w http.ResponseWriter, flusher http.Flusher, answer rag.Answer, sessionID string) {
	data, _ := json.Marshal(SSEDoneData{
		Response:  answer.Text,
		SessionID: sessionID,
		Grounded:  answer.Grounded,
		Sources:   toSourceResponses(answer),
	})
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", data)
	flusher.Flush()
}

// writeSSEError writes an error event to the SSE stream.
func (h *chatHandler) writeSSEError(w http.ResponseWriter, flusher http.Flusher, code, message string) {
	data, _ := json.Marshal(SSEErrorData{Code: code, Message: message})
	fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
	flusher.Flush()
}
