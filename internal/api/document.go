package api

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/oselz/docent/internal/document"
	"github.com/oselz/docent/internal/log"
	"github.com/oselz/docent/internal/session"
)

// maxDocumentSize bounds uploads to 10 MiB.
const maxDocumentSize = 10 << 20

// defaultDocumentName is used for raw-body uploads without a name.
const defaultDocumentName = "document.txt"

// documentHandler handles document ingestion for a session.
type documentHandler struct {
	sessions   *session.Manager
	dispatcher Dispatcher
	ingestor   *document.Ingestor
	buildIndex IndexBuilder
	logger     log.Logger
}

// UploadResponse reports a successful ingestion.
type UploadResponse struct {
	DocumentName string `json:"document_name"`
	Chunks       int    `json:"chunks"`
}

// upload ingests a document and swaps it in as the session's index.
//
// Accepts either a multipart form with a "file" field or a raw text body
// (document name via the "name" query parameter). The previous index
// stays in place when ingestion fails at any stage.
func (h *documentHandler) upload(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r, h.sessions)
	if !ok {
		return
	}

	name, text, ok := h.readDocument(w, r)
	if !ok {
		return
	}

	doc := document.Document{Name: name, Text: text}

	// Ingestion and the index swap run on the session's dispatch worker
	// so queries never observe a half-replaced index.
	var chunks int
	err := h.dispatcher.Do(r.Context(), sess.ID, func(ctx context.Context) error {
		entries, err := h.ingestor.Ingest(ctx, doc)
		if err != nil {
			return err
		}

		idx, err := h.buildIndex(ctx, sess.ID, entries)
		if err != nil {
			return err
		}

		sess.SetIndex(idx, doc.Name)
		chunks = len(entries)
		return nil
	})
	if err != nil {
		h.writeUploadError(w, doc.Name, err)
		return
	}

	h.logger.Info("document ingested",
		"session_id", sess.ID,
		"document", doc.Name,
		"chunks", chunks,
	)
	writeJSON(w, http.StatusOK, UploadResponse{DocumentName: doc.Name, Chunks: chunks})
}

// readDocument extracts the document name and text from the request,
// writing the error response itself on failure.
func (h *documentHandler) readDocument(w http.ResponseWriter, r *http.Request) (name, text string, ok bool) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		file, header, err := formFile(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_upload", err.Error())
			return "", "", false
		}
		defer func() { _ = file.Close() }()

		data, err := io.ReadAll(io.LimitReader(file, maxDocumentSize))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_upload", "failed to read uploaded file")
			return "", "", false
		}
		return header, string(data), true
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentSize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "document_too_large", "document exceeds the upload limit")
		return "", "", false
	}

	name = r.URL.Query().Get("name")
	if strings.TrimSpace(name) == "" {
		name = defaultDocumentName
	}
	return name, string(body), true
}

// formFile opens the "file" field of a multipart upload.
func formFile(r *http.Request) (io.ReadCloser, string, error) {
	if err := r.ParseMultipartForm(maxDocumentSize); err != nil {
		return nil, "", errors.New("malformed multipart form")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", errors.New(`multipart upload requires a "file" field`)
	}

	name := header.Filename
	if strings.TrimSpace(name) == "" {
		name = defaultDocumentName
	}
	return file, name, nil
}

// writeUploadError maps ingestion failures to HTTP responses.
func (h *documentHandler) writeUploadError(w http.ResponseWriter, documentName string, err error) {
	switch {
	case errors.Is(err, document.ErrEmptyDocument):
		writeError(w, http.StatusBadRequest, "empty_document", "document contains no text")
	case errors.Is(err, document.ErrIngestion):
		h.logger.Error("ingestion failed", "document", documentName, "error", err)
		writeError(w, http.StatusBadGateway, "ingestion_failed", "failed to index the document")
	default:
		h.logger.Error("index build failed", "document", documentName, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to index the document")
	}
}
