package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadText(t *testing.T, h *testHarness, sessionID, name, text string) *http.Response {
	t.Helper()

	url := h.server.URL + "/api/sessions/" + sessionID + "/document"
	if name != "" {
		url += "?name=" + name
	}
	resp, err := http.Post(url, "text/plain", strings.NewReader(text))
	require.NoError(t, err)
	return resp
}

func TestUploadDocument_RawBody(t *testing.T) {
	h := newHarness(t)
	created := createSession(t, h, "alice")

	resp := uploadText(t, h, created.SessionID, "france.txt", strings.Repeat("The capital of France is Paris. ", 10))
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got UploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "france.txt", got.DocumentName)
	assert.Greater(t, got.Chunks, 1)

	sess, err := h.manager.Get(uuid.MustParse(created.SessionID))
	require.NoError(t, err)
	assert.Equal(t, "france.txt", sess.DocumentName)
	require.NotNil(t, sess.Index)
	assert.Equal(t, got.Chunks, sess.Index.Len())
}

func TestUploadDocument_DefaultName(t *testing.T) {
	h := newHarness(t)
	created := createSession(t, h, "alice")

	resp := uploadText(t, h, created.SessionID, "", "some document body")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got UploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, defaultDocumentName, got.DocumentName)
}

func TestUploadDocument_Multipart(t *testing.T) {
	h := newHarness(t)
	created := createSession(t, h, "alice")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = io.WriteString(part, "multipart document body")
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(
		h.server.URL+"/api/sessions/"+created.SessionID+"/document",
		mw.FormDataContentType(),
		&buf,
	)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got UploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "notes.txt", got.DocumentName)
}

func TestUploadDocument_MultipartMissingFile(t *testing.T) {
	h := newHarness(t)
	created := createSession(t, h, "alice")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("other", "value"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(
		h.server.URL+"/api/sessions/"+created.SessionID+"/document",
		mw.FormDataContentType(),
		&buf,
	)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadDocument_Empty(t *testing.T) {
	h := newHarness(t)
	created := createSession(t, h, "alice")

	resp := uploadText(t, h, created.SessionID, "empty.txt", "   \n\t ")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, "empty_document", errResp.Error)
}

func TestUploadDocument_UnknownSession(t *testing.T) {
	h := newHarness(t)

	resp := uploadText(t, h, uuid.NewString(), "a.txt", "body")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadDocument_ReplacesPriorIndex(t *testing.T) {
	h := newHarness(t)
	created := createSession(t, h, "alice")

	first := uploadText(t, h, created.SessionID, "long.txt", strings.Repeat("a longer document body. ", 20))
	defer first.Body.Close()
	require.Equal(t, http.StatusOK, first.StatusCode)

	var firstUpload UploadResponse
	require.NoError(t, json.NewDecoder(first.Body).Decode(&firstUpload))

	second := uploadText(t, h, created.SessionID, "short.txt", "a much shorter replacement")
	defer second.Body.Close()
	require.Equal(t, http.StatusOK, second.StatusCode)

	var secondUpload UploadResponse
	require.NoError(t, json.NewDecoder(second.Body).Decode(&secondUpload))
	require.Less(t, secondUpload.Chunks, firstUpload.Chunks)

	// The old index is gone entirely: only the new document's chunks
	// remain searchable.
	sess, err := h.manager.Get(uuid.MustParse(created.SessionID))
	require.NoError(t, err)
	require.NotNil(t, sess.Index)
	assert.Equal(t, secondUpload.Chunks, sess.Index.Len())
	assert.Equal(t, "short.txt", sess.DocumentName)
}

func TestUploadDocument_SameDocumentTwice(t *testing.T) {
	h := newHarness(t)
	created := createSession(t, h, "alice")
	body := strings.Repeat("The capital of France is Paris. ", 10)

	first := uploadText(t, h, created.SessionID, "france.txt", body)
	defer first.Body.Close()
	require.Equal(t, http.StatusOK, first.StatusCode)

	second := uploadText(t, h, created.SessionID, "france.txt", body)
	defer second.Body.Close()
	require.Equal(t, http.StatusOK, second.StatusCode)

	var got UploadResponse
	require.NoError(t, json.NewDecoder(second.Body).Decode(&got))

	sess, err := h.manager.Get(uuid.MustParse(created.SessionID))
	require.NoError(t, err)
	require.NotNil(t, sess.Index)
	assert.Equal(t, got.Chunks, sess.Index.Len())
}

func TestUploadDocument_EmbedderFailureKeepsPriorIndex(t *testing.T) {
	h := newHarness(t)
	created := createSession(t, h, "alice")

	first := uploadText(t, h, created.SessionID, "first.txt", "the original document")
	defer first.Body.Close()
	require.Equal(t, http.StatusOK, first.StatusCode)

	sess, err := h.manager.Get(uuid.MustParse(created.SessionID))
	require.NoError(t, err)
	priorIndex := sess.Index
	require.NotNil(t, priorIndex)

	h.embedder.err = errors.New("embedder unavailable")
	second := uploadText(t, h, created.SessionID, "second.txt", "the replacement document")
	defer second.Body.Close()

	assert.Equal(t, http.StatusBadGateway, second.StatusCode)
	assert.Same(t, priorIndex, sess.Index)
	assert.Equal(t, "first.txt", sess.DocumentName)
}
