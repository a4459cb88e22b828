package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createSession(t *testing.T, h *testHarness, userHeader string) SessionResponse {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, h.server.URL+"/api/sessions", nil)
	require.NoError(t, err)
	if userHeader != "" {
		req.Header.Set("X-Forwarded-User", userHeader)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	return created
}

func TestCreateSession(t *testing.T) {
	h := newHarness(t)

	created := createSession(t, h, "alice")

	assert.Equal(t, "alice", created.UserID)

	id, err := uuid.Parse(created.SessionID)
	require.NoError(t, err)

	// Registered in the live registry and persisted.
	_, err = h.manager.Get(id)
	require.NoError(t, err)
	record, err := h.store.GetSession(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "alice", record.UserID)
}

func TestCreateSession_AnonymousUser(t *testing.T) {
	h := newHarness(t)

	created := createSession(t, h, "")

	assert.Equal(t, "anonymous", created.UserID)
}

func TestGetSession(t *testing.T) {
	h := newHarness(t)
	created := createSession(t, h, "alice")

	resp, err := http.Get(h.server.URL + "/api/sessions/" + created.SessionID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, created.SessionID, got.SessionID)
	assert.Equal(t, "alice", got.UserID)
	assert.Empty(t, got.ActiveAssistant)
	assert.Empty(t, got.DocumentName)
	assert.Zero(t, got.DocumentChunks)
	assert.Zero(t, got.Turns)
}

func TestGetSession_InvalidID(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.server.URL + "/api/sessions/not-a-uuid")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetSession_Unknown(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.server.URL + "/api/sessions/" + uuid.NewString())
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListAssistants(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.server.URL + "/api/assistants")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Assistants []AssistantResponse `json:"assistants"`
		Total      int                 `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))

	require.Equal(t, 1, got.Total)
	assert.Equal(t, "Healthcare Assistant", got.Assistants[0].Name)
	assert.Equal(t, "health", got.Assistants[0].Command)
	assert.True(t, strings.Contains(got.Assistants[0].Description, "schedule"))
}
