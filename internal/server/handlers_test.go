package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftcode/agentserver/internal/config"
	"github.com/driftcode/agentserver/internal/provider"
	"github.com/driftcode/agentserver/internal/session"
	"github.com/driftcode/agentserver/internal/storage"
	"github.com/driftcode/agentserver/internal/tool"
	"github.com/driftcode/agentserver/pkg/types"
)

// fakeAdapter replays one scripted text-only turn per call, enough to
// drive the HTTP surface's request/response contract without a real
// upstream endpoint.
type fakeAdapter struct{}

func (fakeAdapter) SendTurn(ctx context.Context, in provider.SendTurnInput) <-chan provider.StreamEvent {
	out := make(chan provider.StreamEvent, 2)
	go func() {
		defer close(out)
		msg := types.Message{Role: types.RoleAssistant}
		msg.SetStringContent("ok")
		out <- provider.StreamEvent{
			Type: provider.StreamTurnComplete,
			Result: &provider.TurnResult{
				Done:             true,
				TextContent:      "ok",
				MessagesToAppend: []types.Message{msg},
			},
		}
	}()
	return out
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	registry := tool.DefaultRegistry()
	orch := session.NewOrchestrator(fakeAdapter{}, registry)
	manager := session.NewManager(store, orch)

	cfg := &config.Config{
		Port:            3001,
		CORSOrigin:      "http://localhost:5173",
		ProjectRoot:     t.TempDir(),
		OpenRouterModel: config.DefaultModel,
		MaxRounds:       config.DefaultMaxRounds,
	}

	return New(cfg, manager, registry)
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestPostChat_CreatesSessionAndReturnsIDs(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/chat", chatRequest{Message: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.NotEmpty(t, resp.WorkingDir)
}

func TestPostChat_RejectsEmptyMessage(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/chat", chatRequest{Message: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSession_NotFoundForUnknownID(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/session/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSession_ReturnsCreatedSession(t *testing.T) {
	srv := newTestServer(t)

	createRec := doRequest(t, srv, http.MethodPost, "/api/chat", chatRequest{Message: "hi"})
	var created chatResponse
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))

	rec := doRequest(t, srv, http.MethodGet, "/api/session/"+created.SessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var sess types.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Equal(t, created.SessionID, sess.ID)
}

func TestPatchSessionCWD_RejectsEmptyWorkingDir(t *testing.T) {
	srv := newTestServer(t)

	createRec := doRequest(t, srv, http.MethodPost, "/api/chat", chatRequest{Message: "hi"})
	var created chatResponse
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))

	rec := doRequest(t, srv, http.MethodPatch, "/api/session/"+created.SessionID+"/cwd", patchSessionCWDRequest{WorkingDir: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteSession_RemovesIt(t *testing.T) {
	srv := newTestServer(t)

	createRec := doRequest(t, srv, http.MethodPost, "/api/chat", chatRequest{Message: "hi"})
	var created chatResponse
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))

	delRec := doRequest(t, srv, http.MethodDelete, "/api/session/"+created.SessionID, nil)
	assert.Equal(t, http.StatusOK, delRec.Code)

	getRec := doRequest(t, srv, http.MethodGet, "/api/session/"+created.SessionID, nil)
	assert.Equal(t, http.StatusNotFound, getRec.Code)
}

func TestListSessions_ReturnsPageEnvelope(t *testing.T) {
	srv := newTestServer(t)

	doRequest(t, srv, http.MethodPost, "/api/chat", chatRequest{Message: "one"})
	doRequest(t, srv, http.MethodPost, "/api/chat", chatRequest{Message: "two"})

	rec := doRequest(t, srv, http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listSessionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Sessions, 2)
}

func TestGetTools_ListsRegisteredDefinitions(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/tools", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp toolsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Tools)
	assert.NotEmpty(t, resp.Categories)
}

func TestGetModels_FlagsConfiguredDefault(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/models", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Models []modelInfo `json:"models"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	var sawDefault bool
	for _, m := range resp.Models {
		if m.IsDefault {
			sawDefault = true
			assert.Equal(t, config.DefaultModel, m.ID)
		}
	}
	assert.True(t, sawDefault)
}

func TestGetCommands_ReturnsBuiltins(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/commands", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Commands []commandInfo `json:"commands"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Commands)
}

func TestOptionsWildcard_Returns204(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodOptions, "/api/anything", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
