package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley"
	"github.com/parleyhq/parley/pkg/domain"
	"github.com/parleyhq/parley/pkg/machine"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	orch, err := parley.New(filepath.Join("testdata", "flow.json"))
	require.NoError(t, err)
	return NewHandler(orch)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestGetHealth(t *testing.T) {
	handler := newTestHandler(t)

	rr := doJSON(t, handler, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestGetInfo(t *testing.T) {
	handler := newTestHandler(t)

	rr := doJSON(t, handler, "GET", "/info", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "parley-http", resp["app"])
	assert.NotEmpty(t, resp["version"])
	assert.Equal(t, "onboarding", resp["initial_stage"])
}

func TestCreateSessionGeneratesID(t *testing.T) {
	handler := newTestHandler(t)

	rr := doJSON(t, handler, "POST", "/sessions", map[string]string{})
	require.Equal(t, http.StatusCreated, rr.Code)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.NotEmpty(t, snap.SessionID)
	assert.Equal(t, "onboarding", snap.Stage)
	assert.Equal(t, "init_greeting", snap.State)
}

func TestSessionLifecycle(t *testing.T) {
	handler := newTestHandler(t)

	rr := doJSON(t, handler, "POST", "/sessions", map[string]string{"session_id": "conv-42"})
	require.Equal(t, http.StatusCreated, rr.Code)

	t.Run("context query", func(t *testing.T) {
		rr := doJSON(t, handler, "GET", "/sessions/conv-42/context?turn=1", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var sc domain.StateContext
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sc))
		assert.Equal(t, "init_greeting", sc.CurrentState)
		assert.Equal(t, 1, sc.TurnCounter)
		require.Len(t, sc.AvailableTransitions, 1)
		assert.Equal(t, "provide_name", sc.AvailableTransitions[0].Trigger)
	})

	t.Run("transitions query", func(t *testing.T) {
		rr := doJSON(t, handler, "GET", "/sessions/conv-42/transitions?turn=1", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Transitions []domain.TransitionView `json:"transitions"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Len(t, resp.Transitions, 1)
		assert.True(t, resp.Transitions[0].Allowed)
	})

	t.Run("advance executes and persists", func(t *testing.T) {
		rr := doJSON(t, handler, "POST", "/sessions/conv-42/advance", AdvanceRequest{
			Turn:    1,
			Trigger: "provide_name",
			Reason:  "user introduced themselves",
		})
		require.Equal(t, http.StatusOK, rr.Code)

		var result machine.AdvanceResult
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
		assert.True(t, result.Executed)
		assert.Equal(t, "ask_name", result.State)

		// The next request sees the persisted state.
		rr = doJSON(t, handler, "GET", "/sessions/conv-42", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var snap domain.Snapshot
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
		assert.Equal(t, "ask_name", snap.State)
	})

	t.Run("blocked advance reports reason", func(t *testing.T) {
		rr := doJSON(t, handler, "POST", "/sessions/conv-42/advance", AdvanceRequest{
			Turn:    2,
			Trigger: "summarize",
		})
		require.Equal(t, http.StatusOK, rr.Code)

		var result machine.AdvanceResult
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
		assert.False(t, result.Executed)
		assert.NotEmpty(t, result.BlockReason)
	})

	t.Run("listed", func(t *testing.T) {
		rr := doJSON(t, handler, "GET", "/sessions", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var resp map[string][]string
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Contains(t, resp["sessions"], "conv-42")
	})

	t.Run("deleted", func(t *testing.T) {
		rr := doJSON(t, handler, "DELETE", "/sessions/conv-42", nil)
		assert.Equal(t, http.StatusNoContent, rr.Code)

		rr = doJSON(t, handler, "GET", "/sessions/conv-42", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestUnknownSessionReturns404(t *testing.T) {
	handler := newTestHandler(t)

	for _, path := range []string{
		"/sessions/ghost",
		"/sessions/ghost/context?turn=1",
		"/sessions/ghost/transitions?turn=1",
	} {
		rr := doJSON(t, handler, "GET", path, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
	}
}

func TestTurnParamValidation(t *testing.T) {
	handler := newTestHandler(t)
	doJSON(t, handler, "POST", "/sessions", map[string]string{"session_id": "conv-1"})

	for _, path := range []string{
		"/sessions/conv-1/context",
		"/sessions/conv-1/context?turn=abc",
		fmt.Sprintf("/sessions/conv-1/context?turn=%d", -1),
	} {
		rr := doJSON(t, handler, "GET", path, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)
	}
}

func TestAdvanceBadBody(t *testing.T) {
	handler := newTestHandler(t)
	doJSON(t, handler, "POST", "/sessions", map[string]string{"session_id": "conv-1"})

	req := httptest.NewRequest("POST", "/sessions/conv-1/advance", bytes.NewBufferString("{broken"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest("OPTIONS", "/sessions", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
