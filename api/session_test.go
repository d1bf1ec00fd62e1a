package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSessionEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp CreateSessionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "session_1", resp.SessionID)

	// Ids increment across requests.
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "session_2", resp.SessionID)
}

func TestClearSessionEndpoint(t *testing.T) {
	t.Run("clears history", func(t *testing.T) {
		answerer := &fakeAnswerer{answer: "a"}
		srv := newTestServer(t, answerer, nil)
		handler := srv.Handler()

		// Seed history via a query, then clear.
		w := postQuery(t, handler, `{"query": "q", "session_id": "s1"}`)
		require.Equal(t, http.StatusOK, w.Code)

		body := bytes.NewBufferString(`{"session_id": "s1"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/sessions/clear", body)
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		// Next query on the session sees no history.
		w = postQuery(t, handler, `{"query": "q2", "session_id": "s1"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, answerer.lastHistory)
	})

	t.Run("unknown session is fine", func(t *testing.T) {
		srv := newTestServer(t, nil, nil)

		body := bytes.NewBufferString(`{"session_id": "never-existed"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/sessions/clear", body)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing session id is rejected", func(t *testing.T) {
		srv := newTestServer(t, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/sessions/clear", bytes.NewBufferString(`{}`))
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
