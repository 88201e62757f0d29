package httpadapter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithRecovery(t *testing.T) {
	h := chainMiddlewares(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("kaboom") }),
		withRecovery, withLogging, withRequestID,
	)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "internal", body.ErrorKind)
	require.NotContains(t, w.Body.String(), "kaboom")
}

func TestWithRequestID_KeepsCallerID(t *testing.T) {
	h := withRequestID(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestWithCORS_AllowList(t *testing.T) {
	h := withCORS([]string{"http://ui.local"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://ui.local")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, "http://ui.local", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.local")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
