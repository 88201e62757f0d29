package httpadapter_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	httpadapter "github.com/PabloGalante/farum-chat/internal/adapters/http"
	"github.com/PabloGalante/farum-chat/internal/adapters/llm"
	"github.com/PabloGalante/farum-chat/internal/adapters/storage/memory"
	"github.com/PabloGalante/farum-chat/internal/app/conversation"
	journalapp "github.com/PabloGalante/farum-chat/internal/app/journal"
	"github.com/PabloGalante/farum-chat/internal/domain"
)

type fixedGateway struct {
	reply string
	err   error
}

func (g fixedGateway) Name() string            { return "fixed" }
func (g fixedGateway) Mode() domain.PromptMode { return domain.PromptModeMessages }

func (g fixedGateway) Invoke(context.Context, domain.Prompt) (string, error) {
	return g.reply, g.err
}

func newTestServer(t *testing.T, gw domain.ProviderGateway) (http.Handler, *memory.ConversationStore) {
	t.Helper()

	if gw == nil {
		gw = llm.NewMockLLM(domain.PromptModeMessages)
	}
	store := memory.NewConversationStore()
	journalStore := memory.NewJournalStore()

	convSvc := conversation.NewService(gw, store, journalStore, conversation.Options{})
	journalSvc := journalapp.NewService(journalStore)

	return httpadapter.NewServer(convSvc, journalSvc, httpadapter.Options{
		ServiceName:    "Chatbot API",
		ServiceVersion: "1.0",
		AllowedOrigins: []string{"*"},
	}), store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body=%s", w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	for _, path := range []string{"/", "/healthz"} {
		w := do(t, srv, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, map[string]any{
			"status":  "online",
			"service": "Chatbot API",
			"version": "1.0",
		}, decode(t, w))
		require.NotEmpty(t, w.Header().Get("X-Request-ID"))
	}

	w := do(t, srv, http.MethodGet, "/nope", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestChat_Success(t *testing.T) {
	srv, store := newTestServer(t, fixedGateway{reply: "Hello!"})

	w := do(t, srv, http.MethodPost, "/chat", `{"message":"Hi","session_id":"s1"}`)
	require.Equal(t, http.StatusOK, w.Code, "body=%s", w.Body.String())
	require.JSONEq(t, `{"response":"Hello!","success":true}`, w.Body.String())

	snap := store.Snapshot("s1")
	require.Len(t, snap, 2)
	require.Equal(t, "Hi", snap[0].Content)
	require.Equal(t, "Hello!", snap[1].Content)
}

func TestChat_DefaultSession(t *testing.T) {
	srv, store := newTestServer(t, nil)

	w := do(t, srv, http.MethodPost, "/chat", `{"message":"Hi"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, store.Snapshot(domain.DefaultSessionID), 2)
}

func TestChat_Validation(t *testing.T) {
	srv, store := newTestServer(t, nil)

	cases := map[string]string{
		"empty":        `{"message":"","session_id":"s1"}`,
		"whitespace":   `{"message":"   ","session_id":"s1"}`,
		"missing":      `{"session_id":"s1"}`,
		"invalid json": `{"message":`,
		"bad role":     `{"message":"hi","session_id":"s1","conversation_history":[{"role":"robot","content":"x"}]}`,
		"system role":  `{"message":"hi","session_id":"s1","conversation_history":[{"role":"system","content":"x"}]}`,
		"empty item":   `{"message":"hi","session_id":"s1","conversation_history":[{"role":"user","content":""}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(t, srv, http.MethodPost, "/chat", body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			got := decode(t, w)
			require.NotEmpty(t, got["detail"])
			require.Equal(t, "validation", got["error_kind"])
		})
	}
	require.Empty(t, store.Snapshot("s1"))
}

func TestChat_BodyTooLarge(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	body := `{"message":"` + strings.Repeat("a", httpadapter.MaxBodyBytes) + `"}`
	w := do(t, srv, http.MethodPost, "/chat", body)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestChat_ProviderErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		kind   domain.ErrorKind
		status int
	}{
		{domain.KindConnect, http.StatusBadGateway},
		{domain.KindProvider, http.StatusBadGateway},
		{domain.KindMalformed, http.StatusBadGateway},
		{domain.KindTimeout, http.StatusGatewayTimeout},
		{domain.KindInternal, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			srv, store := newTestServer(t, fixedGateway{err: domain.NewError(tc.kind, nil, "nope")})

			w := do(t, srv, http.MethodPost, "/chat", `{"message":"Hi","session_id":"s1"}`)
			require.Equal(t, tc.status, w.Code)

			got := decode(t, w)
			require.Equal(t, "nope", got["detail"])
			require.Equal(t, string(tc.kind), got["error_kind"])
			require.Empty(t, store.Snapshot("s1"))
		})
	}
}

func TestSessionTimelineAndClear(t *testing.T) {
	srv, store := newTestServer(t, fixedGateway{reply: "Hello!"})

	w := do(t, srv, http.MethodPost, "/chat", `{"message":"Hi","session_id":"s1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, http.MethodGet, "/sessions/s1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		SessionID string `json:"session_id"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
			Ordinal int    `json:"ordinal"`
		} `json:"messages"`
		History []string `json:"history"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, "s1", got.SessionID)
	require.Len(t, got.Messages, 2)
	require.Equal(t, "user", got.Messages[0].Role)
	require.Equal(t, 1, got.Messages[1].Ordinal)
	require.Equal(t, []string{"Human: Hi", "Assistant: Hello!"}, got.History)

	w = do(t, srv, http.MethodDelete, "/sessions/s1/messages", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Empty(t, store.Snapshot("s1"))

	w = do(t, srv, http.MethodPost, "/sessions/s1/messages", "")
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestJournal(t *testing.T) {
	srv, _ := newTestServer(t, fixedGateway{reply: "Hello!"})

	for _, id := range []string{"a", "b", "a"} {
		w := do(t, srv, http.MethodPost, "/chat", `{"message":"Hi","session_id":"`+id+`"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := do(t, srv, http.MethodGet, "/journal?session_id=a", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Entries []domain.TurnEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Entries, 2)
	require.Equal(t, 0, got.Entries[0].UserOrdinal)
	require.Equal(t, 2, got.Entries[1].UserOrdinal)

	w = do(t, srv, http.MethodGet, "/journal?limit=1", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Entries, 1)

	w = do(t, srv, http.MethodGet, "/journal?limit=abc", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://localhost:8501")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
