package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PabloGalante/farum-chat/internal/app/conversation"
	journalapp "github.com/PabloGalante/farum-chat/internal/app/journal"
	"github.com/PabloGalante/farum-chat/internal/domain"
	"github.com/PabloGalante/farum-chat/internal/observability"
)

// MaxBodyBytes caps the size of a request body.
const MaxBodyBytes = 1 << 20

type Options struct {
	ServiceName    string
	ServiceVersion string
	AllowedOrigins []string
}

type Server struct {
	svc     *conversation.Service
	journal *journalapp.Service
	opts    Options
}

func NewServer(svc *conversation.Service, journal *journalapp.Service, opts Options) http.Handler {
	if opts.ServiceName == "" {
		opts.ServiceName = "Chatbot API"
	}
	if opts.ServiceVersion == "" {
		opts.ServiceVersion = "1.0"
	}
	if journal == nil {
		journal = journalapp.NewService(nil)
	}

	s := &Server{svc: svc, journal: journal, opts: opts}
	mux := http.NewServeMux()

	// / and /healthz → service status (GET)
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/healthz", s.handleHealth)

	// /chat → run one turn (POST)
	mux.HandleFunc("/chat", s.handleChat)

	// /sessions/{id}          → GET: stored messages + rendered history
	// /sessions/{id}/messages → DELETE: clear history
	mux.HandleFunc("/sessions/", s.handleSessionWithID)

	// /journal → recorded turns (GET)
	mux.HandleFunc("/journal", s.handleJournal)

	return chainMiddlewares(mux,
		withRecovery,
		withLogging,
		withRequestID,
		withCORS(opts.AllowedOrigins),
	)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type historyItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Message             *string       `json:"message"`
	SessionID           string        `json:"session_id"`
	ConversationHistory []historyItem `json:"conversation_history"`
}

type chatResponse struct {
	Response string `json:"response"`
	Success  bool   `json:"success"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

type messageResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Ordinal   int       `json:"ordinal"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionResponse struct {
	SessionID string            `json:"session_id"`
	Messages  []messageResponse `json:"messages"`
	History   []string          `json:"history"`
}

type journalResponse struct {
	Entries []*domain.TurnEntry `json:"entries"`
}

type errorResponse struct {
	Detail    string `json:"detail"`
	ErrorKind string `json:"error_kind"`
}

// ─────────────────────────────────────────────
// Basic routing
// ─────────────────────────────────────────────

// /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		notFound(w)
		return
	}
	s.handleHealth(w, r)
}

// /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "online",
		Service: s.opts.ServiceName,
		Version: s.opts.ServiceVersion,
	})
}

// /chat
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSendChat(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /sessions/{id} or /sessions/{id}/messages
func (s *Server) handleSessionWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	parts := strings.Split(path, "/")
	id := parts[0]

	if id == "" {
		notFound(w)
		return
	}

	if len(parts) == 1 {
		// /sessions/{id}
		switch r.Method {
		case http.MethodGet:
			s.handleGetSession(w, r, domain.SessionID(id))
		default:
			methodNotAllowed(w)
		}
		return
	}

	if len(parts) == 2 && parts[1] == "messages" {
		// /sessions/{id}/messages
		switch r.Method {
		case http.MethodDelete:
			s.handleClearSession(w, r, domain.SessionID(id))
		default:
			methodNotAllowed(w)
		}
		return
	}

	notFound(w)
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleSendChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Detail:    "request body too large",
				ErrorKind: string(domain.KindValidation),
			})
			return
		}
		writeError(w, r, domain.NewValidationError("invalid JSON body"))
		return
	}

	if req.Message == nil {
		writeError(w, r, domain.NewValidationError("message is required"))
		return
	}

	history := make([]conversation.HistoryMessage, 0, len(req.ConversationHistory))
	for _, h := range req.ConversationHistory {
		history = append(history, conversation.HistoryMessage{Role: h.Role, Content: h.Content})
	}

	out, err := s.svc.Chat(r.Context(), conversation.ChatInput{
		SessionID: domain.SessionID(req.SessionID),
		Text:      *req.Message,
		History:   history,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response: out.Reply,
		Success:  true,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	msgs, lines := s.svc.Timeline(r.Context(), id)

	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID: string(id),
		Messages:  toMessagesResponse(msgs),
		History:   lines,
	})
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	if err := s.svc.ClearSession(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// /journal?session_id=...&limit=...
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, r, domain.NewValidationError("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	entries, err := s.journal.ListTurns(r.Context(), domain.SessionID(q.Get("session_id")), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, journalResponse{Entries: entries})
}

// ─────────────────────────────────────────────
// Conversation Helpers
// ─────────────────────────────────────────────

func toMessagesResponse(msgs []domain.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse{
			Role:      string(m.Role),
			Content:   m.Content,
			Ordinal:   m.Ordinal,
			CreatedAt: m.CreatedAt,
		})
	}
	return out
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

// statusFor maps an error kind onto the HTTP status returned to the caller.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindConnect, domain.KindProvider, domain.KindMalformed:
		return http.StatusBadGateway
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	if kind == domain.KindInternal {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Msg("request failed")
	}
	writeJSON(w, statusFor(kind), errorResponse{
		Detail:    domain.ErrorDetail(err),
		ErrorKind: string(kind),
	})
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, errorResponse{
		Detail:    "not found",
		ErrorKind: string(domain.KindValidation),
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{
		Detail:    "method not allowed",
		ErrorKind: string(domain.KindValidation),
	})
}
