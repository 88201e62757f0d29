package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/PabloGalante/farum-chat/internal/adapters/llm"
	"github.com/PabloGalante/farum-chat/internal/domain"
	"github.com/PabloGalante/farum-chat/internal/observability"
)

// DefaultProviderTimeout bounds a single provider call when Options
// leaves it unset.
const DefaultProviderTimeout = 30 * time.Second

const journalWriteTimeout = 5 * time.Second

type turnState string

const (
	stateValidating      turnState = "validating"
	stateMemoryRetrieved turnState = "memory_retrieved"
	stateAssembling      turnState = "assembling"
	stateInvoking        turnState = "invoking"
	stateCommitting      turnState = "committing"
	stateDone            turnState = "done"
	stateFailed          turnState = "failed"
)

type Options struct {
	SystemPrompt     string
	ProviderTimeout  time.Duration
	Model            string
	DefaultSessionID domain.SessionID
}

// Service runs chat turns: it reads a session's memory, asks the provider
// for a reply and commits the user/assistant pair only once the reply is in.
type Service struct {
	gateway domain.ProviderGateway
	store   domain.ConversationStore
	journal domain.TurnJournal
	opts    Options
	now     func() time.Time
}

// NewService wires the orchestrator. journal may be nil.
func NewService(
	gateway domain.ProviderGateway,
	store domain.ConversationStore,
	journal domain.TurnJournal,
	opts Options,
) *Service {
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = llm.DefaultSystemPrompt
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = DefaultProviderTimeout
	}
	if opts.DefaultSessionID == "" {
		opts.DefaultSessionID = domain.DefaultSessionID
	}

	return &Service{
		gateway: gateway,
		store:   store,
		journal: journal,
		opts:    opts,
		now:     time.Now,
	}
}

// HistoryMessage is a prior turn supplied by the client rather than the store.
type HistoryMessage struct {
	Role    string
	Content string
}

type ChatInput struct {
	SessionID domain.SessionID
	Text      string

	// History is only used to seed the prompt of a session whose stored
	// log is empty. It is never written to the store.
	History []HistoryMessage
}

type ChatOutput struct {
	Reply   string
	History []string

	UserMessage      domain.Message
	AssistantMessage domain.Message
}

type turn struct {
	log   zerolog.Logger
	state turnState
}

func (t *turn) enter(s turnState) {
	t.state = s
	t.log.Debug().Str("state", string(s)).Msg("turn state")
}

func (t *turn) fail(err error) error {
	from := t.state
	t.state = stateFailed

	kind := domain.KindOf(err)
	ev := t.log.Warn()
	if kind == domain.KindInternal {
		ev = t.log.Error()
	}
	ev.Err(err).
		Str("state", string(stateFailed)).
		Str("failed_in", string(from)).
		Str("error_kind", string(kind)).
		Msg("turn failed")
	return err
}

// Chat runs one turn on in.SessionID. On any failure the session's log is
// left exactly as it was before the call.
func (s *Service) Chat(ctx context.Context, in ChatInput) (*ChatOutput, error) {
	sessionID := s.sessionOrDefault(in.SessionID)

	t := &turn{
		log: observability.LoggerFromContext(ctx).With().
			Str("session_id", string(sessionID)).
			Str("provider", s.gateway.Name()).
			Logger(),
	}

	t.enter(stateValidating)
	if strings.TrimSpace(in.Text) == "" {
		return nil, t.fail(domain.NewValidationError("message must not be empty"))
	}
	seed, err := parseHistory(in.History)
	if err != nil {
		return nil, t.fail(err)
	}

	release, err := s.store.LockSession(ctx, sessionID)
	if err != nil {
		return nil, t.fail(domain.NewError(domain.KindTimeout, err, "session %s is busy", sessionID))
	}
	defer release()

	t.enter(stateMemoryRetrieved)
	history := s.store.GetOrCreate(sessionID).Messages
	if len(history) == 0 && len(seed) > 0 {
		history = seed
	}

	t.enter(stateAssembling)
	prompt, err := llm.BuildPrompt(s.gateway.Mode(), s.opts.SystemPrompt, history, in.Text)
	if err != nil {
		return nil, t.fail(err)
	}

	t.enter(stateInvoking)
	start := s.now()
	reply, err := s.invoke(ctx, prompt)
	if err != nil {
		return nil, t.fail(err)
	}
	latency := s.now().Sub(start)

	t.enter(stateCommitting)
	userMsg, assistantMsg := s.store.AppendTurn(sessionID, in.Text, reply)
	lines := domain.Transcript(s.store.Snapshot(sessionID))
	release()

	s.recordTurn(ctx, t.log, sessionID, userMsg, assistantMsg, latency)

	t.enter(stateDone)
	t.log.Info().
		Int("user_ordinal", userMsg.Ordinal).
		Dur("latency", latency).
		Msg("turn completed")

	return &ChatOutput{
		Reply:            reply,
		History:          lines,
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	}, nil
}

type invokeResult struct {
	text string
	err  error
}

// invoke bounds the provider call with the configured deadline. When the
// deadline passes the result is abandoned even if the gateway keeps
// waiting on the wire.
func (s *Service) invoke(ctx context.Context, prompt domain.Prompt) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.ProviderTimeout)
	defer cancel()

	done := make(chan invokeResult, 1)
	go func() {
		text, err := s.gateway.Invoke(callCtx, prompt)
		done <- invokeResult{text: text, err: err}
	}()

	var res invokeResult
	select {
	case res = <-done:
	case <-callCtx.Done():
		res.err = callCtx.Err()
	}

	if res.err != nil {
		return "", s.classify(callCtx, res.err)
	}
	if strings.TrimSpace(res.text) == "" {
		return "", domain.NewError(domain.KindMalformed, nil, "%s returned an empty reply", s.gateway.Name())
	}
	return res.text, nil
}

func (s *Service) classify(ctx context.Context, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return llm.Classify(ctx, s.gateway.Name(), err)
}

func (s *Service) recordTurn(
	ctx context.Context,
	log zerolog.Logger,
	sessionID domain.SessionID,
	userMsg, assistantMsg domain.Message,
	latency time.Duration,
) {
	if s.journal == nil {
		return
	}

	entry := &domain.TurnEntry{
		SessionID:     sessionID,
		UserOrdinal:   userMsg.Ordinal,
		UserText:      userMsg.Content,
		AssistantText: assistantMsg.Content,
		Provider:      s.gateway.Name(),
		Model:         s.opts.Model,
		LatencyMs:     latency.Milliseconds(),
		CreatedAt:     assistantMsg.CreatedAt,
	}

	// the turn is already committed, so the write outlives a client disconnect
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalWriteTimeout)
	defer cancel()

	if err := s.journal.RecordTurn(wctx, entry); err != nil {
		log.Error().Err(err).Msg("failed to record turn in journal")
	}
}

// Timeline returns the stored messages of a session and their rendered lines.
func (s *Service) Timeline(ctx context.Context, sessionID domain.SessionID) ([]domain.Message, []string) {
	sessionID = s.sessionOrDefault(sessionID)
	msgs := s.store.Snapshot(sessionID)

	observability.LoggerFromContext(ctx).Debug().
		Str("session_id", string(sessionID)).
		Int("message_count", len(msgs)).
		Msg("fetched session timeline")

	return msgs, domain.Transcript(msgs)
}

// ClearSession empties a session's log. It waits for any in-flight turn on
// the same session to finish first.
func (s *Service) ClearSession(ctx context.Context, sessionID domain.SessionID) error {
	sessionID = s.sessionOrDefault(sessionID)

	release, err := s.store.LockSession(ctx, sessionID)
	if err != nil {
		return domain.NewError(domain.KindTimeout, err, "session %s is busy", sessionID)
	}
	defer release()

	s.store.Clear(sessionID)
	observability.LoggerFromContext(ctx).Info().
		Str("session_id", string(sessionID)).
		Msg("session cleared")
	return nil
}

func (s *Service) sessionOrDefault(id domain.SessionID) domain.SessionID {
	if strings.TrimSpace(string(id)) == "" {
		return s.opts.DefaultSessionID
	}
	return id
}

func parseHistory(in []HistoryMessage) ([]domain.Message, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]domain.Message, 0, len(in))
	for i, h := range in {
		role, err := clientRole(h.Role)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(h.Content) == "" {
			return nil, domain.NewValidationError("conversation_history[%d] has empty content", i)
		}
		out = append(out, domain.Message{Role: role, Content: h.Content, Ordinal: i})
	}
	return out, nil
}

// clientRole accepts only the conversational roles. The system instruction
// is owned by the server and never taken from a request.
func clientRole(s string) (domain.Role, error) {
	switch domain.Role(strings.ToLower(strings.TrimSpace(s))) {
	case domain.RoleUser:
		return domain.RoleUser, nil
	case domain.RoleAssistant:
		return domain.RoleAssistant, nil
	default:
		return "", domain.NewValidationError("conversation_history role must be user or assistant, got %q", s)
	}
}
