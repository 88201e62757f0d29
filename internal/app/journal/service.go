package journal

import (
	"context"

	"github.com/PabloGalante/farum-chat/internal/domain"
	"github.com/PabloGalante/farum-chat/internal/observability"
)

const (
	DefaultLimit = 20
	MaxLimit     = 500
)

// Service holds the logic of reading the turn journal
type Service struct {
	store domain.TurnJournal
}

// NewService creates a journal service from a TurnJournal.
// A nil store is allowed and behaves as an empty journal.
func NewService(store domain.TurnJournal) *Service {
	return &Service{
		store: store,
	}
}

// Enabled reports whether a journal backend is configured.
func (s *Service) Enabled() bool {
	return s.store != nil
}

// ListTurns returns the last `limit` recorded turns, oldest first.
// An empty sessionID lists every session. If limit <= 0, DefaultLimit is used.
func (s *Service) ListTurns(
	ctx context.Context,
	sessionID domain.SessionID,
	limit int,
) ([]*domain.TurnEntry, error) {

	if s.store == nil {
		return []*domain.TurnEntry{}, nil
	}

	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	entries, err := s.store.ListTurns(ctx, sessionID, limit)
	if err != nil {
		observability.LoggerFromContext(ctx).Error().
			Err(err).
			Str("session_id", string(sessionID)).
			Msg("failed to list journal entries")
		return nil, domain.NewError(domain.KindInternal, err, "journal is unavailable")
	}
	return entries, nil
}
