package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/PabloGalante/farum-chat/internal/domain"
)

// JournalStore is an in-memory implementation of domain.TurnJournal.
// It is NOT persistent and is only suitable for development / local mode.
type JournalStore struct {
	mu          sync.RWMutex
	entries     map[domain.TurnEntryID]*domain.TurnEntry
	bySessionID map[domain.SessionID][]domain.TurnEntryID
	all         []domain.TurnEntryID
}

var _ domain.TurnJournal = (*JournalStore)(nil)

// NewJournalStore creates a new in-memory turn journal.
func NewJournalStore() *JournalStore {
	return &JournalStore{
		entries:     make(map[domain.TurnEntryID]*domain.TurnEntry),
		bySessionID: make(map[domain.SessionID][]domain.TurnEntryID),
	}
}

// RecordTurn saves a completed turn.
func (s *JournalStore) RecordTurn(_ context.Context, entry *domain.TurnEntry) error {
	if entry == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = domain.TurnEntryID(uuid.NewString())
	}

	cp := *entry
	s.entries[cp.ID] = &cp
	s.bySessionID[cp.SessionID] = append(s.bySessionID[cp.SessionID], cp.ID)
	s.all = append(s.all, cp.ID)

	return nil
}

// ListTurns returns the last `limit` entries for a session, oldest first.
// An empty sessionID lists across all sessions. If limit <= 0, returns all.
func (s *JournalStore) ListTurns(
	_ context.Context,
	sessionID domain.SessionID,
	limit int,
) ([]*domain.TurnEntry, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.all
	if sessionID != "" {
		ids = s.bySessionID[sessionID]
	}
	if len(ids) == 0 {
		return []*domain.TurnEntry{}, nil
	}

	if limit <= 0 || limit > len(ids) {
		limit = len(ids)
	}
	selected := ids[len(ids)-limit:]

	out := make([]*domain.TurnEntry, 0, len(selected))
	for _, id := range selected {
		if e, ok := s.entries[id]; ok {
			cp := *e
			out = append(out, &cp)
		}
	}

	return out, nil
}
