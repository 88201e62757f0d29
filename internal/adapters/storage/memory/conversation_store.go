package memory

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/PabloGalante/farum-chat/internal/domain"
)

// ConversationStore keeps every session's log in process memory.
//
// The top-level mutex only guards the id -> session map; each session has
// its own lock for its log and its own semaphore for whole-turn
// serialization, so unrelated sessions never contend.
type ConversationStore struct {
	mu       sync.Mutex
	sessions map[domain.SessionID]*session
	now      func() time.Time
}

type session struct {
	turn *semaphore.Weighted

	mu       sync.RWMutex
	messages []domain.Message
}

var _ domain.ConversationStore = (*ConversationStore)(nil)

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		sessions: make(map[domain.SessionID]*session),
		now:      time.Now,
	}
}

// session returns the entry for id, creating it under the map lock so two
// concurrent first references resolve to the same session.
func (s *ConversationStore) session(id domain.SessionID) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{turn: semaphore.NewWeighted(1)}
		s.sessions[id] = sess
	}
	return sess
}

func (s *ConversationStore) GetOrCreate(id domain.SessionID) domain.Conversation {
	return domain.Conversation{
		SessionID: id,
		Messages:  s.Snapshot(id),
	}
}

func (s *ConversationStore) Append(id domain.SessionID, role domain.Role, content string) domain.Message {
	sess := s.session(id)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	return sess.appendLocked(role, content, s.now())
}

// AppendTurn appends the user message and then the assistant reply with no
// reader able to observe one without the other.
func (s *ConversationStore) AppendTurn(id domain.SessionID, userText, assistantText string) (domain.Message, domain.Message) {
	sess := s.session(id)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	now := s.now()
	user := sess.appendLocked(domain.RoleUser, userText, now)
	assistant := sess.appendLocked(domain.RoleAssistant, assistantText, now)
	return user, assistant
}

func (s *ConversationStore) Snapshot(id domain.SessionID) []domain.Message {
	sess := s.session(id)

	sess.mu.RLock()
	defer sess.mu.RUnlock()

	out := make([]domain.Message, len(sess.messages))
	copy(out, sess.messages)
	return out
}

// Clear empties the log but keeps the session mapping. Ordinals restart at 0.
func (s *ConversationStore) Clear(id domain.SessionID) {
	sess := s.session(id)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.messages = nil
}

func (s *ConversationStore) LockSession(ctx context.Context, id domain.SessionID) (func(), error) {
	sess := s.session(id)
	if err := sess.turn.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() { sess.turn.Release(1) })
	}, nil
}

// Len reports the number of known sessions.
func (s *ConversationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (sess *session) appendLocked(role domain.Role, content string, now time.Time) domain.Message {
	msg := domain.Message{
		Role:      role,
		Content:   content,
		Ordinal:   len(sess.messages),
		CreatedAt: now,
	}
	sess.messages = append(sess.messages, msg)
	return msg
}
