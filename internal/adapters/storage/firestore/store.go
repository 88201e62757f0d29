package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/farum-chat/internal/domain"
)

// Store is a Firestore-backed domain.TurnJournal.
// Layout: sessions/{session_id}/turns/{turn_id}.
type Store struct {
	client *firestore.Client
}

var _ domain.TurnJournal = (*Store)(nil)

// NewStore creates a Firestore store.
// Uses the project passed (FARUM_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, errors.New("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "creating firestore client")
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) sessionDoc(id domain.SessionID) *firestore.DocumentRef {
	return s.client.Collection("sessions").Doc(string(id))
}

func (s *Store) turnsCol(sessionID domain.SessionID) *firestore.CollectionRef {
	return s.sessionDoc(sessionID).Collection("turns")
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type turnDoc struct {
	SessionID     string    `firestore:"session_id"`
	UserOrdinal   int       `firestore:"user_ordinal"`
	UserText      string    `firestore:"user_text"`
	AssistantText string    `firestore:"assistant_text"`
	Provider      string    `firestore:"provider"`
	Model         string    `firestore:"model"`
	LatencyMs     int64     `firestore:"latency_ms"`
	CreatedAt     time.Time `firestore:"created_at"`
}

// ─────────────────────────────────────────
// TurnJournal implementation
// ─────────────────────────────────────────

func (s *Store) RecordTurn(ctx context.Context, entry *domain.TurnEntry) error {
	if entry == nil {
		return nil
	}
	if entry.ID == "" {
		entry.ID = domain.TurnEntryID(uuid.NewString())
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	doc := turnDoc{
		SessionID:     string(entry.SessionID),
		UserOrdinal:   entry.UserOrdinal,
		UserText:      entry.UserText,
		AssistantText: entry.AssistantText,
		Provider:      entry.Provider,
		Model:         entry.Model,
		LatencyMs:     entry.LatencyMs,
		CreatedAt:     entry.CreatedAt,
	}

	_, err := s.turnsCol(entry.SessionID).Doc(string(entry.ID)).Create(ctx, doc)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Errorf("firestore RecordTurn: turn %s already recorded", entry.ID)
		}
		return errors.Wrap(err, "firestore RecordTurn")
	}
	return nil
}

// ListTurns returns the last `limit` turns, oldest first. An empty
// sessionID queries across sessions via a collection group.
func (s *Store) ListTurns(ctx context.Context, sessionID domain.SessionID, limit int) ([]*domain.TurnEntry, error) {
	var q firestore.Query
	if sessionID != "" {
		q = s.turnsCol(sessionID).OrderBy("created_at", firestore.Desc)
	} else {
		q = s.client.CollectionGroup("turns").OrderBy("created_at", firestore.Desc)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	out := []*domain.TurnEntry{}
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, errors.Wrap(err, "firestore ListTurns")
		}

		var doc turnDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, errors.Wrap(err, "decode turnDoc")
		}

		out = append(out, &domain.TurnEntry{
			ID:            domain.TurnEntryID(snap.Ref.ID),
			SessionID:     domain.SessionID(doc.SessionID),
			UserOrdinal:   doc.UserOrdinal,
			UserText:      doc.UserText,
			AssistantText: doc.AssistantText,
			Provider:      doc.Provider,
			Model:         doc.Model,
			LatencyMs:     doc.LatencyMs,
			CreatedAt:     doc.CreatedAt,
		})
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
