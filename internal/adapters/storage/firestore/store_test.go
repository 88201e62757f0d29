package firestore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	firestorestore "github.com/PabloGalante/farum-chat/internal/adapters/storage/firestore"
	"github.com/PabloGalante/farum-chat/internal/domain"
)

// Runs only against the Firestore emulator (FIRESTORE_EMULATOR_HOST).
func newEmulatorStore(t *testing.T) *firestorestore.Store {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	s, err := firestorestore.NewStore(context.Background(), "farum-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewStore_RequiresProject(t *testing.T) {
	_, err := firestorestore.NewStore(context.Background(), "")
	require.Error(t, err)
}

func TestStore_RecordAndList(t *testing.T) {
	s := newEmulatorStore(t)
	ctx := context.Background()
	session := domain.SessionID("s-" + uuid.NewString())

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordTurn(ctx, &domain.TurnEntry{
			SessionID:     session,
			UserOrdinal:   2 * i,
			UserText:      "q",
			AssistantText: "a",
			Provider:      "mock",
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := s.ListTurns(ctx, session, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, 2, entries[0].UserOrdinal)
	require.Equal(t, 4, entries[1].UserOrdinal)

	dup := &domain.TurnEntry{ID: entries[0].ID, SessionID: session}
	require.Error(t, s.RecordTurn(ctx, dup))
}
