package journal_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/farum-chat/internal/adapters/storage/memory"
	"github.com/PabloGalante/farum-chat/internal/app/journal"
	"github.com/PabloGalante/farum-chat/internal/domain"
)

func TestListTurns_NilStoreIsEmpty(t *testing.T) {
	svc := journal.NewService(nil)
	require.False(t, svc.Enabled())

	entries, err := svc.ListTurns(context.Background(), "s", 5)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestListTurns_DefaultLimit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewJournalStore()
	for i := 0; i < journal.DefaultLimit+5; i++ {
		require.NoError(t, store.RecordTurn(ctx, &domain.TurnEntry{
			SessionID:   "s",
			UserOrdinal: 2 * i,
			UserText:    fmt.Sprintf("q%d", i),
		}))
	}

	svc := journal.NewService(store)
	entries, err := svc.ListTurns(ctx, "s", 0)
	require.NoError(t, err)
	require.Len(t, entries, journal.DefaultLimit)
	require.Equal(t, "q5", entries[0].UserText)

	entries, err = svc.ListTurns(ctx, "other", 0)
	require.NoError(t, err)
	require.Empty(t, entries)
}

type brokenJournal struct{}

func (brokenJournal) RecordTurn(context.Context, *domain.TurnEntry) error { return nil }

func (brokenJournal) ListTurns(context.Context, domain.SessionID, int) ([]*domain.TurnEntry, error) {
	return nil, fmt.Errorf("disk on fire")
}

func TestListTurns_StoreFailureIsInternal(t *testing.T) {
	_, err := journal.NewService(brokenJournal{}).ListTurns(context.Background(), "", 1)
	require.Equal(t, domain.KindInternal, domain.KindOf(err))
}
