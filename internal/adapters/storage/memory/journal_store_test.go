package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/farum-chat/internal/adapters/storage/memory"
	"github.com/PabloGalante/farum-chat/internal/domain"
)

func TestJournalStore_RecordAndList(t *testing.T) {
	ctx := context.Background()
	j := memory.NewJournalStore()

	for i, sid := range []domain.SessionID{"a", "b", "a", "a"} {
		err := j.RecordTurn(ctx, &domain.TurnEntry{SessionID: sid, UserOrdinal: i, UserText: "q"})
		require.NoError(t, err)
	}

	all, err := j.ListTurns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.NotEmpty(t, all[0].ID)

	a, err := j.ListTurns(ctx, "a", 2)
	require.NoError(t, err)
	require.Len(t, a, 2)
	require.Equal(t, 2, a[0].UserOrdinal)
	require.Equal(t, 3, a[1].UserOrdinal)

	none, err := j.ListTurns(ctx, "missing", 10)
	require.NoError(t, err)
	require.Empty(t, none)
}
