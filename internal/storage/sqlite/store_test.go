package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karasu-dev/score-ledger-system/internal/models"
)

func openTestStore(t *testing.T) *SQLiteLedgerStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "score.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetOrCreateBalance_ZeroInit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec, err := s.GetOrCreateBalance(ctx, 42)
	require.NoError(t, err)
	assert.True(t, rec.Score.IsZero())

	// Idempotent: no duplicate row, same value.
	rec, err = s.GetOrCreateBalance(ctx, 42)
	require.NoError(t, err)
	assert.True(t, rec.Score.IsZero())

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM balances WHERE uid = 42`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestReplaceBalance_FullValue(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceBalance(ctx, 1, decimal.RequireFromString("12.34")))
	require.NoError(t, s.ReplaceBalance(ctx, 1, decimal.RequireFromString("5.00")))

	rec, err := s.GetOrCreateBalance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, rec.Score.Equal(decimal.RequireFromString("5.00")))
}

func TestApplyTransfer_BothRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ApplyTransfer(ctx,
		models.BalanceRecord{UID: 1, Score: decimal.RequireFromString("-3.50")},
		models.BalanceRecord{UID: 2, Score: decimal.RequireFromString("3.50")},
	))

	from, err := s.GetOrCreateBalance(ctx, 1)
	require.NoError(t, err)
	to, err := s.GetOrCreateBalance(ctx, 2)
	require.NoError(t, err)
	assert.True(t, from.Score.Add(to.Score).IsZero())
}

func TestAuditRoundTripAndOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	write := func(id string, at time.Time) {
		t.Helper()
		require.NoError(t, s.InsertAudit(ctx, models.AuditEntry{
			ID:          id,
			TargetUID:   2,
			OperatorUID: 1,
			Direction:   models.DirectionDebit,
			Amount:      decimal.RequireFromString("7.25"),
			Reason:      "transfer",
			CreatedAt:   at,
		}))
	}
	write("a", base)
	write("b", base.Add(time.Second))
	// Equal timestamps: the higher rowid comes first.
	write("c", base.Add(time.Second))

	entries, err := s.SelectAuditByOperator(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "c", entries[0].ID)
	assert.Equal(t, "b", entries[1].ID)
	assert.Equal(t, "a", entries[2].ID)

	got := entries[0]
	assert.Equal(t, int64(2), got.TargetUID)
	assert.Equal(t, models.DirectionDebit, got.Direction)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("7.25")))
	assert.Equal(t, "transfer", got.Reason)
	assert.True(t, got.CreatedAt.Equal(base.Add(time.Second)))

	entries, err = s.SelectAuditByOperator(ctx, 999, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSelectBalances_NumericOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// "9.50" sorts above "100.00" as text; the query must order
	// numerically.
	require.NoError(t, s.ReplaceBalance(ctx, 1, decimal.RequireFromString("9.50")))
	require.NoError(t, s.ReplaceBalance(ctx, 2, decimal.RequireFromString("100.00")))
	require.NoError(t, s.ReplaceBalance(ctx, 3, decimal.RequireFromString("55")))

	recs, err := s.SelectBalances(ctx, []int64{1, 2, 3}, 10)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, int64(2), recs[0].UID)
	assert.Equal(t, int64(3), recs[1].UID)
	assert.Equal(t, int64(1), recs[2].UID)

	// Restricted to the supplied set.
	recs, err = s.SelectBalances(ctx, []int64{1}, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(1), recs[0].UID)
}

func TestMigrate_Idempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Migrate(context.Background()))
}
