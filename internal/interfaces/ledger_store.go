package interfaces

import (
	"context"

	"github.com/karasu-dev/score-ledger-system/internal/models"
	"github.com/shopspring/decimal"
)

// LedgerStore is the durable backend holding balances and the
// append-only audit log. Implementations must make ReplaceBalance a
// single atomic upsert and ApplyTransfer an all-or-nothing two-row
// transaction; the ledger on top provides no further storage atomicity.
type LedgerStore interface {
	// GetOrCreateBalance returns the balance record for uid, creating a
	// zero-score record if none exists.
	GetOrCreateBalance(ctx context.Context, uid int64) (models.BalanceRecord, error)

	// ReplaceBalance overwrites uid's score with the given value.
	ReplaceBalance(ctx context.Context, uid int64, score decimal.Decimal) error

	// ApplyTransfer overwrites both records in one transaction. Either
	// both rows are updated or neither is.
	ApplyTransfer(ctx context.Context, from, to models.BalanceRecord) error

	// InsertAudit appends one audit entry.
	InsertAudit(ctx context.Context, entry models.AuditEntry) error

	// SelectAuditByOperator returns entries whose operator is uid, newest
	// first, at most limit.
	SelectAuditByOperator(ctx context.Context, operatorUID int64, limit int) ([]models.AuditEntry, error)

	// SelectBalances returns the records for the given uid set ordered by
	// score descending, at most limit.
	SelectBalances(ctx context.Context, uids []int64, limit int) ([]models.BalanceRecord, error)
}
