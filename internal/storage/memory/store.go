// Package memory holds an in-process LedgerStore used by tests and the
// memory database driver.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/karasu-dev/score-ledger-system/internal/interfaces"
	"github.com/karasu-dev/score-ledger-system/internal/models"
	"github.com/shopspring/decimal"
)

// MemoryLedgerStore keeps balances and the audit log in mutex-guarded
// maps. A single mutex makes every method, including the two-row
// transfer, trivially atomic.
type MemoryLedgerStore struct {
	mu       sync.Mutex
	balances map[int64]decimal.Decimal
	audits   []models.AuditEntry // append order doubles as row order
}

// NewMemoryLedgerStore creates an empty store.
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		balances: make(map[int64]decimal.Decimal),
	}
}

func (m *MemoryLedgerStore) GetOrCreateBalance(ctx context.Context, uid int64) (models.BalanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	score, ok := m.balances[uid]
	if !ok {
		score = decimal.Zero
		m.balances[uid] = score
	}
	return models.BalanceRecord{UID: uid, Score: score}, nil
}

func (m *MemoryLedgerStore) ReplaceBalance(ctx context.Context, uid int64, score decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.balances[uid] = score
	return nil
}

func (m *MemoryLedgerStore) ApplyTransfer(ctx context.Context, from, to models.BalanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.balances[from.UID] = from.Score
	m.balances[to.UID] = to.Score
	return nil
}

func (m *MemoryLedgerStore) InsertAudit(ctx context.Context, entry models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.audits = append(m.audits, entry)
	return nil
}

func (m *MemoryLedgerStore) SelectAuditByOperator(ctx context.Context, operatorUID int64, limit int) ([]models.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Walk newest-insert-first so the stable sort below keeps later rows
	// ahead of earlier ones when timestamps tie.
	var result []models.AuditEntry
	for i := len(m.audits) - 1; i >= 0; i-- {
		if m.audits[i].OperatorUID == operatorUID {
			result = append(result, m.audits[i])
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MemoryLedgerStore) SelectBalances(ctx context.Context, uids []int64, limit int) ([]models.BalanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.BalanceRecord
	for _, uid := range uids {
		if score, ok := m.balances[uid]; ok {
			result = append(result, models.BalanceRecord{UID: uid, Score: score})
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score.GreaterThan(result[j].Score)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
