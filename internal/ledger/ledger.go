package ledger

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/karasu-dev/score-ledger-system/internal/interfaces"
	"github.com/karasu-dev/score-ledger-system/internal/models"
	"github.com/shopspring/decimal"
)

const (
	// DefaultHistoryLimit is used when History is called with limit <= 0.
	DefaultHistoryLimit = 5
	// DefaultRankLimit is used when Rank is called with limit <= 0.
	DefaultRankLimit = 10

	transferReason = "transfer"
)

// Ledger performs all balance mutations and queries. It holds no balance
// state of its own: every operation re-reads current state from the
// store, and per-user mutexes serialize the read-validate-write sequence
// so concurrent mutations on one user cannot lose updates.
type Ledger struct {
	store     interfaces.LedgerStore
	publisher interfaces.EventPublisher // nil disables event publishing
	logger    *slog.Logger

	creditQuota interfaces.QuotaTracker // nil when the credit cap is disabled
	debitQuota  interfaces.QuotaTracker // nil when the debit cap is disabled

	muMap map[int64]*sync.Mutex // per-user mutexes
	mapMu sync.Mutex            // protects muMap itself

	now func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithCreditQuota enables the daily credit cap.
func WithCreditQuota(t interfaces.QuotaTracker) Option {
	return func(l *Ledger) { l.creditQuota = t }
}

// WithDebitQuota enables the daily debit cap.
func WithDebitQuota(t interfaces.QuotaTracker) Option {
	return func(l *Ledger) { l.debitQuota = t }
}

// WithPublisher emits a ScoreChanged event after each successful
// mutation. Delivery is asynchronous and best-effort.
func WithPublisher(p interfaces.EventPublisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

// WithLogger replaces the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithClock replaces the wall clock used for audit timestamps. Used by
// tests to make history ordering deterministic.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates a Ledger on top of the given store.
func NewLedger(store interfaces.LedgerStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		logger: slog.Default(),
		muMap:  make(map[int64]*sync.Mutex),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// userLock returns the mutex guarding mutations on uid, creating it on
// first use. Locks are never released from the map; the user population
// is small and long-lived.
func (l *Ledger) userLock(uid int64) *sync.Mutex {
	l.mapMu.Lock()
	defer l.mapMu.Unlock()

	mu, ok := l.muMap[uid]
	if !ok {
		mu = &sync.Mutex{}
		l.muMap[uid] = mu
	}
	return mu
}

// ParseAmount converts a caller-supplied amount string into a decimal at
// the ledger's two-digit scale. Malformed input is an
// InvalidArgumentError.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, &InvalidArgumentError{Reason: "malformed amount " + strings.TrimSpace(s)}
	}
	return d.Round(2), nil
}

// normalizeAmount rounds to the ledger scale and rejects non-positive
// amounts. Every mutating operation goes through this first.
func normalizeAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	amount = amount.Round(2)
	if amount.Sign() <= 0 {
		return decimal.Zero, &InvalidArgumentError{Reason: "amount must be positive"}
	}
	return amount, nil
}

// GetBalance returns uid's current score, creating a zero-score record
// if none exists.
func (l *Ledger) GetBalance(ctx context.Context, uid int64) (decimal.Decimal, error) {
	rec, err := l.store.GetOrCreateBalance(ctx, uid)
	if err != nil {
		return decimal.Zero, &StoreError{Op: "get balance", Err: err}
	}
	return rec.Score, nil
}

// HasSufficient reports whether uid's balance covers amount. It is a
// defensive predicate: store failures degrade to false instead of
// propagating.
func (l *Ledger) HasSufficient(ctx context.Context, uid int64, amount decimal.Decimal) bool {
	bal, err := l.GetBalance(ctx, uid)
	if err != nil {
		l.logger.Warn("sufficiency check degraded to false", "uid", uid, "error", err)
		return false
	}
	return bal.Sub(amount).Sign() >= 0
}

// Credit increases uid's balance by amount and returns the new balance.
// With a credit quota configured, a credit that would push the day's
// credited total past the cap fails with QuotaExceededError before any
// mutation.
func (l *Ledger) Credit(ctx context.Context, uid int64, amount decimal.Decimal, reason string) (decimal.Decimal, error) {
	amount, err := normalizeAmount(amount)
	if err != nil {
		return decimal.Zero, err
	}

	mu := l.userLock(uid)
	mu.Lock()
	defer mu.Unlock()

	rec, err := l.store.GetOrCreateBalance(ctx, uid)
	if err != nil {
		return decimal.Zero, &StoreError{Op: "credit", Err: err}
	}

	if l.creditQuota != nil && !l.creditQuota.Check(uid, amount) {
		return decimal.Zero, &QuotaExceededError{Cap: l.creditQuota.Cap(), Kind: QuotaCredit}
	}

	next := rec.Score.Add(amount)
	if err := l.store.ReplaceBalance(ctx, uid, next); err != nil {
		return decimal.Zero, &StoreError{Op: "credit", Err: err}
	}

	if err := l.writeAudit(ctx, uid, uid, models.DirectionCredit, amount, reason); err != nil {
		return decimal.Zero, err
	}

	if l.creditQuota != nil {
		l.creditQuota.Increase(uid, amount)
	}

	return next, nil
}

// Debit decreases uid's balance by amount and returns the new balance.
// Without force, a debit past zero fails with InsufficientBalanceError
// before the quota is even consulted. With force the balance may go
// negative.
func (l *Ledger) Debit(ctx context.Context, uid int64, amount decimal.Decimal, reason string, force bool) (decimal.Decimal, error) {
	amount, err := normalizeAmount(amount)
	if err != nil {
		return decimal.Zero, err
	}

	mu := l.userLock(uid)
	mu.Lock()
	defer mu.Unlock()

	rec, err := l.store.GetOrCreateBalance(ctx, uid)
	if err != nil {
		return decimal.Zero, &StoreError{Op: "debit", Err: err}
	}

	next := rec.Score.Sub(amount)
	if next.Sign() < 0 && !force {
		return decimal.Zero, &InsufficientBalanceError{Need: amount, Have: rec.Score}
	}

	if l.debitQuota != nil && !l.debitQuota.Check(uid, amount) {
		return decimal.Zero, &QuotaExceededError{Cap: l.debitQuota.Cap(), Kind: QuotaDebit}
	}

	if err := l.store.ReplaceBalance(ctx, uid, next); err != nil {
		return decimal.Zero, &StoreError{Op: "debit", Err: err}
	}

	if err := l.writeAudit(ctx, uid, uid, models.DirectionDebit, amount, reason); err != nil {
		return decimal.Zero, err
	}

	if l.debitQuota != nil {
		l.debitQuota.Increase(uid, amount)
	}

	return next, nil
}

// Transfer moves amount from one user to another and returns both new
// balances, sender first. The sufficiency check follows debit semantics
// on the sender (respecting force); the receiver is checked against the
// credit cap and the sender against the debit cap before the two-row
// update, which the store applies as a single transaction. One audit
// entry records the debit side with the receiver as target.
func (l *Ledger) Transfer(ctx context.Context, fromUID, toUID int64, amount decimal.Decimal, force bool) (decimal.Decimal, decimal.Decimal, error) {
	amount, err := normalizeAmount(amount)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if fromUID == toUID {
		return decimal.Zero, decimal.Zero, &InvalidArgumentError{Reason: "transfer to self"}
	}

	// Lock both users in ascending uid order so overlapping transfers
	// cannot deadlock.
	first, second := l.userLock(fromUID), l.userLock(toUID)
	if toUID < fromUID {
		first, second = second, first
	}
	first.Lock()
	defer first.Unlock()
	second.Lock()
	defer second.Unlock()

	fromRec, err := l.store.GetOrCreateBalance(ctx, fromUID)
	if err != nil {
		return decimal.Zero, decimal.Zero, &StoreError{Op: "transfer", Err: err}
	}
	toRec, err := l.store.GetOrCreateBalance(ctx, toUID)
	if err != nil {
		return decimal.Zero, decimal.Zero, &StoreError{Op: "transfer", Err: err}
	}

	fromNext := fromRec.Score.Sub(amount)
	if fromNext.Sign() < 0 && !force {
		return decimal.Zero, decimal.Zero, &InsufficientBalanceError{Need: amount, Have: fromRec.Score}
	}

	if l.creditQuota != nil && !l.creditQuota.Check(toUID, amount) {
		return decimal.Zero, decimal.Zero, &QuotaExceededError{Cap: l.creditQuota.Cap(), Kind: QuotaCredit}
	}
	if l.debitQuota != nil && !l.debitQuota.Check(fromUID, amount) {
		return decimal.Zero, decimal.Zero, &QuotaExceededError{Cap: l.debitQuota.Cap(), Kind: QuotaDebit}
	}

	toNext := toRec.Score.Add(amount)
	if err := l.store.ApplyTransfer(ctx,
		models.BalanceRecord{UID: fromUID, Score: fromNext},
		models.BalanceRecord{UID: toUID, Score: toNext},
	); err != nil {
		return decimal.Zero, decimal.Zero, &StoreError{Op: "transfer", Err: err}
	}

	if err := l.writeAudit(ctx, toUID, fromUID, models.DirectionDebit, amount, transferReason); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	// Quota counters move only after the transaction committed.
	if l.debitQuota != nil {
		l.debitQuota.Increase(fromUID, amount)
	}
	if l.creditQuota != nil {
		l.creditQuota.Increase(toUID, amount)
	}

	return fromNext, toNext, nil
}

// History returns audit entries operated by uid, newest first, truncated
// to limit. An empty log yields an empty slice, not an error.
func (l *Ledger) History(ctx context.Context, uid int64, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	entries, err := l.store.SelectAuditByOperator(ctx, uid, limit)
	if err != nil {
		return nil, &StoreError{Op: "history", Err: err}
	}
	return entries, nil
}

// Rank returns the balance records of the given member set ordered by
// score descending, truncated to limit. The member set comes from the
// caller's roster lookup; an empty set yields an empty result.
func (l *Ledger) Rank(ctx context.Context, memberIDs []int64, limit int) ([]models.BalanceRecord, error) {
	if limit <= 0 {
		limit = DefaultRankLimit
	}
	if len(memberIDs) == 0 {
		return nil, nil
	}
	recs, err := l.store.SelectBalances(ctx, memberIDs, limit)
	if err != nil {
		return nil, &StoreError{Op: "rank", Err: err}
	}
	return recs, nil
}

// writeAudit appends one audit entry and hands it to the publisher.
func (l *Ledger) writeAudit(ctx context.Context, targetUID, operatorUID int64, dir models.Direction, amount decimal.Decimal, reason string) error {
	entry := models.AuditEntry{
		ID:          uuid.New().String(),
		TargetUID:   targetUID,
		OperatorUID: operatorUID,
		Direction:   dir,
		Amount:      amount,
		Reason:      reason,
		CreatedAt:   l.now(),
	}
	if err := l.store.InsertAudit(ctx, entry); err != nil {
		return &StoreError{Op: "write audit", Err: err}
	}
	l.publish(entry)
	return nil
}

// publish emits a ScoreChanged event without holding up the operation.
// Broker failures are logged and dropped.
func (l *Ledger) publish(entry models.AuditEntry) {
	if l.publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		event := eventFromEntry(entry)
		if err := l.publisher.Publish(ctx, event); err != nil {
			l.logger.Warn("score event publish failed",
				"entry_id", entry.ID, "error", err)
		}
	}()
}
