// Package quota tracks cumulative per-user amounts against a daily cap.
package quota

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// DailyLimiter counts the total amount each user has consumed during the
// current local calendar day. Counters reset at local midnight: the
// first call after the day changes starts from zero.
//
// Check and Increase are individually locked but deliberately not atomic
// as a pair; the ledger keeps the check-before-increase call order.
type DailyLimiter struct {
	dailyCap decimal.Decimal
	now      func() time.Time

	mu   sync.Mutex
	day  string // local calendar day of the counters below
	used map[int64]decimal.Decimal
}

// NewDailyLimiter creates a limiter with the given daily cap.
func NewDailyLimiter(dailyCap decimal.Decimal) *DailyLimiter {
	return NewDailyLimiterAt(dailyCap, time.Now)
}

// NewDailyLimiterAt is NewDailyLimiter with an injected clock, used by
// tests to drive the midnight rollover.
func NewDailyLimiterAt(dailyCap decimal.Decimal, now func() time.Time) *DailyLimiter {
	return &DailyLimiter{
		dailyCap: dailyCap,
		now:      now,
		used:     make(map[int64]decimal.Decimal),
	}
}

// Cap returns the configured daily cap.
func (l *DailyLimiter) Cap() decimal.Decimal { return l.dailyCap }

// Check reports whether charging amount to uid keeps the day's total at
// or under the cap.
func (l *DailyLimiter) Check(uid int64, amount decimal.Decimal) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover()
	return l.used[uid].Add(amount).Cmp(l.dailyCap) <= 0
}

// Increase charges amount to uid for the current day.
func (l *DailyLimiter) Increase(uid int64, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover()
	l.used[uid] = l.used[uid].Add(amount)
}

// Used returns the day's cumulative amount for uid.
func (l *DailyLimiter) Used(uid int64) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover()
	return l.used[uid]
}

// rollover drops all counters when the local day has changed. Callers
// must hold l.mu.
func (l *DailyLimiter) rollover() {
	today := l.now().Format(time.DateOnly)
	if l.day != today {
		l.day = today
		l.used = make(map[int64]decimal.Decimal)
	}
}
