package interfaces

import "github.com/shopspring/decimal"

// QuotaTracker counts amounts consumed per user for the current calendar
// day. One instance exists per quota kind (credit, debit).
//
// Check and Increase are each safe for concurrent use but are not atomic
// as a pair. The ledger keeps the check-before-increase ordering, which
// leaves a narrow window where concurrent operations can overshoot the
// cap. That window is inherited behavior, kept deliberately.
type QuotaTracker interface {
	// Check reports whether charging amount to uid would stay within the
	// daily cap.
	Check(uid int64, amount decimal.Decimal) bool

	// Increase charges amount to uid for the current day.
	Increase(uid int64, amount decimal.Decimal)

	// Cap returns the configured daily cap.
	Cap() decimal.Decimal
}
