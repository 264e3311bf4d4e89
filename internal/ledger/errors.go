package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// QuotaKind says which daily cap an operation ran into.
type QuotaKind string

const (
	QuotaCredit QuotaKind = "credit"
	QuotaDebit  QuotaKind = "debit"
)

// StoreError wraps any failure from the ledger store. It is terminal for
// the current operation; retries, if any, belong to the store's own
// transport layer.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// InsufficientBalanceError is returned by unforced debits and transfers
// when the balance cannot cover the amount. The caller may retry with a
// smaller amount or with force.
type InsufficientBalanceError struct {
	Need decimal.Decimal
	Have decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("operation needs %s score, balance is %s", e.Need, e.Have)
}

// QuotaExceededError is returned when a mutation would push a user past
// the daily cap of its kind. Recoverable the next calendar day.
type QuotaExceededError struct {
	Cap  decimal.Decimal
	Kind QuotaKind
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily %s cap of %s score reached", e.Kind, e.Cap)
}

// InvalidArgumentError flags malformed caller input: a non-positive or
// unparseable amount, or an impossible identity pair. A caller bug, not
// worth retrying.
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return "invalid argument: " + e.Reason
}

// IsStoreError reports whether err is (or wraps) a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// IsInsufficientBalance reports whether err is (or wraps) an
// InsufficientBalanceError.
func IsInsufficientBalance(err error) bool {
	var ie *InsufficientBalanceError
	return errors.As(err, &ie)
}

// IsQuotaExceeded reports whether err is (or wraps) a QuotaExceededError.
func IsQuotaExceeded(err error) bool {
	var qe *QuotaExceededError
	return errors.As(err, &qe)
}

// IsInvalidArgument reports whether err is (or wraps) an
// InvalidArgumentError.
func IsInvalidArgument(err error) bool {
	var ae *InvalidArgumentError
	return errors.As(err, &ae)
}
