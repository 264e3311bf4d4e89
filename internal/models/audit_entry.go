package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction says which way a mutation moved the target's balance.
type Direction int

const (
	DirectionCredit Direction = 0
	DirectionDebit  Direction = 1
)

func (d Direction) String() string {
	if d == DirectionDebit {
		return "debit"
	}
	return "credit"
}

// AuditEntry is one row of the score_log table, written once per
// completed mutation and never updated or deleted. Amount is always
// non-negative; Direction carries the sign.
//
// OperatorUID is the actor who invoked the operation, TargetUID is whose
// balance changed. The two differ only for transfers.
type AuditEntry struct {
	ID          string          `json:"id"`
	TargetUID   int64           `json:"target_uid"`
	OperatorUID int64           `json:"operator_uid"`
	Direction   Direction       `json:"direction"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SignedAmount returns the amount under the signed convention used by
// event consumers: negative for debits, positive for credits.
func (e AuditEntry) SignedAmount() decimal.Decimal {
	if e.Direction == DirectionDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}
