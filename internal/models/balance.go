package models

import "github.com/shopspring/decimal"

// BalanceRecord is one row of the balances table: a user's current score.
// At most one record exists per uid; records are created lazily with a
// zero score and never deleted.
type BalanceRecord struct {
	UID   int64           `json:"uid"`
	Score decimal.Decimal `json:"score"`
}
