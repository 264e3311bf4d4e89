package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScoreChanged is published after every successful balance mutation.
// Amount is signed: negative for debits, positive for credits.
type ScoreChanged struct {
	EntryID     string          `json:"entry_id"`
	TargetUID   int64           `json:"target_uid"`
	OperatorUID int64           `json:"operator_uid"`
	Direction   string          `json:"direction"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason"`
	OccurredAt  time.Time       `json:"occurred_at"`
}
