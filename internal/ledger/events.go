package ledger

import (
	"github.com/karasu-dev/score-ledger-system/internal/models"
	"github.com/karasu-dev/score-ledger-system/internal/models/events"
)

// eventFromEntry maps an audit entry onto the wire event. The event
// keeps the signed amount convention expected by downstream consumers.
func eventFromEntry(entry models.AuditEntry) events.ScoreChanged {
	return events.ScoreChanged{
		EntryID:     entry.ID,
		TargetUID:   entry.TargetUID,
		OperatorUID: entry.OperatorUID,
		Direction:   entry.Direction.String(),
		Amount:      entry.SignedAmount(),
		Reason:      entry.Reason,
		OccurredAt:  entry.CreatedAt,
	}
}
