package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestErrorPredicates_MatchWrapped(t *testing.T) {
	storeErr := &StoreError{Op: "credit", Err: errors.New("connection reset")}
	wrapped := fmt.Errorf("handling request: %w", storeErr)

	assert.True(t, IsStoreError(wrapped))
	assert.False(t, IsInsufficientBalance(wrapped))
	assert.ErrorIs(t, storeErr, storeErr.Err, "StoreError unwraps to its cause")

	insufficient := fmt.Errorf("op: %w", &InsufficientBalanceError{
		Need: decimal.NewFromInt(10),
		Have: decimal.NewFromInt(3),
	})
	assert.True(t, IsInsufficientBalance(insufficient))

	quotaErr := fmt.Errorf("op: %w", &QuotaExceededError{
		Cap:  decimal.NewFromInt(100),
		Kind: QuotaDebit,
	})
	assert.True(t, IsQuotaExceeded(quotaErr))
	assert.False(t, IsQuotaExceeded(insufficient))

	assert.True(t, IsInvalidArgument(fmt.Errorf("op: %w", &InvalidArgumentError{Reason: "bad"})))
}

func TestErrorMessages(t *testing.T) {
	e := &InsufficientBalanceError{Need: decimal.NewFromInt(31), Have: decimal.NewFromInt(30)}
	assert.Contains(t, e.Error(), "31")
	assert.Contains(t, e.Error(), "30")

	q := &QuotaExceededError{Cap: decimal.NewFromInt(100), Kind: QuotaCredit}
	assert.Contains(t, q.Error(), "credit")
	assert.Contains(t, q.Error(), "100")
}
