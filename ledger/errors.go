package ledger

import (
	"errors"
	"math"
)

var (
	ErrUnauthorizedOperator         = errors.New("unauthorized operator")
	ErrEmptyPot                     = errors.New("pot is empty")
	ErrInsufficientFunds            = errors.New("insufficient funds")
	ErrInsufficientPrefundedBalance = errors.New("insufficient prefunded balance")

	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrInvalidIdentity  = errors.New("invalid identity")
	ErrAccountNotFound  = errors.New("stake account not found")
	ErrVaultUnderfunded = errors.New("vault balance below current pot")
	ErrOverflow         = errors.New("arithmetic overflow")
)

func addChecked(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}
