package ledger

import (
	"context"
	"errors"
	"fmt"

	"arena-pot-ledger/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StakeReceipt reports a stake balance change.
type StakeReceipt struct {
	OperationID string `json:"operation_id"`
	Owner       string `json:"owner"`
	Amount      int64  `json:"amount"`
	Balance     int64  `json:"balance"`
}

// DepositToStake moves amount from the caller's wallet into their stake
// account, creating the account if needed. No fee is taken.
func (l *Ledger) DepositToStake(ctx context.Context, caller string, amount int64) (*StakeReceipt, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := ValidateParticipant(caller); err != nil {
		return nil, err
	}

	opID := uuid.NewString()
	var receipt *StakeReceipt

	err := l.atomically(ctx, func(tx *gorm.DB) error {
		if err := l.custody.checkWallet(tx, caller); err != nil {
			return err
		}
		acct, _, err := l.accounts.LookupOrCreate(tx, caller)
		if err != nil {
			return err
		}

		wallet := externalHolding(caller)
		available, err := l.custody.Available(tx, wallet)
		if err != nil {
			return err
		}
		if available < amount {
			return fmt.Errorf("%w: wallet holds %d, deposit needs %d", ErrInsufficientFunds, available, amount)
		}

		balance, err := addChecked(acct.Balance, amount)
		if err != nil {
			return fmt.Errorf("stake balance: %w", err)
		}
		if err := l.custody.Transfer(tx, opID, wallet, stakeHolding(acct), amount, "stake deposit"); err != nil {
			return err
		}
		acct.Balance = balance
		if err := tx.Save(acct).Error; err != nil {
			return fmt.Errorf("save stake account %s: %w", caller, err)
		}

		receipt = &StakeReceipt{OperationID: opID, Owner: caller, Amount: amount, Balance: acct.Balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("stake deposit",
		zap.String("op", opID),
		zap.String("owner", caller),
		zap.Int64("amount", amount),
		zap.Int64("balance", receipt.Balance))
	l.notify(Event{Kind: EventDeposit, Identity: caller, Amount: amount, Path: models.PaymentPathPrefunded, At: l.now()})
	return receipt, nil
}

// WithdrawFromStake returns amount from the caller's stake account to their wallet.
func (l *Ledger) WithdrawFromStake(ctx context.Context, caller string, amount int64) (*StakeReceipt, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := ValidateParticipant(caller); err != nil {
		return nil, err
	}

	opID := uuid.NewString()
	var receipt *StakeReceipt

	err := l.atomically(ctx, func(tx *gorm.DB) error {
		if err := l.custody.checkWallet(tx, caller); err != nil {
			return err
		}
		acct, err := l.accounts.Lookup(tx, caller)
		if errors.Is(err, ErrAccountNotFound) {
			return fmt.Errorf("%w: %s has no stake account", ErrInsufficientPrefundedBalance, caller)
		}
		if err != nil {
			return err
		}
		if acct.Balance < amount {
			return fmt.Errorf("%w: balance %d, withdrawal needs %d", ErrInsufficientPrefundedBalance, acct.Balance, amount)
		}

		if err := l.custody.Transfer(tx, opID, stakeHolding(acct), externalHolding(caller), amount, "stake withdrawal"); err != nil {
			return err
		}
		acct.Balance -= amount
		if err := tx.Save(acct).Error; err != nil {
			return fmt.Errorf("save stake account %s: %w", caller, err)
		}

		receipt = &StakeReceipt{OperationID: opID, Owner: caller, Amount: amount, Balance: acct.Balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("stake withdrawal",
		zap.String("op", opID),
		zap.String("owner", caller),
		zap.Int64("amount", amount),
		zap.Int64("balance", receipt.Balance))
	l.notify(Event{Kind: EventWithdrawal, Identity: caller, Amount: amount, Path: models.PaymentPathPrefunded, At: l.now()})
	return receipt, nil
}
