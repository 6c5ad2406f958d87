package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arena-pot-ledger/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EntryReceipt is what a participant gets back for one paid entry.
type EntryReceipt struct {
	OperationID  string             `json:"operation_id"`
	Player       string             `json:"player"`
	Path         models.PaymentPath `json:"payment_path"`
	TreasuryFee  int64              `json:"treasury_fee"`
	PoolFee      int64              `json:"pool_fee"`
	CurrentPot   int64              `json:"current_pot"`
	TotalEntries int64              `json:"total_entries"`
	StakeBalance int64              `json:"stake_balance"`
	EnteredAt    time.Time          `json:"entered_at"`
}

// EnterCombat pays the entry fee from the caller's own wallet.
func (l *Ledger) EnterCombat(ctx context.Context, caller string) (*EntryReceipt, error) {
	if err := ValidateParticipant(caller); err != nil {
		return nil, err
	}

	opID := uuid.NewString()
	treasuryFee, poolFee := EntrySplit()
	var receipt *EntryReceipt

	err := l.atomically(ctx, func(tx *gorm.DB) error {
		if err := l.custody.checkWallet(tx, caller); err != nil {
			return err
		}
		pool, err := lockPool(tx)
		if err != nil {
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
		if available < EntryFee {
			return fmt.Errorf("%w: wallet holds %d, entry costs %d", ErrInsufficientFunds, available, EntryFee)
		}

		if err := l.custody.Transfer(tx, opID, wallet, treasuryHolding(), treasuryFee, "entry treasury fee"); err != nil {
			return err
		}
		if err := l.custody.Transfer(tx, opID, wallet, vaultHolding(), poolFee, "entry pool fee"); err != nil {
			return err
		}

		receipt, err = l.recordEntry(tx, opID, pool, acct, models.PaymentPathExternal)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.entryCommitted(receipt)
	return receipt, nil
}

// EnterCombatPrefunded pays the entry fee out of the caller's stake balance.
func (l *Ledger) EnterCombatPrefunded(ctx context.Context, caller string) (*EntryReceipt, error) {
	if err := ValidateParticipant(caller); err != nil {
		return nil, err
	}
	return l.enterPrefunded(ctx, caller)
}

// EnterCombatForPlayer lets the operator spend player's stake balance on an
// entry, so the player never signs or pays a transaction fee.
func (l *Ledger) EnterCombatForPlayer(ctx context.Context, caller, player string) (*EntryReceipt, error) {
	if err := AuthorizeOperator(caller); err != nil {
		return nil, err
	}
	if err := ValidateParticipant(player); err != nil {
		return nil, err
	}
	return l.enterPrefunded(ctx, player)
}

func (l *Ledger) enterPrefunded(ctx context.Context, player string) (*EntryReceipt, error) {
	opID := uuid.NewString()
	treasuryFee, poolFee := EntrySplit()
	var receipt *EntryReceipt

	err := l.atomically(ctx, func(tx *gorm.DB) error {
		if err := l.custody.checkWallet(tx, player); err != nil {
			return err
		}
		pool, err := lockPool(tx)
		if err != nil {
			return err
		}
		acct, err := l.accounts.Lookup(tx, player)
		if errors.Is(err, ErrAccountNotFound) {
			return fmt.Errorf("%w: %s has no stake account", ErrInsufficientPrefundedBalance, player)
		}
		if err != nil {
			return err
		}
		if acct.Balance < EntryFee {
			return fmt.Errorf("%w: balance %d, entry costs %d", ErrInsufficientPrefundedBalance, acct.Balance, EntryFee)
		}

		stake := stakeHolding(acct)
		if err := l.custody.Transfer(tx, opID, stake, treasuryHolding(), treasuryFee, "entry treasury fee"); err != nil {
			return err
		}
		if err := l.custody.Transfer(tx, opID, stake, vaultHolding(), poolFee, "entry pool fee"); err != nil {
			return err
		}
		acct.Balance -= EntryFee

		receipt, err = l.recordEntry(tx, opID, pool, acct, models.PaymentPathPrefunded)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.entryCommitted(receipt)
	return receipt, nil
}

// recordEntry applies the counter updates shared by every entry path and
// saves both records. Fees must already have moved.
func (l *Ledger) recordEntry(tx *gorm.DB, opID string, pool *models.PoolLedger, acct *models.StakeAccount, path models.PaymentPath) (*EntryReceipt, error) {
	treasuryFee, poolFee := EntrySplit()
	now := l.now()

	pot, err := addChecked(pool.CurrentPot, poolFee)
	if err != nil {
		return nil, fmt.Errorf("pot: %w", err)
	}
	pool.CurrentPot = pot
	pool.TotalEntries++

	acct.TotalEntries++
	acct.LastEntryTime = &now
	acct.LastPaymentPath = path

	if err := tx.Save(pool).Error; err != nil {
		return nil, fmt.Errorf("save pool: %w", err)
	}
	if err := tx.Save(acct).Error; err != nil {
		return nil, fmt.Errorf("save stake account %s: %w", acct.Owner, err)
	}

	return &EntryReceipt{
		OperationID:  opID,
		Player:       acct.Owner,
		Path:         path,
		TreasuryFee:  treasuryFee,
		PoolFee:      poolFee,
		CurrentPot:   pool.CurrentPot,
		TotalEntries: pool.TotalEntries,
		StakeBalance: acct.Balance,
		EnteredAt:    now,
	}, nil
}

func (l *Ledger) entryCommitted(r *EntryReceipt) {
	l.logger.Info("combat entry",
		zap.String("op", r.OperationID),
		zap.String("player", r.Player),
		zap.Stringer("path", r.Path),
		zap.Int64("pot", r.CurrentPot),
		zap.Int64("total_entries", r.TotalEntries))
	l.notify(Event{
		Kind:         EventEntry,
		Identity:     r.Player,
		Amount:       EntryFee,
		Path:         r.Path,
		CurrentPot:   r.CurrentPot,
		TotalEntries: r.TotalEntries,
		At:           r.EnteredAt,
	})
}
