package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arena-pot-ledger/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockPool returns the pool row locked for update, creating it on first use.
// It is always the first lock an operation takes.
func lockPool(tx *gorm.DB) (*models.PoolLedger, error) {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.PoolLedger{ID: models.PoolLedgerID}).Error; err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	var pool models.PoolLedger
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&pool, models.PoolLedgerID).Error; err != nil {
		return nil, fmt.Errorf("lock pool: %w", err)
	}
	return &pool, nil
}

// readPool never creates the pool; before the first entry it reads as zero.
func readPool(db *gorm.DB) (*models.PoolLedger, error) {
	var pool models.PoolLedger
	err := db.First(&pool, models.PoolLedgerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.PoolLedger{ID: models.PoolLedgerID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pool: %w", err)
	}
	return &pool, nil
}

// Reconciliation compares what the vault holds with what the pool owes.
type Reconciliation struct {
	VaultBalance int64     `json:"vault_balance"`
	CurrentPot   int64     `json:"current_pot"`
	Surplus      int64     `json:"surplus"`
	CheckedAt    time.Time `json:"checked_at"`
}

func (r Reconciliation) Balanced() bool {
	return r.Surplus >= 0
}

// Reconcile reads the vault and the pot in one snapshot. The returned
// Reconciliation is filled in even when it fails with ErrVaultUnderfunded.
func (l *Ledger) Reconcile(ctx context.Context) (Reconciliation, error) {
	var rec Reconciliation
	err := l.atomically(ctx, func(tx *gorm.DB) error {
		pool, err := readPool(tx)
		if err != nil {
			return err
		}
		vault, err := holdingBalance(tx, VaultAddress)
		if err != nil {
			return err
		}
		rec = Reconciliation{
			VaultBalance: vault,
			CurrentPot:   pool.CurrentPot,
			Surplus:      vault - pool.CurrentPot,
			CheckedAt:    l.now(),
		}
		return nil
	})
	if err != nil {
		return rec, err
	}
	if !rec.Balanced() {
		l.logger.Error("vault underfunded",
			zap.Int64("vault_balance", rec.VaultBalance),
			zap.Int64("current_pot", rec.CurrentPot))
		return rec, fmt.Errorf("%w: vault %d, pot %d", ErrVaultUnderfunded, rec.VaultBalance, rec.CurrentPot)
	}
	return rec, nil
}
