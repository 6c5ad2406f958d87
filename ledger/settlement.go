package ledger

import (
	"context"
	"fmt"
	"time"

	"arena-pot-ledger/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProofArchive stores a settlement's fairness proof outside the database and
// returns where it can be fetched.
type ProofArchive interface {
	ArchiveProof(ctx context.Context, settlementID string, proof []byte) (string, error)
}

// SettlementReceipt describes one prize payout.
type SettlementReceipt struct {
	SettlementID string             `json:"settlement_id"`
	Winner       string             `json:"winner"`
	Amount       int64              `json:"amount"`
	Route        models.PayoutRoute `json:"route"`
	TotalEntries int64              `json:"total_entries"`
	ArchiveURL   string             `json:"archive_url,omitempty"`
	SettledAt    time.Time          `json:"settled_at"`
}

// ClaimPrize pays the whole pot to winner. Only the operator may call it.
//
// Winners whose last entry was prefunded are paid into their stake account,
// everyone else into their wallet. A winner with no stake account gets one so
// the win is counted. proof is stored as given and never inspected.
func (l *Ledger) ClaimPrize(ctx context.Context, caller, winner, proof string) (*SettlementReceipt, error) {
	if err := AuthorizeOperator(caller); err != nil {
		return nil, err
	}
	if err := ValidateParticipant(winner); err != nil {
		return nil, err
	}

	settlementID := uuid.NewString()
	var receipt *SettlementReceipt

	err := l.atomically(ctx, func(tx *gorm.DB) error {
		if err := l.custody.checkWallet(tx, winner); err != nil {
			return err
		}
		pool, err := lockPool(tx)
		if err != nil {
			return err
		}
		if pool.CurrentPot == 0 {
			return ErrEmptyPot
		}
		pot := pool.CurrentPot

		acct, _, err := l.accounts.LookupOrCreate(tx, winner)
		if err != nil {
			return err
		}

		route := models.PayoutRouteExternal
		dest := externalHolding(winner)
		if acct.LastPaymentPath == models.PaymentPathPrefunded {
			route = models.PayoutRouteStake
			dest = stakeHolding(acct)
		}

		if err := l.custody.Transfer(tx, settlementID, vaultHolding(), dest, pot, "prize payout"); err != nil {
			return err
		}

		if route == models.PayoutRouteStake {
			if acct.Balance, err = addChecked(acct.Balance, pot); err != nil {
				return fmt.Errorf("stake balance: %w", err)
			}
		}
		acct.TotalWins++
		if acct.TotalWinnings, err = addChecked(acct.TotalWinnings, pot); err != nil {
			return fmt.Errorf("total winnings: %w", err)
		}
		if err := tx.Save(acct).Error; err != nil {
			return fmt.Errorf("save stake account %s: %w", winner, err)
		}

		now := l.now()
		pool.SetLastWinner(winner, pot, now)
		pool.CurrentPot = 0
		if err := tx.Save(pool).Error; err != nil {
			return fmt.Errorf("save pool: %w", err)
		}

		if err := tx.Create(&models.Settlement{
			ID:        settlementID,
			Winner:    winner,
			Operator:  caller,
			Amount:    pot,
			Route:     route,
			Proof:     proof,
			SettledAt: now,
		}).Error; err != nil {
			return fmt.Errorf("record settlement: %w", err)
		}

		receipt = &SettlementReceipt{
			SettlementID: settlementID,
			Winner:       winner,
			Amount:       pot,
			Route:        route,
			TotalEntries: pool.TotalEntries,
			SettledAt:    now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("prize settled",
		zap.String("settlement", settlementID),
		zap.String("winner", winner),
		zap.Int64("amount", receipt.Amount),
		zap.String("route", string(receipt.Route)))

	if l.archive != nil && proof != "" {
		receipt.ArchiveURL = l.archiveProof(ctx, settlementID, proof)
	}

	l.notify(Event{
		Kind:         EventSettlement,
		Identity:     winner,
		Amount:       receipt.Amount,
		CurrentPot:   0,
		TotalEntries: receipt.TotalEntries,
		At:           receipt.SettledAt,
	})
	return receipt, nil
}

// archiveProof never fails the settlement; the proof is already in the database.
func (l *Ledger) archiveProof(ctx context.Context, settlementID, proof string) string {
	url, err := l.archive.ArchiveProof(ctx, settlementID, []byte(proof))
	if err != nil {
		l.logger.Warn("proof archive failed", zap.String("settlement", settlementID), zap.Error(err))
		return ""
	}
	if err := l.db.WithContext(ctx).Model(&models.Settlement{}).
		Where("id = ?", settlementID).
		Update("archive_url", url).Error; err != nil {
		l.logger.Warn("record archive url failed", zap.String("settlement", settlementID), zap.Error(err))
	}
	return url
}

// Settlements lists the most recent payouts, newest first.
func (l *Ledger) Settlements(ctx context.Context, limit int) ([]models.Settlement, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var out []models.Settlement
	if err := l.db.WithContext(ctx).
		Order("settled_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	return out, nil
}
