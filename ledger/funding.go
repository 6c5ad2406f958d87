package ledger

import (
	"context"
	"fmt"
	"time"

	"arena-pot-ledger/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreditExternal applies one deposit seen by the wallet funding feed to an
// external holding. Replaying an eventID is a no-op and reports applied=false.
func (l *Ledger) CreditExternal(ctx context.Context, eventID, address string, amount int64, occurredAt time.Time) (applied bool, err error) {
	if eventID == "" {
		return false, fmt.Errorf("funding event: empty id")
	}
	if amount <= 0 {
		return false, ErrInvalidAmount
	}
	if err := ValidateParticipant(address); err != nil {
		return false, err
	}

	err = l.atomically(ctx, func(tx *gorm.DB) error {
		if err := l.custody.checkWallet(tx, address); err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.FundingEvent{
			EventID:    eventID,
			Address:    address,
			Amount:     amount,
			OccurredAt: occurredAt,
		})
		if res.Error != nil {
			return fmt.Errorf("record funding event %s: %w", eventID, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true
		return l.custody.Credit(tx, eventID, externalHolding(address), amount, "wallet funding")
	})
	if err != nil {
		return false, err
	}

	if applied {
		l.logger.Debug("wallet funded",
			zap.String("event", eventID),
			zap.String("address", address),
			zap.Int64("amount", amount))
		l.notify(Event{Kind: EventFunding, Identity: address, Amount: amount, Path: models.PaymentPathExternal, At: l.now()})
	}
	return applied, nil
}
