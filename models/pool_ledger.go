// models/pool_ledger.go
package models

import "time"

// PoolLedgerID is the primary key of the single pool row. Round state is reused across rounds.
const PoolLedgerID = 1

// PoolLedger is the shared round state.
type PoolLedger struct {
	ID           uint  `gorm:"primaryKey;autoIncrement:false" json:"-"`
	CurrentPot   int64 `gorm:"not null;default:0;check:current_pot >= 0" json:"current_pot"`
	TotalEntries int64 `gorm:"not null;default:0" json:"total_entries"`

	// Last settlement, all three set together or not at all
	LastWinnerIdentity *string    `gorm:"type:varchar(64)" json:"-"`
	LastWinnerAmount   *int64     `json:"-"`
	LastWinnerAt       *time.Time `json:"-"`

	UpdatedAt time.Time `json:"updated_at"`
}

// LastWinner is the record of the most recent settlement.
type LastWinner struct {
	Identity  string    `json:"wallet"`
	Amount    int64     `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// LastWinner returns nil until the first settlement.
func (p *PoolLedger) LastWinner() *LastWinner {
	if p.LastWinnerIdentity == nil || p.LastWinnerAmount == nil || p.LastWinnerAt == nil {
		return nil
	}
	return &LastWinner{
		Identity:  *p.LastWinnerIdentity,
		Amount:    *p.LastWinnerAmount,
		Timestamp: *p.LastWinnerAt,
	}
}

func (p *PoolLedger) SetLastWinner(identity string, amount int64, at time.Time) {
	p.LastWinnerIdentity = &identity
	p.LastWinnerAmount = &amount
	p.LastWinnerAt = &at
}
