// models/stake_account.go
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// PaymentPath records which funding source paid for a participant's most recent entry.
// Stored as a small integer; values are append-only.
type PaymentPath uint8

const (
	PaymentPathExternal  PaymentPath = 0 // participant's own wallet
	PaymentPathPrefunded PaymentPath = 1 // stake account balance
)

func (p PaymentPath) String() string {
	switch p {
	case PaymentPathExternal:
		return "external"
	case PaymentPathPrefunded:
		return "prefunded"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(p))
	}
}

func (p PaymentPath) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *PaymentPath) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "external":
		*p = PaymentPathExternal
	case "prefunded":
		*p = PaymentPathPrefunded
	default:
		return fmt.Errorf("unknown payment path %q", s)
	}
	return nil
}

// StakeAccount is a participant's prefunded balance and play history.
// Owner is immutable; counters only grow.
type StakeAccount struct {
	Owner           string      `gorm:"primaryKey;type:varchar(64)" json:"owner"`
	Address         string      `gorm:"type:varchar(64);not null;uniqueIndex" json:"address"` // custody holding
	Balance         int64       `gorm:"not null;default:0;check:balance >= 0" json:"balance"`
	TotalEntries    int64       `gorm:"not null;default:0" json:"total_entries"`
	TotalWins       int64       `gorm:"not null;default:0" json:"total_wins"`
	TotalWinnings   int64       `gorm:"not null;default:0" json:"total_winnings"`
	LastEntryTime   *time.Time  `json:"last_entry_time,omitempty"`
	LastPaymentPath PaymentPath `gorm:"type:smallint;not null;default:0" json:"last_payment_path"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}
