// models/holding.go
package models

import "time"

// HoldingKind tells what an address holds funds for.
type HoldingKind string

const (
	HoldingKindExternal HoldingKind = "external" // participant or operator wallet
	HoldingKindStake    HoldingKind = "stake"    // stake account custody
	HoldingKindVault    HoldingKind = "vault"    // escrow vault
	HoldingKindTreasury HoldingKind = "treasury" // protocol fee destination
)

// Holding is the custody balance at one address.
type Holding struct {
	Address   string      `gorm:"primaryKey;type:varchar(64)" json:"address"`
	Kind      HoldingKind `gorm:"type:varchar(16);not null;index" json:"kind"`
	Balance   int64       `gorm:"not null;default:0;check:balance >= 0" json:"balance"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Transfer journals a single custody move. OperationID groups the moves of one ledger operation.
type Transfer struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OperationID string    `gorm:"type:varchar(128);not null;index" json:"operation_id"`
	From        string    `gorm:"column:from_address;type:varchar(64);not null;index" json:"from"`
	To          string    `gorm:"column:to_address;type:varchar(64);not null;index" json:"to"`
	Amount      int64     `gorm:"not null" json:"amount"`
	Memo        string    `gorm:"type:varchar(64)" json:"memo"`
	CreatedAt   time.Time `json:"created_at"`
}
