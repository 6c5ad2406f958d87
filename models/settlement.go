package models

import "time"

// PayoutRoute is where a settlement paid the pot.
type PayoutRoute string

const (
	PayoutRouteExternal PayoutRoute = "external"
	PayoutRouteStake    PayoutRoute = "stake"
)

// Settlement is the audit record of one prize payout. Proof is kept verbatim.
type Settlement struct {
	ID         string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Winner     string      `gorm:"type:varchar(64);not null;index" json:"winner"`
	Operator   string      `gorm:"type:varchar(64);not null" json:"operator"`
	Amount     int64       `gorm:"not null" json:"amount"`
	Route      PayoutRoute `gorm:"type:varchar(16);not null" json:"route"`
	Proof      string      `gorm:"type:text" json:"proof"`
	ArchiveURL string      `gorm:"type:text" json:"archive_url,omitempty"`
	SettledAt  time.Time   `gorm:"not null;index" json:"settled_at"`
}

// FundingEvent marks an external credit from the wallet funding feed as applied.
type FundingEvent struct {
	EventID    string    `gorm:"primaryKey;type:varchar(128)" json:"id"`
	Address    string    `gorm:"type:varchar(64);not null;index" json:"address"`
	Amount     int64     `gorm:"not null" json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
	AppliedAt  time.Time `gorm:"autoCreateTime" json:"applied_at"`
}
