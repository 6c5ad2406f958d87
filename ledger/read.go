package ledger

import (
	"context"
	"errors"
	"fmt"

	"arena-pot-ledger/models"

	"gorm.io/gorm"
)

// PoolState is a read-only snapshot of the round.
type PoolState struct {
	CurrentPot     int64              `json:"current_pot"`
	TotalEntries   int64              `json:"total_entries"`
	LastWinner     *models.LastWinner `json:"last_winner"`
	VaultAddress   string             `json:"vault_address"`
	VaultBalance   int64              `json:"vault_balance"`
	EntryFee       int64              `json:"entry_fee"`
	TreasuryFeeBps int64              `json:"treasury_fee_bps"`
	TreasuryFee    int64              `json:"treasury_fee"`
	PoolFee        int64              `json:"pool_fee"`
}

// PaymentOptions tells a participant which ways they can pay for the next entry.
type PaymentOptions struct {
	Owner            string              `json:"wallet"`
	CanPayExternal   bool                `json:"can_pay_from_wallet"`
	CanPayPrefunded  bool                `json:"can_pay_from_stake"`
	ExternalBalance  int64               `json:"wallet_balance"`
	PrefundedBalance int64               `json:"stake_balance"`
	LastPaymentPath  *models.PaymentPath `json:"last_payment_path"`
	Recommended      *models.PaymentPath `json:"recommended"`
	EntryFee         int64               `json:"entry_fee"`
}

func holdingBalance(db *gorm.DB, address string) (int64, error) {
	var h models.Holding
	err := db.Where("address = ?", address).First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read holding %s: %w", address, err)
	}
	return h.Balance, nil
}

// PoolState never creates records.
func (l *Ledger) PoolState(ctx context.Context) (*PoolState, error) {
	db := l.db.WithContext(ctx)
	pool, err := readPool(db)
	if err != nil {
		return nil, err
	}
	vault, err := holdingBalance(db, VaultAddress)
	if err != nil {
		return nil, err
	}
	treasuryFee, poolFee := EntrySplit()
	return &PoolState{
		CurrentPot:     pool.CurrentPot,
		TotalEntries:   pool.TotalEntries,
		LastWinner:     pool.LastWinner(),
		VaultAddress:   VaultAddress,
		VaultBalance:   vault,
		EntryFee:       EntryFee,
		TreasuryFeeBps: TreasuryFeeBps,
		TreasuryFee:    treasuryFee,
		PoolFee:        poolFee,
	}, nil
}

func (l *Ledger) StakeAccount(ctx context.Context, owner string) (*models.StakeAccount, error) {
	if err := ValidateIdentity(owner); err != nil {
		return nil, err
	}
	return l.accounts.Find(l.db.WithContext(ctx), owner)
}

// Balance is the custody balance at address, zero if nothing was ever held there.
func (l *Ledger) Balance(ctx context.Context, address string) (int64, error) {
	return holdingBalance(l.db.WithContext(ctx), address)
}

func (l *Ledger) PaymentOptions(ctx context.Context, owner string) (*PaymentOptions, error) {
	if err := ValidateIdentity(owner); err != nil {
		return nil, err
	}
	db := l.db.WithContext(ctx)

	wallet, err := holdingBalance(db, owner)
	if err != nil {
		return nil, err
	}
	opts := &PaymentOptions{
		Owner:           owner,
		ExternalBalance: wallet,
		CanPayExternal:  wallet >= EntryFee,
		EntryFee:        EntryFee,
	}

	acct, err := l.accounts.Find(db, owner)
	switch {
	case errors.Is(err, ErrAccountNotFound):
	case err != nil:
		return nil, err
	default:
		opts.PrefundedBalance = acct.Balance
		opts.CanPayPrefunded = acct.Balance >= EntryFee
		last := acct.LastPaymentPath
		opts.LastPaymentPath = &last
	}

	var rec models.PaymentPath
	switch {
	case opts.CanPayPrefunded:
		rec = models.PaymentPathPrefunded
	case opts.CanPayExternal:
		rec = models.PaymentPathExternal
	default:
		return opts, nil
	}
	opts.Recommended = &rec
	return opts, nil
}
