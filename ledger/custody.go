package ledger

import (
	"errors"
	"fmt"

	"arena-pot-ledger/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// fundingSource is the journal origin of credits from the wallet funding feed.
const fundingSource = "funding"

// HoldingRef names a custody address and what it holds funds for.
type HoldingRef struct {
	Address string
	Kind    models.HoldingKind
}

func externalHolding(identity string) HoldingRef {
	return HoldingRef{Address: identity, Kind: models.HoldingKindExternal}
}

func stakeHolding(acct *models.StakeAccount) HoldingRef {
	return HoldingRef{Address: acct.Address, Kind: models.HoldingKindStake}
}

func vaultHolding() HoldingRef {
	return HoldingRef{Address: VaultAddress, Kind: models.HoldingKindVault}
}

func treasuryHolding() HoldingRef {
	return HoldingRef{Address: TreasuryIdentity, Kind: models.HoldingKindTreasury}
}

// Custody moves lamports between holdings. Every method must run inside the
// caller's transaction; a failed move leaves nothing behind once it rolls back.
type Custody struct {
	clock clockwork.Clock
}

// Available returns the locked balance at ref, zero when nothing was ever held there.
func (c *Custody) Available(tx *gorm.DB, ref HoldingRef) (int64, error) {
	var h models.Holding
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("address = ?", ref.Address).
		First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read holding %s: %w", ref.Address, err)
	}
	return h.Balance, nil
}

// lock returns the holding at ref locked for update, creating an empty one if needed.
func (c *Custody) lock(tx *gorm.DB, ref HoldingRef) (*models.Holding, error) {
	seed := models.Holding{Address: ref.Address, Kind: ref.Kind}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, fmt.Errorf("create holding %s: %w", ref.Address, err)
	}
	var h models.Holding
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("address = ?", ref.Address).
		First(&h).Error; err != nil {
		return nil, fmt.Errorf("lock holding %s: %w", ref.Address, err)
	}
	if h.Kind != ref.Kind {
		return nil, fmt.Errorf("%w: %s holds %s funds, not %s", ErrInvalidIdentity, ref.Address, h.Kind, ref.Kind)
	}
	return &h, nil
}

// checkWallet fails when address is custody the ledger keeps for something
// other than a wallet: any non-external holding or a stake account address.
func (c *Custody) checkWallet(tx *gorm.DB, address string) error {
	var held []models.Holding
	if err := tx.Where("address = ?", address).Limit(1).Find(&held).Error; err != nil {
		return fmt.Errorf("read holding %s: %w", address, err)
	}
	if len(held) == 1 && held[0].Kind != models.HoldingKindExternal {
		return fmt.Errorf("%w: %s is %s custody", ErrInvalidIdentity, address, held[0].Kind)
	}

	var stakes int64
	if err := tx.Model(&models.StakeAccount{}).Where("address = ?", address).Count(&stakes).Error; err != nil {
		return fmt.Errorf("read stake accounts: %w", err)
	}
	if stakes > 0 {
		return fmt.Errorf("%w: %s is stake custody", ErrInvalidIdentity, address)
	}
	return nil
}

func (c *Custody) setBalance(tx *gorm.DB, address string, balance int64) error {
	return tx.Model(&models.Holding{}).
		Where("address = ?", address).
		Update("balance", balance).Error
}

func (c *Custody) journal(tx *gorm.DB, opID, from, to string, amount int64, memo string) error {
	return tx.Create(&models.Transfer{
		ID:          uuid.NewString(),
		OperationID: opID,
		From:        from,
		To:          to,
		Amount:      amount,
		Memo:        memo,
		CreatedAt:   c.clock.Now(),
	}).Error
}

// Transfer moves amount from one holding to another and journals the move.
func (c *Custody) Transfer(tx *gorm.DB, opID string, from, to HoldingRef, amount int64, memo string) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	if from.Address == to.Address {
		return fmt.Errorf("%w: transfer from %s to itself", ErrInvalidIdentity, from.Address)
	}
	if amount == 0 {
		return nil
	}

	src, err := c.lock(tx, from)
	if err != nil {
		return err
	}
	if src.Balance < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientFunds, from.Address, src.Balance, amount)
	}
	dst, err := c.lock(tx, to)
	if err != nil {
		return err
	}
	credited, err := addChecked(dst.Balance, amount)
	if err != nil {
		return fmt.Errorf("credit %s: %w", to.Address, err)
	}

	if err := c.setBalance(tx, src.Address, src.Balance-amount); err != nil {
		return fmt.Errorf("debit %s: %w", src.Address, err)
	}
	if err := c.setBalance(tx, dst.Address, credited); err != nil {
		return fmt.Errorf("credit %s: %w", dst.Address, err)
	}
	return c.journal(tx, opID, from.Address, to.Address, amount, memo)
}

// Credit adds funds arriving from outside the ledger.
func (c *Custody) Credit(tx *gorm.DB, opID string, to HoldingRef, amount int64, memo string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	dst, err := c.lock(tx, to)
	if err != nil {
		return err
	}
	credited, err := addChecked(dst.Balance, amount)
	if err != nil {
		return fmt.Errorf("credit %s: %w", to.Address, err)
	}
	if err := c.setBalance(tx, dst.Address, credited); err != nil {
		return fmt.Errorf("credit %s: %w", dst.Address, err)
	}
	return c.journal(tx, opID, fundingSource, to.Address, amount, memo)
}
