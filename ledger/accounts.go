package ledger

import (
	"errors"
	"fmt"

	"arena-pot-ledger/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountStore owns the lifecycle of stake accounts: they are created on
// first use with zeroed counters and are never deleted.
type AccountStore struct{}

// Lookup returns owner's stake account locked for update, or ErrAccountNotFound.
func (AccountStore) Lookup(tx *gorm.DB, owner string) (*models.StakeAccount, error) {
	var acct models.StakeAccount
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner = ?", owner).
		First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup stake account %s: %w", owner, err)
	}
	return &acct, nil
}

// LookupOrCreate returns owner's stake account locked for update, creating it
// when absent. created reports whether this call inserted the record.
func (s AccountStore) LookupOrCreate(tx *gorm.DB, owner string) (acct *models.StakeAccount, created bool, err error) {
	address, err := StakeAddress(owner)
	if err != nil {
		return nil, false, err
	}

	seed := models.StakeAccount{
		Owner:           owner,
		Address:         address,
		LastPaymentPath: models.PaymentPathExternal,
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed)
	if res.Error != nil {
		return nil, false, fmt.Errorf("create stake account %s: %w", owner, res.Error)
	}

	acct, err = s.Lookup(tx, owner)
	if err != nil {
		return nil, false, err
	}
	return acct, res.RowsAffected == 1, nil
}

// Find is the read-only variant of Lookup.
func (AccountStore) Find(db *gorm.DB, owner string) (*models.StakeAccount, error) {
	var acct models.StakeAccount
	err := db.Where("owner = ?", owner).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find stake account %s: %w", owner, err)
	}
	return &acct, nil
}
