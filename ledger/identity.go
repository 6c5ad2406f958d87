package ledger

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	// ProgramID seeds every derived custody address.
	ProgramID = "J18DRpsrSncmgAqbjVXdfF5qUdBpXJZZYPqRWY3pyV8z"
	// OperatorIdentity is the only caller allowed to settle prizes and enter on a player's behalf.
	OperatorIdentity = "2pde6PGeMLbXhFkLWzEhpSGFqkhU9eica8RjbrEkwvb5"
	// TreasuryIdentity receives the protocol cut of every entry.
	TreasuryIdentity = "7vzEoA6qPLqGXe5rxmMK7iha63znnLfwGppBrUfELajg"

	identityLen = 32

	stakeSeed = "player"
	vaultSeed = "pot_vault"
)

var (
	programIDBytes = mustDecodeIdentity(ProgramID)

	// VaultAddress is the escrow vault holding every pool contribution until payout.
	VaultAddress = DeriveAddress([]byte(vaultSeed))
)

// ValidateIdentity checks that s is a base58 encoded 32-byte public key.
func ValidateIdentity(s string) error {
	_, err := decodeIdentity(s)
	return err
}

// ValidateParticipant is ValidateIdentity for wallets that pay or get paid.
// The ledger's own vault and treasury never qualify.
func ValidateParticipant(s string) error {
	if err := ValidateIdentity(s); err != nil {
		return err
	}
	if s == VaultAddress || s == TreasuryIdentity {
		return fmt.Errorf("%w: %s is a custody address", ErrInvalidIdentity, s)
	}
	return nil
}

func decodeIdentity(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidIdentity)
	}
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidIdentity, s, err)
	}
	if len(b) != identityLen {
		return nil, fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidIdentity, s, len(b))
	}
	return b, nil
}

func mustDecodeIdentity(s string) []byte {
	b, err := decodeIdentity(s)
	if err != nil {
		panic(err)
	}
	return b
}

// DeriveAddress hashes the seeds together with the program id into a stable
// base58 address. The same seeds always give the same address.
func DeriveAddress(seeds ...[]byte) string {
	h := sha256.New()
	for _, s := range seeds {
		h.Write(s)
	}
	h.Write(programIDBytes)
	h.Write([]byte("ProgramDerivedAddress"))
	return base58.Encode(h.Sum(nil))
}

// StakeAddress is the custody address of owner's stake account.
func StakeAddress(owner string) (string, error) {
	b, err := decodeIdentity(owner)
	if err != nil {
		return "", err
	}
	return DeriveAddress([]byte(stakeSeed), b), nil
}
