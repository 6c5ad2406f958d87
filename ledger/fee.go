package ledger

// Compiled-in economics. These are not configuration.
const (
	// EntryFee is 0.01 SOL in lamports.
	EntryFee int64 = 10_000_000
	// TreasuryFeeBps is the protocol cut of each entry, 500 of 10000 = 5%.
	TreasuryFeeBps int64 = 500

	bpsDenominator int64 = 10_000
)

// SplitFee divides an entry fee into the treasury cut and the pool contribution.
// poolFee is taken by subtraction, so any truncation remainder stays in the pool
// and treasuryFee+poolFee always equals entryFee.
func SplitFee(entryFee, feeBps int64) (treasuryFee, poolFee int64) {
	treasuryFee = entryFee * feeBps / bpsDenominator
	poolFee = entryFee - treasuryFee
	return treasuryFee, poolFee
}

// EntrySplit is SplitFee applied to the compiled-in constants.
func EntrySplit() (treasuryFee, poolFee int64) {
	return SplitFee(EntryFee, TreasuryFeeBps)
}
