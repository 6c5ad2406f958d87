package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"arena-pot-ledger/ledger"
	"arena-pot-ledger/ledger/ledgertest"
	"arena-pot-ledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sol int64 = 1_000_000_000

var ctx = context.Background()

func balance(t *testing.T, l *ledger.Ledger, address string) int64 {
	t.Helper()
	b, err := l.Balance(ctx, address)
	require.NoError(t, err)
	return b
}

func stakeBalance(t *testing.T, l *ledger.Ledger, owner string) int64 {
	t.Helper()
	acct, err := l.StakeAccount(ctx, owner)
	require.NoError(t, err)
	return acct.Balance
}

func requireVaultCoversPot(t *testing.T, l *ledger.Ledger) {
	t.Helper()
	rec, err := l.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, rec.Balanced())
}

func TestEnterCombatFromWallet(t *testing.T) {
	l, _, _ := ledgertest.New(t)
	ledgertest.Fund(t, l, ledgertest.Alice, sol)

	r, err := l.EnterCombat(ctx, ledgertest.Alice)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPathExternal, r.Path)
	assert.Equal(t, int64(9_500_000), r.CurrentPot)
	assert.Equal(t, int64(1), r.TotalEntries)

	assert.Equal(t, sol-ledger.EntryFee, balance(t, l, ledgertest.Alice))
	assert.Equal(t, int64(500_000), balance(t, l, ledger.TreasuryIdentity))
	assert.Equal(t, int64(9_500_000), balance(t, l, ledger.VaultAddress))

	acct, err := l.StakeAccount(ctx, ledgertest.Alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), acct.TotalEntries)
	assert.Equal(t, int64(0), acct.Balance)
	assert.Equal(t, models.PaymentPathExternal, acct.LastPaymentPath)
	require.NotNil(t, acct.LastEntryTime)
	assert.WithinDuration(t, ledgertest.Epoch, *acct.LastEntryTime, time.Second)
	requireVaultCoversPot(t, l)
}

func TestEnterCombatInsufficientFundsChangesNothing(t *testing.T) {
	l, _, _ := ledgertest.New(t)
	ledgertest.Fund(t, l, ledgertest.Alice, ledger.EntryFee-1)

	_, err := l.EnterCombat(ctx, ledgertest.Alice)
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	state, err := l.PoolState(ctx)
	require.NoError(t, err)
	assert.Zero(t, state.CurrentPot)
	assert.Zero(t, state.TotalEntries)
	assert.Equal(t, ledger.EntryFee-1, balance(t, l, ledgertest.Alice))

	_, err = l.StakeAccount(ctx, ledgertest.Alice)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestThreeEntriesFillThePot(t *testing.T) {
	l, _, _ := ledgertest.New(t)
	for _, p := range []string{ledgertest.Alice, ledgertest.Bob, ledgertest.Carol} {
		ledgertest.Fund(t, l, p, sol)
		_, err := l.EnterCombat(ctx, p)
		require.NoError(t, err)
		requireVaultCoversPot(t, l)
	}

	state, err := l.PoolState(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(28_500_000), state.CurrentPot)
	assert.Equal(t, int64(3), state.TotalEntries)
	assert.Equal(t, int64(28_500_000), state.VaultBalance)
	assert.Equal(t, int64(1_500_000), balance(t, l, ledger.TreasuryIdentity))
	assert.Nil(t, state.LastWinner)

	carolWallet := balance(t, l, ledgertest.Carol)
	s, err := l.ClaimPrize(ctx, ledger.OperatorIdentity, ledgertest.Carol, "proof")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutRouteExternal, s.Route)
	assert.Equal(t, int64(28_500_000), s.Amount)
	assert.Equal(t, carolWallet+28_500_000, balance(t, l, ledgertest.Carol))
	assert.Zero(t, stakeBalance(t, l, ledgertest.Carol))

	state, err = l.PoolState(ctx)
	require.NoError(t, err)
	assert.Zero(t, state.CurrentPot)
	assert.Zero(t, state.VaultBalance)
	assert.Equal(t, int64(3), state.TotalEntries)
	require.NotNil(t, state.LastWinner)
	assert.Equal(t, ledgertest.Carol, state.LastWinner.Identity)
	assert.Equal(t, int64(28_500_000), state.LastWinner.Amount)
	assert.WithinDuration(t, ledgertest.Epoch, state.LastWinner.Timestamp, time.Second)
	requireVaultCoversPot(t, l)
}

func TestCustodyAddressesCannotActAsParticipants(t *testing.T) {
	l, _, _ := ledgertest.New(t)
	for _, p := range []string{ledgertest.Alice, ledgertest.Bob, ledgertest.Carol} {
		ledgertest.Fund(t, l, p, sol)
		_, err := l.EnterCombat(ctx, p)
		require.NoError(t, err)
	}
	_, err := l.DepositToStake(ctx, ledgertest.Bob, 2*ledger.EntryFee)
	require.NoError(t, err)
	bobStake, err := ledger.StakeAddress(ledgertest.Bob)
	require.NoError(t, err)

	before, err := l.PoolState(ctx)
	require.NoError(t, err)
	bobCustody := balance(t, l, bobStake)

	for _, addr := range []string{ledger.VaultAddress, ledger.TreasuryIdentity, bobStake} {
		_, err := l.EnterCombat(ctx, addr)
		assert.ErrorIs(t, err, ledger.ErrInvalidIdentity, addr)
		_, err = l.EnterCombatPrefunded(ctx, addr)
		assert.ErrorIs(t, err, ledger.ErrInvalidIdentity, addr)
		_, err = l.EnterCombatForPlayer(ctx, ledger.OperatorIdentity, addr)
		assert.ErrorIs(t, err, ledger.ErrInvalidIdentity, addr)
		_, err = l.DepositToStake(ctx, addr, 20_000_000)
		assert.ErrorIs(t, err, ledger.ErrInvalidIdentity, addr)
		_, err = l.WithdrawFromStake(ctx, addr, 1)
		assert.ErrorIs(t, err, ledger.ErrInvalidIdentity, addr)
		_, err = l.ClaimPrize(ctx, ledger.OperatorIdentity, addr, "p")
		assert.ErrorIs(t, err, ledger.ErrInvalidIdentity, addr)
		_, err = l.CreditExternal(ctx, "evt-"+addr, addr, sol, ledgertest.Epoch)
		assert.ErrorIs(t, err, ledger.ErrInvalidIdentity, addr)
	}

	after, err := l.PoolState(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, int64(28_500_000), after.VaultBalance)
	assert.Equal(t, bobCustody, balance(t, l, bobStake))
	assert.Equal(t, 2*ledger.EntryFee, stakeBalance(t, l, ledgertest.Bob))
	requireVaultCoversPot(t, l)
}

func TestPrefundedEntriesDrainStake(t *testing.T) {
	l, _, _ := ledgertest.New(t)
	ledgertest.Fund(t, l, ledgertest.Alice, sol)

	dep, err := l.DepositToStake(ctx, ledgertest.Alice, 20_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(20_000_000), dep.Balance)
	assert.Equal(t, sol-20_000_000, balance(t, l, ledgertest.Alice))

	for i := 0; i < 2; i++ {
		r, err := l.EnterCombatPrefunded(ctx, ledgertest.Alice)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentPathPrefunded, r.Path)
		requireVaultCoversPot(t, l)
	}
	assert.Zero(t, stakeBalance(t, l, ledgertest.Alice))

	_, err = l.EnterCombatPrefunded(ctx, ledgertest.Alice)
	require.ErrorIs(t, err, ledger.ErrInsufficientPrefundedBalance)

	state, err := l.PoolState(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(19_000_000), state.CurrentPot)
	assert.Equal(t, int64(2), state.TotalEntries)

	acct, err := l.StakeAccount(ctx, ledgertest.Alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), acct.TotalEntries)
	assert.Equal(t, models.PaymentPathPrefunded, acct.LastPaymentPath)
	assert.Zero(t, balance(t, l, acct.Address))
}

func TestPrefundedEntryWithoutAccount(t *testing.T) {
	l, _, _ := ledgertest.New(t)
	ledgertest.Fund(t, l, ledgertest.Bob, sol)

	_, err := l.EnterCombatPrefunded(ctx, ledgertest.Bob)
	require.ErrorIs(t, err, ledger.ErrInsufficientPrefundedBalance)
	assert.Equal(t, sol, balance(t, l, ledgertest.Bob))
}

func TestEnterCombatForPlayer(t *testing.T) {
	l, _, _ := ledgertest.New(t)
	ledgertest.Fund(t, l, ledgertest.Carol, sol)
	_, err := l.DepositToStake(ctx, ledgertest.Carol, ledger.EntryFee)
	require.NoError(t, err)

	_, err = l.EnterCombatForPlayer(ctx, ledgertest.Mallory, ledgertest.Carol)
	require.ErrorIs(t, err, ledger.ErrUnauthorizedOperator)
	assert.Equal(t, ledger.EntryFee, stakeBalance(t, l, ledgertest.Carol))

	r, err := l.EnterCombatForPlayer(ctx, ledger.OperatorIdentity, ledgertest.Carol)
	require.NoError(t, err)
	assert.Equal(t, ledgertest.Carol, r.Player)
	assert.Equal(t, models.PaymentPathPrefunded, r.Path)
	assert.Zero(t, r.StakeBalance)

	_, err = l.EnterCombatForPlayer(ctx, ledger.OperatorIdentity, ledgertest.Carol)
	require.ErrorIs(t, err, ledger.ErrInsufficientPrefundedBalance)

	_, err = l.EnterCombatForPlayer(ctx, ledger.OperatorIdentity, "nope")
	require.ErrorIs(t, err, ledger.ErrInvalidIdentity)
}

func TestDepositAndWithdraw(t *testing.T) {
	l, _, _ := ledgertest.New(t)
	ledgertest.Fund(t, l, ledgertest.Dave, 50_000_000)

	for _, amt := range []int64{0, -1} {
		_, err := l.DepositToStake(ctx, ledgertest.Dave, amt)
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
		_, err = l.WithdrawFromStake(ctx, ledgertest.Dave, amt)
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	}

	_, err := l.DepositToStake(ctx, ledgertest.Dave, 60_000_000)
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	_, err = l.StakeAccount(ctx, ledgertest.Dave)
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)

	_, err = l.WithdrawFromStake(ctx, ledgertest.Dave, 1)
	require.ErrorIs(t, err, ledger.ErrInsufficientPrefundedBalance)

	_, err = l.DepositToStake(ctx, ledgertest.Dave, 30_000_000)
	require.NoError(t, err)

	_, err = l.WithdrawFromStake(ctx, ledgertest.Dave, 30_000_001)
	require.ErrorIs(t, err, ledger.ErrInsufficientPrefundedBalance)

	w, err := l.WithdrawFromStake(ctx, ledgertest.Dave, 12_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(18_000_000), w.Balance)
	assert.Equal(t, int64(32_000_000), balance(t, l, ledgertest.Dave))

	acct, err := l.StakeAccount(ctx, ledgertest.Dave)
	require.NoError(t, err)
	assert.Equal(t, int64(18_000_000), balance(t, l, acct.Address))
	assert.Zero(t, acct.TotalEntries)
}

func TestClaimPrizeRoutesByLastPaymentPath(t *testing.T) {
	l, _, _ := ledgertest.New(t)
	ledgertest.Fund(t, l, ledgertest.Alice, sol)
	ledgertest.Fund(t, l, ledgertest.Bob, sol)

	_, err := l.EnterCombat(ctx, ledgertest.Alice)
	require.NoError(t, err)
	_, err = l.DepositToStake(ctx, ledgertest.Bob, ledger.EntryFee)
	require.NoError(t, err)
	_, err = l.EnterCombatPrefunded(ctx, ledgertest.Bob)
	require.NoError(t, err)

	bobWallet := balance(t, l, ledgertest.Bob)
	s, err := l.ClaimPrize(ctx, ledger.OperatorIdentity, ledgertest.Bob, "proof-1")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutRouteStake, s.Route)
	assert.Equal(t, int64(19_000_000), s.Amount)
	assert.Equal(t, int64(19_000_000), stakeBalance(t, l, ledgertest.Bob))
	assert.Equal(t, bobWallet, balance(t, l, ledgertest.Bob))
	requireVaultCoversPot(t, l)

	_, err = l.EnterCombat(ctx, ledgertest.Alice)
	require.NoError(t, err)
	aliceWallet := balance(t, l, ledgertest.Alice)
	s, err = l.ClaimPrize(ctx, ledger.OperatorIdentity, ledgertest.Alice, "proof-2")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutRouteExternal, s.Route)
	assert.Equal(t, aliceWallet+9_500_000, balance(t, l, ledgertest.Alice))
	assert.Zero(t, stakeBalance(t, l, ledgertest.Alice))

	alice, err := l.StakeAccount(ctx, ledgertest.Alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), alice.TotalWins)
	assert.Equal(t, int64(9_500_000), alice.TotalWinnings)
	assert.Equal(t, int64(2), alice.TotalEntries)

	state, err := l.PoolState(ctx)
	require.NoError(t, err)
	assert.Zero(t, state.CurrentPot)
	assert.Equal(t, int64(3), state.TotalEntries)
	assert.Zero(t, state.VaultBalance)
	require.NotNil(t, state.LastWinner)
	assert.Equal(t, ledgertest.Alice, state.LastWinner.Identity)
	assert.Equal(t, int64(9_500_000), state.LastWinner.Amount)

	list, err := l.Settlements(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	proofs := []string{list[0].Proof, list[1].Proof}
	assert.ElementsMatch(t, []string{"proof-1", "proof-2"}, proofs)
}

func TestClaimPrizeTwiceFailsEmptyPot(t *testing.T) {
	l, _, _ := ledgertest.New(t)
	ledgertest.Fund(t, l, ledgertest.Alice, sol)
	_, err := l.EnterCombat(ctx, ledgertest.Alice)
	require.NoError(t, err)

	_, err = l.ClaimPrize(ctx, ledger.OperatorIdentity, ledgertest.Alice, "p")
	require.NoError(t, err)
	_, err = l.ClaimPrize(ctx, ledger.OperatorIdentity, ledgertest.Alice, "p")
	require.ErrorIs(t, err, ledger.ErrEmptyPot)

	acct, err := l.StakeAccount(ctx, ledgertest.Alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), acct.TotalWins)
}

func TestClaimPrizeOnFreshLedgerIsEmptyPot(t *testing.T) {
	l, _, _ := ledgertest.New(t)
	_, err := l.ClaimPrize(ctx, ledger.OperatorIdentity, ledgertest.Alice, "p")
	require.ErrorIs(t, err, ledger.ErrEmptyPot)
}

func TestUnauthorizedClaimLeavesPotAlone(t *testing.T) {
	l, _, _ := ledgertest.New(t)
	ledgertest.Fund(t, l, ledgertest.Alice, sol)
	_, err := l.EnterCombat(ctx, ledgertest.Alice)
	require.NoError(t, err)

	before, err := l.PoolState(ctx)
	require.NoError(t, err)

	_, err = l.ClaimPrize(ctx, ledgertest.Mallory, ledgertest.Mallory, "forged")
	require.ErrorIs(t, err, ledger.ErrUnauthorizedOperator)

	after, err := l.PoolState(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Zero(t, balance(t, l, ledgertest.Mallory))
}

func TestClaimPrizeForWinnerWithoutAccount(t *testing.T) {
	l, _, _ := ledgertest.New(t)
	ledgertest.Fund(t, l, ledgertest.Alice, sol)
	_, err := l.EnterCombat(ctx, ledgertest.Alice)
	require.NoError(t, err)

	s, err := l.ClaimPrize(ctx, ledger.OperatorIdentity, ledgertest.Dave, "p")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutRouteExternal, s.Route)
	assert.Equal(t, int64(9_500_000), balance(t, l, ledgertest.Dave))

	acct, err := l.StakeAccount(ctx, ledgertest.Dave)
	require.NoError(t, err)
	assert.Equal(t, int64(1), acct.TotalWins)
	assert.Equal(t, int64(9_500_000), acct.TotalWinnings)
	assert.Zero(t, acct.TotalEntries)
	assert.Zero(t, acct.Balance)
}

func TestReadsDoNotMutate(t *testing.T) {
	l, db, _ := ledgertest.New(t)

	first, err := l.PoolState(ctx)
	require.NoError(t, err)
	second, err := l.PoolState(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = l.PaymentOptions(ctx, ledgertest.Alice)
	require.NoError(t, err)
	_, err = l.StakeAccount(ctx, ledgertest.Alice)
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)

	var pools, accounts, holdings int64
	require.NoError(t, db.Model(&models.PoolLedger{}).Count(&pools).Error)
	require.NoError(t, db.Model(&models.StakeAccount{}).Count(&accounts).Error)
	require.NoError(t, db.Model(&models.Holding{}).Count(&holdings).Error)
	assert.Zero(t, pools)
	assert.Zero(t, accounts)
	assert.Zero(t, holdings)
}

func TestPaymentOptions(t *testing.T) {
	l, _, _ := ledgertest.New(t)

	opts, err := l.PaymentOptions(ctx, ledgertest.Alice)
	require.NoError(t, err)
	assert.False(t, opts.CanPayExternal)
	assert.False(t, opts.CanPayPrefunded)
	assert.Nil(t, opts.Recommended)
	assert.Nil(t, opts.LastPaymentPath)

	ledgertest.Fund(t, l, ledgertest.Alice, 25_000_000)
	opts, err = l.PaymentOptions(ctx, ledgertest.Alice)
	require.NoError(t, err)
	assert.True(t, opts.CanPayExternal)
	require.NotNil(t, opts.Recommended)
	assert.Equal(t, models.PaymentPathExternal, *opts.Recommended)

	_, err = l.DepositToStake(ctx, ledgertest.Alice, ledger.EntryFee)
	require.NoError(t, err)
	opts, err = l.PaymentOptions(ctx, ledgertest.Alice)
	require.NoError(t, err)
	assert.True(t, opts.CanPayExternal)
	assert.True(t, opts.CanPayPrefunded)
	assert.Equal(t, ledger.EntryFee, opts.PrefundedBalance)
	assert.Equal(t, int64(15_000_000), opts.ExternalBalance)
	assert.Equal(t, models.PaymentPathPrefunded, *opts.Recommended)
	require.NotNil(t, opts.LastPaymentPath)
	assert.Equal(t, models.PaymentPathExternal, *opts.LastPaymentPath)

	_, err = l.PaymentOptions(ctx, "x")
	assert.ErrorIs(t, err, ledger.ErrInvalidIdentity)
}

func TestCreditExternalIsIdempotent(t *testing.T) {
	l, db, _ := ledgertest.New(t)

	applied, err := l.CreditExternal(ctx, "sig-1", ledgertest.Bob, 7, ledgertest.Epoch)
	require.NoError(t, err)
	assert.True(t, applied)
	applied, err = l.CreditExternal(ctx, "sig-1", ledgertest.Bob, 7, ledgertest.Epoch)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, int64(7), balance(t, l, ledgertest.Bob))

	_, err = l.CreditExternal(ctx, "sig-2", ledgertest.Bob, 0, ledgertest.Epoch)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	_, err = l.CreditExternal(ctx, "sig-3", "bad", 1, ledgertest.Epoch)
	assert.ErrorIs(t, err, ledger.ErrInvalidIdentity)

	var journal []models.Transfer
	require.NoError(t, db.Where("to_address = ?", ledgertest.Bob).Find(&journal).Error)
	require.Len(t, journal, 1)
	assert.Equal(t, "sig-1", journal[0].OperationID)
}

func TestTransfersAreJournaledPerOperation(t *testing.T) {
	l, db, _ := ledgertest.New(t)
	ledgertest.Fund(t, l, ledgertest.Alice, sol)

	r, err := l.EnterCombat(ctx, ledgertest.Alice)
	require.NoError(t, err)

	var moves []models.Transfer
	require.NoError(t, db.Where("operation_id = ?", r.OperationID).Find(&moves).Error)
	require.Len(t, moves, 2)
	var total int64
	for _, m := range moves {
		assert.Equal(t, ledgertest.Alice, m.From)
		total += m.Amount
	}
	assert.Equal(t, ledger.EntryFee, total)
}

func TestObserversSeeOnlyCommittedChanges(t *testing.T) {
	var mu sync.Mutex
	var events []ledger.Event
	obs := ledger.ObserverFunc(func(e ledger.Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	})
	l, _, _ := ledgertest.New(t, ledger.WithObserver(obs))

	_, err := l.EnterCombat(ctx, ledgertest.Alice)
	require.Error(t, err)

	ledgertest.Fund(t, l, ledgertest.Alice, sol)
	_, err = l.EnterCombat(ctx, ledgertest.Alice)
	require.NoError(t, err)
	_, err = l.ClaimPrize(ctx, ledger.OperatorIdentity, ledgertest.Alice, "p")
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, ledger.EventFunding, events[0].Kind)
	assert.False(t, events[0].TouchesPool())
	assert.Equal(t, ledger.EventEntry, events[1].Kind)
	assert.Equal(t, int64(9_500_000), events[1].CurrentPot)
	assert.Equal(t, ledger.EventSettlement, events[2].Kind)
	assert.Zero(t, events[2].CurrentPot)
	assert.Equal(t, int64(9_500_000), events[2].Amount)
}

type fakeArchive struct {
	fail   bool
	stored map[string][]byte
}

func (a *fakeArchive) ArchiveProof(_ context.Context, id string, proof []byte) (string, error) {
	if a.fail {
		return "", errors.New("bucket unavailable")
	}
	if a.stored == nil {
		a.stored = map[string][]byte{}
	}
	a.stored[id] = proof
	return "https://proofs.example/" + id, nil
}

func TestClaimPrizeArchivesProof(t *testing.T) {
	archive := &fakeArchive{}
	l, db, _ := ledgertest.New(t, ledger.WithProofArchive(archive))
	ledgertest.Fund(t, l, ledgertest.Alice, sol)
	_, err := l.EnterCombat(ctx, ledgertest.Alice)
	require.NoError(t, err)

	s, err := l.ClaimPrize(ctx, ledger.OperatorIdentity, ledgertest.Alice, `{"vrf":"abc"}`)
	require.NoError(t, err)
	assert.Equal(t, "https://proofs.example/"+s.SettlementID, s.ArchiveURL)
	assert.Equal(t, []byte(`{"vrf":"abc"}`), archive.stored[s.SettlementID])

	var row models.Settlement
	require.NoError(t, db.First(&row, "id = ?", s.SettlementID).Error)
	assert.Equal(t, s.ArchiveURL, row.ArchiveURL)
	assert.Equal(t, ledger.OperatorIdentity, row.Operator)
}

func TestClaimPrizeSurvivesArchiveFailure(t *testing.T) {
	l, _, _ := ledgertest.New(t, ledger.WithProofArchive(&fakeArchive{fail: true}))
	ledgertest.Fund(t, l, ledgertest.Alice, sol)
	_, err := l.EnterCombat(ctx, ledgertest.Alice)
	require.NoError(t, err)

	s, err := l.ClaimPrize(ctx, ledger.OperatorIdentity, ledgertest.Alice, "p")
	require.NoError(t, err)
	assert.Empty(t, s.ArchiveURL)
}

func TestReconcileDetectsUnderfundedVault(t *testing.T) {
	l, db, _ := ledgertest.New(t)
	ledgertest.Fund(t, l, ledgertest.Alice, sol)
	_, err := l.EnterCombat(ctx, ledgertest.Alice)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Holding{}).
		Where("address = ?", ledger.VaultAddress).
		Update("balance", 1).Error)

	rec, err := l.Reconcile(ctx)
	require.ErrorIs(t, err, ledger.ErrVaultUnderfunded)
	assert.Equal(t, int64(1), rec.VaultBalance)
	assert.Equal(t, int64(9_500_000), rec.CurrentPot)
	assert.False(t, rec.Balanced())
}

func TestConcurrentEntriesNeverOverspend(t *testing.T) {
	l, _, _ := ledgertest.New(t)
	const attempts, affordable = 12, 8
	ledgertest.Fund(t, l, ledgertest.Alice, affordable*ledger.EntryFee)

	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.EnterCombat(ctx, ledgertest.Alice)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, broke int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ledger.ErrInsufficientFunds):
			broke++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, affordable, ok)
	assert.Equal(t, attempts-affordable, broke)

	state, err := l.PoolState(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(affordable)*9_500_000, state.CurrentPot)
	assert.Zero(t, balance(t, l, ledgertest.Alice))
	requireVaultCoversPot(t, l)
}

func TestConcurrentParticipants(t *testing.T) {
	l, _, _ := ledgertest.New(t)
	const players = 16
	for i := 0; i < players; i++ {
		ledgertest.Fund(t, l, ledgertest.Identity(i), sol)
	}

	var wg sync.WaitGroup
	for i := 0; i < players; i++ {
		wg.Add(1)
		go func(id string, prefund bool) {
			defer wg.Done()
			if prefund {
				_, err := l.DepositToStake(ctx, id, ledger.EntryFee)
				assert.NoError(t, err)
				_, err = l.EnterCombatPrefunded(ctx, id)
				assert.NoError(t, err)
				return
			}
			_, err := l.EnterCombat(ctx, id)
			assert.NoError(t, err)
		}(ledgertest.Identity(i), i%2 == 0)
	}
	wg.Wait()

	state, err := l.PoolState(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(players), state.TotalEntries)
	assert.Equal(t, int64(players)*9_500_000, state.CurrentPot)
	assert.Equal(t, int64(players)*500_000, balance(t, l, ledger.TreasuryIdentity))
	requireVaultCoversPot(t, l)
}
