package metrics

import (
	"arena-pot-ledger/ledger"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "arena"

	subsystemLedger  = "ledger"
	subsystemFunding = "funding"
)

var (
	// Entries paid, by payment path
	Entries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemLedger,
			Name:      "entries_total",
			Help:      "Combat entries paid, by payment path.",
		}, []string{"path"})

	// Settlements prize payouts
	Settlements = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemLedger,
			Name:      "settlements_total",
			Help:      "Prize payouts.",
		})

	// PaidOut lamports paid to winners
	PaidOut = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemLedger,
			Name:      "paid_out_lamports_total",
			Help:      "Lamports paid to winners.",
		})

	// StakeFlows lamports moved in and out of stake accounts
	StakeFlows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemLedger,
			Name:      "stake_lamports_total",
			Help:      "Lamports deposited to or withdrawn from stake accounts.",
		}, []string{"direction"})

	// CurrentPot pot after the last committed change
	CurrentPot = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemLedger,
			Name:      "current_pot_lamports",
			Help:      "Pot after the last committed entry or settlement.",
		})

	// TotalEntries lifetime entries
	TotalEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemLedger,
			Name:      "lifetime_entries",
			Help:      "Lifetime entries recorded by the pool.",
		})

	// VaultBalance vault balance at the last reconciliation
	VaultBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemLedger,
			Name:      "vault_balance_lamports",
			Help:      "Escrow vault balance at the last reconciliation.",
		})

	// VaultSurplus vault balance minus pot, negative means underfunded
	VaultSurplus = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemLedger,
			Name:      "vault_surplus_lamports",
			Help:      "Vault balance minus current pot at the last reconciliation.",
		})

	// ReconcileFailures reconciliations that found the vault short or could not run
	ReconcileFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemLedger,
			Name:      "reconcile_failures_total",
			Help:      "Reconciliations that failed or found the vault underfunded.",
		})

	// FundingCredits wallet credits applied from the funding feed
	FundingCredits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemFunding,
			Name:      "credits_total",
			Help:      "Wallet credits applied from the funding feed.",
		})

	// FundingPollErrors failed polls of the funding feed
	FundingPollErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemFunding,
			Name:      "poll_errors_total",
			Help:      "Failed polls of the funding feed.",
		})
)

func init() {
	prometheus.MustRegister(
		Entries,
		Settlements,
		PaidOut,
		StakeFlows,
		CurrentPot,
		TotalEntries,
		VaultBalance,
		VaultSurplus,
		ReconcileFailures,
		FundingCredits,
		FundingPollErrors,
	)
}

// LedgerObserver mirrors committed ledger events into the collectors above.
type LedgerObserver struct{}

func (LedgerObserver) OnLedgerEvent(e ledger.Event) {
	switch e.Kind {
	case ledger.EventEntry:
		Entries.WithLabelValues(e.Path.String()).Inc()
	case ledger.EventSettlement:
		Settlements.Inc()
		PaidOut.Add(float64(e.Amount))
	case ledger.EventDeposit:
		StakeFlows.WithLabelValues("deposit").Add(float64(e.Amount))
	case ledger.EventWithdrawal:
		StakeFlows.WithLabelValues("withdrawal").Add(float64(e.Amount))
	case ledger.EventFunding:
		FundingCredits.Inc()
	}
	if e.TouchesPool() {
		CurrentPot.Set(float64(e.CurrentPot))
		TotalEntries.Set(float64(e.TotalEntries))
	}
}

// ObserveReconciliation records the outcome of ledger.Reconcile.
func ObserveReconciliation(rec ledger.Reconciliation, err error) {
	if err != nil {
		ReconcileFailures.Inc()
	}
	if rec.CheckedAt.IsZero() {
		return
	}
	VaultBalance.Set(float64(rec.VaultBalance))
	VaultSurplus.Set(float64(rec.Surplus))
	CurrentPot.Set(float64(rec.CurrentPot))
}
