// workers/reconcile_worker.go
package workers

import (
	"context"
	"time"

	"arena-pot-ledger/ledger"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Reconciler is satisfied by *ledger.Ledger.
type Reconciler interface {
	Reconcile(ctx context.Context) (ledger.Reconciliation, error)
}

// ReconcileOnce runs one vault check and hands the outcome to observe.
func ReconcileOnce(ctx context.Context, r Reconciler, logger *zap.Logger, observe func(ledger.Reconciliation, error)) {
	rec, err := r.Reconcile(ctx)
	if observe != nil {
		observe(rec, err)
	}
	if err != nil {
		logger.Error("[Reconcile] vault check failed", zap.Error(err))
		return
	}
	logger.Debug("[Reconcile] vault covers pot",
		zap.Int64("vault_balance", rec.VaultBalance),
		zap.Int64("current_pot", rec.CurrentPot),
		zap.Int64("surplus", rec.Surplus))
}

// StartReconcileScheduler checks the vault against the pot every interval.
// The caller owns the returned scheduler and must shut it down.
func StartReconcileScheduler(r Reconciler, every time.Duration, logger *zap.Logger, observe func(ledger.Reconciliation, error), opts ...gocron.SchedulerOption) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), every)
			defer cancel()
			ReconcileOnce(ctx, r, logger, observe)
		}),
		gocron.WithName("reconcile-vault"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	return sched, nil
}
