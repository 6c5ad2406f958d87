// Package ledger keeps the books of the arena pot: entry fees, prefunded stake
// balances, the escrow vault and prize settlement. Every exported operation is
// a single database transaction and either applies in full or not at all.
package ledger

import (
	"context"
	"time"

	"arena-pot-ledger/models"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Ledger struct {
	db        *gorm.DB
	clock     clockwork.Clock
	logger    *zap.Logger
	accounts  AccountStore
	custody   *Custody
	archive   ProofArchive
	observers []Observer
}

type Option func(*Ledger)

func WithClock(clock clockwork.Clock) Option {
	return func(l *Ledger) { l.clock = clock }
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithObserver registers o to receive an Event after every committed change.
func WithObserver(o Observer) Option {
	return func(l *Ledger) { l.observers = append(l.observers, o) }
}

// WithProofArchive copies settlement proofs to archive after commit.
func WithProofArchive(archive ProofArchive) Option {
	return func(l *Ledger) { l.archive = archive }
}

func New(db *gorm.DB, opts ...Option) *Ledger {
	l := &Ledger{
		db:     db,
		clock:  clockwork.NewRealClock(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.custody = &Custody{clock: l.clock}
	return l
}

// Migrate creates or updates every table the ledger owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.PoolLedger{},
		&models.StakeAccount{},
		&models.Holding{},
		&models.Transfer{},
		&models.Settlement{},
		&models.FundingEvent{},
	)
}

func (l *Ledger) atomically(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return l.db.WithContext(ctx).Transaction(fn)
}

func (l *Ledger) now() time.Time {
	return l.clock.Now().UTC()
}

// EventKind names a committed ledger change.
type EventKind string

const (
	EventEntry      EventKind = "entry"
	EventSettlement EventKind = "settlement"
	EventDeposit    EventKind = "deposit"
	EventWithdrawal EventKind = "withdrawal"
	EventFunding    EventKind = "funding"
)

// Event describes a committed change. CurrentPot and TotalEntries are the pool
// totals right after the change; they are zero for events that don't touch the pool.
type Event struct {
	Kind         EventKind          `json:"kind"`
	Identity     string             `json:"identity"`
	Amount       int64              `json:"amount"`
	Path         models.PaymentPath `json:"path"`
	CurrentPot   int64              `json:"current_pot"`
	TotalEntries int64              `json:"total_entries"`
	At           time.Time          `json:"at"`
}

// TouchesPool reports whether the event changed the pot.
func (e Event) TouchesPool() bool {
	return e.Kind == EventEntry || e.Kind == EventSettlement
}

type Observer interface {
	OnLedgerEvent(Event)
}

type ObserverFunc func(Event)

func (f ObserverFunc) OnLedgerEvent(e Event) { f(e) }

func (l *Ledger) notify(e Event) {
	for _, o := range l.observers {
		o.OnLedgerEvent(e)
	}
}
