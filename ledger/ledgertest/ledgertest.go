// Package ledgertest builds throwaway ledgers on in-memory SQLite for tests.
package ledgertest

import (
	"context"
	"crypto/sha256"
	"fmt"
	"testing"
	"time"

	"arena-pot-ledger/ledger"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Well-known participant identities.
const (
	Alice   = "3x9az88Dkbxa6tkKByxqEn7jBTJCJCD4dVvou49L24ET"
	Bob     = "9jLkNAaW9E47LQMHvjohy2uAAyr1331bAxgJKFRU7wF6"
	Carol   = "68GLr8rYqhXTRgYuH5MN7BeswuPxjeEZRLMzunr9JQCt"
	Dave    = "7bDXTe5fFehXPtVMMh9cL5hxcjNenk8g34eCNRTiuBTs"
	Mallory = "Dxzqw4Shv1tSjtSZHVsHGWZe7inwGMYfjfDovVwSEWSP"
)

// Epoch is where every fake clock starts.
var Epoch = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

// NewDB opens a private in-memory database with the ledger schema applied.
// SQLite ignores FOR UPDATE, so the pool is capped at one connection and
// every transaction runs alone. Concurrent tests on it check that operations
// are atomic and never overspend. They do not exercise Postgres row locks or
// the pool, stake account, holdings lock order.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, ledger.Migrate(db))
	return db
}

// New returns a ledger on a fresh database driven by a fake clock.
func New(t testing.TB, opts ...ledger.Option) (*ledger.Ledger, *gorm.DB, *clockwork.FakeClock) {
	t.Helper()
	db := NewDB(t)
	clock := clockwork.NewFakeClockAt(Epoch)
	opts = append([]ledger.Option{ledger.WithClock(clock)}, opts...)
	return ledger.New(db, opts...), db, clock
}

// Fund credits identity's wallet through the funding feed path.
func Fund(t testing.TB, l *ledger.Ledger, identity string, amount int64) {
	t.Helper()
	applied, err := l.CreditExternal(context.Background(), uuid.NewString(), identity, amount, Epoch)
	require.NoError(t, err)
	require.True(t, applied)
}

// Identity derives a distinct valid identity for n, for tests that need many participants.
func Identity(n int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("participant-%d", n)))
	return base58.Encode(sum[:])
}
