// workers/funding_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"arena-pot-ledger/ledger"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// FundingEvent is one confirmed deposit into a participant wallet, as reported by the sync service.
type FundingEvent struct {
	ID         string    `json:"id"`
	Address    string    `json:"address"`
	Amount     int64     `json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Crediter applies funding events. *ledger.Ledger satisfies it.
type Crediter interface {
	CreditExternal(ctx context.Context, eventID, address string, amount int64, occurredAt time.Time) (bool, error)
}

// FundingSyncClient reads the wallet funding feed of the sync service.
type FundingSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewFundingSyncClient(baseURL, token string) *FundingSyncClient {
	return &FundingSyncClient{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *FundingSyncClient) GetFundingEvents(ctx context.Context, since time.Time) ([]FundingEvent, error) {
	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/funding", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call sync service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("sync service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Events []FundingEvent `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode sync service response: %w", err)
	}
	return response.Events, nil
}

// FundingWorker polls the feed and credits wallets. Credits are idempotent on
// the event id, so re-reading a window after a failure is safe.
type FundingWorker struct {
	client   *FundingSyncClient
	ledger   Crediter
	interval time.Duration
	clock    clockwork.Clock
	logger   *zap.Logger

	lastSync time.Time
	onPoll   func(applied int, err error)
}

type FundingWorkerOption func(*FundingWorker)

func WithFundingClock(clock clockwork.Clock) FundingWorkerOption {
	return func(w *FundingWorker) { w.clock = clock }
}

// WithPollHook is called after every poll, for metrics.
func WithPollHook(fn func(applied int, err error)) FundingWorkerOption {
	return func(w *FundingWorker) { w.onPoll = fn }
}

func NewFundingWorker(client *FundingSyncClient, l Crediter, interval time.Duration, logger *zap.Logger, opts ...FundingWorkerOption) *FundingWorker {
	w := &FundingWorker{
		client:   client,
		ledger:   l,
		interval: interval,
		clock:    clockwork.NewRealClock(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.lastSync = w.clock.Now().UTC().Add(-24 * time.Hour)
	return w
}

// SyncOnce fetches events since the last successful poll and applies them.
// The cursor only advances when every event was handled.
func (w *FundingWorker) SyncOnce(ctx context.Context) (int, error) {
	pollStart := w.clock.Now().UTC()

	events, err := w.client.GetFundingEvents(ctx, w.lastSync)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, ev := range events {
		ok, err := w.ledger.CreditExternal(ctx, ev.ID, ev.Address, ev.Amount, ev.OccurredAt)
		switch {
		case errors.Is(err, ledger.ErrInvalidIdentity), errors.Is(err, ledger.ErrInvalidAmount):
			// will never apply, don't hold the cursor back for it
			w.logger.Warn("skipping funding event", zap.String("event", ev.ID), zap.Error(err))
		case err != nil:
			return applied, fmt.Errorf("apply funding event %s: %w", ev.ID, err)
		case ok:
			applied++
		}
	}

	w.lastSync = pollStart
	return applied, nil
}

// Run polls until ctx is done.
func (w *FundingWorker) Run(ctx context.Context) {
	w.logger.Info("funding feed polling started", zap.Duration("interval", w.interval))
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("funding feed polling stopped")
			return
		case <-ticker.Chan():
			applied, err := w.SyncOnce(ctx)
			if w.onPoll != nil {
				w.onPoll(applied, err)
			}
			if err != nil {
				w.logger.Error("funding feed poll failed", zap.Time("since", w.lastSync), zap.Error(err))
				continue
			}
			if applied > 0 {
				w.logger.Info("funding events applied", zap.Int("count", applied))
			}
		}
	}
}
