// services/pot_publisher.go
package services

import (
	"context"
	"encoding/json"
	"time"

	"arena-pot-ledger/ledger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PotUpdatesChannel carries one message per committed entry or settlement.
const PotUpdatesChannel = "arena:pot-updates"

// RedisPublisher is the part of *redis.Client the publisher uses.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// PotUpdate is the wire form of a pot change, shared by Redis and SSE.
type PotUpdate struct {
	Kind         ledger.EventKind `json:"kind"`
	Identity     string           `json:"wallet"`
	Amount       int64            `json:"amount"`
	CurrentPot   int64            `json:"current_pot"`
	TotalEntries int64            `json:"total_entries"`
	Monster      Monster          `json:"current_monster"`
	At           time.Time        `json:"timestamp"`
}

func NewPotUpdate(e ledger.Event) PotUpdate {
	return PotUpdate{
		Kind:         e.Kind,
		Identity:     e.Identity,
		Amount:       e.Amount,
		CurrentPot:   e.CurrentPot,
		TotalEntries: e.TotalEntries,
		Monster:      MonsterForPot(e.CurrentPot),
		At:           e.At,
	}
}

// PotPublisher pushes pot changes to Redis subscribers. Publishing is best effort.
type PotPublisher struct {
	client  RedisPublisher
	logger  *zap.Logger
	timeout time.Duration
}

func NewPotPublisher(client RedisPublisher, logger *zap.Logger) *PotPublisher {
	return &PotPublisher{client: client, logger: logger, timeout: 2 * time.Second}
}

func (p *PotPublisher) OnLedgerEvent(e ledger.Event) {
	if !e.TouchesPool() {
		return
	}
	payload, err := json.Marshal(NewPotUpdate(e))
	if err != nil {
		p.logger.Error("encode pot update", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.client.Publish(ctx, PotUpdatesChannel, payload).Err(); err != nil {
		p.logger.Warn("publish pot update", zap.String("channel", PotUpdatesChannel), zap.Error(err))
	}
}
