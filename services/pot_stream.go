package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"arena-pot-ledger/ledger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// StreamPotSSE sends a pot-update event on connect and then whenever the pot
// or the entry count changes.
func (s *ArenaService) StreamPotSSE(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx := c.Context()
	interval := s.StreamInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var last *ledger.PoolState
		send := func() bool {
			state, err := s.Ledger.PoolState(ctx)
			if err != nil {
				s.Logger.Warn("pot stream read", zap.Error(err))
				return true
			}
			if last != nil && last.CurrentPot == state.CurrentPot && last.TotalEntries == state.TotalEntries {
				// keepalive, also how a closed client is noticed
				w.WriteString(":\n\n")
				return w.Flush() == nil
			}
			last = state

			payload, _ := json.Marshal(PotUpdate{
				Kind:         "state",
				CurrentPot:   state.CurrentPot,
				TotalEntries: state.TotalEntries,
				Monster:      MonsterForPot(state.CurrentPot),
				At:           time.Now().UTC(),
			})
			fmt.Fprintf(w, "event: pot-update\ndata: %s\n\n", payload)
			return w.Flush() == nil
		}

		if !send() {
			return
		}
		for {
			select {
			case <-ticker.C:
				if !send() {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}
