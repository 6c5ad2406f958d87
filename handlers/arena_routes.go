// handlers/arena_routes.go
package handlers

import (
	"arena-pot-ledger/middleware"
	"arena-pot-ledger/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func SetupArenaRoutes(app *fiber.App, arena *services.ArenaService, logger *zap.Logger) {
	// Public reads, still behind Gateway auth
	app.Get("/state", arena.GetState)
	app.Get("/player/:wallet", arena.GetPlayer)
	app.Get("/player/:wallet/payment-options", arena.GetPaymentOptions)
	app.Get("/operator/status", arena.OperatorStatus)
	app.Get("/pot/stream", arena.StreamPotSSE)

	// Caller identity required. Operator-only checks happen in the ledger.
	caller := middleware.CallerContextMiddleware(logger)

	app.Post("/combat/enter", caller, arena.EnterCombat)
	app.Post("/combat/enter-prefunded", caller, arena.EnterCombatPrefunded)
	app.Post("/stake/deposit", caller, arena.DepositToStake)
	app.Post("/stake/withdraw", caller, arena.WithdrawFromStake)

	app.Post("/combat/enter-for-player", caller, arena.EnterCombatForPlayer)
	app.Post("/prize/claim", caller, arena.ClaimPrize)
}
