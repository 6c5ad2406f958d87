// middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CallerIDHeader carries the wallet identity the Gateway authenticated.
const CallerIDHeader = "X-Caller-ID"

// CallerContextMiddleware stores the Gateway supplied caller identity in
// c.Locals("caller_id"). Routes behind it require the header; whether the
// caller may perform the operation is decided by the ledger.
func CallerContextMiddleware(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		callerID := strings.TrimSpace(c.Get(CallerIDHeader))
		if callerID == "" {
			logger.Info("caller context: missing caller id", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing " + CallerIDHeader + ", request must come through gateway with auth context",
			})
		}

		c.Locals("caller_id", callerID)
		logger.Debug("caller context", zap.String("caller", callerID), zap.String("path", c.Path()))
		return c.Next()
	}
}
