package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jetonpay/jeton/internal/token"
)

// RegisterHealthRoutes adds liveness/readiness style endpoints. Besides the
// infrastructure pings the check audits ledger conservation: the sum of all
// balances must equal the total supply.
func RegisterHealthRoutes(app *fiber.App, d Deps, ledger *token.Ledger) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		dbStatus := "ok"
		redisStatus := "ok"
		ledgerStatus := "ok"

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if d.DB != nil {
			if err := d.DB.Ping(ctx); err != nil {
				dbStatus = err.Error()
			}
		}
		if d.Cache != nil {
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				redisStatus = err.Error()
			}
		}
		if err := ledger.Audit(ctx); err != nil {
			ledgerStatus = err.Error()
		}

		status := http.StatusOK
		if dbStatus != "ok" || redisStatus != "ok" || ledgerStatus != "ok" {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    fiber.Map{"postgres": dbStatus, "redis": redisStatus, "ledger": ledgerStatus},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
