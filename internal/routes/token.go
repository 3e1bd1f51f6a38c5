package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jetonpay/jeton/internal/transfer"
)

// RegisterTokenRoutes wires the token ledger endpoints. All of them require
// an authenticated caller; ":accountId" accepts "me" for the caller's own
// account.
func RegisterTokenRoutes(r fiber.Router, h *transfer.Handler) {
	r.Get("/token/supply", h.Supply)
	r.Get("/token/accounts/:accountId/balance", h.Balance)
	r.Get("/token/accounts/:ownerId/allowances/:spenderId", h.Allowance)
	r.Post("/token/transfers", h.Transfer)
	r.Post("/token/approvals", h.Approve)
	r.Post("/token/delegated-transfers", h.TransferFrom)
}
