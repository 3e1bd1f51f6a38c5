package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jetonpay/jeton/internal/identity"
)

// RegisterIdentityRoutes wires identity endpoints. Registration binds a fresh
// ledger account to the new user.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler) {
	r.Post("/identity/register", h.Register)
}
