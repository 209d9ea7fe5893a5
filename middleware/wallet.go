package middleware

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// WalletContextMiddleware extracts the caller's wallet address set by the
// Gateway after signature verification and attaches it to the request
// context. Routes that mutate per-user state require it; read-only routes
// tolerate its absence.
func WalletContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		wallet := strings.TrimSpace(c.Get("X-Wallet-Address"))
		if wallet != "" {
			if !addressPattern.MatchString(wallet) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"message": "Invalid wallet address in X-Wallet-Address header",
				})
			}
			c.Locals("wallet_address", strings.ToLower(wallet))
		}
		return c.Next()
	}
}
