package handlers

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// BearerAuth rejects requests that do not carry token. Browsers cannot set
// headers on websocket or EventSource requests, so a token query parameter
// is accepted as well. An empty token disables the check.
func BearerAuth(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return c.Next()
		}

		presented := c.Query("token")
		if auth := c.Get(fiber.HeaderAuthorization); auth != "" {
			if v, ok := strings.CutPrefix(auth, "Bearer "); ok {
				presented = strings.TrimSpace(v)
			}
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "unauthorized"})
		}
		return c.Next()
	}
}
