package serverutils

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// SessionChecker reports whether the gateway currently holds a usable session.
type SessionChecker interface {
	IsAuthenticated(ctx context.Context) bool
}

// SessionMiddleware rejects requests while nobody is signed in.
func SessionMiddleware(sessions SessionChecker) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if !sessions.IsAuthenticated(ctx.UserContext()) {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Not signed in"))
		}
		return ctx.Next()
	}
}
