package identity

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// Verifier validates access tokens.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// BearerMiddleware validates bearer tokens and stores user_id in locals.
func BearerMiddleware(v Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		claims, err := v.Verify(c.Context(), token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		c.Locals("user_id", claims.UserID)
		return c.Next()
	}
}
