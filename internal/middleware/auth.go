package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Harishreddyyarramada/novawrite-realtime/internal/auth"
)

const (
	LocalUserID = "userID"
	LocalEmail  = "email"
)

// JWTAuth rejects unauthenticated REST calls and stashes the caller identity
// in locals for the handlers.
func JWTAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := auth.ParseBearerToken(c.Get("Authorization"))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "authentication required"})
		}
		claims, err := auth.ParseAndValidateToken(secret, token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid token"})
		}
		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalEmail, claims.Email)
		return c.Next()
	}
}

// UserID reads the authenticated caller set by JWTAuth.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}
