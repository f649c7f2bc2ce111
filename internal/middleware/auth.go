// Package middleware provides fiber middleware for authentication and
// role-based access.
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"pouch/internal/models"
	"pouch/internal/utils"
)

// Auth validates the bearer token and stores the user claims in the request
// context under "claims".
func Auth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return utils.Unauthorized(c, "missing authorization header")
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return utils.Unauthorized(c, "invalid authorization format")
		}

		claims, err := utils.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			return utils.Unauthorized(c, "invalid token")
		}

		c.Locals("claims", claims)
		return c.Next()
	}
}

// AdminOnly rejects requests whose claims do not carry the admin role. It
// must run after Auth.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*models.UserClaims)
		if !ok || claims == nil {
			return utils.Unauthorized(c, "invalid claims")
		}
		if !claims.IsAdmin() {
			return utils.Forbidden(c, "admin access required")
		}
		return c.Next()
	}
}
