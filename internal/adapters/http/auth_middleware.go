package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/unaibg/merkatu/internal/pkg/token"
)

// RequireAuth validates the Bearer token and stores the caller's identity in
// request locals.
func RequireAuth(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			return errUnauthorized(c, "missing bearer token")
		}

		claims, err := token.Parse(raw, deps.JWTSecret)
		if err != nil {
			return errUnauthorized(c, "invalid or expired token")
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("role", claims.Role)
		return c.Next()
	}
}

// RequireRole allows only callers with one of the given roles. Must run
// after RequireAuth.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(string)
		for _, r := range roles {
			if role == r {
				return c.Next()
			}
		}
		return errForbidden(c, "insufficient role")
	}
}

// RequireAdminToken gates operational endpoints behind a shared token in the
// X-Admin-Token header. With no token configured the endpoints are disabled.
func RequireAdminToken(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.AdminToken == "" {
			return errForbidden(c, "operational endpoints are disabled")
		}
		if c.Get("X-Admin-Token") != deps.AdminToken {
			return errUnauthorized(c, "invalid admin token")
		}
		return c.Next()
	}
}
