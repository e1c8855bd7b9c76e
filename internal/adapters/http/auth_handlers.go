package http

import (
	"github.com/gofiber/fiber/v2"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupHandler registers a new account.
func SignupHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req credentialsRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		user, err := deps.Auth.Signup(c.Context(), req.Email, req.Password)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		return c.Status(fiber.StatusCreated).JSON(user)
	}
}

// LoginHandler exchanges credentials for a session token.
func LoginHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req credentialsRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		sessionToken, err := deps.Auth.Login(c.Context(), req.Email, req.Password)
		if err != nil {
			return errUnauthorized(c, "invalid credentials")
		}

		return c.JSON(fiber.Map{"token": sessionToken})
	}
}

// VerifyEmailHandler completes email verification from the emailed link.
func VerifyEmailHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		verifyToken := c.Query("token")
		if verifyToken == "" {
			return errBadRequest(c, "token query parameter is required")
		}

		if err := deps.Auth.VerifyEmail(c.Context(), verifyToken); err != nil {
			return errBadRequest(c, "invalid or expired verification token")
		}

		return c.JSON(fiber.Map{"status": "verified"})
	}
}

// RequestPasswordResetHandler mails a reset token. Always answers 202 so the
// endpoint cannot be used to probe which emails exist.
func RequestPasswordResetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Email string `json:"email"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		if err := deps.Auth.RequestPasswordReset(c.Context(), req.Email); err != nil {
			return errInternal(c, err.Error())
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "accepted"})
	}
}

// ConfirmPasswordResetHandler sets a new password from a reset token.
func ConfirmPasswordResetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Token    string `json:"token"`
			Password string `json:"password"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		if err := deps.Auth.ConfirmPasswordReset(c.Context(), req.Token, req.Password); err != nil {
			return errBadRequest(c, err.Error())
		}

		return c.JSON(fiber.Map{"status": "password updated"})
	}
}

// ChangeRoleHandler moves a user between roles. Admin only.
func ChangeRoleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id"`
			Role   string `json:"role"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.UserID == "" || req.Role == "" {
			return errBadRequest(c, "user_id and role are required")
		}

		if err := deps.Auth.ChangeRole(c.Context(), req.UserID, req.Role); err != nil {
			return errBadRequest(c, err.Error())
		}

		return c.JSON(fiber.Map{"status": "role updated"})
	}
}

// emailEvent is one entry in the provider's webhook payload.
type emailEvent struct {
	Type       string `json:"type"` // "delivered" | "bounced" | "complained"
	Email      string `json:"email"`
	BounceType string `json:"bounce_type,omitempty"` // "hard" | "soft"
	Reason     string `json:"reason,omitempty"`
}

// EmailWebhookHandler ingests delivery outcomes from the email provider and
// feeds them into the funnel tracker. Unknown event types are skipped rather
// than rejected so a provider change does not bounce whole batches.
func EmailWebhookHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var events []emailEvent
		if err := c.BodyParser(&events); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		accepted := 0
		for _, ev := range events {
			md := map[string]any{"email_domain": emailDomainOf(ev.Email)}
			if ev.Reason != "" {
				md["reason"] = ev.Reason
			}

			switch ev.Type {
			case "delivered":
				deps.Funnel.EmailDelivered(md)
			case "bounced":
				if ev.BounceType != "" {
					md["bounce_type"] = ev.BounceType
				}
				deps.Funnel.EmailBounced(md)
			case "complained":
				deps.Funnel.EmailComplained(md)
			default:
				continue
			}
			accepted++
		}

		return c.JSON(fiber.Map{"accepted": accepted, "received": len(events)})
	}
}

func emailDomainOf(email string) string {
	for i := len(email) - 1; i >= 0; i-- {
		if email[i] == '@' {
			return email[i+1:]
		}
	}
	return ""
}
