package http

import "github.com/gofiber/fiber/v2"

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

var errorCodes = map[int]string{
	fiber.StatusBadRequest:          "bad_request",
	fiber.StatusUnauthorized:        "unauthorized",
	fiber.StatusForbidden:           "forbidden",
	fiber.StatusNotFound:            "not_found",
	fiber.StatusConflict:            "conflict",
	fiber.StatusInternalServerError: "internal_error",
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, message string) error {
	code, ok := errorCodes[status]
	if !ok {
		code = "error"
	}
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, msg)
}

func errUnauthorized(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusUnauthorized, msg)
}

func errForbidden(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusForbidden, msg)
}

func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, msg)
}

func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, msg)
}
