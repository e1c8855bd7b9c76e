package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/unaibg/merkatu/internal/monitoring"
)

const timerLocal = "reqtimer"

// MonitorMiddleware times every request with a RequestTimer and feeds the
// outcome into the per-endpoint error-rate tracker. Handlers reach the timer
// through TimerFromCtx to wrap their database calls in spans.
func MonitorMiddleware(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		timer := deps.Monitor.Begin(c.Path(), c.Method())
		c.Locals(timerLocal, timer)

		err := c.Next()

		status := c.Response().StatusCode()
		errMsg := ""
		if err != nil {
			errMsg = err.Error()
			if status < 500 {
				status = fiber.StatusInternalServerError
			}
		}

		// Route pattern, not the raw path, so /v1/listings/:id stays one key.
		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
			route = r.Path
		}
		endpoint := fmt.Sprintf("%s %s", c.Method(), route)

		timer.Complete(status, errMsg, nil)
		deps.ErrorRates.Record(endpoint, status >= 500 || err != nil)

		return err
	}
}

// TimerFromCtx returns the request's timer, or nil outside MonitorMiddleware.
func TimerFromCtx(c *fiber.Ctx) *monitoring.RequestTimer {
	t, _ := c.Locals(timerLocal).(*monitoring.RequestTimer)
	return t
}

// withSpan runs fn inside a timer span when a timer is present.
func withSpan(c *fiber.Ctx, fn func() error) error {
	timer := TimerFromCtx(c)
	if timer == nil {
		return fn()
	}
	id := timer.StartSpan()
	defer timer.EndSpan(id)
	return fn()
}
