package http

import (
	"github.com/gofiber/fiber/v2"
)

// ErrorRatesHandler exposes the rolling per-endpoint error rates. The
// snapshot reflects the current window; reading it never resets counters.
func ErrorRatesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"endpoints": deps.ErrorRates.Snapshot(),
		})
	}
}

// FunnelHandler exposes the derived authentication funnel metrics.
func FunnelHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Funnel.Metrics())
	}
}

// ResetTrackersHandler clears both trackers. Useful after maintenance windows
// that would otherwise skew rates.
func ResetTrackersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deps.ErrorRates.Reset()
		deps.Funnel.Reset()
		return c.JSON(fiber.Map{"status": "trackers reset"})
	}
}
