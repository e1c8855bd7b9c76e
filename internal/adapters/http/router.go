package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/unaibg/merkatu/internal/core/domain"
	"github.com/unaibg/merkatu/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Request timing, spans, and per-endpoint error rates
	app.Use(MonitorMiddleware(deps))

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// Health & readiness (no timeout — fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1 — 15s per-request timeout
	v1 := app.Group("/v1")
	v1.Get("/vendors", timeout.NewWithContext(ListVendorsHandler(deps), 15*time.Second))
	v1.Get("/vendors/:slug", timeout.NewWithContext(GetVendorHandler(deps), 15*time.Second))
	v1.Get("/vendors/:slug/listings", timeout.NewWithContext(VendorListingsHandler(deps), 15*time.Second))
	v1.Get("/listings", timeout.NewWithContext(ListingsByCategoryHandler(deps), 15*time.Second))
	v1.Get("/listings/search", timeout.NewWithContext(SearchListingsHandler(deps), 15*time.Second))
	v1.Get("/listings/:id", timeout.NewWithContext(GetListingHandler(deps), 15*time.Second))
	v1.Post("/listings",
		RequireAuth(deps),
		RequireRole(domain.RoleVendor, domain.RoleAdmin),
		timeout.NewWithContext(CreateListingHandler(deps), 15*time.Second))

	// Accounts & authentication funnel
	auth := v1.Group("/auth")
	auth.Post("/signup", SignupHandler(deps))
	auth.Post("/login", LoginHandler(deps))
	auth.Get("/verify", VerifyEmailHandler(deps))
	auth.Post("/password-reset", RequestPasswordResetHandler(deps))
	auth.Post("/password-reset/confirm", ConfirmPasswordResetHandler(deps))
	auth.Post("/role", RequireAuth(deps), RequireRole(domain.RoleAdmin), ChangeRoleHandler(deps))

	// Email provider webhook
	v1.Post("/webhooks/email", EmailWebhookHandler(deps))

	// Operational endpoints
	ops := v1.Group("/ops", RequireAdminToken(deps))
	ops.Get("/error-rates", ErrorRatesHandler(deps))
	ops.Get("/funnel", FunnelHandler(deps))
	ops.Post("/reset", ResetTrackersHandler(deps))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// WebSocket alert feed
	app.Use("/ws/alerts", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/alerts", websocket.New(AlertFeedHandler(deps.NATS)))
}
