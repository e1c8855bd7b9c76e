package http

import (
	"github.com/nats-io/nats.go"

	"github.com/unaibg/merkatu/internal/adapters/postgres"
	"github.com/unaibg/merkatu/internal/adapters/valkey"
	"github.com/unaibg/merkatu/internal/core/usecases"
	"github.com/unaibg/merkatu/internal/monitoring"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Vendors  *usecases.VendorService
	Listings *usecases.ListingService
	Auth     *usecases.AuthService

	Monitor    *monitoring.Monitor
	ErrorRates *monitoring.ErrorRateTracker
	Funnel     *monitoring.FunnelTracker

	NATS  *nats.Conn
	DB    *postgres.DB
	Cache *valkey.Cache

	JWTSecret  string
	AdminToken string
}
