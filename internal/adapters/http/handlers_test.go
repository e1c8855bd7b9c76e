package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/unaibg/merkatu/internal/adapters/http"
	"github.com/unaibg/merkatu/internal/core/domain"
	"github.com/unaibg/merkatu/internal/core/usecases"
	"github.com/unaibg/merkatu/internal/monitoring"
	"github.com/unaibg/merkatu/internal/pkg/token"
)

// ---- Mock repositories ----

type mockVendorRepo struct {
	listFn      func(ctx context.Context) ([]domain.Vendor, error)
	getBySlugFn func(ctx context.Context, slug string) (*domain.Vendor, error)
}

func (m *mockVendorRepo) Upsert(ctx context.Context, v *domain.Vendor) error { return nil }
func (m *mockVendorRepo) List(ctx context.Context) ([]domain.Vendor, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}
func (m *mockVendorRepo) GetBySlug(ctx context.Context, slug string) (*domain.Vendor, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slug)
	}
	return nil, fmt.Errorf("not found")
}

type mockListingRepo struct {
	getByIDFn    func(ctx context.Context, id string) (*domain.Listing, error)
	byVendorFn   func(ctx context.Context, vendorID string) ([]domain.Listing, error)
	byCategoryFn func(ctx context.Context, category string, limit int) ([]domain.Listing, error)
	searchFn     func(ctx context.Context, query string, limit int) ([]domain.Listing, error)
	createFn     func(ctx context.Context, l *domain.Listing) error
}

func (m *mockListingRepo) Create(ctx context.Context, l *domain.Listing) error {
	if m.createFn != nil {
		return m.createFn(ctx, l)
	}
	l.ID = "l-1"
	return nil
}
func (m *mockListingRepo) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, fmt.Errorf("not found")
}
func (m *mockListingRepo) ListByVendor(ctx context.Context, vendorID string) ([]domain.Listing, error) {
	if m.byVendorFn != nil {
		return m.byVendorFn(ctx, vendorID)
	}
	return nil, nil
}
func (m *mockListingRepo) ListByCategory(ctx context.Context, category string, limit int) ([]domain.Listing, error) {
	if m.byCategoryFn != nil {
		return m.byCategoryFn(ctx, category, limit)
	}
	return nil, nil
}
func (m *mockListingRepo) Search(ctx context.Context, query string, limit int) ([]domain.Listing, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, limit)
	}
	return nil, nil
}

type mockUserRepo struct {
	byEmail map[string]*domain.User
}

func newMockUserRepo() *mockUserRepo { return &mockUserRepo{byEmail: map[string]*domain.User{}} }

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User) error {
	if _, exists := m.byEmail[u.Email]; exists {
		return fmt.Errorf("email already registered")
	}
	u.ID = fmt.Sprintf("u-%d", len(m.byEmail)+1)
	m.byEmail[u.Email] = u
	return nil
}
func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("not found")
}
func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, fmt.Errorf("not found")
}
func (m *mockUserRepo) SetVerified(ctx context.Context, id string) error { return nil }
func (m *mockUserRepo) UpdatePassword(ctx context.Context, id string, hash []byte) error {
	return nil
}
func (m *mockUserRepo) UpdateRole(ctx context.Context, id, role string) error {
	for _, u := range m.byEmail {
		if u.ID == id {
			u.Role = role
			return nil
		}
	}
	return fmt.Errorf("not found")
}

type mockMailer struct{}

func (mockMailer) SendVerification(ctx context.Context, email, token string) error  { return nil }
func (mockMailer) SendPasswordReset(ctx context.Context, email, token string) error { return nil }

// ---- Test helpers ----

const (
	testJWTSecret  = "test-secret"
	testAdminToken = "ops-token"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	logger := quietLogger()
	funnel := monitoring.NewFunnelTracker(logger, monitoring.NewLogNotifier(logger), monitoring.Thresholds{}, 0)

	d := &handler.Dependencies{
		Vendors:  usecases.NewVendorService(&mockVendorRepo{}),
		Listings: usecases.NewListingService(&mockListingRepo{}, nil),
		Auth: usecases.NewAuthService(newMockUserRepo(), mockMailer{}, funnel,
			testJWTSecret, 15*time.Minute),
		Monitor:    monitoring.NewMonitor(logger, monitoring.Thresholds{}),
		ErrorRates: monitoring.NewErrorRateTracker(logger, 0),
		Funnel:     funnel,
		JWTSecret:  testJWTSecret,
		AdminToken: testAdminToken,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

// ---- Vendor handler tests ----

func TestListVendors_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Vendors = usecases.NewVendorService(&mockVendorRepo{
			listFn: func(ctx context.Context) ([]domain.Vendor, error) {
				return []domain.Vendor{
					{ID: "v1", Slug: "gure-ogia", Name: "Gure Ogia", City: "Bilbao"},
					{ID: "v2", Slug: "kafe-antzokia", Name: "Kafe Antzokia", City: "Bilbao"},
				}, nil
			},
		})
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/vendors", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Vendor `json:"data"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Pagination.Total != 2 {
		t.Errorf("expected total 2, got %d", result.Pagination.Total)
	}
	if len(result.Data) != 2 {
		t.Errorf("expected 2 vendors, got %d", len(result.Data))
	}
}

func TestGetVendor_NotFound(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/vendors/nobody", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// ---- Listing handler tests ----

func TestSearchListings_RequiresQuery(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/listings/search", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetListing_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Listings = usecases.NewListingService(&mockListingRepo{
			getByIDFn: func(ctx context.Context, id string) (*domain.Listing, error) {
				return &domain.Listing{ID: id, VendorID: "v1", Title: "Talo eta txistorra"}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/listings/l-7", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var l domain.Listing
	if err := json.NewDecoder(resp.Body).Decode(&l); err != nil {
		t.Fatal(err)
	}
	if l.ID != "l-7" {
		t.Errorf("expected l-7, got %s", l.ID)
	}
}

func TestCreateListing_RequiresAuth(t *testing.T) {
	app := setupApp(makeDeps())

	body := strings.NewReader(`{"vendor_id":"v1","title":"Pintxo tour"}`)
	req := httptest.NewRequest("POST", "/v1/listings", body)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCreateListing_VendorRole(t *testing.T) {
	app := setupApp(makeDeps())

	vendorToken, err := token.Generate("u-1", domain.RoleVendor, testJWTSecret, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	body := strings.NewReader(`{"vendor_id":"v1","title":"Pintxo tour","category":"experiences","price_cents":4500}`)
	req := httptest.NewRequest("POST", "/v1/listings", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+vendorToken)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
}

func TestCreateListing_UserRoleForbidden(t *testing.T) {
	app := setupApp(makeDeps())

	userToken, err := token.Generate("u-1", domain.RoleUser, testJWTSecret, time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	body := strings.NewReader(`{"vendor_id":"v1","title":"Pintxo tour"}`)
	req := httptest.NewRequest("POST", "/v1/listings", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+userToken)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 403 {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

// ---- Auth flow tests ----

func TestSignupAndLogin(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)

	signup := strings.NewReader(`{"email":"ane@example.com","password":"correct-horse"}`)
	req := httptest.NewRequest("POST", "/v1/auth/signup", signup)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	login := strings.NewReader(`{"email":"ane@example.com","password":"correct-horse"}`)
	req = httptest.NewRequest("POST", "/v1/auth/login", login)
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Token == "" {
		t.Fatal("expected a session token")
	}

	m := deps.Funnel.Metrics()
	if m.Counts[monitoring.EventSignupSucceeded] != 1 {
		t.Errorf("expected 1 signup_succeeded, got %d", m.Counts[monitoring.EventSignupSucceeded])
	}
	if m.Counts[monitoring.EventLoginSucceeded] != 1 {
		t.Errorf("expected 1 login_succeeded, got %d", m.Counts[monitoring.EventLoginSucceeded])
	}
}

// ---- Email webhook tests ----

func TestEmailWebhook_RecordsOutcomes(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)

	body := strings.NewReader(`[
		{"type":"delivered","email":"a@example.com"},
		{"type":"bounced","email":"b@example.com","bounce_type":"hard"},
		{"type":"bounced","email":"c@example.com","bounce_type":"soft"},
		{"type":"complained","email":"d@example.com"},
		{"type":"opened","email":"e@example.com"}
	]`)
	req := httptest.NewRequest("POST", "/v1/webhooks/email", body)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Accepted int `json:"accepted"`
		Received int `json:"received"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Accepted != 4 || result.Received != 5 {
		t.Errorf("expected 4/5 accepted, got %d/%d", result.Accepted, result.Received)
	}

	m := deps.Funnel.Metrics()
	if m.Counts[monitoring.EventEmailDelivered] != 1 {
		t.Errorf("expected 1 delivered, got %d", m.Counts[monitoring.EventEmailDelivered])
	}
	if m.Counts[monitoring.EventEmailBounced] != 2 {
		t.Errorf("expected 2 bounced, got %d", m.Counts[monitoring.EventEmailBounced])
	}
	if m.HardBounces != 1 {
		t.Errorf("expected 1 hard bounce, got %d", m.HardBounces)
	}
	if m.SpamComplaints != 1 {
		t.Errorf("expected 1 complaint, got %d", m.SpamComplaints)
	}
}

// ---- Ops endpoint tests ----

func TestOpsEndpoints_RequireAdminToken(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/ops/funnel", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/v1/ops/funnel", nil)
	req.Header.Set("X-Admin-Token", testAdminToken)
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestOpsErrorRates_TracksRequests(t *testing.T) {
	deps := makeDeps()
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/vendors", nil)
	if _, err := app.Test(req, -1); err != nil {
		t.Fatal(err)
	}
	req = httptest.NewRequest("GET", "/v1/vendors/nobody", nil)
	if _, err := app.Test(req, -1); err != nil {
		t.Fatal(err)
	}

	snapshot := deps.ErrorRates.Snapshot()
	list, ok := snapshot["GET /v1/vendors"]
	if !ok {
		t.Fatalf("expected GET /v1/vendors in snapshot, got %v", snapshot)
	}
	if list.TotalRequests != 1 {
		t.Errorf("expected 1 request, got %d", list.TotalRequests)
	}
	// A 404 is a client-visible miss, not a server error
	if rate := deps.ErrorRates.Rate("GET /v1/vendors/:slug"); rate != 0 {
		t.Errorf("expected 0%% error rate for 404s, got %f", rate)
	}
}

// ---- Health tests ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/health", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestReady_NoDatabase(t *testing.T) {
	app := setupApp(makeDeps())

	req := httptest.NewRequest("GET", "/v1/ready", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503 without a database, got %d", resp.StatusCode)
	}
}
