package ports

import (
	"context"

	"github.com/unaibg/merkatu/internal/core/domain"
)

// VendorRepository persists vendors.
type VendorRepository interface {
	Upsert(ctx context.Context, vendor *domain.Vendor) error
	GetBySlug(ctx context.Context, slug string) (*domain.Vendor, error)
	List(ctx context.Context) ([]domain.Vendor, error)
}

// ListingRepository persists listings.
type ListingRepository interface {
	Create(ctx context.Context, listing *domain.Listing) error
	GetByID(ctx context.Context, id string) (*domain.Listing, error)
	ListByVendor(ctx context.Context, vendorID string) ([]domain.Listing, error)
	ListByCategory(ctx context.Context, category string, limit int) ([]domain.Listing, error)
	Search(ctx context.Context, query string, limit int) ([]domain.Listing, error)
}

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	SetVerified(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id string, hash []byte) error
	UpdateRole(ctx context.Context, id, role string) error
}
