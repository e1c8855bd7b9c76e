package usecases

import (
	"context"

	"github.com/unaibg/merkatu/internal/core/domain"
	"github.com/unaibg/merkatu/internal/core/ports"
)

// VendorService handles vendor-related business logic.
type VendorService struct {
	vendors ports.VendorRepository
}

// NewVendorService creates a new VendorService.
func NewVendorService(vendors ports.VendorRepository) *VendorService {
	return &VendorService{vendors: vendors}
}

// List returns all vendors.
func (s *VendorService) List(ctx context.Context) ([]domain.Vendor, error) {
	return s.vendors.List(ctx)
}

// GetBySlug returns a single vendor.
func (s *VendorService) GetBySlug(ctx context.Context, slug string) (*domain.Vendor, error) {
	return s.vendors.GetBySlug(ctx, slug)
}
