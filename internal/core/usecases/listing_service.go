package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/unaibg/merkatu/internal/core/domain"
	"github.com/unaibg/merkatu/internal/core/ports"
	"github.com/unaibg/merkatu/internal/pkg/metrics"
)

// ListingService handles listing-related business logic.
type ListingService struct {
	listings ports.ListingRepository
	cache    ports.CacheService
}

// NewListingService creates a new ListingService.
func NewListingService(listings ports.ListingRepository, cache ports.CacheService) *ListingService {
	return &ListingService{listings: listings, cache: cache}
}

// GetByID returns a single listing, read-through cached.
func (s *ListingService) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	cacheKey := "listings:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var l domain.Listing
			if err := json.Unmarshal(data, &l); err == nil {
				return &l, nil
			}
		}
	}

	listing, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(listing); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}

	return listing, nil
}

// ListByVendor returns a vendor's listings.
func (s *ListingService) ListByVendor(ctx context.Context, vendorID string) ([]domain.Listing, error) {
	return s.listings.ListByVendor(ctx, vendorID)
}

// ListByCategory returns active listings in a category.
func (s *ListingService) ListByCategory(ctx context.Context, category string, limit int) ([]domain.Listing, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	cacheKey := fmt.Sprintf("listings:cat:%s:%d", category, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var listings []domain.Listing
			if err := json.Unmarshal(data, &listings); err == nil {
				return listings, nil
			}
		}
	}

	listings, err := s.listings.ListByCategory(ctx, category, limit)
	if err != nil {
		return nil, err
	}

	// Cache for 2 minutes; category pages change often enough
	if s.cache != nil {
		if data, err := json.Marshal(listings); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 120)
		}
	}

	return listings, nil
}

// Search performs full-text search on listing titles and descriptions.
func (s *ListingService) Search(ctx context.Context, query string, limit int) ([]domain.Listing, error) {
	if query == "" {
		return nil, fmt.Errorf("search query must not be empty")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.listings.Search(ctx, query, limit)
}

// Create stores a new listing owned by a vendor.
func (s *ListingService) Create(ctx context.Context, listing *domain.Listing) error {
	if listing.Title == "" {
		return fmt.Errorf("listing title is required")
	}
	if listing.VendorID == "" {
		return fmt.Errorf("listing vendor is required")
	}
	if listing.Currency == "" {
		listing.Currency = "EUR"
	}

	if err := s.listings.Create(ctx, listing); err != nil {
		return err
	}
	metrics.ListingsCreated.Inc()

	if s.cache != nil {
		_ = s.cache.Delete(ctx, fmt.Sprintf("listings:cat:%s:%d", listing.Category, 50))
	}
	return nil
}
