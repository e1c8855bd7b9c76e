package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/unaibg/merkatu/internal/core/domain"
)

// ListVendorsHandler returns all vendors, paginated.
func ListVendorsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var vendors []domain.Vendor
		err := withSpan(c, func() error {
			var err error
			vendors, err = deps.Vendors.List(c.Context())
			return err
		})
		if err != nil {
			return errInternal(c, err.Error())
		}

		pg := parsePagination(c, 100, 200)
		page, pg := paginate(vendors, pg)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// GetVendorHandler returns a single vendor by slug.
func GetVendorHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := c.Params("slug")
		if slug == "" {
			return errBadRequest(c, "vendor slug is required")
		}

		var vendor *domain.Vendor
		err := withSpan(c, func() error {
			var err error
			vendor, err = deps.Vendors.GetBySlug(c.Context(), slug)
			return err
		})
		if err != nil {
			return errNotFound(c, "vendor not found")
		}

		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(vendor)
	}
}

// VendorListingsHandler returns a vendor's listings.
func VendorListingsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slug := c.Params("slug")
		if slug == "" {
			return errBadRequest(c, "vendor slug is required")
		}

		var listings []domain.Listing
		err := withSpan(c, func() error {
			vendor, err := deps.Vendors.GetBySlug(c.Context(), slug)
			if err != nil {
				return err
			}
			listings, err = deps.Listings.ListByVendor(c.Context(), vendor.ID)
			return err
		})
		if err != nil {
			return errNotFound(c, "vendor not found")
		}

		return c.JSON(listings)
	}
}

// ListingsByCategoryHandler returns active listings in a category.
func ListingsByCategoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		category := c.Query("category")
		if category == "" {
			return errBadRequest(c, "category query parameter is required")
		}
		limit := c.QueryInt("limit", 50)

		var listings []domain.Listing
		err := withSpan(c, func() error {
			var err error
			listings, err = deps.Listings.ListByCategory(c.Context(), category, limit)
			return err
		})
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=120")
		return c.JSON(listings)
	}
}

// SearchListingsHandler performs fuzzy search on listing titles.
func SearchListingsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("q")
		if query == "" {
			return errBadRequest(c, "q query parameter is required")
		}
		if len(query) > 200 {
			return errBadRequest(c, "query too long (max 200 characters)")
		}
		limit := c.QueryInt("limit", 20)

		var listings []domain.Listing
		err := withSpan(c, func() error {
			var err error
			listings, err = deps.Listings.Search(c.Context(), query, limit)
			return err
		})
		if err != nil {
			return errInternal(c, err.Error())
		}

		return c.JSON(listings)
	}
}

// GetListingHandler returns a single listing by ID.
func GetListingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "listing id is required")
		}

		var listing *domain.Listing
		err := withSpan(c, func() error {
			var err error
			listing, err = deps.Listings.GetByID(c.Context(), id)
			return err
		})
		if err != nil {
			return errNotFound(c, "listing not found")
		}

		return c.JSON(listing)
	}
}

type createListingRequest struct {
	VendorID    string         `json:"vendor_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	PriceCents  int            `json:"price_cents"`
	Currency    string         `json:"currency"`
	Metadata    map[string]any `json:"metadata"`
}

// CreateListingHandler creates a listing. Requires the vendor or admin role.
func CreateListingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createListingRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		listing := &domain.Listing{
			VendorID:    req.VendorID,
			Title:       req.Title,
			Description: req.Description,
			Category:    req.Category,
			PriceCents:  req.PriceCents,
			Currency:    req.Currency,
			Metadata:    req.Metadata,
			Active:      true,
		}

		err := withSpan(c, func() error {
			return deps.Listings.Create(c.Context(), listing)
		})
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		return c.Status(fiber.StatusCreated).JSON(listing)
	}
}
