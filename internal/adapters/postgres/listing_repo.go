package postgres

import (
	"context"

	"github.com/unaibg/merkatu/internal/core/domain"
)

// ListingRepo implements ports.ListingRepository with pgx.
type ListingRepo struct {
	db *DB
}

// NewListingRepo creates a new ListingRepo.
func NewListingRepo(db *DB) *ListingRepo {
	return &ListingRepo{db: db}
}

const listingColumns = `
	id, vendor_id, title, COALESCE(description, ''), category,
	price_cents, currency, active, COALESCE(metadata, '{}'), created_at`

func scanListing(row interface{ Scan(...any) error }, l *domain.Listing) error {
	return row.Scan(
		&l.ID, &l.VendorID, &l.Title, &l.Description, &l.Category,
		&l.PriceCents, &l.Currency, &l.Active, &l.Metadata, &l.CreatedAt,
	)
}

// Create inserts a listing and fills in its generated id.
func (r *ListingRepo) Create(ctx context.Context, l *domain.Listing) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO listings (vendor_id, title, description, category, price_cents, currency, active, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, true, $7)
		RETURNING id, created_at
	`, l.VendorID, l.Title, l.Description, l.Category, l.PriceCents, l.Currency, l.Metadata).
		Scan(&l.ID, &l.CreatedAt)
}

// GetByID returns a listing by UUID.
func (r *ListingRepo) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	var l domain.Listing
	err := scanListing(r.db.Pool.QueryRow(ctx, `
		SELECT`+listingColumns+`
		FROM listings WHERE id = $1
	`, id), &l)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListByVendor returns all of a vendor's listings, newest first.
func (r *ListingRepo) ListByVendor(ctx context.Context, vendorID string) ([]domain.Listing, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT`+listingColumns+`
		FROM listings WHERE vendor_id = $1
		ORDER BY created_at DESC
	`, vendorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		var l domain.Listing
		if err := scanListing(rows, &l); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// ListByCategory returns active listings in a category.
func (r *ListingRepo) ListByCategory(ctx context.Context, category string, limit int) ([]domain.Listing, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT`+listingColumns+`
		FROM listings WHERE category = $1 AND active
		ORDER BY created_at DESC
		LIMIT $2
	`, category, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		var l domain.Listing
		if err := scanListing(rows, &l); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// Search performs fuzzy + full-text search on listing titles and descriptions.
func (r *ListingRepo) Search(ctx context.Context, query string, limit int) ([]domain.Listing, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT`+listingColumns+`,
		       similarity(title, $1) as sim
		FROM listings
		WHERE active AND (search_vector @@ plainto_tsquery('spanish', $1) OR title %> $1)
		ORDER BY sim DESC
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		var l domain.Listing
		var sim float64
		if err := rows.Scan(
			&l.ID, &l.VendorID, &l.Title, &l.Description, &l.Category,
			&l.PriceCents, &l.Currency, &l.Active, &l.Metadata, &l.CreatedAt,
			&sim,
		); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}
