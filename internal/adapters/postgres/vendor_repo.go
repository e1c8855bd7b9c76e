package postgres

import (
	"context"
	"database/sql"

	"github.com/unaibg/merkatu/internal/core/domain"
)

// VendorRepo implements ports.VendorRepository.
type VendorRepo struct {
	db *DB
}

func NewVendorRepo(db *DB) *VendorRepo {
	return &VendorRepo{db: db}
}

func (r *VendorRepo) Upsert(ctx context.Context, vendor *domain.Vendor) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO vendors (slug, name, description, city, url)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (slug) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description,
		    city = EXCLUDED.city, url = EXCLUDED.url
	`, vendor.Slug, vendor.Name, vendor.Description, vendor.City, vendor.URL)
	return err
}

func (r *VendorRepo) GetBySlug(ctx context.Context, slug string) (*domain.Vendor, error) {
	v := &domain.Vendor{}
	var urlVal sql.NullString
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, slug, name, COALESCE(description, ''), city, COALESCE(url, ''), created_at
		FROM vendors WHERE slug = $1
	`, slug).Scan(&v.ID, &v.Slug, &v.Name, &v.Description, &v.City, &urlVal, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	v.URL = urlVal.String
	return v, nil
}

func (r *VendorRepo) List(ctx context.Context) ([]domain.Vendor, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, slug, name, COALESCE(description, ''), city, COALESCE(url, ''), created_at
		FROM vendors ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vendors []domain.Vendor
	for rows.Next() {
		var v domain.Vendor
		if err := rows.Scan(&v.ID, &v.Slug, &v.Name, &v.Description, &v.City, &v.URL, &v.CreatedAt); err != nil {
			return nil, err
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}
