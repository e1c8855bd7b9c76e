package usecases_test

import (
	"context"
	"testing"

	"github.com/unaibg/merkatu/internal/core/domain"
	"github.com/unaibg/merkatu/internal/core/usecases"
)

// --- Mock VendorRepository ---

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
	return nil, nil
}

func TestVendorService_List(t *testing.T) {
	repo := &mockVendorRepo{
		listFn: func(ctx context.Context) ([]domain.Vendor, error) {
			return []domain.Vendor{
				{Slug: "gure-ogia", Name: "Gure Ogia", City: "Bilbao"},
				{Slug: "kafe-antzokia", Name: "Kafe Antzokia", City: "Bilbao"},
			}, nil
		},
	}

	svc := usecases.NewVendorService(repo)
	vendors, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vendors) != 2 {
		t.Fatalf("expected 2 vendors, got %d", len(vendors))
	}
}

func TestVendorService_GetBySlug(t *testing.T) {
	repo := &mockVendorRepo{
		getBySlugFn: func(ctx context.Context, slug string) (*domain.Vendor, error) {
			return &domain.Vendor{Slug: slug, Name: "Gure Ogia"}, nil
		},
	}

	svc := usecases.NewVendorService(repo)
	v, err := svc.GetBySlug(context.Background(), "gure-ogia")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Slug != "gure-ogia" {
		t.Errorf("expected gure-ogia, got %s", v.Slug)
	}
}
