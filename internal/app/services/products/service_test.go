package products

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/visionfit/backend/internal/errors"

	"github.com/visionfit/backend/internal/app/domain/product"
	"github.com/visionfit/backend/internal/app/storage/memory"
)

func TestCreateDefaultsAndValidation(t *testing.T) {
	svc := New(memory.New(), nil)

	created, err := svc.Create(context.Background(), product.Product{Title: "  Aviator  "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Title != "Aviator" {
		t.Fatalf("title not trimmed: %q", created.Title)
	}
	if created.Type != product.TypeEyewear {
		t.Fatalf("expected eyewear default, got %q", created.Type)
	}
	if created.ID == "" {
		t.Fatalf("expected generated id")
	}

	_, err = svc.Create(context.Background(), product.Product{Title: "   "})
	svcErr := apperrors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != apperrors.CodeValidation {
		t.Fatalf("expected validation error for empty title, got %v", err)
	}

	_, err = svc.Create(context.Background(), product.Product{Title: "Thing", Type: "sofa"})
	svcErr = apperrors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != apperrors.CodeValidation {
		t.Fatalf("expected validation error for unknown type, got %v", err)
	}
}

func TestGetUnknown(t *testing.T) {
	svc := New(memory.New(), nil)
	_, err := svc.Get(context.Background(), "missing")
	svcErr := apperrors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != apperrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

const seedYAML = `products:
  - title: Aviator Classic
    sku: AV-001
    type: eyewear
    model_url: https://cdn.example.com/aviator.glb
  - title: Quest Headset
    sku: QH-100
    type: headset
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestLoadSeed(t *testing.T) {
	svc := New(memory.New(), nil)
	path := writeSeed(t, seedYAML)

	if err := svc.LoadSeed(context.Background(), path); err != nil {
		t.Fatalf("load seed: %v", err)
	}

	items, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 seeded products, got %d", len(items))
	}
	if items[0].Title != "Aviator Classic" || items[0].Type != product.TypeEyewear {
		t.Fatalf("unexpected first product %+v", items[0])
	}
	if items[1].Type != product.TypeHeadset {
		t.Fatalf("unexpected second product %+v", items[1])
	}

	// A second run is a no-op when the catalog is populated.
	if err := svc.LoadSeed(context.Background(), path); err != nil {
		t.Fatalf("second load: %v", err)
	}
	items, _ = svc.List(context.Background())
	if len(items) != 2 {
		t.Fatalf("seed duplicated entries: %d", len(items))
	}
}

func TestLoadSeedMissingFile(t *testing.T) {
	svc := New(memory.New(), nil)
	if err := svc.LoadSeed(context.Background(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing seed file")
	}
}

func TestLoadSeedInvalidProduct(t *testing.T) {
	svc := New(memory.New(), nil)
	path := writeSeed(t, "products:\n  - title: Broken\n    type: sofa\n")
	if err := svc.LoadSeed(context.Background(), path); err == nil {
		t.Fatalf("expected error for invalid product type")
	}
}
