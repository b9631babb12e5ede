// Package products manages the try-on catalog.
package products

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/visionfit/backend/internal/errors"

	"github.com/visionfit/backend/internal/app/domain/product"
	"github.com/visionfit/backend/internal/app/storage"
	"github.com/visionfit/backend/pkg/logger"
)

// Service manages catalog entries.
type Service struct {
	store storage.ProductStore
	log   *logger.Logger
}

// New constructs a product service.
func New(store storage.ProductStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("products")
	}
	return &Service{store: store, log: log}
}

// Create registers a catalog entry. An empty type defaults to eyewear.
func (s *Service) Create(ctx context.Context, prod product.Product) (product.Product, error) {
	prod.Title = strings.TrimSpace(prod.Title)
	if prod.Title == "" {
		return product.Product{}, apperrors.Validation("title is required")
	}
	if prod.Type == "" {
		prod.Type = product.TypeEyewear
	}
	if !prod.Type.Valid() {
		return product.Product{}, apperrors.Validation(fmt.Sprintf("unsupported product type %q", prod.Type))
	}

	created, err := s.store.CreateProduct(ctx, prod)
	if err != nil {
		return product.Product{}, err
	}
	s.log.Infof("product %s created", created.ID)
	return created, nil
}

// Get retrieves a product by identifier.
func (s *Service) Get(ctx context.Context, id string) (product.Product, error) {
	prod, err := s.store.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return product.Product{}, apperrors.NotFound("product not found")
		}
		return product.Product{}, err
	}
	return prod, nil
}

// List returns the full catalog.
func (s *Service) List(ctx context.Context) ([]product.Product, error) {
	return s.store.ListProducts(ctx)
}

type seedFile struct {
	Products []struct {
		Title        string `yaml:"title"`
		SKU          string `yaml:"sku"`
		Type         string `yaml:"type"`
		ModelURL     string `yaml:"model_url"`
		ThumbnailURL string `yaml:"thumbnail_url"`
	} `yaml:"products"`
}

// LoadSeed populates the catalog from a YAML file. Seeding only runs when
// the catalog is empty, so restarts do not duplicate entries.
func (s *Service) LoadSeed(ctx context.Context, path string) error {
	existing, err := s.store.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	if len(existing) > 0 {
		s.log.Infof("catalog already has %d products; skipping seed", len(existing))
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog seed: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse catalog seed: %w", err)
	}

	for _, entry := range seed.Products {
		if _, err := s.Create(ctx, product.Product{
			Title:        entry.Title,
			SKU:          entry.SKU,
			Type:         product.Type(entry.Type),
			ModelURL:     entry.ModelURL,
			ThumbnailURL: entry.ThumbnailURL,
		}); err != nil {
			return fmt.Errorf("seed product %q: %w", entry.Title, err)
		}
	}
	s.log.Infof("seeded %d catalog products from %s", len(seed.Products), path)
	return nil
}
