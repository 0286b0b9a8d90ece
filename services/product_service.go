package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"bulk-order-service/models"
	"bulk-order-service/repository"
)

type ProductService struct {
	products repository.ProductRepository
	log      zerolog.Logger
	now      func() time.Time
}

func NewProductService(products repository.ProductRepository, log zerolog.Logger) *ProductService {
	return &ProductService{
		products: products,
		log:      log.With().Str("component", "product_service").Logger(),
		now:      time.Now,
	}
}

// List is the public catalogue used for browsing and cart seeding.
func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	return s.products.ListProducts(ctx)
}

func (s *ProductService) Get(ctx context.Context, identity *models.Identity, id int64) (*models.Product, error) {
	if err := authorize(identity, models.RoleAdmin); err != nil {
		return nil, err
	}
	return s.products.GetProduct(ctx, id)
}

func (s *ProductService) Create(ctx context.Context, identity *models.Identity, in models.ProductInput) (*models.Product, error) {
	if err := authorize(identity, models.RoleAdmin); err != nil {
		return nil, err
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &models.Product{CreatedAt: now, UpdatedAt: now}
	in.Apply(p)
	if err := s.products.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info().Int64("product_id", p.ID).Str("name", p.Name).Int("stock", p.StockQuantity).Msg("product created")
	return p, nil
}

func (s *ProductService) Update(ctx context.Context, identity *models.Identity, id int64, in models.ProductInput) (*models.Product, error) {
	if err := authorize(identity, models.RoleAdmin); err != nil {
		return nil, err
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	in.Apply(p)
	p.UpdatedAt = s.now().UTC()
	if err := s.products.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info().Int64("product_id", p.ID).Msg("product updated")
	return p, nil
}

// Delete removes a product from the catalogue. Orders keep their snapshots.
func (s *ProductService) Delete(ctx context.Context, identity *models.Identity, id int64) error {
	if err := authorize(identity, models.RoleAdmin); err != nil {
		return err
	}
	if err := s.products.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("product_id", id).Msg("product deleted")
	return nil
}
