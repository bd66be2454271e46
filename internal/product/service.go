package product

import (
	"context"
	"time"
)

// ServiceInterface is the surface the order and payment packages depend on.
type ServiceInterface interface {
	GetByID(ctx context.Context, id int) (Product, error)
	ListByIDs(ctx context.Context, ids []int) ([]Product, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var _ ServiceInterface = (*Service)(nil)

func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetByID(ctx context.Context, id int) (Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByIDs(ctx context.Context, ids []int) ([]Product, error) {
	return s.repo.ListByIDs(ctx, ids)
}

// PricedList returns the catalog with price snapshots evaluated at now.
func (s *Service) PricedList(ctx context.Context, now time.Time) ([]Priced, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return priceAll(products, now), nil
}

// PricedByID returns one product with its price snapshot evaluated at now.
func (s *Service) PricedByID(ctx context.Context, id int, now time.Time) (Priced, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Priced{}, err
	}
	return price(p, now), nil
}
