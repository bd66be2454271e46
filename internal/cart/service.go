package cart

import "context"

// ServiceInterface is the slice of cart behaviour checkout depends on.
type ServiceInterface interface {
	Snapshot(ctx context.Context, userID int) (Items, error)
	Clear(ctx context.Context, userID int) error
}

type Service struct {
	repo Repository
}

func NewService(r Repository) *Service {
	return &Service{repo: r}
}

var _ ServiceInterface = (*Service)(nil)

func (s *Service) Get(ctx context.Context, userID int) (Items, error) {
	return s.repo.Get(ctx, userID)
}

// Snapshot returns the cart contents checkout will price. It is the same
// read as Get; the alias keeps the checkout-facing interface narrow.
func (s *Service) Snapshot(ctx context.Context, userID int) (Items, error) {
	return s.repo.Get(ctx, userID)
}

func (s *Service) Add(ctx context.Context, userID, productID, qty int) (Items, error) {
	return s.repo.Add(ctx, userID, productID, qty)
}

func (s *Service) Clear(ctx context.Context, userID int) error {
	return s.repo.Clear(ctx, userID)
}
