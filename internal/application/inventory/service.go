package inventory

import (
	"context"

	dominv "github.com/Zhima-Mochi/minishop-stock/internal/domain/inventory"
)

// Service is the innermost Deductor and the only one that touches the repository.
type Service struct {
	invRepo dominv.Repository
}

func NewService(invRepo dominv.Repository) *Service {
	return &Service{invRepo: invRepo}
}

func (s *Service) Deduct(ctx context.Context, req dominv.DeductionRequest) dominv.DeductionResult {
	qty, ok := s.invRepo.TryDeduct(ctx, req.Key(), req.Quantity)
	if !ok {
		return dominv.Failed("insufficient stock, cur=%d", qty)
	}
	return dominv.Succeeded("deducted, left=%d", qty)
}
