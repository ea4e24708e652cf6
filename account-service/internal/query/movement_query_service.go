package query

import (
	"context"
	"fmt"

	"github.com/eaglebank/banking/account-service/internal/repository"
	"github.com/eaglebank/banking/shared/cqrs"
	"github.com/eaglebank/banking/shared/models"
	"github.com/eaglebank/banking/shared/xerrors"
)

// MovementQueryService reads the movement log. Movements are never cached:
// the log is the source the balances are checked against.
type MovementQueryService struct {
	stores repository.Stores
}

func NewMovementQueryService(stores repository.Stores) *MovementQueryService {
	return &MovementQueryService{stores: stores}
}

func (s *MovementQueryService) GetMovement(ctx context.Context, q cqrs.GetMovementQuery) (*models.Movement, error) {
	return s.stores.Movements.GetByID(ctx, q.MovementID)
}

func (s *MovementQueryService) ListAllMovements(ctx context.Context) ([]models.Movement, error) {
	return s.stores.Movements.List(ctx)
}

// ListMovements returns the account's movements newest first, or oldest
// first inside [From, To] when both are set.
func (s *MovementQueryService) ListMovements(ctx context.Context, q cqrs.ListMovementsQuery) ([]models.Movement, error) {
	exists, err := s.stores.Accounts.Exists(ctx, q.AccountID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("account %d: %w", q.AccountID, xerrors.ErrAccountNotFound)
	}

	if q.From != nil && q.To != nil {
		if q.To.Before(*q.From) {
			return nil, fmt.Errorf("%w: range end is before its start", xerrors.ErrValidation)
		}
		return s.stores.Movements.ListByAccountInRange(ctx, q.AccountID, *q.From, *q.To)
	}
	return s.stores.Movements.ListByAccountDescending(ctx, q.AccountID)
}
