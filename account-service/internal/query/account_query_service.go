package query

import (
	"context"

	"github.com/eaglebank/banking/shared/cqrs"
	"github.com/eaglebank/banking/shared/models"
)

// AccountReader is the read model the query side serves accounts from.
type AccountReader interface {
	GetByID(ctx context.Context, id int64) (*models.AccountView, error)
	GetByAccountNumber(ctx context.Context, accountNumber string) (*models.AccountView, error)
	List(ctx context.Context) ([]models.AccountView, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]models.AccountView, error)
}

type AccountQueryService struct {
	readRepo AccountReader
}

func NewAccountQueryService(readRepo AccountReader) *AccountQueryService {
	return &AccountQueryService{readRepo: readRepo}
}

func (s *AccountQueryService) GetAccount(ctx context.Context, q cqrs.GetAccountQuery) (*models.AccountView, error) {
	return s.readRepo.GetByID(ctx, q.AccountID)
}

func (s *AccountQueryService) GetAccountByNumber(ctx context.Context, q cqrs.GetAccountByNumberQuery) (*models.AccountView, error) {
	return s.readRepo.GetByAccountNumber(ctx, q.AccountNumber)
}

func (s *AccountQueryService) ListAccounts(ctx context.Context, q cqrs.ListAccountsQuery) ([]models.AccountView, error) {
	if q.CustomerID != 0 {
		return s.readRepo.ListByCustomer(ctx, q.CustomerID)
	}
	return s.readRepo.List(ctx)
}
