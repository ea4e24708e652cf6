package query

import (
	"context"

	"github.com/eaglebank/banking/shared/cqrs"
	"github.com/eaglebank/banking/shared/models"
)

type CustomerReader interface {
	GetByID(ctx context.Context, id int64) (*models.CustomerView, error)
	List(ctx context.Context) ([]models.CustomerView, error)
}

// CustomerQueryService reads customer views from the Redis cache (with a Postgres fallback).
type CustomerQueryService struct {
	readRepo CustomerReader
}

func NewCustomerQueryService(readRepo CustomerReader) *CustomerQueryService {
	return &CustomerQueryService{readRepo: readRepo}
}

func (s *CustomerQueryService) GetCustomer(ctx context.Context, q cqrs.GetCustomerQuery) (*models.CustomerView, error) {
	return s.readRepo.GetByID(ctx, q.CustomerID)
}

func (s *CustomerQueryService) ListCustomers(ctx context.Context) ([]models.CustomerView, error) {
	return s.readRepo.List(ctx)
}
