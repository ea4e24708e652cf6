package repository

import (
	"context"
	"database/sql"

	"github.com/eaglebank/banking/shared/models"
)

// CustomerStore is the write model of the customer registry.
type CustomerStore interface {
	Create(ctx context.Context, customer *models.Customer) error
	GetByID(ctx context.Context, id int64) (*models.Customer, error)
	List(ctx context.Context) ([]models.Customer, error)
	Update(ctx context.Context, customer *models.Customer) error
	Delete(ctx context.Context, id int64) error
	// AdjustAccountCount adds delta to the customer's account count, never
	// letting it drop below zero, and returns the updated customer.
	AdjustAccountCount(ctx context.Context, id int64, delta int) (*models.Customer, error)
}

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
