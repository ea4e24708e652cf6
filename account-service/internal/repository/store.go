package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/eaglebank/banking/shared/models"
)

// AccountStore holds the current state of every account.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	// GetByIDForUpdate returns the account and holds its lock until the
	// surrounding unit of work ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Account, error)
	GetByAccountNumber(ctx context.Context, accountNumber string) (*models.Account, error)
	List(ctx context.Context) ([]models.Account, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]models.Account, error)
	Update(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, id int64) error
	Exists(ctx context.Context, id int64) (bool, error)
}

// MovementLog is the append-only history of value changes per account.
// UpdateSnapshot and Delete exist only for administrative corrections, after
// which the ledger recomputes every snapshot of the account.
type MovementLog interface {
	Append(ctx context.Context, movement *models.Movement) error
	GetByID(ctx context.Context, id int64) (*models.Movement, error)
	List(ctx context.Context) ([]models.Movement, error)
	ListByAccount(ctx context.Context, accountID int64) ([]models.Movement, error)
	ListByAccountDescending(ctx context.Context, accountID int64) ([]models.Movement, error)
	ListByAccountInRange(ctx context.Context, accountID int64, start, end time.Time) ([]models.Movement, error)
	UpdateSnapshot(ctx context.Context, movement *models.Movement) error
	Delete(ctx context.Context, id int64) error
}

type Stores struct {
	Accounts  AccountStore
	Movements MovementLog
}

// Storage runs units of work over the account and movement stores. Stores
// returned by Reader are for reads outside any unit of work.
type Storage interface {
	Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
	Reader() Stores
}

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
