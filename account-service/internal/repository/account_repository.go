package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eaglebank/banking/shared/models"
	"github.com/eaglebank/banking/shared/xerrors"
)

const accountColumns = `id, customer_id, account_number, account_type, opening_balance, balance, status, created_at, updated_at`

// AccountWriteRepository is the PostgreSQL AccountStore. It runs on the pool
// or on a transaction, depending on the DBTX it is built with.
type AccountWriteRepository struct {
	db DBTX
}

func NewAccountWriteRepository(db DBTX) *AccountWriteRepository {
	return &AccountWriteRepository{db: db}
}

func (r *AccountWriteRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (customer_id, account_number, account_type, opening_balance, balance, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		account.CustomerID, account.AccountNumber, account.AccountType,
		account.OpeningBalance, account.Balance, account.Status,
		account.CreatedAt, account.UpdatedAt,
	).Scan(&account.ID)
	if err != nil {
		if xerrors.IsUniqueViolation(err) {
			return fmt.Errorf("account %s: %w", account.AccountNumber, xerrors.ErrDuplicateAccountNumber)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *AccountWriteRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (r *AccountWriteRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
}

func (r *AccountWriteRepository) GetByAccountNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE account_number = $1`, accountNumber)
}

func (r *AccountWriteRepository) getOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %v: %w", arg, xerrors.ErrAccountNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

func (r *AccountWriteRepository) List(ctx context.Context) ([]models.Account, error) {
	return r.list(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
}

func (r *AccountWriteRepository) ListByCustomer(ctx context.Context, customerID int64) ([]models.Account, error) {
	return r.list(ctx, `SELECT `+accountColumns+` FROM accounts WHERE customer_id = $1 ORDER BY id`, customerID)
}

func (r *AccountWriteRepository) list(ctx context.Context, query string, args ...any) ([]models.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// Update writes type, status and balance. updated_at never moves backwards,
// even across hosts with skewed clocks, because the account read model uses
// it as the view version. The stored value is copied back into account.
func (r *AccountWriteRepository) Update(ctx context.Context, account *models.Account) error {
	query := `
		UPDATE accounts
		SET account_type = $2, status = $3, balance = $4,
			updated_at = GREATEST($5, updated_at + INTERVAL '1 microsecond')
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		account.ID, account.AccountType, account.Status, account.Balance, account.UpdatedAt,
	).Scan(&account.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("account %d: %w", account.ID, xerrors.ErrAccountNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}

// Delete removes the account. Its movements go with it through the
// ON DELETE CASCADE foreign key.
func (r *AccountWriteRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return expectOneRow(result, fmt.Errorf("account %d: %w", id, xerrors.ErrAccountNotFound))
}

func (r *AccountWriteRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check account: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID, &a.CustomerID, &a.AccountNumber, &a.AccountType,
		&a.OpeningBalance, &a.Balance, &a.Status,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func expectOneRow(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
