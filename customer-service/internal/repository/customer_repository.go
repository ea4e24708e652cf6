package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eaglebank/banking/shared/models"
	"github.com/eaglebank/banking/shared/xerrors"
)

const customerColumns = `id, name, gender, age, identification, address, phone, birth_date,
	password_hash, status, account_count, created_at, updated_at`

// CustomerWriteRepository handles all state-mutating operations for customers.
// It operates exclusively against the PostgreSQL write store (source of truth).
type CustomerWriteRepository struct {
	db DBTX
}

func NewCustomerWriteRepository(db DBTX) *CustomerWriteRepository {
	return &CustomerWriteRepository{db: db}
}

var _ CustomerStore = (*CustomerWriteRepository)(nil)

func (r *CustomerWriteRepository) Create(ctx context.Context, c *models.Customer) error {
	query := `
		INSERT INTO customers (name, gender, age, identification, address, phone, birth_date,
			password_hash, status, account_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		c.Name, c.Gender, c.Age, c.Identification, c.Address, c.Phone, c.BirthDate,
		c.PasswordHash, c.Status, c.AccountCount, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		if xerrors.IsUniqueViolation(err) {
			return fmt.Errorf("identification %s: %w", c.Identification, xerrors.ErrDuplicateIdentification)
		}
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

// GetByID fetches the full write model (including PasswordHash) for internal operations.
func (r *CustomerWriteRepository) GetByID(ctx context.Context, id int64) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 AND deleted_at IS NULL`
	customer, err := scanCustomer(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("customer %d: %w", id, xerrors.ErrCustomerNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return customer, nil
}

func (r *CustomerWriteRepository) List(ctx context.Context) ([]models.Customer, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	customers := []models.Customer{}
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, *customer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, nil
}

// Update writes the profile. updated_at only moves forward, so it orders the
// cached views of a customer; the stored value is copied back into c.
func (r *CustomerWriteRepository) Update(ctx context.Context, c *models.Customer) error {
	query := `
		UPDATE customers
		SET name = $2, gender = $3, age = $4, address = $5, phone = $6, birth_date = $7,
			password_hash = $8, status = $9,
			updated_at = GREATEST($10, updated_at + INTERVAL '1 microsecond')
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		c.ID, c.Name, c.Gender, c.Age, c.Address, c.Phone, c.BirthDate,
		c.PasswordHash, c.Status, c.UpdatedAt,
	).Scan(&c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("customer %d: %w", c.ID, xerrors.ErrCustomerNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	return nil
}

// Delete soft-deletes the customer. The identification stays reserved.
func (r *CustomerWriteRepository) Delete(ctx context.Context, id int64) error {
	query := `UPDATE customers SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	return expectOneRow(result, fmt.Errorf("customer %d: %w", id, xerrors.ErrCustomerNotFound))
}

func (r *CustomerWriteRepository) AdjustAccountCount(ctx context.Context, id int64, delta int) (*models.Customer, error) {
	query := `
		UPDATE customers
		SET account_count = GREATEST(account_count + $2, 0),
			updated_at = GREATEST(NOW(), updated_at + INTERVAL '1 microsecond')
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + customerColumns
	customer, err := scanCustomer(r.db.QueryRowContext(ctx, query, id, delta))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("customer %d: %w", id, xerrors.ErrCustomerNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to adjust account count: %w", err)
	}
	return customer, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(
		&c.ID, &c.Name, &c.Gender, &c.Age, &c.Identification, &c.Address, &c.Phone, &c.BirthDate,
		&c.PasswordHash, &c.Status, &c.AccountCount, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
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
