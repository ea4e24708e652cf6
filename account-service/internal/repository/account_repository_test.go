package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/eaglebank/banking/shared/models"
	"github.com/eaglebank/banking/shared/xerrors"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var accountCols = []string{"id", "customer_id", "account_number", "account_type", "opening_balance", "balance", "status", "created_at", "updated_at"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestAccountCreateReturnsID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountWriteRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO accounts")).
		WithArgs(int64(3), "478758", models.AccountTypeSavings, sqlmock.AnyArg(), sqlmock.AnyArg(), models.AccountStatusActive, now, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	acc := &models.Account{
		CustomerID: 3, AccountNumber: "478758", AccountType: models.AccountTypeSavings,
		OpeningBalance: decimal.NewFromInt(2000), Balance: decimal.NewFromInt(2000),
		Status: models.AccountStatusActive, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, repo.Create(context.Background(), acc))
	assert.Equal(t, int64(11), acc.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountCreateMapsUniqueViolation(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountWriteRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO accounts")).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.Create(context.Background(), &models.Account{AccountNumber: "478758"})
	assert.ErrorIs(t, err, xerrors.ErrDuplicateAccountNumber)
}

func TestAccountGetByIDForUpdateLocksRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountWriteRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM accounts WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(accountCols).
			AddRow(5, 3, "478758", "Savings", "2000.00", "1425.50", "ACTIVE", now, now))

	acc, err := repo.GetByIDForUpdate(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, models.AccountTypeSavings, acc.AccountType)
	assert.Equal(t, models.AccountStatusActive, acc.Status)
	assert.True(t, acc.Balance.Equal(decimal.RequireFromString("1425.50")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountWriteRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM accounts WHERE id = $1")).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(accountCols))

	_, err := repo.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, xerrors.ErrAccountNotFound)
}

func TestAccountUpdateNoRowsIsNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountWriteRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE accounts")).
		WillReturnError(sql.ErrNoRows)

	err := repo.Update(context.Background(), &models.Account{ID: 9})
	assert.ErrorIs(t, err, xerrors.ErrAccountNotFound)
}

func TestAccountListByCustomerEmpty(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccountWriteRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE customer_id = $1 ORDER BY id")).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows(accountCols))

	accounts, err := repo.ListByCustomer(context.Background(), 8)
	require.NoError(t, err)
	assert.NotNil(t, accounts)
	assert.Empty(t, accounts)
}

func TestPostgresStorageCommitsOnSuccess(t *testing.T) {
	db, mock := newMock(t)
	storage := NewPostgresStorage(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(accountCols).AddRow(1, 1, "1", "Checking", "100", "100", "ACTIVE", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE accounts")).WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO movements")).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(77))
	mock.ExpectCommit()

	err := storage.Do(context.Background(), func(ctx context.Context, st Stores) error {
		acc, err := st.Accounts.GetByIDForUpdate(ctx, 1)
		if err != nil {
			return err
		}
		acc.Balance = acc.Balance.Add(decimal.NewFromInt(50))
		if err := st.Accounts.Update(ctx, acc); err != nil {
			return err
		}
		return st.Movements.Append(ctx, &models.Movement{
			AccountID: 1, Kind: models.MovementDeposit, Value: decimal.NewFromInt(50), ResultingBalance: acc.Balance,
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorageRollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	storage := NewPostgresStorage(db)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := storage.Do(context.Background(), func(context.Context, Stores) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
