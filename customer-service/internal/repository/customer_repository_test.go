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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var customerCols = []string{"id", "name", "gender", "age", "identification", "address", "phone", "birth_date",
	"password_hash", "status", "account_count", "created_at", "updated_at"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var birth = time.Date(1990, 4, 2, 0, 0, 0, 0, time.UTC)

func customerRow(rows *sqlmock.Rows, id int64, accounts int) *sqlmock.Rows {
	now := time.Now().UTC()
	return rows.AddRow(id, "Jose Lema", "Male", 34, "1712345678", "Otavalo sn y principal", "098254785", birth,
		"$2a$10$hash", "ACTIVE", accounts, now, now)
}

func aCustomer() *models.Customer {
	now := time.Now().UTC()
	return &models.Customer{
		Name: "Jose Lema", Gender: models.GenderMale, Age: 34, Identification: "1712345678",
		Address: "Otavalo sn y principal", Phone: "098254785", BirthDate: birth,
		PasswordHash: "$2a$10$hash", Status: models.CustomerStatusActive, CreatedAt: now, UpdatedAt: now,
	}
}

func TestCustomerCreateReturnsID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCustomerWriteRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO customers")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

	c := aCustomer()
	require.NoError(t, repo.Create(context.Background(), c))
	assert.Equal(t, int64(5), c.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerCreateDuplicateIdentification(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCustomerWriteRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO customers")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), aCustomer())
	assert.ErrorIs(t, err, xerrors.ErrDuplicateIdentification)
}

func TestCustomerGetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCustomerWriteRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM customers WHERE id = $1 AND deleted_at IS NULL")).
		WithArgs(int64(5)).
		WillReturnRows(customerRow(sqlmock.NewRows(customerCols), 5, 2))
	mock.ExpectQuery(regexp.QuoteMeta("FROM customers WHERE id = $1 AND deleted_at IS NULL")).
		WithArgs(int64(6)).
		WillReturnError(sql.ErrNoRows)

	c, err := repo.GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "1712345678", c.Identification)
	assert.Equal(t, 2, c.AccountCount)
	assert.Equal(t, "$2a$10$hash", c.PasswordHash)

	_, err = repo.GetByID(context.Background(), 6)
	assert.ErrorIs(t, err, xerrors.ErrCustomerNotFound)
}

func TestCustomerUpdateAndDeleteNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCustomerWriteRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE customers")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE customers SET deleted_at = NOW()")).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE customers SET deleted_at = NOW()")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c := aCustomer()
	c.ID = 9
	assert.ErrorIs(t, repo.Update(context.Background(), c), xerrors.ErrCustomerNotFound)
	assert.ErrorIs(t, repo.Delete(context.Background(), 9), xerrors.ErrCustomerNotFound)
	assert.NoError(t, repo.Delete(context.Background(), 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerUpdateReturnsStoredTimestamp(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCustomerWriteRepository(db)
	stored := time.Date(2024, 5, 1, 10, 0, 0, 1000, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("updated_at = GREATEST($10, updated_at + INTERVAL '1 microsecond')")).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(stored))

	c := aCustomer()
	c.ID = 4
	c.UpdatedAt = stored.Add(-time.Hour)
	require.NoError(t, repo.Update(context.Background(), c))
	assert.Equal(t, stored, c.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustAccountCount(t *testing.T) {
	db, mock := newMock(t)
	repo := NewCustomerWriteRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SET account_count = GREATEST(account_count + $2, 0)")).
		WithArgs(int64(5), 1).
		WillReturnRows(customerRow(sqlmock.NewRows(customerCols), 5, 3))
	mock.ExpectQuery(regexp.QuoteMeta("SET account_count = GREATEST(account_count + $2, 0)")).
		WithArgs(int64(6), -1).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SET account_count = GREATEST(account_count + $2, 0)")).
		WithArgs(int64(7), 1).
		WillReturnError(errors.New("connection reset"))

	c, err := repo.AdjustAccountCount(context.Background(), 5, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, c.AccountCount)

	_, err = repo.AdjustAccountCount(context.Background(), 6, -1)
	assert.ErrorIs(t, err, xerrors.ErrCustomerNotFound)

	_, err = repo.AdjustAccountCount(context.Background(), 7, 1)
	assert.Error(t, err)
	assert.False(t, xerrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadRepositoryFallsBackWithoutRedis(t *testing.T) {
	db, mock := newMock(t)
	read := NewCustomerReadRepository(NewCustomerWriteRepository(db), nil, zap.NewNop())

	mock.ExpectQuery(regexp.QuoteMeta("FROM customers WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnRows(customerRow(sqlmock.NewRows(customerCols), 5, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM customers WHERE deleted_at IS NULL ORDER BY id")).
		WillReturnRows(customerRow(customerRow(sqlmock.NewRows(customerCols), 5, 1), 6, 0))

	view, err := read.GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Jose Lema", view.Name)

	views, err := read.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, views, 2)

	n, err := read.Warm(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
