package database

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"002_movements.sql": {Data: []byte("CREATE TABLE movements (id BIGSERIAL)")},
		"001_accounts.sql":  {Data: []byte("CREATE TABLE accounts (id BIGSERIAL)")},
		"README.md":         {Data: []byte("ignored")},
	}
}

func TestMigrateAppliesPendingInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectQuery("SELECT COUNT\\(1\\) FROM schema_migrations").WithArgs("001_accounts.sql").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	mock.ExpectQuery("SELECT COUNT\\(1\\) FROM schema_migrations").WithArgs("002_movements.sql").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE movements").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs("002_movements.sql").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, Migrate(context.Background(), db, testMigrations(), zap.NewNop()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateRollsBackFailedFile(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT COUNT\\(1\\) FROM schema_migrations").WithArgs("001_accounts.sql").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE accounts").WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	err = Migrate(context.Background(), db, testMigrations(), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "001_accounts.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithStatementTimeout(t *testing.T) {
	dsn, err := withStatementTimeout("postgres://u:p@localhost:5432/db?sslmode=disable", 3*time.Second)
	require.NoError(t, err)
	assert.Contains(t, dsn, "statement_timeout=3000")
	assert.Contains(t, dsn, "sslmode=disable")

	unchanged, err := withStatementTimeout("postgres://localhost/db", 0)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/db", unchanged)
}
