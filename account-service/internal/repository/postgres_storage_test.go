package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostgresStorageRollsBackOnPanic(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "boom", func() {
		_ = NewPostgresStorage(db).Do(context.Background(), func(context.Context, Stores) error { panic("boom") })
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}
