package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStorage runs each unit of work in a READ COMMITTED transaction.
// Serialisation per account comes from the row lock taken by
// GetByIDForUpdate, which lasts until commit or rollback.
type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

func (s *PostgresStorage) Reader() Stores {
	return Stores{
		Accounts:  NewAccountWriteRepository(s.db),
		Movements: NewMovementRepository(s.db),
	}
}

func (s *PostgresStorage) Do(ctx context.Context, fn func(ctx context.Context, st Stores) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	stores := Stores{
		Accounts:  NewAccountWriteRepository(tx),
		Movements: NewMovementRepository(tx),
	}
	if err := fn(ctx, stores); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
