package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eaglebank/banking/shared/models"
	"github.com/eaglebank/banking/shared/xerrors"
)

const movementColumns = `id, account_id, kind, value, resulting_balance, created_at`

// MovementRepository is the PostgreSQL MovementLog.
type MovementRepository struct {
	db DBTX
}

func NewMovementRepository(db DBTX) *MovementRepository {
	return &MovementRepository{db: db}
}

func (r *MovementRepository) Append(ctx context.Context, m *models.Movement) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO movements (account_id, kind, value, resulting_balance, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query, m.AccountID, m.Kind, m.Value, m.ResultingBalance, m.CreatedAt).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to append movement: %w", err)
	}
	return nil
}

func (r *MovementRepository) GetByID(ctx context.Context, id int64) (*models.Movement, error) {
	m, err := scanMovement(r.db.QueryRowContext(ctx, `SELECT `+movementColumns+` FROM movements WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("movement %d: %w", id, xerrors.ErrMovementNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get movement: %w", err)
	}
	return m, nil
}

func (r *MovementRepository) List(ctx context.Context) ([]models.Movement, error) {
	return r.list(ctx, `SELECT `+movementColumns+` FROM movements ORDER BY id`)
}

func (r *MovementRepository) ListByAccount(ctx context.Context, accountID int64) ([]models.Movement, error) {
	return r.list(ctx, `SELECT `+movementColumns+` FROM movements WHERE account_id = $1 ORDER BY id`, accountID)
}

func (r *MovementRepository) ListByAccountDescending(ctx context.Context, accountID int64) ([]models.Movement, error) {
	return r.list(ctx, `SELECT `+movementColumns+` FROM movements WHERE account_id = $1 ORDER BY created_at DESC, id DESC`, accountID)
}

// ListByAccountInRange returns movements with start <= created_at <= end,
// oldest first.
func (r *MovementRepository) ListByAccountInRange(ctx context.Context, accountID int64, start, end time.Time) ([]models.Movement, error) {
	query := `
		SELECT ` + movementColumns + `
		FROM movements
		WHERE account_id = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at, id
	`
	return r.list(ctx, query, accountID, start, end)
}

func (r *MovementRepository) list(ctx context.Context, query string, args ...any) ([]models.Movement, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	defer rows.Close()

	movements := []models.Movement{}
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		movements = append(movements, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	return movements, nil
}

func (r *MovementRepository) UpdateSnapshot(ctx context.Context, m *models.Movement) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE movements SET value = $2, resulting_balance = $3 WHERE id = $1`,
		m.ID, m.Value, m.ResultingBalance,
	)
	if err != nil {
		return fmt.Errorf("failed to update movement: %w", err)
	}
	return expectOneRow(result, fmt.Errorf("movement %d: %w", m.ID, xerrors.ErrMovementNotFound))
}

func (r *MovementRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM movements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete movement: %w", err)
	}
	return expectOneRow(result, fmt.Errorf("movement %d: %w", id, xerrors.ErrMovementNotFound))
}

func scanMovement(row rowScanner) (*models.Movement, error) {
	var m models.Movement
	if err := row.Scan(&m.ID, &m.AccountID, &m.Kind, &m.Value, &m.ResultingBalance, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}
