package command

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/eaglebank/banking/account-service/internal/metrics"
	"github.com/eaglebank/banking/account-service/internal/repository"
	"github.com/eaglebank/banking/shared/cqrs"
	"github.com/eaglebank/banking/shared/events"
	"github.com/eaglebank/banking/shared/models"
	"github.com/eaglebank/banking/shared/xerrors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// maxAmount is the largest value the NUMERIC(15,2) money columns hold. It
// bounds single amounts and every balance the ledger can reach.
var maxAmount = decimal.RequireFromString("9999999999999.99")

// AccountCache is the slice of the read model the command side keeps in sync.
// Every committed write stores the fresh view; deletion removes it.
type AccountCache interface {
	CacheAccountView(ctx context.Context, view *models.AccountView)
	InvalidateAccountView(ctx context.Context, id int64, accountNumber string)
}

// LedgerCommandService is the only writer of balances and movements. Every
// operation runs as one unit of work: the account row is locked, the balance
// and the movement log are written together, and nothing is kept on error.
// The read model and the event stream are touched only after commit.
type LedgerCommandService struct {
	storage   repository.Storage
	cache     AccountCache
	publisher events.Publisher
	log       *zap.Logger
	now       func() time.Time
}

type Option func(*LedgerCommandService)

func WithClock(now func() time.Time) Option {
	return func(s *LedgerCommandService) { s.now = now }
}

func NewLedgerCommandService(
	storage repository.Storage,
	cache AccountCache,
	publisher events.Publisher,
	log *zap.Logger,
	opts ...Option,
) *LedgerCommandService {
	s := &LedgerCommandService{
		storage:   storage,
		cache:     cache,
		publisher: publisher,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = nopCache{}
	}
	if s.publisher == nil {
		s.publisher = events.NewNopPublisher(log)
	}
	return s
}

func (s *LedgerCommandService) Deposit(ctx context.Context, cmd cqrs.DepositCommand) (*models.Movement, error) {
	return s.post(ctx, "deposit", cmd.AccountID, models.MovementDeposit, cmd.Amount)
}

func (s *LedgerCommandService) Withdraw(ctx context.Context, cmd cqrs.WithdrawCommand) (*models.Movement, error) {
	return s.post(ctx, "withdraw", cmd.AccountID, models.MovementWithdrawal, cmd.Amount)
}

// RecordMovement posts a movement of any kind. Transfers are outgoing and
// debit the account exactly like a withdrawal.
func (s *LedgerCommandService) RecordMovement(ctx context.Context, cmd cqrs.RecordMovementCommand) (*models.Movement, error) {
	switch cmd.Kind {
	case models.MovementDeposit:
		return s.post(ctx, "deposit", cmd.AccountID, cmd.Kind, cmd.Value)
	case models.MovementWithdrawal:
		return s.post(ctx, "withdraw", cmd.AccountID, cmd.Kind, cmd.Value)
	case models.MovementTransfer:
		return s.post(ctx, "transfer", cmd.AccountID, cmd.Kind, cmd.Value)
	default:
		return nil, fmt.Errorf("%w: unknown movement kind %q", xerrors.ErrValidation, cmd.Kind)
	}
}

func (s *LedgerCommandService) post(ctx context.Context, op string, accountID int64, kind models.MovementKind, amount decimal.Decimal) (*models.Movement, error) {
	start := time.Now()
	if err := validateAmount(amount); err != nil {
		metrics.ObserveOperation(op, start, err)
		return nil, err
	}

	var movement *models.Movement
	var account *models.Account
	err := s.storage.Do(ctx, func(ctx context.Context, st repository.Stores) error {
		acc, err := st.Accounts.GetByIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if !acc.IsActive() {
			return fmt.Errorf("account %d is %s: %w", acc.ID, acc.Status, xerrors.ErrAccountNotActive)
		}

		balance := acc.Balance.Add(kind.Signed(amount))
		if balance.IsNegative() {
			return fmt.Errorf("account %d has %s, %s of %s: %w", acc.ID, acc.Balance, op, amount, xerrors.ErrInsufficientFunds)
		}
		if balance.GreaterThan(maxAmount) {
			return fmt.Errorf("%w: balance of account %d would exceed %s", xerrors.ErrInvalidAmount, acc.ID, maxAmount)
		}

		now := s.now()
		acc.Balance = balance
		acc.UpdatedAt = now
		if err := st.Accounts.Update(ctx, acc); err != nil {
			return err
		}

		m := &models.Movement{
			AccountID:        acc.ID,
			Kind:             kind,
			Value:            amount,
			ResultingBalance: balance,
			CreatedAt:        now,
		}
		if err := st.Movements.Append(ctx, m); err != nil {
			return err
		}
		movement, account = m, acc
		return nil
	})
	metrics.ObserveOperation(op, start, err)
	if err != nil {
		return nil, err
	}

	s.cache.CacheAccountView(ctx, models.NewAccountView(account))
	s.log.Info("movement posted",
		zap.String("operation", op),
		zap.Int64("account_id", account.ID),
		zap.Int64("movement_id", movement.ID),
		zap.String("value", movement.Value.StringFixed(2)),
		zap.String("balance", movement.ResultingBalance.StringFixed(2)),
	)
	return movement, nil
}

// CorrectMovement changes the value of a recorded movement and recomputes
// every snapshot of its account from the opening balance. The correction is
// refused if any running balance would go negative.
func (s *LedgerCommandService) CorrectMovement(ctx context.Context, cmd cqrs.CorrectMovementCommand) (*models.Movement, error) {
	start := time.Now()
	if err := validateAmount(cmd.Value); err != nil {
		metrics.ObserveOperation("correct_movement", start, err)
		return nil, err
	}

	var corrected models.Movement
	var account *models.Account
	err := s.storage.Do(ctx, func(ctx context.Context, st repository.Stores) error {
		acc, history, idx, err := s.loadForRecompute(ctx, st, cmd.MovementID)
		if err != nil {
			return err
		}
		history[idx].Value = cmd.Value
		if err := s.recompute(ctx, st, acc, history, cmd.MovementID); err != nil {
			return err
		}
		for _, m := range history {
			if m.ID == cmd.MovementID {
				corrected = m
			}
		}
		account = acc
		return nil
	})
	metrics.ObserveOperation("correct_movement", start, err)
	if err != nil {
		return nil, err
	}

	s.cache.CacheAccountView(ctx, models.NewAccountView(account))
	s.log.Info("movement corrected",
		zap.Int64("account_id", account.ID),
		zap.Int64("movement_id", corrected.ID),
		zap.String("value", corrected.Value.StringFixed(2)),
		zap.String("balance", account.Balance.StringFixed(2)),
	)
	return &corrected, nil
}

// DeleteMovement removes a movement and recomputes the account from what is
// left of its log.
func (s *LedgerCommandService) DeleteMovement(ctx context.Context, cmd cqrs.DeleteMovementCommand) error {
	start := time.Now()
	var account *models.Account
	err := s.storage.Do(ctx, func(ctx context.Context, st repository.Stores) error {
		acc, history, idx, err := s.loadForRecompute(ctx, st, cmd.MovementID)
		if err != nil {
			return err
		}
		if err := st.Movements.Delete(ctx, cmd.MovementID); err != nil {
			return err
		}
		history = append(history[:idx], history[idx+1:]...)
		if err := s.recompute(ctx, st, acc, history, 0); err != nil {
			return err
		}
		account = acc
		return nil
	})
	metrics.ObserveOperation("delete_movement", start, err)
	if err != nil {
		return err
	}

	s.cache.CacheAccountView(ctx, models.NewAccountView(account))
	s.log.Info("movement deleted",
		zap.Int64("account_id", account.ID),
		zap.Int64("movement_id", cmd.MovementID),
		zap.String("balance", account.Balance.StringFixed(2)),
	)
	return nil
}

// loadForRecompute locks the movement's account and returns its full log
// together with the index of the movement in it. The log is read after the
// lock so it cannot change underneath the recomputation.
func (s *LedgerCommandService) loadForRecompute(ctx context.Context, st repository.Stores, movementID int64) (*models.Account, []models.Movement, int, error) {
	target, err := st.Movements.GetByID(ctx, movementID)
	if err != nil {
		return nil, nil, 0, err
	}
	acc, err := st.Accounts.GetByIDForUpdate(ctx, target.AccountID)
	if err != nil {
		return nil, nil, 0, err
	}
	history, err := st.Movements.ListByAccount(ctx, acc.ID)
	if err != nil {
		return nil, nil, 0, err
	}
	for i := range history {
		if history[i].ID == movementID {
			return acc, history, i, nil
		}
	}
	return nil, nil, 0, fmt.Errorf("movement %d: %w", movementID, xerrors.ErrMovementNotFound)
}

// recompute replays history in (created_at, id) order from the opening
// balance, rewrites every snapshot that changed (and the movement edited, if
// any) and stores the final balance on the account.
func (s *LedgerCommandService) recompute(ctx context.Context, st repository.Stores, acc *models.Account, history []models.Movement, edited int64) error {
	sort.SliceStable(history, func(i, j int) bool {
		if !history[i].CreatedAt.Equal(history[j].CreatedAt) {
			return history[i].CreatedAt.Before(history[j].CreatedAt)
		}
		return history[i].ID < history[j].ID
	})

	running := acc.OpeningBalance
	for i := range history {
		m := &history[i]
		running = running.Add(m.Kind.Signed(m.Value))
		if running.IsNegative() {
			return fmt.Errorf("account %d would reach %s at movement %d: %w", acc.ID, running, m.ID, xerrors.ErrInsufficientFunds)
		}
		if running.GreaterThan(maxAmount) {
			return fmt.Errorf("%w: account %d would exceed %s at movement %d", xerrors.ErrInvalidAmount, acc.ID, maxAmount, m.ID)
		}
		if m.ID == edited || !m.ResultingBalance.Equal(running) {
			m.ResultingBalance = running
			if err := st.Movements.UpdateSnapshot(ctx, m); err != nil {
				return err
			}
		}
	}

	acc.Balance = running
	acc.UpdatedAt = s.now()
	return st.Accounts.Update(ctx, acc)
}

// publish hands an event to the broker after commit. Failures are logged and
// never undo the write that produced the event.
func (s *LedgerCommandService) publish(ctx context.Context, eventType string, data any) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err := s.publisher.Publish(ctx, events.AccountEventsStream, eventType, data)
	metrics.ObservePublish(eventType, err)
	if err != nil {
		s.log.Error("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s must be greater than zero", xerrors.ErrInvalidAmount, amount)
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: %s has more than two decimal places", xerrors.ErrInvalidAmount, amount)
	}
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: %s exceeds %s", xerrors.ErrInvalidAmount, amount, maxAmount)
	}
	return nil
}

type nopCache struct{}

func (nopCache) CacheAccountView(context.Context, *models.AccountView) {}
func (nopCache) InvalidateAccountView(context.Context, int64, string) {}
