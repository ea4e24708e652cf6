package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eaglebank/banking/account-service/internal/metrics"
	"github.com/eaglebank/banking/account-service/internal/repository"
	"github.com/eaglebank/banking/shared/cqrs"
	"github.com/eaglebank/banking/shared/events"
	"github.com/eaglebank/banking/shared/models"
	"github.com/eaglebank/banking/shared/utils"
	"github.com/eaglebank/banking/shared/xerrors"
	"go.uber.org/zap"
)

const (
	maxAccountNumberLength = 50
	generatedNumberRetries = 5
)

// OpenAccount creates an account whose balance starts at the opening
// balance. Opening records no movement.
func (s *LedgerCommandService) OpenAccount(ctx context.Context, cmd cqrs.OpenAccountCommand) (*models.Account, error) {
	start := time.Now()
	account, err := s.openAccount(ctx, cmd)
	metrics.ObserveOperation("open_account", start, err)
	if err != nil {
		return nil, err
	}

	s.cache.CacheAccountView(ctx, models.NewAccountView(account))
	s.publish(ctx, events.AccountCreated, events.AccountCreatedEvent{
		CustomerID:    account.CustomerID,
		AccountID:     account.ID,
		AccountNumber: account.AccountNumber,
	})
	s.log.Info("account opened",
		zap.Int64("account_id", account.ID),
		zap.Int64("customer_id", account.CustomerID),
		zap.String("account_number", account.AccountNumber),
		zap.String("opening_balance", account.OpeningBalance.StringFixed(2)),
	)
	return account, nil
}

func (s *LedgerCommandService) openAccount(ctx context.Context, cmd cqrs.OpenAccountCommand) (*models.Account, error) {
	if cmd.OpeningBalance.IsNegative() {
		return nil, fmt.Errorf("%w: opening balance %s is negative", xerrors.ErrInvalidAmount, cmd.OpeningBalance)
	}
	if !cmd.OpeningBalance.Equal(cmd.OpeningBalance.Round(2)) {
		return nil, fmt.Errorf("%w: opening balance %s has more than two decimal places", xerrors.ErrInvalidAmount, cmd.OpeningBalance)
	}
	if cmd.OpeningBalance.GreaterThan(maxAmount) {
		return nil, fmt.Errorf("%w: opening balance %s exceeds %s", xerrors.ErrInvalidAmount, cmd.OpeningBalance, maxAmount)
	}
	if !cmd.AccountType.Valid() {
		return nil, fmt.Errorf("%w: unknown account type %q", xerrors.ErrValidation, cmd.AccountType)
	}
	status := cmd.Status
	if status == "" {
		status = models.AccountStatusActive
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown account status %q", xerrors.ErrValidation, status)
	}

	number := strings.TrimSpace(cmd.AccountNumber)
	generated := number == ""
	if len(number) > maxAccountNumberLength {
		return nil, fmt.Errorf("%w: account number longer than %d characters", xerrors.ErrValidation, maxAccountNumberLength)
	}

	attempts := 1
	if generated {
		attempts = generatedNumberRetries
	}

	var err error
	for i := 0; i < attempts; i++ {
		if generated {
			number = utils.GenerateAccountNumber()
		}
		now := s.now()
		account := &models.Account{
			CustomerID:     cmd.CustomerID,
			AccountNumber:  number,
			AccountType:    cmd.AccountType,
			OpeningBalance: cmd.OpeningBalance,
			Balance:        cmd.OpeningBalance,
			Status:         status,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		err = s.storage.Do(ctx, func(ctx context.Context, st repository.Stores) error {
			_, lookupErr := st.Accounts.GetByAccountNumber(ctx, number)
			if lookupErr == nil {
				return fmt.Errorf("account %s: %w", number, xerrors.ErrDuplicateAccountNumber)
			}
			if !errors.Is(lookupErr, xerrors.ErrAccountNotFound) {
				return lookupErr
			}
			return st.Accounts.Create(ctx, account)
		})
		if err == nil {
			return account, nil
		}
		if !generated || !errors.Is(err, xerrors.ErrDuplicateAccountNumber) {
			return nil, err
		}
	}
	return nil, err
}

// UpdateAccount changes the type and/or status of an account. Balances,
// number and owner never change here.
func (s *LedgerCommandService) UpdateAccount(ctx context.Context, cmd cqrs.UpdateAccountCommand) (*models.Account, error) {
	start := time.Now()
	if cmd.AccountType != "" && !cmd.AccountType.Valid() {
		return nil, fmt.Errorf("%w: unknown account type %q", xerrors.ErrValidation, cmd.AccountType)
	}
	if cmd.Status != "" && !cmd.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown account status %q", xerrors.ErrValidation, cmd.Status)
	}

	var account *models.Account
	err := s.storage.Do(ctx, func(ctx context.Context, st repository.Stores) error {
		acc, err := st.Accounts.GetByIDForUpdate(ctx, cmd.AccountID)
		if err != nil {
			return err
		}
		if cmd.AccountType != "" {
			acc.AccountType = cmd.AccountType
		}
		if cmd.Status != "" {
			acc.Status = cmd.Status
		}
		acc.UpdatedAt = s.now()
		if err := st.Accounts.Update(ctx, acc); err != nil {
			return err
		}
		account = acc
		return nil
	})
	metrics.ObserveOperation("update_account", start, err)
	if err != nil {
		return nil, err
	}

	s.cache.CacheAccountView(ctx, models.NewAccountView(account))
	return account, nil
}

// CloseAccount marks the account CLOSED. Closing a closed account is a no-op.
func (s *LedgerCommandService) CloseAccount(ctx context.Context, cmd cqrs.CloseAccountCommand) (*models.Account, error) {
	start := time.Now()
	var account *models.Account
	err := s.storage.Do(ctx, func(ctx context.Context, st repository.Stores) error {
		acc, err := st.Accounts.GetByIDForUpdate(ctx, cmd.AccountID)
		if err != nil {
			return err
		}
		account = acc
		if acc.Status == models.AccountStatusClosed {
			return nil
		}
		acc.Status = models.AccountStatusClosed
		acc.UpdatedAt = s.now()
		return st.Accounts.Update(ctx, acc)
	})
	metrics.ObserveOperation("close_account", start, err)
	if err != nil {
		return nil, err
	}

	s.cache.CacheAccountView(ctx, models.NewAccountView(account))
	s.log.Info("account closed", zap.Int64("account_id", account.ID))
	return account, nil
}

// DeleteAccount removes an account and its whole movement log.
func (s *LedgerCommandService) DeleteAccount(ctx context.Context, cmd cqrs.DeleteAccountCommand) error {
	start := time.Now()
	var account *models.Account
	err := s.storage.Do(ctx, func(ctx context.Context, st repository.Stores) error {
		acc, err := st.Accounts.GetByIDForUpdate(ctx, cmd.AccountID)
		if err != nil {
			return err
		}
		if err := st.Accounts.Delete(ctx, acc.ID); err != nil {
			return err
		}
		account = acc
		return nil
	})
	metrics.ObserveOperation("delete_account", start, err)
	if err != nil {
		return err
	}

	s.cache.InvalidateAccountView(ctx, account.ID, account.AccountNumber)
	s.publish(ctx, events.AccountDeleted, events.AccountDeletedEvent{
		CustomerID:    account.CustomerID,
		AccountID:     account.ID,
		AccountNumber: account.AccountNumber,
	})
	s.log.Info("account deleted", zap.Int64("account_id", account.ID), zap.Int64("customer_id", account.CustomerID))
	return nil
}
