package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eaglebank/banking/customer-service/internal/repository"
	"github.com/eaglebank/banking/shared/cqrs"
	"github.com/eaglebank/banking/shared/events"
	"github.com/eaglebank/banking/shared/models"
	"github.com/eaglebank/banking/shared/utils"
	"github.com/eaglebank/banking/shared/xerrors"
	"go.uber.org/zap"
)

const (
	minPasswordLength = 8
	minCustomerAge    = 18
)

// CustomerCache is the read model the command side keeps current.
type CustomerCache interface {
	CacheCustomerView(ctx context.Context, view *models.CustomerView)
	InvalidateCustomerView(ctx context.Context, id int64)
}

// EventDeduper remembers which events were already applied.
type EventDeduper interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// CustomerCommandService writes customer state to PostgreSQL and keeps the
// Redis read model up to date.
type CustomerCommandService struct {
	store   repository.CustomerStore
	cache   CustomerCache
	deduper EventDeduper
	log     *zap.Logger
	now     func() time.Time
}

// NewCustomerCommandService builds the service. deduper may be nil, in which
// case redelivered account events are applied again.
func NewCustomerCommandService(
	store repository.CustomerStore,
	cache CustomerCache,
	deduper EventDeduper,
	log *zap.Logger,
) *CustomerCommandService {
	return &CustomerCommandService{
		store:   store,
		cache:   cache,
		deduper: deduper,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *CustomerCommandService) CreateCustomer(ctx context.Context, cmd cqrs.CreateCustomerCommand) (*models.Customer, error) {
	if strings.TrimSpace(cmd.Identification) == "" {
		return nil, fmt.Errorf("%w: identification is required", xerrors.ErrValidation)
	}
	if len(cmd.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must have at least %d characters", xerrors.ErrValidation, minPasswordLength)
	}
	status := cmd.Status
	if status == "" {
		status = models.CustomerStatusActive
	}
	if err := validateProfile(cmd.Name, cmd.Gender, cmd.Age, status); err != nil {
		return nil, err
	}

	passwordHash, err := utils.HashPassword(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	customer := &models.Customer{
		Name:           cmd.Name,
		Gender:         cmd.Gender,
		Age:            cmd.Age,
		Identification: strings.TrimSpace(cmd.Identification),
		Address:        cmd.Address,
		Phone:          cmd.Phone,
		BirthDate:      cmd.BirthDate,
		PasswordHash:   passwordHash,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Create(ctx, customer); err != nil {
		return nil, err
	}

	s.cache.CacheCustomerView(ctx, models.NewCustomerView(customer))
	s.log.Info("customer created", zap.Int64("customer_id", customer.ID))
	return customer, nil
}

// UpdateCustomer replaces the profile. The password changes only when a new
// one is given; the status only when set.
func (s *CustomerCommandService) UpdateCustomer(ctx context.Context, cmd cqrs.UpdateCustomerCommand) (*models.CustomerView, error) {
	customer, err := s.store.GetByID(ctx, cmd.CustomerID)
	if err != nil {
		return nil, err
	}

	status := cmd.Status
	if status == "" {
		status = customer.Status
	}
	if err := validateProfile(cmd.Name, cmd.Gender, cmd.Age, status); err != nil {
		return nil, err
	}

	if cmd.Password != "" {
		if len(cmd.Password) < minPasswordLength {
			return nil, fmt.Errorf("%w: password must have at least %d characters", xerrors.ErrValidation, minPasswordLength)
		}
		customer.PasswordHash, err = utils.HashPassword(cmd.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	customer.Name = cmd.Name
	customer.Gender = cmd.Gender
	customer.Age = cmd.Age
	customer.Address = cmd.Address
	customer.Phone = cmd.Phone
	customer.BirthDate = cmd.BirthDate
	customer.Status = status
	customer.UpdatedAt = s.now()
	if err := s.store.Update(ctx, customer); err != nil {
		return nil, err
	}

	view := models.NewCustomerView(customer)
	s.cache.CacheCustomerView(ctx, view)
	return view, nil
}

// DeleteCustomer rejects the operation while the customer still owns accounts.
func (s *CustomerCommandService) DeleteCustomer(ctx context.Context, cmd cqrs.DeleteCustomerCommand) error {
	customer, err := s.store.GetByID(ctx, cmd.CustomerID)
	if err != nil {
		return err
	}
	if customer.AccountCount > 0 {
		return fmt.Errorf("customer %d owns %d accounts: %w", customer.ID, customer.AccountCount, xerrors.ErrCustomerHasAccounts)
	}
	if err := s.store.Delete(ctx, cmd.CustomerID); err != nil {
		return err
	}
	s.cache.InvalidateCustomerView(ctx, cmd.CustomerID)
	s.log.Info("customer deleted", zap.Int64("customer_id", cmd.CustomerID))
	return nil
}

// HandleAccountEvent is the account stream subscriber handler. It keeps each
// customer's account count in step with account.created and account.deleted.
// Events for unknown customers and malformed payloads are logged and
// acknowledged; only storage failures are returned for redelivery.
func (s *CustomerCommandService) HandleAccountEvent(ctx context.Context, event events.Event) error {
	var delta int
	switch event.Type {
	case events.AccountCreated:
		delta = 1
	case events.AccountDeleted:
		delta = -1
	default:
		return nil
	}

	log := s.log.With(zap.String("event_id", event.ID), zap.String("event_type", event.Type))

	var data events.AccountCreatedEvent
	if err := events.DecodeData(event, &data); err != nil {
		log.Error("discarding malformed account event", zap.Error(err))
		return nil
	}
	log = log.With(zap.Int64("customer_id", data.CustomerID), zap.String("account_number", data.AccountNumber))

	if s.deduper != nil && event.ID != "" {
		first, err := s.deduper.Claim(ctx, event.ID)
		if err != nil {
			return fmt.Errorf("failed to claim event %s: %w", event.ID, err)
		}
		if !first {
			log.Info("skipping already processed account event")
			return nil
		}
	}

	customer, err := s.store.AdjustAccountCount(ctx, data.CustomerID, delta)
	if errors.Is(err, xerrors.ErrCustomerNotFound) {
		log.Warn("account event for unknown customer")
		return nil
	}
	if err != nil {
		if s.deduper != nil && event.ID != "" {
			if relErr := s.deduper.Release(ctx, event.ID); relErr != nil {
				log.Warn("failed to release event claim", zap.Error(relErr))
			}
		}
		return err
	}

	s.cache.CacheCustomerView(ctx, models.NewCustomerView(customer))
	log.Info("customer account count updated", zap.Int("account_count", customer.AccountCount))
	return nil
}

func validateProfile(name string, gender models.Gender, age int, status models.CustomerStatus) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", xerrors.ErrValidation)
	}
	switch gender {
	case models.GenderMale, models.GenderFemale, models.GenderOther:
	default:
		return fmt.Errorf("%w: unknown gender %q", xerrors.ErrValidation, gender)
	}
	if age < minCustomerAge {
		return fmt.Errorf("%w: customers must be at least %d years old", xerrors.ErrValidation, minCustomerAge)
	}
	switch status {
	case models.CustomerStatusActive, models.CustomerStatusInactive, models.CustomerStatusBlocked:
	default:
		return fmt.Errorf("%w: unknown status %q", xerrors.ErrValidation, status)
	}
	return nil
}
