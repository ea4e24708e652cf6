// Package xerrors holds the sentinel errors shared by the services.
// Repositories and command services wrap them with %w; handlers match them
// with errors.Is and map them to HTTP status codes.
package xerrors

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrAccountNotFound         = errors.New("account not found")
	ErrMovementNotFound        = errors.New("movement not found")
	ErrCustomerNotFound        = errors.New("customer not found")
	ErrDuplicateAccountNumber  = errors.New("account number already exists")
	ErrDuplicateIdentification = errors.New("identification already exists")
	ErrCustomerHasAccounts     = errors.New("customer still has accounts")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrAccountNotActive        = errors.New("account is not active")
	ErrValidation              = errors.New("validation failed")
)

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a Postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrMovementNotFound) ||
		errors.Is(err, ErrCustomerNotFound)
}
