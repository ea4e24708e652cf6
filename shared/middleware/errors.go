package middleware

import (
	"errors"
	"net/http"

	"github.com/eaglebank/banking/shared/xerrors"
	"github.com/gin-gonic/gin"
)

// StatusFor maps a service error to its HTTP status. Unknown errors are 500.
func StatusFor(err error) int {
	switch {
	case xerrors.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, xerrors.ErrInsufficientFunds),
		errors.Is(err, xerrors.ErrInvalidAmount),
		errors.Is(err, xerrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, xerrors.ErrDuplicateAccountNumber),
		errors.Is(err, xerrors.ErrDuplicateIdentification),
		errors.Is(err, xerrors.ErrCustomerHasAccounts),
		errors.Is(err, xerrors.ErrAccountNotActive):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithServiceError writes err using StatusFor. For 500s the client
// only sees fallback; the error itself is attached to the gin context so the
// logging middleware records it.
func RespondWithServiceError(c *gin.Context, err error, fallback string) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		RespondWithError(c, status, fallback)
		return
	}
	RespondWithError(c, status, publicMessage(err))
}

func publicMessage(err error) string {
	for _, known := range []error{
		xerrors.ErrAccountNotFound,
		xerrors.ErrMovementNotFound,
		xerrors.ErrCustomerNotFound,
		xerrors.ErrDuplicateAccountNumber,
		xerrors.ErrDuplicateIdentification,
		xerrors.ErrCustomerHasAccounts,
		xerrors.ErrInvalidAmount,
		xerrors.ErrInsufficientFunds,
		xerrors.ErrAccountNotActive,
	} {
		if errors.Is(err, known) {
			return capitalize(known.Error())
		}
	}
	// Validation errors carry their own detail after the sentinel.
	return err.Error()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
