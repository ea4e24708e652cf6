package cqrs

import (
	"time"

	"github.com/eaglebank/banking/shared/models"
	"github.com/shopspring/decimal"
)

// ---------- Customer commands ----------

type CreateCustomerCommand struct {
	Name           string
	Gender         models.Gender
	Age            int
	Identification string
	Address        string
	Phone          string
	BirthDate      time.Time
	Password       string
	Status         models.CustomerStatus
}

type UpdateCustomerCommand struct {
	CustomerID int64
	Name       string
	Gender     models.Gender
	Age        int
	Address    string
	Phone      string
	BirthDate  time.Time
	Password   string
	Status     models.CustomerStatus
}

type DeleteCustomerCommand struct {
	CustomerID int64
}

// ---------- Account commands ----------

// OpenAccountCommand opens an account. An empty AccountNumber is generated and
// an empty Status defaults to ACTIVE.
type OpenAccountCommand struct {
	CustomerID     int64
	AccountNumber  string
	AccountType    models.AccountType
	OpeningBalance decimal.Decimal
	Status         models.AccountStatus
}

// UpdateAccountCommand changes the type and/or status of an account. Empty
// fields are left untouched.
type UpdateAccountCommand struct {
	AccountID   int64
	AccountType models.AccountType
	Status      models.AccountStatus
}

type CloseAccountCommand struct {
	AccountID int64
}

type DeleteAccountCommand struct {
	AccountID int64
}

// ---------- Movement commands ----------

type DepositCommand struct {
	AccountID int64
	Amount    decimal.Decimal
}

type WithdrawCommand struct {
	AccountID int64
	Amount    decimal.Decimal
}

type RecordMovementCommand struct {
	AccountID int64
	Kind      models.MovementKind
	Value     decimal.Decimal
}

type CorrectMovementCommand struct {
	MovementID int64
	Value      decimal.Decimal
}

type DeleteMovementCommand struct {
	MovementID int64
}
