package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeSavings    AccountType = "Savings"
	AccountTypeChecking   AccountType = "Checking"
	AccountTypeInvestment AccountType = "Investment"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeSavings, AccountTypeChecking, AccountTypeInvestment:
		return true
	}
	return false
}

type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusClosed    AccountStatus = "CLOSED"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusActive, AccountStatusClosed, AccountStatusSuspended:
		return true
	}
	return false
}

type MovementKind string

const (
	MovementDeposit    MovementKind = "DEPOSIT"
	MovementWithdrawal MovementKind = "WITHDRAWAL"
	MovementTransfer   MovementKind = "TRANSFER"
)

func (k MovementKind) Valid() bool {
	switch k {
	case MovementDeposit, MovementWithdrawal, MovementTransfer:
		return true
	}
	return false
}

// IsDebit reports whether the kind takes money out of the account.
// Transfers are outgoing.
func (k MovementKind) IsDebit() bool {
	return k == MovementWithdrawal || k == MovementTransfer
}

// Signed returns value with the sign the kind applies to a balance.
func (k MovementKind) Signed(value decimal.Decimal) decimal.Decimal {
	if k.IsDebit() {
		return value.Neg()
	}
	return value
}

// Account is the write model of a bank account.
// Balance always equals OpeningBalance plus the signed sum of its movements.
type Account struct {
	ID             int64           `json:"id"`
	CustomerID     int64           `json:"customerId"`
	AccountNumber  string          `json:"accountNumber"`
	AccountType    AccountType     `json:"accountType"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	Balance        decimal.Decimal `json:"balance"`
	Status         AccountStatus   `json:"status"`
	CreatedAt      time.Time       `json:"createdTimestamp"`
	UpdatedAt      time.Time       `json:"updatedTimestamp"`
}

func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// Movement is an entry of the movement log. Value is always positive; Kind
// carries the direction.
type Movement struct {
	ID               int64           `json:"id"`
	AccountID        int64           `json:"accountId"`
	Kind             MovementKind    `json:"kind"`
	Value            decimal.Decimal `json:"value"`
	ResultingBalance decimal.Decimal `json:"resultingBalance"`
	CreatedAt        time.Time       `json:"createdTimestamp"`
}

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "ACTIVE"
	CustomerStatusInactive CustomerStatus = "INACTIVE"
	CustomerStatusBlocked  CustomerStatus = "BLOCKED"
)

type Customer struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	Gender         Gender         `json:"gender"`
	Age            int            `json:"age"`
	Identification string         `json:"identification"`
	Address        string         `json:"address"`
	Phone          string         `json:"phone"`
	BirthDate      time.Time      `json:"birthDate"`
	PasswordHash   string         `json:"-"`
	Status         CustomerStatus `json:"status"`
	AccountCount   int            `json:"accountCount"`
	CreatedAt      time.Time      `json:"createdTimestamp"`
	UpdatedAt      time.Time      `json:"updatedTimestamp"`
}
