package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountView is the read-optimised projection of an account held in Redis.
type AccountView struct {
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

func NewAccountView(a *Account) *AccountView {
	return &AccountView{
		ID:             a.ID,
		CustomerID:     a.CustomerID,
		AccountNumber:  a.AccountNumber,
		AccountType:    a.AccountType,
		OpeningBalance: a.OpeningBalance,
		Balance:        a.Balance,
		Status:         a.Status,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// CustomerView is the read-optimised projection of a customer.
// It never exposes PasswordHash. The account service reads it to check that a
// customer exists before opening an account.
type CustomerView struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	Gender         Gender         `json:"gender"`
	Age            int            `json:"age"`
	Identification string         `json:"identification"`
	Address        string         `json:"address"`
	Phone          string         `json:"phone"`
	BirthDate      time.Time      `json:"birthDate"`
	Status         CustomerStatus `json:"status"`
	AccountCount   int            `json:"accountCount"`
	CreatedAt      time.Time      `json:"createdTimestamp"`
	UpdatedAt      time.Time      `json:"updatedTimestamp"`
}

func NewCustomerView(c *Customer) *CustomerView {
	return &CustomerView{
		ID:             c.ID,
		Name:           c.Name,
		Gender:         c.Gender,
		Age:            c.Age,
		Identification: c.Identification,
		Address:        c.Address,
		Phone:          c.Phone,
		BirthDate:      c.BirthDate,
		Status:         c.Status,
		AccountCount:   c.AccountCount,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// Statement is a customer's report over a date range.
type Statement struct {
	CustomerID int64              `json:"customerId"`
	StartDate  time.Time          `json:"startDate"`
	EndDate    time.Time          `json:"endDate"`
	Accounts   []AccountStatement `json:"accounts"`
}

// AccountStatement is one account of a Statement with the movements that fall
// inside the range, oldest first.
type AccountStatement struct {
	Account      Account         `json:"account"`
	Movements    []Movement      `json:"movements"`
	TotalCredits decimal.Decimal `json:"totalCredits"`
	TotalDebits  decimal.Decimal `json:"totalDebits"`
}
