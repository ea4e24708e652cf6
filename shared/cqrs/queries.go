package cqrs

import "time"

// ---------- Customer queries ----------

type GetCustomerQuery struct {
	CustomerID int64
}

// ---------- Account queries ----------

type GetAccountQuery struct {
	AccountID int64
}

type GetAccountByNumberQuery struct {
	AccountNumber string
}

// ListAccountsQuery lists every account, or only the customer's when
// CustomerID is set.
type ListAccountsQuery struct {
	CustomerID int64
}

// ---------- Movement queries ----------

type GetMovementQuery struct {
	MovementID int64
}

// ListMovementsQuery lists an account's movements newest first, or oldest
// first inside [From, To] when both bounds are set.
type ListMovementsQuery struct {
	AccountID int64
	From      *time.Time
	To        *time.Time
}

// StatementQuery builds a customer's statement for the days StartDate through
// EndDate, both inclusive.
type StatementQuery struct {
	CustomerID int64
	StartDate  time.Time
	EndDate    time.Time
}
