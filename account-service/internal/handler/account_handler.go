package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/eaglebank/banking/shared/cqrs"
	"github.com/eaglebank/banking/shared/middleware"
	"github.com/eaglebank/banking/shared/models"
	"github.com/eaglebank/banking/shared/xerrors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AccountCommander defines the write-side operations used by AccountHandler.
type AccountCommander interface {
	OpenAccount(context.Context, cqrs.OpenAccountCommand) (*models.Account, error)
	UpdateAccount(context.Context, cqrs.UpdateAccountCommand) (*models.Account, error)
	CloseAccount(context.Context, cqrs.CloseAccountCommand) (*models.Account, error)
	DeleteAccount(context.Context, cqrs.DeleteAccountCommand) error
	Deposit(context.Context, cqrs.DepositCommand) (*models.Movement, error)
	Withdraw(context.Context, cqrs.WithdrawCommand) (*models.Movement, error)
}

// AccountQuerier defines the read-side operations used by AccountHandler.
type AccountQuerier interface {
	GetAccount(context.Context, cqrs.GetAccountQuery) (*models.AccountView, error)
	GetAccountByNumber(context.Context, cqrs.GetAccountByNumberQuery) (*models.AccountView, error)
	ListAccounts(context.Context, cqrs.ListAccountsQuery) ([]models.AccountView, error)
}

// CustomerVerifier checks that the owner of a new account is a registered
// customer.
type CustomerVerifier interface {
	CustomerExists(ctx context.Context, customerID int64) (bool, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	commands  AccountCommander
	queries   AccountQuerier
	customers CustomerVerifier
}

type OpenAccountRequest struct {
	CustomerID     int64            `json:"customerId" validate:"required,gt=0"`
	AccountNumber  string           `json:"accountNumber" validate:"omitempty,max=50"`
	AccountType    string           `json:"accountType" validate:"required,oneof=Savings Checking Investment"`
	OpeningBalance *decimal.Decimal `json:"openingBalance" validate:"required"`
	Status         string           `json:"status" validate:"omitempty,oneof=ACTIVE CLOSED SUSPENDED"`
}

type UpdateAccountRequest struct {
	AccountType string `json:"accountType" validate:"omitempty,oneof=Savings Checking Investment"`
	Status      string `json:"status" validate:"omitempty,oneof=ACTIVE CLOSED SUSPENDED"`
}

type AmountRequest struct {
	Amount *decimal.Decimal `json:"amount" validate:"required"`
}

type ListAccountsResponse struct {
	Accounts []models.AccountView `json:"accounts"`
}

// NewAccountHandler builds the handler. customers may be nil, in which case
// the owner of a new account is not checked.
func NewAccountHandler(commands AccountCommander, queries AccountQuerier, customers CustomerVerifier) *AccountHandler {
	return &AccountHandler{commands: commands, queries: queries, customers: customers}
}

func (h *AccountHandler) OpenAccount(c *gin.Context) {
	var req OpenAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	ctx := c.Request.Context()
	if h.customers != nil {
		exists, err := h.customers.CustomerExists(ctx, req.CustomerID)
		if err != nil {
			middleware.RespondWithServiceError(c, err, "Failed to verify customer")
			return
		}
		if !exists {
			middleware.RespondWithServiceError(c, fmt.Errorf("customer %d: %w", req.CustomerID, xerrors.ErrCustomerNotFound), "")
			return
		}
	}

	account, err := h.commands.OpenAccount(ctx, cqrs.OpenAccountCommand{
		CustomerID:     req.CustomerID,
		AccountNumber:  req.AccountNumber,
		AccountType:    models.AccountType(req.AccountType),
		OpeningBalance: *req.OpeningBalance,
		Status:         models.AccountStatus(req.Status),
	})
	if err != nil {
		middleware.RespondWithServiceError(c, err, "Failed to open account")
		return
	}

	c.JSON(http.StatusCreated, models.NewAccountView(account))
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	var customerID int64
	if raw := c.Query("customerId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			middleware.RespondWithError(c, http.StatusBadRequest, "Invalid customer id")
			return
		}
		customerID = id
	}
	h.listAccounts(c, customerID)
}

func (h *AccountHandler) ListCustomerAccounts(c *gin.Context) {
	customerID, ok := pathID(c, "customerId", "Invalid customer id")
	if !ok {
		return
	}
	h.listAccounts(c, customerID)
}

func (h *AccountHandler) listAccounts(c *gin.Context, customerID int64) {
	views, err := h.queries.ListAccounts(c.Request.Context(), cqrs.ListAccountsQuery{CustomerID: customerID})
	if err != nil {
		middleware.RespondWithServiceError(c, err, "Failed to list accounts")
		return
	}
	if views == nil {
		views = []models.AccountView{}
	}
	c.JSON(http.StatusOK, ListAccountsResponse{Accounts: views})
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	accountID, ok := pathID(c, "accountId", "Invalid account id")
	if !ok {
		return
	}

	view, err := h.queries.GetAccount(c.Request.Context(), cqrs.GetAccountQuery{AccountID: accountID})
	if err != nil {
		middleware.RespondWithServiceError(c, err, "Failed to get account")
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *AccountHandler) GetAccountByNumber(c *gin.Context) {
	view, err := h.queries.GetAccountByNumber(c.Request.Context(), cqrs.GetAccountByNumberQuery{
		AccountNumber: c.Param("accountNumber"),
	})
	if err != nil {
		middleware.RespondWithServiceError(c, err, "Failed to get account")
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	accountID, ok := pathID(c, "accountId", "Invalid account id")
	if !ok {
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	account, err := h.commands.UpdateAccount(c.Request.Context(), cqrs.UpdateAccountCommand{
		AccountID:   accountID,
		AccountType: models.AccountType(req.AccountType),
		Status:      models.AccountStatus(req.Status),
	})
	if err != nil {
		middleware.RespondWithServiceError(c, err, "Failed to update account")
		return
	}
	c.JSON(http.StatusOK, models.NewAccountView(account))
}

func (h *AccountHandler) CloseAccount(c *gin.Context) {
	accountID, ok := pathID(c, "accountId", "Invalid account id")
	if !ok {
		return
	}

	account, err := h.commands.CloseAccount(c.Request.Context(), cqrs.CloseAccountCommand{AccountID: accountID})
	if err != nil {
		middleware.RespondWithServiceError(c, err, "Failed to close account")
		return
	}
	c.JSON(http.StatusOK, models.NewAccountView(account))
}

func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	accountID, ok := pathID(c, "accountId", "Invalid account id")
	if !ok {
		return
	}

	if err := h.commands.DeleteAccount(c.Request.Context(), cqrs.DeleteAccountCommand{AccountID: accountID}); err != nil {
		middleware.RespondWithServiceError(c, err, "Failed to delete account")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AccountHandler) Deposit(c *gin.Context) {
	accountID, amount, ok := bindAmount(c)
	if !ok {
		return
	}

	movement, err := h.commands.Deposit(c.Request.Context(), cqrs.DepositCommand{AccountID: accountID, Amount: amount})
	if err != nil {
		middleware.RespondWithServiceError(c, err, "Failed to deposit")
		return
	}
	c.JSON(http.StatusCreated, movement)
}

func (h *AccountHandler) Withdraw(c *gin.Context) {
	accountID, amount, ok := bindAmount(c)
	if !ok {
		return
	}

	movement, err := h.commands.Withdraw(c.Request.Context(), cqrs.WithdrawCommand{AccountID: accountID, Amount: amount})
	if err != nil {
		middleware.RespondWithServiceError(c, err, "Failed to withdraw")
		return
	}
	c.JSON(http.StatusCreated, movement)
}

func bindAmount(c *gin.Context) (int64, decimal.Decimal, bool) {
	accountID, ok := pathID(c, "accountId", "Invalid account id")
	if !ok {
		return 0, decimal.Zero, false
	}

	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return 0, decimal.Zero, false
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return 0, decimal.Zero, false
	}
	return accountID, *req.Amount, true
}

// pathID parses a positive integer path parameter, answering 400 otherwise.
func pathID(c *gin.Context, name, message string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		middleware.RespondWithError(c, http.StatusBadRequest, message)
		return 0, false
	}
	return id, true
}
