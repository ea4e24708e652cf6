package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/eaglebank/banking/shared/cqrs"
	"github.com/eaglebank/banking/shared/middleware"
	"github.com/eaglebank/banking/shared/models"
	"github.com/eaglebank/banking/shared/utils"
	"github.com/gin-gonic/gin"
)

// CustomerCommander defines the write-side operations used by CustomerHandler.
type CustomerCommander interface {
	CreateCustomer(context.Context, cqrs.CreateCustomerCommand) (*models.Customer, error)
	UpdateCustomer(context.Context, cqrs.UpdateCustomerCommand) (*models.CustomerView, error)
	DeleteCustomer(context.Context, cqrs.DeleteCustomerCommand) error
}

// CustomerQuerier defines the read-side operations used by CustomerHandler.
type CustomerQuerier interface {
	GetCustomer(context.Context, cqrs.GetCustomerQuery) (*models.CustomerView, error)
	ListCustomers(context.Context) ([]models.CustomerView, error)
}

// CustomerHandler routes requests to the command or query service as appropriate.
type CustomerHandler struct {
	commands CustomerCommander
	queries  CustomerQuerier
}

type CreateCustomerRequest struct {
	Name           string `json:"name" validate:"required,max=100"`
	Gender         string `json:"gender" validate:"required,oneof=Male Female Other"`
	Age            int    `json:"age" validate:"required,gte=18,lte=150"`
	Identification string `json:"identification" validate:"required,max=20"`
	Address        string `json:"address" validate:"required,max=200"`
	Phone          string `json:"phone" validate:"required,max=20"`
	BirthDate      string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	Password       string `json:"password" validate:"required,min=8"`
	Status         string `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE BLOCKED"`
}

type UpdateCustomerRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	Gender    string `json:"gender" validate:"required,oneof=Male Female Other"`
	Age       int    `json:"age" validate:"required,gte=18,lte=150"`
	Address   string `json:"address" validate:"required,max=200"`
	Phone     string `json:"phone" validate:"required,max=20"`
	BirthDate string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	Password  string `json:"password" validate:"omitempty,min=8"`
	Status    string `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE BLOCKED"`
}

type ListCustomersResponse struct {
	Customers []models.CustomerView `json:"customers"`
}

func NewCustomerHandler(commands CustomerCommander, queries CustomerQuerier) *CustomerHandler {
	return &CustomerHandler{commands: commands, queries: queries}
}

// RegisterRoutes mounts the customer API under /v1/customers.
func (h *CustomerHandler) RegisterRoutes(r gin.IRouter) {
	v1 := r.Group("/v1/customers")
	{
		v1.POST("", h.CreateCustomer)
		v1.GET("", h.ListCustomers)
		v1.GET("/:customerId", h.GetCustomer)
		v1.PATCH("/:customerId", h.UpdateCustomer)
		v1.DELETE("/:customerId", h.DeleteCustomer)
	}
}

func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	customer, err := h.commands.CreateCustomer(c.Request.Context(), cqrs.CreateCustomerCommand{
		Name:           req.Name,
		Gender:         models.Gender(req.Gender),
		Age:            req.Age,
		Identification: req.Identification,
		Address:        req.Address,
		Phone:          req.Phone,
		BirthDate:      parseBirthDate(req.BirthDate),
		Password:       req.Password,
		Status:         models.CustomerStatus(req.Status),
	})
	if err != nil {
		middleware.RespondWithServiceError(c, err, "Failed to create customer")
		return
	}

	c.JSON(http.StatusCreated, models.NewCustomerView(customer))
}

func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	views, err := h.queries.ListCustomers(c.Request.Context())
	if err != nil {
		middleware.RespondWithServiceError(c, err, "Failed to list customers")
		return
	}
	if views == nil {
		views = []models.CustomerView{}
	}
	c.JSON(http.StatusOK, ListCustomersResponse{Customers: views})
}

func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	customerID, ok := customerIDParam(c)
	if !ok {
		return
	}

	view, err := h.queries.GetCustomer(c.Request.Context(), cqrs.GetCustomerQuery{CustomerID: customerID})
	if err != nil {
		middleware.RespondWithServiceError(c, err, "Failed to get customer")
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	customerID, ok := customerIDParam(c)
	if !ok {
		return
	}

	var req UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	view, err := h.commands.UpdateCustomer(c.Request.Context(), cqrs.UpdateCustomerCommand{
		CustomerID: customerID,
		Name:       req.Name,
		Gender:     models.Gender(req.Gender),
		Age:        req.Age,
		Address:    req.Address,
		Phone:      req.Phone,
		BirthDate:  parseBirthDate(req.BirthDate),
		Password:   req.Password,
		Status:     models.CustomerStatus(req.Status),
	})
	if err != nil {
		middleware.RespondWithServiceError(c, err, "Failed to update customer")
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	customerID, ok := customerIDParam(c)
	if !ok {
		return
	}

	if err := h.commands.DeleteCustomer(c.Request.Context(), cqrs.DeleteCustomerCommand{CustomerID: customerID}); err != nil {
		middleware.RespondWithServiceError(c, err, "Failed to delete customer")
		return
	}

	c.Status(http.StatusNoContent)
}

func customerIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("customerId"), 10, 64)
	if err != nil || id <= 0 {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid customer id")
		return 0, false
	}
	return id, true
}

// parseBirthDate expects a value already checked by the validator.
func parseBirthDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := utils.ParseDate(s)
	return t
}
