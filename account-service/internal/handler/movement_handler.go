package handler

import (
	"context"
	"net/http"

	"github.com/eaglebank/banking/shared/cqrs"
	"github.com/eaglebank/banking/shared/middleware"
	"github.com/eaglebank/banking/shared/models"
	"github.com/eaglebank/banking/shared/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// MovementCommander defines the movement write operations. Correction and
// deletion are administrative and rebuild the account's snapshots.
type MovementCommander interface {
	RecordMovement(context.Context, cqrs.RecordMovementCommand) (*models.Movement, error)
	CorrectMovement(context.Context, cqrs.CorrectMovementCommand) (*models.Movement, error)
	DeleteMovement(context.Context, cqrs.DeleteMovementCommand) error
}

type MovementQuerier interface {
	GetMovement(context.Context, cqrs.GetMovementQuery) (*models.Movement, error)
	ListMovements(context.Context, cqrs.ListMovementsQuery) ([]models.Movement, error)
	ListAllMovements(context.Context) ([]models.Movement, error)
}

type MovementHandler struct {
	commands MovementCommander
	queries  MovementQuerier
}

type RecordMovementRequest struct {
	AccountID int64            `json:"accountId" validate:"required,gt=0"`
	Kind      string           `json:"kind" validate:"required,oneof=DEPOSIT WITHDRAWAL TRANSFER"`
	Value     *decimal.Decimal `json:"value" validate:"required"`
}

type CorrectMovementRequest struct {
	Value *decimal.Decimal `json:"value" validate:"required"`
}

type MovementRangeQuery struct {
	From string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" validate:"omitempty,datetime=2006-01-02"`
}

type ListMovementsResponse struct {
	Movements []models.Movement `json:"movements"`
}

func NewMovementHandler(commands MovementCommander, queries MovementQuerier) *MovementHandler {
	return &MovementHandler{commands: commands, queries: queries}
}

func (h *MovementHandler) RecordMovement(c *gin.Context) {
	var req RecordMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	movement, err := h.commands.RecordMovement(c.Request.Context(), cqrs.RecordMovementCommand{
		AccountID: req.AccountID,
		Kind:      models.MovementKind(req.Kind),
		Value:     *req.Value,
	})
	if err != nil {
		middleware.RespondWithServiceError(c, err, "Failed to record movement")
		return
	}
	c.JSON(http.StatusCreated, movement)
}

func (h *MovementHandler) GetMovement(c *gin.Context) {
	movementID, ok := pathID(c, "movementId", "Invalid movement id")
	if !ok {
		return
	}

	movement, err := h.queries.GetMovement(c.Request.Context(), cqrs.GetMovementQuery{MovementID: movementID})
	if err != nil {
		middleware.RespondWithServiceError(c, err, "Failed to get movement")
		return
	}
	c.JSON(http.StatusOK, movement)
}

func (h *MovementHandler) ListAllMovements(c *gin.Context) {
	movements, err := h.queries.ListAllMovements(c.Request.Context())
	if err != nil {
		middleware.RespondWithServiceError(c, err, "Failed to list movements")
		return
	}
	respondMovements(c, movements)
}

// ListAccountMovements lists an account's movements newest first, or oldest
// first between the from and to dates (inclusive) when both are given.
func (h *MovementHandler) ListAccountMovements(c *gin.Context) {
	accountID, ok := pathID(c, "accountId", "Invalid account id")
	if !ok {
		return
	}

	var rng MovementRangeQuery
	if err := c.ShouldBindQuery(&rng); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}
	if validationErrors := middleware.ValidateRequest(rng); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}
	if (rng.From == "") != (rng.To == "") {
		middleware.RespondWithError(c, http.StatusBadRequest, "Both from and to are required for a date range")
		return
	}

	q := cqrs.ListMovementsQuery{AccountID: accountID}
	if rng.From != "" {
		from, _ := utils.ParseDate(rng.From)
		to, _ := utils.ParseDate(rng.To)
		from, to = utils.StartOfDay(from), utils.EndOfDay(to)
		q.From, q.To = &from, &to
	}

	movements, err := h.queries.ListMovements(c.Request.Context(), q)
	if err != nil {
		middleware.RespondWithServiceError(c, err, "Failed to list movements")
		return
	}
	respondMovements(c, movements)
}

func (h *MovementHandler) CorrectMovement(c *gin.Context) {
	movementID, ok := pathID(c, "movementId", "Invalid movement id")
	if !ok {
		return
	}

	var req CorrectMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	movement, err := h.commands.CorrectMovement(c.Request.Context(), cqrs.CorrectMovementCommand{
		MovementID: movementID,
		Value:      *req.Value,
	})
	if err != nil {
		middleware.RespondWithServiceError(c, err, "Failed to correct movement")
		return
	}
	c.JSON(http.StatusOK, movement)
}

func (h *MovementHandler) DeleteMovement(c *gin.Context) {
	movementID, ok := pathID(c, "movementId", "Invalid movement id")
	if !ok {
		return
	}

	if err := h.commands.DeleteMovement(c.Request.Context(), cqrs.DeleteMovementCommand{MovementID: movementID}); err != nil {
		middleware.RespondWithServiceError(c, err, "Failed to delete movement")
		return
	}
	c.Status(http.StatusNoContent)
}

func respondMovements(c *gin.Context, movements []models.Movement) {
	if movements == nil {
		movements = []models.Movement{}
	}
	c.JSON(http.StatusOK, ListMovementsResponse{Movements: movements})
}
