package handler

import (
	"context"
	"net/http"

	"github.com/eaglebank/banking/shared/cqrs"
	"github.com/eaglebank/banking/shared/middleware"
	"github.com/eaglebank/banking/shared/models"
	"github.com/eaglebank/banking/shared/utils"
	"github.com/gin-gonic/gin"
)

type StatementBuilder interface {
	BuildStatement(context.Context, cqrs.StatementQuery) (*models.Statement, error)
}

// ReportHandler serves customer statements.
type ReportHandler struct {
	statements StatementBuilder
}

type StatementRequest struct {
	CustomerID int64  `form:"customerId" validate:"required,gt=0"`
	StartDate  string `form:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate    string `form:"endDate" validate:"required,datetime=2006-01-02"`
}

func NewReportHandler(statements StatementBuilder) *ReportHandler {
	return &ReportHandler{statements: statements}
}

func (h *ReportHandler) GetStatement(c *gin.Context) {
	var req StatementRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	start, _ := utils.ParseDate(req.StartDate)
	end, _ := utils.ParseDate(req.EndDate)

	statement, err := h.statements.BuildStatement(c.Request.Context(), cqrs.StatementQuery{
		CustomerID: req.CustomerID,
		StartDate:  start,
		EndDate:    end,
	})
	if err != nil {
		middleware.RespondWithServiceError(c, err, "Failed to build statement")
		return
	}
	c.JSON(http.StatusOK, statement)
}
