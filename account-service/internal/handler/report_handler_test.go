package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/eaglebank/banking/shared/cqrs"
	"github.com/eaglebank/banking/shared/models"
	"github.com/eaglebank/banking/shared/xerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStatementBuilder struct {
	buildFn func(cqrs.StatementQuery) (*models.Statement, error)
}

func (m *mockStatementBuilder) BuildStatement(_ context.Context, q cqrs.StatementQuery) (*models.Statement, error) {
	if m.buildFn != nil {
		return m.buildFn(q)
	}
	return nil, fmt.Errorf("not configured")
}

func TestGetStatement(t *testing.T) {
	var seen cqrs.StatementQuery
	builder := &mockStatementBuilder{buildFn: func(q cqrs.StatementQuery) (*models.Statement, error) {
		seen = q
		if q.EndDate.Before(q.StartDate) {
			return nil, fmt.Errorf("%w: end date is before start date", xerrors.ErrValidation)
		}
		return &models.Statement{CustomerID: q.CustomerID, Accounts: []models.AccountStatement{}}, nil
	}}
	router := newTestRouter(testDeps{statements: builder})

	w := doRequest(router, http.MethodGet, "/v1/reports?customerId=7&startDate=2024-02-01&endDate=2024-02-28", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(7), seen.CustomerID)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), seen.StartDate)
	assert.Equal(t, time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC), seen.EndDate)

	tests := []struct {
		name  string
		query string
	}{
		{"missing customer", "startDate=2024-02-01&endDate=2024-02-28"},
		{"missing end date", "customerId=7&startDate=2024-02-01"},
		{"malformed date", "customerId=7&startDate=2024/02/01&endDate=2024-02-28"},
		{"non numeric customer", "customerId=x&startDate=2024-02-01&endDate=2024-02-28"},
		{"inverted range", "customerId=7&startDate=2024-02-28&endDate=2024-02-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodGet, "/v1/reports?"+tt.query, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}
