package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eaglebank/banking/shared/cqrs"
	"github.com/eaglebank/banking/shared/models"
	"github.com/eaglebank/banking/shared/xerrors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- mock implementations ----

type mockCustomerCommander struct {
	createFn func(cqrs.CreateCustomerCommand) (*models.Customer, error)
	updateFn func(cqrs.UpdateCustomerCommand) (*models.CustomerView, error)
	deleteFn func(cqrs.DeleteCustomerCommand) error
}

func (m *mockCustomerCommander) CreateCustomer(_ context.Context, cmd cqrs.CreateCustomerCommand) (*models.Customer, error) {
	if m.createFn != nil {
		return m.createFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockCustomerCommander) UpdateCustomer(_ context.Context, cmd cqrs.UpdateCustomerCommand) (*models.CustomerView, error) {
	if m.updateFn != nil {
		return m.updateFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockCustomerCommander) DeleteCustomer(_ context.Context, cmd cqrs.DeleteCustomerCommand) error {
	if m.deleteFn != nil {
		return m.deleteFn(cmd)
	}
	return fmt.Errorf("not configured")
}

type mockCustomerQuerier struct {
	getFn  func(cqrs.GetCustomerQuery) (*models.CustomerView, error)
	listFn func() ([]models.CustomerView, error)
}

func (m *mockCustomerQuerier) GetCustomer(_ context.Context, q cqrs.GetCustomerQuery) (*models.CustomerView, error) {
	if m.getFn != nil {
		return m.getFn(q)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockCustomerQuerier) ListCustomers(context.Context) ([]models.CustomerView, error) {
	if m.listFn != nil {
		return m.listFn()
	}
	return nil, fmt.Errorf("not configured")
}

// ---- helpers ----

func newCustomerTestRouter(cmds CustomerCommander, qrys CustomerQuerier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewCustomerHandler(cmds, qrys).RegisterRoutes(r)
	return r
}

func doRequest(router *gin.Engine, method, url string, body any) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, url, nil)
	if body != nil {
		b, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, url, strings.NewReader(string(b)))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ---- test data ----

var aTestCustomer = &models.Customer{
	ID: 1, Name: "Jose Lema", Gender: models.GenderMale, Age: 34, Identification: "1712345678",
	Address: "Otavalo sn y principal", Phone: "098254785", PasswordHash: "$2a$10$secret",
	Status: models.CustomerStatusActive, CreatedAt: time.Now(), UpdatedAt: time.Now(),
}

func aValidCreateBody() map[string]any {
	return map[string]any{
		"name": "Jose Lema", "gender": "Male", "age": 34, "identification": "1712345678",
		"address": "Otavalo sn y principal", "phone": "098254785", "birthDate": "1990-04-02", "password": "1234abcd",
	}
}

func aValidUpdateBody() map[string]any {
	return map[string]any{"name": "Jose Lema", "gender": "Male", "age": 35, "address": "Quito", "phone": "098254785"}
}

// ---- tests ----

func TestCreateCustomer(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		createFn       func(cqrs.CreateCustomerCommand) (*models.Customer, error)
		expectedStatus int
	}{
		{
			name: "success - create customer",
			body: aValidCreateBody(),
			createFn: func(cmd cqrs.CreateCustomerCommand) (*models.Customer, error) {
				if cmd.BirthDate != time.Date(1990, 4, 2, 0, 0, 0, 0, time.UTC) {
					return nil, fmt.Errorf("unexpected birth date %v", cmd.BirthDate)
				}
				return aTestCustomer, nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "bad request - missing required fields",
			body:           map[string]any{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "bad request - short password",
			body: func() map[string]any {
				b := aValidCreateBody()
				b["password"] = "123"
				return b
			}(),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "bad request - under age",
			body: func() map[string]any {
				b := aValidCreateBody()
				b["age"] = 16
				return b
			}(),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "conflict - duplicate identification",
			body: aValidCreateBody(),
			createFn: func(cqrs.CreateCustomerCommand) (*models.Customer, error) {
				return nil, fmt.Errorf("identification 1712345678: %w", xerrors.ErrDuplicateIdentification)
			},
			expectedStatus: http.StatusConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newCustomerTestRouter(&mockCustomerCommander{createFn: tt.createFn}, &mockCustomerQuerier{})
			w := doRequest(router, http.MethodPost, "/v1/customers", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
		})
	}
}

func TestCreateCustomerNeverReturnsPasswordHash(t *testing.T) {
	cmds := &mockCustomerCommander{createFn: func(cqrs.CreateCustomerCommand) (*models.Customer, error) { return aTestCustomer, nil }}
	w := doRequest(newCustomerTestRouter(cmds, &mockCustomerQuerier{}), http.MethodPost, "/v1/customers", aValidCreateBody())

	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "$2a$10$secret")
	assert.NotContains(t, w.Body.String(), "password")
}

func TestGetAndListCustomers(t *testing.T) {
	qrys := &mockCustomerQuerier{
		getFn: func(q cqrs.GetCustomerQuery) (*models.CustomerView, error) {
			if q.CustomerID != 1 {
				return nil, fmt.Errorf("customer %d: %w", q.CustomerID, xerrors.ErrCustomerNotFound)
			}
			return models.NewCustomerView(aTestCustomer), nil
		},
		listFn: func() ([]models.CustomerView, error) { return nil, nil },
	}
	router := newCustomerTestRouter(&mockCustomerCommander{}, qrys)

	w := doRequest(router, http.MethodGet, "/v1/customers/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/v1/customers/2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodGet, "/v1/customers/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodGet, "/v1/customers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"customers":[]}`, w.Body.String())
}

func TestUpdateCustomer(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		body           any
		updateFn       func(cqrs.UpdateCustomerCommand) (*models.CustomerView, error)
		expectedStatus int
	}{
		{
			name: "success - update customer",
			path: "/v1/customers/1",
			body: aValidUpdateBody(),
			updateFn: func(cmd cqrs.UpdateCustomerCommand) (*models.CustomerView, error) {
				return models.NewCustomerView(aTestCustomer), nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "not found - customer does not exist",
			path: "/v1/customers/9",
			body: aValidUpdateBody(),
			updateFn: func(cmd cqrs.UpdateCustomerCommand) (*models.CustomerView, error) {
				return nil, xerrors.ErrCustomerNotFound
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "bad request - unknown status",
			path:           "/v1/customers/1",
			body:           map[string]any{"name": "x", "gender": "Male", "age": 30, "address": "a", "phone": "1", "status": "GONE"},
			expectedStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newCustomerTestRouter(&mockCustomerCommander{updateFn: tt.updateFn}, &mockCustomerQuerier{})
			w := doRequest(router, http.MethodPatch, tt.path, tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
		})
	}
}

func TestDeleteCustomer(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		deleteFn       func(cqrs.DeleteCustomerCommand) error
		expectedStatus int
	}{
		{
			name:           "success - delete customer",
			path:           "/v1/customers/1",
			deleteFn:       func(cqrs.DeleteCustomerCommand) error { return nil },
			expectedStatus: http.StatusNoContent,
		},
		{
			name: "conflict - customer still has accounts",
			path: "/v1/customers/1",
			deleteFn: func(cqrs.DeleteCustomerCommand) error {
				return fmt.Errorf("customer 1 owns 2 accounts: %w", xerrors.ErrCustomerHasAccounts)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "not found - customer does not exist",
			path:           "/v1/customers/9",
			deleteFn:       func(cqrs.DeleteCustomerCommand) error { return xerrors.ErrCustomerNotFound },
			expectedStatus: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newCustomerTestRouter(&mockCustomerCommander{deleteFn: tt.deleteFn}, &mockCustomerQuerier{})
			w := doRequest(router, http.MethodDelete, tt.path, nil)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
		})
	}
}
