package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DioGolang/GoShop/internal/application/port/outbound"
	"github.com/DioGolang/GoShop/internal/application/usecase/order"
	"github.com/DioGolang/GoShop/pkg/logger"
)

type stubUseCase struct {
	err   error
	input *order.CreateInput
}

func (s *stubUseCase) Execute(_ context.Context, input *order.CreateInput) (order.CreateOutput, error) {
	s.input = input
	if s.err != nil {
		return order.CreateOutput{}, s.err
	}
	return order.CreateOutput{OrderID: 1, CustomerID: input.CustomerID}, nil
}

func TestOrder_CreateMapsOutcomes(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedErr  string
	}{
		{"Should reject an invalid request", order.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
		{"Should report a missing customer", fmt.Errorf("%w: id 4", order.ErrCustomerNotFound), http.StatusNotFound, "customer_not_found"},
		{"Should report a missing product", order.ErrProductNotFound, http.StatusNotFound, "product_not_found"},
		{"Should report insufficient stock", order.ErrInsufficientStock, http.StatusConflict, "insufficient_stock"},
		{"Should report a lost race", fmt.Errorf("%w: %w", outbound.ErrPersistence, outbound.ErrConcurrentUpdate), http.StatusConflict, "conflict"},
		{"Should hide store failures", fmt.Errorf("%w: %w", outbound.ErrPersistence, errors.New("dial tcp: refused")), http.StatusInternalServerError, "persistence_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t)
			h := NewOrderHandler(&stubUseCase{err: tt.err}, f.factory, logger.NewNop())
			f.router.Route("/orders", func(r chi.Router) { h.Routes(r) })

			rec := f.do(t, http.MethodPost, "/orders", `{"customerId": 4, "products": [{"productId": 1, "quantity": 1}]}`)

			assert.Equal(t, tt.expectedCode, rec.Code)
			body := decodeBody[errorResponse](t, rec)
			assert.Equal(t, tt.expectedErr, body.Error)
			assert.NotContains(t, body.Message, "dial tcp")
		})
	}
}

func TestOrder_CreateRejectsMalformedBody(t *testing.T) {
	f := newAPIFixture(t)
	uc := &stubUseCase{}
	h := NewOrderHandler(uc, f.factory, logger.NewNop())
	f.router.Route("/orders", func(r chi.Router) { h.Routes(r) })

	rec := f.do(t, http.MethodPost, "/orders", `[1, 2`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, uc.input)
}

func TestOrder_CreateAndReadBack(t *testing.T) {
	f := newAPIFixture(t)
	uc := order.NewCreateOrderUseCase(f.factory, f.notifier, logger.NewNop())
	h := NewOrderHandler(uc, f.factory, logger.NewNop())
	f.router.Route("/orders", func(r chi.Router) { h.Routes(r) })
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/customers", `{"name": "Ada"}`).Code)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/products", `{"name": "Mug", "price": 2, "stock": 5}`).Code)

	rec := f.do(t, http.MethodPost, "/orders",
		`{"customerId": 1, "orderDate": "2024-03-01T10:00:00Z", "products": [{"productId": 1, "quantity": 2}]}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	out := decodeBody[order.CreateOutput](t, rec)
	assert.Equal(t, int64(1), out.OrderID)
	assert.Equal(t, "Ada", out.CustomerName)
	require.Len(t, out.Items, 1)
	assert.Equal(t, 2, out.Items[0].Quantity)

	rec = f.do(t, http.MethodGet, "/orders/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"customerName":"Ada"`)

	rec = f.do(t, http.MethodGet, "/products/1", "")
	assert.Contains(t, rec.Body.String(), `"stock":3`)

	rec = f.do(t, http.MethodPost, "/orders",
		`{"customerId": 1, "products": [{"productId": 1, "quantity": 4}]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "insufficient_stock", decodeBody[errorResponse](t, rec).Error)

	assert.Equal(t, http.StatusMethodNotAllowed, f.do(t, http.MethodDelete, "/orders/1", "").Code)
}
