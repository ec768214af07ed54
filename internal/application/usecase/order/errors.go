package order

import (
	"errors"
	"fmt"

	"github.com/DioGolang/GoShop/internal/application/port/outbound"
	"github.com/DioGolang/GoShop/internal/domain/entity"
)

// Every workflow error also matches its category in the outbound
// taxonomy through errors.Is.
var (
	ErrInvalidRequest    = fmt.Errorf("invalid order request: %w", outbound.ErrInvalidArgument)
	ErrCustomerNotFound  = fmt.Errorf("customer %w", outbound.ErrNotFound)
	ErrProductNotFound   = fmt.Errorf("product %w", outbound.ErrNotFound)
	ErrInsufficientStock = entity.ErrInsufficientStock
)

const (
	OutcomeOK                = "ok"
	OutcomeInvalidRequest    = "invalid_request"
	OutcomeCustomerNotFound  = "customer_not_found"
	OutcomeProductNotFound   = "product_not_found"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeConflict          = "conflict"
	OutcomePersistenceError  = "persistence_error"
)

// Outcome maps a workflow result onto a stable category that callers can
// expose to clients and use as a metric label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, outbound.ErrInvalidArgument):
		return OutcomeInvalidRequest
	case errors.Is(err, ErrCustomerNotFound):
		return OutcomeCustomerNotFound
	case errors.Is(err, ErrProductNotFound):
		return OutcomeProductNotFound
	case errors.Is(err, ErrInsufficientStock):
		return OutcomeInsufficientStock
	case errors.Is(err, outbound.ErrConcurrentUpdate):
		return OutcomeConflict
	default:
		return OutcomePersistenceError
	}
}
