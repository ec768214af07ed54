package entity

import "errors"

var (
	ErrNameRequired      = errors.New("name is required")
	ErrInvalidPrice      = errors.New("price must be greater than or equal to zero")
	ErrNegativeStock     = errors.New("stock must be greater than or equal to zero")
	ErrStockOutOfRange   = errors.New("stock exceeds the storable maximum")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCustomerRequired  = errors.New("customer is required")
	ErrProductRequired   = errors.New("product is required")
	ErrItemsRequired     = errors.New("order must contain at least one item")
)
