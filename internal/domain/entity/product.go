package entity

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxStock is the largest stock the products.stock INTEGER column holds.
const MaxStock = math.MaxInt32

// Product is a catalog entry with its available stock.
// Version is bumped by the store on every successful update and is used
// to reject writes based on a stale read.
type Product struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock"`
	CategoryID int64           `json:"categoryId"`
	Version    int64           `json:"version"`
}

func NewProduct(name string, price decimal.Decimal, stock int, categoryID int64) (*Product, error) {
	p := &Product{
		Name:       strings.TrimSpace(name),
		Price:      price,
		Stock:      stock,
		CategoryID: categoryID,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrNameRequired
	}
	if p.Price.IsNegative() {
		return ErrInvalidPrice
	}
	if p.Stock < 0 {
		return ErrNegativeStock
	}
	if p.Stock > MaxStock {
		return ErrStockOutOfRange
	}
	return nil
}

// Reserve takes qty units out of stock. Stock is left untouched on error.
func (p *Product) Reserve(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if p.Stock < qty {
		return fmt.Errorf("%w: product %d has %d, requested %d", ErrInsufficientStock, p.ID, p.Stock, qty)
	}
	p.Stock -= qty
	return nil
}
