package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductChange string

const (
	ProductCreated       ProductChange = "created"
	ProductUpdated       ProductChange = "updated"
	ProductDeleted       ProductChange = "deleted"
	ProductStockReserved ProductChange = "stock_reserved"
)

// ProductChanged describes a committed product mutation. EventID is unique
// per event so that consumers can drop redeliveries.
type ProductChanged struct {
	EventID    string          `json:"eventId"`
	Change     ProductChange   `json:"change"`
	ProductID  int64           `json:"productId"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock"`
	Version    int64           `json:"version"`
	OccurredAt time.Time       `json:"occurredAt"`
}

func NewProductChanged(p Product, change ProductChange, at time.Time) ProductChanged {
	return ProductChanged{
		EventID:    uuid.NewString(),
		Change:     change,
		ProductID:  p.ID,
		Name:       p.Name,
		Price:      p.Price,
		Stock:      p.Stock,
		Version:    p.Version,
		OccurredAt: at.UTC(),
	}
}
