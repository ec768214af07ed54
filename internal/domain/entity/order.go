package entity

import "time"

type Order struct {
	ID           int64       `json:"id"`
	OrderDate    time.Time   `json:"orderDate"`
	CustomerID   int64       `json:"customerId"`
	CustomerName string      `json:"customerName"`
	Items        []OrderItem `json:"items"`
}

type OrderItem struct {
	ID        int64 `json:"id"`
	OrderID   int64 `json:"orderId"`
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// NewOrder starts an empty order for customer, keeping a copy of the
// customer's name as it is at creation time.
func NewOrder(customer *Customer, date time.Time) (*Order, error) {
	if customer == nil || customer.ID == 0 {
		return nil, ErrCustomerRequired
	}
	return &Order{
		OrderDate:    date,
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
		Items:        make([]OrderItem, 0),
	}, nil
}

func (o *Order) AddItem(product *Product, qty int) error {
	if product == nil || product.ID == 0 {
		return ErrProductRequired
	}
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	o.Items = append(o.Items, OrderItem{
		OrderID:   o.ID,
		ProductID: product.ID,
		Quantity:  qty,
	})
	return nil
}

func (o *Order) Validate() error {
	if o.CustomerID == 0 {
		return ErrCustomerRequired
	}
	if len(o.Items) == 0 {
		return ErrItemsRequired
	}
	for _, item := range o.Items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (i OrderItem) Validate() error {
	if i.ProductID == 0 {
		return ErrProductRequired
	}
	if i.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}
