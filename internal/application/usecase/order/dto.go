package order

import "time"

// Input

type ProductLine struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type CreateInput struct {
	CustomerID int64         `json:"customerId"`
	OrderDate  time.Time     `json:"orderDate"`
	Products   []ProductLine `json:"products"`
}

// Output

type ItemOutput struct {
	ID        int64 `json:"id"`
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type CreateOutput struct {
	OrderID      int64        `json:"orderId"`
	CustomerID   int64        `json:"customerId"`
	CustomerName string       `json:"customerName"`
	OrderDate    time.Time    `json:"orderDate"`
	Items        []ItemOutput `json:"items"`
}
