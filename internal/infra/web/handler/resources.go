package handler

import (
	"context"
	"time"

	"github.com/DioGolang/GoShop/internal/application/port/outbound"
	"github.com/DioGolang/GoShop/internal/domain/entity"
	"github.com/DioGolang/GoShop/pkg/logger"
)

func NewCategoryResource(f outbound.UnitOfWorkFactory, log logger.Logger) *Resource[entity.Category] {
	return &Resource[entity.Category]{
		Name:     "categories",
		Factory:  f,
		Repo:     func(p outbound.RepositoryProvider) outbound.Repository[entity.Category] { return p.Categories() },
		SetID:    func(e *entity.Category, id int64) { e.ID = id },
		Validate: (*entity.Category).Validate,
		Logger:   log,
	}
}

func NewCustomerResource(f outbound.UnitOfWorkFactory, log logger.Logger) *Resource[entity.Customer] {
	return &Resource[entity.Customer]{
		Name:     "customers",
		Factory:  f,
		Repo:     func(p outbound.RepositoryProvider) outbound.Repository[entity.Customer] { return p.Customers() },
		SetID:    func(e *entity.Customer, id int64) { e.ID = id },
		Validate: (*entity.Customer).Validate,
		Logger:   log,
	}
}

// NewProductResource publishes a ProductChanged event to n after every
// committed mutation. n may be nil.
func NewProductResource(f outbound.UnitOfWorkFactory, n outbound.ProductNotifier, log logger.Logger) *Resource[entity.Product] {
	res := &Resource[entity.Product]{
		Name:     "products",
		Factory:  f,
		Repo:     func(p outbound.RepositoryProvider) outbound.Repository[entity.Product] { return p.Products() },
		SetID:    func(e *entity.Product, id int64) { e.ID = id },
		Validate: (*entity.Product).Validate,
		Logger:   log,
	}
	if n != nil {
		res.OnChange = func(ctx context.Context, p *entity.Product, change Change) {
			n.Notify(ctx, entity.NewProductChanged(*p, entity.ProductChange(change), time.Now()))
		}
	}
	return res
}

func NewOrderItemResource(f outbound.UnitOfWorkFactory, log logger.Logger) *Resource[entity.OrderItem] {
	return &Resource[entity.OrderItem]{
		Name:     "order-items",
		Factory:  f,
		Repo:     func(p outbound.RepositoryProvider) outbound.Repository[entity.OrderItem] { return p.OrderItems() },
		SetID:    func(e *entity.OrderItem, id int64) { e.ID = id },
		Validate: func(e *entity.OrderItem) error { return e.Validate() },
		Logger:   log,
	}
}
