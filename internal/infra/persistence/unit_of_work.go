package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/DioGolang/GoShop/internal/application/port/outbound"
	"github.com/DioGolang/GoShop/internal/domain/entity"
)

// Tables groups one table binding per entity type for a single session.
type Tables[Tx any] struct {
	Categories Table[entity.Category, Tx]
	Customers  Table[entity.Customer, Tx]
	Products   Table[entity.Product, Tx]
	Orders     Table[entity.Order, Tx]
	OrderItems Table[entity.OrderItem, Tx]
}

type OrderRepository[Tx any] struct {
	*Repository[entity.Order, Tx]
}

func (r *OrderRepository[Tx]) CreateOrder(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return fmt.Errorf("%w: order is nil", outbound.ErrInvalidArgument)
	}
	if err := order.Validate(); err != nil {
		return fmt.Errorf("%w: %w", outbound.ErrInvalidArgument, err)
	}
	return r.Add(ctx, order)
}

func (r *OrderRepository[Tx]) ChangeOrderStatus(_ context.Context, order *entity.Order, status string) error {
	if order == nil {
		return fmt.Errorf("%w: order is nil", outbound.ErrInvalidArgument)
	}
	return fmt.Errorf("%w: change order status to %q", outbound.ErrNotSupported, status)
}

// UnitOfWork binds every repository to the same Tracker, which is what
// makes a Commit span all entity types.
type UnitOfWork[Tx any] struct {
	tracker    *Tracker[Tx]
	categories *Repository[entity.Category, Tx]
	customers  *Repository[entity.Customer, Tx]
	products   *Repository[entity.Product, Tx]
	orders     *OrderRepository[Tx]
	orderItems *Repository[entity.OrderItem, Tx]
}

func NewUnitOfWork[Tx any](backend Backend[Tx], tables Tables[Tx]) *UnitOfWork[Tx] {
	tracker := NewTracker[Tx](backend)
	return &UnitOfWork[Tx]{
		tracker:    tracker,
		categories: NewRepository(tracker, tables.Categories),
		customers:  NewRepository(tracker, tables.Customers),
		products:   NewRepository(tracker, tables.Products),
		orders:     &OrderRepository[Tx]{Repository: NewRepository(tracker, tables.Orders)},
		orderItems: NewRepository(tracker, tables.OrderItems),
	}
}

func (u *UnitOfWork[Tx]) Categories() outbound.CategoryRepository   { return u.categories }
func (u *UnitOfWork[Tx]) Customers() outbound.CustomerRepository    { return u.customers }
func (u *UnitOfWork[Tx]) Products() outbound.ProductRepository      { return u.products }
func (u *UnitOfWork[Tx]) Orders() outbound.OrderRepository          { return u.orders }
func (u *UnitOfWork[Tx]) OrderItems() outbound.OrderItemRepository  { return u.orderItems }
func (u *UnitOfWork[Tx]) Commit(ctx context.Context) (int64, error) { return u.tracker.Commit(ctx) }
func (u *UnitOfWork[Tx]) Close() error                              { return u.tracker.Close() }
func (u *UnitOfWork[Tx]) State() State                              { return u.tracker.State() }

func isNotFound(err error) bool {
	return errors.Is(err, outbound.ErrNotFound)
}

var _ outbound.UnitOfWork = (*UnitOfWork[any])(nil)
