package outbound

import (
	"context"

	"github.com/DioGolang/GoShop/internal/domain/entity"
)

// Repository is the uniform persistence contract for one entity type.
// Add, Update and Delete only stage changes; they become durable on
// UnitOfWork.Commit.
type Repository[T any] interface {
	GetAll(ctx context.Context) ([]*T, error)
	GetByID(ctx context.Context, id int64) (*T, error)
	Add(ctx context.Context, e *T) error
	Update(ctx context.Context, e *T) error
	Delete(ctx context.Context, e *T) error
}

type CategoryRepository = Repository[entity.Category]
type CustomerRepository = Repository[entity.Customer]
type ProductRepository = Repository[entity.Product]
type OrderItemRepository = Repository[entity.OrderItem]

type OrderRepository interface {
	Repository[entity.Order]
	// CreateOrder validates the order graph and stages it together with its items.
	CreateOrder(ctx context.Context, order *entity.Order) error
	// ChangeOrderStatus is reserved for a future order state machine and
	// currently always returns ErrNotSupported.
	ChangeOrderStatus(ctx context.Context, order *entity.Order, status string) error
}
