package outbound

import (
	"context"
	"errors"
	"fmt"
)

// RepositoryProvider gives access to every repository bound to one session.
type RepositoryProvider interface {
	Categories() CategoryRepository
	Customers() CustomerRepository
	Products() ProductRepository
	Orders() OrderRepository
	OrderItems() OrderItemRepository
}

// UnitOfWork owns one store session. All repositories it hands out share
// that session, and Commit flushes their staged changes atomically.
// A UnitOfWork must not be used from more than one goroutine.
type UnitOfWork interface {
	RepositoryProvider
	// Commit returns the number of affected rows.
	Commit(ctx context.Context) (int64, error)
	// Close releases the session. Calling it more than once is a no-op.
	Close() error
}

type UnitOfWorkFactory interface {
	New(ctx context.Context) (UnitOfWork, error)
}

// WithUnitOfWork opens a unit of work, hands it to fn and always closes it.
// fn is responsible for calling Commit.
func WithUnitOfWork(ctx context.Context, factory UnitOfWorkFactory, fn func(uow UnitOfWork) error) (err error) {
	uow, err := factory.New(ctx)
	if err != nil {
		return fmt.Errorf("%w: open unit of work: %w", ErrPersistence, err)
	}
	defer func() {
		if closeErr := uow.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()
	return fn(uow)
}
