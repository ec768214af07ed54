package memory

import (
	"context"

	"github.com/DioGolang/GoShop/internal/application/port/outbound"
	"github.com/DioGolang/GoShop/internal/infra/persistence"
)

type session struct {
	store *Store
}

func (s *session) Begin(ctx context.Context) (*dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.begin(), nil
}

func (s *session) Commit(tx *dataset) error { return s.store.commit(tx) }

func (s *session) Rollback(*dataset) error {
	s.store.rollback()
	return nil
}

func (s *session) Release() error { return nil }

type UnitOfWorkFactory struct {
	store *Store
}

func NewUnitOfWorkFactory(store *Store) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{store: store}
}

func (f *UnitOfWorkFactory) New(ctx context.Context) (outbound.UnitOfWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return persistence.NewUnitOfWork[*dataset](&session{store: f.store}, persistence.Tables[*dataset]{
		Categories: categoryTable{store: f.store},
		Customers:  customerTable{store: f.store},
		Products:   productTable{store: f.store},
		Orders:     orderTable{store: f.store},
		OrderItems: orderItemTable{store: f.store},
	}), nil
}

var _ outbound.UnitOfWorkFactory = (*UnitOfWorkFactory)(nil)
