package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DioGolang/GoShop/internal/application/port/outbound"
	"github.com/DioGolang/GoShop/internal/domain/entity"
	"github.com/DioGolang/GoShop/internal/infra/memory"
)

func newFactory(t *testing.T) (*memory.Store, *memory.UnitOfWorkFactory) {
	t.Helper()
	store := memory.NewStore()
	return store, memory.NewUnitOfWorkFactory(store)
}

func open(t *testing.T, f outbound.UnitOfWorkFactory) outbound.UnitOfWork {
	t.Helper()
	uow, err := f.New(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = uow.Close() })
	return uow
}

func seedProduct(t *testing.T, f outbound.UnitOfWorkFactory, stock int) *entity.Product {
	t.Helper()
	ctx := context.Background()
	uow := open(t, f)
	p := &entity.Product{Name: "Mug", Price: decimal.NewFromInt(5), Stock: stock}
	require.NoError(t, uow.Products().Add(ctx, p))
	_, err := uow.Commit(ctx)
	require.NoError(t, err)
	return p
}

func TestUnitOfWork_AddIsStagedUntilCommit(t *testing.T) {
	ctx := context.Background()
	_, f := newFactory(t)
	writer := open(t, f)
	reader := open(t, f)

	c := &entity.Customer{Name: "Ada"}
	require.NoError(t, writer.Customers().Add(ctx, c))

	before, err := reader.Customers().GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, before)

	n, err := writer.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NotZero(t, c.ID)

	after, err := open(t, f).Customers().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "Ada", after[0].Name)
}

func TestUnitOfWork_GetByIDTwiceReturnsEqualSnapshots(t *testing.T) {
	ctx := context.Background()
	_, f := newFactory(t)
	p := seedProduct(t, f, 10)
	uow := open(t, f)

	first, err := uow.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	second, err := uow.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Same(t, first, second)
}

func TestUnitOfWork_GetByIDMissing(t *testing.T) {
	_, f := newFactory(t)

	_, err := open(t, f).Customers().GetByID(context.Background(), 99)

	assert.ErrorIs(t, err, outbound.ErrNotFound)
	assert.NotErrorIs(t, err, outbound.ErrPersistence)
}

func TestUnitOfWork_CommitSpansRepositories(t *testing.T) {
	ctx := context.Background()
	_, f := newFactory(t)
	uow := open(t, f)

	cat := &entity.Category{Name: "Kitchen"}
	cust := &entity.Customer{Name: "Ada"}
	require.NoError(t, uow.Categories().Add(ctx, cat))
	require.NoError(t, uow.Customers().Add(ctx, cust))

	n, err := uow.Commit(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NotZero(t, cat.ID)
	assert.NotZero(t, cust.ID)
}

func TestUnitOfWork_FailedCommitPersistsNothing(t *testing.T) {
	ctx := context.Background()
	store, f := newFactory(t)
	p := seedProduct(t, f, 10)
	uow := open(t, f)

	loaded, err := uow.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	loaded.Stock = 3
	require.NoError(t, uow.Products().Update(ctx, loaded))
	require.NoError(t, uow.Customers().Add(ctx, &entity.Customer{Name: "Ada"}))

	store.FailNextCommit(errors.New("connection lost"))
	_, err = uow.Commit(ctx)

	assert.ErrorIs(t, err, outbound.ErrPersistence)

	check := open(t, f)
	fresh, err := check.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, fresh.Stock)
	customers, err := check.Customers().GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, customers)
}

func TestUnitOfWork_ConcurrentUpdateIsRejected(t *testing.T) {
	ctx := context.Background()
	_, f := newFactory(t)
	p := seedProduct(t, f, 10)
	first := open(t, f)
	second := open(t, f)

	a, err := first.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	b, err := second.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, a.Reserve(6))
	require.NoError(t, first.Products().Update(ctx, a))
	require.NoError(t, b.Reserve(6))
	require.NoError(t, second.Products().Update(ctx, b))

	_, err = first.Commit(ctx)
	require.NoError(t, err)
	_, err = second.Commit(ctx)

	assert.ErrorIs(t, err, outbound.ErrConcurrentUpdate)
	assert.ErrorIs(t, err, outbound.ErrPersistence)

	fresh, err := open(t, f).Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, fresh.Stock)
}

func TestUnitOfWork_CommittedSessionAcceptsMoreWork(t *testing.T) {
	ctx := context.Background()
	_, f := newFactory(t)
	p := seedProduct(t, f, 10)
	uow := open(t, f)

	loaded, err := uow.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	for _, qty := range []int{2, 3} {
		require.NoError(t, loaded.Reserve(qty))
		require.NoError(t, uow.Products().Update(ctx, loaded))
		_, err = uow.Commit(ctx)
		require.NoError(t, err)
	}

	fresh, err := open(t, f).Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, fresh.Stock)
}

func TestUnitOfWork_OrderGraphAndCascade(t *testing.T) {
	ctx := context.Background()
	_, f := newFactory(t)
	p := seedProduct(t, f, 10)
	uow := open(t, f)

	cust := &entity.Customer{Name: "Ada"}
	require.NoError(t, uow.Customers().Add(ctx, cust))
	_, err := uow.Commit(ctx)
	require.NoError(t, err)

	order, err := entity.NewOrder(cust, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, order.AddItem(p, 2))
	require.NoError(t, uow.Orders().CreateOrder(ctx, order))

	n, err := uow.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NotZero(t, order.ID)
	assert.Equal(t, order.ID, order.Items[0].OrderID)
	assert.NotZero(t, order.Items[0].ID)

	items, err := open(t, f).OrderItems().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NoError(t, uow.Orders().Delete(ctx, order))
	_, err = uow.Commit(ctx)
	require.NoError(t, err)

	items, err = open(t, f).OrderItems().GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestUnitOfWork_ForeignKeysAreEnforced(t *testing.T) {
	ctx := context.Background()
	_, f := newFactory(t)
	uow := open(t, f)

	order := &entity.Order{CustomerID: 42, Items: []entity.OrderItem{{ProductID: 1, Quantity: 1}}}
	require.NoError(t, uow.Orders().CreateOrder(ctx, order))

	_, err := uow.Commit(ctx)

	assert.ErrorIs(t, err, outbound.ErrConstraintViolation)
	assert.ErrorIs(t, err, outbound.ErrPersistence)
}

func TestUnitOfWork_ReferencedProductCannotBeDeleted(t *testing.T) {
	ctx := context.Background()
	_, f := newFactory(t)
	p := seedProduct(t, f, 10)
	uow := open(t, f)
	cust := &entity.Customer{Name: "Ada"}
	require.NoError(t, uow.Customers().Add(ctx, cust))
	_, err := uow.Commit(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.Orders().CreateOrder(ctx, &entity.Order{
		CustomerID: cust.ID,
		Items:      []entity.OrderItem{{ProductID: p.ID, Quantity: 1}},
	}))
	_, err = uow.Commit(ctx)
	require.NoError(t, err)

	other := open(t, f)
	loaded, err := other.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.NoError(t, other.Products().Delete(ctx, loaded))
	_, err = other.Commit(ctx)

	assert.ErrorIs(t, err, outbound.ErrConstraintViolation)
}

func TestOrderRepository_CreateOrderValidates(t *testing.T) {
	ctx := context.Background()
	_, f := newFactory(t)
	orders := open(t, f).Orders()

	assert.ErrorIs(t, orders.CreateOrder(ctx, nil), outbound.ErrInvalidArgument)
	err := orders.CreateOrder(ctx, &entity.Order{CustomerID: 1})
	assert.ErrorIs(t, err, outbound.ErrInvalidArgument)
	assert.ErrorIs(t, err, entity.ErrItemsRequired)
}

func TestOrderRepository_ChangeOrderStatusIsNotSupported(t *testing.T) {
	_, f := newFactory(t)

	err := open(t, f).Orders().ChangeOrderStatus(context.Background(), &entity.Order{ID: 1}, "fulfilled")

	assert.ErrorIs(t, err, outbound.ErrNotSupported)
}

func TestWithUnitOfWork_AlwaysCloses(t *testing.T) {
	ctx := context.Background()
	_, f := newFactory(t)
	var captured outbound.UnitOfWork

	err := outbound.WithUnitOfWork(ctx, f, func(uow outbound.UnitOfWork) error {
		captured = uow
		return errors.New("handler failed")
	})

	assert.EqualError(t, err, "handler failed")
	_, err = captured.Commit(ctx)
	assert.ErrorIs(t, err, outbound.ErrUnitOfWorkClosed)
}

func TestWithUnitOfWork_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, f := newFactory(t)

	err := outbound.WithUnitOfWork(ctx, f, func(outbound.UnitOfWork) error { return nil })

	assert.ErrorIs(t, err, outbound.ErrPersistence)
	assert.ErrorIs(t, err, context.Canceled)
}
