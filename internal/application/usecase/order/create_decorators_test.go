package order

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DioGolang/GoShop/internal/application/port/outbound"
	"github.com/DioGolang/GoShop/pkg/logger"
)

type scriptedUseCase struct {
	errs  []error
	calls int
}

func (s *scriptedUseCase) Execute(context.Context, *CreateInput) (CreateOutput, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return CreateOutput{}, s.errs[i]
	}
	return CreateOutput{OrderID: 42}, nil
}

var errConflict = fmt.Errorf("%w: %w", outbound.ErrPersistence, outbound.ErrConcurrentUpdate)

func TestRetryDecorator(t *testing.T) {
	tests := []struct {
		name          string
		errs          []error
		maxAttempts   int
		expectedCalls int
		expectedErr   error
	}{
		{"Should succeed after one conflict", []error{errConflict}, 3, 2, nil},
		{"Should give up after max attempts", []error{errConflict, errConflict, errConflict}, 3, 3, outbound.ErrConcurrentUpdate},
		{"Should not retry business failures", []error{ErrInsufficientStock}, 3, 1, ErrInsufficientStock},
		{"Should not retry other persistence failures", []error{outbound.ErrPersistence}, 3, 1, outbound.ErrPersistence},
		{"Should run once when attempts are unset", []error{errConflict}, 0, 1, outbound.ErrConcurrentUpdate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			//Arrange
			next := &scriptedUseCase{errs: tt.errs}
			d := &CreateOrderRetryDecorator{Next: next, Logger: logger.NewNop(), MaxAttempts: tt.maxAttempts, BaseWait: time.Millisecond}

			//Act
			out, err := d.Execute(context.Background(), &CreateInput{})

			//Assert
			assert.Equal(t, tt.expectedCalls, next.calls)
			if tt.expectedErr == nil {
				require.NoError(t, err)
				assert.Equal(t, int64(42), out.OrderID)
				return
			}
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestRetryDecorator_StopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	next := &scriptedUseCase{errs: []error{errConflict, errConflict}}
	d := &CreateOrderRetryDecorator{Next: next, Logger: logger.NewNop(), MaxAttempts: 5, BaseWait: time.Hour}

	_, err := d.Execute(ctx, &CreateInput{})

	assert.Equal(t, 1, next.calls)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, outbound.ErrConcurrentUpdate)
}

// racingFactory lets another writer change a product right before the
// first commit, which forces a version conflict.
type racingFactory struct {
	next  outbound.UnitOfWorkFactory
	race  func()
	raced bool
}

func (f *racingFactory) New(ctx context.Context) (outbound.UnitOfWork, error) {
	uow, err := f.next.New(ctx)
	if err != nil {
		return nil, err
	}
	return &racingUnitOfWork{UnitOfWork: uow, f: f}, nil
}

type racingUnitOfWork struct {
	outbound.UnitOfWork
	f *racingFactory
}

func (u *racingUnitOfWork) Commit(ctx context.Context) (int64, error) {
	if !u.f.raced {
		u.f.raced = true
		u.f.race()
	}
	return u.UnitOfWork.Commit(ctx)
}

func TestRetryDecorator_RecoversFromLostUpdate(t *testing.T) {
	//Arrange
	f := newFixture(t, 10)
	productID := f.products[0].ID
	competitor := NewCreateOrderUseCase(f.factory, nil, logger.NewNop())
	racing := &racingFactory{next: f.factory, race: func() {
		_, err := competitor.Execute(context.Background(), &CreateInput{
			CustomerID: f.customer.ID,
			Products:   []ProductLine{{ProductID: productID, Quantity: 3}},
		})
		require.NoError(t, err)
	}}
	f.uc.Factory = racing
	d := &CreateOrderRetryDecorator{Next: f.uc, Logger: logger.NewNop(), MaxAttempts: 3, BaseWait: time.Millisecond}

	//Act
	out, err := d.Execute(context.Background(), &CreateInput{
		CustomerID: f.customer.ID,
		Products:   []ProductLine{{ProductID: productID, Quantity: 4}},
	})

	//Assert
	require.NoError(t, err)
	assert.NotZero(t, out.OrderID)
	assert.Equal(t, 3, f.stock(t, productID))
	assert.Len(t, f.orders(t), 2)
}

func TestRetryDecorator_RevalidatesStockOnRetry(t *testing.T) {
	f := newFixture(t, 5)
	productID := f.products[0].ID
	competitor := NewCreateOrderUseCase(f.factory, nil, logger.NewNop())
	f.uc.Factory = &racingFactory{next: f.factory, race: func() {
		_, err := competitor.Execute(context.Background(), &CreateInput{
			CustomerID: f.customer.ID,
			Products:   []ProductLine{{ProductID: productID, Quantity: 3}},
		})
		require.NoError(t, err)
	}}
	d := &CreateOrderRetryDecorator{Next: f.uc, Logger: logger.NewNop(), MaxAttempts: 3, BaseWait: time.Millisecond}

	_, err := d.Execute(context.Background(), &CreateInput{
		CustomerID: f.customer.ID,
		Products:   []ProductLine{{ProductID: productID, Quantity: 4}},
	})

	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 2, f.stock(t, productID))
}

type fakeMetrics struct {
	outcomes  []string
	successes []bool
}

func (m *fakeMetrics) RecordOrderCreated(outcome string) { m.outcomes = append(m.outcomes, outcome) }
func (m *fakeMetrics) RecordUseCaseExecution(_ string, success bool, _ time.Duration) {
	m.successes = append(m.successes, success)
}
func (m *fakeMetrics) RecordCommit(string)                                        {}
func (m *fakeMetrics) RecordNotification(string, string)                          {}
func (m *fakeMetrics) ObserveHTTPRequestDuration(string, string, string, float64) {}
func (m *fakeMetrics) ObserveGRPCRequestDuration(string, string, string, float64) {}
func (m *fakeMetrics) IncIdempotencyHit(string)                                   {}
func (m *fakeMetrics) IncIdempotencyMiss(string)                                  {}
func (m *fakeMetrics) IncEventsConsumed(string)                                   {}

func TestMetricsDecorator(t *testing.T) {
	m := &fakeMetrics{}
	next := &scriptedUseCase{errs: []error{nil, fmt.Errorf("%w: id 9", ErrProductNotFound), errors.New("db down")}}
	d := &CreateOrderMetricsDecorator{Next: next, Metrics: m}

	for i := 0; i < 3; i++ {
		_, _ = d.Execute(context.Background(), &CreateInput{})
	}

	assert.Equal(t, []string{OutcomeOK, OutcomeProductNotFound, OutcomePersistenceError}, m.outcomes)
	assert.Equal(t, []bool{true, false, false}, m.successes)
}
