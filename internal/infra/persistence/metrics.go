package persistence

import (
	"context"
	"errors"

	"github.com/DioGolang/GoShop/internal/application/port/outbound"
	"github.com/DioGolang/GoShop/pkg/metrics"
)

// MeteredFactory wraps a factory so that every Commit outcome is counted.
type MeteredFactory struct {
	Next    outbound.UnitOfWorkFactory
	Metrics metrics.Metrics
}

func (f *MeteredFactory) New(ctx context.Context) (outbound.UnitOfWork, error) {
	uow, err := f.Next.New(ctx)
	if err != nil {
		return nil, err
	}
	return &meteredUnitOfWork{UnitOfWork: uow, metrics: f.Metrics}, nil
}

type meteredUnitOfWork struct {
	outbound.UnitOfWork
	metrics metrics.Metrics
}

func (u *meteredUnitOfWork) Commit(ctx context.Context) (int64, error) {
	n, err := u.UnitOfWork.Commit(ctx)
	u.metrics.RecordCommit(CommitOutcome(err))
	return n, err
}

// CommitOutcome is the metric label for the result of a Commit.
func CommitOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, outbound.ErrConcurrentUpdate):
		return "conflict"
	case errors.Is(err, outbound.ErrConstraintViolation):
		return "constraint_violation"
	case errors.Is(err, outbound.ErrUnitOfWorkFailed), errors.Is(err, outbound.ErrUnitOfWorkClosed):
		return "rejected"
	default:
		return "error"
	}
}

var _ outbound.UnitOfWorkFactory = (*MeteredFactory)(nil)
