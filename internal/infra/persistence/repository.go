package persistence

import (
	"context"
	"fmt"

	"github.com/DioGolang/GoShop/internal/application/port/outbound"
)

// Table is the backend-specific half of a repository: how rows of T are
// read through the session and written inside a transaction.
// Find must return outbound.ErrNotFound when no row matches.
type Table[T any, Tx any] interface {
	Name() string
	Key(e *T) int64
	Find(ctx context.Context, id int64) (*T, error)
	FindAll(ctx context.Context) ([]*T, error)
	Insert(ctx context.Context, tx Tx, e *T) (Result, error)
	Update(ctx context.Context, tx Tx, e *T) (Result, error)
	Delete(ctx context.Context, tx Tx, e *T) (Result, error)
}

// Repository implements outbound.Repository for any entity type on top of
// a Table, staging writes in the shared Tracker.
type Repository[T any, Tx any] struct {
	tracker *Tracker[Tx]
	table   Table[T, Tx]
}

func NewRepository[T any, Tx any](tracker *Tracker[Tx], table Table[T, Tx]) *Repository[T, Tx] {
	return &Repository[T, Tx]{tracker: tracker, table: table}
}

func (r *Repository[T, Tx]) GetAll(ctx context.Context) ([]*T, error) {
	if err := r.tracker.usable(); err != nil {
		return nil, err
	}
	rows, err := r.table.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", outbound.ErrPersistence, r.table.Name(), err)
	}
	out := make([]*T, 0, len(rows))
	for _, row := range rows {
		id := r.table.Key(row)
		if r.tracker.stagedDelete(r.table.Name(), id) {
			continue
		}
		if tracked, ok := r.tracker.lookup(r.table.Name(), id); ok {
			out = append(out, tracked.(*T))
			continue
		}
		r.tracker.track(r.table.Name(), id, row)
		out = append(out, row)
	}
	return out, nil
}

// GetByID serves already loaded rows from the session identity map, so
// repeated lookups inside one unit of work return the same instance.
func (r *Repository[T, Tx]) GetByID(ctx context.Context, id int64) (*T, error) {
	if err := r.tracker.usable(); err != nil {
		return nil, err
	}
	if r.tracker.stagedDelete(r.table.Name(), id) {
		return nil, outbound.ErrNotFound
	}
	if tracked, ok := r.tracker.lookup(r.table.Name(), id); ok {
		return tracked.(*T), nil
	}
	e, err := r.table.Find(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, outbound.ErrNotFound
		}
		return nil, fmt.Errorf("%w: get %s %d: %w", outbound.ErrPersistence, r.table.Name(), id, err)
	}
	r.tracker.track(r.table.Name(), id, e)
	return e, nil
}

func (r *Repository[T, Tx]) Add(_ context.Context, e *T) error {
	if e == nil {
		return fmt.Errorf("%w: %s is nil", outbound.ErrInvalidArgument, r.table.Name())
	}
	return r.tracker.stage(0, &change[Tx]{
		table: r.table.Name(),
		op:    OpInsert,
		ref:   e,
		apply: func(ctx context.Context, tx Tx) (Result, error) {
			return r.table.Insert(ctx, tx, e)
		},
		after: func() {
			r.tracker.track(r.table.Name(), r.table.Key(e), e)
		},
	})
}

func (r *Repository[T, Tx]) Update(_ context.Context, e *T) error {
	if e == nil {
		return fmt.Errorf("%w: %s is nil", outbound.ErrInvalidArgument, r.table.Name())
	}
	id := r.table.Key(e)
	return r.tracker.stage(id, &change[Tx]{
		table: r.table.Name(),
		op:    OpUpdate,
		ref:   e,
		apply: func(ctx context.Context, tx Tx) (Result, error) {
			return r.table.Update(ctx, tx, e)
		},
		after: func() {
			r.tracker.track(r.table.Name(), id, e)
		},
	})
}

func (r *Repository[T, Tx]) Delete(_ context.Context, e *T) error {
	if e == nil {
		return fmt.Errorf("%w: %s is nil", outbound.ErrInvalidArgument, r.table.Name())
	}
	id := r.table.Key(e)
	return r.tracker.stage(id, &change[Tx]{
		table: r.table.Name(),
		op:    OpDelete,
		ref:   e,
		apply: func(ctx context.Context, tx Tx) (Result, error) {
			return r.table.Delete(ctx, tx, e)
		},
		after: func() {
			r.tracker.forget(r.table.Name(), id)
		},
	})
}

var _ outbound.Repository[struct{}] = (*Repository[struct{}, any])(nil)
