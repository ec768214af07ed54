package persistence_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DioGolang/GoShop/internal/application/port/outbound"
	"github.com/DioGolang/GoShop/internal/domain/entity"
	"github.com/DioGolang/GoShop/internal/infra/persistence"
	"github.com/DioGolang/GoShop/pkg/metrics"
)

type commitRecorder struct {
	metrics.Nop
	outcomes []string
}

func (c *commitRecorder) RecordCommit(outcome string) { c.outcomes = append(c.outcomes, outcome) }

func TestMeteredFactory_RecordsCommitOutcomes(t *testing.T) {
	ctx := context.Background()
	store, inner := newFactory(t)
	rec := &commitRecorder{}
	f := &persistence.MeteredFactory{Next: inner, Metrics: rec}

	uow := open(t, f)
	require.NoError(t, uow.Customers().Add(ctx, &entity.Customer{Name: "Ada"}))
	_, err := uow.Commit(ctx)
	require.NoError(t, err)

	require.NoError(t, uow.Customers().Add(ctx, &entity.Customer{Name: "Grace"}))
	store.FailNextCommit(errors.New("disk full"))
	_, err = uow.Commit(ctx)
	require.Error(t, err)
	_, err = uow.Commit(ctx)
	require.ErrorIs(t, err, outbound.ErrUnitOfWorkFailed)

	assert.Equal(t, []string{"ok", "error", "rejected"}, rec.outcomes)
}

func TestCommitOutcome(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{nil, "ok"},
		{fmt.Errorf("%w: %w", outbound.ErrPersistence, outbound.ErrConcurrentUpdate), "conflict"},
		{fmt.Errorf("%w: %w", outbound.ErrPersistence, outbound.ErrConstraintViolation), "constraint_violation"},
		{outbound.ErrUnitOfWorkClosed, "rejected"},
		{outbound.ErrPersistence, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, persistence.CommitOutcome(tt.err))
		})
	}
}
