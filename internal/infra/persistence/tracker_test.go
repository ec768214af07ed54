package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DioGolang/GoShop/internal/application/port/outbound"
)

type fakeTx struct{ id int }

type fakeBackend struct {
	beginErr  error
	commitErr error
	begins    int
	commits   int
	rollbacks int
	releases  int
}

func (b *fakeBackend) Begin(context.Context) (*fakeTx, error) {
	b.begins++
	if b.beginErr != nil {
		return nil, b.beginErr
	}
	return &fakeTx{id: b.begins}, nil
}

func (b *fakeBackend) Commit(*fakeTx) error {
	b.commits++
	return b.commitErr
}

func (b *fakeBackend) Rollback(*fakeTx) error {
	b.rollbacks++
	return nil
}

func (b *fakeBackend) Release() error {
	b.releases++
	return nil
}

type note struct {
	ID   int64
	Text string
}

type noteTable struct {
	rows      map[int64]note
	seq       int64
	failWrite error
	applied   []string
}

func newNoteTable() *noteTable {
	return &noteTable{rows: make(map[int64]note)}
}

func (t *noteTable) Name() string      { return "notes" }
func (t *noteTable) Key(e *note) int64 { return e.ID }

func (t *noteTable) Find(_ context.Context, id int64) (*note, error) {
	row, ok := t.rows[id]
	if !ok {
		return nil, outbound.ErrNotFound
	}
	return &row, nil
}

func (t *noteTable) FindAll(context.Context) ([]*note, error) {
	out := make([]*note, 0, len(t.rows))
	for id := int64(1); id <= t.seq; id++ {
		if row, ok := t.rows[id]; ok {
			out = append(out, &row)
		}
	}
	return out, nil
}

func (t *noteTable) Insert(_ context.Context, _ *fakeTx, e *note) (Result, error) {
	if t.failWrite != nil {
		return Result{}, t.failWrite
	}
	t.seq++
	id := t.seq
	t.applied = append(t.applied, "insert")
	return Result{Affected: 1, Finalize: func() {
		e.ID = id
		t.rows[id] = *e
	}}, nil
}

func (t *noteTable) Update(_ context.Context, _ *fakeTx, e *note) (Result, error) {
	if t.failWrite != nil {
		return Result{}, t.failWrite
	}
	t.applied = append(t.applied, "update")
	return Result{Affected: 1, Finalize: func() { t.rows[e.ID] = *e }}, nil
}

func (t *noteTable) Delete(_ context.Context, _ *fakeTx, e *note) (Result, error) {
	t.applied = append(t.applied, "delete")
	return Result{Affected: 1, Finalize: func() { delete(t.rows, e.ID) }}, nil
}

func newNotes() (*fakeBackend, *noteTable, *Tracker[*fakeTx], *Repository[note, *fakeTx]) {
	backend := &fakeBackend{}
	table := newNoteTable()
	tracker := NewTracker[*fakeTx](backend)
	return backend, table, tracker, NewRepository[note, *fakeTx](tracker, table)
}

func TestTracker_CommitWithoutChangesSkipsBackend(t *testing.T) {
	backend, _, tracker, _ := newNotes()

	n, err := tracker.Commit(context.Background())

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, backend.begins)
	assert.Equal(t, StateCommitted, tracker.State())
}

func TestTracker_CommitAppliesInStagingOrder(t *testing.T) {
	ctx := context.Background()
	backend, table, tracker, repo := newNotes()
	table.rows[5] = note{ID: 5, Text: "old"}
	table.seq = 5

	existing, err := repo.GetByID(ctx, 5)
	require.NoError(t, err)
	existing.Text = "new"

	require.NoError(t, repo.Add(ctx, &note{Text: "a"}))
	require.NoError(t, repo.Update(ctx, existing))
	require.NoError(t, repo.Add(ctx, &note{Text: "b"}))

	n, err := tracker.Commit(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, []string{"insert", "update", "insert"}, table.applied)
	assert.Equal(t, 1, backend.commits)
	assert.Zero(t, backend.rollbacks)
	assert.Zero(t, tracker.Pending())
}

func TestTracker_InsertIdentityIsTrackedAfterCommit(t *testing.T) {
	ctx := context.Background()
	_, _, tracker, repo := newNotes()
	n := &note{Text: "a"}
	require.NoError(t, repo.Add(ctx, n))

	_, err := tracker.Commit(ctx)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Same(t, n, got)
}

func TestTracker_RepeatedUpdatesCollapse(t *testing.T) {
	ctx := context.Background()
	_, table, tracker, repo := newNotes()
	table.rows[1] = note{ID: 1}
	table.seq = 1

	e, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, e))
	require.NoError(t, repo.Update(ctx, e))

	assert.Equal(t, 1, tracker.Pending())
}

func TestTracker_DeleteCancelsPendingInsert(t *testing.T) {
	ctx := context.Background()
	backend, _, tracker, repo := newNotes()
	n := &note{Text: "draft"}

	require.NoError(t, repo.Add(ctx, n))
	require.NoError(t, repo.Delete(ctx, n))

	assert.Zero(t, tracker.Pending())
	_, err := tracker.Commit(ctx)
	require.NoError(t, err)
	assert.Zero(t, backend.begins)
}

func TestTracker_UpdateAfterDeleteIsRejected(t *testing.T) {
	ctx := context.Background()
	_, table, _, repo := newNotes()
	table.rows[1] = note{ID: 1}
	table.seq = 1

	e, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, e))

	assert.ErrorIs(t, repo.Update(ctx, e), outbound.ErrInvalidArgument)
	_, err = repo.GetByID(ctx, 1)
	assert.ErrorIs(t, err, outbound.ErrNotFound)
}

func TestTracker_NilEntitiesAreInvalid(t *testing.T) {
	ctx := context.Background()
	_, _, tracker, repo := newNotes()

	assert.ErrorIs(t, repo.Add(ctx, nil), outbound.ErrInvalidArgument)
	assert.ErrorIs(t, repo.Update(ctx, nil), outbound.ErrInvalidArgument)
	assert.ErrorIs(t, repo.Delete(ctx, nil), outbound.ErrInvalidArgument)
	assert.Zero(t, tracker.Pending())
}

func TestTracker_FailedApplyRollsBack(t *testing.T) {
	ctx := context.Background()
	backend, table, tracker, repo := newNotes()
	table.failWrite = errors.New("disk full")

	n := &note{Text: "a"}
	require.NoError(t, repo.Add(ctx, n))

	_, err := tracker.Commit(ctx)

	assert.ErrorIs(t, err, outbound.ErrPersistence)
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 1, backend.rollbacks)
	assert.Zero(t, backend.commits)
	assert.Zero(t, n.ID)
	assert.Equal(t, StateFailed, tracker.State())
}

func TestTracker_FailedCommitKeepsEntitiesUntouched(t *testing.T) {
	ctx := context.Background()
	backend, table, tracker, repo := newNotes()
	backend.commitErr = errors.New("connection reset")

	n := &note{Text: "a"}
	require.NoError(t, repo.Add(ctx, n))

	_, err := tracker.Commit(ctx)

	assert.ErrorIs(t, err, outbound.ErrPersistence)
	assert.Zero(t, n.ID)
	assert.Empty(t, table.rows)
}

func TestTracker_BeginFailure(t *testing.T) {
	ctx := context.Background()
	backend, _, tracker, repo := newNotes()
	backend.beginErr = errors.New("no connection")
	require.NoError(t, repo.Add(ctx, &note{}))

	_, err := tracker.Commit(ctx)

	assert.ErrorIs(t, err, outbound.ErrPersistence)
	assert.Zero(t, backend.rollbacks)
}

func TestTracker_FailedStateRejectsEverything(t *testing.T) {
	ctx := context.Background()
	backend, _, tracker, repo := newNotes()
	backend.commitErr = errors.New("boom")
	require.NoError(t, repo.Add(ctx, &note{}))
	_, err := tracker.Commit(ctx)
	require.Error(t, err)

	_, err = tracker.Commit(ctx)
	assert.ErrorIs(t, err, outbound.ErrUnitOfWorkFailed)
	assert.ErrorIs(t, repo.Add(ctx, &note{}), outbound.ErrUnitOfWorkFailed)
	_, err = repo.GetAll(ctx)
	assert.ErrorIs(t, err, outbound.ErrUnitOfWorkFailed)
	_, err = repo.GetByID(ctx, 1)
	assert.ErrorIs(t, err, outbound.ErrUnitOfWorkFailed)
	assert.Equal(t, 1, backend.begins)
}

func TestTracker_CloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	backend, _, tracker, repo := newNotes()

	require.NoError(t, tracker.Close())
	require.NoError(t, tracker.Close())

	assert.Equal(t, 1, backend.releases)
	assert.Equal(t, StateDisposed, tracker.State())
	assert.ErrorIs(t, repo.Add(ctx, &note{}), outbound.ErrUnitOfWorkClosed)
	_, err := tracker.Commit(ctx)
	assert.ErrorIs(t, err, outbound.ErrUnitOfWorkClosed)
}

func TestTracker_CloseAfterFailureReleases(t *testing.T) {
	ctx := context.Background()
	backend, _, tracker, repo := newNotes()
	backend.commitErr = errors.New("boom")
	require.NoError(t, repo.Add(ctx, &note{}))
	_, _ = tracker.Commit(ctx)

	require.NoError(t, tracker.Close())

	assert.Equal(t, 1, backend.releases)
}

func TestTracker_GetAllReturnsTrackedInstances(t *testing.T) {
	ctx := context.Background()
	_, table, _, repo := newNotes()
	table.rows[1] = note{ID: 1, Text: "one"}
	table.rows[2] = note{ID: 2, Text: "two"}
	table.seq = 2

	first, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	first.Text = "edited"

	all, err := repo.GetAll(ctx)

	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Same(t, first, all[0])
	assert.Equal(t, "two", all[1].Text)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "committed", StateCommitted.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "disposed", StateDisposed.String())
	assert.Equal(t, "update", OpUpdate.String())
}
