// Package persistence holds the backend-independent part of the unit of
// work: staged change tracking, the per-session identity map, the commit
// sequence and the session state machine. Backends plug in through
// Backend and Table.
package persistence

import (
	"context"
	"fmt"

	"github.com/DioGolang/GoShop/internal/application/port/outbound"
)

// Backend is one store session able to open transactions.
type Backend[Tx any] interface {
	Begin(ctx context.Context) (Tx, error)
	Commit(tx Tx) error
	Rollback(tx Tx) error
	// Release gives the session back to the store.
	Release() error
}

type State int

const (
	StateOpen State = iota
	StateCommitted
	StateFailed
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateCommitted:
		return "committed"
	case StateFailed:
		return "failed"
	case StateDisposed:
		return "disposed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Op int

const (
	OpInsert Op = iota
	OpUpdate
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Result is what a table reports for one applied change. Finalize, when
// set, runs only once the whole transaction committed; it copies
// store-assigned values (ids, versions) onto the staged entity.
type Result struct {
	Affected int64
	Finalize func()
}

type key struct {
	table string
	id    int64
}

type change[Tx any] struct {
	table string
	op    Op
	ref   any
	apply func(ctx context.Context, tx Tx) (Result, error)
	after func()
}

// Tracker is the session shared by every repository of one unit of work.
// It is not safe for concurrent use.
type Tracker[Tx any] struct {
	backend  Backend[Tx]
	state    State
	pending  []*change[Tx]
	staged   map[any]*change[Tx]
	identity map[key]any
}

func NewTracker[Tx any](backend Backend[Tx]) *Tracker[Tx] {
	return &Tracker[Tx]{
		backend:  backend,
		state:    StateOpen,
		staged:   make(map[any]*change[Tx]),
		identity: make(map[key]any),
	}
}

func (t *Tracker[Tx]) State() State { return t.state }

// Pending returns the number of changes waiting for Commit.
func (t *Tracker[Tx]) Pending() int { return len(t.pending) }

func (t *Tracker[Tx]) usable() error {
	switch t.state {
	case StateFailed:
		return outbound.ErrUnitOfWorkFailed
	case StateDisposed:
		return outbound.ErrUnitOfWorkClosed
	}
	return nil
}

func (t *Tracker[Tx]) lookup(table string, id int64) (any, bool) {
	e, ok := t.identity[key{table, id}]
	return e, ok
}

func (t *Tracker[Tx]) track(table string, id int64, e any) {
	if id == 0 {
		return
	}
	t.identity[key{table, id}] = e
}

func (t *Tracker[Tx]) forget(table string, id int64) {
	delete(t.identity, key{table, id})
}

func (t *Tracker[Tx]) stagedDelete(table string, id int64) bool {
	c, ok := t.staged[key{table, id}]
	return ok && c.op == OpDelete
}

// stage records c. New entities are indexed by pointer, persisted ones by
// table and id, so touching the same row twice keeps a single change:
// repeated updates collapse, a delete supersedes an update, and deleting
// an entity that was only added cancels the insert.
func (t *Tracker[Tx]) stage(id int64, c *change[Tx]) error {
	if err := t.usable(); err != nil {
		return err
	}

	var idx any = c.ref
	if id != 0 {
		idx = key{c.table, id}
	}

	prev, ok := t.staged[idx]
	if !ok {
		t.staged[idx] = c
		t.pending = append(t.pending, c)
		return nil
	}

	switch {
	case prev.op == OpDelete && c.op != OpDelete:
		return fmt.Errorf("%w: %s %d is staged for deletion", outbound.ErrInvalidArgument, c.table, id)
	case prev.op == OpInsert && c.op == OpUpdate:
		// the insert writes the latest state anyway
		return nil
	case prev.op == OpInsert && c.op == OpDelete:
		t.drop(idx, prev)
		return nil
	default:
		*prev = *c
		return nil
	}
}

func (t *Tracker[Tx]) drop(idx any, c *change[Tx]) {
	delete(t.staged, idx)
	for i, p := range t.pending {
		if p == c {
			t.pending = append(t.pending[:i], t.pending[i+1:]...)
			return
		}
	}
}

// Commit applies every staged change inside one backend transaction.
// On failure the transaction is rolled back, the tracker moves to
// StateFailed and the staged changes are dropped.
func (t *Tracker[Tx]) Commit(ctx context.Context) (int64, error) {
	if err := t.usable(); err != nil {
		return 0, err
	}
	if len(t.pending) == 0 {
		t.state = StateCommitted
		return 0, nil
	}

	tx, err := t.backend.Begin(ctx)
	if err != nil {
		return 0, t.fail(fmt.Errorf("begin transaction: %w", err))
	}

	results := make([]Result, len(t.pending))
	var affected int64
	for i, c := range t.pending {
		res, err := c.apply(ctx, tx)
		if err != nil {
			if rbErr := t.backend.Rollback(tx); rbErr != nil {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
			return 0, t.fail(fmt.Errorf("%s %s: %w", c.op, c.table, err))
		}
		results[i] = res
		affected += res.Affected
	}

	if err := t.backend.Commit(tx); err != nil {
		return 0, t.fail(fmt.Errorf("commit transaction: %w", err))
	}

	for i, c := range t.pending {
		if results[i].Finalize != nil {
			results[i].Finalize()
		}
		if c.after != nil {
			c.after()
		}
	}
	t.pending = nil
	t.staged = make(map[any]*change[Tx])
	t.state = StateCommitted
	return affected, nil
}

func (t *Tracker[Tx]) fail(err error) error {
	t.state = StateFailed
	t.pending = nil
	t.staged = make(map[any]*change[Tx])
	// tracked instances may carry in-memory edits that never reached the store
	t.identity = make(map[key]any)
	return fmt.Errorf("%w: %w", outbound.ErrPersistence, err)
}

// Close releases the backend session. It is safe to call more than once.
func (t *Tracker[Tx]) Close() error {
	if t.state == StateDisposed {
		return nil
	}
	t.state = StateDisposed
	t.pending = nil
	t.staged = nil
	t.identity = nil
	return t.backend.Release()
}
