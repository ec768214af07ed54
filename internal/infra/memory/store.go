// Package memory is an in-process store with the same transactional and
// constraint behaviour as the PostgreSQL backend. It backs local
// development and the workflow tests.
package memory

import (
	"maps"
	"sync"
	"time"

	"github.com/DioGolang/GoShop/internal/domain/entity"
)

type orderRow struct {
	ID           int64
	OrderDate    time.Time
	CustomerID   int64
	CustomerName string
}

type dataset struct {
	seq        map[string]int64
	categories map[int64]entity.Category
	customers  map[int64]entity.Customer
	products   map[int64]entity.Product
	orders     map[int64]orderRow
	items      map[int64]entity.OrderItem
}

func newDataset() *dataset {
	return &dataset{
		seq:        make(map[string]int64),
		categories: make(map[int64]entity.Category),
		customers:  make(map[int64]entity.Customer),
		products:   make(map[int64]entity.Product),
		orders:     make(map[int64]orderRow),
		items:      make(map[int64]entity.OrderItem),
	}
}

func (d *dataset) clone() *dataset {
	return &dataset{
		seq:        maps.Clone(d.seq),
		categories: maps.Clone(d.categories),
		customers:  maps.Clone(d.customers),
		products:   maps.Clone(d.products),
		orders:     maps.Clone(d.orders),
		items:      maps.Clone(d.items),
	}
}

func (d *dataset) nextID(table string) int64 {
	d.seq[table]++
	return d.seq[table]
}

// Store keeps committed data. Writers are serialised: a transaction works
// on a private copy taken at Begin and swaps it in on Commit, so readers
// never observe uncommitted changes.
type Store struct {
	txMu sync.Mutex

	mu       sync.RWMutex
	data     *dataset
	failNext error
}

func NewStore() *Store {
	return &Store{data: newDataset()}
}

// FailNextCommit makes the next transaction fail at commit time with err.
func (s *Store) FailNextCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *Store) read(fn func(d *dataset)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.data)
}

func (s *Store) begin() *dataset {
	s.txMu.Lock()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.clone()
}

func (s *Store) commit(tx *dataset) error {
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failNext; err != nil {
		s.failNext = nil
		return err
	}
	s.data = tx
	return nil
}

func (s *Store) rollback() {
	s.txMu.Unlock()
}
