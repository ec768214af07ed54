package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/DioGolang/GoShop/internal/application/port/outbound"
	"github.com/DioGolang/GoShop/internal/domain/entity"
	"github.com/DioGolang/GoShop/internal/infra/persistence"
)

func sortedKeys[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func notFound(table string, id int64) error {
	return fmt.Errorf("%w: %s %d", outbound.ErrNotFound, table, id)
}

func stale(table string, id int64) error {
	return fmt.Errorf("%w: %s %d was changed or removed", outbound.ErrConcurrentUpdate, table, id)
}

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", outbound.ErrConstraintViolation, fmt.Sprintf(format, args...))
}

// categories

type categoryTable struct{ store *Store }

func (categoryTable) Name() string                 { return "categories" }
func (categoryTable) Key(e *entity.Category) int64 { return e.ID }

func (t categoryTable) Find(_ context.Context, id int64) (*entity.Category, error) {
	var (
		row entity.Category
		ok  bool
	)
	t.store.read(func(d *dataset) { row, ok = d.categories[id] })
	if !ok {
		return nil, notFound(t.Name(), id)
	}
	return &row, nil
}

func (t categoryTable) FindAll(_ context.Context) ([]*entity.Category, error) {
	var out []*entity.Category
	t.store.read(func(d *dataset) {
		for _, id := range sortedKeys(d.categories) {
			row := d.categories[id]
			out = append(out, &row)
		}
	})
	return out, nil
}

func (t categoryTable) Insert(_ context.Context, tx *dataset, e *entity.Category) (persistence.Result, error) {
	row := *e
	row.ID = tx.nextID(t.Name())
	tx.categories[row.ID] = row
	return persistence.Result{Affected: 1, Finalize: func() { e.ID = row.ID }}, nil
}

func (t categoryTable) Update(_ context.Context, tx *dataset, e *entity.Category) (persistence.Result, error) {
	if _, ok := tx.categories[e.ID]; !ok {
		return persistence.Result{}, stale(t.Name(), e.ID)
	}
	tx.categories[e.ID] = *e
	return persistence.Result{Affected: 1}, nil
}

func (t categoryTable) Delete(_ context.Context, tx *dataset, e *entity.Category) (persistence.Result, error) {
	if _, ok := tx.categories[e.ID]; !ok {
		return persistence.Result{}, stale(t.Name(), e.ID)
	}
	for _, p := range tx.products {
		if p.CategoryID == e.ID {
			return persistence.Result{}, violation("category %d is referenced by product %d", e.ID, p.ID)
		}
	}
	delete(tx.categories, e.ID)
	return persistence.Result{Affected: 1}, nil
}

// customers

type customerTable struct{ store *Store }

func (customerTable) Name() string                 { return "customers" }
func (customerTable) Key(e *entity.Customer) int64 { return e.ID }

func (t customerTable) Find(_ context.Context, id int64) (*entity.Customer, error) {
	var (
		row entity.Customer
		ok  bool
	)
	t.store.read(func(d *dataset) { row, ok = d.customers[id] })
	if !ok {
		return nil, notFound(t.Name(), id)
	}
	return &row, nil
}

func (t customerTable) FindAll(_ context.Context) ([]*entity.Customer, error) {
	var out []*entity.Customer
	t.store.read(func(d *dataset) {
		for _, id := range sortedKeys(d.customers) {
			row := d.customers[id]
			out = append(out, &row)
		}
	})
	return out, nil
}

func (t customerTable) Insert(_ context.Context, tx *dataset, e *entity.Customer) (persistence.Result, error) {
	row := *e
	row.ID = tx.nextID(t.Name())
	tx.customers[row.ID] = row
	return persistence.Result{Affected: 1, Finalize: func() { e.ID = row.ID }}, nil
}

func (t customerTable) Update(_ context.Context, tx *dataset, e *entity.Customer) (persistence.Result, error) {
	if _, ok := tx.customers[e.ID]; !ok {
		return persistence.Result{}, stale(t.Name(), e.ID)
	}
	tx.customers[e.ID] = *e
	return persistence.Result{Affected: 1}, nil
}

func (t customerTable) Delete(_ context.Context, tx *dataset, e *entity.Customer) (persistence.Result, error) {
	if _, ok := tx.customers[e.ID]; !ok {
		return persistence.Result{}, stale(t.Name(), e.ID)
	}
	for _, o := range tx.orders {
		if o.CustomerID == e.ID {
			return persistence.Result{}, violation("customer %d is referenced by order %d", e.ID, o.ID)
		}
	}
	delete(tx.customers, e.ID)
	return persistence.Result{Affected: 1}, nil
}

// products

type productTable struct{ store *Store }

func (productTable) Name() string                { return "products" }
func (productTable) Key(e *entity.Product) int64 { return e.ID }

func (t productTable) Find(_ context.Context, id int64) (*entity.Product, error) {
	var (
		row entity.Product
		ok  bool
	)
	t.store.read(func(d *dataset) { row, ok = d.products[id] })
	if !ok {
		return nil, notFound(t.Name(), id)
	}
	return &row, nil
}

func (t productTable) FindAll(_ context.Context) ([]*entity.Product, error) {
	var out []*entity.Product
	t.store.read(func(d *dataset) {
		for _, id := range sortedKeys(d.products) {
			row := d.products[id]
			out = append(out, &row)
		}
	})
	return out, nil
}

func (t productTable) check(tx *dataset, p entity.Product) error {
	if p.Stock < 0 {
		return violation("product %d stock %d is negative", p.ID, p.Stock)
	}
	if p.CategoryID != 0 {
		if _, ok := tx.categories[p.CategoryID]; !ok {
			return violation("product references missing category %d", p.CategoryID)
		}
	}
	return nil
}

func (t productTable) Insert(_ context.Context, tx *dataset, e *entity.Product) (persistence.Result, error) {
	row := *e
	if err := t.check(tx, row); err != nil {
		return persistence.Result{}, err
	}
	row.ID = tx.nextID(t.Name())
	row.Version = 1
	tx.products[row.ID] = row
	return persistence.Result{Affected: 1, Finalize: func() {
		e.ID = row.ID
		e.Version = row.Version
	}}, nil
}

// Update only applies when the stored version still equals the version
// the entity was read with.
func (t productTable) Update(_ context.Context, tx *dataset, e *entity.Product) (persistence.Result, error) {
	current, ok := tx.products[e.ID]
	if !ok || current.Version != e.Version {
		return persistence.Result{}, stale(t.Name(), e.ID)
	}
	row := *e
	if err := t.check(tx, row); err != nil {
		return persistence.Result{}, err
	}
	row.Version++
	tx.products[e.ID] = row
	return persistence.Result{Affected: 1, Finalize: func() { e.Version = row.Version }}, nil
}

func (t productTable) Delete(_ context.Context, tx *dataset, e *entity.Product) (persistence.Result, error) {
	if _, ok := tx.products[e.ID]; !ok {
		return persistence.Result{}, stale(t.Name(), e.ID)
	}
	for _, item := range tx.items {
		if item.ProductID == e.ID {
			return persistence.Result{}, violation("product %d is referenced by order item %d", e.ID, item.ID)
		}
	}
	delete(tx.products, e.ID)
	return persistence.Result{Affected: 1}, nil
}

// orders, with their items as owned children

type orderTable struct{ store *Store }

func (orderTable) Name() string              { return "orders" }
func (orderTable) Key(e *entity.Order) int64 { return e.ID }

func assemble(d *dataset, row orderRow) *entity.Order {
	o := &entity.Order{
		ID:           row.ID,
		OrderDate:    row.OrderDate,
		CustomerID:   row.CustomerID,
		CustomerName: row.CustomerName,
		Items:        make([]entity.OrderItem, 0),
	}
	for _, id := range sortedKeys(d.items) {
		if item := d.items[id]; item.OrderID == row.ID {
			o.Items = append(o.Items, item)
		}
	}
	return o
}

func (t orderTable) Find(_ context.Context, id int64) (*entity.Order, error) {
	var out *entity.Order
	t.store.read(func(d *dataset) {
		if row, ok := d.orders[id]; ok {
			out = assemble(d, row)
		}
	})
	if out == nil {
		return nil, notFound(t.Name(), id)
	}
	return out, nil
}

func (t orderTable) FindAll(_ context.Context) ([]*entity.Order, error) {
	var out []*entity.Order
	t.store.read(func(d *dataset) {
		for _, id := range sortedKeys(d.orders) {
			out = append(out, assemble(d, d.orders[id]))
		}
	})
	return out, nil
}

func (t orderTable) Insert(_ context.Context, tx *dataset, e *entity.Order) (persistence.Result, error) {
	if _, ok := tx.customers[e.CustomerID]; !ok {
		return persistence.Result{}, violation("order references missing customer %d", e.CustomerID)
	}
	row := orderRow{
		ID:           tx.nextID(t.Name()),
		OrderDate:    e.OrderDate,
		CustomerID:   e.CustomerID,
		CustomerName: e.CustomerName,
	}
	tx.orders[row.ID] = row

	itemIDs := make([]int64, len(e.Items))
	for i, item := range e.Items {
		item.OrderID = row.ID
		id, err := insertItem(tx, item)
		if err != nil {
			return persistence.Result{}, err
		}
		itemIDs[i] = id
	}

	return persistence.Result{
		Affected: int64(1 + len(itemIDs)),
		Finalize: func() {
			e.ID = row.ID
			for i := range e.Items {
				e.Items[i].ID = itemIDs[i]
				e.Items[i].OrderID = row.ID
			}
		},
	}, nil
}

func (t orderTable) Update(_ context.Context, tx *dataset, e *entity.Order) (persistence.Result, error) {
	current, ok := tx.orders[e.ID]
	if !ok {
		return persistence.Result{}, stale(t.Name(), e.ID)
	}
	if _, ok := tx.customers[e.CustomerID]; !ok {
		return persistence.Result{}, violation("order references missing customer %d", e.CustomerID)
	}
	current.OrderDate = e.OrderDate
	current.CustomerID = e.CustomerID
	current.CustomerName = e.CustomerName
	tx.orders[e.ID] = current
	return persistence.Result{Affected: 1}, nil
}

func (t orderTable) Delete(_ context.Context, tx *dataset, e *entity.Order) (persistence.Result, error) {
	if _, ok := tx.orders[e.ID]; !ok {
		return persistence.Result{}, stale(t.Name(), e.ID)
	}
	affected := int64(1)
	for id, item := range tx.items {
		if item.OrderID == e.ID {
			delete(tx.items, id)
			affected++
		}
	}
	delete(tx.orders, e.ID)
	return persistence.Result{Affected: affected}, nil
}

// order items

func insertItem(tx *dataset, item entity.OrderItem) (int64, error) {
	if _, ok := tx.orders[item.OrderID]; !ok {
		return 0, violation("order item references missing order %d", item.OrderID)
	}
	if _, ok := tx.products[item.ProductID]; !ok {
		return 0, violation("order item references missing product %d", item.ProductID)
	}
	if item.Quantity <= 0 {
		return 0, violation("order item quantity %d must be positive", item.Quantity)
	}
	item.ID = tx.nextID("order_items")
	tx.items[item.ID] = item
	return item.ID, nil
}

type orderItemTable struct{ store *Store }

func (orderItemTable) Name() string                  { return "order_items" }
func (orderItemTable) Key(e *entity.OrderItem) int64 { return e.ID }

func (t orderItemTable) Find(_ context.Context, id int64) (*entity.OrderItem, error) {
	var (
		row entity.OrderItem
		ok  bool
	)
	t.store.read(func(d *dataset) { row, ok = d.items[id] })
	if !ok {
		return nil, notFound(t.Name(), id)
	}
	return &row, nil
}

func (t orderItemTable) FindAll(_ context.Context) ([]*entity.OrderItem, error) {
	var out []*entity.OrderItem
	t.store.read(func(d *dataset) {
		for _, id := range sortedKeys(d.items) {
			row := d.items[id]
			out = append(out, &row)
		}
	})
	return out, nil
}

func (t orderItemTable) Insert(_ context.Context, tx *dataset, e *entity.OrderItem) (persistence.Result, error) {
	id, err := insertItem(tx, *e)
	if err != nil {
		return persistence.Result{}, err
	}
	return persistence.Result{Affected: 1, Finalize: func() { e.ID = id }}, nil
}

func (t orderItemTable) Update(_ context.Context, tx *dataset, e *entity.OrderItem) (persistence.Result, error) {
	if _, ok := tx.items[e.ID]; !ok {
		return persistence.Result{}, stale(t.Name(), e.ID)
	}
	if _, ok := tx.products[e.ProductID]; !ok {
		return persistence.Result{}, violation("order item references missing product %d", e.ProductID)
	}
	tx.items[e.ID] = *e
	return persistence.Result{Affected: 1}, nil
}

func (t orderItemTable) Delete(_ context.Context, tx *dataset, e *entity.OrderItem) (persistence.Result, error) {
	if _, ok := tx.items[e.ID]; !ok {
		return persistence.Result{}, stale(t.Name(), e.ID)
	}
	delete(tx.items, e.ID)
	return persistence.Result{Affected: 1}, nil
}
