package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/DioGolang/GoShop/internal/domain/entity"
	"github.com/DioGolang/GoShop/internal/infra/persistence"
)

const (
	orderColumns = `id, order_date, customer_id, customer_name`
	itemColumns  = `id, order_id, product_id, quantity`
)

// orderTable persists an order together with its items.
type orderTable struct{ conn querier }

func (orderTable) Name() string              { return "orders" }
func (orderTable) Key(e *entity.Order) int64 { return e.ID }

func scanOrder(s scanner) (*entity.Order, error) {
	o := &entity.Order{Items: make([]entity.OrderItem, 0)}
	if err := s.Scan(&o.ID, &o.OrderDate, &o.CustomerID, &o.CustomerName); err != nil {
		return nil, err
	}
	return o, nil
}

func (t orderTable) items(ctx context.Context, query string, args ...any) (map[int64][]entity.OrderItem, error) {
	rows, err := t.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select order_items: %w", err)
	}
	defer rows.Close()

	byOrder := make(map[int64][]entity.OrderItem)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order_items: %w", err)
		}
		byOrder[item.OrderID] = append(byOrder[item.OrderID], *item)
	}
	return byOrder, rows.Err()
}

func (t orderTable) Find(ctx context.Context, id int64) (*entity.Order, error) {
	o, err := queryOne(ctx, t.conn, t.Name(), id, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, scanOrder)
	if err != nil {
		return nil, err
	}
	items, err := t.items(ctx, `SELECT `+itemColumns+` FROM order_items WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	o.Items = append(o.Items, items[id]...)
	return o, nil
}

func (t orderTable) FindAll(ctx context.Context) ([]*entity.Order, error) {
	orders, err := queryAll(ctx, t.conn, t.Name(), `SELECT `+orderColumns+` FROM orders ORDER BY id`, scanOrder)
	if err != nil || len(orders) == 0 {
		return orders, err
	}
	items, err := t.items(ctx, `SELECT `+itemColumns+` FROM order_items ORDER BY id`)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		o.Items = append(o.Items, items[o.ID]...)
	}
	return orders, nil
}

func (t orderTable) Insert(ctx context.Context, tx *sql.Tx, e *entity.Order) (persistence.Result, error) {
	var orderID int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO orders (order_date, customer_id, customer_name) VALUES ($1, $2, $3) RETURNING id`,
		e.OrderDate, e.CustomerID, e.CustomerName,
	).Scan(&orderID)
	if err != nil {
		return persistence.Result{}, translate(err)
	}

	itemIDs := make([]int64, len(e.Items))
	for i, item := range e.Items {
		item.OrderID = orderID
		if itemIDs[i], err = insertItem(ctx, tx, item); err != nil {
			return persistence.Result{}, err
		}
	}

	return persistence.Result{
		Affected: int64(1 + len(itemIDs)),
		Finalize: func() {
			e.ID = orderID
			for i := range e.Items {
				e.Items[i].ID = itemIDs[i]
				e.Items[i].OrderID = orderID
			}
		},
	}, nil
}

func (t orderTable) Update(ctx context.Context, tx *sql.Tx, e *entity.Order) (persistence.Result, error) {
	return exec(ctx, tx, t.Name(), e.ID,
		`UPDATE orders SET order_date = $2, customer_id = $3, customer_name = $4 WHERE id = $1`,
		e.ID, e.OrderDate, e.CustomerID, e.CustomerName)
}

// Delete removes the items explicitly so that they are part of the
// affected row count.
func (t orderTable) Delete(ctx context.Context, tx *sql.Tx, e *entity.Order) (persistence.Result, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, e.ID)
	if err != nil {
		return persistence.Result{}, translate(err)
	}
	items, err := res.RowsAffected()
	if err != nil {
		return persistence.Result{}, err
	}
	out, err := exec(ctx, tx, t.Name(), e.ID, `DELETE FROM orders WHERE id = $1`, e.ID)
	if err != nil {
		return persistence.Result{}, err
	}
	out.Affected += items
	return out, nil
}

// order items

func scanItem(s scanner) (*entity.OrderItem, error) {
	var i entity.OrderItem
	if err := s.Scan(&i.ID, &i.OrderID, &i.ProductID, &i.Quantity); err != nil {
		return nil, err
	}
	return &i, nil
}

func insertItem(ctx context.Context, tx *sql.Tx, item entity.OrderItem) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO order_items (order_id, product_id, quantity) VALUES ($1, $2, $3) RETURNING id`,
		item.OrderID, item.ProductID, item.Quantity,
	).Scan(&id)
	if err != nil {
		return 0, translate(err)
	}
	return id, nil
}

type orderItemTable struct{ conn querier }

func (orderItemTable) Name() string                  { return "order_items" }
func (orderItemTable) Key(e *entity.OrderItem) int64 { return e.ID }

func (t orderItemTable) Find(ctx context.Context, id int64) (*entity.OrderItem, error) {
	return queryOne(ctx, t.conn, t.Name(), id, `SELECT `+itemColumns+` FROM order_items WHERE id = $1`, scanItem)
}

func (t orderItemTable) FindAll(ctx context.Context) ([]*entity.OrderItem, error) {
	return queryAll(ctx, t.conn, t.Name(), `SELECT `+itemColumns+` FROM order_items ORDER BY id`, scanItem)
}

func (t orderItemTable) Insert(ctx context.Context, tx *sql.Tx, e *entity.OrderItem) (persistence.Result, error) {
	id, err := insertItem(ctx, tx, *e)
	if err != nil {
		return persistence.Result{}, err
	}
	return persistence.Result{Affected: 1, Finalize: func() { e.ID = id }}, nil
}

func (t orderItemTable) Update(ctx context.Context, tx *sql.Tx, e *entity.OrderItem) (persistence.Result, error) {
	return exec(ctx, tx, t.Name(), e.ID,
		`UPDATE order_items SET product_id = $2, quantity = $3 WHERE id = $1`,
		e.ID, e.ProductID, e.Quantity)
}

func (t orderItemTable) Delete(ctx context.Context, tx *sql.Tx, e *entity.OrderItem) (persistence.Result, error) {
	return exec(ctx, tx, t.Name(), e.ID, `DELETE FROM order_items WHERE id = $1`, e.ID)
}
