package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DioGolang/GoShop/internal/domain/entity"
	"github.com/DioGolang/GoShop/internal/infra/persistence"
)

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func queryOne[T any](ctx context.Context, q querier, table string, id int64, query string, scan func(scanner) (*T, error)) (*T, error) {
	e, err := scan(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(table, id)
	}
	if err != nil {
		return nil, fmt.Errorf("select %s %d: %w", table, id, err)
	}
	return e, nil
}

func queryAll[T any](ctx context.Context, q querier, table, query string, scan func(scanner) (*T, error)) ([]*T, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func exec(ctx context.Context, tx *sql.Tx, table string, id int64, query string, args ...any) (persistence.Result, error) {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return persistence.Result{}, translate(err)
	}
	n, err := affected(res, table, id)
	if err != nil {
		return persistence.Result{}, err
	}
	return persistence.Result{Affected: n}, nil
}

// categories

type categoryTable struct{ conn querier }

func (categoryTable) Name() string                 { return "categories" }
func (categoryTable) Key(e *entity.Category) int64 { return e.ID }

func scanCategory(s scanner) (*entity.Category, error) {
	var c entity.Category
	if err := s.Scan(&c.ID, &c.Name); err != nil {
		return nil, err
	}
	return &c, nil
}

func (t categoryTable) Find(ctx context.Context, id int64) (*entity.Category, error) {
	return queryOne(ctx, t.conn, t.Name(), id, `SELECT id, name FROM categories WHERE id = $1`, scanCategory)
}

func (t categoryTable) FindAll(ctx context.Context) ([]*entity.Category, error) {
	return queryAll(ctx, t.conn, t.Name(), `SELECT id, name FROM categories ORDER BY id`, scanCategory)
}

func (t categoryTable) Insert(ctx context.Context, tx *sql.Tx, e *entity.Category) (persistence.Result, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `INSERT INTO categories (name) VALUES ($1) RETURNING id`, e.Name).Scan(&id)
	if err != nil {
		return persistence.Result{}, translate(err)
	}
	return persistence.Result{Affected: 1, Finalize: func() { e.ID = id }}, nil
}

func (t categoryTable) Update(ctx context.Context, tx *sql.Tx, e *entity.Category) (persistence.Result, error) {
	return exec(ctx, tx, t.Name(), e.ID, `UPDATE categories SET name = $2 WHERE id = $1`, e.ID, e.Name)
}

func (t categoryTable) Delete(ctx context.Context, tx *sql.Tx, e *entity.Category) (persistence.Result, error) {
	return exec(ctx, tx, t.Name(), e.ID, `DELETE FROM categories WHERE id = $1`, e.ID)
}

// customers

type customerTable struct{ conn querier }

func (customerTable) Name() string                 { return "customers" }
func (customerTable) Key(e *entity.Customer) int64 { return e.ID }

func scanCustomer(s scanner) (*entity.Customer, error) {
	var c entity.Customer
	if err := s.Scan(&c.ID, &c.Name); err != nil {
		return nil, err
	}
	return &c, nil
}

func (t customerTable) Find(ctx context.Context, id int64) (*entity.Customer, error) {
	return queryOne(ctx, t.conn, t.Name(), id, `SELECT id, name FROM customers WHERE id = $1`, scanCustomer)
}

func (t customerTable) FindAll(ctx context.Context) ([]*entity.Customer, error) {
	return queryAll(ctx, t.conn, t.Name(), `SELECT id, name FROM customers ORDER BY id`, scanCustomer)
}

func (t customerTable) Insert(ctx context.Context, tx *sql.Tx, e *entity.Customer) (persistence.Result, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `INSERT INTO customers (name) VALUES ($1) RETURNING id`, e.Name).Scan(&id)
	if err != nil {
		return persistence.Result{}, translate(err)
	}
	return persistence.Result{Affected: 1, Finalize: func() { e.ID = id }}, nil
}

func (t customerTable) Update(ctx context.Context, tx *sql.Tx, e *entity.Customer) (persistence.Result, error) {
	return exec(ctx, tx, t.Name(), e.ID, `UPDATE customers SET name = $2 WHERE id = $1`, e.ID, e.Name)
}

func (t customerTable) Delete(ctx context.Context, tx *sql.Tx, e *entity.Customer) (persistence.Result, error) {
	return exec(ctx, tx, t.Name(), e.ID, `DELETE FROM customers WHERE id = $1`, e.ID)
}

// products

const productColumns = `id, name, price, stock, category_id, version`

type productTable struct{ conn querier }

func (productTable) Name() string                { return "products" }
func (productTable) Key(e *entity.Product) int64 { return e.ID }

func scanProduct(s scanner) (*entity.Product, error) {
	var (
		p          entity.Product
		categoryID sql.NullInt64
	)
	if err := s.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &categoryID, &p.Version); err != nil {
		return nil, err
	}
	p.CategoryID = categoryID.Int64
	return &p, nil
}

func (t productTable) Find(ctx context.Context, id int64) (*entity.Product, error) {
	return queryOne(ctx, t.conn, t.Name(), id, `SELECT `+productColumns+` FROM products WHERE id = $1`, scanProduct)
}

func (t productTable) FindAll(ctx context.Context) ([]*entity.Product, error) {
	return queryAll(ctx, t.conn, t.Name(), `SELECT `+productColumns+` FROM products ORDER BY id`, scanProduct)
}

func (t productTable) Insert(ctx context.Context, tx *sql.Tx, e *entity.Product) (persistence.Result, error) {
	var id, version int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO products (name, price, stock, category_id) VALUES ($1, $2, $3, $4) RETURNING id, version`,
		e.Name, e.Price, e.Stock, nullID(e.CategoryID),
	).Scan(&id, &version)
	if err != nil {
		return persistence.Result{}, translate(err)
	}
	return persistence.Result{Affected: 1, Finalize: func() {
		e.ID = id
		e.Version = version
	}}, nil
}

// Update only matches the row while it still carries the version the
// entity was read with.
func (t productTable) Update(ctx context.Context, tx *sql.Tx, e *entity.Product) (persistence.Result, error) {
	var version int64
	err := tx.QueryRowContext(ctx,
		`UPDATE products
		    SET name = $2, price = $3, stock = $4, category_id = $5, version = version + 1
		  WHERE id = $1 AND version = $6
		RETURNING version`,
		e.ID, e.Name, e.Price, e.Stock, nullID(e.CategoryID), e.Version,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Result{}, stale(t.Name(), e.ID)
	}
	if err != nil {
		return persistence.Result{}, translate(err)
	}
	return persistence.Result{Affected: 1, Finalize: func() { e.Version = version }}, nil
}

func (t productTable) Delete(ctx context.Context, tx *sql.Tx, e *entity.Product) (persistence.Result, error) {
	return exec(ctx, tx, t.Name(), e.ID, `DELETE FROM products WHERE id = $1`, e.ID)
}
