package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DioGolang/GoShop/internal/application/port/outbound"
	"github.com/DioGolang/GoShop/internal/infra/persistence"
)

// session pins one pooled connection for the lifetime of a unit of work.
// Reads run on it directly and Commit opens the transaction on it.
type session struct {
	conn *sql.Conn
}

func (s *session) Begin(ctx context.Context) (*sql.Tx, error) {
	return s.conn.BeginTx(ctx, nil)
}

func (s *session) Commit(tx *sql.Tx) error { return translate(tx.Commit()) }

func (s *session) Rollback(tx *sql.Tx) error {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func (s *session) Release() error { return s.conn.Close() }

type UnitOfWorkFactory struct {
	db *sql.DB
}

func NewUnitOfWorkFactory(db *sql.DB) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{db: db}
}

func (f *UnitOfWorkFactory) New(ctx context.Context) (outbound.UnitOfWork, error) {
	conn, err := f.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return persistence.NewUnitOfWork[*sql.Tx](&session{conn: conn}, persistence.Tables[*sql.Tx]{
		Categories: categoryTable{conn: conn},
		Customers:  customerTable{conn: conn},
		Products:   productTable{conn: conn},
		Orders:     orderTable{conn: conn},
		OrderItems: orderItemTable{conn: conn},
	}), nil
}

var _ outbound.UnitOfWorkFactory = (*UnitOfWorkFactory)(nil)
