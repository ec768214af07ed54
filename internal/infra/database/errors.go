package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/DioGolang/GoShop/internal/application/port/outbound"
)

// translate maps driver errors onto the persistence error taxonomy.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "foreign_key_violation", "check_violation", "unique_violation", "not_null_violation":
			return fmt.Errorf("%w: %w", outbound.ErrConstraintViolation, err)
		case "numeric_value_out_of_range", "invalid_text_representation":
			return fmt.Errorf("%w: %w", outbound.ErrInvalidArgument, err)
		case "serialization_failure", "deadlock_detected":
			return fmt.Errorf("%w: %w", outbound.ErrConcurrentUpdate, err)
		}
	}
	return err
}

func notFound(table string, id int64) error {
	return fmt.Errorf("%w: %s %d", outbound.ErrNotFound, table, id)
}

func stale(table string, id int64) error {
	return fmt.Errorf("%w: %s %d was changed or removed", outbound.ErrConcurrentUpdate, table, id)
}

// nullID stores an unset reference as NULL.
func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

// affected turns a zero-row write into a stale-row error.
func affected(res sql.Result, table string, id int64) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, stale(table, id)
	}
	return n, nil
}
