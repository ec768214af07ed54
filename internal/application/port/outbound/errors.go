package outbound

import "errors"

var (
	// ErrInvalidArgument is returned when a required input is nil or unset.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound is returned by GetByID when no row matches the id.
	ErrNotFound = errors.New("not found")
	// ErrPersistence wraps every store-level failure surfaced by Commit.
	ErrPersistence = errors.New("persistence error")
	// ErrConcurrentUpdate means a staged update was based on a stale read.
	// It is always reported together with ErrPersistence.
	ErrConcurrentUpdate = errors.New("concurrent update")
	// ErrConstraintViolation is a rejected write: missing reference, check
	// constraint or a row still referenced elsewhere.
	ErrConstraintViolation = errors.New("constraint violation")
	ErrUnitOfWorkFailed    = errors.New("unit of work failed, open a new one")
	ErrUnitOfWorkClosed    = errors.New("unit of work is closed")
	ErrNotSupported        = errors.New("operation not supported")
)

func IsConcurrentUpdate(err error) bool {
	return errors.Is(err, ErrConcurrentUpdate)
}
