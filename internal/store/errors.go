package store

import (
	"errors"
	"fmt"
)

// StorageError represents a failure of the local durable medium
// (disk, quota, corruption). It is fatal to the triggering operation
// and is never retried by this package; the caller decides.
type StorageError struct {
	// Op names the store operation that failed, e.g. "put transaction".
	Op string

	// Err is the underlying database error.
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorage reports whether err is (or wraps) a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
