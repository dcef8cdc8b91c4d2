// Package gateway abstracts the remote catalog/transaction service.
//
// The gateway is a pure I/O boundary: it lists the authoritative
// catalog and inserts locally recorded transactions. Transport,
// protocol and auth live here; callers only see domain types and
// RemoteError.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/possum/internal/pos"
)

// Gateway is the remote store boundary consumed by the sync controller.
//
// InsertTransaction must be safe to call twice with the same
// transaction id: retries can follow an indeterminate failure (e.g. a
// timeout after the write actually succeeded), so the remote side is
// expected to upsert or ignore duplicates.
type Gateway interface {
	// FetchCatalog returns the full authoritative product catalog.
	FetchCatalog(ctx context.Context) ([]pos.Product, error)

	// InsertTransaction delivers a transaction to the remote store.
	InsertTransaction(ctx context.Context, t pos.Transaction) error
}

// RemoteError represents a network or service failure at the remote
// boundary. The sync controller recovers from it locally: push failures
// go through the retry policy, pull failures leave the last good
// catalog snapshot in place.
type RemoteError struct {
	// Op names the failed gateway operation, e.g. "fetch catalog".
	Op string

	// Status is the HTTP status code, or 0 for transport-level failures.
	Status int

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote: %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("remote: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsRemote reports whether err is (or wraps) a RemoteError.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

func remoteErr(op string, status int, err error) error {
	return &RemoteError{Op: op, Status: status, Err: err}
}
