// Package storage provides validated persistence for OAuth token records.
//
// Two backends implement the same TokenStore contract: a file store using
// atomic writes and advisory file locking, and a SQLite store. Both validate
// records on the way in and verify them on the way back out, so a caller can
// trust that a token returned by Get has the shape a token must have.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Common storage errors.
var (
	// ErrNotFound indicates no token record exists.
	ErrNotFound = errors.New("storage: token not found")

	// ErrInvalidToken indicates a record that fails structural validation.
	ErrInvalidToken = errors.New("storage: invalid token record")

	// ErrVerifyMismatch indicates a read-back after save did not match the
	// record that was written.
	ErrVerifyMismatch = errors.New("storage: saved token failed read-back verification")

	// ErrCorruptData indicates stored data that could not be decoded.
	ErrCorruptData = errors.New("storage: corrupt data")

	// ErrLockTimeout indicates a lock acquisition timed out.
	ErrLockTimeout = errors.New("storage: lock acquisition timeout")

	// ErrStoreClosed indicates an operation on a closed store.
	ErrStoreClosed = errors.New("storage: store is closed")
)

// StorageError provides context about a failed storage operation.
type StorageError struct {
	Op     string // Operation: "get", "save", "delete"
	Entity string // Entity type: "token"
	Err    error  // Underlying error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// TokenStore persists a single OAuth token record.
//
// Get returns (nil, nil) when no usable record exists; unrecoverable
// corruption is logged and treated as absence rather than surfaced to the
// caller. Save validates before writing and verifies by reading back.
// Delete is idempotent.
type TokenStore interface {
	Get(ctx context.Context) (*OAuthToken, error)
	Save(ctx context.Context, tok *OAuthToken) error
	Delete(ctx context.Context) error
	Close() error
}

// CacheInvalidator drops any caching layer sitting in front of the
// authoritative storage. Implementations are best effort: the store's
// read-back verification carries the correctness burden, not this hook.
type CacheInvalidator interface {
	Invalidate()
}

// CacheInvalidatorFunc adapts a function to the CacheInvalidator interface.
type CacheInvalidatorFunc func()

func (f CacheInvalidatorFunc) Invalidate() { f() }
