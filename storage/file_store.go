package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ytupload/retry"
)

const (
	lockTimeout = 5 * time.Second

	// Bounded retry for transient incoherence between a write and its
	// read-back. Structural invalidity is never retried.
	verifyRetries = 2
	verifyBackoff = 100 * time.Millisecond
)

// FileTokenStore is a file-backed TokenStore. The record is stored as a
// single JSON document; writes go through a temp file + rename and are
// verified by reading the file back. An advisory file lock guards against
// concurrent processes.
type FileTokenStore struct {
	mu          sync.Mutex
	path        string
	lock        *FileLock
	invalidator CacheInvalidator
	closed      bool
}

// NewFileTokenStore opens (or creates) a token store at path and acquires
// its file lock. Callers must Close the store to release the lock.
func NewFileTokenStore(path string) (*FileTokenStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, &StorageError{Op: "open", Entity: "token", Err: err}
		}
	}
	s := &FileTokenStore{
		path: path,
		lock: NewFileLock(path),
	}
	if err := s.lock.Lock(lockTimeout); err != nil {
		return nil, &StorageError{Op: "open", Entity: "token", Err: err}
	}
	return s, nil
}

// SetCacheInvalidator installs a best-effort hook fired before authoritative
// reads and after writes. Read-back verification carries the correctness
// burden; this only shortens the window in which a stale cache is visible.
func (s *FileTokenStore) SetCacheInvalidator(inv CacheInvalidator) {
	s.mu.Lock()
	s.invalidator = inv
	s.mu.Unlock()
}

func (s *FileTokenStore) invalidate() {
	if s.invalidator != nil {
		s.invalidator.Invalidate()
	}
}

// Get loads the stored token. It returns (nil, nil) when no record exists or
// when the record is unrecoverably invalid; corruption is logged, not
// surfaced, so callers treat it uniformly as "not authorized".
func (s *FileTokenStore) Get(ctx context.Context) (*OAuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.invalidate()

	tok, err := s.load()
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		log.Printf("storage: discarding unusable token record: %v", err)
		return nil, nil
	}
	return tok, nil
}

// load reads and decodes the record, attempting one repair pass for records
// that were persisted as a JSON-encoded string of the document.
func (s *FileTokenStore) load() (*OAuthToken, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, &StorageError{Op: "get", Entity: "token", Err: err}
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}

	var tok OAuthToken
	if err := json.Unmarshal(data, &tok); err == nil {
		if err := tok.Validate(); err != nil {
			return nil, err
		}
		return &tok, nil
	}

	// Repair attempt: the document may have been stored double-encoded,
	// as a JSON string containing the record.
	var inner string
	if err := json.Unmarshal(data, &inner); err != nil {
		return nil, ErrCorruptData
	}
	if err := json.Unmarshal([]byte(inner), &tok); err != nil {
		return nil, ErrCorruptData
	}
	if err := tok.Validate(); err != nil {
		return nil, err
	}

	log.Printf("storage: repaired string-encoded token record")
	if err := s.write(&tok); err != nil {
		// The in-memory record is good; re-persisting the repair can wait.
		log.Printf("storage: failed to persist repaired record: %v", err)
	}
	return &tok, nil
}

// Save validates tok, persists it atomically and verifies the write by
// reading the record back. Verification mismatches are retried a small
// number of times; structural invalidity fails immediately.
func (s *FileTokenStore) Save(ctx context.Context, tok *OAuthToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	if err := tok.Validate(); err != nil {
		log.Printf("storage: refusing to save invalid token: %v", err)
		return err
	}

	cfg := retry.Config{
		MaxRetries:     verifyRetries,
		InitialBackoff: verifyBackoff,
		MaxBackoff:     verifyBackoff,
		Multiplier:     1.0,
	}
	classifier := func(err error) bool {
		return errors.Is(err, ErrVerifyMismatch)
	}

	err := retry.Do(ctx, cfg, classifier, func(ctx context.Context) error {
		s.invalidate()
		if err := s.write(tok); err != nil {
			return err
		}
		s.invalidate()

		readBack, err := s.load()
		if err != nil {
			return ErrVerifyMismatch
		}
		if !tok.EssentialFieldsEqual(readBack) {
			return ErrVerifyMismatch
		}
		return nil
	})
	if err != nil {
		return &StorageError{Op: "save", Entity: "token", Err: err}
	}
	return nil
}

func (s *FileTokenStore) write(tok *OAuthToken) error {
	w, err := NewAtomicWriter(s.path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	if err := enc.Encode(tok); err != nil {
		w.Abort()
		return err
	}
	return w.Commit()
}

// Delete removes the stored record. Deleting an absent record is not an error.
func (s *FileTokenStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.invalidate()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &StorageError{Op: "delete", Entity: "token", Err: err}
	}
	s.invalidate()
	return nil
}

// Close releases the file lock. The store is unusable afterwards.
func (s *FileTokenStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.lock.Unlock()
}
