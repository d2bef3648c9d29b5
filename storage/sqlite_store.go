package storage

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// tokenRecord is the gorm model backing the SQLite store. The store keeps
// exactly one row; ID is pinned so saves replace rather than append.
type tokenRecord struct {
	ID           uint `gorm:"primaryKey"`
	AccessToken  string
	TokenType    string
	RefreshToken string
	ExpiresIn    int64
	Scope        string
	Created      time.Time
	UpdatedAt    time.Time
}

func (tokenRecord) TableName() string { return "oauth_tokens" }

const tokenRowID = 1

// SQLiteTokenStore is a SQLite-backed TokenStore with the same contract as
// the file store: validation on save, read-back verification, idempotent
// delete, corruption treated as absence.
type SQLiteTokenStore struct {
	db *gorm.DB
}

// NewSQLiteTokenStore opens (or creates) the database at dbPath and runs
// migrations.
func NewSQLiteTokenStore(dbPath string) (*SQLiteTokenStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, &StorageError{Op: "open", Entity: "token", Err: err}
		}
	}
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, &StorageError{Op: "open", Entity: "token", Err: err}
	}
	if err := db.AutoMigrate(&tokenRecord{}); err != nil {
		return nil, &StorageError{Op: "open", Entity: "token", Err: err}
	}
	return &SQLiteTokenStore{db: db}, nil
}

// Get loads the stored token, returning (nil, nil) when absent or when the
// row fails structural validation.
func (s *SQLiteTokenStore) Get(ctx context.Context) (*OAuthToken, error) {
	var rec tokenRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", tokenRowID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, &StorageError{Op: "get", Entity: "token", Err: err}
	}

	tok := recordToToken(&rec)
	if err := tok.Validate(); err != nil {
		log.Printf("storage: discarding unusable token row: %v", err)
		return nil, nil
	}
	return tok, nil
}

// Save validates tok, upserts the single row inside a transaction and
// verifies the write by reading it back.
func (s *SQLiteTokenStore) Save(ctx context.Context, tok *OAuthToken) error {
	if err := tok.Validate(); err != nil {
		log.Printf("storage: refusing to save invalid token: %v", err)
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := tokenRecord{
			ID:           tokenRowID,
			AccessToken:  tok.AccessToken,
			TokenType:    tok.TokenType,
			RefreshToken: tok.RefreshToken,
			ExpiresIn:    tok.ExpiresIn,
			Scope:        tok.Scope,
			Created:      tok.Created,
		}
		if err := tx.Save(&rec).Error; err != nil {
			return err
		}

		var readBack tokenRecord
		if err := tx.First(&readBack, "id = ?", tokenRowID).Error; err != nil {
			return ErrVerifyMismatch
		}
		if !tok.EssentialFieldsEqual(recordToToken(&readBack)) {
			return ErrVerifyMismatch
		}
		return nil
	})
	if err != nil {
		return &StorageError{Op: "save", Entity: "token", Err: err}
	}
	return nil
}

// Delete removes the token row. Deleting an absent row is not an error.
func (s *SQLiteTokenStore) Delete(ctx context.Context) error {
	err := s.db.WithContext(ctx).Delete(&tokenRecord{}, "id = ?", tokenRowID).Error
	if err != nil {
		return &StorageError{Op: "delete", Entity: "token", Err: err}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteTokenStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func recordToToken(rec *tokenRecord) *OAuthToken {
	return &OAuthToken{
		AccessToken:  rec.AccessToken,
		TokenType:    rec.TokenType,
		RefreshToken: rec.RefreshToken,
		ExpiresIn:    rec.ExpiresIn,
		Scope:        rec.Scope,
		Created:      rec.Created,
	}
}
