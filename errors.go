package ytupload

import (
	"ytupload/oauth"
	"ytupload/retry"
	"ytupload/storage"
	"ytupload/youtube"
)

// Error handling types exported for library users.
//
// All error types support the standard error handling patterns:
//
// Using errors.Is() for sentinel errors:
//
//	if errors.Is(err, ytupload.ErrAuthRequired) {
//		fmt.Println("authorize first")
//	}
//
// Using errors.As() for wrapped errors:
//
//	var pErr *ytupload.ProviderError
//	if errors.As(err, &pErr) {
//		fmt.Printf("rejected with status %d: %s\n", pErr.StatusCode, pErr.Message)
//	}

// Type aliases for convenient error handling.
type (
	// ValidationError indicates bad caller input, caught before any network traffic.
	ValidationError = youtube.ValidationError
	// ProviderError is a rejection from the provider's API.
	ProviderError = youtube.ProviderError
	// AmbiguousCompletionError means the upload finished without a confirmed video id.
	AmbiguousCompletionError = youtube.AmbiguousCompletionError
	// RetryableError wraps errors that occurred after retries were exhausted.
	RetryableError = retry.RetryableError
	// StorageError wraps errors during token storage operations.
	StorageError = storage.StorageError
)

// Sentinel errors exported from sub-packages.
var (
	// ErrAuthRequired indicates no usable credential exists and the consent
	// flow must be run again.
	ErrAuthRequired = oauth.ErrAuthRequired
	// ErrMissingUploadURL indicates the provider accepted the session request
	// but returned no session URL.
	ErrMissingUploadURL = youtube.ErrMissingUploadURL
	// ErrChunkLimitExceeded indicates the chunk safety bound was hit.
	ErrChunkLimitExceeded = youtube.ErrChunkLimitExceeded
	// ErrVideoNotFound indicates the referenced video does not exist.
	ErrVideoNotFound = youtube.ErrVideoNotFound

	// Storage errors
	// ErrNotFound indicates no token record exists.
	ErrNotFound = storage.ErrNotFound
	// ErrInvalidToken indicates a token record failed validation.
	ErrInvalidToken = storage.ErrInvalidToken
	// ErrVerifyMismatch indicates a persisted record failed read-back verification.
	ErrVerifyMismatch = storage.ErrVerifyMismatch
	// ErrCorruptData indicates the stored record could not be decoded.
	ErrCorruptData = storage.ErrCorruptData
	// ErrLockTimeout indicates a timeout acquiring the store's file lock.
	ErrLockTimeout = storage.ErrLockTimeout
)

// IsRetryable determines if an error should be retried.
// It returns false for permanent errors like ErrAuthRequired.
func IsRetryable(err error) bool {
	return retry.IsRetryable(err)
}
