package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"

	ythttp "ytupload/http"
)

// Sentinel errors for upload and catalog operations.
var (
	// ErrMissingUploadURL indicates the provider accepted the session
	// request but returned no session URL. Nothing can be uploaded;
	// retrying the same request will not help.
	ErrMissingUploadURL = errors.New("youtube: upload session accepted without a session url")

	// ErrChunkLimitExceeded indicates the chunk-count safety bound was hit
	// before the transfer finished.
	ErrChunkLimitExceeded = errors.New("youtube: chunk limit exceeded")

	// ErrVideoNotFound indicates the referenced video does not exist or is
	// not visible to the authorized channel.
	ErrVideoNotFound = errors.New("youtube: video not found")

	// ErrNetworkTimeout indicates a request was cut short by its deadline.
	ErrNetworkTimeout = errors.New("youtube: network timeout")
)

// ValidationError indicates bad caller input, detected before any network
// traffic. It is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("youtube: invalid %s: %s", e.Field, e.Reason)
}

// ProviderError is a rejection from the provider, carrying its status code
// and the message extracted from the error body when one was parseable.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("youtube: provider rejected request (status %d): %s", e.StatusCode, e.Message)
}

// AmbiguousCompletionError means the final chunk got a success status but
// the response body did not contain a video id. The upload very likely
// completed; callers should resolve the id through the discovery poller
// rather than treating this as a failure.
type AmbiguousCompletionError struct {
	StatusCode int
	Body       []byte
}

func (e *AmbiguousCompletionError) Error() string {
	return fmt.Sprintf("youtube: upload finished (status %d) without a confirmed video id", e.StatusCode)
}

// apiErrorBody is the provider's standard error envelope.
type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// providerError builds a ProviderError from an error response, preferring
// the nested message and synthesizing one from the status when the body is
// not the standard envelope.
func providerError(resp *ythttp.Response) *ProviderError {
	var body apiErrorBody
	if err := json.Unmarshal(resp.Body, &body); err == nil && body.Error.Message != "" {
		return &ProviderError{StatusCode: resp.StatusCode, Message: body.Error.Message}
	}
	return &ProviderError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("request failed with status %d", resp.StatusCode)}
}

// apiErrorClassifier determines if a Data API error is retryable.
func apiErrorClassifier(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, ErrVideoNotFound), errors.Is(err, ErrMissingUploadURL):
		return false
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return false
	}
	var pErr *ProviderError
	if errors.As(err, &pErr) {
		// 5xx and throttling are worth retrying; other rejections stand.
		return pErr.StatusCode >= 500 || pErr.StatusCode == 429
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code >= 500 || gErr.Code == 429
	}

	if strings.Contains(err.Error(), "quotaExceeded") ||
		strings.Contains(err.Error(), "rateLimitExceeded") {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	// Default to retryable for unknown errors
	return true
}
