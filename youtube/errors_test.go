package youtube

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/api/googleapi"

	ythttp "ytupload/http"
)

func TestProviderErrorFromResponse(t *testing.T) {
	tests := []struct {
		name        string
		resp        *ythttp.Response
		wantMessage string
	}{
		{
			"standard envelope",
			&ythttp.Response{StatusCode: 403, Body: []byte(`{"error":{"code":403,"message":"quotaExceeded"}}`)},
			"quotaExceeded",
		},
		{
			"html body",
			&ythttp.Response{StatusCode: 502, Body: []byte(`<html>boom</html>`)},
			"request failed with status 502",
		},
		{
			"empty body",
			&ythttp.Response{StatusCode: 500},
			"request failed with status 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := providerError(tt.resp)
			if got.StatusCode != tt.resp.StatusCode {
				t.Errorf("StatusCode = %d", got.StatusCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestAPIErrorClassifier(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"video not found", ErrVideoNotFound, false},
		{"wrapped video not found", fmt.Errorf("update: %w", ErrVideoNotFound), false},
		{"missing upload url", ErrMissingUploadURL, false},
		{"validation", &ValidationError{Field: "title", Reason: "empty"}, false},
		{"provider 500", &ProviderError{StatusCode: 500}, true},
		{"provider 429", &ProviderError{StatusCode: 429}, true},
		{"provider 403", &ProviderError{StatusCode: 403}, false},
		{"googleapi 503", &googleapi.Error{Code: 503}, true},
		{"googleapi 404", &googleapi.Error{Code: 404}, false},
		{"quota string", errors.New("googleapi: Error 403: quotaExceeded"), true},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"unknown network error", errors.New("connection reset by peer"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apiErrorClassifier(tt.err); got != tt.want {
				t.Errorf("apiErrorClassifier(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
