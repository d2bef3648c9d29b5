// Package youtube implements the provider-facing operations: resumable
// uploads, upload discovery, and catalog queries against the Data API.
package youtube

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// NewService constructs a Data API service authorized by the given token
// source. Extra options are appended, so tests can point the service at a
// local endpoint.
func NewService(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*youtube.Service, error) {
	all := make([]option.ClientOption, 0, len(opts)+1)
	if ts != nil {
		all = append(all, option.WithTokenSource(ts))
	}
	all = append(all, opts...)

	svc, err := youtube.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return svc, nil
}
