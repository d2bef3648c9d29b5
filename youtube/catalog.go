package youtube

import (
	"context"
	"fmt"

	"google.golang.org/api/youtube/v3"

	"ytupload/retry"
)

// PlaylistInfo is one playlist row from a catalog listing.
type PlaylistInfo struct {
	ID            string
	Title         string
	PrivacyStatus string
}

// PlaylistPage is one page of playlist results.
type PlaylistPage struct {
	Items         []PlaylistInfo
	NextPageToken string
}

// PlaylistItemInfo is one video row from a playlist-items listing.
type PlaylistItemInfo struct {
	VideoID       string
	Title         string
	PrivacyStatus string
}

// PlaylistItemPage is one page of playlist-item results.
type PlaylistItemPage struct {
	Items         []PlaylistItemInfo
	NextPageToken string
}

const listPageSize = 50

// Catalog queries and mutates the authorized channel's video catalog.
//
// Every operation issues exactly one provider call by default; retrying
// transient failures is the caller's policy, installed via SetRetryPolicy.
type Catalog struct {
	svc      *youtube.Service
	quota    *QuotaAuditor
	retryCfg retry.Config
}

// NewCatalog creates a catalog over the given service. quota may be nil to
// skip auditing.
func NewCatalog(svc *youtube.Service, quota *QuotaAuditor) *Catalog {
	return &Catalog{svc: svc, quota: quota}
}

// SetRetryPolicy installs a retry policy for transient provider failures.
// A zero MaxRetries (the default) keeps every operation single-attempt.
func (c *Catalog) SetRetryPolicy(cfg retry.Config) {
	c.retryCfg = cfg
}

// call runs one catalog operation under the installed retry policy. Quota
// is recorded inside fn per attempt, so the audit trail reflects what the
// provider actually charged rather than one line per successful operation.
func (c *Catalog) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.retryCfg.MaxRetries <= 0 {
		return fn(ctx)
	}
	return retry.Do(ctx, c.retryCfg, apiErrorClassifier, fn)
}

// ListPlaylistsByPrivacy lists the channel's playlists that carry exactly
// the given privacy status. The provider has no server-side privacy filter,
// so the page is fetched wholesale and filtered here; an empty result is a
// valid outcome. Duplicate ids within a page are collapsed.
func (c *Catalog) ListPlaylistsByPrivacy(ctx context.Context, status, pageToken string) (*PlaylistPage, error) {
	if !validPrivacyStatuses[status] {
		return nil, &ValidationError{
			Field:  "privacyStatus",
			Reason: fmt.Sprintf("%q is not one of private, public, unlisted", status),
		}
	}

	var resp *youtube.PlaylistListResponse
	err := c.call(ctx, func(ctx context.Context) error {
		c.quota.Record("playlists", "list", QuotaCostList)
		var err error
		resp, err = c.svc.Playlists.List([]string{"id", "snippet", "status"}).
			Mine(true).
			MaxResults(listPageSize).
			PageToken(pageToken).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	page := &PlaylistPage{NextPageToken: resp.NextPageToken}
	seen := make(map[string]bool)
	for _, pl := range resp.Items {
		if pl.Status == nil || pl.Status.PrivacyStatus != status {
			continue
		}
		if seen[pl.Id] {
			continue
		}
		seen[pl.Id] = true

		info := PlaylistInfo{ID: pl.Id, PrivacyStatus: pl.Status.PrivacyStatus}
		if pl.Snippet != nil {
			info.Title = pl.Snippet.Title
		}
		page.Items = append(page.Items, info)
	}
	return page, nil
}

// ListPlaylistItems lists the videos of a playlist that carry exactly the
// given privacy status, deduplicated by video id.
func (c *Catalog) ListPlaylistItems(ctx context.Context, playlistID, status, pageToken string) (*PlaylistItemPage, error) {
	if playlistID == "" {
		return nil, &ValidationError{Field: "playlistId", Reason: "must not be empty"}
	}
	if !validPrivacyStatuses[status] {
		return nil, &ValidationError{
			Field:  "privacyStatus",
			Reason: fmt.Sprintf("%q is not one of private, public, unlisted", status),
		}
	}

	var resp *youtube.PlaylistItemListResponse
	err := c.call(ctx, func(ctx context.Context) error {
		c.quota.Record("playlistItems", "list", QuotaCostList)
		var err error
		resp, err = c.svc.PlaylistItems.List([]string{"snippet", "status", "contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(listPageSize).
			PageToken(pageToken).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	page := &PlaylistItemPage{NextPageToken: resp.NextPageToken}
	seen := make(map[string]bool)
	for _, item := range resp.Items {
		if item.Status == nil || item.Status.PrivacyStatus != status {
			continue
		}

		videoID := ""
		if item.ContentDetails != nil {
			videoID = item.ContentDetails.VideoId
		}
		if videoID == "" && item.Snippet != nil && item.Snippet.ResourceId != nil {
			videoID = item.Snippet.ResourceId.VideoId
		}
		if videoID == "" || seen[videoID] {
			continue
		}
		seen[videoID] = true

		info := PlaylistItemInfo{VideoID: videoID, PrivacyStatus: item.Status.PrivacyStatus}
		if item.Snippet != nil {
			info.Title = item.Snippet.Title
		}
		page.Items = append(page.Items, info)
	}
	return page, nil
}

// VideoExists reports whether a video id resolves to a visible video.
func (c *Catalog) VideoExists(ctx context.Context, videoID string) (bool, error) {
	if videoID == "" {
		return false, &ValidationError{Field: "videoId", Reason: "must not be empty"}
	}

	var exists bool
	err := c.call(ctx, func(ctx context.Context) error {
		c.quota.Record("videos", "list", QuotaCostList)
		resp, err := c.svc.Videos.List([]string{"id"}).
			Id(videoID).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		exists = len(resp.Items) > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

// UpdateMetadata overlays the caller-supplied draft fields onto the video's
// current snippet and writes it back. Empty draft fields leave the existing
// values untouched; the read-modify-write keeps fields the caller never
// mentioned intact, since the update endpoint replaces the whole snippet.
func (c *Catalog) UpdateMetadata(ctx context.Context, videoID string, draft *VideoMetadataDraft) error {
	if videoID == "" {
		return &ValidationError{Field: "videoId", Reason: "must not be empty"}
	}
	if draft == nil {
		return &ValidationError{Field: "metadata", Reason: "must not be nil"}
	}

	var current *youtube.Video
	err := c.call(ctx, func(ctx context.Context) error {
		c.quota.Record("videos", "list", QuotaCostList)
		resp, err := c.svc.Videos.List([]string{"snippet"}).
			Id(videoID).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 {
			return ErrVideoNotFound
		}
		current = resp.Items[0]
		return nil
	})
	if err != nil {
		return err
	}

	if current.Snippet == nil {
		current.Snippet = &youtube.VideoSnippet{}
	}
	if draft.Title != "" {
		current.Snippet.Title = draft.Title
	}
	if draft.Description != "" {
		current.Snippet.Description = draft.Description
	}
	if draft.CategoryID != "" {
		current.Snippet.CategoryId = draft.CategoryID
	}
	if len(draft.Tags) > 0 {
		current.Snippet.Tags = draft.Tags
	}

	return c.call(ctx, func(ctx context.Context) error {
		c.quota.Record("videos", "update", QuotaCostUpdate)
		_, err := c.svc.Videos.Update([]string{"snippet"}, &youtube.Video{
			Id:      videoID,
			Snippet: current.Snippet,
		}).Context(ctx).Do()
		return err
	})
}

// DeleteVideo removes a video unconditionally. Provider errors propagate
// from the single attempt unless the caller installed a retry policy.
func (c *Catalog) DeleteVideo(ctx context.Context, videoID string) error {
	if videoID == "" {
		return &ValidationError{Field: "videoId", Reason: "must not be empty"}
	}

	return c.call(ctx, func(ctx context.Context) error {
		c.quota.Record("videos", "delete", QuotaCostDelete)
		return c.svc.Videos.Delete(videoID).Context(ctx).Do()
	})
}
