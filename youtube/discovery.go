package youtube

import (
	"context"
	"fmt"
	"log"
	"time"

	"google.golang.org/api/youtube/v3"
)

// DiscoveryConfig tunes the upload discovery poller.
type DiscoveryConfig struct {
	// InitialDelay before the first check, giving the provider time to
	// index the fresh upload (default: 2s)
	InitialDelay time.Duration
	// Attempts is the number of checks before giving up (default: 5)
	Attempts int
	// Interval between checks (default: 3s)
	Interval time.Duration
	// RecencyWindow is the maximum age for an upload to count as the one
	// just finished (default: 5m)
	RecencyWindow time.Duration
	// MaxResults is how many recent uploads each check inspects (default: 10)
	MaxResults int64
}

// DefaultDiscoveryConfig returns the standard poller tuning.
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		InitialDelay:  2 * time.Second,
		Attempts:      5,
		Interval:      3 * time.Second,
		RecencyWindow: 5 * time.Minute,
		MaxResults:    10,
	}
}

// SleepFunc waits for d or until the context is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DiscoveryPoller finds the id of a just-finished upload by watching the
// authenticated channel's uploads playlist for a recently published item.
//
// The heuristic has no session-to-video correlation: if several uploads
// land on the channel inside the recency window, the newest one wins.
// The provider offers nothing stronger when the final upload response
// carries no id.
type DiscoveryPoller struct {
	svc   *youtube.Service
	cfg   DiscoveryConfig
	quota *QuotaAuditor
	sleep SleepFunc
	now   func() time.Time
}

// NewDiscoveryPoller creates a poller over the given service. quota may be
// nil to skip auditing.
func NewDiscoveryPoller(svc *youtube.Service, cfg DiscoveryConfig, quota *QuotaAuditor) *DiscoveryPoller {
	def := DefaultDiscoveryConfig()
	if cfg.Attempts <= 0 {
		cfg.Attempts = def.Attempts
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.RecencyWindow <= 0 {
		cfg.RecencyWindow = def.RecencyWindow
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = def.MaxResults
	}
	return &DiscoveryPoller{
		svc:   svc,
		cfg:   cfg,
		quota: quota,
		sleep: defaultSleep,
		now:   time.Now,
	}
}

// SetSleepFunc replaces the poller's wait primitive.
func (p *DiscoveryPoller) SetSleepFunc(fn SleepFunc) {
	if fn != nil {
		p.sleep = fn
	}
}

// FindRecentUpload polls the uploads playlist for a video published within
// the recency window and returns its id. Not finding one is a normal
// outcome, reported as ("", nil); only context cancellation surfaces as an
// error. Per-attempt provider errors are treated as transient: they are
// logged and the attempt retried, including failures resolving the uploads
// playlist itself, which share the same attempt budget.
func (p *DiscoveryPoller) FindRecentUpload(ctx context.Context) (string, error) {
	if err := p.sleep(ctx, p.cfg.InitialDelay); err != nil {
		return "", err
	}

	playlistID := ""
	for attempt := 1; attempt <= p.cfg.Attempts; attempt++ {
		id, err := p.attemptOnce(ctx, &playlistID)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			log.Printf("youtube: discovery attempt %d/%d: %v", attempt, p.cfg.Attempts, err)
		} else if id != "" {
			log.Printf("youtube: discovery found video %s on attempt %d", id, attempt)
			return id, nil
		}

		if attempt < p.cfg.Attempts {
			if err := p.sleep(ctx, p.cfg.Interval); err != nil {
				return "", err
			}
		}
	}

	log.Printf("youtube: discovery: no recent upload after %d attempts", p.cfg.Attempts)
	return "", nil
}

// attemptOnce resolves the uploads playlist when not yet known, then checks
// it for a fresh upload. The resolved id is cached across attempts.
func (p *DiscoveryPoller) attemptOnce(ctx context.Context, playlistID *string) (string, error) {
	if *playlistID == "" {
		id, err := p.uploadsPlaylistID(ctx)
		if err != nil {
			return "", fmt.Errorf("resolve uploads playlist: %w", err)
		}
		*playlistID = id
	}
	return p.checkOnce(ctx, *playlistID)
}

// uploadsPlaylistID resolves the authenticated channel's uploads playlist.
func (p *DiscoveryPoller) uploadsPlaylistID(ctx context.Context) (string, error) {
	resp, err := p.svc.Channels.List([]string{"contentDetails"}).
		Mine(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	p.quota.Record("channels", "list", QuotaCostList)

	if len(resp.Items) == 0 || resp.Items[0].ContentDetails == nil {
		return "", fmt.Errorf("no channel for the authorized account")
	}
	return resp.Items[0].ContentDetails.RelatedPlaylists.Uploads, nil
}

// checkOnce inspects the most recent uploads and returns the first one
// published inside the recency window.
func (p *DiscoveryPoller) checkOnce(ctx context.Context, playlistID string) (string, error) {
	resp, err := p.svc.PlaylistItems.List([]string{"snippet", "contentDetails"}).
		PlaylistId(playlistID).
		MaxResults(p.cfg.MaxResults).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	p.quota.Record("playlistItems", "list", QuotaCostList)

	now := p.now()
	for _, item := range resp.Items {
		if item.Snippet == nil {
			continue
		}
		published, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		if err != nil {
			continue
		}
		age := now.Sub(published)
		if age >= 0 && age <= p.cfg.RecencyWindow {
			if item.ContentDetails != nil && item.ContentDetails.VideoId != "" {
				return item.ContentDetails.VideoId, nil
			}
			if item.Snippet.ResourceId != nil {
				return item.Snippet.ResourceId.VideoId, nil
			}
		}
	}
	return "", nil
}
