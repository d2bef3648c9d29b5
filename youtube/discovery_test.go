package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// newFakeDataAPI builds a Data API service backed by a local test server.
func newFakeDataAPI(t *testing.T, handler http.Handler) (*youtube.Service, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := NewService(context.Background(), nil,
		option.WithoutAuthentication(),
		option.WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc, srv
}

// instantSleep records requested waits without actually waiting.
func instantSleep(log *[]time.Duration) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		*log = append(*log, d)
		return ctx.Err()
	}
}

func channelsJSON(uploads string) string {
	return fmt.Sprintf(`{"items":[{"contentDetails":{"relatedPlaylists":{"uploads":%q}}}]}`, uploads)
}

func playlistItemJSON(videoID string, published time.Time) string {
	return fmt.Sprintf(`{"snippet":{"publishedAt":%q,"resourceId":{"videoId":%q}},"contentDetails":{"videoId":%q}}`,
		published.Format(time.RFC3339), videoID, videoID)
}

func TestFindRecentUpload_FirstAttempt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	itemHits := 0
	svc, _ := newFakeDataAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "channels"):
			fmt.Fprint(w, channelsJSON("UUabc"))
		case strings.Contains(r.URL.Path, "playlistItems"):
			itemHits++
			if got := r.URL.Query().Get("playlistId"); got != "UUabc" {
				t.Errorf("playlistId = %q, want UUabc", got)
			}
			fmt.Fprintf(w, `{"items":[%s]}`, playlistItemJSON("vid123", now.Add(-10*time.Second)))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))

	var sleeps []time.Duration
	poller := NewDiscoveryPoller(svc, DiscoveryConfig{InitialDelay: 2 * time.Second}, nil)
	poller.SetSleepFunc(instantSleep(&sleeps))
	poller.now = func() time.Time { return now }

	id, err := poller.FindRecentUpload(context.Background())
	if err != nil {
		t.Fatalf("FindRecentUpload() error = %v", err)
	}
	if id != "vid123" {
		t.Errorf("video id = %q, want vid123", id)
	}
	if itemHits != 1 {
		t.Errorf("playlistItems hit %d times, want 1", itemHits)
	}
	if len(sleeps) != 1 || sleeps[0] != 2*time.Second {
		t.Errorf("sleeps = %v, want only the initial delay", sleeps)
	}
}

func TestFindRecentUpload_StaleUploadsExhaustAttempts(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	itemHits := 0
	svc, _ := newFakeDataAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "channels"):
			fmt.Fprint(w, channelsJSON("UUabc"))
		case strings.Contains(r.URL.Path, "playlistItems"):
			itemHits++
			// Published an hour ago: outside the recency window.
			fmt.Fprintf(w, `{"items":[%s]}`, playlistItemJSON("old1", now.Add(-time.Hour)))
		}
	}))

	var sleeps []time.Duration
	poller := NewDiscoveryPoller(svc, DiscoveryConfig{
		InitialDelay:  2 * time.Second,
		Attempts:      5,
		Interval:      3 * time.Second,
		RecencyWindow: 5 * time.Minute,
	}, nil)
	poller.SetSleepFunc(instantSleep(&sleeps))
	poller.now = func() time.Time { return now }

	id, err := poller.FindRecentUpload(context.Background())
	if err != nil {
		t.Fatalf("FindRecentUpload() error = %v, exhaustion must not be an error", err)
	}
	if id != "" {
		t.Errorf("video id = %q, want empty", id)
	}
	if itemHits != 5 {
		t.Errorf("playlistItems hit %d times, want 5", itemHits)
	}
	// Initial delay plus an interval between each pair of attempts.
	if len(sleeps) != 5 {
		t.Errorf("%d sleeps, want 5 (initial + 4 intervals): %v", len(sleeps), sleeps)
	}
}

func TestFindRecentUpload_AttemptErrorIsRetried(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	itemHits := 0
	svc, _ := newFakeDataAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "channels"):
			fmt.Fprint(w, channelsJSON("UUabc"))
		case strings.Contains(r.URL.Path, "playlistItems"):
			itemHits++
			if itemHits == 1 {
				http.Error(w, `{"error":{"code":500,"message":"backend"}}`, 500)
				return
			}
			fmt.Fprintf(w, `{"items":[%s]}`, playlistItemJSON("vid456", now.Add(-30*time.Second)))
		}
	}))

	var sleeps []time.Duration
	poller := NewDiscoveryPoller(svc, DiscoveryConfig{}, nil)
	poller.SetSleepFunc(instantSleep(&sleeps))
	poller.now = func() time.Time { return now }

	id, err := poller.FindRecentUpload(context.Background())
	if err != nil {
		t.Fatalf("FindRecentUpload() error = %v", err)
	}
	if id != "vid456" {
		t.Errorf("video id = %q, want vid456 from the second attempt", id)
	}
	if itemHits != 2 {
		t.Errorf("playlistItems hit %d times, want 2", itemHits)
	}
}

func TestFindRecentUpload_PrefersNewestWithinWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newFakeDataAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "channels"):
			fmt.Fprint(w, channelsJSON("UUabc"))
		case strings.Contains(r.URL.Path, "playlistItems"):
			// The playlist lists newest first; both are in the window.
			fmt.Fprintf(w, `{"items":[%s,%s]}`,
				playlistItemJSON("newest", now.Add(-20*time.Second)),
				playlistItemJSON("older", now.Add(-2*time.Minute)))
		}
	}))

	var sleeps []time.Duration
	poller := NewDiscoveryPoller(svc, DiscoveryConfig{}, nil)
	poller.SetSleepFunc(instantSleep(&sleeps))
	poller.now = func() time.Time { return now }

	id, err := poller.FindRecentUpload(context.Background())
	if err != nil {
		t.Fatalf("FindRecentUpload() error = %v", err)
	}
	if id != "newest" {
		t.Errorf("video id = %q, want newest", id)
	}
}

func TestFindRecentUpload_PlaylistResolutionRetried(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	channelHits := 0
	svc, _ := newFakeDataAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "channels"):
			channelHits++
			if channelHits == 1 {
				http.Error(w, `{"error":{"code":500,"message":"backend"}}`, 500)
				return
			}
			fmt.Fprint(w, channelsJSON("UUabc"))
		case strings.Contains(r.URL.Path, "playlistItems"):
			fmt.Fprintf(w, `{"items":[%s]}`, playlistItemJSON("vid789", now.Add(-15*time.Second)))
		}
	}))

	var sleeps []time.Duration
	poller := NewDiscoveryPoller(svc, DiscoveryConfig{}, nil)
	poller.SetSleepFunc(instantSleep(&sleeps))
	poller.now = func() time.Time { return now }

	id, err := poller.FindRecentUpload(context.Background())
	if err != nil {
		t.Fatalf("FindRecentUpload() error = %v, resolution failure must consume an attempt, not abort", err)
	}
	if id != "vid789" {
		t.Errorf("video id = %q, want vid789 from the second attempt", id)
	}
	if channelHits != 2 {
		t.Errorf("channels hit %d times, want 2", channelHits)
	}
}

func TestFindRecentUpload_PlaylistResolvedOnce(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	channelHits := 0
	itemHits := 0
	svc, _ := newFakeDataAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "channels"):
			channelHits++
			fmt.Fprint(w, channelsJSON("UUabc"))
		case strings.Contains(r.URL.Path, "playlistItems"):
			itemHits++
			if itemHits < 3 {
				fmt.Fprint(w, `{"items":[]}`)
				return
			}
			fmt.Fprintf(w, `{"items":[%s]}`, playlistItemJSON("vidLate", now.Add(-time.Second)))
		}
	}))

	var sleeps []time.Duration
	poller := NewDiscoveryPoller(svc, DiscoveryConfig{}, nil)
	poller.SetSleepFunc(instantSleep(&sleeps))
	poller.now = func() time.Time { return now }

	id, err := poller.FindRecentUpload(context.Background())
	if err != nil {
		t.Fatalf("FindRecentUpload() error = %v", err)
	}
	if id != "vidLate" {
		t.Errorf("video id = %q, want vidLate", id)
	}
	if channelHits != 1 {
		t.Errorf("channels hit %d times, want 1 (playlist id is cached across attempts)", channelHits)
	}
}

func TestFindRecentUpload_NoChannel(t *testing.T) {
	svc, _ := newFakeDataAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[]}`)
	}))

	var sleeps []time.Duration
	poller := NewDiscoveryPoller(svc, DiscoveryConfig{}, nil)
	poller.SetSleepFunc(instantSleep(&sleeps))

	id, err := poller.FindRecentUpload(context.Background())
	if err != nil {
		t.Fatalf("FindRecentUpload() error = %v, missing channel must degrade to not-found", err)
	}
	if id != "" {
		t.Errorf("video id = %q, want empty", id)
	}
}

func TestFindRecentUpload_CancellationSurfaces(t *testing.T) {
	svc, _ := newFakeDataAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, channelsJSON("UUabc"))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	poller := NewDiscoveryPoller(svc, DiscoveryConfig{}, nil)
	poller.SetSleepFunc(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	})

	_, err := poller.FindRecentUpload(ctx)
	if err == nil {
		t.Fatal("FindRecentUpload() error = nil, want context error")
	}
}

func TestFindRecentUpload_RecordsQuota(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newFakeDataAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "channels"):
			fmt.Fprint(w, channelsJSON("UUabc"))
		case strings.Contains(r.URL.Path, "playlistItems"):
			fmt.Fprintf(w, `{"items":[%s]}`, playlistItemJSON("vid", now.Add(-time.Second)))
		}
	}))

	quota := NewQuotaAuditor(0)
	before := quota.EstimatedRemaining()

	var sleeps []time.Duration
	poller := NewDiscoveryPoller(svc, DiscoveryConfig{}, quota)
	poller.SetSleepFunc(instantSleep(&sleeps))
	poller.now = func() time.Time { return now }

	if _, err := poller.FindRecentUpload(context.Background()); err != nil {
		t.Fatalf("FindRecentUpload() error = %v", err)
	}

	// channels.list + one playlistItems.list
	if got := before - quota.EstimatedRemaining(); got != 2*QuotaCostList {
		t.Errorf("quota spent = %d, want %d", got, 2*QuotaCostList)
	}
}
