package http

import (
	"context"
	"testing"
	"time"
)

func TestLimiterKey(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())

	tests := []struct {
		url  string
		want string
	}{
		{"https://www.googleapis.com/youtube/v3/videos", "www.googleapis.com"},
		{"https://www.googleapis.com/upload/youtube/v3/videos?uploadType=resumable", "upload/www.googleapis.com"},
		{"https://oauth2.googleapis.com/token", "oauth2.googleapis.com"},
		{"https://www.googleapis.com:443/youtube/v3/videos", "www.googleapis.com"},
		{"not a url at all ://", "unknown"},
	}

	for _, tt := range tests {
		if got := rl.limiterKey(tt.url); got != tt.want {
			t.Errorf("limiterKey(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestRateLimiter_UploadBudgetSeparateFromDataAPI(t *testing.T) {
	cfg := DefaultRateLimiterConfig()
	cfg.DataAPIRPS = 0.001 // effectively frozen after the first token
	cfg.UploadRPS = 10000
	rl := NewRateLimiter(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// Several upload-path requests must pass without consuming the Data
	// API bucket.
	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx, "https://www.googleapis.com/upload/youtube/v3/videos"); err != nil {
			t.Fatalf("upload Wait() %d error = %v", i, err)
		}
	}

	// First Data API request takes the burst token.
	if err := rl.Wait(ctx, "https://www.googleapis.com/youtube/v3/videos"); err != nil {
		t.Fatalf("data api Wait() error = %v", err)
	}
}

func TestRateLimiter_WaitHonorsContext(t *testing.T) {
	cfg := DefaultRateLimiterConfig()
	cfg.CustomRates = map[string]float64{"example.com": 0.001}
	rl := NewRateLimiter(cfg)

	ctx := context.Background()
	if err := rl.Wait(ctx, "https://example.com/a"); err != nil {
		t.Fatalf("first Wait() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx, "https://example.com/b"); err == nil {
		t.Error("second Wait() should fail when the context expires first")
	}
}

func TestRateLimiter_BackoffGrowth(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	url := "https://www.googleapis.com/youtube/v3/videos"

	first := rl.RecordRateLimitError(url, 0)
	second := rl.RecordRateLimitError(url, 0)
	third := rl.RecordRateLimitError(url, 0)

	if first != InitialBackoff {
		t.Errorf("first backoff = %v, want %v", first, InitialBackoff)
	}
	if second <= first || third <= second {
		t.Errorf("backoff must grow: %v, %v, %v", first, second, third)
	}
}

func TestRateLimiter_RetryAfterWins(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	url := "https://www.googleapis.com/youtube/v3/videos"

	got := rl.RecordRateLimitError(url, 45*time.Second)
	if got != 45*time.Second {
		t.Errorf("backoff = %v, want server-specified 45s", got)
	}
}

func TestRateLimiter_IsBackedOff(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	url := "https://www.googleapis.com/youtube/v3/videos"

	if rl.IsBackedOff(url) {
		t.Error("fresh limiter should not be backed off")
	}

	rl.RecordRateLimitError(url, time.Minute)
	if !rl.IsBackedOff(url) {
		t.Error("should be backed off after a rate limit error")
	}
}

func TestRateLimiter_RecordSuccessRecovers(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	url := "https://www.googleapis.com/youtube/v3/videos"

	rl.RecordRateLimitError(url, 0)
	state := rl.GetBackoffState(url)
	if state == nil || state.ConsecutiveErrors != 1 {
		t.Fatalf("backoff state = %+v", state)
	}

	rl.RecordSuccess(url)
	state = rl.GetBackoffState(url)
	if state == nil {
		t.Fatal("state should persist until cooldown")
	}
	if state.ConsecutiveErrors != 0 {
		t.Errorf("ConsecutiveErrors = %d, want 0 after success", state.ConsecutiveErrors)
	}
}
