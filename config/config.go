// Package config manages application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration for upload and token operations.
type Config struct {
	// ClientID is the OAuth client ID
	ClientID string `json:"client_id"`
	// ClientSecret is the OAuth client secret
	ClientSecret string `json:"client_secret"`
	// RedirectURL is the OAuth redirect URL for the authorization-code flow
	RedirectURL string `json:"redirect_url"`

	// TokenPath is where the file-backed token store keeps its record
	TokenPath string `json:"token_path"`
	// TokenBackend selects the token store: "file" or "sqlite"
	TokenBackend string `json:"token_backend"`

	// ChunkSize is the upload chunk size in bytes (default: 1 MiB)
	ChunkSize int64 `json:"chunk_size"`
	// MaxChunks bounds the number of chunk PUTs per upload
	MaxChunks int `json:"max_chunks"`
	// NegotiateTimeout is the timeout for the upload session handshake
	NegotiateTimeout time.Duration `json:"negotiate_timeout"`
	// ChunkTimeout is the per-chunk transfer timeout
	ChunkTimeout time.Duration `json:"chunk_timeout"`

	// PollAttempts is how many times the discovery poller checks for a new video
	PollAttempts int `json:"poll_attempts"`
	// PollInterval is the wait between discovery attempts
	PollInterval time.Duration `json:"poll_interval"`
	// PollInitialDelay is the wait before the first discovery attempt
	PollInitialDelay time.Duration `json:"poll_initial_delay"`
	// RecencyWindow is how recently a video must have been published to count
	// as the one just uploaded
	RecencyWindow time.Duration `json:"recency_window"`

	// MaxRetries is the maximum number of retries for failed operations
	MaxRetries int `json:"max_retries"`
	// InitialBackoff is the initial backoff duration for retries
	InitialBackoff time.Duration `json:"initial_backoff"`
	// MaxBackoff is the maximum backoff duration for retries
	MaxBackoff time.Duration `json:"max_backoff"`
	// BackoffMultiplier is the multiplier for exponential backoff (must be > 1)
	BackoffMultiplier float64 `json:"backoff_multiplier"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		TokenPath:         filepath.Join(os.Getenv("HOME"), ".config", "ytupload", "token.json"),
		TokenBackend:      "file",
		ChunkSize:         1 << 20, // 1 MiB
		MaxChunks:         10000,
		NegotiateTimeout:  30 * time.Second,
		ChunkTimeout:      60 * time.Second,
		PollAttempts:      5,
		PollInterval:      3 * time.Second,
		PollInitialDelay:  2 * time.Second,
		RecencyWindow:     5 * time.Minute,
		MaxRetries:        5,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Load loads configuration from environment variables, config file, and applies defaults.
// Priority: env vars > config file > defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Try to load from config file
	if err := cfg.loadFromFile(); err != nil {
		// Config file is optional
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	// Override with environment variables
	cfg.loadFromEnv()

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile attempts to load config from ytupload.json in current directory or home directory.
func (c *Config) loadFromFile() error {
	paths := []string{
		"ytupload.json",
		filepath.Join(os.Getenv("HOME"), ".config", "ytupload", "ytupload.json"),
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}

		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}

	return os.ErrNotExist
}

// loadFromEnv overrides config with environment variables.
func (c *Config) loadFromEnv() {
	if v := os.Getenv("YTUPLOAD_CLIENT_ID"); v != "" {
		c.ClientID = v
	}
	if v := os.Getenv("YTUPLOAD_CLIENT_SECRET"); v != "" {
		c.ClientSecret = v
	}
	if v := os.Getenv("YTUPLOAD_REDIRECT_URL"); v != "" {
		c.RedirectURL = v
	}
	if v := os.Getenv("YTUPLOAD_TOKEN_PATH"); v != "" {
		c.TokenPath = v
	}
	if v := os.Getenv("YTUPLOAD_TOKEN_BACKEND"); v != "" {
		c.TokenBackend = v
	}
	if v := os.Getenv("YTUPLOAD_CHUNK_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.ChunkSize = n
		}
	}
	if v := os.Getenv("YTUPLOAD_MAX_CHUNKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxChunks = n
		}
	}
	if v := os.Getenv("YTUPLOAD_NEGOTIATE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.NegotiateTimeout = d
		}
	}
	if v := os.Getenv("YTUPLOAD_CHUNK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.ChunkTimeout = d
		}
	}
	if v := os.Getenv("YTUPLOAD_POLL_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.PollAttempts = n
		}
	}
	if v := os.Getenv("YTUPLOAD_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.PollInterval = d
		}
	}
	if v := os.Getenv("YTUPLOAD_RECENCY_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RecencyWindow = d
		}
	}
	if v := os.Getenv("YTUPLOAD_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = n
		}
	}
	if v := os.Getenv("YTUPLOAD_INITIAL_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.InitialBackoff = d
		}
	}
	if v := os.Getenv("YTUPLOAD_MAX_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.MaxBackoff = d
		}
	}
}

// Validate checks that configuration values are valid and consistent.
// It returns an error if any configuration value is invalid.
func (c *Config) Validate() error {
	if c.TokenBackend != "file" && c.TokenBackend != "sqlite" {
		return fmt.Errorf("token_backend must be \"file\" or \"sqlite\"")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive")
	}
	if c.MaxChunks <= 0 {
		return fmt.Errorf("max_chunks must be positive")
	}
	if c.NegotiateTimeout <= 0 {
		return fmt.Errorf("negotiate_timeout must be positive")
	}
	if c.ChunkTimeout <= 0 {
		return fmt.Errorf("chunk_timeout must be positive")
	}
	if c.PollAttempts <= 0 {
		return fmt.Errorf("poll_attempts must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.RecencyWindow <= 0 {
		return fmt.Errorf("recency_window must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial_backoff must be positive")
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff must be >= initial_backoff")
	}
	if c.BackoffMultiplier <= 1 {
		return fmt.Errorf("backoff_multiplier must be > 1")
	}
	return nil
}
