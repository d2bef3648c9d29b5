package config

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"sqlite backend", func(c *Config) { c.TokenBackend = "sqlite" }, false},
		{"unknown backend", func(c *Config) { c.TokenBackend = "redis" }, true},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }, true},
		{"negative max chunks", func(c *Config) { c.MaxChunks = -1 }, true},
		{"zero negotiate timeout", func(c *Config) { c.NegotiateTimeout = 0 }, true},
		{"zero chunk timeout", func(c *Config) { c.ChunkTimeout = 0 }, true},
		{"zero poll attempts", func(c *Config) { c.PollAttempts = 0 }, true},
		{"zero recency window", func(c *Config) { c.RecencyWindow = 0 }, true},
		{"max backoff below initial", func(c *Config) { c.MaxBackoff = c.InitialBackoff - 1 }, true},
		{"multiplier of one", func(c *Config) { c.BackoffMultiplier = 1.0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("YTUPLOAD_CLIENT_ID", "env-client")
	t.Setenv("YTUPLOAD_CHUNK_SIZE", "524288")
	t.Setenv("YTUPLOAD_TOKEN_BACKEND", "sqlite")
	t.Setenv("YTUPLOAD_POLL_INTERVAL", "10s")
	t.Setenv("YTUPLOAD_RECENCY_WINDOW", "2m")

	cfg := DefaultConfig()
	cfg.loadFromEnv()

	if cfg.ClientID != "env-client" {
		t.Errorf("ClientID = %q", cfg.ClientID)
	}
	if cfg.ChunkSize != 524288 {
		t.Errorf("ChunkSize = %d", cfg.ChunkSize)
	}
	if cfg.TokenBackend != "sqlite" {
		t.Errorf("TokenBackend = %q", cfg.TokenBackend)
	}
	if cfg.PollInterval != 10*time.Second {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.RecencyWindow != 2*time.Minute {
		t.Errorf("RecencyWindow = %v", cfg.RecencyWindow)
	}
}

func TestEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("YTUPLOAD_CHUNK_SIZE", "not-a-number")
	t.Setenv("YTUPLOAD_CHUNK_TIMEOUT", "soonish")

	cfg := DefaultConfig()
	cfg.loadFromEnv()

	if cfg.ChunkSize != 1<<20 {
		t.Errorf("ChunkSize = %d, want default", cfg.ChunkSize)
	}
	if cfg.ChunkTimeout != 60*time.Second {
		t.Errorf("ChunkTimeout = %v, want default", cfg.ChunkTimeout)
	}
}
