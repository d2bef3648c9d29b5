package ytupload

import (
	"context"
	"fmt"

	"ytupload/config"
	ythttp "ytupload/http"
	"ytupload/oauth"
	"ytupload/retry"
	"ytupload/storage"
	"ytupload/youtube"
)

// App wires the whole stack together: configuration, token storage, the
// OAuth session, and the provider-facing operations. Most callers only need
// Uploader and Session; the rest is exposed for finer-grained use.
type App struct {
	Config   *config.Config
	Store    storage.TokenStore
	Session  *oauth.SessionManager
	HTTP     *ythttp.Client
	Quota    *youtube.QuotaAuditor
	Uploader *youtube.Uploader
	Catalog  *youtube.Catalog
}

// New builds a fully wired App. A nil cfg loads configuration from the
// environment and config file.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return nil, err
		}
	}

	store, err := newTokenStore(cfg)
	if err != nil {
		return nil, err
	}

	session := oauth.NewSessionManager(oauth.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
	}, store)

	retryCfg := retry.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
		Multiplier:     cfg.BackoffMultiplier,
		JitterFraction: retry.DefaultConfig().JitterFraction,
	}

	httpCfg := ythttp.DefaultConfig()
	httpCfg.Retry = retryCfg
	client := ythttp.New(httpCfg)
	client.SetTokenProvider(session)

	quota := youtube.NewQuotaAuditor(0)

	engine := youtube.NewUploadEngine(client, youtube.UploadConfig{
		ChunkSize:        cfg.ChunkSize,
		MaxChunks:        cfg.MaxChunks,
		NegotiateTimeout: cfg.NegotiateTimeout,
		ChunkTimeout:     cfg.ChunkTimeout,
	}, quota)

	svc, err := youtube.NewService(ctx, session.TokenSource(ctx))
	if err != nil {
		store.Close()
		return nil, err
	}

	poller := youtube.NewDiscoveryPoller(svc, youtube.DiscoveryConfig{
		InitialDelay:  cfg.PollInitialDelay,
		Attempts:      cfg.PollAttempts,
		Interval:      cfg.PollInterval,
		RecencyWindow: cfg.RecencyWindow,
	}, quota)

	// Catalog calls are single-attempt by themselves; the app supplies the
	// configured retry policy as the caller.
	catalog := youtube.NewCatalog(svc, quota)
	catalog.SetRetryPolicy(retryCfg)

	return &App{
		Config:   cfg,
		Store:    store,
		Session:  session,
		HTTP:     client,
		Quota:    quota,
		Uploader: youtube.NewUploader(engine, poller),
		Catalog:  catalog,
	}, nil
}

// newTokenStore picks the storage backend from configuration.
func newTokenStore(cfg *config.Config) (storage.TokenStore, error) {
	switch cfg.TokenBackend {
	case "sqlite":
		return storage.NewSQLiteTokenStore(cfg.TokenPath)
	case "file":
		return storage.NewFileTokenStore(cfg.TokenPath)
	default:
		return nil, fmt.Errorf("unknown token backend %q", cfg.TokenBackend)
	}
}

// Close releases the token store and HTTP resources.
func (a *App) Close() error {
	a.HTTP.Close()
	return a.Store.Close()
}
