// Package oauth manages the OAuth2 session against Google's authorization
// server: the consent URL, the code exchange, and the stored token's
// lifecycle including refresh.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"ytupload/storage"
)

// ErrAuthRequired indicates no usable token exists and the user must go
// through the consent flow again.
var ErrAuthRequired = errors.New("oauth: authorization required")

// Scopes requested during the consent flow.
var DefaultScopes = []string{
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/youtube.force-ssl",
	"https://www.googleapis.com/auth/youtube.upload",
}

// State describes the lifecycle position of the stored token.
type State int

const (
	StateNoToken State = iota
	StateValid
	StateExpired
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateNoToken:
		return "no_token"
	case StateValid:
		return "valid"
	case StateExpired:
		return "expired"
	case StateInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Config holds the OAuth client registration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string        // defaults to DefaultScopes
	Endpoint     oauth2.Endpoint // defaults to Google's authorization server
}

// SessionManager owns the stored token's lifecycle. All refreshes are
// serialized behind one mutex, so concurrent callers finding an expired
// token share a single refresh grant instead of racing each other.
type SessionManager struct {
	mu    sync.Mutex
	cfg   *oauth2.Config
	store storage.TokenStore
	now   func() time.Time
}

// NewSessionManager creates a session manager over the given token store.
func NewSessionManager(cfg Config, store storage.TokenStore) *SessionManager {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	return &SessionManager{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		store: store,
		now:   time.Now,
	}
}

// AuthURL returns the consent URL for the authorization-code flow.
// Offline access is requested so the grant includes a refresh token, and
// the prompt forces account selection plus consent so a refresh token is
// issued even on re-authorization.
func (m *SessionManager) AuthURL(state string) string {
	return m.cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "select_account consent"))
}

// Exchange trades an authorization code for a token and persists it.
func (m *SessionManager) Exchange(ctx context.Context, code string) (*storage.OAuthToken, error) {
	grant, err := m.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth: code exchange: %w", err)
	}

	tok := m.recordFromGrant(grant, "")
	if err := tok.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Save(ctx, tok); err != nil {
		return nil, err
	}
	log.Printf("oauth: authorized, token %s", tok.Sanitized())
	return tok, nil
}

// EnsureValidToken returns a token that is valid right now, refreshing and
// persisting a replacement when the stored one has expired. It returns
// ErrAuthRequired when no recovery path exists; the stored record is
// deleted in that case so later calls fail fast.
func (m *SessionManager) EnsureValidToken(ctx context.Context) (*storage.OAuthToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, err := m.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, ErrAuthRequired
	}

	if !tok.IsExpired(m.now()) {
		return tok, nil
	}

	if tok.RefreshToken == "" {
		log.Printf("oauth: token expired with no refresh token, re-authorization required")
		if err := m.store.Delete(ctx); err != nil {
			log.Printf("oauth: failed to delete stale token: %v", err)
		}
		return nil, ErrAuthRequired
	}

	return m.refresh(ctx, tok)
}

// refresh performs the refresh grant. Callers must hold m.mu.
func (m *SessionManager) refresh(ctx context.Context, old *storage.OAuthToken) (*storage.OAuthToken, error) {
	src := m.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: old.RefreshToken})
	grant, err := src.Token()
	if err != nil {
		if isPermanentRefreshError(err) {
			log.Printf("oauth: refresh rejected, deleting stored token: %v", err)
			if derr := m.store.Delete(ctx); derr != nil {
				log.Printf("oauth: failed to delete rejected token: %v", derr)
			}
			return nil, ErrAuthRequired
		}
		return nil, fmt.Errorf("oauth: token refresh: %w", err)
	}

	// The refresh grant may omit the refresh token; carry the previous one
	// forward. Rotation is honored when the grant does include a new one.
	tok := m.recordFromGrant(grant, old.RefreshToken)
	if err := tok.Validate(); err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, tok); err != nil {
		return nil, err
	}
	log.Printf("oauth: refreshed token %s", tok.Sanitized())
	return tok, nil
}

// recordFromGrant converts an oauth2 grant into the stored record shape.
// The record is built from scratch each time; stored records are replaced
// wholesale, never patched.
func (m *SessionManager) recordFromGrant(grant *oauth2.Token, previousRefresh string) *storage.OAuthToken {
	now := m.now()
	tok := &storage.OAuthToken{
		AccessToken:  grant.AccessToken,
		TokenType:    grant.TokenType,
		RefreshToken: grant.RefreshToken,
		Created:      now,
	}
	if tok.TokenType == "" {
		tok.TokenType = "Bearer"
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = previousRefresh
	}
	if !grant.Expiry.IsZero() {
		tok.ExpiresIn = int64(grant.Expiry.Sub(now).Seconds())
	}
	return tok
}

// IsAuthorized reports whether a valid token is available, refreshing if
// needed.
func (m *SessionManager) IsAuthorized(ctx context.Context) bool {
	_, err := m.EnsureValidToken(ctx)
	return err == nil
}

// CurrentState inspects the stored record without attempting a refresh.
func (m *SessionManager) CurrentState(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, err := m.store.Get(ctx)
	if err != nil {
		return StateNoToken, err
	}
	if tok == nil {
		return StateNoToken, nil
	}
	if err := tok.Validate(); err != nil {
		return StateInvalid, nil
	}
	if tok.IsExpired(m.now()) {
		return StateExpired, nil
	}
	return StateValid, nil
}

// Logout deletes the stored token. Logging out while already logged out is
// not an error.
func (m *SessionManager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Delete(ctx); err != nil {
		return err
	}
	log.Printf("oauth: logged out")
	return nil
}

// BearerToken returns the current access token, refreshing first when the
// stored one has expired.
func (m *SessionManager) BearerToken(ctx context.Context) (string, error) {
	tok, err := m.EnsureValidToken(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// TokenSource adapts the manager to oauth2.TokenSource so it can back an
// API client via option.WithTokenSource.
func (m *SessionManager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &managerTokenSource{m: m, ctx: ctx}
}

type managerTokenSource struct {
	m   *SessionManager
	ctx context.Context
}

func (s *managerTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.m.EnsureValidToken(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.ExpiresAt(),
	}, nil
}

// isPermanentRefreshError reports whether a refresh failure means the grant
// itself is dead, as opposed to a transient transport problem.
func isPermanentRefreshError(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= 400 && retrieveErr.Response.StatusCode < 500 {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"invalid_grant",
		"invalid_client",
		"unauthorized_client",
		"token has been expired or revoked",
		"revoked",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
