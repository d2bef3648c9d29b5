package storage

import (
	"fmt"
	"time"
)

const (
	// MinAccessTokenLength is the minimum plausible access token length.
	// Anything shorter is treated as corruption, not a credential.
	MinAccessTokenLength = 10

	// minRedactLength is the minimum secret length for safe partial logging.
	minRedactLength = 8

	// expiryLeeway is subtracted from the expiry instant so a token is
	// refreshed slightly before the provider would reject it.
	expiryLeeway = 30 * time.Second
)

// OAuthToken is the persisted OAuth2 token record for one account.
// Records are replaced wholesale on every save, never patched field by field.
type OAuthToken struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresIn    int64     `json:"expires_in,omitempty"` // lifetime in seconds from Created
	Scope        string    `json:"scope,omitempty"`
	Created      time.Time `json:"created"`
}

// Validate checks the structural shape of the record. A record that fails
// this check must never be persisted or handed to a caller.
func (t *OAuthToken) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidToken)
	}
	if t.AccessToken == "" {
		return fmt.Errorf("%w: missing access_token", ErrInvalidToken)
	}
	if len(t.AccessToken) < MinAccessTokenLength {
		return fmt.Errorf("%w: access_token shorter than %d characters", ErrInvalidToken, MinAccessTokenLength)
	}
	if t.TokenType == "" {
		return fmt.Errorf("%w: missing token_type", ErrInvalidToken)
	}
	if t.TokenType != "Bearer" {
		return fmt.Errorf("%w: token_type %q is not Bearer", ErrInvalidToken, t.TokenType)
	}
	return nil
}

// ExpiresAt returns the absolute expiry instant, or the zero time when the
// expiry is unknown.
func (t *OAuthToken) ExpiresAt() time.Time {
	if t.ExpiresIn <= 0 || t.Created.IsZero() {
		return time.Time{}
	}
	return t.Created.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// IsExpired reports whether the token should be refreshed before use.
// Tokens with unknown expiry count as expired.
func (t *OAuthToken) IsExpired(now time.Time) bool {
	exp := t.ExpiresAt()
	if exp.IsZero() {
		return true
	}
	return !now.Before(exp.Add(-expiryLeeway))
}

// EssentialFieldsEqual compares the fields that must survive a write intact.
// Save read-back verification relies on this.
func (t *OAuthToken) EssentialFieldsEqual(other *OAuthToken) bool {
	if t == nil || other == nil {
		return false
	}
	return t.AccessToken == other.AccessToken &&
		t.TokenType == other.TokenType &&
		t.RefreshToken == other.RefreshToken &&
		t.ExpiresIn == other.ExpiresIn
}

// Clone returns a copy so callers cannot mutate a stored record in place.
func (t *OAuthToken) Clone() *OAuthToken {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Sanitized returns a redacted view of the record safe for logging.
func (t *OAuthToken) Sanitized() string {
	if t == nil {
		return "<nil>"
	}
	return fmt.Sprintf("access_token=%s token_type=%s refresh_token=%s expires_in=%d",
		RedactSecret(t.AccessToken), t.TokenType, RedactSecret(t.RefreshToken), t.ExpiresIn)
}

// RedactSecret masks a credential for logging. Values long enough to stay
// unidentifiable keep their first and last 4 characters.
func RedactSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= minRedactLength {
		return "[REDACTED]"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
