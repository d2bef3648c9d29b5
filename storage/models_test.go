package storage

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validToken() *OAuthToken {
	return &OAuthToken{
		AccessToken:  "ya29.a0AfH6SMBx7pLq",
		TokenType:    "Bearer",
		RefreshToken: "1//0gFh3xRtYuIopQ",
		ExpiresIn:    3600,
		Created:      time.Now(),
	}
}

func TestOAuthToken_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*OAuthToken)
		wantErr bool
	}{
		{"valid", func(tok *OAuthToken) {}, false},
		{"missing access token", func(tok *OAuthToken) { tok.AccessToken = "" }, true},
		{"short access token", func(tok *OAuthToken) { tok.AccessToken = "short" }, true},
		{"missing token type", func(tok *OAuthToken) { tok.TokenType = "" }, true},
		{"wrong token type", func(tok *OAuthToken) { tok.TokenType = "MAC" }, true},
		{"no refresh token is fine", func(tok *OAuthToken) { tok.RefreshToken = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := validToken()
			tt.mutate(tok)
			err := tok.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Validate() error should wrap ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestOAuthToken_IsExpired(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		created time.Time
		ttl     int64
		want    bool
	}{
		{"fresh", now.Add(-1 * time.Minute), 3600, false},
		{"past expiry", now.Add(-2 * time.Hour), 3600, true},
		{"inside leeway window", now.Add(-time.Duration(3600)*time.Second + 10*time.Second), 3600, true},
		{"unknown lifetime", now, 0, true},
		{"unknown issue time", time.Time{}, 3600, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := validToken()
			tok.Created = tt.created
			tok.ExpiresIn = tt.ttl
			if got := tok.IsExpired(now); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOAuthToken_EssentialFieldsEqual(t *testing.T) {
	a := validToken()
	b := a.Clone()
	if !a.EssentialFieldsEqual(b) {
		t.Error("clone should compare equal")
	}

	b.Created = b.Created.Add(time.Hour)
	if !a.EssentialFieldsEqual(b) {
		t.Error("created timestamp is not an essential field")
	}

	b.RefreshToken = "different-refresh"
	if a.EssentialFieldsEqual(b) {
		t.Error("refresh_token change should break equality")
	}

	if a.EssentialFieldsEqual(nil) {
		t.Error("nil should never compare equal")
	}
}

func TestRedactSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"short", "[REDACTED]"},
		{"12345678", "[REDACTED]"},
		{"ya29.a0AfH6SMBx7pLq", "ya29...7pLq"},
	}

	for _, tt := range tests {
		if got := RedactSecret(tt.in); got != tt.want {
			t.Errorf("RedactSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOAuthToken_SanitizedHidesSecrets(t *testing.T) {
	tok := validToken()
	s := tok.Sanitized()
	if strings.Contains(s, tok.AccessToken) || strings.Contains(s, tok.RefreshToken) {
		t.Errorf("Sanitized() leaked a full credential: %s", s)
	}
}
