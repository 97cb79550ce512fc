package icd11

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// tokenSkew is subtracted from the server-reported lifetime so a token is
// refreshed before the server starts rejecting it. Lifetimes shorter than
// twice the skew lose half their length instead.
const tokenSkew = 60 * time.Second

func expiresAt(now time.Time, ttl time.Duration) time.Time {
	return now.Add(ttl - min(tokenSkew, ttl/2))
}

// ErrNoCredentials is returned when authentication is attempted without a
// client id and secret.
var ErrNoCredentials = errors.New("icd11: missing WHO_CLIENT_ID or WHO_CLIENT_SECRET")

// AuthToken is a bearer token and the instant it should be considered stale.
type AuthToken struct {
	Value     string
	ExpiresAt time.Time
}

type tokenResponse struct {
	AccessToken string  `json:"access_token"`
	ExpiresIn   float64 `json:"expires_in"`
	TokenType   string  `json:"token_type"`
}

// tokenSource holds the current token. Concurrent callers may both decide
// to refresh; the last writer wins.
type tokenSource struct {
	cfg    Config
	http   *http.Client
	now    func() time.Time
	logger zerolog.Logger

	mu    sync.Mutex
	token *AuthToken
}

func (s *tokenSource) current() *AuthToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil || !s.now().Before(s.token.ExpiresAt) {
		return nil
	}
	t := *s.token
	return &t
}

func (s *tokenSource) invalidate() {
	s.mu.Lock()
	s.token = nil
	s.mu.Unlock()
}

// ensure returns a valid token value, authenticating when there is none or
// it has expired. It returns "" when authentication fails.
func (s *tokenSource) ensure(ctx context.Context) string {
	if t := s.current(); t != nil {
		return t.Value
	}
	t, err := s.authenticate(ctx)
	if err != nil {
		return ""
	}
	if !s.now().Before(t.ExpiresAt) {
		s.logger.Warn().Time("expires_at", t.ExpiresAt).Msg("WHO ICD-11 token expired on arrival")
		return ""
	}
	return t.Value
}

func (s *tokenSource) authenticate(ctx context.Context) (*AuthToken, error) {
	if !s.cfg.HasCredentials() {
		s.logger.Warn().Msg("WHO ICD-11 credentials not configured")
		return nil, ErrNoCredentials
	}

	form := url.Values{
		"client_id":     {s.cfg.ClientID},
		"client_secret": {s.cfg.ClientSecret},
		"scope":         {s.cfg.Scope},
		"grant_type":    {grantType},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		s.logger.Error().Err(err).Msg("WHO ICD-11 authentication failed")
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.logger.Error().Int("status", resp.StatusCode).Str("body", string(body)).Msg("WHO ICD-11 authentication rejected")
		return nil, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		s.logger.Error().Err(err).Msg("WHO ICD-11 token response unreadable")
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		s.logger.Error().Msg("WHO ICD-11 token response had no access_token")
		return nil, errors.New("no access token received")
	}

	t := &AuthToken{
		Value:     tr.AccessToken,
		ExpiresAt: expiresAt(s.now(), time.Duration(tr.ExpiresIn*float64(time.Second))),
	}
	s.mu.Lock()
	s.token = t
	s.mu.Unlock()

	s.logger.Info().Time("expires_at", t.ExpiresAt).Msg("WHO ICD-11 authentication successful")
	out := *t
	return &out, nil
}
