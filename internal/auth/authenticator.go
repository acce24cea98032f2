// Package auth refreshes and caches the OAuth bearer token used by every
// downstream HTTP and websocket client in the worker.
package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bcsmcp/ingestion-worker/internal/domain"
)

// tokenSafetyMargin is subtracted from the token's reported lifetime so a
// caller never hands out a token that expires mid-request.
const tokenSafetyMargin = 60 * time.Second

// Authenticator implements domain.TokenSource with a refresh-token grant
// against TokenURL. A single token is cached and refreshed under a mutex so
// concurrent callers never trigger a refresh stampede.
type Authenticator struct {
	tokenURL     string
	clientID     string
	refreshToken string
	httpClient   *http.Client
	log          zerolog.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// New builds an Authenticator. httpClient may be nil, in which case a client
// with a 15s timeout is used.
func New(tokenURL, clientID, refreshToken string, httpClient *http.Client, log zerolog.Logger) *Authenticator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Authenticator{
		tokenURL:     tokenURL,
		clientID:     clientID,
		refreshToken: refreshToken,
		httpClient:   httpClient,
		log:          log,
	}
}

// GetAccessToken returns a cached token if it still has more than
// tokenSafetyMargin left on its lifetime, otherwise it refreshes first.
func (a *Authenticator) GetAccessToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && time.Now().Before(a.expiresAt.Add(-tokenSafetyMargin)) {
		return a.token, nil
	}
	if err := a.refreshLocked(ctx); err != nil {
		return "", err
	}
	return a.token, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (a *Authenticator) refreshLocked(ctx context.Context) error {
	form := url.Values{}
	form.Set("client_id", a.clientID)
	form.Set("refresh_token", a.refreshToken)
	form.Set("grant_type", "refresh_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		a.log.Error().Int("status", resp.StatusCode).Msg("token refresh failed")
		msg := string(body)
		if len(msg) > 500 {
			msg = msg[:500]
		}
		return &domain.AuthError{Status: resp.StatusCode, Body: msg}
	}

	parsed, err := decodeToken(body)
	if err != nil {
		return err
	}

	a.token = parsed.AccessToken
	a.expiresAt = time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second)
	a.log.Info().Time("expires_at", a.expiresAt).Msg("token refreshed")
	return nil
}

func decodeToken(body []byte) (tokenResponse, error) {
	var parsed tokenResponse
	err := json.Unmarshal(body, &parsed)
	return parsed, err
}
