package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const (
	// ClientID is the OAuth client the downstream agent registered; the
	// refresh exchange is only valid against it.
	ClientID = "9d1c250a-e61b-44d9-88ed-5944d1962f5e"
	// TokenURL is the fixed refresh endpoint.
	TokenURL = "https://console.anthropic.com/v1/oauth/token"
	// ProfileURL is the fixed account/organization lookup endpoint.
	ProfileURL = "https://api.anthropic.com/api/oauth/profile"
)

const refreshTimeout = 30 * time.Second

// Refresher exchanges a refresh token for a new access/refresh pair at the
// fixed token endpoint. One attempt per resolution; a failure is final for
// that resolution path.
type Refresher struct {
	// TokenURL and ClientID default to the fixed production values.
	TokenURL string
	ClientID string
	// Client defaults to an HTTP client with a bounded timeout.
	Client *http.Client
}

func (r *Refresher) tokenURL() string {
	if r.TokenURL != "" {
		return r.TokenURL
	}
	return TokenURL
}

func (r *Refresher) clientID() string {
	if r.ClientID != "" {
		return r.ClientID
	}
	return ClientID
}

func (r *Refresher) httpClient() *http.Client {
	if r.Client != nil {
		return r.Client
	}
	return &http.Client{Timeout: refreshTimeout}
}

// Refresh performs the form-encoded grant_type=refresh_token exchange and
// returns the renewed credential. Scopes and tier metadata carry over from
// the old credential; expiry is converted to an absolute millisecond
// timestamp. Any transport, status, or body problem wraps ErrRefreshFailed.
func (r *Refresher) Refresh(ctx context.Context, cred *OAuthCredential) (*OAuthCredential, error) {
	if cred.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token", ErrRefreshFailed)
	}
	cfg := oauth2.Config{
		ClientID: r.clientID(),
		Endpoint: oauth2.Endpoint{
			TokenURL:  r.tokenURL(),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient())
	src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: response missing access_token", ErrRefreshFailed)
	}
	renewed := &OAuthCredential{
		AccessToken:      token.AccessToken,
		RefreshToken:     token.RefreshToken,
		Scopes:           cred.Scopes,
		SubscriptionType: cred.SubscriptionType,
		RateLimitTier:    cred.RateLimitTier,
	}
	if renewed.RefreshToken == "" {
		renewed.RefreshToken = cred.RefreshToken
	}
	if !token.Expiry.IsZero() {
		renewed.ExpiresAt = token.Expiry.UnixMilli()
	}
	return renewed, nil
}
