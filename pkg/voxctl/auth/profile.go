package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const profileTimeout = 30 * time.Second

// Profile holds the account and organization identifiers the API expects
// in request metadata, resolved from a valid access token.
type Profile struct {
	Account struct {
		UUID  string `json:"uuid"`
		Email string `json:"email_address"`
	} `json:"account"`
	Organization struct {
		UUID          string `json:"uuid"`
		Name          string `json:"name"`
		RateLimitTier string `json:"rate_limit_tier"`
	} `json:"organization"`
}

// ProfileFetcher looks up account/organization identifiers at the fixed
// profile endpoint. A failure here never invalidates the credential that
// authorized the call.
type ProfileFetcher struct {
	ProfileURL string
	Client     *http.Client
}

func (f *ProfileFetcher) profileURL() string {
	if f.ProfileURL != "" {
		return f.ProfileURL
	}
	return ProfileURL
}

func (f *ProfileFetcher) httpClient() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return &http.Client{Timeout: profileTimeout}
}

func (f *ProfileFetcher) Fetch(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.profileURL(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile fetch failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile fetch failed: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("profile fetch failed: %w", err)
	}
	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile response: %w", err)
	}
	return &profile, nil
}
