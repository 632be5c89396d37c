// Package api is a minimal Anthropic messages client that authenticates
// with a resolved credential, either OAuth bearer or API key.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/voxterm/voxctl/pkg/voxctl/auth"
)

const (
	// BaseURL is the Anthropic API origin.
	BaseURL = "https://api.anthropic.com"

	apiVersion = "2023-06-01"
	userAgent  = "voxctl/1.0"
	// oauthBetas must accompany bearer-token requests.
	oauthBetas = "oauth-2025-04-20,interleaved-thinking-2025-05-14"

	clientTimeout = 60 * time.Second
)

// Client sends messages requests on behalf of one resolved credential.
type Client struct {
	resolved   *auth.ResolvedAuth
	httpClient *http.Client
	baseURL    string
	profileURL string
	deviceID   string
	sessionID  string

	accountUUID string
	orgUUID     string
}

// Option adjusts a Client at construction.
type Option func(*Client)

func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.httpClient = client }
}

func WithProfileURL(url string) Option {
	return func(c *Client) { c.profileURL = url }
}

// NewClient builds a client for the resolved credential. deviceID is the
// persisted device identity; a fresh session id is generated per client.
func NewClient(resolved *auth.ResolvedAuth, deviceID string, opts ...Option) *Client {
	c := &Client{
		resolved:   resolved,
		httpClient: &http.Client{Timeout: clientTimeout},
		baseURL:    BaseURL,
		deviceID:   deviceID,
		sessionID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchProfile resolves account and organization identifiers for request
// metadata. Only meaningful for OAuth credentials; API keys carry no
// account context and the call is a no-op for them.
func (c *Client) FetchProfile(ctx context.Context) error {
	if c.resolved.Method != auth.MethodOAuth {
		return nil
	}
	fetcher := &auth.ProfileFetcher{ProfileURL: c.profileURL, Client: c.httpClient}
	profile, err := fetcher.Fetch(ctx, c.resolved.AccessToken)
	if err != nil {
		return err
	}
	c.accountUUID = profile.Account.UUID
	c.orgUUID = profile.Organization.UUID
	return nil
}

// headers builds per-request headers for the active auth method.
func (c *Client) headers() http.Header {
	h := http.Header{}
	h.Set("anthropic-version", apiVersion)
	h.Set("Content-Type", "application/json")
	h.Set("User-Agent", userAgent)
	if c.resolved.Method == auth.MethodOAuth {
		h.Set("Authorization", "Bearer "+c.resolved.AccessToken)
		h.Set("anthropic-beta", oauthBetas)
		h.Set("anthropic-dangerous-direct-browser-access", "true")
		h.Set("x-app", "cli")
	} else {
		h.Set("x-api-key", c.resolved.APIKey)
	}
	return h
}

// userID assembles the metadata user_id string. OAuth requests include the
// account identifier between device and session.
func (c *Client) userID() string {
	if c.resolved.Method == auth.MethodOAuth {
		return fmt.Sprintf("user_%s_account_%s_session_%s", c.deviceID, c.accountUUID, c.sessionID)
	}
	return fmt.Sprintf("user_%s_session_%s", c.deviceID, c.sessionID)
}

// MessageRequest is the messages API request body.
type MessageRequest struct {
	Model     string           `json:"model"`
	MaxTokens int              `json:"max_tokens"`
	Messages  []Message        `json:"messages"`
	System    []SystemBlock    `json:"system,omitempty"`
	Tools     []map[string]any `json:"tools,omitempty"`
	Metadata  *Metadata        `json:"metadata,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type SystemBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Metadata struct {
	UserID string `json:"user_id"`
}

// MessageResponse is the subset of the messages API response the caller
// consumes.
type MessageResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Role       string         `json:"role"`
	StopReason string         `json:"stop_reason"`
	Content    []ContentBlock `json:"content"`
}

type ContentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// SendMessage posts a messages request. The metadata user_id is filled in
// from the device/account/session identifiers; OAuth requests hit the beta
// endpoint variant.
func (c *Client) SendMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	req.Metadata = &Metadata{UserID: c.userID()}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/v1/messages"
	if c.resolved.Method == auth.MethodOAuth {
		url += "?beta=true"
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header = c.headers()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("messages request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("messages request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("messages request failed: status %d: %s", resp.StatusCode, truncate(respBody, 200))
	}
	var result MessageResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse messages response: %w", err)
	}
	return &result, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
