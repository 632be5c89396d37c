package auth

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ScopeInference is the scope that marks an OAuth credential as granting
// subscription inference access. A credential without it is not usable for
// inference no matter how well-formed it is.
const ScopeInference = "user:inference"

// expiryBuffer is subtracted from a token's expiry before comparing against
// now, so a request never races token expiry mid-flight.
const expiryBuffer = 5 * time.Minute

// Token literal prefixes, diagnostic only. Nothing routes on these.
const (
	AccessTokenPrefix  = "sk-ant-oat01-"
	RefreshTokenPrefix = "sk-ant-ort01-"
	APIKeyPrefix       = "sk-ant-api03-"
)

// credentialKey is the JSON object key the downstream agent stores its OAuth
// material under, in both the plaintext file and the secure store.
const credentialKey = "claudeAiOauth"

// OAuthCredential is the stored OAuth token pair with its metadata.
// ExpiresAt is milliseconds since epoch; zero means no recorded expiry,
// which the expiry policy treats as never expiring.
type OAuthCredential struct {
	AccessToken      string   `json:"accessToken"`
	RefreshToken     string   `json:"refreshToken,omitempty"`
	ExpiresAt        int64    `json:"expiresAt,omitempty"`
	Scopes           []string `json:"scopes,omitempty"`
	SubscriptionType string   `json:"subscriptionType,omitempty"`
	RateLimitTier    string   `json:"rateLimitTier,omitempty"`
}

// IsSubscription reports whether the credential grants subscription-based
// inference access.
func (c *OAuthCredential) IsSubscription() bool {
	for _, scope := range c.Scopes {
		if scope == ScopeInference {
			return true
		}
	}
	return false
}

// UsableAt reports whether the credential can back a request starting at
// now, applying the safety buffer. Credentials without a recorded expiry
// are always usable.
func (c *OAuthCredential) UsableAt(now time.Time) bool {
	if c.ExpiresAt == 0 {
		return true
	}
	return now.UnixMilli() < c.ExpiresAt-expiryBuffer.Milliseconds()
}

// Method identifies how a resolved credential authenticates requests.
type Method string

const (
	MethodOAuth  Method = "oauth"
	MethodAPIKey Method = "api_key"
)

// ResolvedAuth is the outcome of a successful resolution: exactly one of
// the two token fields is set, per Method.
type ResolvedAuth struct {
	Method      Method
	AccessToken string
	APIKey      string
	// Credential carries the full stored credential when the resolution
	// came from the credential store; nil for env/fd material.
	Credential *OAuthCredential
	// Source names the source that produced the credential.
	Source string
}

// Token returns the bearer material regardless of method.
func (r *ResolvedAuth) Token() string {
	if r.Method == MethodAPIKey {
		return r.APIKey
	}
	return r.AccessToken
}

// ParseCredentials decodes the stored credential JSON (the object keyed
// claudeAiOauth) into a typed credential. A missing key or empty access
// token is ErrNotFound; undecodable JSON is ErrMalformed.
func ParseCredentials(raw []byte) (*OAuthCredential, error) {
	var file struct {
		ClaudeAiOauth *OAuthCredential `json:"claudeAiOauth"`
	}
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if file.ClaudeAiOauth == nil || strings.TrimSpace(file.ClaudeAiOauth.AccessToken) == "" {
		return nil, ErrNotFound
	}
	return file.ClaudeAiOauth, nil
}

// EncodeCredentials merges the credential into the existing stored JSON,
// preserving any sibling fields other tools keep in the same object.
func EncodeCredentials(existing []byte, cred *OAuthCredential) ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if len(existing) > 0 {
		// Undecodable existing content is replaced rather than propagated.
		_ = json.Unmarshal(existing, &fields)
	}
	encoded, err := json.Marshal(cred)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal credential: %w", err)
	}
	fields[credentialKey] = encoded
	return json.MarshalIndent(fields, "", "  ")
}
