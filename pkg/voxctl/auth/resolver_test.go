package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingSource tracks whether it was consulted.
type recordingSource struct {
	name     string
	resolved *ResolvedAuth
	err      error
	called   bool
}

func (s *recordingSource) Name() string { return s.name }

func (s *recordingSource) Resolve(context.Context) (*ResolvedAuth, error) {
	s.called = true
	if s.err != nil {
		return nil, s.err
	}
	return s.resolved, nil
}

func clearAuthEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{EnvBearerToken, EnvOAuthToken, EnvOAuthFD, EnvAPIKey, EnvAPIKeyFD} {
		t.Setenv(env, "")
	}
}

func testResolver(t *testing.T, cfg ResolverConfig) *Resolver {
	t.Helper()
	if cfg.CredentialsPath == "" {
		cfg.CredentialsPath = filepath.Join(t.TempDir(), ".credentials.json")
	}
	if cfg.GOOS == "" {
		cfg.GOOS = "linux"
	}
	return NewResolver(cfg, zap.NewNop())
}

func TestResolveShortCircuits(t *testing.T) {
	first := &recordingSource{name: "first", resolved: &ResolvedAuth{Method: MethodOAuth, AccessToken: "tok", Source: "first"}}
	second := &recordingSource{name: "second", err: ErrNotFound}

	resolver := NewResolverWithSources(zap.NewNop(), first, second)
	resolved, err := resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", resolved.Source)
	assert.True(t, first.called)
	assert.False(t, second.called, "lower-precedence source must not be consulted")
}

func TestResolveFallsThroughFailures(t *testing.T) {
	sources := []Source{
		&recordingSource{name: "empty", err: ErrNotFound},
		&recordingSource{name: "garbled", err: ErrMalformed},
		&recordingSource{name: "stale", err: ErrRefreshFailed},
		&recordingSource{name: "last", resolved: &ResolvedAuth{Method: MethodAPIKey, APIKey: "sk-ant-api03-k", Source: "last"}},
	}
	resolver := NewResolverWithSources(zap.NewNop(), sources...)
	resolved, err := resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "last", resolved.Source)
}

func TestResolveExhausted(t *testing.T) {
	resolver := NewResolverWithSources(zap.NewNop(), &recordingSource{name: "empty", err: ErrNotFound})
	_, err := resolver.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestResolveSurfacesPermissionViolation(t *testing.T) {
	after := &recordingSource{name: "after", resolved: &ResolvedAuth{Method: MethodAPIKey, APIKey: "k"}}
	resolver := NewResolverWithSources(zap.NewNop(),
		&recordingSource{name: "store", err: ErrInsecurePermissions},
		after,
	)
	_, err := resolver.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrInsecurePermissions)
	assert.False(t, after.called)
}

func TestResolveBearerOverridesEverything(t *testing.T) {
	clearAuthEnv(t)
	t.Setenv(EnvBearerToken, "legacy-bearer")
	t.Setenv(EnvOAuthToken, "sk-ant-oat01-ignored")

	resolved, err := testResolver(t, ResolverConfig{}).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MethodOAuth, resolved.Method)
	assert.Equal(t, "legacy-bearer", resolved.AccessToken)
	assert.Equal(t, "env:"+EnvBearerToken, resolved.Source)
}

func TestResolveOAuthEnvVerbatim(t *testing.T) {
	// Scenario: OAuth env var set, empty credential file.
	clearAuthEnv(t)
	t.Setenv(EnvOAuthToken, "sk-ant-oat01-abc")

	resolved, err := testResolver(t, ResolverConfig{}).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MethodOAuth, resolved.Method)
	assert.Equal(t, "sk-ant-oat01-abc", resolved.AccessToken)
	require.NotNil(t, resolved.Credential)
	assert.True(t, resolved.Credential.IsSubscription(), "env token carries the assumed inference scope")
}

func TestResolveStoreRefreshesExpired(t *testing.T) {
	// Scenario: stored credential expired long ago; the refresh endpoint
	// returns a new pair; the file reflects the renewed credential.
	clearAuthEnv(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token": "sk-ant-oat01-renewed", "refresh_token": "sk-ant-ort01-renewed", "expires_in": 3600, "token_type": "Bearer"}`))
	}))
	t.Cleanup(server.Close)

	path := filepath.Join(t.TempDir(), ".credentials.json")
	stale := &OAuthCredential{
		AccessToken:  "sk-ant-oat01-stale",
		RefreshToken: "sk-ant-ort01-stale",
		ExpiresAt:    time.Now().Add(-3 * time.Hour).UnixMilli(),
		Scopes:       []string{ScopeInference},
	}
	encoded, err := EncodeCredentials(nil, stale)
	require.NoError(t, err)
	require.NoError(t, (&FileStore{Path: path}).WriteRaw(encoded))

	resolver := testResolver(t, ResolverConfig{
		CredentialsPath: path,
		Refresher:       &Refresher{TokenURL: server.URL},
	})
	resolved, err := resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-oat01-renewed", resolved.AccessToken)

	raw, err := (&FileStore{Path: path}).ReadRaw()
	require.NoError(t, err)
	persisted, err := ParseCredentials(raw)
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-oat01-renewed", persisted.AccessToken)
	assert.Equal(t, "sk-ant-ort01-renewed", persisted.RefreshToken)
	assert.Equal(t, resolved.Credential.ExpiresAt, persisted.ExpiresAt)
}

func TestResolveStoreMissingInferenceScope(t *testing.T) {
	// Scenario: stored credential only grants user:profile and there is no
	// fallback material anywhere.
	clearAuthEnv(t)

	path := filepath.Join(t.TempDir(), ".credentials.json")
	cred := &OAuthCredential{
		AccessToken: "sk-ant-oat01-profile-only",
		Scopes:      []string{"user:profile"},
	}
	encoded, err := EncodeCredentials(nil, cred)
	require.NoError(t, err)
	require.NoError(t, (&FileStore{Path: path}).WriteRaw(encoded))

	_, err = testResolver(t, ResolverConfig{CredentialsPath: path}).Resolve(context.Background())
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestResolveKeychainDeniedFallsBackToFile(t *testing.T) {
	// Scenario: secure store read is denied; the file holds a valid
	// unexpired credential; the store failure never surfaces.
	clearAuthEnv(t)

	path := filepath.Join(t.TempDir(), ".credentials.json")
	cred := &OAuthCredential{
		AccessToken:  "sk-ant-oat01-file",
		RefreshToken: "sk-ant-ort01-file",
		ExpiresAt:    time.Now().Add(2 * time.Hour).UnixMilli(),
		Scopes:       []string{ScopeInference},
	}
	encoded, err := EncodeCredentials(nil, cred)
	require.NoError(t, err)
	require.NoError(t, (&FileStore{Path: path}).WriteRaw(encoded))

	resolver := testResolver(t, ResolverConfig{
		CredentialsPath: path,
		Service:         "svc",
		Account:         "alice",
		Keyring:         &fakeKeyring{err: assert.AnError},
		GOOS:            "darwin",
	})
	resolved, err := resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-oat01-file", resolved.AccessToken)
}

func TestResolveRefreshFailureFallsThroughToAPIKey(t *testing.T) {
	clearAuthEnv(t)
	t.Setenv(EnvAPIKey, "sk-ant-api03-fallback")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": "invalid_grant"}`, http.StatusBadRequest)
	}))
	t.Cleanup(server.Close)

	path := filepath.Join(t.TempDir(), ".credentials.json")
	stale := &OAuthCredential{
		AccessToken:  "sk-ant-oat01-stale",
		RefreshToken: "sk-ant-ort01-stale",
		ExpiresAt:    time.Now().Add(-time.Hour).UnixMilli(),
		Scopes:       []string{ScopeInference},
	}
	encoded, err := EncodeCredentials(nil, stale)
	require.NoError(t, err)
	require.NoError(t, (&FileStore{Path: path}).WriteRaw(encoded))

	resolver := testResolver(t, ResolverConfig{
		CredentialsPath: path,
		Refresher:       &Refresher{TokenURL: server.URL},
	})
	resolved, err := resolver.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MethodAPIKey, resolved.Method)
	assert.Equal(t, "sk-ant-api03-fallback", resolved.APIKey)
}

func TestResolveNothingAnywhere(t *testing.T) {
	clearAuthEnv(t)
	_, err := testResolver(t, ResolverConfig{}).Resolve(context.Background())
	assert.ErrorIs(t, err, ErrNoCredential)
}
