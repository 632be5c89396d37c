package auth

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

type nowFunc func() time.Time

// Resolver walks an ordered list of credential sources and returns the
// first usable credential. The order itself is the contract; no source is
// consulted once an earlier one succeeds, and nothing runs concurrently.
type Resolver struct {
	sources []Source
	log     *zap.Logger
}

// ResolverConfig wires the default source chain. Zero values select the
// production paths, endpoint, and system clock.
type ResolverConfig struct {
	CredentialsPath string
	Service         string
	Account         string
	Keyring         KeyringBackend
	GOOS            string
	Refresher       *Refresher
	Now             func() time.Time
}

// NewResolver builds the fixed precedence chain:
// bearer env, OAuth env, OAuth fd, credential store, API key env, API key fd.
func NewResolver(cfg ResolverConfig, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	refresher := cfg.Refresher
	if refresher == nil {
		refresher = &Refresher{}
	}
	store := NewPlatformStore(StoreConfig{
		CredentialsPath: cfg.CredentialsPath,
		Service:         cfg.Service,
		Account:         cfg.Account,
		Keyring:         cfg.Keyring,
		GOOS:            cfg.GOOS,
	}, log)
	return &Resolver{
		sources: []Source{
			&envSource{env: EnvBearerToken, method: MethodOAuth},
			&envSource{env: EnvOAuthToken, method: MethodOAuth},
			&fdSource{env: EnvOAuthFD, method: MethodOAuth},
			&storeSource{store: store, refresher: refresher, log: log, now: now},
			&envSource{env: EnvAPIKey, method: MethodAPIKey},
			&fdSource{env: EnvAPIKeyFD, method: MethodAPIKey},
		},
		log: log,
	}
}

// NewResolverWithSources builds a resolver over an explicit chain, in the
// given order. Used by tests and by callers with nonstandard origins.
func NewResolverWithSources(log *zap.Logger, sources ...Source) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{sources: sources, log: log}
}

// Resolve returns the best available valid credential, or ErrNoCredential
// once every source is exhausted. Malformed sources and failed refreshes
// fall through; a credential-file permission violation on writeback is the
// one mid-chain error that surfaces.
func (r *Resolver) Resolve(ctx context.Context) (*ResolvedAuth, error) {
	for _, source := range r.sources {
		resolved, err := source.Resolve(ctx)
		if err == nil {
			r.log.Debug("resolved credentials", zap.String("source", source.Name()), zap.String("method", string(resolved.Method)))
			return resolved, nil
		}
		switch {
		case errors.Is(err, ErrNotFound):
			r.log.Debug("source empty", zap.String("source", source.Name()))
		case errors.Is(err, ErrMalformed):
			r.log.Warn("source held malformed credentials", zap.String("source", source.Name()), zap.Error(err))
		case errors.Is(err, ErrRefreshFailed):
			r.log.Warn("token refresh failed", zap.String("source", source.Name()), zap.Error(err))
		case errors.Is(err, ErrInsecurePermissions):
			return nil, err
		default:
			r.log.Warn("source failed", zap.String("source", source.Name()), zap.Error(err))
		}
	}
	return nil, ErrNoCredential
}
