package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Environment variables consulted by the precedence chain.
const (
	EnvBearerToken = "ANTHROPIC_AUTH_TOKEN"
	EnvOAuthToken  = "CLAUDE_CODE_OAUTH_TOKEN"
	EnvOAuthFD     = "CLAUDE_CODE_OAUTH_TOKEN_FILE_DESCRIPTOR"
	EnvAPIKey      = "ANTHROPIC_API_KEY"
	EnvAPIKeyFD    = "CLAUDE_CODE_API_KEY_FILE_DESCRIPTOR"
)

// Source is one origin of credential material. Resolve returns ErrNotFound
// when the source has nothing; the resolver falls through in order.
type Source interface {
	Name() string
	Resolve(ctx context.Context) (*ResolvedAuth, error)
}

// envSource reads a single environment variable. Bearer and OAuth values
// become OAuth credentials with the assumed inference scope; they are used
// verbatim, never validated.
type envSource struct {
	env    string
	method Method
}

func (s *envSource) Name() string { return "env:" + s.env }

func (s *envSource) Resolve(context.Context) (*ResolvedAuth, error) {
	value := os.Getenv(s.env)
	if value == "" {
		return nil, ErrNotFound
	}
	return verbatimAuth(s.method, value, s.Name()), nil
}

// fdSource reads token material from an inherited file descriptor whose
// number is published in an environment variable. Best-effort: any parse
// or I/O failure is ErrNotFound, never a hard error.
type fdSource struct {
	env    string
	method Method
}

func (s *fdSource) Name() string { return "fd:" + s.env }

func (s *fdSource) Resolve(context.Context) (*ResolvedAuth, error) {
	value := os.Getenv(s.env)
	if value == "" {
		return nil, ErrNotFound
	}
	fd, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return nil, ErrNotFound
	}
	token, ok := readFD(fd)
	if !ok || token == "" {
		return nil, ErrNotFound
	}
	return verbatimAuth(s.method, token, s.Name()), nil
}

// readFD reads the descriptor-backed path for the running platform.
func readFD(fd int) (string, bool) {
	var path string
	switch runtime.GOOS {
	case "darwin", "freebsd":
		path = fmt.Sprintf("/dev/fd/%d", fd)
	case "windows":
		return "", false
	default:
		path = fmt.Sprintf("/proc/self/fd/%d", fd)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(content)), true
}

func verbatimAuth(method Method, token, source string) *ResolvedAuth {
	resolved := &ResolvedAuth{Method: method, Source: source}
	switch method {
	case MethodAPIKey:
		resolved.APIKey = token
	default:
		resolved.AccessToken = token
		resolved.Credential = &OAuthCredential{
			AccessToken: token,
			Scopes:      []string{ScopeInference},
		}
	}
	return resolved
}

// storeSource resolves from the platform credential store: parse, scope
// check, expiry check, refresh-and-writeback when expired.
type storeSource struct {
	store     Store
	refresher *Refresher
	log       *zap.Logger
	now       nowFunc
}

func (s *storeSource) Name() string { return "credential-store" }

func (s *storeSource) Resolve(ctx context.Context) (*ResolvedAuth, error) {
	raw, err := s.store.ReadRaw()
	if err != nil {
		return nil, err
	}
	cred, err := ParseCredentials(raw)
	if err != nil {
		return nil, err
	}
	if !cred.IsSubscription() {
		s.log.Debug("stored credential lacks inference scope", zap.Strings("scopes", cred.Scopes))
		return nil, ErrNotFound
	}
	if !cred.UsableAt(s.now()) {
		cred, err = s.refreshAndPersist(ctx, raw, cred)
		if err != nil {
			return nil, err
		}
	}
	return &ResolvedAuth{
		Method:      MethodOAuth,
		AccessToken: cred.AccessToken,
		Credential:  cred,
		Source:      s.Name(),
	}, nil
}

// refreshAndPersist exchanges the refresh token and writes the renewed
// credential back to the origin it was read from. A writeback failure is
// absorbed unless it is a permission-mode violation; the renewed
// credential is valid either way, a stale store only costs one extra
// refresh next run.
func (s *storeSource) refreshAndPersist(ctx context.Context, raw []byte, cred *OAuthCredential) (*OAuthCredential, error) {
	renewed, err := s.refresher.Refresh(ctx, cred)
	if err != nil {
		return nil, err
	}
	encoded, err := EncodeCredentials(raw, renewed)
	if err != nil {
		return nil, err
	}
	if err := s.store.WriteRaw(encoded); err != nil {
		if errors.Is(err, ErrInsecurePermissions) {
			return nil, err
		}
		s.log.Warn("failed to persist refreshed credential", zap.Error(err))
	}
	return renewed, nil
}
