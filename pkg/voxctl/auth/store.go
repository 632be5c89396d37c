package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/zalando/go-keyring"
	"go.uber.org/zap"
)

// Store is the two-operation capability every credential storage origin
// exposes. ReadRaw returns ErrNotFound when the origin holds nothing.
type Store interface {
	ReadRaw() ([]byte, error)
	WriteRaw(data []byte) error
	// Delete removes the stored credential. Deleting an absent credential
	// is not an error.
	Delete() error
}

// FileStore keeps the credential JSON in a single plaintext file with
// owner-only permissions.
type FileStore struct {
	Path string
}

func (s *FileStore) ReadRaw() ([]byte, error) {
	content, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return content, nil
}

// WriteRaw writes the credential file with mode 0600, tightening the mode
// first when the file already exists looser. A mode that cannot be
// enforced is a hard error: a readable credential file is a security
// regression, not a missing-file condition.
func (s *FileStore) WriteRaw(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create credential dir: %w", err)
	}
	if info, err := os.Stat(s.Path); err == nil && info.Mode().Perm()&0o077 != 0 {
		if err := os.Chmod(s.Path, 0o600); err != nil {
			return fmt.Errorf("%w: %v", ErrInsecurePermissions, err)
		}
	}
	if err := os.WriteFile(s.Path, data, 0o600); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %v", ErrInsecurePermissions, err)
		}
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete() error {
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// KeyringBackend is the slice of the OS secure store the engine touches.
// The real implementation shells out to the platform facility; tests swap
// in an in-memory fake.
type KeyringBackend interface {
	Get(service, account string) (string, error)
	Set(service, account, secret string) error
	Delete(service, account string) error
}

type systemKeyring struct{}

func (systemKeyring) Get(service, account string) (string, error) {
	return keyring.Get(service, account)
}

func (systemKeyring) Set(service, account, secret string) error {
	return keyring.Set(service, account, secret)
}

func (systemKeyring) Delete(service, account string) error {
	return keyring.Delete(service, account)
}

// KeyringStore reads and writes the credential JSON as a single secret in
// the OS secure store.
type KeyringStore struct {
	Service string
	Account string
	Backend KeyringBackend
}

func (s *KeyringStore) backend() KeyringBackend {
	if s.Backend != nil {
		return s.Backend
	}
	return systemKeyring{}
}

func (s *KeyringStore) ReadRaw() ([]byte, error) {
	secret, err := s.backend().Get(s.Service, s.Account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if secret == "" {
		return nil, ErrNotFound
	}
	return []byte(secret), nil
}

func (s *KeyringStore) WriteRaw(data []byte) error {
	return s.backend().Set(s.Service, s.Account, string(data))
}

func (s *KeyringStore) Delete() error {
	if err := s.backend().Delete(s.Service, s.Account); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// PlatformStore composes the secure store with the plaintext file. Reads
// try the secure store first and fall back to the file on any failure
// without surfacing the store error; writes go to whichever origin the
// credential was last successfully read from, so a refresh lands where the
// stale token lived.
type PlatformStore struct {
	secure   Store
	file     Store
	log      *zap.Logger
	fromFile bool
}

// StoreConfig selects the platform strategy and addresses both origins.
type StoreConfig struct {
	CredentialsPath string
	Service         string
	Account         string
	// Keyring overrides the system secure store, for tests.
	Keyring KeyringBackend
	// GOOS overrides runtime.GOOS, for tests.
	GOOS string
}

// NewPlatformStore builds the per-OS storage strategy: secure store with
// plaintext fallback on darwin, plaintext only everywhere else.
func NewPlatformStore(cfg StoreConfig, log *zap.Logger) *PlatformStore {
	if log == nil {
		log = zap.NewNop()
	}
	goos := cfg.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	store := &PlatformStore{
		file: &FileStore{Path: cfg.CredentialsPath},
		log:  log,
	}
	if goos == "darwin" {
		store.secure = &KeyringStore{Service: cfg.Service, Account: cfg.Account, Backend: cfg.Keyring}
	}
	return store
}

func (s *PlatformStore) ReadRaw() ([]byte, error) {
	if s.secure != nil {
		raw, err := s.secure.ReadRaw()
		if err == nil {
			s.fromFile = false
			return raw, nil
		}
		if !errors.Is(err, ErrNotFound) {
			s.log.Debug("secure store read failed, falling back to credential file", zap.Error(err))
		}
	}
	raw, err := s.file.ReadRaw()
	if err != nil {
		return nil, err
	}
	s.fromFile = true
	return raw, nil
}

func (s *PlatformStore) WriteRaw(data []byte) error {
	if s.secure != nil && !s.fromFile {
		return s.secure.WriteRaw(data)
	}
	return s.file.WriteRaw(data)
}

func (s *PlatformStore) Delete() error {
	var firstErr error
	if s.secure != nil {
		firstErr = s.secure.Delete()
	}
	if err := s.file.Delete(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
