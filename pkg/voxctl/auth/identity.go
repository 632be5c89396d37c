package auth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const identityField = "userID"

// IdentityStore manages the persistent device identity in the shared
// ~/.claude.json file. The file belongs to the downstream agent; only the
// userID field is ours to read or set, everything else is preserved as-is.
type IdentityStore struct {
	Path string
}

// LoadOrCreate returns the persisted device identity, generating and
// persisting a fresh one when the file has no well-formed userID.
// Concurrent first runs may race; last writer wins, which is fine because
// the identity only needs uniqueness, not coordination.
func (s *IdentityStore) LoadOrCreate() (string, error) {
	fields := map[string]json.RawMessage{}
	if content, err := os.ReadFile(s.Path); err == nil {
		// A file we cannot parse is treated as empty rather than clobbered;
		// the unknown fields map stays empty and the rewrite below replaces it.
		_ = json.Unmarshal(content, &fields)
		if raw, ok := fields[identityField]; ok {
			var id string
			if err := json.Unmarshal(raw, &id); err == nil && validIdentity(id) {
				return id, nil
			}
		}
	}

	id, err := newIdentity()
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(id)
	if err != nil {
		return "", err
	}
	fields[identityField] = encoded
	content, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return "", fmt.Errorf("failed to create identity dir: %w", err)
	}
	if err := os.WriteFile(s.Path, content, 0o600); err != nil {
		return "", fmt.Errorf("failed to persist device identity: %w", err)
	}
	return id, nil
}

// newIdentity renders 256 random bits as lowercase hex.
func newIdentity() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate device identity: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

func validIdentity(id string) bool {
	if len(id) != 64 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}
