package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
)

const (
	configDirEnv       = "CLAUDE_CONFIG_DIR"
	defaultConfigDir   = ".claude"
	credentialsFile    = ".credentials.json"
	identityFile       = ".claude.json"
	keychainServiceFmt = "Claude Code-%s-credentials"
	keychainService    = "Claude Code-credentials"
)

// ConfigDir returns the Claude configuration root: the CLAUDE_CONFIG_DIR
// override when set, otherwise ~/.claude.
func ConfigDir() string {
	if env := os.Getenv(configDirEnv); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, defaultConfigDir)
}

// CredentialsPath returns the plaintext credential file inside the config root.
func CredentialsPath() string {
	return filepath.Join(ConfigDir(), credentialsFile)
}

// IdentityPath returns the device identity file. It lives in the home
// directory, not the config root, and is shared with other fields the
// downstream agent maintains.
func IdentityPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, identityFile)
}

// KeychainService returns the secure-store service label. A non-default
// config root gets a distinct label so side-by-side installations do not
// read each other's credentials; the suffix is the first 8 hex characters
// of the sha256 of the root path.
func KeychainService() string {
	if os.Getenv(configDirEnv) == "" {
		return keychainService
	}
	sum := sha256.Sum256([]byte(ConfigDir()))
	return fmt.Sprintf(keychainServiceFmt, hex.EncodeToString(sum[:])[:8])
}

// KeychainAccount returns the OS user identity used as the secure-store
// account label.
func KeychainAccount() string {
	if env := os.Getenv("USER"); env != "" {
		return env
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}
