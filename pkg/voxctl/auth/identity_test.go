package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hexIdentity = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestIdentityGeneratedOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".claude.json")
	store := &IdentityStore{Path: path}

	first, err := store.LoadOrCreate()
	require.NoError(t, err)
	assert.Regexp(t, hexIdentity, first)

	second, err := store.LoadOrCreate()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestIdentityPreservesOtherFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".claude.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"theme": "dark", "numStartups": 7}`), 0o600))

	store := &IdentityStore{Path: path}
	id, err := store.LoadOrCreate()
	require.NoError(t, err)
	assert.Regexp(t, hexIdentity, id)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(content, &fields))
	assert.Contains(t, fields, "theme")
	assert.Contains(t, fields, "numStartups")
	assert.Contains(t, fields, "userID")
}

func TestIdentityExistingReturnedUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".claude.json")
	existing := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	require.NoError(t, os.WriteFile(path, []byte(`{"userID": "`+existing+`"}`), 0o600))

	store := &IdentityStore{Path: path}
	id, err := store.LoadOrCreate()
	require.NoError(t, err)
	assert.Equal(t, existing, id)
}

func TestIdentityRejectsMalformedValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".claude.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"userID": "short"}`), 0o600))

	store := &IdentityStore{Path: path}
	id, err := store.LoadOrCreate()
	require.NoError(t, err)
	assert.NotEqual(t, "short", id)
	assert.Regexp(t, hexIdentity, id)
}
