// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSecret(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadSkipsNoise(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, ContactKey, "  ops@example.org \n")
	writeSecret(t, dir, "mirror-token", "tok_1")
	writeSecret(t, dir, "blank", " \n\t")
	writeSecret(t, dir, ".gitkeep", "")
	writeSecret(t, dir, ".hidden", "nope")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	got, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{ContactKey: "ops@example.org", "mirror-token": "tok_1"}, got)
}

func TestLoadMissingOrEmptyDir(t *testing.T) {
	for _, dir := range []string{filepath.Join(t.TempDir(), "absent"), t.TempDir()} {
		got, err := Load(dir, nil)
		require.NoError(t, err)
		assert.Empty(t, got, dir)
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores permission bits")
	}
	dir := t.TempDir()
	writeSecret(t, dir, ContactKey, "ops@example.org")
	bad := filepath.Join(dir, "locked")
	require.NoError(t, os.WriteFile(bad, []byte("x"), 0o000))
	t.Cleanup(func() { os.Chmod(bad, 0o644) })

	got, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{ContactKey: "ops@example.org"}, got)
}

func TestUserAgent(t *testing.T) {
	contact := map[string]string{ContactKey: "ops@example.org"}

	assert.Equal(t, "wikiplace/0.1", UserAgent("wikiplace/0.1", nil))
	assert.Equal(t, "wikiplace/0.1", UserAgent("wikiplace/0.1", map[string]string{"other": "x"}))
	assert.Equal(t, "wikiplace/0.1 (ops@example.org)", UserAgent("wikiplace/0.1", contact))
	assert.Equal(t, "wikiplace/0.1 (ops@example.org)",
		UserAgent("wikiplace/0.1 (ops@example.org)", contact), "contact is not appended twice")
}

func TestUserAgentFromLoadedSecrets(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, ContactKey, "https://example.org/contact\n")

	s, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "wikiplace/0.1 (https://example.org/contact)", UserAgent("wikiplace/0.1", s))
}
