package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hostConfig = "<?php\n/* That's all, stop editing! Happy publishing. */\n"

func setupSite(t *testing.T, releaseURL string) (dir string) {
	t.Helper()
	dir = t.TempDir()
	site := filepath.Join(dir, "site")
	require.NoError(t, os.MkdirAll(site, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(site, "wp-config.php"), []byte(hostConfig), 0o644))

	cfg := fmt.Sprintf("database:\n  path: %s\nhost:\n  root: %s\nupdate:\n  url: %s\nlog:\n  level: error\n",
		filepath.Join(dir, "techmail.db"), site, releaseURL)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(cfg), 0o644))
	return dir
}

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", dir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func readHostConfig(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "site", "wp-config.php"))
	require.NoError(t, err)
	return string(data)
}

func TestAddressCommands(t *testing.T) {
	dir := setupSite(t, "http://127.0.0.1:1/release.json")

	out, err := run(t, dir, "resolve")
	require.NoError(t, err)
	assert.Contains(t, out, "sinan@tio.studio")
	assert.Contains(t, out, "not declared")

	out, err = run(t, dir, "apply", "ops@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Technical address: ops@example.com")
	assert.Contains(t, readHostConfig(t, dir), "define( 'RECOVERY_MODE_EMAIL', 'ops@example.com' );")

	out, err = run(t, dir, "resolve")
	require.NoError(t, err)
	assert.Contains(t, out, "wp-config.php: ops@example.com")

	_, err = run(t, dir, "apply", "not an address")
	assert.Error(t, err)

	_, err = run(t, dir, "remove")
	require.NoError(t, err)
	assert.Equal(t, hostConfig, readHostConfig(t, dir))
}

func TestCheckUpdateCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"version":"1.4.0","download_url":"https://example.com/p.zip"}`))
	}))
	defer server.Close()
	dir := setupSite(t, server.URL)

	out, err := run(t, dir, "check-update")
	require.NoError(t, err)
	assert.Contains(t, out, "Update available: 1.0.0 -> 1.4.0")

	out, err = run(t, dir, "check-update", "1.4.0", "--fresh")
	require.NoError(t, err)
	assert.Contains(t, out, "Up to date: 1.4.0")
}

func TestHashTokenCommand(t *testing.T) {
	out, err := run(t, t.TempDir(), "hash-token", "s3cret")
	require.NoError(t, err)
	assert.Contains(t, out, "Hash: $2a$")
	assert.NotContains(t, out, "Token:")

	out, err = run(t, t.TempDir(), "hash-token")
	require.NoError(t, err)
	assert.Contains(t, out, "Token: ")
}
