package testutil

import (
	"database/sql"
	"testing"

	"github.com/spf13/afero"

	"github.com/vrsandeep/techmail/internal/api"
	"github.com/vrsandeep/techmail/internal/config"
	"github.com/vrsandeep/techmail/internal/core"
	"github.com/vrsandeep/techmail/internal/logger"
)

// SiteRoot is the host root used by test apps. It holds a wp-config.php
// once WriteHostConfig has been called.
const SiteRoot = "/srv/site"

// HostConfig is a minimal wp-config.php with the editing sentinel.
const HostConfig = "<?php\n$table_prefix = 'wp_';\n\n/* That's all, stop editing! Happy publishing. */\nrequire_once ABSPATH . 'wp-settings.php';\n"

// TestConfig returns the default configuration pointed at SiteRoot and
// at updateURL for release descriptors.
func TestConfig(updateURL string) *config.Config {
	cfg := config.Default()
	cfg.Host.Root = SiteRoot
	cfg.Update.URL = updateURL
	return cfg
}

// SetupTestApp builds a core.App over an in-memory database and
// filesystem. cfg may be nil.
func SetupTestApp(t *testing.T, cfg *config.Config) *core.App {
	t.Helper()
	if cfg == nil {
		cfg = TestConfig("http://127.0.0.1:1/release.json")
	}
	app, err := core.NewWithDeps(cfg, SetupTestDB(t), afero.NewMemMapFs(), logger.Discard())
	if err != nil {
		t.Fatalf("Failed to build test app: %v", err)
	}
	app.Version = "test"
	return app
}

// WriteHostConfig writes content as the host's wp-config.php.
func WriteHostConfig(t *testing.T, app *core.App, content string) {
	t.Helper()
	if err := afero.WriteFile(app.Fs(), SiteRoot+"/wp-config.php", []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write host config: %v", err)
	}
}

// ReadHostConfig returns the host's wp-config.php.
func ReadHostConfig(t *testing.T, app *core.App) string {
	t.Helper()
	data, err := afero.ReadFile(app.Fs(), SiteRoot+"/wp-config.php")
	if err != nil {
		t.Fatalf("Failed to read host config: %v", err)
	}
	return string(data)
}

// SetupTestServer initializes a full core.App and api.Server for integration testing.
func SetupTestServer(t *testing.T, cfg *config.Config) (*api.Server, *sql.DB) {
	t.Helper()
	app := SetupTestApp(t, cfg)
	return api.NewServer(app), app.DB()
}
