package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("file values override defaults", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: "9999"
database:
  url: postgres://localhost/nociq
auth:
  secret_key: s3cret
log:
  level: debug
`)

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "9999", cfg.Server.Port)
		assert.Equal(t, "postgres://localhost/nociq", cfg.Database.URL)
		assert.Equal(t, "debug", cfg.Log.Level)

		// Untouched fields keep their defaults.
		assert.Equal(t, "postgres", cfg.Storage.Driver)
		assert.Equal(t, 5*time.Second, cfg.Geocoding.Timeout)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := writeConfig(t, `
database:
  url: postgres://localhost/nociq
auth:
  secret_key: s3cret
`)
		t.Setenv("NOCIQ_SERVER_PORT", "7777")

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "7777", cfg.Server.Port)
	})

	t.Run("multi-word keys bind from environment", func(t *testing.T) {
		t.Setenv("NOCIQ_DATABASE_URL", "postgres://localhost/nociq")
		t.Setenv("NOCIQ_AUTH_SECRET_KEY", "from-env")
		t.Setenv("NOCIQ_SERVER_METRICS_PORT", "9191")
		t.Setenv("NOCIQ_DATABASE_MAX_OPEN_CONNS", "42")

		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, "from-env", cfg.Auth.SecretKey)
		assert.Equal(t, "9191", cfg.Server.MetricsPort)
		assert.Equal(t, 42, cfg.Database.MaxOpenConns)
	})

	t.Run("firestore subsection binds from environment", func(t *testing.T) {
		t.Setenv("NOCIQ_STORAGE_DRIVER", "firestore")
		t.Setenv("NOCIQ_STORAGE_FIRESTORE_PROJECT_ID", "noc-prod")
		t.Setenv("NOCIQ_AUTH_SECRET_KEY", "s3cret")

		cfg, err := Load("")
		require.NoError(t, err)

		assert.Equal(t, "firestore", cfg.Storage.Driver)
		assert.Equal(t, "noc-prod", cfg.Storage.Firestore.ProjectID)
	})

	t.Run("postgres driver requires database url", func(t *testing.T) {
		path := writeConfig(t, `
auth:
  secret_key: s3cret
`)

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("firestore driver requires project id", func(t *testing.T) {
		path := writeConfig(t, `
storage:
  driver: firestore
auth:
  secret_key: s3cret
`)

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("unknown driver rejected", func(t *testing.T) {
		path := writeConfig(t, `
storage:
  driver: sqlite
auth:
  secret_key: s3cret
`)

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("missing secret key rejected", func(t *testing.T) {
		path := writeConfig(t, `
database:
  url: postgres://localhost/nociq
`)

		_, err := Load(path)
		assert.Error(t, err)
	})
}
