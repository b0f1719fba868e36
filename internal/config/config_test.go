package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.validate())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Empty(t, cfg.Database.DSN)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BCM_SERVER_PORT", "9090")
	t.Setenv("BCM_DATABASE_DSN", "host=db user=bcm dbname=access")
	t.Setenv("BCM_CACHE_BACKEND", "redis")
	t.Setenv("BCM_CACHE_REDIS_URL", "redis://cache:6379/1")
	t.Setenv("BCM_LICENSE_DEMO_ORGANIZATIONS", "org-demo-1,org-demo-2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "host=db user=bcm dbname=access", cfg.Database.DSN)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "redis://cache:6379/1", cfg.Cache.RedisURL)
	assert.Equal(t, []string{"org-demo-1", "org-demo-2"}, cfg.License.DemoOrganizations)
}

func TestLoadFromFileWithEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 7070
database:
  dsn: "host=file-db user=bcm dbname=access"
license:
  demo_organizations:
    - org-from-file
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	t.Setenv("BCM_CONFIG_FILE", path)
	t.Setenv("BCM_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	// Env wins where set, file fills the rest.
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "host=file-db user=bcm dbname=access", cfg.Database.DSN)
	assert.Equal(t, []string{"org-from-file"}, cfg.License.DemoOrganizations)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"missing origins", func(c *Config) { c.Security.AllowedOrigins = nil }},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"zero cache ttl", func(c *Config) { c.Cache.TTL = 0 }},
		{"zero database timeout", func(c *Config) { c.Database.Timeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.validate())
		})
	}
}

func TestValidateNormalizesLogging(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "text"
	cfg.Logging.Output = "syslog"
	cfg.Logging.FilePath = ""

	require.NoError(t, cfg.validate())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "both", cfg.Logging.Output)
	assert.Equal(t, "logs/app.log", cfg.Logging.FilePath)
}
