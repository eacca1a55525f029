package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DHIS2_URL", "https://dhis.example.org/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "https://dhis.example.org/api/dataValueSets", cfg.DHIS2.DataValueSetURL)
	assert.Equal(t, 4, cfg.Queue.Workers)
	assert.Equal(t, 10*time.Minute, cfg.Queue.ClaimTTL)
	assert.Equal(t, "local", cfg.Queue.Dispatcher)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "file:f2dhis2.db")
	t.Setenv("DHIS2_DATA_VALUE_SET_URL", "https://dhis.example.org/custom")
	t.Setenv("DHIS2_TIMEOUT", "5s")
	t.Setenv("QUEUE_WORKERS", "8")
	t.Setenv("QUEUE_DISPATCHER", "NATS")
	t.Setenv("FH_RATE_LIMIT", "2.5")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:f2dhis2.db", cfg.Database.DSN)
	assert.Equal(t, "https://dhis.example.org/custom", cfg.DHIS2.DataValueSetURL)
	assert.Equal(t, 5*time.Second, cfg.DHIS2.Timeout)
	assert.Equal(t, 8, cfg.Queue.Workers)
	assert.Equal(t, "nats", cfg.Queue.Dispatcher)
	assert.InDelta(t, 2.5, cfg.Formhub.RateLimit, 0.0001)
	assert.Equal(t, "collector:4318", cfg.Telemetry.OTLPEndpoint)
	assert.True(t, cfg.Telemetry.Insecure)
	assert.Equal(t, 30*time.Second, cfg.Telemetry.Interval)
}

func TestLoadInvalidValues(t *testing.T) {
	t.Run("duration", func(t *testing.T) {
		t.Setenv("QUEUE_CLAIM_TTL", "soon")
		_, err := Load()
		assert.ErrorContains(t, err, "QUEUE_CLAIM_TTL")
	})
	t.Run("integer", func(t *testing.T) {
		t.Setenv("QUEUE_WORKERS", "many")
		_, err := Load()
		assert.ErrorContains(t, err, "QUEUE_WORKERS")
	})
}

func TestLoadFileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
http_addr: ":9090"
dhis2:
  url: https://file.example.org
  username: admin
queue:
  workers: 2
  sweep_schedule: "@every 1m"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DHIS2_USERNAME", "env-admin")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "https://file.example.org/api/dataValueSets", cfg.DHIS2.DataValueSetURL)
	assert.Equal(t, "env-admin", cfg.DHIS2.Username)
	assert.Equal(t, 2, cfg.Queue.Workers)
	assert.Equal(t, "@every 1m", cfg.Queue.SweepSchedule)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.DHIS2.DataValueSetURL = "https://dhis.example.org/api/dataValueSets"
	valid.DHIS2.Username = "admin"
	valid.DHIS2.Password = "district"
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing target url", func(c *Config) { c.DHIS2.DataValueSetURL = "" }, "DHIS2_URL"},
		{"missing credentials", func(c *Config) { c.DHIS2.Password = "" }, "DHIS2_PASSWORD"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "DB_DRIVER"},
		{"sqlite without dsn", func(c *Config) { c.Database.Driver = "sqlite" }, "DB_DSN"},
		{"unknown dispatcher", func(c *Config) { c.Queue.Dispatcher = "kafka" }, "QUEUE_DISPATCHER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	db := Default().Database
	db.Password = "secret"
	assert.Equal(t, "host=localhost port=5432 user=f2dhis2 password=secret dbname=f2dhis2 sslmode=disable TimeZone=UTC", db.PostgresDSN())

	db.DSN = "postgres://u:p@h/db"
	assert.Equal(t, "postgres://u:p@h/db", db.PostgresDSN())
}
