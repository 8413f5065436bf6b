package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Messaging.Driver)
	assert.Equal(t, "lab-results", cfg.LabResults.Topic)
	assert.Equal(t, 30*time.Second, cfg.Cache.ReportTTL)
	assert.Equal(t, 100, cfg.Outbox.BatchSize)
	assert.False(t, cfg.Notification.Enabled)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	yml := `
server:
  port: 9090
database:
  host: db.internal
  max_open_conns: 50
outbox:
  poll_interval: 2s
messaging:
  driver: kafka
kafka:
  brokers: ["k1:9092", "k2:9092"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(yml), 0o600))

	t.Setenv("FOLLOWUP_DATABASE_HOST", "db.override")
	t.Setenv("FOLLOWUP_CACHE_REPORT_TTL", "0s")
	t.Setenv("FOLLOWUP_RATE_LIMIT_BURST", "5")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.override", cfg.Database.Host)
	assert.Equal(t, 50, cfg.Database.MaxOpenConns)
	assert.Equal(t, 2*time.Second, cfg.Outbox.PollInterval)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, time.Duration(0), cfg.Cache.ReportTTL)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	cfg.Messaging.Driver = "nats"
	assert.Error(t, cfg.Validate())

	cfg.Messaging.Driver = "redis"
	cfg.Notification.Enabled = true
	assert.Error(t, cfg.Validate())

	cfg.Notification.SMTPHost = "smtp.example.org"
	cfg.Notification.CareTeam = []string{"care@example.org"}
	assert.NoError(t, cfg.Validate())
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=n sslmode=disable", c.DSN())
}
