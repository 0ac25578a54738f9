package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sitrep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(PathEnv, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.True(t, cfg.UsesDefaultSecret())
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
run_mode: api
server:
  port: 9090
  cors_origins: ["https://review.example.com"]
database:
  url: postgres://db/sitrep
  conn_max_lifetime: 10m
log:
  level: debug
  format: json
scheduler:
  enabled: false
lifecycle:
  advance_lock_ttl: 45s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "api", cfg.RunMode)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host, "unset fields keep defaults")
	assert.Equal(t, []string{"https://review.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "postgres://db/sitrep", cfg.Database.URL)
	assert.Equal(t, 10*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 45*time.Second, cfg.Lifecycle.AdvanceLockTTL)
}

func TestLoad_PathFromEnv(t *testing.T) {
	t.Setenv(PathEnv, writeFile(t, "run_mode: worker\n"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "worker", cfg.RunMode)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "server:\n  port: 9090\nredis:\n  url: redis://file:6379\n")
	t.Setenv("PORT", "7070")
	t.Setenv("REDIS_URL", "redis://env:6379")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("WORKER_CONCURRENCY", "8")
	t.Setenv("SCHEDULER_ENABLED", "false")
	t.Setenv("TASK_RETENTION", "48h")
	t.Setenv("SESSION_TTL", "8h")
	t.Setenv("DB_CONN_MAX_IDLE_SEC", "30")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "redis://env:6379", cfg.Redis.URL)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 8*time.Hour, cfg.Auth.SessionTTL)
	assert.False(t, cfg.UsesDefaultSecret())
	assert.Equal(t, 8, cfg.Worker.Concurrency)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 48*time.Hour, cfg.Scheduler.Retention)
	assert.Equal(t, 30*time.Second, cfg.Database.ConnMaxIdleTime)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSOrigins)
}

func TestLoad_MalformedEnvKeepsValue(t *testing.T) {
	t.Setenv(PathEnv, "")
	t.Setenv("PORT", "eighty")
	t.Setenv("ADVANCE_LOCK_TTL", "soon")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Lifecycle.AdvanceLockTTL)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv(PathEnv, "")

	tests := map[string]string{
		"unknown field": "server:\n  prot: 80\n",
		"bad yaml":      "server: [",
		"run mode":      "run_mode: batch\n",
		"port":          "server:\n  port: 70000\n",
		"log level":     "log:\n  level: loud\n",
		"log format":    "log:\n  format: xml\n",
		"concurrency":   "worker:\n  concurrency: 0\n",
		"empty secret":  "auth:\n  jwt_secret: \"\"\n",
		"session ttl":   "auth:\n  session_ttl: 10s\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.Log = LogConfig{Level: "warn", Format: "json"}

	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "post_id", "p1")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"post_id":"p1"`)
}
