package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  address: 127.0.0.1
  port: 9090
  db_path: /var/lib/saveit
  max_body_bytes: 1MB
telegram:
  bot_token: "123:abc"
  allow_mock_viewer: true
  mock_viewer_id: 8510744654
security:
  cors:
    allowed_origins: ["https://app.example.com"]
  rate_limit:
    rps: 10
    burst: 20
logging:
  level: debug
reminders:
  enabled: true
  cron: "*/10 * * * *"
  lookahead: 48h
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
	assert.Equal(t, "/var/lib/saveit", cfg.Server.DBPath)
	assert.Equal(t, int64(1000000), cfg.Server.MaxBodyBytes.Int64())
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.True(t, cfg.Telegram.AllowMockViewer)
	assert.Equal(t, int64(8510744654), cfg.Telegram.MockViewerID)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Security.CORS.AllowedOrigins)
	assert.Equal(t, 10.0, cfg.Security.RateLimit.RPS)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Reminders.Enabled)
	assert.Equal(t, 48*time.Hour, cfg.Reminders.Lookahead.Duration())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestAddrDefaults(t *testing.T) {
	var cfg Config
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SAVEIT_ADDR", "10.0.0.1:7070")
	t.Setenv("SAVEIT_BOT_TOKEN", "999:zzz")
	t.Setenv("SAVEIT_CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("SAVEIT_RATE_RPS", "2.5")
	t.Setenv("SAVEIT_RATE_BURST", "4")
	t.Setenv("SAVEIT_ALLOW_MOCK_VIEWER", "true")
	t.Setenv("SAVEIT_REMINDERS_CRON", "0 * * * *")

	var cfg Config
	envUsed := LoadEnvOverrides(&cfg)
	require.True(t, envUsed)

	assert.Equal(t, "10.0.0.1", cfg.Server.Address)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "999:zzz", cfg.Telegram.BotToken)
	assert.True(t, cfg.Telegram.AllowMockViewer)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Security.CORS.AllowedOrigins)
	assert.Equal(t, 2.5, cfg.Security.RateLimit.RPS)
	assert.Equal(t, 4, cfg.Security.RateLimit.Burst)
	assert.Equal(t, "0 * * * *", cfg.Reminders.Cron)
	assert.True(t, cfg.Reminders.Enabled)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	t.Setenv("SAVEIT_BOT_TOKEN", "env-token")
	cfg, envUsed, err := LoadEffective(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.True(t, envUsed)
	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
	// untouched file values survive
	assert.Equal(t, "/var/lib/saveit", cfg.Server.DBPath)
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("SAVEIT_CONFIG", "/etc/saveit/config.yaml")
	assert.Equal(t, "/etc/saveit/config.yaml", ResolveConfigPath("./config.yaml", false))
	assert.Equal(t, "./custom.yaml", ResolveConfigPath("./custom.yaml", true))
}

func TestSizeBytesPlainInteger(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  max_body_bytes: 4096\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(4096), cfg.Server.MaxBodyBytes.Int64())
}
