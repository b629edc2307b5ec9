package app

import (
	"fmt"
	"os"

	"github.com/adhocore/gronx"

	"saveit/pkg/config"
)

// validateConfig performs quick, fail-fast validation of the effective
// configuration before starting long-running services. Keep checks light
// and focused so callers can surface user-friendly errors.
func validateConfig(eff config.EffectiveConfigResult) error {
	// DB path must be present
	if eff.DBPath == "" {
		return fmt.Errorf("database path is empty: set --db flag, SAVEIT_DB_PATH env, or server.db_path in config")
	}

	// TLS cert/key presence check if one is set
	cert := eff.Config.Server.TLS.CertFile
	key := eff.Config.Server.TLS.KeyFile
	if (cert != "" && key == "") || (cert == "" && key != "") {
		return fmt.Errorf("incomplete TLS configuration: both server.tls.cert_file and server.tls.key_file must be set")
	}
	if cert != "" {
		if _, err := os.Stat(cert); err != nil {
			return fmt.Errorf("tls cert file not accessible: %w", err)
		}
		if _, err := os.Stat(key); err != nil {
			return fmt.Errorf("tls key file not accessible: %w", err)
		}
	}

	// viewer verification needs the bot token unless the mock fallback is on
	if eff.Config.Telegram.BotToken == "" && !eff.Config.Telegram.AllowMockViewer {
		return fmt.Errorf("telegram.bot_token is empty: set SAVEIT_BOT_TOKEN or enable telegram.allow_mock_viewer for development")
	}

	if eff.Config.Reminders.Enabled {
		if eff.Config.Telegram.BotToken == "" {
			return fmt.Errorf("reminders enabled but telegram.bot_token is empty")
		}
		if c := eff.Config.Reminders.Cron; c != "" && !gronx.IsValid(c) {
			return fmt.Errorf("invalid reminders cron expression: %s", c)
		}
	}

	return nil
}
