package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"saveit/internal/remind"
	"saveit/pkg/config"
	"saveit/pkg/logger"
	"saveit/pkg/store"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	srv          *http.Server
	remindCancel context.CancelFunc
}

// New initializes resources that do not require a running context: logging,
// the store and the legacy-key migration. It does not start the reminder
// scheduler or the HTTP server; call Run for those.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	logger.Init(eff.Config.Logging.Level)

	// validate effective config early and fail fast
	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	if err := store.Open(eff.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	// one-time rewrite of pre-partition records
	if _, _, err := store.MigrateLegacyLinks(); err != nil {
		return nil, fmt.Errorf("legacy migration failed: %w", err)
	}

	return &App{eff: eff, version: version, commit: commit, buildDate: buildDate}, nil
}

// Run starts the reminder scheduler (if enabled) and the HTTP server, and
// blocks until ctx is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	if err := a.setupReminders(ctx); err != nil {
		return err
	}

	a.printBanner()

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		a.shutdown()
		return nil
	case err := <-errCh:
		a.shutdown()
		return err
	}
}

// setupReminders wires the bot sender into the reminder scheduler.
func (a *App) setupReminders(ctx context.Context) error {
	cfg := a.eff.Config
	if !cfg.Reminders.Enabled {
		return nil
	}
	snd, err := remind.NewBotSender(cfg.Telegram.BotToken)
	if err != nil {
		return fmt.Errorf("reminders enabled but bot sender failed: %w", err)
	}
	cancel, err := remind.Start(ctx, cfg, snd)
	if err != nil {
		return err
	}
	a.remindCancel = cancel
	return nil
}

func (a *App) shutdown() {
	if a.remindCancel != nil {
		a.remindCancel()
	}
	if a.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.srv.Shutdown(ctx)
	}
	if err := store.Close(); err != nil {
		logger.Error("store_close_failed", "error", err)
	}
}
