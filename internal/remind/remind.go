// Package remind delivers due item reminders back to their owners through
// the companion bot.
package remind

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"saveit/pkg/config"
	"saveit/pkg/logger"
	"saveit/pkg/models"
	"saveit/pkg/store"
)

const defaultCron = "*/5 * * * *"

// Sender delivers one reminder message to a Telegram user.
type Sender interface {
	Send(ownerID int64, text string) error
}

// BotSender sends reminders through the Bot API.
type BotSender struct {
	bot *tgbotapi.BotAPI
}

func NewBotSender(token string) (*BotSender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("bot api init: %w", err)
	}
	return &BotSender{bot: bot}, nil
}

func (s *BotSender) Send(ownerID int64, text string) error {
	_, err := s.bot.Send(tgbotapi.NewMessage(ownerID, text))
	return err
}

// Start starts the reminder scheduler if enabled. Returns a cancel func.
func Start(ctx context.Context, cfg *config.Config, snd Sender) (context.CancelFunc, error) {
	if !cfg.Reminders.Enabled {
		logger.Info("reminders_disabled")
		return func() {}, nil
	}
	cronExpr := cfg.Reminders.Cron
	if cronExpr == "" {
		cronExpr = defaultCron
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("reminders_invalid_cron", "cron", cronExpr)
		return nil, fmt.Errorf("invalid reminders cron expression: %s", cronExpr)
	}

	lookahead := cfg.Reminders.Lookahead.Duration()
	logger.Info("reminders_enabled", "cron", cronExpr, "lookahead", lookahead)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cronExpr, lookahead, snd)
	return cancel, nil
}

// runScheduler computes the next tick for the configured cron expression
// with gronx and sleeps until then.
func runScheduler(ctx context.Context, cronExpr string, lookahead time.Duration, snd Sender) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("reminders_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("reminders_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
		case <-ctx.Done():
			logger.Info("reminders_scheduler_stopping")
			return
		}

		if err := RunOnce(ctx, lookahead, snd); err != nil {
			logger.Error("reminders_run_error", "error", err)
		}
	}
}

// RunOnce sweeps the store for due reminders and delivers them. A reminder
// older than the lookahead window is dropped without delivery; stale pings
// are worse than silence. Every swept reminder is cleared so it cannot fire
// twice.
func RunOnce(ctx context.Context, lookahead time.Duration, snd Sender) error {
	nowMs := time.Now().UnixMilli()
	due, err := store.ListDueReminders(nowMs)
	if err != nil {
		return fmt.Errorf("list due reminders: %w", err)
	}
	for _, it := range due {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		stale := lookahead > 0 && it.RemindAtMs < nowMs-lookahead.Milliseconds()
		if !stale {
			if err := snd.Send(it.OwnerID, reminderText(it)); err != nil {
				logger.Error("reminder_send_failed", "owner", it.OwnerID, "item", it.ID, "error", err)
				// leave the reminder set; retry on the next sweep
				continue
			}
			logger.Info("reminder_sent", "owner", it.OwnerID, "item", it.ID)
		} else {
			logger.Warn("reminder_dropped_stale", "owner", it.OwnerID, "item", it.ID)
		}
		if err := store.ClearReminder(it.OwnerID, it.ID); err != nil {
			logger.Error("reminder_clear_failed", "owner", it.OwnerID, "item", it.ID, "error", err)
		}
	}
	return nil
}

func reminderText(it models.SavedItem) string {
	label := it.Title
	if label == "" {
		label = it.Body
	}
	if len(label) > 120 {
		label = label[:117] + "..."
	}
	if label == "" {
		label = "a saved item"
	}
	return fmt.Sprintf("⏰ Reminder (%s): %s", it.Category, label)
}
