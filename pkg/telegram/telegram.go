package telegram

import (
	"autotrader/config"
	"autotrader/pkg/logger"
	"context"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

// Sender pushes plain-text messages to a fixed operations chat. Sends are
// paced through a global limiter so bursts of notifications never trip the
// Telegram API limits.
type Sender struct {
	cfg           *config.TelegramConfig
	log           *logger.Logger
	bot           *telebot.Bot
	globalLimiter *rate.Limiter
}

func NewSender(cfg *config.TelegramConfig, log *logger.Logger, bot *telebot.Bot) *Sender {
	return &Sender{
		cfg:           cfg,
		log:           log,
		bot:           bot,
		globalLimiter: rate.NewLimiter(rate.Limit(cfg.MaxGlobalRequestPerSecond), cfg.MaxGlobalRequestPerSecond),
	}
}

func (s *Sender) Send(ctx context.Context, message string) error {
	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()

	if err := s.globalLimiter.Wait(sendCtx); err != nil {
		return err
	}

	_, err := s.bot.Send(&telebot.Chat{ID: s.cfg.ChatID}, message)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to send telegram message", logger.ErrorField(err))
		return err
	}
	return nil
}
