package service

import (
	"context"
	"encoding/json"
	"fmt"

	"autotrader/config"
	"autotrader/internal/contract"
	"autotrader/internal/dto"
	"autotrader/internal/model"
	"autotrader/internal/repository"
	"autotrader/pkg/logger"
	"autotrader/pkg/telegram"
	"autotrader/pkg/utils"
)

// NotificationService persists notifications and forwards high-priority
// ones to Telegram when a sender is configured.
type NotificationService interface {
	contract.Notifier
	List(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, id uint) error
}

type notificationService struct {
	cfg              *config.Config
	log              *logger.Logger
	notificationRepo repository.NotificationRepository
	telegramSender   *telegram.Sender
}

func NewNotificationService(
	cfg *config.Config,
	log *logger.Logger,
	notificationRepo repository.NotificationRepository,
	telegramSender *telegram.Sender,
) NotificationService {
	return &notificationService{
		cfg:              cfg,
		log:              log,
		notificationRepo: notificationRepo,
		telegramSender:   telegramSender,
	}
}

func (s *notificationService) CreateNotification(ctx context.Context, userID uint, title, message string, priority dto.NotificationPriority, metadata map[string]interface{}) error {
	var raw []byte
	if metadata != nil {
		encoded, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("marshal notification metadata: %w", err)
		}
		raw = encoded
	}

	notification := &model.Notification{
		UserID:   userID,
		Title:    title,
		Message:  message,
		Priority: priority,
		Metadata: raw,
	}
	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		return err
	}

	if priority == dto.PriorityHigh && s.telegramSender != nil {
		text := fmt.Sprintf("*%s*\n%s", title, message)
		utils.GoSafe(func() {
			if err := s.telegramSender.Send(context.Background(), text); err != nil {
				s.log.Warn("Failed to forward notification to telegram",
					logger.IntField("user_id", int(userID)),
					logger.ErrorField(err))
			}
		})
	}

	return nil
}

func (s *notificationService) List(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]model.Notification, error) {
	return s.notificationRepo.ListByUser(ctx, userID, unreadOnly, limit)
}

func (s *notificationService) MarkRead(ctx context.Context, id uint) error {
	return s.notificationRepo.MarkRead(ctx, id)
}
