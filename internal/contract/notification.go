package contract

import (
	"context"

	"autotrader/internal/dto"
)

// Notifier records user-facing notifications. Delivery channels beyond
// persistence are implementation details.
type Notifier interface {
	CreateNotification(ctx context.Context, userID uint, title, message string, priority dto.NotificationPriority, metadata map[string]interface{}) error
}
