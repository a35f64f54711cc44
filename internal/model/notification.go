package model

import (
	"time"

	"autotrader/internal/dto"

	"gorm.io/datatypes"
)

type Notification struct {
	ID        uint                     `gorm:"primaryKey" json:"id"`
	UserID    uint                     `gorm:"not null;index" json:"user_id"`
	Title     string                   `gorm:"type:varchar(255);not null" json:"title"`
	Message   string                   `gorm:"type:text;not null" json:"message"`
	Priority  dto.NotificationPriority `gorm:"type:varchar(10);not null" json:"priority"`
	Metadata  datatypes.JSON           `gorm:"type:jsonb" json:"metadata"`
	ReadAt    *time.Time               `json:"read_at"`
	CreatedAt time.Time                `gorm:"autoCreateTime" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
