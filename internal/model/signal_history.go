package model

import (
	"time"

	"autotrader/internal/dto"

	"gorm.io/datatypes"
)

// SignalHistory is the append-only audit record for every non-HOLD signal a
// live strategy produced. A row is written once on detection and updated at
// most once when execution is attempted.
type SignalHistory struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	StrategyID uint           `gorm:"not null;index" json:"strategy_id"`
	Symbol     string         `gorm:"type:varchar(20);not null" json:"symbol"`
	Signal     dto.SignalType `gorm:"type:varchar(10);not null" json:"signal"`
	Strength   float64        `gorm:"not null" json:"strength"`
	Price      float64        `gorm:"not null" json:"price"`
	Volume     float64        `json:"volume"`
	Reasoning  string         `gorm:"type:text" json:"reasoning"`
	Indicators datatypes.JSON `gorm:"type:jsonb" json:"indicators"`

	Executed       bool       `gorm:"not null;default:false" json:"executed"`
	OrderID        string     `gorm:"type:varchar(64)" json:"order_id"`
	ExecutionPrice *float64   `json:"execution_price"`
	ExecutionTime  *time.Time `json:"execution_time"`
	ExecutionError string     `gorm:"type:text" json:"execution_error"`

	Timestamp time.Time `gorm:"not null" json:"timestamp"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Strategy LiveStrategy `gorm:"foreignKey:StrategyID;references:ID"`
}

func (SignalHistory) TableName() string {
	return "signal_history"
}
