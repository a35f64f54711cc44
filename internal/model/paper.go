package model

import (
	"time"

	"autotrader/internal/dto"
)

// PaperAccount is one user's virtual cash book. TotalPnL tracks realized
// P&L only; unrealized P&L is always recomputed from live prices.
type PaperAccount struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	CashBalance    float64   `gorm:"not null" json:"cash_balance"`
	InitialBalance float64   `gorm:"not null" json:"initial_balance"`
	TotalPnL       float64   `gorm:"not null;default:0" json:"total_pnl"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	User User `gorm:"foreignKey:UserID;references:ID"`
}

func (PaperAccount) TableName() string {
	return "paper_accounts"
}

// PaperPosition is unique per account+symbol. Qty stays positive while the
// position is open; the row is deleted when it reaches zero.
type PaperPosition struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AccountID uint      `gorm:"not null;uniqueIndex:idx_account_symbol" json:"account_id"`
	Symbol    string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_account_symbol" json:"symbol"`
	Qty       float64   `gorm:"not null" json:"qty"`
	AvgPrice  float64   `gorm:"not null" json:"avg_price"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PaperPosition) TableName() string {
	return "paper_positions"
}

// PaperTrade is the append-only fill log: one row per accepted order.
type PaperTrade struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	AccountID uint          `gorm:"not null;index" json:"account_id"`
	Symbol    string        `gorm:"type:varchar(20);not null" json:"symbol"`
	Qty       float64       `gorm:"not null" json:"qty"`
	Side      dto.OrderSide `gorm:"type:varchar(8);not null" json:"side"`
	Price     float64       `gorm:"not null" json:"price"`
	Value     float64       `gorm:"not null" json:"value"`
	Timestamp time.Time     `gorm:"not null" json:"timestamp"`
	CreatedAt time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

func (PaperTrade) TableName() string {
	return "paper_trades"
}
