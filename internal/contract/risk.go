package contract

import (
	"context"

	"autotrader/internal/dto"
)

// RiskManager validates trades and sizes positions. It is a collaborator of
// the scheduler; a default implementation lives in the service package but
// anything satisfying this contract can be injected.
type RiskManager interface {
	EvaluateRules(ctx context.Context, userID uint, strategyID uint, symbol string, orderQty, orderValue float64) ([]dto.RiskBreach, error)
	ValidateTrade(ctx context.Context, userID uint, symbol string, side dto.OrderSide, qty, price float64) (bool, string, error)
	CalculatePositionSize(ctx context.Context, userID uint, accountValue, entryPrice, stopPrice float64) (*dto.PositionSizeResult, error)
}
