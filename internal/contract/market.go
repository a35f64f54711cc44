package contract

import (
	"context"
	"time"

	"autotrader/internal/dto"
)

// MarketDataProvider is the read side of the execution gateway.
type MarketDataProvider interface {
	GetLatestTrade(ctx context.Context, symbol string) (*dto.LastTrade, error)
	GetLatestQuote(ctx context.Context, symbol string) (*dto.LastQuote, error)
	GetLatestTrades(ctx context.Context, symbols []string) (map[string]dto.LastTrade, error)
	GetBars(ctx context.Context, symbol string, start, end time.Time) ([]dto.Bar, error)
}

// BrokerGateway is the write side: real order placement against the broker.
type BrokerGateway interface {
	PlaceOrder(ctx context.Context, userID uint, req dto.OrderRequest) (*dto.Order, error)
	CancelOrder(ctx context.Context, userID uint, orderID string) error
	ReplaceOrder(ctx context.Context, userID uint, orderID string, req dto.OrderRequest) (*dto.Order, error)
}
