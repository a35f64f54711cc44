package service

import (
	"context"
	"testing"

	"autotrader/config"
	"autotrader/internal/contract"
	"autotrader/internal/dto"
	"autotrader/internal/model"
	"autotrader/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRiskFixture() (contract.RiskManager, *fakePaperRepo, *fakeStrategyRepo) {
	cfg := &config.Config{}
	cfg.Trading.MaxOrderValue = 10000
	cfg.Trading.MaxDailyLoss = 1000
	cfg.Trading.RiskPerTradePct = 0.01

	paperRepo := newFakePaperRepo()
	strategyRepo := newFakeStrategyRepo()
	return NewRiskService(cfg, logger.NewNop(), paperRepo, strategyRepo), paperRepo, strategyRepo
}

func TestValidateTrade(t *testing.T) {
	svc, paperRepo, _ := newRiskFixture()
	ctx := context.Background()

	ok, reason, err := svc.ValidateTrade(ctx, 1, "AAPL", dto.OrderSideBuy, 0, 150)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "Order quantity must be positive", reason)

	ok, reason, err = svc.ValidateTrade(ctx, 1, "AAPL", dto.OrderSideBuy, 10, 0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "Order price must be positive", reason)

	ok, reason, err = svc.ValidateTrade(ctx, 1, "AAPL", dto.OrderSideBuy, 100, 150)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, reason, "exceeds maximum")

	// buys are checked against available cash
	require.NoError(t, paperRepo.CreateAccount(ctx, &model.PaperAccount{UserID: 1, CashBalance: 1000, InitialBalance: 1000}))
	ok, reason, err = svc.ValidateTrade(ctx, 1, "AAPL", dto.OrderSideBuy, 10, 150)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, reason, "Insufficient cash")

	// sells of the same size are fine
	ok, reason, err = svc.ValidateTrade(ctx, 1, "AAPL", dto.OrderSideSell, 10, 150)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, reason)

	ok, _, err = svc.ValidateTrade(ctx, 1, "AAPL", dto.OrderSideBuy, 5, 150)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateRules(t *testing.T) {
	svc, _, strategyRepo := newRiskFixture()
	ctx := context.Background()

	breaches, err := svc.EvaluateRules(ctx, 1, 0, "AAPL", -1, 50000)
	require.NoError(t, err)
	require.Len(t, breaches, 2)
	assert.Equal(t, "positive_qty", breaches[0].RuleID)
	assert.Equal(t, dto.RiskActionBlock, breaches[0].Action)
	assert.Equal(t, "max_order_value", breaches[1].RuleID)

	strategyRepo.strategies[7] = &model.LiveStrategy{ID: 7, DailyPnL: -1500}
	breaches, err = svc.EvaluateRules(ctx, 1, 7, "AAPL", 10, 500)
	require.NoError(t, err)
	require.Len(t, breaches, 1)
	assert.Equal(t, "max_daily_loss", breaches[0].RuleID)
	assert.Equal(t, dto.RiskActionWarn, breaches[0].Action)

	breaches, err = svc.EvaluateRules(ctx, 1, 0, "AAPL", 10, 500)
	require.NoError(t, err)
	assert.Empty(t, breaches)
}

func TestCalculatePositionSize(t *testing.T) {
	svc, _, _ := newRiskFixture()
	ctx := context.Background()

	// 1% of 100000 = 1000 risk budget, 5 per share at the stop: 200 shares,
	// then capped to the 10000 order value limit at 100/share = 100 shares
	result, err := svc.CalculatePositionSize(ctx, 1, 100000, 100, 95)
	require.NoError(t, err)
	assert.Equal(t, int64(100), result.Shares)
	assert.Equal(t, 10000.0, result.Value)
	assert.Equal(t, 500.0, result.MaxLoss)
	assert.Equal(t, 5.0, result.RiskPerShare)

	// wide stop keeps the raw risk sizing
	result, err = svc.CalculatePositionSize(ctx, 1, 100000, 100, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(20), result.Shares)
	assert.Equal(t, 1000.0, result.MaxLoss)

	_, err = svc.CalculatePositionSize(ctx, 1, 100000, 100, 100)
	assert.Error(t, err, "stop at or above entry is rejected")

	_, err = svc.CalculatePositionSize(ctx, 1, 100000, 0, -5)
	assert.Error(t, err)
}
