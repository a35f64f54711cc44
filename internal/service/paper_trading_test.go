package service

import (
	"context"
	"testing"

	"autotrader/config"
	"autotrader/internal/dto"
	"autotrader/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPaperTradingFixture(market *fakeMarket) (PaperTradingService, *fakePaperRepo) {
	cfg := &config.Config{}
	cfg.Trading.DefaultStartingBalance = 100000

	repo := newFakePaperRepo()
	svc := NewPaperTradingService(cfg, logger.NewNop(), repo, market, &fakeUnitOfWork{})
	return svc, repo
}

func TestPaperTrading_InitializeIsIdempotent(t *testing.T) {
	svc, _ := newPaperTradingFixture(&fakeMarket{})
	ctx := context.Background()

	account, err := svc.Initialize(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 100000.0, account.CashBalance)
	assert.Equal(t, 100000.0, account.InitialBalance)

	again, err := svc.Initialize(ctx, 1, 50000)
	require.NoError(t, err)
	assert.Equal(t, account.ID, again.ID)
	assert.Equal(t, 100000.0, again.InitialBalance, "second call must not change balances")
}

func TestPaperTrading_BuySellLifecycle(t *testing.T) {
	market := &fakeMarket{prices: map[string]float64{"AAPL": 170}}
	svc, repo := newPaperTradingFixture(market)
	ctx := context.Background()

	// buy 10 @ 150
	res, err := svc.ExecuteOrder(ctx, 1, "AAPL", 10, dto.OrderSideBuy, 150)
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	account, _ := repo.GetAccountByUserID(ctx, 1)
	assert.Equal(t, 98500.0, account.CashBalance)

	// buy 10 more @ 160: average price moves to 155
	res, err = svc.ExecuteOrder(ctx, 1, "AAPL", 10, dto.OrderSideBuy, 160)
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)

	account, _ = repo.GetAccountByUserID(ctx, 1)
	assert.Equal(t, 96900.0, account.CashBalance)
	position, _ := repo.GetPosition(ctx, account.ID, "AAPL")
	require.NotNil(t, position)
	assert.Equal(t, 20.0, position.Qty)
	assert.InDelta(t, 155.0, position.AvgPrice, 1e-9)

	// sell 15 @ 170: realized = (170-155)*15 = 225, avg price unchanged
	res, err = svc.ExecuteOrder(ctx, 1, "AAPL", 15, dto.OrderSideSell, 170)
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	require.NotNil(t, res.Trade)
	assert.InDelta(t, 225.0, res.Trade.RealizedPnL, 1e-9)

	account, _ = repo.GetAccountByUserID(ctx, 1)
	assert.InDelta(t, 99450.0, account.CashBalance, 1e-9)
	assert.InDelta(t, 225.0, account.TotalPnL, 1e-9)
	position, _ = repo.GetPosition(ctx, account.ID, "AAPL")
	require.NotNil(t, position)
	assert.Equal(t, 5.0, position.Qty)
	assert.InDelta(t, 155.0, position.AvgPrice, 1e-9)

	// snapshot marks the remainder to the live price
	require.NotNil(t, res.Account)
	assert.InDelta(t, 100300.0, res.Account.TotalEquity, 1e-9) // 99450 cash + 5*170
	assert.InDelta(t, 300.0, res.Account.TotalPnL, 1e-9)
	assert.InDelta(t, 0.3, res.Account.TotalReturnPct, 1e-9)
	require.Len(t, res.Account.Positions, 1)
	assert.InDelta(t, 75.0, res.Account.Positions[0].UnrealizedPnL, 1e-9)
}

func TestPaperTrading_SellToZeroDeletesPosition(t *testing.T) {
	market := &fakeMarket{prices: map[string]float64{"AAPL": 150}}
	svc, repo := newPaperTradingFixture(market)
	ctx := context.Background()

	res, err := svc.ExecuteOrder(ctx, 1, "AAPL", 10, dto.OrderSideBuy, 150)
	require.NoError(t, err)
	require.True(t, res.Success)

	res, err = svc.ExecuteOrder(ctx, 1, "AAPL", 10, dto.OrderSideSell, 150)
	require.NoError(t, err)
	require.True(t, res.Success)

	account, _ := repo.GetAccountByUserID(ctx, 1)
	position, _ := repo.GetPosition(ctx, account.ID, "AAPL")
	assert.Nil(t, position)
	assert.Equal(t, 100000.0, account.CashBalance)
}

func TestPaperTrading_InsufficientFunds(t *testing.T) {
	svc, repo := newPaperTradingFixture(&fakeMarket{})
	ctx := context.Background()

	res, err := svc.ExecuteOrder(ctx, 1, "AAPL", 1000, dto.OrderSideBuy, 200)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Insufficient funds")

	account, _ := repo.GetAccountByUserID(ctx, 1)
	assert.Equal(t, 100000.0, account.CashBalance, "rejected order must not touch the balance")
	assert.Empty(t, repo.trades)
}

func TestPaperTrading_InsufficientPosition(t *testing.T) {
	svc, _ := newPaperTradingFixture(&fakeMarket{})
	ctx := context.Background()

	res, err := svc.ExecuteOrder(ctx, 1, "AAPL", 5, dto.OrderSideSell, 150)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Insufficient position")
}

func TestPaperTrading_RejectsInvalidOrders(t *testing.T) {
	svc, _ := newPaperTradingFixture(&fakeMarket{})
	ctx := context.Background()

	res, err := svc.ExecuteOrder(ctx, 1, "AAPL", 0, dto.OrderSideBuy, 150)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Quantity")

	res, err = svc.ExecuteOrder(ctx, 1, "AAPL", 10, dto.OrderSideBuy, -1)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Price")
}

func TestPaperTrading_SnapshotFallsBackToAvgPrice(t *testing.T) {
	// no live price available for the symbol
	svc, _ := newPaperTradingFixture(&fakeMarket{prices: map[string]float64{}})
	ctx := context.Background()

	res, err := svc.ExecuteOrder(ctx, 1, "AAPL", 10, dto.OrderSideBuy, 150)
	require.NoError(t, err)
	require.True(t, res.Success)

	snapshot, err := svc.GetAccount(ctx, 1)
	require.NoError(t, err)
	require.Len(t, snapshot.Positions, 1)
	assert.Equal(t, 150.0, snapshot.Positions[0].CurrentPrice)
	assert.Equal(t, 0.0, snapshot.Positions[0].UnrealizedPnL)
	assert.InDelta(t, 100000.0, snapshot.TotalEquity, 1e-9)
}

func TestPaperTrading_Reset(t *testing.T) {
	market := &fakeMarket{prices: map[string]float64{"AAPL": 150}}
	svc, repo := newPaperTradingFixture(market)
	ctx := context.Background()

	res, err := svc.ExecuteOrder(ctx, 1, "AAPL", 10, dto.OrderSideBuy, 150)
	require.NoError(t, err)
	require.True(t, res.Success)

	account, err := svc.Reset(ctx, 1, 25000)
	require.NoError(t, err)
	assert.Equal(t, 25000.0, account.CashBalance)
	assert.Equal(t, 25000.0, account.InitialBalance)
	assert.Equal(t, 0.0, account.TotalPnL)

	positions, _ := repo.GetPositions(ctx, account.ID)
	assert.Empty(t, positions)
	assert.Empty(t, repo.trades)
}
