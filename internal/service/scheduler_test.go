package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"autotrader/config"
	"autotrader/internal/contract"
	"autotrader/internal/dto"
	"autotrader/internal/model"
	"autotrader/pkg/logger"
	"autotrader/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newSchedulerFixture(market *fakeMarket, paperSvc *fakePaperTradingService, risk *fakeRisk) (*schedulerService, *fakeStrategyRepo, *fakeSignalRepo, *fakeNotifier) {
	cfg := &config.Config{}
	cfg.Scheduler.TickInterval = time.Minute
	cfg.Scheduler.BarHistoryDays = 30
	cfg.Scheduler.MinBarsRequired = 5
	cfg.Scheduler.MinExecutionStrength = 0.6
	cfg.Scheduler.MaxConsecutiveErrors = 2
	cfg.Scheduler.AssumedPortfolio = 100000

	strategyRepo := newFakeStrategyRepo()
	signalRepo := newFakeSignalRepo()
	notifier := &fakeNotifier{}
	credentials := &fakeCredentials{keys: &contract.BrokerKeys{APIKey: "key", APISecret: "secret"}}
	svc := NewSchedulerService(cfg, logger.NewNop(), strategyRepo, signalRepo, newFakePaperRepo(), market, paperSvc, risk, credentials, notifier).(*schedulerService)
	return svc, strategyRepo, signalRepo, notifier
}

func activeDonchianStrategy() *model.LiveStrategy {
	return &model.LiveStrategy{
		ID:              1,
		UserID:          1,
		DefinitionID:    1,
		Symbols:         datatypes.JSONSlice[string]{"AAPL"},
		CheckInterval:   60,
		AutoExecute:     true,
		MaxPositionSize: 120,
		MaxPositions:    5,
		PositionSizePct: 0.1,
		Status:          dto.StrategyStatusActive,
		Definition: model.StrategyDefinition{
			ID:         1,
			Kind:       dto.StrategyDonchian,
			Parameters: datatypes.JSON(`{"entry_period":3,"exit_period":3}`),
		},
	}
}

// five flat bars then a clean breakout close
func breakoutBars() []dto.Bar {
	closes := []float64{8, 8, 8, 8, 12}
	highs := []float64{10, 10, 10, 10, 12}
	lows := []float64{5, 5, 5, 5, 12}
	bars := make([]dto.Bar, len(closes))
	for i := range closes {
		bars[i] = dto.Bar{High: highs[i], Low: lows[i], Close: closes[i], Volume: 1000}
	}
	return bars
}

func TestTick_ExecutesQualifyingSignal(t *testing.T) {
	market := &fakeMarket{bars: map[string][]dto.Bar{"AAPL": breakoutBars()}}
	paperSvc := &fakePaperTradingService{result: &dto.OrderResult{Success: true, Trade: &dto.TradeSnapshot{Symbol: "AAPL"}}}
	svc, strategyRepo, signalRepo, notifier := newSchedulerFixture(market, paperSvc, &fakeRisk{ok: true})

	strategy := activeDonchianStrategy()
	strategyRepo.strategies[1] = strategy

	require.NoError(t, svc.Tick(context.Background()))

	require.Len(t, signalRepo.created, 1)
	assert.Equal(t, dto.SignalBuy, signalRepo.created[0].Signal)
	assert.Equal(t, 1.0, signalRepo.created[0].Strength)
	assert.Equal(t, "paper-1", signalRepo.executed[1])

	require.Len(t, paperSvc.orders, 1)
	assert.Equal(t, 10.0, paperSvc.orders[0].Qty) // floor(120 / 12)
	assert.Equal(t, dto.OrderSideBuy, paperSvc.orders[0].Side)
	assert.Equal(t, 12.0, paperSvc.orders[0].Price)

	saved := strategyRepo.strategies[1]
	assert.Equal(t, 1, saved.TotalSignals)
	assert.Equal(t, 1, saved.ExecutedTrades)
	assert.Equal(t, 1, saved.CurrentPositions)
	assert.Equal(t, 0, saved.ConsecutiveErrors)
	require.NotNil(t, saved.LastCheck)
	require.NotNil(t, saved.LastSignal)

	require.NotEmpty(t, notifier.records)
	assert.Equal(t, dto.PriorityHigh, notifier.records[len(notifier.records)-1].Priority)
}

func TestTick_AutoExecuteDisabledRecordsSignalOnly(t *testing.T) {
	market := &fakeMarket{bars: map[string][]dto.Bar{"AAPL": breakoutBars()}}
	paperSvc := &fakePaperTradingService{result: &dto.OrderResult{Success: true}}
	svc, strategyRepo, signalRepo, notifier := newSchedulerFixture(market, paperSvc, &fakeRisk{ok: true})

	strategy := activeDonchianStrategy()
	strategy.AutoExecute = false
	strategyRepo.strategies[1] = strategy

	require.NoError(t, svc.Tick(context.Background()))

	require.Len(t, signalRepo.created, 1)
	assert.Empty(t, signalRepo.failed, "a gate skip is not an execution failure")
	assert.Empty(t, paperSvc.orders)

	saved := strategyRepo.strategies[1]
	assert.Equal(t, 1, saved.TotalSignals)
	assert.Equal(t, 0, saved.ExecutedTrades)

	assert.Empty(t, notifier.records, "manual mode skips are routine, not notified")
}

func TestTick_GateSkipNotifiesExceptAutoExecute(t *testing.T) {
	market := &fakeMarket{bars: map[string][]dto.Bar{"AAPL": breakoutBars()}}
	paperSvc := &fakePaperTradingService{result: &dto.OrderResult{Success: true}}
	svc, strategyRepo, signalRepo, notifier := newSchedulerFixture(market, paperSvc, &fakeRisk{ok: true})
	svc.cfg.Scheduler.MinExecutionStrength = 1.5 // nothing clears the bar

	strategyRepo.strategies[1] = activeDonchianStrategy()

	require.NoError(t, svc.Tick(context.Background()))

	require.Len(t, signalRepo.created, 1)
	assert.Empty(t, signalRepo.failed)
	assert.Empty(t, paperSvc.orders)

	require.Len(t, notifier.records, 1)
	assert.Equal(t, dto.PriorityMedium, notifier.records[0].Priority)
	assert.Contains(t, notifier.records[0].Message, "below threshold")
}

func TestTick_MissingCredentialBlocksExecution(t *testing.T) {
	market := &fakeMarket{bars: map[string][]dto.Bar{"AAPL": breakoutBars()}}
	paperSvc := &fakePaperTradingService{result: &dto.OrderResult{Success: true}}
	svc, strategyRepo, signalRepo, notifier := newSchedulerFixture(market, paperSvc, &fakeRisk{ok: true})
	svc.credentials.(*fakeCredentials).keys = nil

	strategyRepo.strategies[1] = activeDonchianStrategy()

	require.NoError(t, svc.Tick(context.Background()))

	require.Len(t, signalRepo.created, 1)
	assert.Empty(t, paperSvc.orders, "no credential means no order attempt")
	assert.Equal(t, 0, strategyRepo.strategies[1].ExecutedTrades)

	require.Len(t, notifier.records, 1)
	assert.Equal(t, dto.PriorityHigh, notifier.records[0].Priority)
	assert.Equal(t, "Execution blocked", notifier.records[0].Title)
	assert.Contains(t, notifier.records[0].Message, "no active broker credential")
}

func TestTick_RejectedOrderNotifies(t *testing.T) {
	market := &fakeMarket{bars: map[string][]dto.Bar{"AAPL": breakoutBars()}}
	paperSvc := &fakePaperTradingService{result: &dto.OrderResult{Success: false, Error: "Insufficient funds: need 120.00, have 50.00"}}
	svc, strategyRepo, signalRepo, notifier := newSchedulerFixture(market, paperSvc, &fakeRisk{ok: true})

	strategyRepo.strategies[1] = activeDonchianStrategy()

	require.NoError(t, svc.Tick(context.Background()))

	require.Len(t, paperSvc.orders, 1)
	assert.Contains(t, signalRepo.failed[1], "Insufficient funds")
	assert.Equal(t, 0, strategyRepo.strategies[1].ExecutedTrades)

	require.Len(t, notifier.records, 1)
	assert.Equal(t, dto.PriorityHigh, notifier.records[0].Priority)
	assert.Equal(t, "Order failed for AAPL", notifier.records[0].Title)
}

func TestTick_SkipsStrategyNotDue(t *testing.T) {
	market := &fakeMarket{bars: map[string][]dto.Bar{"AAPL": breakoutBars()}}
	svc, strategyRepo, signalRepo, _ := newSchedulerFixture(market, &fakePaperTradingService{}, &fakeRisk{ok: true})

	strategy := activeDonchianStrategy()
	strategy.CheckInterval = 3600
	strategy.LastCheck = utils.ToPointer(time.Now().UTC())
	strategyRepo.strategies[1] = strategy

	require.NoError(t, svc.Tick(context.Background()))
	assert.Empty(t, signalRepo.created)
	assert.Empty(t, strategyRepo.saved)
}

func TestTick_SkipsSymbolWithThinHistory(t *testing.T) {
	market := &fakeMarket{bars: map[string][]dto.Bar{"AAPL": breakoutBars()[:3]}}
	svc, strategyRepo, signalRepo, _ := newSchedulerFixture(market, &fakePaperTradingService{}, &fakeRisk{ok: true})

	strategyRepo.strategies[1] = activeDonchianStrategy()

	require.NoError(t, svc.Tick(context.Background()))
	assert.Empty(t, signalRepo.created)

	saved := strategyRepo.strategies[1]
	assert.Equal(t, 0, saved.ConsecutiveErrors, "thin history is a skip, not an error")
	require.NotNil(t, saved.LastCheck)
}

func TestExecutionGate_ChecksInOrder(t *testing.T) {
	svc, _, _, _ := newSchedulerFixture(&fakeMarket{}, &fakePaperTradingService{}, &fakeRisk{ok: false, reason: "risk says no"})
	ctx := context.Background()

	sig := dto.TradingSignal{Symbol: "AAPL", Signal: dto.SignalBuy, Strength: 0.9, Price: 12}
	strategy := activeDonchianStrategy()

	strategy.AutoExecute = false
	ok, reason, err := svc.executionGate(ctx, strategy, sig, 10)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "Auto-execute is disabled", reason)

	strategy.AutoExecute = true
	weak := sig
	weak.Strength = 0.5
	ok, reason, err = svc.executionGate(ctx, strategy, weak, 10)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, reason, "below threshold")

	strategy.CurrentPositions = strategy.MaxPositions
	ok, reason, err = svc.executionGate(ctx, strategy, sig, 10)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, reason, "Max positions")
	strategy.CurrentPositions = 0

	strategy.DailyLossLimit = 500
	strategy.DailyPnL = -600
	ok, reason, err = svc.executionGate(ctx, strategy, sig, 10)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, reason, "Daily loss limit")

	// sitting exactly on the limit still passes
	strategy.DailyPnL = -500
	ok, reason, err = svc.executionGate(ctx, strategy, sig, 10)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "risk says no", reason)
	strategy.DailyPnL = 0

	// everything above passes, the risk manager gets the last word
	ok, reason, err = svc.executionGate(ctx, strategy, sig, 10)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "risk says no", reason)
}

func TestOrderQty_Sizing(t *testing.T) {
	svc, _, _, _ := newSchedulerFixture(&fakeMarket{}, &fakePaperTradingService{}, &fakeRisk{ok: true})

	strategy := activeDonchianStrategy()
	buy := dto.TradingSignal{Signal: dto.SignalBuy, Price: 163}

	strategy.MaxPositionSize = 5000
	assert.Equal(t, 30.0, svc.orderQty(strategy, nil, buy))

	strategy.MaxPositionSize = 0
	assert.Equal(t, 61.0, svc.orderQty(strategy, nil, buy)) // floor(100000*0.1/163)

	expensive := dto.TradingSignal{Signal: dto.SignalBuy, Price: 20000}
	assert.Equal(t, 1.0, svc.orderQty(strategy, nil, expensive), "entries always get at least one share")

	sell := dto.TradingSignal{Signal: dto.SignalSell, Price: 163}
	position := &model.PaperPosition{Qty: 42}
	assert.Equal(t, 42.0, svc.orderQty(strategy, position, sell))
	assert.Equal(t, 0.0, svc.orderQty(strategy, nil, sell))
}

func TestCheckStrategy_CircuitBreaker(t *testing.T) {
	market := &fakeMarket{barsErr: errors.New("data feed down")}
	svc, strategyRepo, _, notifier := newSchedulerFixture(market, &fakePaperTradingService{}, &fakeRisk{ok: true})

	strategy := activeDonchianStrategy()
	strategyRepo.strategies[1] = strategy
	now := time.Now().UTC()

	svc.checkStrategy(context.Background(), strategy, now)
	assert.Equal(t, 1, strategy.ConsecutiveErrors)
	assert.Equal(t, dto.StrategyStatusActive, strategy.Status)
	assert.Contains(t, strategy.ErrorMessage, "data feed down")

	svc.checkStrategy(context.Background(), strategy, now.Add(time.Minute))
	assert.Equal(t, 2, strategy.ConsecutiveErrors)
	assert.Equal(t, dto.StrategyStatusError, strategy.Status)
	require.NotNil(t, strategy.StoppedAt)

	require.NotEmpty(t, notifier.records)
	last := notifier.records[len(notifier.records)-1]
	assert.Equal(t, dto.PriorityHigh, last.Priority)
	assert.Equal(t, "Strategy stopped", last.Title)
}

func TestCheckStrategy_SingleFailureTripsErrorByDefault(t *testing.T) {
	market := &fakeMarket{barsErr: errors.New("data feed down")}
	svc, strategyRepo, _, notifier := newSchedulerFixture(market, &fakePaperTradingService{}, &fakeRisk{ok: true})
	svc.cfg.Scheduler.MaxConsecutiveErrors = 0 // unset config means no tolerance

	strategy := activeDonchianStrategy()
	strategyRepo.strategies[1] = strategy

	svc.checkStrategy(context.Background(), strategy, time.Now().UTC())
	assert.Equal(t, dto.StrategyStatusError, strategy.Status)
	require.NotNil(t, strategy.StoppedAt)
	require.NotEmpty(t, notifier.records)
	assert.Equal(t, dto.PriorityHigh, notifier.records[0].Priority)
}

func TestCheckStrategy_DailyPnLRollsOverAtUTCMidnight(t *testing.T) {
	svc, _, _, _ := newSchedulerFixture(&fakeMarket{}, &fakePaperTradingService{}, &fakeRisk{ok: true})

	strategy := activeDonchianStrategy()
	strategy.Symbols = datatypes.JSONSlice[string]{}
	strategy.DailyPnL = -123.45

	now := time.Date(2026, 3, 2, 0, 5, 0, 0, time.UTC)
	yesterday := now.Add(-6 * time.Hour)
	strategy.LastCheck = &yesterday

	svc.checkStrategy(context.Background(), strategy, now)
	assert.Equal(t, 0.0, strategy.DailyPnL)
}

func TestCheckStrategy_SameDayKeepsDailyPnL(t *testing.T) {
	svc, _, _, _ := newSchedulerFixture(&fakeMarket{}, &fakePaperTradingService{}, &fakeRisk{ok: true})

	strategy := activeDonchianStrategy()
	strategy.Symbols = datatypes.JSONSlice[string]{}
	strategy.DailyPnL = -123.45

	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	earlier := now.Add(-2 * time.Hour)
	strategy.LastCheck = &earlier

	svc.checkStrategy(context.Background(), strategy, now)
	assert.Equal(t, -123.45, strategy.DailyPnL)
}

func TestStrategyLifecycle(t *testing.T) {
	svc, strategyRepo, _, _ := newSchedulerFixture(&fakeMarket{}, &fakePaperTradingService{}, &fakeRisk{ok: true})
	ctx := context.Background()

	strategy := activeDonchianStrategy()
	strategy.Status = dto.StrategyStatusStopped
	strategy.Symbols = datatypes.JSONSlice[string]{"aapl", "AAPL", " msft "}
	strategy.CheckInterval = 100
	strategy.ConsecutiveErrors = 3
	strategy.ErrorMessage = "old failure"
	strategyRepo.strategies[1] = strategy

	require.NoError(t, svc.StartStrategy(ctx, 1))
	started := strategyRepo.strategies[1]
	assert.Equal(t, dto.StrategyStatusActive, started.Status)
	assert.Equal(t, []string{"AAPL", "MSFT"}, []string(started.Symbols))
	assert.Equal(t, 60, started.CheckInterval)
	assert.Equal(t, 0, started.ConsecutiveErrors)
	assert.Empty(t, started.ErrorMessage)
	require.NotNil(t, started.StartedAt)
	assert.Nil(t, started.LastCheck)

	assert.Error(t, svc.StartStrategy(ctx, 1), "starting an active strategy is rejected")

	require.NoError(t, svc.PauseStrategy(ctx, 1))
	assert.Equal(t, dto.StrategyStatusPaused, strategyRepo.strategies[1].Status)

	assert.Error(t, svc.PauseStrategy(ctx, 1), "pausing requires an active strategy")

	require.NoError(t, svc.StopStrategy(ctx, 1))
	stopped := strategyRepo.strategies[1]
	assert.Equal(t, dto.StrategyStatusStopped, stopped.Status)
	require.NotNil(t, stopped.StoppedAt)

	assert.Error(t, svc.StartStrategy(ctx, 99), "unknown strategy")
}

func TestCreateDefinition_ValidatesAndStoresDefaults(t *testing.T) {
	svc, _, _, _ := newSchedulerFixture(&fakeMarket{}, &fakePaperTradingService{}, &fakeRisk{ok: true})
	ctx := context.Background()

	def, err := svc.CreateDefinition(ctx, "breakout", dto.StrategyDonchian, []byte(`{"entry_period":55}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"entry_period":55,"exit_period":10}`, string(def.Parameters))

	_, err = svc.CreateDefinition(ctx, "bad", dto.StrategyDonchian, []byte(`{"entry_period":1}`))
	assert.Error(t, err, "period below minimum fails validation")

	_, err = svc.CreateDefinition(ctx, "unknown", dto.StrategyKind("macd"), nil)
	assert.Error(t, err)
}
