package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"autotrader/config"
	"autotrader/internal/contract"
	"autotrader/internal/dto"
	"autotrader/internal/model"
	"autotrader/internal/repository"
	"autotrader/internal/signal"
	"autotrader/pkg/logger"
	"autotrader/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gorm.io/datatypes"
)

// SchedulerService drives live strategies: a periodic tick walks every
// ACTIVE strategy that is due, evaluates its symbols and pushes qualifying
// signals through the execution gate. It also owns the strategy lifecycle.
type SchedulerService interface {
	Run(ctx context.Context) error
	Shutdown(ctx context.Context) error
	Tick(ctx context.Context) error

	CreateDefinition(ctx context.Context, name string, kind dto.StrategyKind, params []byte) (*model.StrategyDefinition, error)
	CreateStrategy(ctx context.Context, strategy *model.LiveStrategy) error
	GetStrategy(ctx context.Context, id uint) (*model.LiveStrategy, error)
	ListSignals(ctx context.Context, strategyID uint, limit int) ([]model.SignalHistory, error)
	StartStrategy(ctx context.Context, id uint) error
	PauseStrategy(ctx context.Context, id uint) error
	StopStrategy(ctx context.Context, id uint) error
}

type schedulerService struct {
	cfg               *config.Config
	log               *logger.Logger
	strategyRepo      repository.StrategyRepository
	signalHistoryRepo repository.SignalHistoryRepository
	paperTradingRepo  repository.PaperTradingRepository
	market            contract.MarketDataProvider
	paperTrading      PaperTradingService
	risk              contract.RiskManager
	credentials       contract.CredentialResolver
	notifier          contract.Notifier
	validate          *validator.Validate
	cron              *cron.Cron
}

func NewSchedulerService(
	cfg *config.Config,
	log *logger.Logger,
	strategyRepo repository.StrategyRepository,
	signalHistoryRepo repository.SignalHistoryRepository,
	paperTradingRepo repository.PaperTradingRepository,
	market contract.MarketDataProvider,
	paperTrading PaperTradingService,
	risk contract.RiskManager,
	credentials contract.CredentialResolver,
	notifier contract.Notifier,
) SchedulerService {
	return &schedulerService{
		cfg:               cfg,
		log:               log,
		strategyRepo:      strategyRepo,
		signalHistoryRepo: signalHistoryRepo,
		paperTradingRepo:  paperTradingRepo,
		market:            market,
		paperTrading:      paperTrading,
		risk:              risk,
		credentials:       credentials,
		notifier:          notifier,
		validate:          validator.New(),
	}
}

// Run starts the tick loop. Ticks never overlap: if a pass is still running
// when the next fires, the new one is skipped.
func (s *schedulerService) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
		cron.Recover(cron.DiscardLogger),
	))

	spec := fmt.Sprintf("@every %s", s.cfg.Scheduler.TickInterval)
	if _, err := c.AddFunc(spec, func() {
		if err := s.Tick(ctx); err != nil {
			s.log.ErrorContext(ctx, "Scheduler tick failed", logger.ErrorField(err))
		}
	}); err != nil {
		return fmt.Errorf("register tick: %w", err)
	}

	c.Start()
	s.cron = c
	s.log.Info("Scheduler started",
		logger.StringField("tick_interval", s.cfg.Scheduler.TickInterval.String()))
	return nil
}

func (s *schedulerService) Shutdown(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		s.log.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tick is one scheduler pass. Strategies are processed sequentially; one
// broken strategy must not take the whole pass down.
func (s *schedulerService) Tick(ctx context.Context) error {
	strategies, err := s.strategyRepo.GetByStatus(ctx, dto.StrategyStatusActive)
	if err != nil {
		return fmt.Errorf("load active strategies: %w", err)
	}

	now := time.Now().UTC()
	for i := range strategies {
		if !utils.ShouldContinue(ctx, s.log) {
			return nil
		}
		strategy := &strategies[i]
		if !strategy.DueAt(now) {
			continue
		}
		s.checkStrategy(ctx, strategy, now)
	}
	return nil
}

func (s *schedulerService) checkStrategy(ctx context.Context, strategy *model.LiveStrategy, now time.Time) {
	// daily P&L resets on the first check of a new UTC day
	if strategy.LastCheck != nil && !utils.SameDayUTC(*strategy.LastCheck, now) {
		strategy.DailyPnL = 0
	}

	err := s.runChecks(ctx, strategy, now)
	strategy.LastCheck = utils.ToPointer(now)

	if err != nil {
		strategy.ConsecutiveErrors++
		strategy.ErrorMessage = err.Error()
		s.log.ErrorContext(ctx, "Strategy check failed",
			logger.IntField("strategy_id", int(strategy.ID)),
			logger.IntField("consecutive_errors", strategy.ConsecutiveErrors),
			logger.ErrorField(err))

		// a failed check trips the strategy to ERROR immediately unless the
		// configuration grants a tolerance for transient failures
		threshold := s.cfg.Scheduler.MaxConsecutiveErrors
		if threshold < 1 {
			threshold = 1
		}
		if strategy.ConsecutiveErrors >= threshold {
			strategy.Status = dto.StrategyStatusError
			strategy.StoppedAt = utils.ToPointer(now)
			if notifyErr := s.notifier.CreateNotification(ctx, strategy.UserID,
				"Strategy stopped",
				fmt.Sprintf("Strategy %d stopped after %d consecutive errors: %s", strategy.ID, strategy.ConsecutiveErrors, err.Error()),
				dto.PriorityHigh,
				map[string]interface{}{"strategy_id": strategy.ID}); notifyErr != nil {
				s.log.WarnContext(ctx, "Failed to notify strategy stop", logger.ErrorField(notifyErr))
			}
		}
	} else {
		strategy.ConsecutiveErrors = 0
		strategy.ErrorMessage = ""
	}

	if saveErr := s.strategyRepo.Save(ctx, strategy); saveErr != nil {
		s.log.ErrorContext(ctx, "Failed to persist strategy state",
			logger.IntField("strategy_id", int(strategy.ID)),
			logger.ErrorField(saveErr))
	}
}

func (s *schedulerService) runChecks(ctx context.Context, strategy *model.LiveStrategy, now time.Time) error {
	params, err := dto.DecodeStrategyParams(strategy.Definition.Kind, strategy.Definition.Parameters)
	if err != nil {
		return fmt.Errorf("decode strategy parameters: %w", err)
	}

	account, err := s.paperTradingRepo.GetAccountByUserID(ctx, strategy.UserID)
	if err != nil {
		return err
	}

	states := strategy.SymbolStates.Data()
	if states == nil {
		states = make(map[string]model.SymbolState, len(strategy.Symbols))
	}

	var firstErr error
	for _, symbol := range strategy.Symbols {
		if !utils.ShouldContinue(ctx, s.log) {
			break
		}
		if err := s.checkSymbol(ctx, strategy, account, params, symbol, now, states); err != nil {
			s.log.ErrorContext(ctx, "Symbol check failed",
				logger.IntField("strategy_id", int(strategy.ID)),
				logger.StringField("symbol", symbol),
				logger.ErrorField(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", symbol, err)
			}
		}
	}

	strategy.SymbolStates = datatypes.NewJSONType(states)
	return firstErr
}

func (s *schedulerService) checkSymbol(ctx context.Context, strategy *model.LiveStrategy, account *model.PaperAccount, params dto.StrategyParams, symbol string, now time.Time, states map[string]model.SymbolState) error {
	start := now.AddDate(0, 0, -s.cfg.Scheduler.BarHistoryDays)
	bars, err := s.market.GetBars(ctx, symbol, start, now)
	if err != nil {
		return err
	}
	if len(bars) < s.cfg.Scheduler.MinBarsRequired {
		s.log.WarnContext(ctx, "Not enough bar history, skipping symbol",
			logger.IntField("strategy_id", int(strategy.ID)),
			logger.StringField("symbol", symbol),
			logger.IntField("bars", len(bars)),
			logger.IntField("required", s.cfg.Scheduler.MinBarsRequired))
		return nil
	}

	var position *model.PaperPosition
	if account != nil {
		position, err = s.paperTradingRepo.GetPosition(ctx, account.ID, symbol)
		if err != nil {
			return err
		}
	}
	hasPosition := position != nil && position.Qty > 0

	sig, err := signal.Evaluate(params, bars, hasPosition)
	if err != nil {
		return err
	}
	sig.Symbol = symbol

	states[symbol] = model.SymbolState{
		LastPrice:   sig.Price,
		LastCheckAt: now,
		Indicators:  sig.Indicators,
	}

	if sig.Signal == dto.SignalHold {
		s.log.DebugContext(ctx, "No actionable signal",
			logger.IntField("strategy_id", int(strategy.ID)),
			logger.StringField("symbol", symbol),
			logger.StringField("reason", sig.Reasoning))
		return nil
	}

	strategy.TotalSignals++
	strategy.LastSignal = utils.ToPointer(now)

	indicators, err := json.Marshal(sig.Indicators)
	if err != nil {
		return fmt.Errorf("marshal indicators: %w", err)
	}
	history := &model.SignalHistory{
		StrategyID: strategy.ID,
		Symbol:     symbol,
		Signal:     sig.Signal,
		Strength:   sig.Strength,
		Price:      sig.Price,
		Volume:     sig.Volume,
		Reasoning:  sig.Reasoning,
		Indicators: indicators,
		Timestamp:  sig.Timestamp,
	}
	if err := s.signalHistoryRepo.Create(ctx, history); err != nil {
		return fmt.Errorf("record signal: %w", err)
	}

	s.log.InfoContext(ctx, "Signal generated",
		logger.IntField("strategy_id", int(strategy.ID)),
		logger.StringField("symbol", symbol),
		logger.StringField("signal", string(sig.Signal)),
		logger.FloatField("strength", sig.Strength),
		logger.FloatField("price", sig.Price))

	qty := s.orderQty(strategy, position, sig)
	ok, reason, err := s.executionGate(ctx, strategy, sig, qty)
	if err != nil {
		return err
	}
	if !ok {
		return s.skipExecution(ctx, strategy, sig, reason)
	}

	return s.execute(ctx, strategy, position, sig, history.ID, qty, now, hasPosition)
}

// reasonAutoExecuteOff is the one gate outcome that is routine rather than
// noteworthy: manual-mode strategies hit it on every actionable signal.
const reasonAutoExecuteOff = "Auto-execute is disabled"

// executionGate runs the pre-trade checks in order and reports the first
// failing one. The returned reason is user-facing.
func (s *schedulerService) executionGate(ctx context.Context, strategy *model.LiveStrategy, sig dto.TradingSignal, qty float64) (bool, string, error) {
	if !strategy.AutoExecute {
		return false, reasonAutoExecuteOff, nil
	}
	if sig.Strength < s.cfg.Scheduler.MinExecutionStrength {
		return false, fmt.Sprintf("Signal strength %.2f below threshold %.2f", sig.Strength, s.cfg.Scheduler.MinExecutionStrength), nil
	}
	if sig.Signal == dto.SignalBuy && strategy.CurrentPositions >= strategy.MaxPositions {
		return false, fmt.Sprintf("Max positions reached (%d)", strategy.MaxPositions), nil
	}
	if limit := math.Abs(strategy.DailyLossLimit); limit > 0 && strategy.DailyPnL < -limit {
		return false, fmt.Sprintf("Daily loss limit reached (%.2f)", strategy.DailyPnL), nil
	}
	return s.risk.ValidateTrade(ctx, strategy.UserID, sig.Symbol, sideFor(sig.Signal), qty, sig.Price)
}

// skipExecution handles a gate refusal. The history row keeps executed=false
// untouched; execution_error is reserved for attempts that actually failed.
// Manual-mode strategies refuse every signal, so that reason is not notified.
func (s *schedulerService) skipExecution(ctx context.Context, strategy *model.LiveStrategy, sig dto.TradingSignal, reason string) error {
	s.log.InfoContext(ctx, "Signal not executed",
		logger.IntField("strategy_id", int(strategy.ID)),
		logger.StringField("symbol", sig.Symbol),
		logger.StringField("reason", reason))

	if reason == reasonAutoExecuteOff {
		return nil
	}
	if err := s.notifier.CreateNotification(ctx, strategy.UserID,
		fmt.Sprintf("%s signal on %s", sig.Signal, sig.Symbol),
		fmt.Sprintf("%s (not executed: %s)", sig.Reasoning, reason),
		dto.PriorityMedium,
		map[string]interface{}{"strategy_id": strategy.ID, "strength": sig.Strength}); err != nil {
		s.log.WarnContext(ctx, "Failed to notify signal", logger.ErrorField(err))
	}
	return nil
}

func (s *schedulerService) execute(ctx context.Context, strategy *model.LiveStrategy, position *model.PaperPosition, sig dto.TradingSignal, historyID uint, qty float64, now time.Time, hadPosition bool) error {
	// no usable broker credential means no order attempt at all
	keys, err := s.credentials.Resolve(ctx, strategy.UserID)
	if err != nil {
		return fmt.Errorf("resolve broker credential: %w", err)
	}
	if keys == nil {
		s.log.WarnContext(ctx, "Execution blocked, no broker credential",
			logger.IntField("strategy_id", int(strategy.ID)),
			logger.StringField("symbol", sig.Symbol))
		if notifyErr := s.notifier.CreateNotification(ctx, strategy.UserID,
			"Execution blocked",
			fmt.Sprintf("%s signal on %s not executed: no active broker credential", sig.Signal, sig.Symbol),
			dto.PriorityHigh,
			map[string]interface{}{"strategy_id": strategy.ID}); notifyErr != nil {
			s.log.WarnContext(ctx, "Failed to notify blocked execution", logger.ErrorField(notifyErr))
		}
		return nil
	}

	result, err := s.paperTrading.ExecuteOrder(ctx, strategy.UserID, sig.Symbol, qty, sideFor(sig.Signal), sig.Price)
	if err != nil {
		return err
	}

	if !result.Success {
		if markErr := s.signalHistoryRepo.MarkFailed(ctx, historyID, result.Error); markErr != nil {
			s.log.WarnContext(ctx, "Failed to mark signal", logger.ErrorField(markErr))
		}
		s.log.WarnContext(ctx, "Order rejected by ledger",
			logger.IntField("strategy_id", int(strategy.ID)),
			logger.StringField("symbol", sig.Symbol),
			logger.StringField("error", result.Error))
		if notifyErr := s.notifier.CreateNotification(ctx, strategy.UserID,
			fmt.Sprintf("Order failed for %s", sig.Symbol),
			fmt.Sprintf("%s %s rejected: %s", sig.Signal, sig.Symbol, result.Error),
			dto.PriorityHigh,
			map[string]interface{}{"strategy_id": strategy.ID, "error": result.Error}); notifyErr != nil {
			s.log.WarnContext(ctx, "Failed to notify order failure", logger.ErrorField(notifyErr))
		}
		return nil
	}

	orderID := fmt.Sprintf("paper-%d", historyID)
	if err := s.signalHistoryRepo.MarkExecuted(ctx, historyID, orderID, sig.Price, now); err != nil {
		s.log.WarnContext(ctx, "Failed to mark signal executed", logger.ErrorField(err))
	}

	strategy.ExecutedTrades++
	if result.Trade != nil {
		strategy.DailyPnL += result.Trade.RealizedPnL
		strategy.TotalPnL += result.Trade.RealizedPnL
	}
	switch sig.Signal {
	case dto.SignalBuy:
		if !hadPosition {
			strategy.CurrentPositions++
		}
	case dto.SignalSell:
		if position != nil && qty >= position.Qty && strategy.CurrentPositions > 0 {
			strategy.CurrentPositions--
		}
	}

	if err := s.notifier.CreateNotification(ctx, strategy.UserID,
		fmt.Sprintf("Executed %s %s", sig.Signal, sig.Symbol),
		fmt.Sprintf("%.0f x %s at %.2f: %s", qty, sig.Symbol, sig.Price, sig.Reasoning),
		dto.PriorityHigh,
		map[string]interface{}{
			"strategy_id": strategy.ID,
			"order_id":    orderID,
			"qty":         qty,
			"price":       sig.Price,
		}); err != nil {
		s.log.WarnContext(ctx, "Failed to notify execution", logger.ErrorField(err))
	}

	s.log.InfoContext(ctx, "Signal executed",
		logger.IntField("strategy_id", int(strategy.ID)),
		logger.StringField("symbol", sig.Symbol),
		logger.StringField("signal", string(sig.Signal)),
		logger.FloatField("qty", qty),
		logger.FloatField("price", sig.Price))
	return nil
}

// orderQty sizes the order. Sells always close the whole position; buys
// spend the per-position budget, entering with at least one share.
func (s *schedulerService) orderQty(strategy *model.LiveStrategy, position *model.PaperPosition, sig dto.TradingSignal) float64 {
	if sig.Signal == dto.SignalSell {
		if position == nil {
			return 0
		}
		return position.Qty
	}

	budget := strategy.MaxPositionSize
	if budget <= 0 {
		budget = s.cfg.Scheduler.AssumedPortfolio * strategy.PositionSizePct
	}
	qty := math.Floor(budget / sig.Price)
	if qty < 1 {
		qty = 1
	}
	return qty
}

func sideFor(signal dto.SignalType) dto.OrderSide {
	if signal == dto.SignalSell {
		return dto.OrderSideSell
	}
	return dto.OrderSideBuy
}

func (s *schedulerService) CreateDefinition(ctx context.Context, name string, kind dto.StrategyKind, params []byte) (*model.StrategyDefinition, error) {
	decoded, err := dto.DecodeStrategyParams(kind, params)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(decoded); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	// store the fully-populated parameter set, defaults included
	normalized, err := json.Marshal(decoded)
	if err != nil {
		return nil, err
	}

	def := &model.StrategyDefinition{
		Name:       name,
		Kind:       kind,
		Parameters: normalized,
	}
	if err := s.strategyRepo.CreateDefinition(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}

func (s *schedulerService) CreateStrategy(ctx context.Context, strategy *model.LiveStrategy) error {
	def, err := s.strategyRepo.GetDefinition(ctx, strategy.DefinitionID)
	if err != nil {
		return err
	}
	if def == nil {
		return fmt.Errorf("strategy definition %d not found", strategy.DefinitionID)
	}

	strategy.Normalize()
	if len(strategy.Symbols) == 0 {
		return fmt.Errorf("strategy needs at least one symbol")
	}
	if strategy.Status == "" {
		strategy.Status = dto.StrategyStatusStopped
	}
	if strategy.MaxPositions <= 0 {
		strategy.MaxPositions = 5
	}
	if strategy.PositionSizePct == 0 {
		strategy.PositionSizePct = 0.1
	}
	if err := s.validate.Struct(strategy); err != nil {
		return fmt.Errorf("invalid strategy: %w", err)
	}

	return s.strategyRepo.Create(ctx, strategy)
}

func (s *schedulerService) GetStrategy(ctx context.Context, id uint) (*model.LiveStrategy, error) {
	return s.strategyRepo.GetByID(ctx, id)
}

func (s *schedulerService) ListSignals(ctx context.Context, strategyID uint, limit int) ([]model.SignalHistory, error) {
	return s.signalHistoryRepo.GetByStrategy(ctx, strategyID, limit)
}

func (s *schedulerService) StartStrategy(ctx context.Context, id uint) error {
	strategy, err := s.strategyRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if strategy == nil {
		return fmt.Errorf("strategy %d not found", id)
	}
	if strategy.Status == dto.StrategyStatusActive {
		return fmt.Errorf("strategy %d is already active", id)
	}

	strategy.Normalize()
	if len(strategy.Symbols) == 0 {
		return fmt.Errorf("strategy %d has no symbols", id)
	}
	if err := s.validate.Struct(strategy); err != nil {
		return fmt.Errorf("invalid strategy: %w", err)
	}

	now := time.Now().UTC()
	strategy.Status = dto.StrategyStatusActive
	strategy.StartedAt = utils.ToPointer(now)
	strategy.StoppedAt = nil
	strategy.LastCheck = nil
	strategy.ErrorMessage = ""
	strategy.ConsecutiveErrors = 0

	if err := s.strategyRepo.Save(ctx, strategy); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "Strategy started",
		logger.IntField("strategy_id", int(id)),
		logger.IntField("check_interval", strategy.CheckInterval))
	return nil
}

func (s *schedulerService) PauseStrategy(ctx context.Context, id uint) error {
	strategy, err := s.strategyRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if strategy == nil {
		return fmt.Errorf("strategy %d not found", id)
	}
	if strategy.Status != dto.StrategyStatusActive {
		return fmt.Errorf("strategy %d is not active", id)
	}

	strategy.Status = dto.StrategyStatusPaused
	if err := s.strategyRepo.Save(ctx, strategy); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "Strategy paused", logger.IntField("strategy_id", int(id)))
	return nil
}

func (s *schedulerService) StopStrategy(ctx context.Context, id uint) error {
	strategy, err := s.strategyRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if strategy == nil {
		return fmt.Errorf("strategy %d not found", id)
	}

	strategy.Status = dto.StrategyStatusStopped
	strategy.StoppedAt = utils.ToPointer(time.Now().UTC())
	if err := s.strategyRepo.Save(ctx, strategy); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "Strategy stopped", logger.IntField("strategy_id", int(id)))
	return nil
}
