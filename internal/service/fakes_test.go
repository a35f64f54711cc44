package service

import (
	"context"
	"fmt"
	"time"

	"autotrader/internal/contract"
	"autotrader/internal/dto"
	"autotrader/internal/model"
	"autotrader/pkg/utils"

	"gorm.io/gorm"
)

type fakeCredentials struct {
	keys *contract.BrokerKeys
	err  error
}

func (f *fakeCredentials) Resolve(ctx context.Context, userID uint) (*contract.BrokerKeys, error) {
	return f.keys, f.err
}

type fakeUnitOfWork struct{}

func (f *fakeUnitOfWork) Begin() *gorm.DB    { return nil }
func (f *fakeUnitOfWork) Commit() error      { return nil }
func (f *fakeUnitOfWork) Rollback() error    { return nil }
func (f *fakeUnitOfWork) Run(fn func(opts ...utils.DBOption) error) error {
	return fn()
}

type fakePaperRepo struct {
	accounts  map[uint]*model.PaperAccount
	positions map[string]*model.PaperPosition
	trades    []model.PaperTrade
	nextID    uint
}

func newFakePaperRepo() *fakePaperRepo {
	return &fakePaperRepo{
		accounts:  make(map[uint]*model.PaperAccount),
		positions: make(map[string]*model.PaperPosition),
	}
}

func posKey(accountID uint, symbol string) string {
	return fmt.Sprintf("%d:%s", accountID, symbol)
}

func (f *fakePaperRepo) GetAccountByUserID(ctx context.Context, userID uint, opts ...utils.DBOption) (*model.PaperAccount, error) {
	account, ok := f.accounts[userID]
	if !ok {
		return nil, nil
	}
	cp := *account
	return &cp, nil
}

func (f *fakePaperRepo) CreateAccount(ctx context.Context, account *model.PaperAccount, opts ...utils.DBOption) error {
	f.nextID++
	account.ID = f.nextID
	cp := *account
	f.accounts[account.UserID] = &cp
	return nil
}

func (f *fakePaperRepo) SaveAccount(ctx context.Context, account *model.PaperAccount, opts ...utils.DBOption) error {
	cp := *account
	f.accounts[account.UserID] = &cp
	return nil
}

func (f *fakePaperRepo) GetPositions(ctx context.Context, accountID uint, opts ...utils.DBOption) ([]model.PaperPosition, error) {
	var out []model.PaperPosition
	for _, p := range f.positions {
		if p.AccountID == accountID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePaperRepo) GetPosition(ctx context.Context, accountID uint, symbol string, opts ...utils.DBOption) (*model.PaperPosition, error) {
	p, ok := f.positions[posKey(accountID, symbol)]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePaperRepo) SavePosition(ctx context.Context, position *model.PaperPosition, opts ...utils.DBOption) error {
	if position.ID == 0 {
		f.nextID++
		position.ID = f.nextID
	}
	cp := *position
	f.positions[posKey(position.AccountID, position.Symbol)] = &cp
	return nil
}

func (f *fakePaperRepo) DeletePosition(ctx context.Context, id uint, opts ...utils.DBOption) error {
	for key, p := range f.positions {
		if p.ID == id {
			delete(f.positions, key)
			return nil
		}
	}
	return nil
}

func (f *fakePaperRepo) DeletePositionsByAccount(ctx context.Context, accountID uint, opts ...utils.DBOption) error {
	for key, p := range f.positions {
		if p.AccountID == accountID {
			delete(f.positions, key)
		}
	}
	return nil
}

func (f *fakePaperRepo) CreateTrade(ctx context.Context, trade *model.PaperTrade, opts ...utils.DBOption) error {
	f.nextID++
	trade.ID = f.nextID
	f.trades = append(f.trades, *trade)
	return nil
}

func (f *fakePaperRepo) GetTrades(ctx context.Context, accountID uint, limit int) ([]model.PaperTrade, error) {
	var out []model.PaperTrade
	for _, t := range f.trades {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakePaperRepo) DeleteTradesByAccount(ctx context.Context, accountID uint, opts ...utils.DBOption) error {
	kept := f.trades[:0]
	for _, t := range f.trades {
		if t.AccountID != accountID {
			kept = append(kept, t)
		}
	}
	f.trades = kept
	return nil
}

type fakeMarket struct {
	prices  map[string]float64
	bars    map[string][]dto.Bar
	barsErr error
}

func (f *fakeMarket) GetLatestTrade(ctx context.Context, symbol string) (*dto.LastTrade, error) {
	price, ok := f.prices[symbol]
	if !ok {
		return nil, fmt.Errorf("no price for %s", symbol)
	}
	return &dto.LastTrade{Symbol: symbol, Price: price, Timestamp: time.Now().UTC()}, nil
}

func (f *fakeMarket) GetLatestQuote(ctx context.Context, symbol string) (*dto.LastQuote, error) {
	return &dto.LastQuote{Symbol: symbol}, nil
}

func (f *fakeMarket) GetLatestTrades(ctx context.Context, symbols []string) (map[string]dto.LastTrade, error) {
	out := make(map[string]dto.LastTrade)
	for _, s := range symbols {
		if price, ok := f.prices[s]; ok {
			out[s] = dto.LastTrade{Symbol: s, Price: price}
		}
	}
	return out, nil
}

func (f *fakeMarket) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]dto.Bar, error) {
	if f.barsErr != nil {
		return nil, f.barsErr
	}
	return f.bars[symbol], nil
}

type fakeStrategyRepo struct {
	defs       map[uint]*model.StrategyDefinition
	strategies map[uint]*model.LiveStrategy
	saved      []model.LiveStrategy
	nextID     uint
}

func newFakeStrategyRepo() *fakeStrategyRepo {
	return &fakeStrategyRepo{
		defs:       make(map[uint]*model.StrategyDefinition),
		strategies: make(map[uint]*model.LiveStrategy),
	}
}

func (f *fakeStrategyRepo) CreateDefinition(ctx context.Context, def *model.StrategyDefinition, opts ...utils.DBOption) error {
	f.nextID++
	def.ID = f.nextID
	cp := *def
	f.defs[def.ID] = &cp
	return nil
}

func (f *fakeStrategyRepo) GetDefinition(ctx context.Context, id uint) (*model.StrategyDefinition, error) {
	def, ok := f.defs[id]
	if !ok {
		return nil, nil
	}
	cp := *def
	return &cp, nil
}

func (f *fakeStrategyRepo) ListDefinitions(ctx context.Context) ([]model.StrategyDefinition, error) {
	var out []model.StrategyDefinition
	for _, d := range f.defs {
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeStrategyRepo) Create(ctx context.Context, strategy *model.LiveStrategy, opts ...utils.DBOption) error {
	f.nextID++
	strategy.ID = f.nextID
	cp := *strategy
	f.strategies[strategy.ID] = &cp
	return nil
}

func (f *fakeStrategyRepo) GetByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.LiveStrategy, error) {
	s, ok := f.strategies[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStrategyRepo) GetByStatus(ctx context.Context, status dto.StrategyStatus) ([]model.LiveStrategy, error) {
	var out []model.LiveStrategy
	for _, s := range f.strategies {
		if s.Status == status {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStrategyRepo) Save(ctx context.Context, strategy *model.LiveStrategy, opts ...utils.DBOption) error {
	cp := *strategy
	f.strategies[strategy.ID] = &cp
	f.saved = append(f.saved, cp)
	return nil
}

func (f *fakeStrategyRepo) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}, opts ...utils.DBOption) error {
	return nil
}

type fakeSignalRepo struct {
	created  []model.SignalHistory
	executed map[uint]string
	failed   map[uint]string
	nextID   uint
}

func newFakeSignalRepo() *fakeSignalRepo {
	return &fakeSignalRepo{
		executed: make(map[uint]string),
		failed:   make(map[uint]string),
	}
}

func (f *fakeSignalRepo) Create(ctx context.Context, signal *model.SignalHistory, opts ...utils.DBOption) error {
	f.nextID++
	signal.ID = f.nextID
	f.created = append(f.created, *signal)
	return nil
}

func (f *fakeSignalRepo) MarkExecuted(ctx context.Context, id uint, orderID string, price float64, at time.Time, opts ...utils.DBOption) error {
	f.executed[id] = orderID
	return nil
}

func (f *fakeSignalRepo) MarkFailed(ctx context.Context, id uint, reason string, opts ...utils.DBOption) error {
	f.failed[id] = reason
	return nil
}

func (f *fakeSignalRepo) GetByStrategy(ctx context.Context, strategyID uint, limit int) ([]model.SignalHistory, error) {
	var out []model.SignalHistory
	for _, s := range f.created {
		if s.StrategyID == strategyID {
			out = append(out, s)
		}
	}
	return out, nil
}

type notificationRecord struct {
	UserID   uint
	Title    string
	Message  string
	Priority dto.NotificationPriority
}

type fakeNotifier struct {
	records []notificationRecord
}

func (f *fakeNotifier) CreateNotification(ctx context.Context, userID uint, title, message string, priority dto.NotificationPriority, metadata map[string]interface{}) error {
	f.records = append(f.records, notificationRecord{
		UserID:   userID,
		Title:    title,
		Message:  message,
		Priority: priority,
	})
	return nil
}

type fakeRisk struct {
	ok     bool
	reason string
	err    error
}

func (f *fakeRisk) EvaluateRules(ctx context.Context, userID uint, strategyID uint, symbol string, orderQty, orderValue float64) ([]dto.RiskBreach, error) {
	return nil, nil
}

func (f *fakeRisk) ValidateTrade(ctx context.Context, userID uint, symbol string, side dto.OrderSide, qty, price float64) (bool, string, error) {
	return f.ok, f.reason, f.err
}

func (f *fakeRisk) CalculatePositionSize(ctx context.Context, userID uint, accountValue, entryPrice, stopPrice float64) (*dto.PositionSizeResult, error) {
	return nil, nil
}

type executedOrder struct {
	UserID uint
	Symbol string
	Qty    float64
	Side   dto.OrderSide
	Price  float64
}

type fakePaperTradingService struct {
	result *dto.OrderResult
	err    error
	orders []executedOrder
}

func (f *fakePaperTradingService) Initialize(ctx context.Context, userID uint, startingBalance float64) (*model.PaperAccount, error) {
	return &model.PaperAccount{UserID: userID}, nil
}

func (f *fakePaperTradingService) ExecuteOrder(ctx context.Context, userID uint, symbol string, qty float64, side dto.OrderSide, price float64) (*dto.OrderResult, error) {
	f.orders = append(f.orders, executedOrder{UserID: userID, Symbol: symbol, Qty: qty, Side: side, Price: price})
	return f.result, f.err
}

func (f *fakePaperTradingService) GetAccount(ctx context.Context, userID uint) (*dto.AccountSnapshot, error) {
	return &dto.AccountSnapshot{UserID: userID}, nil
}

func (f *fakePaperTradingService) GetTrades(ctx context.Context, userID uint, limit int) ([]model.PaperTrade, error) {
	return nil, nil
}

func (f *fakePaperTradingService) Reset(ctx context.Context, userID uint, startingBalance float64) (*model.PaperAccount, error) {
	return &model.PaperAccount{UserID: userID}, nil
}
