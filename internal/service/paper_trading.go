package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"autotrader/config"
	"autotrader/internal/contract"
	"autotrader/internal/dto"
	"autotrader/internal/model"
	"autotrader/internal/repository"
	"autotrader/pkg/logger"
	"autotrader/pkg/utils"
)

// PaperTradingService is the virtual ledger: cash, positions and fills for
// simulated trading. Orders always fill in full at the given price.
type PaperTradingService interface {
	Initialize(ctx context.Context, userID uint, startingBalance float64) (*model.PaperAccount, error)
	ExecuteOrder(ctx context.Context, userID uint, symbol string, qty float64, side dto.OrderSide, price float64) (*dto.OrderResult, error)
	GetAccount(ctx context.Context, userID uint) (*dto.AccountSnapshot, error)
	GetTrades(ctx context.Context, userID uint, limit int) ([]model.PaperTrade, error)
	Reset(ctx context.Context, userID uint, startingBalance float64) (*model.PaperAccount, error)
}

type paperTradingService struct {
	cfg              *config.Config
	log              *logger.Logger
	paperTradingRepo repository.PaperTradingRepository
	market           contract.MarketDataProvider
	uow              repository.UnitOfWork

	// one lock per account so concurrent orders cannot interleave a
	// read-modify-write on the same cash balance
	mu           sync.Mutex
	accountLocks map[uint]*sync.Mutex
}

func NewPaperTradingService(
	cfg *config.Config,
	log *logger.Logger,
	paperTradingRepo repository.PaperTradingRepository,
	market contract.MarketDataProvider,
	uow repository.UnitOfWork,
) PaperTradingService {
	return &paperTradingService{
		cfg:              cfg,
		log:              log,
		paperTradingRepo: paperTradingRepo,
		market:           market,
		uow:              uow,
		accountLocks:     make(map[uint]*sync.Mutex),
	}
}

func (s *paperTradingService) lockAccount(userID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.accountLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.accountLocks[userID] = lock
	}
	return lock
}

// Initialize returns the user's account, creating it on first use. Calling
// it again is a no-op and never changes balances.
func (s *paperTradingService) Initialize(ctx context.Context, userID uint, startingBalance float64) (*model.PaperAccount, error) {
	account, err := s.paperTradingRepo.GetAccountByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}

	if startingBalance <= 0 {
		startingBalance = s.cfg.Trading.DefaultStartingBalance
	}
	account = &model.PaperAccount{
		UserID:         userID,
		CashBalance:    startingBalance,
		InitialBalance: startingBalance,
	}
	if err := s.paperTradingRepo.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "Paper account created",
		logger.IntField("user_id", int(userID)),
		logger.FloatField("starting_balance", startingBalance))
	return account, nil
}

// ExecuteOrder settles a simulated fill. Validation failures come back as
// an unsuccessful OrderResult; a non-nil error means the ledger itself
// failed and nothing was recorded.
func (s *paperTradingService) ExecuteOrder(ctx context.Context, userID uint, symbol string, qty float64, side dto.OrderSide, price float64) (*dto.OrderResult, error) {
	if qty <= 0 {
		return &dto.OrderResult{Error: "Quantity must be positive"}, nil
	}
	if price <= 0 {
		return &dto.OrderResult{Error: "Price must be positive"}, nil
	}
	if side != dto.OrderSideBuy && side != dto.OrderSideSell {
		return &dto.OrderResult{Error: fmt.Sprintf("Unknown order side %q", side)}, nil
	}

	lock := s.lockAccount(userID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.Initialize(ctx, userID, 0); err != nil {
		return nil, err
	}

	result := &dto.OrderResult{}
	err := s.uow.Run(func(opts ...utils.DBOption) error {
		account, err := s.paperTradingRepo.GetAccountByUserID(ctx, userID, opts...)
		if err != nil {
			return err
		}
		if account == nil {
			return fmt.Errorf("paper account for user %d disappeared", userID)
		}

		switch side {
		case dto.OrderSideBuy:
			return s.settleBuy(ctx, account, symbol, qty, price, result, opts...)
		default:
			return s.settleSell(ctx, account, symbol, qty, price, result, opts...)
		}
	})
	if err != nil {
		return nil, err
	}

	if result.Success {
		snapshot, err := s.GetAccount(ctx, userID)
		if err != nil {
			s.log.WarnContext(ctx, "Order settled but snapshot failed",
				logger.IntField("user_id", int(userID)),
				logger.ErrorField(err))
		} else {
			result.Account = snapshot
		}
	}

	return result, nil
}

func (s *paperTradingService) settleBuy(ctx context.Context, account *model.PaperAccount, symbol string, qty, price float64, result *dto.OrderResult, opts ...utils.DBOption) error {
	cost := qty * price
	if cost > account.CashBalance {
		result.Error = fmt.Sprintf("Insufficient funds: need %.2f, have %.2f", cost, account.CashBalance)
		return nil
	}

	position, err := s.paperTradingRepo.GetPosition(ctx, account.ID, symbol, opts...)
	if err != nil {
		return err
	}
	if position == nil {
		position = &model.PaperPosition{
			AccountID: account.ID,
			Symbol:    symbol,
			Qty:       qty,
			AvgPrice:  price,
		}
	} else {
		totalQty := position.Qty + qty
		position.AvgPrice = (position.Qty*position.AvgPrice + qty*price) / totalQty
		position.Qty = totalQty
	}
	if err := s.paperTradingRepo.SavePosition(ctx, position, opts...); err != nil {
		return err
	}

	account.CashBalance -= cost
	if err := s.paperTradingRepo.SaveAccount(ctx, account, opts...); err != nil {
		return err
	}

	return s.recordFill(ctx, account, symbol, qty, dto.OrderSideBuy, price, 0, result, opts...)
}

func (s *paperTradingService) settleSell(ctx context.Context, account *model.PaperAccount, symbol string, qty, price float64, result *dto.OrderResult, opts ...utils.DBOption) error {
	position, err := s.paperTradingRepo.GetPosition(ctx, account.ID, symbol, opts...)
	if err != nil {
		return err
	}
	if position == nil || position.Qty < qty {
		held := 0.0
		if position != nil {
			held = position.Qty
		}
		result.Error = fmt.Sprintf("Insufficient position: have %.4f %s, tried to sell %.4f", held, symbol, qty)
		return nil
	}

	realized := (price - position.AvgPrice) * qty
	position.Qty -= qty
	if position.Qty <= 0 {
		if err := s.paperTradingRepo.DeletePosition(ctx, position.ID, opts...); err != nil {
			return err
		}
	} else {
		// avg price is unchanged by a partial sell
		if err := s.paperTradingRepo.SavePosition(ctx, position, opts...); err != nil {
			return err
		}
	}

	account.CashBalance += qty * price
	account.TotalPnL += realized
	if err := s.paperTradingRepo.SaveAccount(ctx, account, opts...); err != nil {
		return err
	}

	return s.recordFill(ctx, account, symbol, qty, dto.OrderSideSell, price, realized, result, opts...)
}

func (s *paperTradingService) recordFill(ctx context.Context, account *model.PaperAccount, symbol string, qty float64, side dto.OrderSide, price, realized float64, result *dto.OrderResult, opts ...utils.DBOption) error {
	now := time.Now().UTC()
	trade := &model.PaperTrade{
		AccountID: account.ID,
		Symbol:    symbol,
		Qty:       qty,
		Side:      side,
		Price:     price,
		Value:     qty * price,
		Timestamp: now,
	}
	if err := s.paperTradingRepo.CreateTrade(ctx, trade, opts...); err != nil {
		return err
	}

	result.Success = true
	result.Trade = &dto.TradeSnapshot{
		Symbol:      symbol,
		Qty:         qty,
		Side:        side,
		Price:       price,
		Value:       qty * price,
		RealizedPnL: realized,
		Timestamp:   now,
	}
	return nil
}

// GetAccount builds the read-model: positions marked to the latest trade
// prices. When a live price is unavailable the average entry price is used,
// reporting zero unrealized P&L for that position.
func (s *paperTradingService) GetAccount(ctx context.Context, userID uint) (*dto.AccountSnapshot, error) {
	account, err := s.Initialize(ctx, userID, 0)
	if err != nil {
		return nil, err
	}

	positions, err := s.paperTradingRepo.GetPositions(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(positions))
	for _, p := range positions {
		symbols = append(symbols, p.Symbol)
	}

	var prices map[string]dto.LastTrade
	if len(symbols) > 0 {
		prices, err = s.market.GetLatestTrades(ctx, symbols)
		if err != nil {
			s.log.WarnContext(ctx, "Live prices unavailable, falling back to entry prices",
				logger.IntField("user_id", int(userID)),
				logger.ErrorField(err))
		}
	}

	snapshot := &dto.AccountSnapshot{
		UserID:         userID,
		CashBalance:    account.CashBalance,
		InitialBalance: account.InitialBalance,
		Positions:      make([]dto.PositionSnapshot, 0, len(positions)),
	}

	equity := account.CashBalance
	for _, p := range positions {
		current := p.AvgPrice
		if trade, ok := prices[p.Symbol]; ok && trade.Price > 0 {
			current = trade.Price
		}
		marketValue := p.Qty * current
		equity += marketValue
		snapshot.Positions = append(snapshot.Positions, dto.PositionSnapshot{
			Symbol:        p.Symbol,
			Qty:           p.Qty,
			AvgPrice:      p.AvgPrice,
			CurrentPrice:  current,
			MarketValue:   marketValue,
			UnrealizedPnL: (current - p.AvgPrice) * p.Qty,
		})
	}

	snapshot.TotalEquity = equity
	snapshot.TotalPnL = equity - account.InitialBalance
	if account.InitialBalance > 0 {
		snapshot.TotalReturnPct = (equity - account.InitialBalance) / account.InitialBalance * 100
	}
	return snapshot, nil
}

func (s *paperTradingService) GetTrades(ctx context.Context, userID uint, limit int) ([]model.PaperTrade, error) {
	account, err := s.Initialize(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	return s.paperTradingRepo.GetTrades(ctx, account.ID, limit)
}

// Reset wipes positions and trade history and restores the account to a
// fresh starting balance.
func (s *paperTradingService) Reset(ctx context.Context, userID uint, startingBalance float64) (*model.PaperAccount, error) {
	lock := s.lockAccount(userID)
	lock.Lock()
	defer lock.Unlock()

	account, err := s.Initialize(ctx, userID, startingBalance)
	if err != nil {
		return nil, err
	}

	if startingBalance <= 0 {
		startingBalance = s.cfg.Trading.DefaultStartingBalance
	}

	err = s.uow.Run(func(opts ...utils.DBOption) error {
		if err := s.paperTradingRepo.DeletePositionsByAccount(ctx, account.ID, opts...); err != nil {
			return err
		}
		if err := s.paperTradingRepo.DeleteTradesByAccount(ctx, account.ID, opts...); err != nil {
			return err
		}
		account.CashBalance = startingBalance
		account.InitialBalance = startingBalance
		account.TotalPnL = 0
		return s.paperTradingRepo.SaveAccount(ctx, account, opts...)
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "Paper account reset",
		logger.IntField("user_id", int(userID)),
		logger.FloatField("starting_balance", startingBalance))
	return account, nil
}
