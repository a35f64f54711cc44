package service

import (
	"context"
	"fmt"
	"math"

	"autotrader/config"
	"autotrader/internal/contract"
	"autotrader/internal/dto"
	"autotrader/internal/repository"
	"autotrader/pkg/logger"
)

// riskService is the default RiskManager. Limits come from static
// configuration plus the live account state.
type riskService struct {
	cfg              *config.Config
	log              *logger.Logger
	paperTradingRepo repository.PaperTradingRepository
	strategyRepo     repository.StrategyRepository
}

func NewRiskService(
	cfg *config.Config,
	log *logger.Logger,
	paperTradingRepo repository.PaperTradingRepository,
	strategyRepo repository.StrategyRepository,
) contract.RiskManager {
	return &riskService{
		cfg:              cfg,
		log:              log,
		paperTradingRepo: paperTradingRepo,
		strategyRepo:     strategyRepo,
	}
}

func (s *riskService) EvaluateRules(ctx context.Context, userID uint, strategyID uint, symbol string, orderQty, orderValue float64) ([]dto.RiskBreach, error) {
	var breaches []dto.RiskBreach

	if orderQty <= 0 {
		breaches = append(breaches, dto.RiskBreach{
			RuleID:       "positive_qty",
			RuleName:     "Positive order quantity",
			RuleType:     "order",
			Threshold:    0,
			CurrentValue: orderQty,
			Action:       dto.RiskActionBlock,
			Message:      "Order quantity must be positive",
		})
	}

	if maxValue := s.cfg.Trading.MaxOrderValue; maxValue > 0 && orderValue > maxValue {
		breaches = append(breaches, dto.RiskBreach{
			RuleID:       "max_order_value",
			RuleName:     "Maximum order value",
			RuleType:     "order",
			Threshold:    maxValue,
			CurrentValue: orderValue,
			Action:       dto.RiskActionBlock,
			Message:      fmt.Sprintf("Order value %.2f exceeds maximum %.2f", orderValue, maxValue),
		})
	}

	if strategyID != 0 {
		strategy, err := s.strategyRepo.GetByID(ctx, strategyID)
		if err != nil {
			return nil, err
		}
		if strategy != nil {
			maxLoss := s.cfg.Trading.MaxDailyLoss
			if maxLoss > 0 && strategy.DailyPnL <= -maxLoss {
				breaches = append(breaches, dto.RiskBreach{
					RuleID:       "max_daily_loss",
					RuleName:     "Maximum daily loss",
					RuleType:     "account",
					Threshold:    -maxLoss,
					CurrentValue: strategy.DailyPnL,
					Action:       dto.RiskActionWarn,
					Message:      fmt.Sprintf("Strategy daily P&L %.2f breaches loss limit %.2f", strategy.DailyPnL, maxLoss),
				})
			}
		}
	}

	return breaches, nil
}

// ValidateTrade answers whether an order may proceed. A false answer carries
// a human-readable reason and is not an error.
func (s *riskService) ValidateTrade(ctx context.Context, userID uint, symbol string, side dto.OrderSide, qty, price float64) (bool, string, error) {
	if qty <= 0 {
		return false, "Order quantity must be positive", nil
	}
	if price <= 0 {
		return false, "Order price must be positive", nil
	}

	orderValue := qty * price
	if maxValue := s.cfg.Trading.MaxOrderValue; maxValue > 0 && orderValue > maxValue {
		return false, fmt.Sprintf("Order value %.2f exceeds maximum %.2f", orderValue, maxValue), nil
	}

	if side == dto.OrderSideBuy {
		account, err := s.paperTradingRepo.GetAccountByUserID(ctx, userID)
		if err != nil {
			return false, "", err
		}
		if account != nil && orderValue > account.CashBalance {
			return false, fmt.Sprintf("Insufficient cash: need %.2f, have %.2f", orderValue, account.CashBalance), nil
		}
	}

	return true, "", nil
}

// CalculatePositionSize sizes an entry so the loss at the stop price stays
// within the configured risk fraction of the account.
func (s *riskService) CalculatePositionSize(ctx context.Context, userID uint, accountValue, entryPrice, stopPrice float64) (*dto.PositionSizeResult, error) {
	if entryPrice <= 0 {
		return nil, fmt.Errorf("entry price must be positive")
	}
	riskPerShare := entryPrice - stopPrice
	if riskPerShare <= 0 {
		return nil, fmt.Errorf("stop price %.2f must be below entry price %.2f", stopPrice, entryPrice)
	}

	riskPct := s.cfg.Trading.RiskPerTradePct
	maxLoss := accountValue * riskPct
	shares := int64(math.Floor(maxLoss / riskPerShare))

	// cap by order value limits and available capital
	budget := accountValue
	if maxValue := s.cfg.Trading.MaxOrderValue; maxValue > 0 && maxValue < budget {
		budget = maxValue
	}
	if maxShares := int64(math.Floor(budget / entryPrice)); shares > maxShares {
		shares = maxShares
	}
	if shares < 0 {
		shares = 0
	}

	return &dto.PositionSizeResult{
		Shares:       shares,
		Value:        float64(shares) * entryPrice,
		MaxLoss:      float64(shares) * riskPerShare,
		RiskPerShare: riskPerShare,
		AccountValue: accountValue,
		RiskPct:      riskPct,
	}, nil
}
