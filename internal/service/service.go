package service

import (
	"autotrader/config"
	"autotrader/internal/contract"
	"autotrader/internal/repository"
	"autotrader/pkg/logger"
	"autotrader/pkg/telegram"
)

type Service struct {
	PaperTradingService PaperTradingService
	SchedulerService    SchedulerService
	NotificationService NotificationService
	RiskService         contract.RiskManager
	Market              contract.MarketDataProvider
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	telegramSender *telegram.Sender,
) *Service {
	notificationService := NewNotificationService(cfg, log, repo.NotificationRepo, telegramSender)
	paperTradingService := NewPaperTradingService(cfg, log, repo.PaperTradingRepo, repo.AlpacaRepo, repo.UnitOfWork)
	riskService := NewRiskService(cfg, log, repo.PaperTradingRepo, repo.StrategyRepo)
	schedulerService := NewSchedulerService(
		cfg,
		log,
		repo.StrategyRepo,
		repo.SignalHistoryRepo,
		repo.PaperTradingRepo,
		repo.AlpacaRepo,
		paperTradingService,
		riskService,
		repo.CredentialRepo,
		notificationService,
	)

	return &Service{
		PaperTradingService: paperTradingService,
		SchedulerService:    schedulerService,
		NotificationService: notificationService,
		RiskService:         riskService,
		Market:              repo.AlpacaRepo,
	}
}
