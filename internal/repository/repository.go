package repository

import (
	"autotrader/config"
	"autotrader/internal/contract"
	"autotrader/pkg/cache"
	"autotrader/pkg/logger"

	"gorm.io/gorm"
)

type Repository struct {
	UserRepo          UserRepository
	StrategyRepo      StrategyRepository
	SignalHistoryRepo SignalHistoryRepository
	PaperTradingRepo  PaperTradingRepository
	NotificationRepo  NotificationRepository
	CredentialRepo    contract.CredentialResolver
	AlpacaRepo        AlpacaRepository
	UnitOfWork        UnitOfWork
}

func NewRepository(cfg *config.Config, db *gorm.DB, log *logger.Logger, c cache.Cache) (*Repository, error) {
	credentialRepo, err := NewCredentialRepository(cfg, db)
	if err != nil {
		return nil, err
	}

	return &Repository{
		UserRepo:          NewUserRepository(db),
		StrategyRepo:      NewStrategyRepository(db),
		SignalHistoryRepo: NewSignalHistoryRepository(db),
		PaperTradingRepo:  NewPaperTradingRepository(db),
		NotificationRepo:  NewNotificationRepository(db),
		CredentialRepo:    credentialRepo,
		AlpacaRepo:        NewAlpacaRepository(cfg, log, c, credentialRepo),
		UnitOfWork:        NewUnitOfWork(db),
	}, nil
}
