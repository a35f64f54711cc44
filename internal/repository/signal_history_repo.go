package repository

import (
	"context"
	"time"

	"autotrader/internal/model"
	"autotrader/pkg/utils"

	"gorm.io/gorm"
)

type SignalHistoryRepository interface {
	Create(ctx context.Context, signal *model.SignalHistory, opts ...utils.DBOption) error
	MarkExecuted(ctx context.Context, id uint, orderID string, price float64, at time.Time, opts ...utils.DBOption) error
	MarkFailed(ctx context.Context, id uint, reason string, opts ...utils.DBOption) error
	GetByStrategy(ctx context.Context, strategyID uint, limit int) ([]model.SignalHistory, error)
}

type signalHistoryRepository struct {
	db *gorm.DB
}

func NewSignalHistoryRepository(db *gorm.DB) SignalHistoryRepository {
	return &signalHistoryRepository{
		db: db,
	}
}

func (r *signalHistoryRepository) Create(ctx context.Context, signal *model.SignalHistory, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(signal).Error
}

func (r *signalHistoryRepository) MarkExecuted(ctx context.Context, id uint, orderID string, price float64, at time.Time, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.SignalHistory{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"executed":        true,
			"order_id":        orderID,
			"execution_price": price,
			"execution_time":  at,
		}).Error
}

func (r *signalHistoryRepository) MarkFailed(ctx context.Context, id uint, reason string, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.SignalHistory{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"executed":        false,
			"execution_error": reason,
		}).Error
}

func (r *signalHistoryRepository) GetByStrategy(ctx context.Context, strategyID uint, limit int) ([]model.SignalHistory, error) {
	var signals []model.SignalHistory
	q := r.db.WithContext(ctx).
		Where("strategy_id = ?", strategyID).
		Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&signals).Error; err != nil {
		return nil, err
	}
	return signals, nil
}
