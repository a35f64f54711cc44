package repository

import (
	"context"
	"errors"

	"autotrader/internal/dto"
	"autotrader/internal/model"
	"autotrader/pkg/utils"

	"gorm.io/gorm"
)

type StrategyRepository interface {
	CreateDefinition(ctx context.Context, def *model.StrategyDefinition, opts ...utils.DBOption) error
	GetDefinition(ctx context.Context, id uint) (*model.StrategyDefinition, error)
	ListDefinitions(ctx context.Context) ([]model.StrategyDefinition, error)

	Create(ctx context.Context, strategy *model.LiveStrategy, opts ...utils.DBOption) error
	GetByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.LiveStrategy, error)
	GetByStatus(ctx context.Context, status dto.StrategyStatus) ([]model.LiveStrategy, error)
	Save(ctx context.Context, strategy *model.LiveStrategy, opts ...utils.DBOption) error
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}, opts ...utils.DBOption) error
}

type strategyRepository struct {
	db *gorm.DB
}

func NewStrategyRepository(db *gorm.DB) StrategyRepository {
	return &strategyRepository{
		db: db,
	}
}

func (r *strategyRepository) CreateDefinition(ctx context.Context, def *model.StrategyDefinition, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(def).Error
}

func (r *strategyRepository) GetDefinition(ctx context.Context, id uint) (*model.StrategyDefinition, error) {
	var def model.StrategyDefinition
	if err := r.db.WithContext(ctx).First(&def, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &def, nil
}

func (r *strategyRepository) ListDefinitions(ctx context.Context) ([]model.StrategyDefinition, error) {
	var defs []model.StrategyDefinition
	if err := r.db.WithContext(ctx).Order("id").Find(&defs).Error; err != nil {
		return nil, err
	}
	return defs, nil
}

func (r *strategyRepository) Create(ctx context.Context, strategy *model.LiveStrategy, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(strategy).Error
}

func (r *strategyRepository) GetByID(ctx context.Context, id uint, opts ...utils.DBOption) (*model.LiveStrategy, error) {
	var strategy model.LiveStrategy
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Preload("Definition").
		First(&strategy, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &strategy, nil
}

func (r *strategyRepository) GetByStatus(ctx context.Context, status dto.StrategyStatus) ([]model.LiveStrategy, error) {
	var strategies []model.LiveStrategy
	err := r.db.WithContext(ctx).
		Preload("Definition").
		Where("status = ?", status).
		Order("id").
		Find(&strategies).Error
	if err != nil {
		return nil, err
	}
	return strategies, nil
}

// Save writes the whole row, including zeroed counters. Updates would skip
// zero values, which breaks daily P&L resets.
func (r *strategyRepository) Save(ctx context.Context, strategy *model.LiveStrategy, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Save(strategy).Error
}

func (r *strategyRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.LiveStrategy{}).
		Where("id = ?", id).
		Updates(fields).Error
}
