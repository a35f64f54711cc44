package repository

import (
	"context"
	"errors"

	"autotrader/internal/model"
	"autotrader/pkg/utils"

	"gorm.io/gorm"
)

type PaperTradingRepository interface {
	GetAccountByUserID(ctx context.Context, userID uint, opts ...utils.DBOption) (*model.PaperAccount, error)
	CreateAccount(ctx context.Context, account *model.PaperAccount, opts ...utils.DBOption) error
	SaveAccount(ctx context.Context, account *model.PaperAccount, opts ...utils.DBOption) error

	GetPositions(ctx context.Context, accountID uint, opts ...utils.DBOption) ([]model.PaperPosition, error)
	GetPosition(ctx context.Context, accountID uint, symbol string, opts ...utils.DBOption) (*model.PaperPosition, error)
	SavePosition(ctx context.Context, position *model.PaperPosition, opts ...utils.DBOption) error
	DeletePosition(ctx context.Context, id uint, opts ...utils.DBOption) error
	DeletePositionsByAccount(ctx context.Context, accountID uint, opts ...utils.DBOption) error

	CreateTrade(ctx context.Context, trade *model.PaperTrade, opts ...utils.DBOption) error
	GetTrades(ctx context.Context, accountID uint, limit int) ([]model.PaperTrade, error)
	DeleteTradesByAccount(ctx context.Context, accountID uint, opts ...utils.DBOption) error
}

type paperTradingRepository struct {
	db *gorm.DB
}

func NewPaperTradingRepository(db *gorm.DB) PaperTradingRepository {
	return &paperTradingRepository{
		db: db,
	}
}

func (r *paperTradingRepository) GetAccountByUserID(ctx context.Context, userID uint, opts ...utils.DBOption) (*model.PaperAccount, error) {
	var account model.PaperAccount
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("user_id = ?", userID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *paperTradingRepository) CreateAccount(ctx context.Context, account *model.PaperAccount, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(account).Error
}

func (r *paperTradingRepository) SaveAccount(ctx context.Context, account *model.PaperAccount, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Save(account).Error
}

func (r *paperTradingRepository) GetPositions(ctx context.Context, accountID uint, opts ...utils.DBOption) ([]model.PaperPosition, error) {
	var positions []model.PaperPosition
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("account_id = ?", accountID).
		Order("symbol").
		Find(&positions).Error
	if err != nil {
		return nil, err
	}
	return positions, nil
}

func (r *paperTradingRepository) GetPosition(ctx context.Context, accountID uint, symbol string, opts ...utils.DBOption) (*model.PaperPosition, error) {
	var position model.PaperPosition
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("account_id = ? AND symbol = ?", accountID, symbol).
		First(&position).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &position, nil
}

func (r *paperTradingRepository) SavePosition(ctx context.Context, position *model.PaperPosition, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Save(position).Error
}

func (r *paperTradingRepository) DeletePosition(ctx context.Context, id uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Delete(&model.PaperPosition{}, id).Error
}

func (r *paperTradingRepository) DeletePositionsByAccount(ctx context.Context, accountID uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("account_id = ?", accountID).
		Delete(&model.PaperPosition{}).Error
}

func (r *paperTradingRepository) CreateTrade(ctx context.Context, trade *model.PaperTrade, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(trade).Error
}

func (r *paperTradingRepository) GetTrades(ctx context.Context, accountID uint, limit int) ([]model.PaperTrade, error) {
	var trades []model.PaperTrade
	q := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

func (r *paperTradingRepository) DeleteTradesByAccount(ctx context.Context, accountID uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("account_id = ?", accountID).
		Delete(&model.PaperTrade{}).Error
}
