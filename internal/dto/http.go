package dto

import "encoding/json"

// CreateDefinitionRequest registers a reusable strategy template. Missing
// parameters fall back to the kind's defaults.
type CreateDefinitionRequest struct {
	Name       string          `json:"name" validate:"required"`
	Kind       StrategyKind    `json:"kind" validate:"required"`
	Parameters json.RawMessage `json:"parameters"`
}

// CreateStrategyRequest creates a live strategy in the STOPPED state.
type CreateStrategyRequest struct {
	UserID          uint     `json:"user_id" validate:"required"`
	DefinitionID    uint     `json:"definition_id" validate:"required"`
	Symbols         []string `json:"symbols" validate:"required,min=1"`
	CheckInterval   int      `json:"check_interval"`
	AutoExecute     bool     `json:"auto_execute"`
	MaxPositionSize float64  `json:"max_position_size" validate:"omitempty,gt=0"`
	MaxPositions    int      `json:"max_positions" validate:"omitempty,gt=0"`
	DailyLossLimit  float64  `json:"daily_loss_limit"`
	PositionSizePct float64  `json:"position_size_pct" validate:"omitempty,gt=0,lte=0.5"`
}

// PlaceOrderRequest is the ops-API body for a manual paper order.
type PlaceOrderRequest struct {
	UserID     uint     `json:"user_id" validate:"required"`
	Symbol     string   `json:"symbol" validate:"required"`
	Qty        float64  `json:"qty" validate:"required,gt=0"`
	Side       string   `json:"side" validate:"required,oneof=buy sell"`
	OrderType  string   `json:"order_type" validate:"omitempty,oneof=market limit"`
	LimitPrice *float64 `json:"limit_price" validate:"omitempty,gt=0"`
}

// ResetAccountRequest resets a paper account back to a starting balance.
type ResetAccountRequest struct {
	UserID          uint    `json:"user_id" validate:"required"`
	StartingBalance float64 `json:"starting_balance" validate:"omitempty,gt=0"`
}

type BaseResponse struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
