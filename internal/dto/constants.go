package dto

type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
	SignalHold SignalType = "HOLD"
)

type StrategyStatus string

const (
	StrategyStatusActive  StrategyStatus = "ACTIVE"
	StrategyStatusPaused  StrategyStatus = "PAUSED"
	StrategyStatusStopped StrategyStatus = "STOPPED"
	StrategyStatusError   StrategyStatus = "ERROR"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "LOW"
	PriorityMedium NotificationPriority = "MEDIUM"
	PriorityHigh   NotificationPriority = "HIGH"
)
