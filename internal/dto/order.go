package dto

import "time"

// OrderRequest is what the execution gateway sends to the broker.
type OrderRequest struct {
	Symbol      string    `json:"symbol"`
	Qty         float64   `json:"qty"`
	Side        OrderSide `json:"side"`
	Type        OrderType `json:"type"`
	LimitPrice  *float64  `json:"limit_price,omitempty"`
	TimeInForce string    `json:"time_in_force"`
}

// Order is the broker's view of a placed order.
type Order struct {
	ID             string    `json:"id"`
	Symbol         string    `json:"symbol"`
	Qty            float64   `json:"qty,string"`
	Side           OrderSide `json:"side"`
	Type           OrderType `json:"type"`
	Status         string    `json:"status"`
	FilledQty      float64   `json:"filled_qty,string"`
	FilledAvgPrice float64   `json:"filled_avg_price,string"`
	SubmittedAt    time.Time `json:"submitted_at"`
	FilledAt       *time.Time `json:"filled_at,omitempty"`
}

// OrderResult is the ledger's structured answer to an order attempt.
// Validation failures land in Error; they are results, not Go errors.
type OrderResult struct {
	Success bool             `json:"success"`
	Error   string           `json:"error,omitempty"`
	Trade   *TradeSnapshot   `json:"trade,omitempty"`
	Account *AccountSnapshot `json:"account,omitempty"`
}

type TradeSnapshot struct {
	Symbol      string    `json:"symbol"`
	Qty         float64   `json:"qty"`
	Side        OrderSide `json:"side"`
	Price       float64   `json:"price"`
	Value       float64   `json:"value"`
	RealizedPnL float64   `json:"realized_pnl"`
	Timestamp   time.Time `json:"timestamp"`
}

// AccountSnapshot is the read-model of a paper account, with market values
// recomputed from live prices at response time.
type AccountSnapshot struct {
	UserID         uint               `json:"user_id"`
	CashBalance    float64            `json:"cash_balance"`
	InitialBalance float64            `json:"initial_balance"`
	TotalEquity    float64            `json:"total_equity"`
	TotalPnL       float64            `json:"total_pnl"`
	TotalReturnPct float64            `json:"total_return_pct"`
	Positions      []PositionSnapshot `json:"positions"`
}

type PositionSnapshot struct {
	Symbol        string  `json:"symbol"`
	Qty           float64 `json:"qty"`
	AvgPrice      float64 `json:"avg_price"`
	CurrentPrice  float64 `json:"current_price"`
	MarketValue   float64 `json:"market_value"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// RiskBreach is one violated risk rule reported by the risk manager.
type RiskBreach struct {
	RuleID       string  `json:"rule_id"`
	RuleName     string  `json:"rule_name"`
	RuleType     string  `json:"rule_type"`
	Threshold    float64 `json:"threshold"`
	CurrentValue float64 `json:"current_value"`
	Action       string  `json:"action"` // BLOCK or WARN
	Message      string  `json:"message"`
}

const (
	RiskActionBlock = "BLOCK"
	RiskActionWarn  = "WARN"
)

// PositionSizeResult is the risk manager's sizing recommendation.
type PositionSizeResult struct {
	Shares       int64   `json:"shares"`
	Value        float64 `json:"value"`
	MaxLoss      float64 `json:"max_loss"`
	RiskPerShare float64 `json:"risk_per_share"`
	AccountValue float64 `json:"account_value"`
	RiskPct      float64 `json:"risk_pct"`
}
