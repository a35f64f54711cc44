package dto

import "time"

// TradingSignal is the transient outcome of evaluating one symbol at one
// instant. It is never persisted as-is; non-HOLD signals are recorded as
// signal history rows by the scheduler.
type TradingSignal struct {
	Symbol     string             `json:"symbol"`
	Signal     SignalType         `json:"signal"`
	Price      float64            `json:"price"`
	Strength   float64            `json:"strength"`
	Volume     float64            `json:"volume"`
	Reasoning  string             `json:"reasoning"`
	Indicators map[string]float64 `json:"indicators"`
	Timestamp  time.Time          `json:"timestamp"`
}
