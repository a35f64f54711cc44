package signal

import (
	"fmt"
	"time"

	"autotrader/internal/dto"
)

// Evaluate turns a bar history into a trading signal for one strategy
// parameter set. hasPosition gates direction: a BUY is never emitted while
// holding and a SELL never without a position; both cases collapse to HOLD
// with strength zero. The returned signal carries the raw indicator values
// and a reasoning string with the actual numbers, so every decision can be
// reconstructed later.
func Evaluate(params dto.StrategyParams, bars []dto.Bar, hasPosition bool) (dto.TradingSignal, error) {
	if len(bars) < 2 {
		return dto.TradingSignal{}, fmt.Errorf("need at least 2 bars, have %d", len(bars))
	}

	var (
		sig dto.TradingSignal
		err error
	)

	switch p := params.(type) {
	case dto.TrendParams:
		sig, err = evaluateTrend(p, bars)
	case dto.DonchianParams:
		sig, err = evaluateDonchian(p, bars)
	case dto.IchimokuParams:
		sig, err = evaluateIchimoku(p, bars)
	case dto.StochasticParams:
		sig, err = evaluateStochastic(p, bars)
	default:
		return dto.TradingSignal{}, fmt.Errorf("unsupported strategy params %T", params)
	}
	if err != nil {
		return dto.TradingSignal{}, err
	}

	last := bars[len(bars)-1]
	sig.Price = last.Close
	sig.Volume = last.Volume
	sig.Timestamp = time.Now().UTC()

	if sig.Signal == dto.SignalBuy && hasPosition {
		sig.Signal = dto.SignalHold
		sig.Strength = 0
		sig.Reasoning = "Buy condition met but position already held"
	}
	if sig.Signal == dto.SignalSell && !hasPosition {
		sig.Signal = dto.SignalHold
		sig.Strength = 0
		sig.Reasoning = "Sell condition met but no position held"
	}

	return sig, nil
}

// clampStrength bounds a raw strength into the reported [0.3, 1.0] band.
func clampStrength(v float64) float64 {
	if v < 0.3 {
		return 0.3
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

func hold(reason string, indicators map[string]float64) dto.TradingSignal {
	return dto.TradingSignal{
		Signal:     dto.SignalHold,
		Strength:   0,
		Reasoning:  reason,
		Indicators: indicators,
	}
}
