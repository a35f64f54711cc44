package signal

import (
	"fmt"
	"math"

	"autotrader/internal/dto"
	"autotrader/internal/indicator"
)

// evaluateTrend enters on a close crossing above the EMA and exits on a
// close crossing below a chandelier trailing stop (highest high over
// StopPeriod minus ATRMultiplier * ATR).
func evaluateTrend(p dto.TrendParams, bars []dto.Bar) (dto.TradingSignal, error) {
	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
	}

	ema, err := indicator.EMASeries(closes, p.EMAPeriod)
	if err != nil {
		return dto.TradingSignal{}, err
	}
	atr, err := indicator.ATRSeries(bars, p.ATRPeriod)
	if err != nil {
		return dto.TradingSignal{}, err
	}
	hh, err := indicator.RollingMax(highs, p.StopPeriod)
	if err != nil {
		return dto.TradingSignal{}, err
	}

	i := len(bars) - 1
	prev, cur := i-1, i
	stopPrev := hh[prev] - p.ATRMultiplier*atr[prev]
	stopCur := hh[cur] - p.ATRMultiplier*atr[cur]

	if math.IsNaN(ema[prev]) || math.IsNaN(stopPrev) {
		return dto.TradingSignal{}, fmt.Errorf("%w: trend strategy needs two evaluated samples", indicator.ErrNotEnoughData)
	}

	price, prevPrice := closes[cur], closes[prev]
	indicators := map[string]float64{
		"price":      price,
		"prev_price": prevPrice,
		"ema":        ema[cur],
		"prev_ema":   ema[prev],
		"stop":       stopCur,
		"prev_stop":  stopPrev,
		"atr":        atr[cur],
	}

	// crossover above the EMA
	if prevPrice <= ema[prev] && price > ema[cur] {
		strength := clampStrength(math.Abs(price-ema[cur]) / ema[cur] * 100 * 5)
		return dto.TradingSignal{
			Signal:   dto.SignalBuy,
			Strength: strength,
			Reasoning: fmt.Sprintf("Price %.2f crossed above EMA(%d) %.2f (previous close %.2f vs EMA %.2f)",
				price, p.EMAPeriod, ema[cur], prevPrice, ema[prev]),
			Indicators: indicators,
		}, nil
	}

	// crossover below the trailing stop
	if prevPrice >= stopPrev && price < stopCur {
		strength := clampStrength(math.Abs(price-stopCur) / stopCur * 100 * 5)
		return dto.TradingSignal{
			Signal:   dto.SignalSell,
			Strength: strength,
			Reasoning: fmt.Sprintf("Price %.2f fell below trailing stop %.2f (%.1fx ATR %.2f under %d-bar high %.2f)",
				price, stopCur, p.ATRMultiplier, atr[cur], p.StopPeriod, hh[cur]),
			Indicators: indicators,
		}, nil
	}

	return hold(fmt.Sprintf("No crossover: price %.2f, EMA(%d) %.2f, trailing stop %.2f",
		price, p.EMAPeriod, ema[cur], stopCur), indicators), nil
}
