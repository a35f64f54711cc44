package signal

import (
	"fmt"
	"math"

	"autotrader/internal/dto"
	"autotrader/internal/indicator"
)

// evaluateDonchian buys a strict breakout above the previous EntryPeriod-day
// high and sells a strict breakdown below the previous ExitPeriod-day low.
// A close exactly on the band is not a breakout.
func evaluateDonchian(p dto.DonchianParams, bars []dto.Bar) (dto.TradingSignal, error) {
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
	}

	hh, err := indicator.RollingMax(highs, p.EntryPeriod)
	if err != nil {
		return dto.TradingSignal{}, err
	}
	ll, err := indicator.RollingMin(lows, p.ExitPeriod)
	if err != nil {
		return dto.TradingSignal{}, err
	}

	i := len(bars) - 1
	entryHigh, exitLow := hh[i-1], ll[i-1]
	if math.IsNaN(entryHigh) || math.IsNaN(exitLow) {
		return dto.TradingSignal{}, fmt.Errorf("%w: donchian needs a full channel before the current bar", indicator.ErrNotEnoughData)
	}

	price := bars[i].Close
	indicators := map[string]float64{
		"price":      price,
		"entry_high": entryHigh,
		"exit_low":   exitLow,
	}

	if price > entryHigh {
		distancePct := (price - entryHigh) / entryHigh * 100
		return dto.TradingSignal{
			Signal:   dto.SignalBuy,
			Strength: clampStrength(distancePct * 10),
			Reasoning: fmt.Sprintf("Price %.2f broke above %d-day high %.2f (+%.3f%%)",
				price, p.EntryPeriod, entryHigh, distancePct),
			Indicators: indicators,
		}, nil
	}

	if price < exitLow {
		distancePct := (exitLow - price) / exitLow * 100
		return dto.TradingSignal{
			Signal:   dto.SignalSell,
			Strength: clampStrength(distancePct * 10),
			Reasoning: fmt.Sprintf("Price %.2f broke below %d-day low %.2f (-%.3f%%)",
				price, p.ExitPeriod, exitLow, distancePct),
			Indicators: indicators,
		}, nil
	}

	return hold(fmt.Sprintf("Price %.2f inside %d/%d-day channel (high %.2f, low %.2f)",
		price, p.EntryPeriod, p.ExitPeriod, entryHigh, exitLow), indicators), nil
}
