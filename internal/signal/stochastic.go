package signal

import (
	"fmt"
	"math"

	"autotrader/internal/dto"
	"autotrader/internal/indicator"
)

// evaluateStochastic buys a %K/%D bullish crossover inside the oversold
// zone and sells a bearish crossover inside the overbought zone. Crossovers
// outside the zones are ignored.
func evaluateStochastic(p dto.StochasticParams, bars []dto.Bar) (dto.TradingSignal, error) {
	k, d, err := indicator.StochasticSeries(bars, p.KPeriod, p.DPeriod)
	if err != nil {
		return dto.TradingSignal{}, err
	}

	i := len(bars) - 1
	prevK, prevD := k[i-1], d[i-1]
	curK, curD := k[i], d[i]
	if math.IsNaN(prevK) || math.IsNaN(prevD) {
		return dto.TradingSignal{}, fmt.Errorf("%w: stochastic needs two evaluated samples", indicator.ErrNotEnoughData)
	}

	indicators := map[string]float64{
		"k":      curK,
		"d":      curD,
		"prev_k": prevK,
		"prev_d": prevD,
	}

	bullishCross := prevK <= prevD && curK > curD
	bearishCross := prevK >= prevD && curK < curD

	if bullishCross && curK < p.Oversold && curD < p.Oversold {
		strength := clampStrength((p.Oversold - curK) / p.Oversold)
		return dto.TradingSignal{
			Signal:   dto.SignalBuy,
			Strength: strength,
			Reasoning: fmt.Sprintf("%%K %.2f crossed above %%D %.2f below oversold %.0f",
				curK, curD, p.Oversold),
			Indicators: indicators,
		}, nil
	}

	if bearishCross && curK > p.Overbought && curD > p.Overbought {
		strength := clampStrength((curK - p.Overbought) / (100 - p.Overbought))
		return dto.TradingSignal{
			Signal:   dto.SignalSell,
			Strength: strength,
			Reasoning: fmt.Sprintf("%%K %.2f crossed below %%D %.2f above overbought %.0f",
				curK, curD, p.Overbought),
			Indicators: indicators,
		}, nil
	}

	return hold(fmt.Sprintf("No qualifying stochastic crossover (%%K %.2f, %%D %.2f)",
		curK, curD), indicators), nil
}
