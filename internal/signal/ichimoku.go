package signal

import (
	"fmt"
	"math"

	"autotrader/internal/dto"
	"autotrader/internal/indicator"
)

const (
	ichimokuWeakStrength   = 0.5
	ichimokuStrongStrength = 0.9
)

// evaluateIchimoku signals on a Tenkan/Kijun crossover. The base signal is
// weak; it is promoted to strong only when price sits on the right side of
// the current cloud AND the future cloud (Senkou A vs B at the latest bar)
// agrees with the direction. Without a crossover the result is HOLD no
// matter where price sits relative to the cloud.
func evaluateIchimoku(p dto.IchimokuParams, bars []dto.Bar) (dto.TradingSignal, error) {
	lines, err := indicator.Ichimoku(bars, p.TenkanPeriod, p.KijunPeriod, p.SenkouBPeriod)
	if err != nil {
		return dto.TradingSignal{}, err
	}

	i := len(bars) - 1
	prevTenkan, prevKijun := lines.Tenkan[i-1], lines.Kijun[i-1]
	tenkan, kijun := lines.Tenkan[i], lines.Kijun[i]
	if math.IsNaN(prevTenkan) || math.IsNaN(prevKijun) {
		return dto.TradingSignal{}, fmt.Errorf("%w: ichimoku needs two evaluated samples", indicator.ErrNotEnoughData)
	}

	price := bars[i].Close
	futureA, futureB := lines.SenkouA[i], lines.SenkouB[i]
	cloudTop, cloudBottom, hasCloud := lines.CloudAt(i, p.Displacement)

	indicators := map[string]float64{
		"price":       price,
		"tenkan":      tenkan,
		"kijun":       kijun,
		"prev_tenkan": prevTenkan,
		"prev_kijun":  prevKijun,
		"senkou_a":    futureA,
		"senkou_b":    futureB,
	}
	if hasCloud {
		indicators["cloud_top"] = cloudTop
		indicators["cloud_bottom"] = cloudBottom
	}

	bullishCross := prevTenkan <= prevKijun && tenkan > kijun
	bearishCross := prevTenkan >= prevKijun && tenkan < kijun

	switch {
	case bullishCross:
		strength := ichimokuWeakStrength
		label := "weak"
		if hasCloud && price > cloudTop && futureA > futureB {
			strength = ichimokuStrongStrength
			label = "strong"
		}
		return dto.TradingSignal{
			Signal:   dto.SignalBuy,
			Strength: strength,
			Reasoning: fmt.Sprintf("Tenkan %.2f crossed above Kijun %.2f (%s: price %.2f vs cloud, future Senkou A %.2f / B %.2f)",
				tenkan, kijun, label, price, futureA, futureB),
			Indicators: indicators,
		}, nil

	case bearishCross:
		strength := ichimokuWeakStrength
		label := "weak"
		if hasCloud && price < cloudBottom && futureA < futureB {
			strength = ichimokuStrongStrength
			label = "strong"
		}
		return dto.TradingSignal{
			Signal:   dto.SignalSell,
			Strength: strength,
			Reasoning: fmt.Sprintf("Tenkan %.2f crossed below Kijun %.2f (%s: price %.2f vs cloud, future Senkou A %.2f / B %.2f)",
				tenkan, kijun, label, price, futureA, futureB),
			Indicators: indicators,
		}, nil
	}

	position := "inside cloud"
	if hasCloud && price > cloudTop {
		position = "above cloud"
	} else if hasCloud && price < cloudBottom {
		position = "below cloud"
	}
	return hold(fmt.Sprintf("No Tenkan/Kijun crossover (Tenkan %.2f, Kijun %.2f, price %.2f %s)",
		tenkan, kijun, price, position), indicators), nil
}
