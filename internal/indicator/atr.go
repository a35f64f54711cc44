package indicator

import (
	"math"

	"autotrader/internal/dto"
)

// ATRSeries computes the Average True Range with Wilder smoothing. The
// first valid entry is at index period (the seed average of the first
// period true ranges); earlier entries are NaN.
func ATRSeries(bars []dto.Bar, period int) ([]float64, error) {
	if len(bars) < period+1 {
		return nil, notEnough("ATR", period+1, len(bars))
	}

	tr := make([]float64, len(bars))
	tr[0] = bars[0].High - bars[0].Low
	for i := 1; i < len(bars); i++ {
		highLow := bars[i].High - bars[i].Low
		highClose := math.Abs(bars[i].High - bars[i-1].Close)
		lowClose := math.Abs(bars[i].Low - bars[i-1].Close)
		tr[i] = math.Max(highLow, math.Max(highClose, lowClose))
	}

	out := make([]float64, len(bars))
	for i := 0; i < period; i++ {
		out[i] = math.NaN()
	}

	seed := 0.0
	for _, v := range tr[1 : period+1] {
		seed += v
	}
	atr := seed / float64(period)
	out[period] = atr

	for i := period + 1; i < len(bars); i++ {
		atr = (atr*float64(period-1) + tr[i]) / float64(period)
		out[i] = atr
	}
	return out, nil
}
