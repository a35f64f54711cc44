package indicator

import (
	"math"

	"autotrader/internal/dto"
)

// StochasticSeries computes the %K and %D oscillator series. %K compares
// the close to the high/low range of the last kPeriod bars; %D is the SMA
// of %K over dPeriod. Entries before the first full window are NaN.
func StochasticSeries(bars []dto.Bar, kPeriod, dPeriod int) (k []float64, d []float64, err error) {
	if len(bars) < kPeriod+dPeriod {
		return nil, nil, notEnough("stochastic", kPeriod+dPeriod, len(bars))
	}

	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
	}

	hh, err := RollingMax(highs, kPeriod)
	if err != nil {
		return nil, nil, err
	}
	ll, err := RollingMin(lows, kPeriod)
	if err != nil {
		return nil, nil, err
	}

	k = make([]float64, len(bars))
	for i, b := range bars {
		if i < kPeriod-1 {
			k[i] = math.NaN()
			continue
		}
		spread := hh[i] - ll[i]
		if spread == 0 {
			// flat range, treat as mid-scale
			k[i] = 50
			continue
		}
		k[i] = (b.Close - ll[i]) / spread * 100
	}

	// SMA over the valid tail of %K only
	valid := k[kPeriod-1:]
	dTail, err := SMASeries(valid, dPeriod)
	if err != nil {
		return nil, nil, err
	}

	d = make([]float64, len(bars))
	for i := range d {
		if i < kPeriod-1 {
			d[i] = math.NaN()
		} else {
			d[i] = dTail[i-(kPeriod-1)]
		}
	}
	return k, d, nil
}
