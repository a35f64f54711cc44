package indicator

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotEnoughData is returned when a series is shorter than the period an
// indicator needs. Callers must treat it as a skip, never as a zero value.
var ErrNotEnoughData = errors.New("not enough data")

func notEnough(name string, need, have int) error {
	return fmt.Errorf("%w: %s needs %d samples, have %d", ErrNotEnoughData, name, need, have)
}

// SMASeries returns a series aligned with the input where out[i] is the
// simple moving average of the period samples ending at i. Entries before
// the first full window are NaN.
func SMASeries(values []float64, period int) ([]float64, error) {
	if period < 1 {
		return nil, fmt.Errorf("invalid period %d", period)
	}
	if len(values) < period {
		return nil, notEnough("SMA", period, len(values))
	}

	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		} else {
			out[i] = math.NaN()
		}
	}
	return out, nil
}

// EMASeries returns an exponential moving average series seeded with the SMA
// of the first period samples. Entries before the seed are NaN.
func EMASeries(values []float64, period int) ([]float64, error) {
	if period < 1 {
		return nil, fmt.Errorf("invalid period %d", period)
	}
	if len(values) < period {
		return nil, notEnough("EMA", period, len(values))
	}

	out := make([]float64, len(values))
	for i := 0; i < period-1; i++ {
		out[i] = math.NaN()
	}

	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	ema := seed / float64(period)
	out[period-1] = ema

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		out[i] = ema
	}
	return out, nil
}

// RollingMax returns out[i] = max(values[i-period+1 .. i]); NaN before the
// first full window.
func RollingMax(values []float64, period int) ([]float64, error) {
	if period < 1 {
		return nil, fmt.Errorf("invalid period %d", period)
	}
	if len(values) < period {
		return nil, notEnough("rolling max", period, len(values))
	}

	out := make([]float64, len(values))
	for i := range values {
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}
		max := values[i-period+1]
		for _, v := range values[i-period+2 : i+1] {
			if v > max {
				max = v
			}
		}
		out[i] = max
	}
	return out, nil
}

// RollingMin returns out[i] = min(values[i-period+1 .. i]); NaN before the
// first full window.
func RollingMin(values []float64, period int) ([]float64, error) {
	if period < 1 {
		return nil, fmt.Errorf("invalid period %d", period)
	}
	if len(values) < period {
		return nil, notEnough("rolling min", period, len(values))
	}

	out := make([]float64, len(values))
	for i := range values {
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}
		min := values[i-period+1]
		for _, v := range values[i-period+2 : i+1] {
			if v < min {
				min = v
			}
		}
		out[i] = min
	}
	return out, nil
}
