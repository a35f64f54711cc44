package indicator

import (
	"autotrader/internal/dto"
)

// IchimokuLines holds the un-displaced line series. Senkou values at index i
// are the spans computed from bars up to i; the cloud drawn AT bar i is the
// span computed displacement bars earlier.
type IchimokuLines struct {
	Tenkan  []float64
	Kijun   []float64
	SenkouA []float64
	SenkouB []float64
}

// Ichimoku computes Tenkan-sen, Kijun-sen and both Senkou spans.
func Ichimoku(bars []dto.Bar, tenkanPeriod, kijunPeriod, senkouBPeriod int) (*IchimokuLines, error) {
	need := senkouBPeriod
	if kijunPeriod > need {
		need = kijunPeriod
	}
	if len(bars) < need+1 {
		return nil, notEnough("ichimoku", need+1, len(bars))
	}

	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
	}

	midline := func(period int) ([]float64, error) {
		hh, err := RollingMax(highs, period)
		if err != nil {
			return nil, err
		}
		ll, err := RollingMin(lows, period)
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(bars))
		for i := range out {
			out[i] = (hh[i] + ll[i]) / 2
		}
		return out, nil
	}

	tenkan, err := midline(tenkanPeriod)
	if err != nil {
		return nil, err
	}
	kijun, err := midline(kijunPeriod)
	if err != nil {
		return nil, err
	}
	senkouB, err := midline(senkouBPeriod)
	if err != nil {
		return nil, err
	}

	senkouA := make([]float64, len(bars))
	for i := range senkouA {
		senkouA[i] = (tenkan[i] + kijun[i]) / 2
	}

	return &IchimokuLines{
		Tenkan:  tenkan,
		Kijun:   kijun,
		SenkouA: senkouA,
		SenkouB: senkouB,
	}, nil
}

// CloudAt returns the top and bottom of the cloud drawn at index i, i.e. the
// spans computed displacement bars earlier. ok is false when the displaced
// index has no valid span yet.
func (l *IchimokuLines) CloudAt(i, displacement int) (top, bottom float64, ok bool) {
	j := i - displacement
	if j < 0 {
		return 0, 0, false
	}
	a, b := l.SenkouA[j], l.SenkouB[j]
	if isNaN(a) || isNaN(b) {
		return 0, 0, false
	}
	if a >= b {
		return a, b, true
	}
	return b, a, true
}

func isNaN(f float64) bool { return f != f }
