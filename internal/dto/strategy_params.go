package dto

import (
	"encoding/json"
	"fmt"
)

// StrategyKind is the closed set of supported strategy families. Dispatch on
// it is a single exhaustive switch; unknown kinds fail at decode time, not
// deep inside the scheduler.
type StrategyKind string

const (
	StrategyTrendFollowing StrategyKind = "trend_following"
	StrategyDonchian       StrategyKind = "donchian_breakout"
	StrategyIchimoku       StrategyKind = "ichimoku_cloud"
	StrategyStochastic     StrategyKind = "stochastic_oscillator"
)

// StrategyParams is implemented by exactly one parameter struct per kind.
type StrategyParams interface {
	Kind() StrategyKind
}

// TrendParams drives the EMA entry / trailing-stop exit strategy. The stop
// level is a chandelier-style trail: highest high over StopPeriod minus
// ATRMultiplier times the ATR.
type TrendParams struct {
	EMAPeriod     int     `json:"ema_period" validate:"gt=1"`
	ATRPeriod     int     `json:"atr_period" validate:"gt=1"`
	StopPeriod    int     `json:"stop_period" validate:"gt=1"`
	ATRMultiplier float64 `json:"atr_multiplier" validate:"gt=0"`
}

func (TrendParams) Kind() StrategyKind { return StrategyTrendFollowing }

type DonchianParams struct {
	EntryPeriod int `json:"entry_period" validate:"gt=1"`
	ExitPeriod  int `json:"exit_period" validate:"gt=1"`
}

func (DonchianParams) Kind() StrategyKind { return StrategyDonchian }

type IchimokuParams struct {
	TenkanPeriod  int `json:"tenkan_period" validate:"gt=1"`
	KijunPeriod   int `json:"kijun_period" validate:"gt=1"`
	SenkouBPeriod int `json:"senkou_b_period" validate:"gt=1"`
	Displacement  int `json:"displacement" validate:"gt=0"`
}

func (IchimokuParams) Kind() StrategyKind { return StrategyIchimoku }

type StochasticParams struct {
	KPeriod    int     `json:"k_period" validate:"gt=1"`
	DPeriod    int     `json:"d_period" validate:"gt=0"`
	Oversold   float64 `json:"oversold" validate:"gt=0,lt=100"`
	Overbought float64 `json:"overbought" validate:"gt=0,lt=100"`
}

func (StochasticParams) Kind() StrategyKind { return StrategyStochastic }

func DefaultTrendParams() TrendParams {
	return TrendParams{EMAPeriod: 20, ATRPeriod: 14, StopPeriod: 22, ATRMultiplier: 3}
}

func DefaultDonchianParams() DonchianParams {
	return DonchianParams{EntryPeriod: 20, ExitPeriod: 10}
}

func DefaultIchimokuParams() IchimokuParams {
	return IchimokuParams{TenkanPeriod: 9, KijunPeriod: 26, SenkouBPeriod: 52, Displacement: 26}
}

func DefaultStochasticParams() StochasticParams {
	return StochasticParams{KPeriod: 14, DPeriod: 3, Oversold: 20, Overbought: 80}
}

// DecodeStrategyParams unmarshals the raw parameter payload of a strategy
// definition on top of the kind's defaults.
func DecodeStrategyParams(kind StrategyKind, raw []byte) (StrategyParams, error) {
	switch kind {
	case StrategyTrendFollowing:
		p := DefaultTrendParams()
		if err := overlay(raw, &p, kind); err != nil {
			return nil, err
		}
		return p, nil
	case StrategyDonchian:
		p := DefaultDonchianParams()
		if err := overlay(raw, &p, kind); err != nil {
			return nil, err
		}
		return p, nil
	case StrategyIchimoku:
		p := DefaultIchimokuParams()
		if err := overlay(raw, &p, kind); err != nil {
			return nil, err
		}
		return p, nil
	case StrategyStochastic:
		p := DefaultStochasticParams()
		if err := overlay(raw, &p, kind); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported strategy kind: %s", kind)
	}
}

func overlay(raw []byte, into interface{}, kind StrategyKind) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("failed to decode %s parameters: %w", kind, err)
	}
	return nil
}
