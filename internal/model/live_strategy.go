package model

import (
	"strings"
	"time"

	"autotrader/internal/dto"
	"autotrader/pkg/utils"

	"gorm.io/datatypes"
)

// StrategyDefinition is a reusable strategy template: a kind plus its
// parameter payload. Live strategies reference one definition.
type StrategyDefinition struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	Name       string           `gorm:"type:varchar(255);not null" json:"name"`
	Kind       dto.StrategyKind `gorm:"type:varchar(50);not null" json:"kind"`
	Parameters datatypes.JSON   `gorm:"type:jsonb" json:"parameters"`
	CreatedAt  time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (StrategyDefinition) TableName() string {
	return "strategy_definitions"
}

// SymbolState is the per-symbol scratch state a live strategy keeps between
// checks. Stored as one JSONB map keyed by symbol.
type SymbolState struct {
	LastPrice   float64            `json:"last_price"`
	LastCheckAt time.Time          `json:"last_check_at"`
	Indicators  map[string]float64 `json:"indicators,omitempty"`
}

// LiveStrategy is one running instance of a strategy definition over a set
// of symbols. Only the scheduler mutates it; the API layer creates and
// destroys rows.
type LiveStrategy struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	UserID       uint             `gorm:"not null;index" json:"user_id"`
	DefinitionID uint             `gorm:"not null" json:"definition_id"`
	Symbols      datatypes.JSONSlice[string] `gorm:"type:jsonb;not null" json:"symbols"`

	CheckInterval   int     `gorm:"not null;default:300" json:"check_interval"`
	AutoExecute     bool    `gorm:"not null;default:false" json:"auto_execute"`
	MaxPositionSize float64 `json:"max_position_size"`
	MaxPositions    int     `gorm:"not null;default:5" json:"max_positions"`
	DailyLossLimit  float64 `json:"daily_loss_limit"`
	PositionSizePct float64 `gorm:"not null;default:0.1" json:"position_size_pct" validate:"gte=0.001,lte=0.5"`

	Status       dto.StrategyStatus `gorm:"type:varchar(20);not null;default:'STOPPED'" json:"status"`
	SymbolStates datatypes.JSONType[map[string]SymbolState] `gorm:"type:jsonb" json:"symbol_states"`

	TotalSignals     int     `gorm:"not null;default:0" json:"total_signals"`
	ExecutedTrades   int     `gorm:"not null;default:0" json:"executed_trades"`
	CurrentPositions int     `gorm:"not null;default:0" json:"current_positions"`
	DailyPnL         float64 `gorm:"not null;default:0" json:"daily_pnl"`
	TotalPnL         float64 `gorm:"not null;default:0" json:"total_pnl"`

	LastCheck         *time.Time `json:"last_check"`
	LastSignal        *time.Time `json:"last_signal"`
	StartedAt         *time.Time `json:"started_at"`
	StoppedAt         *time.Time `json:"stopped_at"`
	ErrorMessage      string     `gorm:"type:text" json:"error_message"`
	ConsecutiveErrors int        `gorm:"not null;default:0" json:"consecutive_errors"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Definition StrategyDefinition `gorm:"foreignKey:DefinitionID;references:ID"`
	User       User               `gorm:"foreignKey:UserID;references:ID"`
}

func (LiveStrategy) TableName() string {
	return "live_strategies"
}

// allowed check intervals in seconds
var checkIntervals = []int{60, 300, 900, 1800, 3600}

// SnapCheckInterval snaps an arbitrary interval to the nearest supported one.
func SnapCheckInterval(seconds int) int {
	best := checkIntervals[0]
	bestDist := abs(seconds - best)
	for _, iv := range checkIntervals[1:] {
		if d := abs(seconds - iv); d < bestDist {
			best = iv
			bestDist = d
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Normalize dedupes and upper-cases symbols and snaps the check interval.
// Called when a strategy is started.
func (s *LiveStrategy) Normalize() {
	seen := make(map[string]struct{}, len(s.Symbols))
	cleaned := make([]string, 0, len(s.Symbols))
	for _, sym := range s.Symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		cleaned = append(cleaned, sym)
	}
	s.Symbols = cleaned
	s.CheckInterval = SnapCheckInterval(s.CheckInterval)
}

// DueAt reports whether the strategy is due for a check at now. Stored
// timestamps without a zone are treated as UTC.
func (s *LiveStrategy) DueAt(now time.Time) bool {
	if s.LastCheck == nil {
		return true
	}
	elapsed := utils.NormalizeUTC(now).Sub(utils.NormalizeUTC(*s.LastCheck))
	return elapsed >= time.Duration(s.CheckInterval)*time.Second
}
