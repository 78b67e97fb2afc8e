package models

import "time"

// PositionStatus tracks a Position through open, exit and close.
type PositionStatus string

const (
	PositionOpen    PositionStatus = "OPEN"
	PositionExiting PositionStatus = "EXITING"
	PositionClosed  PositionStatus = "CLOSED"
	PositionFailed  PositionStatus = "FAILED"
)

// TrailingStop configures the trailing-stop exit trigger.
type TrailingStop struct {
	Enabled    bool
	TrailPct   float64
}

// Position is owned by exactly one Order (spec.md I2: exists iff CONFIRMED).
type Position struct {
	ID                   string
	OrderID              string
	UserID               string
	TokenMint            string
	EntrySignature       string
	AmountIn             uint64
	AmountOut            uint64
	EntryPriceImpactPct  float64
	EntryPrice           float64
	CurrentBalance       uint64
	TakeProfitPct        *float64
	StopLossPct          *float64
	TrailingStop         *TrailingStop
	HighestPriceSeen     *float64
	Status               PositionStatus
	ExitSignature        string
	RealizedPnL          *float64
	ExitAttempts         int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// TriggerType identifies which exit condition fired.
type TriggerType string

const (
	TriggerTakeProfit   TriggerType = "TAKE_PROFIT"
	TriggerStopLoss     TriggerType = "STOP_LOSS"
	TriggerTrailingStop TriggerType = "TRAILING_STOP"
)

// EvaluateTriggers checks TP/SL/trailing in the order fixed by spec.md
// §4.8 and returns the first satisfied trigger, or "" if none fired.
func (p *Position) EvaluateTriggers(current float64) TriggerType {
	if p.TakeProfitPct != nil {
		if current >= p.EntryPrice*(1+*p.TakeProfitPct/100) {
			return TriggerTakeProfit
		}
	}
	if p.StopLossPct != nil {
		if current <= p.EntryPrice*(1-*p.StopLossPct/100) {
			return TriggerStopLoss
		}
	}
	if p.TrailingStop != nil && p.TrailingStop.Enabled && p.HighestPriceSeen != nil {
		if current <= *p.HighestPriceSeen*(1-p.TrailingStop.TrailPct/100) {
			return TriggerTrailingStop
		}
	}
	return ""
}

// UpdateHighest bumps HighestPriceSeen to max(current, previous).
func (p *Position) UpdateHighest(current float64) {
	if p.HighestPriceSeen == nil || current > *p.HighestPriceSeen {
		h := current
		p.HighestPriceSeen = &h
	}
}
