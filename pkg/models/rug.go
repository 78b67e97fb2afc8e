package models

import "time"

// AuthorityState captures mint/freeze authority presence at a point in time.
type AuthorityState struct {
	MintAuthorityNull   bool
	FreezeAuthorityNull bool
}

// LiquiditySnapshot captures pool reserve state.
type LiquiditySnapshot struct {
	LiquidityBaseUnits uint64
	ObservedAt         time.Time
}

// SupplySnapshot captures total token supply.
type SupplySnapshot struct {
	TotalSupply uint64
	ObservedAt  time.Time
}

// HolderBalance is one top-holder's observed balance.
type HolderBalance struct {
	Address string
	Balance uint64
}

// Snapshot bundles the four comparable facets baseline/latest are made of.
type Snapshot struct {
	Authority   AuthorityState
	Liquidity   LiquiditySnapshot
	Supply      SupplySnapshot
	TopHolders  []HolderBalance
}

// RugType enumerates the degradation classes spec.md §4.9 detects.
type RugType string

const (
	RugLiquidityRemoval   RugType = "LIQUIDITY_REMOVAL"
	RugAuthorityReenabled RugType = "AUTHORITY_REENABLED"
	RugSupplyManipulation RugType = "SUPPLY_MANIPULATION"
	RugHolderDump         RugType = "HOLDER_DUMP"
	RugMultiple           RugType = "MULTIPLE"
)

// RugSeverity is the escalation band for a detection.
type RugSeverity string

const (
	SeverityInfoRug     RugSeverity = "INFO"
	SeverityMediumRug   RugSeverity = "MEDIUM"
	SeverityHighRug     RugSeverity = "HIGH"
	SeverityCriticalRug RugSeverity = "CRITICAL"
)

// Recommendation is the exit action a RugDetection suggests.
type Recommendation string

const (
	RecommendHold          Recommendation = "HOLD"
	RecommendExitPartial   Recommendation = "EXIT_PARTIAL"
	RecommendExitFull      Recommendation = "EXIT_FULL"
	RecommendExitEmergency Recommendation = "EXIT_EMERGENCY"
)

// RugDetection is one emitted finding from a rug-check tick.
type RugDetection struct {
	RugType        RugType
	Severity       RugSeverity
	Confidence     float64
	Evidence       map[string]any
	Recommendation Recommendation
	DetectedAt     time.Time
}

// RugMonitorStatus tracks the per-monitor circuit breaker state.
type RugMonitorStatus string

const (
	RugMonitorActive RugMonitorStatus = "ACTIVE"
	RugMonitorPaused RugMonitorStatus = "PAUSED"
)

// RugMonitorState is the per-position state the Rug Monitor maintains.
type RugMonitorState struct {
	PositionID      string
	Baseline        Snapshot
	Latest          Snapshot
	ChecksPerformed int
	Detections      []RugDetection
	Status          RugMonitorStatus
}
