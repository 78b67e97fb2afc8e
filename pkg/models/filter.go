package models

// FilterPresetName selects a named bundle of SniperFilters.
type FilterPresetName string

const (
	PresetConservative FilterPresetName = "CONSERVATIVE"
	PresetBalanced     FilterPresetName = "BALANCED"
	PresetAggressive   FilterPresetName = "AGGRESSIVE"
	PresetCustom       FilterPresetName = "CUSTOM"
)

// Severity classifies how serious a filter violation is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SniperFilters is a sparse record of optional predicates. Nil/zero-value
// pointers mean "no constraint"; percentages are in [0, 100].
type SniperFilters struct {
	RequireMintAuthorityDisabled   bool
	RequireFreezeAuthorityDisabled bool

	MinLiquidityBaseUnits *uint64
	MaxLiquidityBaseUnits *uint64

	MaxTop10HolderPct *float64
	MaxSingleHolderPct *float64

	MaxBuyTaxPct  *float64
	MaxSellTaxPct *float64

	MinPoolSupplyPct *float64
	MaxPoolSupplyPct *float64

	RequireMetadata bool
	RequireSocials  bool

	MaxRiskScore      *int
	MinConfidence     *int
	MinLiquidityLockPct *float64

	BlacklistMints map[string]bool
	WhitelistMints map[string]bool
}

// FilterPreset pairs a name with the SniperFilters it carries.
type FilterPreset struct {
	Name    FilterPresetName
	Filters SniperFilters
}

// ValidationResult is the outcome of structurally validating a SniperFilters.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// LockStatus describes what the liquidity-lock registry lookup found.
type LockStatus string

const (
	LockStatusLocked  LockStatus = "locked"
	LockStatusUnknown LockStatus = "unknown"
)

// SellSimulationOutcome is the result of simulating a buy/sell round-trip.
type SellSimulationOutcome struct {
	Simulated   bool
	CanSell     bool
	SellTaxPct  float64
	BuyTaxPct   float64
}

// TokenFilterData is the derived auxiliary data Check() evaluates predicates
// against.
type TokenFilterData struct {
	MintAuthorityPresent   bool
	FreezeAuthorityPresent bool

	LiquidityBaseUnits uint64
	LiquidityLockPct   float64
	LockStatus         LockStatus

	Top10HolderPct   float64
	SingleHolderPct  float64

	BuyTaxPct  float64
	SellTaxPct float64

	PoolSupplyPct float64

	HasMetadata bool
	HasSocials  bool

	RiskScore  int
	Confidence int

	SellSimulation SellSimulationOutcome

	IsBlacklisted bool
	IsWhitelisted bool
}

// Violation describes a single failed predicate.
type Violation struct {
	Filter   string
	Expected string
	Actual   string
	Severity Severity
	Message  string
}

// CheckResult is the outcome of Check().
type CheckResult struct {
	Passed     bool
	Violations []Violation
	TokenData  TokenFilterData
}
