package models

import "time"

// Dex identifies the on-chain program family that owns a pool.
type Dex string

const (
	DexAMMv4          Dex = "amm_v4"
	DexCLMM           Dex = "clmm"
	DexPumpfun        Dex = "pumpfun"
	DexMeteora        Dex = "meteora"
	DexOrcaWhirlpool  Dex = "orca_whirlpool"
)

// ActivationType selects how a Meteora DLMM pool schedules its launch.
type ActivationType string

const (
	ActivationSlot      ActivationType = "slot"
	ActivationTimestamp ActivationType = "timestamp"
)

// FeeScheduler describes Meteora's time-decaying launch fee curve.
type FeeScheduler struct {
	CliffFeeBps      int
	NumPeriods       int
	PeriodDuration   time.Duration
	ReductionFactor  int
	LaunchTime       time.Time
}

// RateLimiter describes Meteora's size-based anti-sniper fee.
type RateLimiter struct {
	BaseFeeBpsPerSOL int
}

// AlphaVault marks a pre-activation whitelisted swap window.
type AlphaVault struct {
	Enabled bool
}

// AntiSniperConfig is the derived anti-sniper suite for a Meteora pool.
// A nil FeeScheduler/RateLimiter means the corresponding mechanism is
// absent for this pool (non-activation-bearing pools never get one).
type AntiSniperConfig struct {
	ActivationType          ActivationType
	ActivationPoint         int64
	PreActivationDuration   time.Duration
	PreActivationSwapAddr   string
	FeeScheduler            *FeeScheduler
	RateLimiter             *RateLimiter
	AlphaVault              *AlphaVault
}

// ConservativeAntiSniperDefaults is returned whenever Meteora SDK decoding
// fails; see spec.md §4.2 "Meteora addendum".
func ConservativeAntiSniperDefaults() *AntiSniperConfig {
	return &AntiSniperConfig{
		FeeScheduler: &FeeScheduler{
			CliffFeeBps:     9900,
			NumPeriods:      10,
			PeriodDuration:  30 * time.Second,
			ReductionFactor: 1000,
		},
		RateLimiter: &RateLimiter{BaseFeeBpsPerSOL: 100},
		AlphaVault:  &AlphaVault{Enabled: false},
	}
}

// PoolCreated is the immutable event produced by Pool Ingest and consumed
// at most once by the Orchestrator.
type PoolCreated struct {
	Signature                string
	Slot                     uint64
	Timestamp                time.Time
	Dex                      Dex
	PoolAddress               string
	BaseMint                 string
	QuoteMint                string
	InitialLiquidityBaseUnits uint64
	Creator                  string
	AntiSniperConfig         *AntiSniperConfig
}

// DedupKey returns the key used for the 5-second cross-source dedup window.
func (p PoolCreated) DedupKey() string {
	return string(p.Dex) + "|" + p.PoolAddress
}
