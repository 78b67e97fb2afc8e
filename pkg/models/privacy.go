package models

import "time"

// FeeModeStrategy selects how the Privacy Layer picks a fee pattern.
type FeeModeStrategy string

const (
	FeeStrategyFixed           FeeModeStrategy = "FIXED"
	FeeStrategyRandom          FeeModeStrategy = "RANDOM"
	FeeStrategyGradualIncrease FeeModeStrategy = "GRADUAL_INCREASE"
	FeeStrategySpikePattern    FeeModeStrategy = "SPIKE_PATTERN"
	FeeStrategyAdaptive        FeeModeStrategy = "ADAPTIVE"
)

// WalletStrategy selects how the Privacy Layer picks a wallet.
type WalletStrategy string

const (
	WalletRoundRobin     WalletStrategy = "ROUND_ROBIN"
	WalletRandom         WalletStrategy = "RANDOM"
	WalletFreshOnly      WalletStrategy = "FRESH_ONLY"
	WalletFreshThreshold WalletStrategy = "FRESH_THRESHOLD"
	WalletPrimaryOnly    WalletStrategy = "PRIMARY_ONLY"
)

// DelaySettings configures the randomized pre-trade delay.
type DelaySettings struct {
	Enabled   bool
	BaseMs    int64
	MinMs     int64
	MaxMs     int64
	JitterPct float64
}

// FeeSettings configures the fee-pattern strategy.
type FeeSettings struct {
	Strategy     FeeModeStrategy
	AllowedModes []PriorityFeeMode
}

// WalletSettings configures the wallet-rotation strategy.
type WalletSettings struct {
	Strategy       WalletStrategy
	FreshThreshold int
}

// MEVSettings configures forced MEV-bundle routing.
type MEVSettings struct {
	ForceMEV  bool
	Randomize bool
	MinTip    uint64
	MaxTip    uint64
}

// ObfuscationSettings configures optional memo/split-amount noise.
type ObfuscationSettings struct {
	RandomMemo    bool
	MaxMemoLen    int
	SplitAmount   bool
	DummyInstruction bool
}

// PrivacySettings is the per-user configuration consumed by the Privacy Layer.
type PrivacySettings struct {
	Delay        DelaySettings
	Fee          FeeSettings
	Wallet       WalletSettings
	MEV          MEVSettings
	Obfuscation  ObfuscationSettings
}

// PrivacyPlan is the computed per-trade operational plan.
type PrivacyPlan struct {
	DelayMs           int64
	FeeMode           PriorityFeeMode
	WalletID          string
	WalletIsFresh     bool
	MEVTip            uint64
	MemoHex           string
	SplitAmount       bool
	DummyInstruction  bool
	PrivacyScore      int
	ComputedAt        time.Time
}

// UserPrivacyState is the per-user counters the Privacy Layer mutates.
type UserPrivacyState struct {
	TradesSinceLastRotation int
	TradeCount              int
	LastWalletIndex         int
}
