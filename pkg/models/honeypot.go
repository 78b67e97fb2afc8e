package models

import "time"

// Flag is a single honeypot/risk indicator contributed by a provider.
type Flag string

const (
	FlagMintAuthorityPresent   Flag = "mint_authority_present"
	FlagFreezeAuthorityPresent Flag = "freeze_authority_present"
	FlagOwnershipReclaimable   Flag = "ownership_reclaimable"
	FlagHighSellTax            Flag = "high_sell_tax"
	FlagTop10HoldersConcentrated Flag = "top10_holders_concentrated"
	FlagSingleHolderDominant   Flag = "single_holder_dominant"
	FlagExplicitHoneypot       Flag = "explicit_honeypot"
)

// ProviderLayer is one provider's contribution to a HoneypotResult.
type ProviderLayer struct {
	Score      int
	Flags      []Flag
	LatencyMs  int64
	RawData    map[string]any
	Confidence int
}

// HoneypotResult is the combined, cacheable verdict for a token mint.
type HoneypotResult struct {
	TokenMint  string
	RiskScore  int
	Confidence int
	Flags      []Flag
	Layers     map[string]ProviderLayer
	CheckedAt  time.Time
}

// IsHoneypot reports whether RiskScore meets or exceeds highThreshold.
func (h HoneypotResult) IsHoneypot(highThreshold int) bool {
	return h.RiskScore >= highThreshold
}

func (h HoneypotResult) HasFlag(f Flag) bool {
	for _, fl := range h.Flags {
		if fl == f {
			return true
		}
	}
	return false
}
