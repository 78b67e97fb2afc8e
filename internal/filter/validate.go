// Package filter implements the Filter Validator: a pure policy function
// mapping (honeypot result, preset, on-chain auxiliary data) to pass or
// violations, per spec.md §4.4.
package filter

import (
	"fmt"
	"regexp"

	"github.com/rawblock/snipe-engine/pkg/models"
)

var mintAddressPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// Validate performs the structural check described in spec.md §4.4(1):
// percentages in [0,100], non-negative quantities, min <= max consistency,
// mint-address format, and non-blocking warnings for extreme thresholds.
func Validate(f models.SniperFilters) models.ValidationResult {
	result := models.ValidationResult{Valid: true}

	addErr := func(msg string) {
		result.Valid = false
		result.Errors = append(result.Errors, msg)
	}
	addWarn := func(msg string) {
		result.Warnings = append(result.Warnings, msg)
	}

	checkPct := func(name string, v *float64) {
		if v == nil {
			return
		}
		if *v < 0 || *v > 100 {
			addErr(fmt.Sprintf("%s must be in [0,100], got %.2f", name, *v))
		}
	}

	checkPct("MaxTop10HolderPct", f.MaxTop10HolderPct)
	checkPct("MaxSingleHolderPct", f.MaxSingleHolderPct)
	checkPct("MaxBuyTaxPct", f.MaxBuyTaxPct)
	checkPct("MaxSellTaxPct", f.MaxSellTaxPct)
	checkPct("MinPoolSupplyPct", f.MinPoolSupplyPct)
	checkPct("MaxPoolSupplyPct", f.MaxPoolSupplyPct)
	checkPct("MinLiquidityLockPct", f.MinLiquidityLockPct)

	if f.MinLiquidityBaseUnits != nil && f.MaxLiquidityBaseUnits != nil {
		if *f.MinLiquidityBaseUnits > *f.MaxLiquidityBaseUnits {
			addErr("MinLiquidityBaseUnits must be <= MaxLiquidityBaseUnits")
		}
	}
	if f.MinPoolSupplyPct != nil && f.MaxPoolSupplyPct != nil {
		if *f.MinPoolSupplyPct > *f.MaxPoolSupplyPct {
			addErr("MinPoolSupplyPct must be <= MaxPoolSupplyPct")
		}
	}

	if f.MaxRiskScore != nil && (*f.MaxRiskScore < 0 || *f.MaxRiskScore > 100) {
		addErr(fmt.Sprintf("MaxRiskScore must be in [0,100], got %d", *f.MaxRiskScore))
	}
	if f.MinConfidence != nil && (*f.MinConfidence < 0 || *f.MinConfidence > 100) {
		addErr(fmt.Sprintf("MinConfidence must be in [0,100], got %d", *f.MinConfidence))
	}

	for mint := range f.BlacklistMints {
		if !mintAddressPattern.MatchString(mint) {
			addErr(fmt.Sprintf("blacklist mint %q is not a valid address", mint))
		}
	}
	for mint := range f.WhitelistMints {
		if !mintAddressPattern.MatchString(mint) {
			addErr(fmt.Sprintf("whitelist mint %q is not a valid address", mint))
		}
	}

	if f.MaxRiskScore != nil && *f.MaxRiskScore > 90 {
		addWarn("MaxRiskScore above 90 allows near-certain honeypots through")
	}
	if f.MinLiquidityLockPct != nil && *f.MinLiquidityLockPct < 10 {
		addWarn("MinLiquidityLockPct below 10% provides little rug protection")
	}

	return result
}
