package filter

import (
	"context"
	"fmt"

	"github.com/rawblock/snipe-engine/pkg/models"
)

// AuxData is the on-chain auxiliary data Check derives TokenFilterData from,
// beyond what the honeypot result and lock registry already supply.
type AuxData struct {
	MintAuthorityPresent   bool
	FreezeAuthorityPresent bool
	LiquidityBaseUnits     uint64
	Top10HolderPct         float64
	SingleHolderPct        float64
	BuyTaxPct              float64
	SellTaxPct             float64
	PoolSupplyPct          float64
	HasMetadata            bool
	HasSocials             bool
	SellSimulation         models.SellSimulationOutcome
}

// Checker evaluates a SniperFilters preset against a token, consulting the
// lock registry only when an lp_mint is supplied.
type Checker struct {
	Locks LockRegistry
}

func NewChecker(locks LockRegistry) *Checker {
	return &Checker{Locks: locks}
}

// Check applies filters against derived TokenFilterData, per spec.md §4.4(2).
func (c *Checker) Check(ctx context.Context, honeypot models.HoneypotResult, f models.SniperFilters, aux AuxData, lpMint string) (models.CheckResult, error) {
	data := models.TokenFilterData{
		MintAuthorityPresent:   aux.MintAuthorityPresent,
		FreezeAuthorityPresent: aux.FreezeAuthorityPresent,
		LiquidityBaseUnits:     aux.LiquidityBaseUnits,
		Top10HolderPct:         aux.Top10HolderPct,
		SingleHolderPct:        aux.SingleHolderPct,
		BuyTaxPct:              aux.BuyTaxPct,
		SellTaxPct:             aux.SellTaxPct,
		PoolSupplyPct:          aux.PoolSupplyPct,
		HasMetadata:            aux.HasMetadata,
		HasSocials:             aux.HasSocials,
		RiskScore:              honeypot.RiskScore,
		Confidence:             honeypot.Confidence,
		SellSimulation:         aux.SellSimulation,
		LockStatus:             models.LockStatusLocked,
		LiquidityLockPct:       100,
	}

	if lpMint != "" {
		lockPct, status, err := c.Locks.LookupLock(ctx, lpMint)
		if err != nil {
			return models.CheckResult{}, fmt.Errorf("filter check: lock lookup: %w", err)
		}
		data.LiquidityLockPct = lockPct
		data.LockStatus = status
	}

	data.IsBlacklisted = f.BlacklistMints[lpMint]
	data.IsWhitelisted = f.WhitelistMints[lpMint]

	if data.IsBlacklisted {
		return models.CheckResult{
			Passed: false,
			Violations: []models.Violation{{
				Filter:   "blacklist",
				Expected: "not blacklisted",
				Actual:   "blacklisted",
				Severity: models.SeverityHigh,
				Message:  "mint is explicitly blacklisted",
			}},
			TokenData: data,
		}, nil
	}

	var violations []models.Violation
	addViolation := func(filterName, expected, actual string, sev models.Severity, msg string) {
		violations = append(violations, models.Violation{
			Filter: filterName, Expected: expected, Actual: actual, Severity: sev, Message: msg,
		})
	}

	// Honeypot-risk checks apply even to whitelisted mints.
	if f.MaxRiskScore != nil && data.RiskScore > *f.MaxRiskScore {
		addViolation("max_risk_score", fmt.Sprintf("<= %d", *f.MaxRiskScore), fmt.Sprintf("%d", data.RiskScore),
			models.SeverityHigh, "honeypot risk score exceeds threshold")
	}
	if f.MinConfidence != nil && data.Confidence < *f.MinConfidence {
		addViolation("min_confidence", fmt.Sprintf(">= %d", *f.MinConfidence), fmt.Sprintf("%d", data.Confidence),
			models.SeverityMedium, "honeypot confidence below threshold")
	}

	if data.IsWhitelisted {
		return models.CheckResult{Passed: len(violations) == 0, Violations: violations, TokenData: data}, nil
	}

	if f.RequireMintAuthorityDisabled && data.MintAuthorityPresent {
		addViolation("require_mint_authority_disabled", "false", "true", models.SeverityHigh, "mint authority is still present")
	}
	if f.RequireFreezeAuthorityDisabled && data.FreezeAuthorityPresent {
		addViolation("require_freeze_authority_disabled", "false", "true", models.SeverityHigh, "freeze authority is still present")
	}
	if f.MinLiquidityBaseUnits != nil && data.LiquidityBaseUnits < *f.MinLiquidityBaseUnits {
		addViolation("min_liquidity_base_units", fmt.Sprintf(">= %d", *f.MinLiquidityBaseUnits), fmt.Sprintf("%d", data.LiquidityBaseUnits),
			models.SeverityHigh, "liquidity below minimum")
	}
	if f.MaxLiquidityBaseUnits != nil && data.LiquidityBaseUnits > *f.MaxLiquidityBaseUnits {
		addViolation("max_liquidity_base_units", fmt.Sprintf("<= %d", *f.MaxLiquidityBaseUnits), fmt.Sprintf("%d", data.LiquidityBaseUnits),
			models.SeverityLow, "liquidity above maximum")
	}
	if f.MaxTop10HolderPct != nil && data.Top10HolderPct > *f.MaxTop10HolderPct {
		addViolation("max_top10_holder_pct", fmt.Sprintf("<= %.2f", *f.MaxTop10HolderPct), fmt.Sprintf("%.2f", data.Top10HolderPct),
			models.SeverityHigh, "top 10 holders too concentrated")
	}
	if f.MaxSingleHolderPct != nil && data.SingleHolderPct > *f.MaxSingleHolderPct {
		addViolation("max_single_holder_pct", fmt.Sprintf("<= %.2f", *f.MaxSingleHolderPct), fmt.Sprintf("%.2f", data.SingleHolderPct),
			models.SeverityHigh, "single holder too dominant")
	}
	if f.MaxBuyTaxPct != nil && data.BuyTaxPct > *f.MaxBuyTaxPct {
		addViolation("max_buy_tax_pct", fmt.Sprintf("<= %.2f", *f.MaxBuyTaxPct), fmt.Sprintf("%.2f", data.BuyTaxPct),
			models.SeverityMedium, "buy tax too high")
	}
	if f.MaxSellTaxPct != nil && data.SellTaxPct > *f.MaxSellTaxPct {
		addViolation("max_sell_tax_pct", fmt.Sprintf("<= %.2f", *f.MaxSellTaxPct), fmt.Sprintf("%.2f", data.SellTaxPct),
			models.SeverityHigh, "sell tax too high")
	}
	if f.MinPoolSupplyPct != nil && data.PoolSupplyPct < *f.MinPoolSupplyPct {
		addViolation("min_pool_supply_pct", fmt.Sprintf(">= %.2f", *f.MinPoolSupplyPct), fmt.Sprintf("%.2f", data.PoolSupplyPct),
			models.SeverityLow, "pool supply percentage below minimum")
	}
	if f.MaxPoolSupplyPct != nil && data.PoolSupplyPct > *f.MaxPoolSupplyPct {
		addViolation("max_pool_supply_pct", fmt.Sprintf("<= %.2f", *f.MaxPoolSupplyPct), fmt.Sprintf("%.2f", data.PoolSupplyPct),
			models.SeverityMedium, "pool supply percentage above maximum")
	}
	if f.RequireMetadata && !data.HasMetadata {
		addViolation("require_metadata", "true", "false", models.SeverityLow, "token metadata missing")
	}
	if f.RequireSocials && !data.HasSocials {
		addViolation("require_socials", "true", "false", models.SeverityLow, "social links missing")
	}
	if f.MinLiquidityLockPct != nil && data.LiquidityLockPct < *f.MinLiquidityLockPct {
		addViolation("min_liquidity_lock_pct", fmt.Sprintf(">= %.2f", *f.MinLiquidityLockPct), fmt.Sprintf("%.2f", data.LiquidityLockPct),
			models.SeverityHigh, "liquidity lock percentage below minimum")
	}

	return models.CheckResult{Passed: len(violations) == 0, Violations: violations, TokenData: data}, nil
}
