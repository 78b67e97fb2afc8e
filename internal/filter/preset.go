package filter

import (
	"fmt"
	"os"

	"github.com/rawblock/snipe-engine/pkg/models"
	"gopkg.in/yaml.v3"
)

// presetFile mirrors the on-disk YAML shape for a bundle of named presets.
type presetFile struct {
	Presets map[string]yamlFilters `yaml:"presets"`
}

type yamlFilters struct {
	RequireMintAuthorityDisabled   bool     `yaml:"require_mint_authority_disabled"`
	RequireFreezeAuthorityDisabled bool     `yaml:"require_freeze_authority_disabled"`
	MinLiquidityBaseUnits          *uint64  `yaml:"min_liquidity_base_units"`
	MaxLiquidityBaseUnits          *uint64  `yaml:"max_liquidity_base_units"`
	MaxTop10HolderPct              *float64 `yaml:"max_top10_holder_pct"`
	MaxSingleHolderPct             *float64 `yaml:"max_single_holder_pct"`
	MaxBuyTaxPct                   *float64 `yaml:"max_buy_tax_pct"`
	MaxSellTaxPct                  *float64 `yaml:"max_sell_tax_pct"`
	MinPoolSupplyPct               *float64 `yaml:"min_pool_supply_pct"`
	MaxPoolSupplyPct               *float64 `yaml:"max_pool_supply_pct"`
	RequireMetadata                bool     `yaml:"require_metadata"`
	RequireSocials                 bool     `yaml:"require_socials"`
	MaxRiskScore                   *int     `yaml:"max_risk_score"`
	MinConfidence                  *int     `yaml:"min_confidence"`
	MinLiquidityLockPct            *float64 `yaml:"min_liquidity_lock_pct"`
	BlacklistMints                 []string `yaml:"blacklist_mints"`
	WhitelistMints                 []string `yaml:"whitelist_mints"`
}

func (y yamlFilters) toModel() models.SniperFilters {
	toSet := func(mints []string) map[string]bool {
		if len(mints) == 0 {
			return nil
		}
		set := make(map[string]bool, len(mints))
		for _, m := range mints {
			set[m] = true
		}
		return set
	}
	return models.SniperFilters{
		RequireMintAuthorityDisabled:   y.RequireMintAuthorityDisabled,
		RequireFreezeAuthorityDisabled: y.RequireFreezeAuthorityDisabled,
		MinLiquidityBaseUnits:          y.MinLiquidityBaseUnits,
		MaxLiquidityBaseUnits:          y.MaxLiquidityBaseUnits,
		MaxTop10HolderPct:              y.MaxTop10HolderPct,
		MaxSingleHolderPct:             y.MaxSingleHolderPct,
		MaxBuyTaxPct:                   y.MaxBuyTaxPct,
		MaxSellTaxPct:                  y.MaxSellTaxPct,
		MinPoolSupplyPct:               y.MinPoolSupplyPct,
		MaxPoolSupplyPct:               y.MaxPoolSupplyPct,
		RequireMetadata:                y.RequireMetadata,
		RequireSocials:                 y.RequireSocials,
		MaxRiskScore:                   y.MaxRiskScore,
		MinConfidence:                  y.MinConfidence,
		MinLiquidityLockPct:            y.MinLiquidityLockPct,
		BlacklistMints:                 toSet(y.BlacklistMints),
		WhitelistMints:                 toSet(y.WhitelistMints),
	}
}

// LoadPresets reads a YAML preset bundle from disk, keyed by preset name.
func LoadPresets(path string) (map[models.FilterPresetName]models.FilterPreset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("filter: read preset file: %w", err)
	}

	var pf presetFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("filter: parse preset file: %w", err)
	}

	presets := make(map[models.FilterPresetName]models.FilterPreset, len(pf.Presets))
	for name, yf := range pf.Presets {
		pn := models.FilterPresetName(name)
		presets[pn] = models.FilterPreset{Name: pn, Filters: yf.toModel()}
	}
	return presets, nil
}

// DefaultPresets returns the built-in CONSERVATIVE/BALANCED/AGGRESSIVE
// bundles used when no YAML override is configured.
func DefaultPresets() map[models.FilterPresetName]models.FilterPreset {
	f64 := func(v float64) *float64 { return &v }
	u64 := func(v uint64) *uint64 { return &v }
	i := func(v int) *int { return &v }

	return map[models.FilterPresetName]models.FilterPreset{
		models.PresetConservative: {
			Name: models.PresetConservative,
			Filters: models.SniperFilters{
				RequireMintAuthorityDisabled:   true,
				RequireFreezeAuthorityDisabled: true,
				MinLiquidityBaseUnits:          u64(5_000_000_000),
				MaxTop10HolderPct:              f64(50),
				MaxSingleHolderPct:             f64(20),
				MaxBuyTaxPct:                   f64(5),
				MaxSellTaxPct:                  f64(5),
				MaxRiskScore:                   i(20),
				MinConfidence:                  i(60),
				MinLiquidityLockPct:            f64(80),
			},
		},
		models.PresetBalanced: {
			Name: models.PresetBalanced,
			Filters: models.SniperFilters{
				RequireMintAuthorityDisabled: true,
				MinLiquidityBaseUnits:        u64(1_000_000_000),
				MaxTop10HolderPct:            f64(70),
				MaxSingleHolderPct:           f64(35),
				MaxBuyTaxPct:                 f64(10),
				MaxSellTaxPct:                f64(10),
				MaxRiskScore:                 i(50),
				MinConfidence:                i(40),
				MinLiquidityLockPct:          f64(50),
			},
		},
		models.PresetAggressive: {
			Name: models.PresetAggressive,
			Filters: models.SniperFilters{
				MaxTop10HolderPct:   f64(90),
				MaxSingleHolderPct:  f64(60),
				MaxRiskScore:        i(75),
				MinLiquidityLockPct: f64(10),
			},
		},
	}
}
