package filter

import (
	"context"
	"testing"

	"github.com/rawblock/snipe-engine/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLockRegistry struct {
	pct    float64
	status models.LockStatus
	err    error
}

func (f fakeLockRegistry) LookupLock(ctx context.Context, lpMint string) (float64, models.LockStatus, error) {
	return f.pct, f.status, f.err
}

func f64(v float64) *float64 { return &v }
func i(v int) *int           { return &v }

func TestValidate_RejectsOutOfRangePercent(t *testing.T) {
	res := Validate(models.SniperFilters{MaxTop10HolderPct: f64(150)})
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Errors)
}

func TestValidate_RejectsMinGreaterThanMax(t *testing.T) {
	min := uint64(100)
	max := uint64(50)
	res := Validate(models.SniperFilters{MinLiquidityBaseUnits: &min, MaxLiquidityBaseUnits: &max})
	assert.False(t, res.Valid)
}

func TestValidate_WarnsOnExtremeThreshold(t *testing.T) {
	res := Validate(models.SniperFilters{MaxRiskScore: i(95)})
	assert.True(t, res.Valid)
	assert.NotEmpty(t, res.Warnings)
}

func TestCheck_BlacklistShortCircuits(t *testing.T) {
	c := NewChecker(fakeLockRegistry{status: models.LockStatusLocked})
	f := models.SniperFilters{BlacklistMints: map[string]bool{"badmint": true}}

	res, err := c.Check(context.Background(), models.HoneypotResult{}, f, AuxData{}, "badmint")
	require.NoError(t, err)
	assert.False(t, res.Passed)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, models.SeverityHigh, res.Violations[0].Severity)
}

func TestCheck_WhitelistBypassesStructuralButNotRisk(t *testing.T) {
	c := NewChecker(fakeLockRegistry{status: models.LockStatusLocked})
	f := models.SniperFilters{
		WhitelistMints:                map[string]bool{"goodmint": true},
		RequireMintAuthorityDisabled:   true,
		MaxRiskScore:                   i(10),
	}
	aux := AuxData{MintAuthorityPresent: true}

	res, err := c.Check(context.Background(), models.HoneypotResult{RiskScore: 90}, f, aux, "goodmint")
	require.NoError(t, err)
	assert.False(t, res.Passed)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "max_risk_score", res.Violations[0].Filter)
}

func TestCheck_NoLpMintDefaultsToLocked(t *testing.T) {
	c := NewChecker(fakeLockRegistry{status: models.LockStatusUnknown})
	f := models.SniperFilters{MinLiquidityLockPct: f64(90)}

	res, err := c.Check(context.Background(), models.HoneypotResult{}, f, AuxData{}, "")
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Equal(t, models.LockStatusLocked, res.TokenData.LockStatus)
}

func TestCheck_LiquidityLockBelowMinimumViolates(t *testing.T) {
	c := NewChecker(fakeLockRegistry{pct: 20, status: models.LockStatusLocked})
	f := models.SniperFilters{MinLiquidityLockPct: f64(80)}

	res, err := c.Check(context.Background(), models.HoneypotResult{}, f, AuxData{}, "lpmint")
	require.NoError(t, err)
	assert.False(t, res.Passed)
}

func TestCheck_AllPredicatesPass(t *testing.T) {
	c := NewChecker(fakeLockRegistry{pct: 100, status: models.LockStatusLocked})
	f := DefaultPresets()[models.PresetAggressive].Filters

	res, err := c.Check(context.Background(), models.HoneypotResult{RiskScore: 5, Confidence: 80}, f, AuxData{
		Top10HolderPct:  30,
		SingleHolderPct: 10,
	}, "lpmint")
	require.NoError(t, err)
	assert.True(t, res.Passed)
}
