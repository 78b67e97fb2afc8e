package privacy

import (
	"context"
	"testing"

	"github.com/rawblock/snipe-engine/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWallets struct{ wallets []WalletInfo }

func (f fakeWallets) ListWallets() []WalletInfo { return f.wallets }

type fakeFeeOptimizer struct{ result models.FeeOptimizeResult }

func (f fakeFeeOptimizer) Optimize(ctx context.Context, accountFilter []string, mode models.PriorityFeeMode, maxCap *uint64, hypeBoostPct *float64) (models.FeeOptimizeResult, error) {
	return f.result, nil
}

func TestPlan_DelayDisabledIsZero(t *testing.T) {
	planner := NewPlanner(fakeWallets{wallets: []WalletInfo{{ID: "w1", IsPrimary: true}}}, fakeFeeOptimizer{})
	settings := models.PrivacySettings{
		Fee:    models.FeeSettings{Strategy: models.FeeStrategyFixed, AllowedModes: []models.PriorityFeeMode{models.FeeModeLow}},
		Wallet: models.WalletSettings{Strategy: models.WalletPrimaryOnly},
	}
	state := &models.UserPrivacyState{}

	plan, err := planner.Plan(context.Background(), settings, state)
	require.NoError(t, err)
	assert.Equal(t, int64(0), plan.DelayMs)
}

func TestPlan_DelayClampedWithinBounds(t *testing.T) {
	planner := NewPlanner(fakeWallets{wallets: []WalletInfo{{ID: "w1"}}}, fakeFeeOptimizer{})
	settings := models.PrivacySettings{
		Delay:  models.DelaySettings{Enabled: true, BaseMs: 1000, MinMs: 500, MaxMs: 1500, JitterPct: 0.5},
		Fee:    models.FeeSettings{Strategy: models.FeeStrategyFixed, AllowedModes: []models.PriorityFeeMode{models.FeeModeLow}},
		Wallet: models.WalletSettings{Strategy: models.WalletPrimaryOnly},
	}
	state := &models.UserPrivacyState{}

	for i := 0; i < 50; i++ {
		plan, err := planner.Plan(context.Background(), settings, state)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, plan.DelayMs, int64(500))
		assert.LessOrEqual(t, plan.DelayMs, int64(1500))
	}
}

func TestPlan_GradualIncreaseCyclesModes(t *testing.T) {
	planner := NewPlanner(fakeWallets{wallets: []WalletInfo{{ID: "w1"}}}, fakeFeeOptimizer{})
	modes := []models.PriorityFeeMode{models.FeeModeLow, models.FeeModeMedium, models.FeeModeHigh}
	settings := models.PrivacySettings{
		Fee:    models.FeeSettings{Strategy: models.FeeStrategyGradualIncrease, AllowedModes: modes},
		Wallet: models.WalletSettings{Strategy: models.WalletPrimaryOnly},
	}
	state := &models.UserPrivacyState{}

	for i, want := range modes {
		plan, err := planner.Plan(context.Background(), settings, state)
		require.NoError(t, err)
		assert.Equal(t, want, plan.FeeMode, "trade %d", i)
	}
}

func TestPlan_AdaptiveBucketsFeePrice(t *testing.T) {
	planner := NewPlanner(fakeWallets{wallets: []WalletInfo{{ID: "w1"}}}, fakeFeeOptimizer{result: models.FeeOptimizeResult{ComputeUnitPrice: 600_000}})
	settings := models.PrivacySettings{
		Fee:    models.FeeSettings{Strategy: models.FeeStrategyAdaptive, AllowedModes: []models.PriorityFeeMode{models.FeeModeLow}},
		Wallet: models.WalletSettings{Strategy: models.WalletPrimaryOnly},
	}
	state := &models.UserPrivacyState{}

	plan, err := planner.Plan(context.Background(), settings, state)
	require.NoError(t, err)
	assert.Equal(t, models.FeeModeTurbo, plan.FeeMode)
}

func TestPlan_FreshThresholdRotatesAfterN(t *testing.T) {
	wallets := fakeWallets{wallets: []WalletInfo{{ID: "primary", IsPrimary: true}, {ID: "fresh1", IsFresh: true}}}
	planner := NewPlanner(wallets, fakeFeeOptimizer{})
	settings := models.PrivacySettings{
		Fee:    models.FeeSettings{Strategy: models.FeeStrategyFixed, AllowedModes: []models.PriorityFeeMode{models.FeeModeLow}},
		Wallet: models.WalletSettings{Strategy: models.WalletFreshThreshold, FreshThreshold: 2},
	}
	state := &models.UserPrivacyState{}

	var last models.PrivacyPlan
	for i := 0; i < 3; i++ {
		plan, err := planner.Plan(context.Background(), settings, state)
		require.NoError(t, err)
		last = plan
	}
	assert.Equal(t, "fresh1", last.WalletID)
	assert.Equal(t, 0, state.TradesSinceLastRotation)
}

func TestPlan_MEVTipWithinRange(t *testing.T) {
	planner := NewPlanner(fakeWallets{wallets: []WalletInfo{{ID: "w1"}}}, fakeFeeOptimizer{})
	settings := models.PrivacySettings{
		Fee:    models.FeeSettings{Strategy: models.FeeStrategyFixed, AllowedModes: []models.PriorityFeeMode{models.FeeModeLow}},
		Wallet: models.WalletSettings{Strategy: models.WalletPrimaryOnly},
		MEV:    models.MEVSettings{ForceMEV: true, Randomize: true, MinTip: 100, MaxTip: 200},
	}
	state := &models.UserPrivacyState{}

	plan, err := planner.Plan(context.Background(), settings, state)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, plan.MEVTip, uint64(100))
	assert.LessOrEqual(t, plan.MEVTip, uint64(200))
}

func TestPlan_ScoreCappedAt100(t *testing.T) {
	planner := NewPlanner(fakeWallets{wallets: []WalletInfo{{ID: "w1", IsFresh: true}}}, fakeFeeOptimizer{})
	settings := models.PrivacySettings{
		Delay:  models.DelaySettings{Enabled: true, BaseMs: 1000, MinMs: 0, MaxMs: 2000, JitterPct: 0.5},
		Fee:    models.FeeSettings{Strategy: models.FeeStrategySpikePattern, AllowedModes: []models.PriorityFeeMode{models.FeeModeLow, models.FeeModeHigh}},
		Wallet: models.WalletSettings{Strategy: models.WalletFreshOnly},
		MEV:    models.MEVSettings{ForceMEV: true, Randomize: true, MinTip: 1, MaxTip: 2},
		Obfuscation: models.ObfuscationSettings{RandomMemo: true, MaxMemoLen: 8, SplitAmount: true, DummyInstruction: true},
	}
	state := &models.UserPrivacyState{}

	plan, err := planner.Plan(context.Background(), settings, state)
	require.NoError(t, err)
	assert.LessOrEqual(t, plan.PrivacyScore, 100)
}
