package fee

import (
	"context"
	"testing"

	"github.com/rawblock/snipe-engine/internal/rpc"
	"github.com/rawblock/snipe-engine/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	fees []rpc.PrioritizationFeeSample
	err  error
}

func (f *fakeBackend) ReadAccount(ctx context.Context, address string) (rpc.AccountInfo, error) {
	return rpc.AccountInfo{}, nil
}
func (f *fakeBackend) ReadSupply(ctx context.Context, mint string) (rpc.SupplyInfo, error) {
	return rpc.SupplyInfo{}, nil
}
func (f *fakeBackend) ReadLargestHolders(ctx context.Context, mint string, topN int) ([]rpc.HolderBalance, error) {
	return nil, nil
}
func (f *fakeBackend) ReadRecentPrioritizationFees(ctx context.Context, accountFilter []string) ([]rpc.PrioritizationFeeSample, error) {
	return f.fees, f.err
}
func (f *fakeBackend) SubmitTransaction(ctx context.Context, signedTx []byte) (string, error) {
	return "", nil
}

func feesOf(vals ...uint64) []rpc.PrioritizationFeeSample {
	out := make([]rpc.PrioritizationFeeSample, len(vals))
	for i, v := range vals {
		out[i] = rpc.PrioritizationFeeSample{Slot: uint64(i), PrioritizationFee: v}
	}
	return out
}

func TestOptimize_InsufficientSamples(t *testing.T) {
	backend := &fakeBackend{fees: feesOf(100, 200, 300)}
	client := rpc.NewClient(backend, rpc.NewRegistry(rpc.DefaultBreakerConfig()))
	o := NewOptimizer(client)

	_, err := o.Optimize(context.Background(), nil, models.FeeModeLow, nil, nil)
	require.Error(t, err)
}

func TestOptimize_LowModeUsesP50Floor(t *testing.T) {
	vals := make([]uint64, 20)
	for i := range vals {
		vals[i] = uint64(1000 * (i + 1))
	}
	backend := &fakeBackend{fees: feesOf(vals...)}
	client := rpc.NewClient(backend, rpc.NewRegistry(rpc.DefaultBreakerConfig()))
	o := NewOptimizer(client)

	res, err := o.Optimize(context.Background(), nil, models.FeeModeLow, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), res.ComputeUnitPrice)
	assert.Equal(t, models.ComputeUnitLimitFixed, res.ComputeUnitLimit)
	assert.False(t, res.WasCapped)
}

func TestOptimize_CapAppliesAndFlags(t *testing.T) {
	vals := make([]uint64, 20)
	for i := range vals {
		vals[i] = uint64(250_000)
	}
	backend := &fakeBackend{fees: feesOf(vals...)}
	client := rpc.NewClient(backend, rpc.NewRegistry(rpc.DefaultBreakerConfig()))
	o := NewOptimizer(client)

	cap := uint64(100)
	res, err := o.Optimize(context.Background(), nil, models.FeeModeHigh, &cap, nil)
	require.NoError(t, err)
	assert.True(t, res.WasCapped)
	assert.Equal(t, cap, res.ComputeUnitPrice)
}

func TestOptimize_HighCongestionUsesDoubleMultiplier(t *testing.T) {
	vals := make([]uint64, 20)
	for i := range vals {
		vals[i] = uint64(250_000)
	}
	backend := &fakeBackend{fees: feesOf(vals...)}
	client := rpc.NewClient(backend, rpc.NewRegistry(rpc.DefaultBreakerConfig()))
	o := NewOptimizer(client)

	res, err := o.Optimize(context.Background(), nil, models.FeeModeNone, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), res.ComputeUnitPrice)
}
