package honeypot

import (
	"context"
	"testing"

	"github.com/rawblock/snipe-engine/internal/cache"
	"github.com/rawblock/snipe-engine/internal/rpc"
	"github.com/rawblock/snipe-engine/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name  string
	res   ProviderResult
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) Check(ctx context.Context, tokenMint string) (ProviderResult, error) {
	f.calls++
	return f.res, f.err
}

func TestEvaluator_StopOnFirstSuccess(t *testing.T) {
	p1 := &fakeProvider{name: "p1", res: ProviderResult{Score: 20, Confidence: 80}}
	p2 := &fakeProvider{name: "p2", res: ProviderResult{Score: 90, Confidence: 90}}

	cfg := DefaultConfig()
	cfg.Mode = ModeStopOnFirstSuccess
	e := NewEvaluator([]Provider{p1, p2}, rpc.NewRegistry(rpc.DefaultBreakerConfig()), cache.NewInProcess(), cfg)

	res, err := e.Evaluate(context.Background(), "mintA")
	require.NoError(t, err)
	assert.Equal(t, 20, res.RiskScore)
	assert.Equal(t, 1, p1.calls)
	assert.Equal(t, 0, p2.calls)
}

func TestEvaluator_Aggregate_MaxScoreAndFlagUnion(t *testing.T) {
	p1 := &fakeProvider{name: "p1", res: ProviderResult{Score: 20, Confidence: 80, Flags: []models.Flag{models.FlagMintAuthorityPresent}}}
	p2 := &fakeProvider{name: "p2", res: ProviderResult{Score: 90, Confidence: 60, Flags: []models.Flag{models.FlagHighSellTax}}}

	cfg := DefaultConfig()
	cfg.Mode = ModeAggregate
	cfg.MaxProviders = 2
	e := NewEvaluator([]Provider{p1, p2}, rpc.NewRegistry(rpc.DefaultBreakerConfig()), cache.NewInProcess(), cfg)

	res, err := e.Evaluate(context.Background(), "mintB")
	require.NoError(t, err)
	assert.Equal(t, 90, res.RiskScore)
	assert.Equal(t, 70, res.Confidence)
	assert.True(t, res.HasFlag(models.FlagMintAuthorityPresent))
	assert.True(t, res.HasFlag(models.FlagHighSellTax))
}

func TestEvaluator_CachesResult(t *testing.T) {
	p1 := &fakeProvider{name: "p1", res: ProviderResult{Score: 10, Confidence: 50}}
	cfg := DefaultConfig()
	e := NewEvaluator([]Provider{p1}, rpc.NewRegistry(rpc.DefaultBreakerConfig()), cache.NewInProcess(), cfg)

	_, err := e.Evaluate(context.Background(), "mintC")
	require.NoError(t, err)
	_, err = e.Evaluate(context.Background(), "mintC")
	require.NoError(t, err)
	assert.Equal(t, 1, p1.calls)
}

func TestHoneypotResult_IsHoneypotThreshold(t *testing.T) {
	h := models.HoneypotResult{RiskScore: 70}
	assert.True(t, h.IsHoneypot(70))
	h.RiskScore = 69
	assert.False(t, h.IsHoneypot(70))
}
