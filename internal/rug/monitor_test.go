package rug

import (
	"context"
	"sync"
	"testing"

	"github.com/rawblock/snipe-engine/internal/aggregator"
	"github.com/rawblock/snipe-engine/internal/exit"
	"github.com/rawblock/snipe-engine/internal/fee"
	"github.com/rawblock/snipe-engine/internal/rpc"
	"github.com/rawblock/snipe-engine/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPositions struct {
	mu  sync.Mutex
	pos map[string]*models.Position
}

func newMemPositions() *memPositions { return &memPositions{pos: map[string]*models.Position{}} }
func (m *memPositions) Create(ctx context.Context, p *models.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos[p.ID] = p
	return nil
}
func (m *memPositions) Get(ctx context.Context, id string) (*models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos[id], nil
}
func (m *memPositions) GetByOrderID(ctx context.Context, orderID string) (*models.Position, error) {
	return nil, nil
}
func (m *memPositions) Update(ctx context.Context, p *models.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos[p.ID] = p
	return nil
}
func (m *memPositions) ListByStatus(ctx context.Context, status models.PositionStatus) ([]*models.Position, error) {
	return nil, nil
}

type fakeAuthority struct{ state models.AuthorityState }

func (f *fakeAuthority) ReadAuthorities(ctx context.Context, tokenMint string) (models.AuthorityState, error) {
	return f.state, nil
}

type fakeLiquidity struct{ units uint64 }

func (f *fakeLiquidity) ReadLiquidity(ctx context.Context, tokenMint string) (uint64, error) {
	return f.units, nil
}

type fakeSigners struct{}

func (fakeSigners) ResolveSigner(ctx context.Context, userID string) (aggregator.KeypairSigner, error) {
	return fakeSigner{}, nil
}

type fakeSigner struct{}

func (fakeSigner) Sign(ctx context.Context, rawTx []byte) ([]byte, error) { return rawTx, nil }
func (fakeSigner) PublicKey() string                                     { return "pub" }

type fakeAgg struct{ buildCalls int }

func (f *fakeAgg) Quote(ctx context.Context, inputMint, outputMint string, amountIn uint64, slippageBps int) (models.Quote, error) {
	return models.Quote{QuoteID: "q", ExpectedOutput: 40}, nil
}
func (f *fakeAgg) BuildSwapTx(ctx context.Context, q models.Quote, computeUnitPrice uint64, walletPublicKey string, useMEV bool) ([]byte, error) {
	f.buildCalls++
	return []byte("unsigned-emergency-tx"), nil
}

type fakeBackend struct {
	supply  uint64
	holders []rpc.HolderBalance
}

func (b *fakeBackend) ReadAccount(ctx context.Context, address string) (rpc.AccountInfo, error) {
	return rpc.AccountInfo{}, nil
}
func (b *fakeBackend) ReadSupply(ctx context.Context, mint string) (rpc.SupplyInfo, error) {
	return rpc.SupplyInfo{TotalSupply: b.supply}, nil
}
func (b *fakeBackend) ReadLargestHolders(ctx context.Context, mint string, n int) ([]rpc.HolderBalance, error) {
	return b.holders, nil
}
func (b *fakeBackend) ReadRecentPrioritizationFees(ctx context.Context, accountFilter []string) ([]rpc.PrioritizationFeeSample, error) {
	samples := make([]rpc.PrioritizationFeeSample, 15)
	for i := range samples {
		samples[i] = rpc.PrioritizationFeeSample{Slot: uint64(i), PrioritizationFee: uint64(1000 * (i + 1))}
	}
	return samples, nil
}
func (b *fakeBackend) SubmitTransaction(ctx context.Context, signedTx []byte) (string, error) {
	return "emergency-sig", nil
}

func buildMonitor(backend *fakeBackend, authState models.AuthorityState, liqUnits uint64, agg *fakeAgg) (*Monitor, *memPositions) {
	positions := newMemPositions()
	client := rpc.NewClient(backend, rpc.NewRegistry(rpc.DefaultBreakerConfig()))
	optimizer := fee.NewOptimizer(client)
	executor := exit.NewExecutor(positions, agg, optimizer, client)
	cfg := DefaultConfig()
	m := NewMonitor(positions, client, &fakeAuthority{state: authState}, &fakeLiquidity{units: liqUnits}, executor, fakeSigners{}, cfg)
	return m, positions
}

func TestCheckOne_FirstTickEstablishesBaselineWithoutDetection(t *testing.T) {
	backend := &fakeBackend{supply: 1_000_000, holders: []rpc.HolderBalance{{Address: "h1", Amount: 100_000}}}
	m, positions := buildMonitor(backend, models.AuthorityState{MintAuthorityNull: true, FreezeAuthorityNull: true}, 500_000, &fakeAgg{})
	pos := &models.Position{ID: "p1", TokenMint: "mint1", UserID: "u1", Status: models.PositionOpen}
	require.NoError(t, positions.Create(context.Background(), pos))
	m.Register(pos.ID)

	require.NoError(t, m.checkOne(context.Background(), pos.ID))

	state := m.stateFor(pos.ID)
	require.NotNil(t, state)
	assert.Equal(t, 1, state.ChecksPerformed)
	assert.Empty(t, state.Detections)
	assert.Equal(t, uint64(500_000), state.Baseline.Liquidity.LiquidityBaseUnits)
}

func TestCheckOne_LiquidityRemovalDetectedOnSecondTick(t *testing.T) {
	backend := &fakeBackend{supply: 1_000_000, holders: []rpc.HolderBalance{{Address: "h1", Amount: 100_000}}}
	m, positions := buildMonitor(backend, models.AuthorityState{MintAuthorityNull: true, FreezeAuthorityNull: true}, 1_000_000, &fakeAgg{})
	pos := &models.Position{ID: "p2", TokenMint: "mint2", UserID: "u1", Status: models.PositionOpen}
	require.NoError(t, positions.Create(context.Background(), pos))
	m.Register(pos.ID)

	require.NoError(t, m.checkOne(context.Background(), pos.ID))

	liq := m.Liquidity.(*fakeLiquidity)
	liq.units = 400_000

	require.NoError(t, m.checkOne(context.Background(), pos.ID))
	state := m.stateFor(pos.ID)
	require.Len(t, state.Detections, 1)
	assert.Equal(t, models.RugLiquidityRemoval, state.Detections[0].RugType)
}

func TestCheckOne_AuthorityReenabledIsCriticalAndTriggersEmergencyExit(t *testing.T) {
	backend := &fakeBackend{supply: 1_000_000, holders: []rpc.HolderBalance{{Address: "h1", Amount: 100_000}}}
	agg := &fakeAgg{}
	m, positions := buildMonitor(backend, models.AuthorityState{MintAuthorityNull: true, FreezeAuthorityNull: true}, 1_000_000, agg)
	pos := &models.Position{ID: "p3", TokenMint: "mint3", UserID: "u1", AmountIn: 100, CurrentBalance: 100, Status: models.PositionOpen}
	require.NoError(t, positions.Create(context.Background(), pos))
	m.Register(pos.ID)

	require.NoError(t, m.checkOne(context.Background(), pos.ID))

	auth := m.Authority.(*fakeAuthority)
	auth.state = models.AuthorityState{MintAuthorityNull: false, FreezeAuthorityNull: true}

	require.NoError(t, m.checkOne(context.Background(), pos.ID))

	state := m.stateFor(pos.ID)
	require.Len(t, state.Detections, 1)
	assert.Equal(t, models.SeverityCriticalRug, state.Detections[0].Severity)
	assert.Equal(t, models.RecommendExitEmergency, state.Detections[0].Recommendation)
	assert.Equal(t, 1, agg.buildCalls)

	updated, _ := positions.Get(context.Background(), pos.ID)
	assert.Equal(t, models.PositionClosed, updated.Status)
}

func TestCheckOne_ClosedPositionUnregisters(t *testing.T) {
	backend := &fakeBackend{supply: 1_000_000}
	m, positions := buildMonitor(backend, models.AuthorityState{}, 1_000_000, &fakeAgg{})
	pos := &models.Position{ID: "p4", TokenMint: "mint4", Status: models.PositionClosed}
	require.NoError(t, positions.Create(context.Background(), pos))
	m.Register(pos.ID)

	require.NoError(t, m.checkOne(context.Background(), pos.ID))
	assert.Nil(t, m.stateFor(pos.ID))
}

func TestTick_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	backend := &fakeBackend{}
	m, positions := buildMonitor(backend, models.AuthorityState{}, 0, &fakeAgg{})
	pos := &models.Position{ID: "p5", TokenMint: "mint5", Status: models.PositionOpen}
	require.NoError(t, positions.Create(context.Background(), pos))
	m.Register(pos.ID)
	m.Liquidity = failingLiquidity{}

	for i := 0; i < 5; i++ {
		m.tick(context.Background())
	}
	assert.Equal(t, rpc.StateOpen, m.breaker.State())
}

type failingLiquidity struct{}

func (failingLiquidity) ReadLiquidity(ctx context.Context, tokenMint string) (uint64, error) {
	return 0, assertErr
}

var assertErr = &testErr{"liquidity read failed"}

type testErr struct{ msg string }

func (e *testErr) Error() string { return e.msg }
