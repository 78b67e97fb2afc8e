package position

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rawblock/snipe-engine/internal/aggregator"
	"github.com/rawblock/snipe-engine/internal/cache"
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
func (m *memPositions) Get(ctx context.Context, id string) (*models.Position, error) { return m.pos[id], nil }
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
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Position
	for _, p := range m.pos {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakePrice struct{ price float64 }

func (f fakePrice) CurrentPrice(ctx context.Context, tokenMint string) (float64, error) {
	return f.price, nil
}

type fakeSigners struct{}

func (fakeSigners) ResolveSigner(ctx context.Context, userID string) (aggregator.KeypairSigner, error) {
	return fakeSigner{}, nil
}

type fakeSigner struct{}

func (fakeSigner) Sign(ctx context.Context, rawTx []byte) ([]byte, error) { return rawTx, nil }
func (fakeSigner) PublicKey() string                                     { return "pub" }

type fakeAgg struct{}

func (fakeAgg) Quote(ctx context.Context, inputMint, outputMint string, amountIn uint64, slippageBps int) (models.Quote, error) {
	return models.Quote{QuoteID: "q", ExpectedOutput: 160}, nil
}
func (fakeAgg) BuildSwapTx(ctx context.Context, q models.Quote, computeUnitPrice uint64, walletPublicKey string, useMEV bool) ([]byte, error) {
	return []byte("unsigned-exit-tx"), nil
}

type fakeFeeBackend struct{}

func (f *fakeFeeBackend) ReadAccount(ctx context.Context, address string) (rpc.AccountInfo, error) {
	return rpc.AccountInfo{}, nil
}
func (f *fakeFeeBackend) ReadSupply(ctx context.Context, mint string) (rpc.SupplyInfo, error) {
	return rpc.SupplyInfo{}, nil
}
func (f *fakeFeeBackend) ReadLargestHolders(ctx context.Context, mint string, n int) ([]rpc.HolderBalance, error) {
	return nil, nil
}
func (f *fakeFeeBackend) ReadRecentPrioritizationFees(ctx context.Context, accountFilter []string) ([]rpc.PrioritizationFeeSample, error) {
	samples := make([]rpc.PrioritizationFeeSample, 15)
	for i := range samples {
		samples[i] = rpc.PrioritizationFeeSample{Slot: uint64(i), PrioritizationFee: uint64(1000 * (i + 1))}
	}
	return samples, nil
}
func (f *fakeFeeBackend) SubmitTransaction(ctx context.Context, signedTx []byte) (string, error) {
	return "exit-sig", nil
}

func buildMonitor(price float64) (*Monitor, *memPositions) {
	positions := newMemPositions()
	c := cache.NewInProcess()
	client := rpc.NewClient(&fakeFeeBackend{}, rpc.NewRegistry(rpc.DefaultBreakerConfig()))
	optimizer := fee.NewOptimizer(client)
	executor := exit.NewExecutor(positions, fakeAgg{}, optimizer, client)
	cfg := DefaultConfig()
	cfg.Interval = 10 * time.Millisecond
	m := NewMonitor(positions, fakePrice{price: price}, c, executor, fakeSigners{}, cfg)
	return m, positions
}

func TestCheckPosition_TakeProfitTriggersExit(t *testing.T) {
	tp := 50.0
	m, positions := buildMonitor(1.6)
	p := &models.Position{ID: "p1", AmountIn: 100, CurrentBalance: 100, EntryPrice: 1.0, TakeProfitPct: &tp, Status: models.PositionOpen}
	require.NoError(t, positions.Create(context.Background(), p))

	ok := m.checkPosition(context.Background(), p)
	assert.True(t, ok)
	assert.Equal(t, models.PositionClosed, p.Status)
}

func TestCheckPosition_NoTriggerKeepsOpenAndUpdatesHighest(t *testing.T) {
	tp := 50.0
	m, positions := buildMonitor(1.1)
	p := &models.Position{ID: "p2", AmountIn: 100, CurrentBalance: 100, EntryPrice: 1.0, TakeProfitPct: &tp, Status: models.PositionOpen}
	require.NoError(t, positions.Create(context.Background(), p))

	ok := m.checkPosition(context.Background(), p)
	assert.True(t, ok)
	assert.Equal(t, models.PositionOpen, p.Status)
	require.NotNil(t, p.HighestPriceSeen)
	assert.Equal(t, 1.1, *p.HighestPriceSeen)
}

func TestCheckPosition_CachesPriceWithinTTL(t *testing.T) {
	m, positions := buildMonitor(2.0)
	p := &models.Position{ID: "p3", AmountIn: 100, CurrentBalance: 100, EntryPrice: 1.0, Status: models.PositionOpen}
	require.NoError(t, positions.Create(context.Background(), p))

	price1, err := m.cachedPrice(context.Background(), "mintX")
	require.NoError(t, err)
	m.Prices = fakePrice{price: 9.0}
	price2, err := m.cachedPrice(context.Background(), "mintX")
	require.NoError(t, err)
	assert.Equal(t, price1, price2)
}
