package exit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rawblock/snipe-engine/internal/fee"
	"github.com/rawblock/snipe-engine/internal/rpc"
	"github.com/rawblock/snipe-engine/pkg/models"
	"github.com/rawblock/snipe-engine/pkg/snipeerr"
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
	return nil, nil
}

type fakeAgg struct {
	quoteErr error
	buildErr error
}

func (f *fakeAgg) Quote(ctx context.Context, inputMint, outputMint string, amountIn uint64, slippageBps int) (models.Quote, error) {
	if f.quoteErr != nil {
		return models.Quote{}, f.quoteErr
	}
	return models.Quote{QuoteID: "q", ExpectedOutput: 150}, nil
}
func (f *fakeAgg) BuildSwapTx(ctx context.Context, q models.Quote, computeUnitPrice uint64, walletPublicKey string, useMEV bool) ([]byte, error) {
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	return []byte("unsigned-exit-tx"), nil
}

type fakeSigner struct{}

func (fakeSigner) Sign(ctx context.Context, rawTx []byte) ([]byte, error) { return rawTx, nil }
func (fakeSigner) PublicKey() string                                     { return "pub" }

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

func buildExecutor(agg *fakeAgg) (*Executor, *memPositions) {
	positions := newMemPositions()
	client := rpc.NewClient(&fakeFeeBackend{}, rpc.NewRegistry(rpc.DefaultBreakerConfig()))
	optimizer := fee.NewOptimizer(client)
	return NewExecutor(positions, agg, optimizer, client), positions
}

func TestExit_SuccessClosesPositionWithPnL(t *testing.T) {
	executor, positions := buildExecutor(&fakeAgg{})
	pos := &models.Position{ID: "p1", AmountIn: 100, CurrentBalance: 100, Status: models.PositionOpen}
	require.NoError(t, positions.Create(context.Background(), pos))

	trigger := models.ExitTrigger{Type: models.TriggerTakeProfit, MaxAttempts: 1}
	res := executor.Exit(context.Background(), pos, trigger, fakeSigner{})

	assert.False(t, res.Failed)
	assert.Equal(t, models.PositionClosed, pos.Status)
	assert.Equal(t, uint64(150), res.AmountOut)
	require.NotNil(t, pos.RealizedPnL)
	assert.Equal(t, float64(50), *pos.RealizedPnL)
}

func TestExit_RetriesOnTransientThenSucceeds(t *testing.T) {
	agg := &fakeAgg{quoteErr: snipeerr.ErrNetworkError}
	executor, positions := buildExecutor(agg)
	pos := &models.Position{ID: "p2", AmountIn: 100, CurrentBalance: 100, Status: models.PositionOpen}
	require.NoError(t, positions.Create(context.Background(), pos))

	go func() {
		time.Sleep(50 * time.Millisecond)
		agg.quoteErr = nil
	}()

	trigger := models.ExitTrigger{Type: models.TriggerStopLoss, MaxAttempts: 3}
	res := executor.Exit(context.Background(), pos, trigger, fakeSigner{})
	assert.False(t, res.Failed)
}

func TestExit_ExhaustsRetriesAndFails(t *testing.T) {
	agg := &fakeAgg{quoteErr: snipeerr.ErrNetworkError}
	executor, positions := buildExecutor(agg)
	pos := &models.Position{ID: "p3", AmountIn: 100, CurrentBalance: 100, Status: models.PositionOpen}
	require.NoError(t, positions.Create(context.Background(), pos))

	trigger := models.ExitTrigger{Type: models.TriggerStopLoss, MaxAttempts: 2}
	res := executor.Exit(context.Background(), pos, trigger, fakeSigner{})
	assert.True(t, res.Failed)
	assert.Equal(t, models.PositionFailed, pos.Status)
}

func TestExit_RefusesConcurrentExitForSamePosition(t *testing.T) {
	executor, positions := buildExecutor(&fakeAgg{})
	pos := &models.Position{ID: "p4", AmountIn: 100, CurrentBalance: 100, Status: models.PositionOpen}
	require.NoError(t, positions.Create(context.Background(), pos))

	assert.True(t, executor.claim(pos.ID))
	res := executor.Exit(context.Background(), pos, models.ExitTrigger{MaxAttempts: 1}, fakeSigner{})
	assert.True(t, res.Failed)
	assert.Equal(t, "EXIT_ALREADY_IN_PROGRESS", res.FailureMarker)
	executor.release(pos.ID)
}
