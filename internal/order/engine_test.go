package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rawblock/snipe-engine/internal/cache"
	"github.com/rawblock/snipe-engine/internal/fee"
	"github.com/rawblock/snipe-engine/internal/filter"
	"github.com/rawblock/snipe-engine/internal/honeypot"
	"github.com/rawblock/snipe-engine/internal/rpc"
	"github.com/rawblock/snipe-engine/internal/store"
	"github.com/rawblock/snipe-engine/pkg/models"
	"github.com/rawblock/snipe-engine/pkg/snipeerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memOrderStore struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	claims map[string]bool
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{orders: map[string]*models.Order{}, claims: map[string]bool{}}
}
func (s *memOrderStore) Create(ctx context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}
func (s *memOrderStore) Get(ctx context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *o
	return &cp, nil
}
func (s *memOrderStore) Save(ctx context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}
func (s *memOrderStore) Claim(ctx context.Context, id string) (func(context.Context), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claims[id] {
		return nil, assert.AnError
	}
	s.claims[id] = true
	return func(context.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.claims, id)
	}, nil
}

type memPositionStore struct {
	mu        sync.Mutex
	positions map[string]*models.Position
}

func newMemPositionStore() *memPositionStore {
	return &memPositionStore{positions: map[string]*models.Position{}}
}
func (s *memPositionStore) Create(ctx context.Context, p *models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[p.ID] = p
	return nil
}
func (s *memPositionStore) Get(ctx context.Context, id string) (*models.Position, error) {
	return s.positions[id], nil
}
func (s *memPositionStore) GetByOrderID(ctx context.Context, orderID string) (*models.Position, error) {
	for _, p := range s.positions {
		if p.OrderID == orderID {
			return p, nil
		}
	}
	return nil, nil
}
func (s *memPositionStore) Update(ctx context.Context, p *models.Position) error {
	s.positions[p.ID] = p
	return nil
}
func (s *memPositionStore) ListByStatus(ctx context.Context, status models.PositionStatus) ([]*models.Position, error) {
	var out []*models.Position
	for _, p := range s.positions {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeFilterData struct {
	aux     filter.AuxData
	lpMint  string
	filters models.SniperFilters
	err     error
}

func (f fakeFilterData) Load(ctx context.Context, userID, tokenMint string) (filter.AuxData, string, models.SniperFilters, error) {
	return f.aux, f.lpMint, f.filters, f.err
}

type fakeHoneypotProvider struct{ res honeypot.ProviderResult }

func (f fakeHoneypotProvider) Name() string { return "fake" }
func (f fakeHoneypotProvider) Check(ctx context.Context, tokenMint string) (honeypot.ProviderResult, error) {
	return f.res, nil
}

type fakeAggregator struct {
	quoteErr   error
	buildErr   error
	quoteCalls int
	buildCalls int
}

func (f *fakeAggregator) Quote(ctx context.Context, inputMint, outputMint string, amountIn uint64, slippageBps int) (models.Quote, error) {
	f.quoteCalls++
	if f.quoteErr != nil {
		return models.Quote{}, f.quoteErr
	}
	return models.Quote{QuoteID: "q1", ExpectedOutput: 1000, PriceImpactPct: 0.5}, nil
}

type fakeSigner struct{}

func (fakeSigner) Sign(ctx context.Context, rawTx []byte) ([]byte, error) { return rawTx, nil }
func (fakeSigner) PublicKey() string                                     { return "pub" }

func (f *fakeAggregator) BuildSwapTx(ctx context.Context, q models.Quote, computeUnitPrice uint64, walletPublicKey string, useMEV bool) ([]byte, error) {
	f.buildCalls++
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	return []byte("unsigned-tx"), nil
}

func buildEngine(t *testing.T, filters models.SniperFilters, hpScore int) (*Engine, *memOrderStore, *fakeAggregator) {
	t.Helper()
	orders := newMemOrderStore()
	positions := newMemPositionStore()

	provider := fakeHoneypotProvider{res: honeypot.ProviderResult{Score: hpScore, Confidence: 90}}
	hpEvaluator := honeypot.NewEvaluator([]honeypot.Provider{provider}, rpc.NewRegistry(rpc.DefaultBreakerConfig()), cache.NewInProcess(), honeypot.DefaultConfig())

	checker := filter.NewChecker(fakeLockRegistryLocked{})
	fd := fakeFilterData{filters: filters}

	backend := &fakePricingBackend{}
	client := rpc.NewClient(backend, rpc.NewRegistry(rpc.DefaultBreakerConfig()))
	optimizer := fee.NewOptimizer(client)

	agg := &fakeAggregator{}
	engine := &Engine{Orders: orders, Positions: positions, Honeypot: hpEvaluator, Filter: checker, FilterData: fd, Fees: optimizer, Aggregator: agg, RPC: client}
	return engine, orders, agg
}

type fakeLockRegistryLocked struct{}

func (fakeLockRegistryLocked) LookupLock(ctx context.Context, lpMint string) (float64, models.LockStatus, error) {
	return 100, models.LockStatusLocked, nil
}

type fakePricingBackend struct{}

func (f *fakePricingBackend) ReadAccount(ctx context.Context, address string) (rpc.AccountInfo, error) {
	return rpc.AccountInfo{}, nil
}
func (f *fakePricingBackend) ReadSupply(ctx context.Context, mint string) (rpc.SupplyInfo, error) {
	return rpc.SupplyInfo{}, nil
}
func (f *fakePricingBackend) ReadLargestHolders(ctx context.Context, mint string, n int) ([]rpc.HolderBalance, error) {
	return nil, nil
}
func (f *fakePricingBackend) ReadRecentPrioritizationFees(ctx context.Context, accountFilter []string) ([]rpc.PrioritizationFeeSample, error) {
	samples := make([]rpc.PrioritizationFeeSample, 20)
	for i := range samples {
		samples[i] = rpc.PrioritizationFeeSample{Slot: uint64(i), PrioritizationFee: uint64(1000 * (i + 1))}
	}
	return samples, nil
}
func (f *fakePricingBackend) SubmitTransaction(ctx context.Context, signedTx []byte) (string, error) {
	return "sig1", nil
}

func TestEngine_CleanSnipeReachesConfirmed(t *testing.T) {
	engine, orders, _ := buildEngine(t, models.SniperFilters{}, 20)
	cfg := models.OrderConfig{TokenMint: "mint1", AmountInBaseUnits: 1, PriorityFeeMode: models.FeeModeLow, MaxRetries: 1, TimeoutMs: 30_000}
	o := NewOrder("user1", cfg, time.Now())
	require.NoError(t, orders.Create(context.Background(), o))

	err := engine.Run(context.Background(), o, fakeSigner{})
	require.NoError(t, err)
	assert.Equal(t, models.StateConfirmed, o.State)
	assert.Equal(t, "sig1", o.Signature)
}

func TestEngine_FilterRejectionFailsWithoutRetry(t *testing.T) {
	maxRisk := 10
	engine, orders, agg := buildEngine(t, models.SniperFilters{MaxRiskScore: &maxRisk}, 90)
	cfg := models.OrderConfig{TokenMint: "mint2", AmountInBaseUnits: 1, MaxRetries: 3, TimeoutMs: 30_000}
	o := NewOrder("user1", cfg, time.Now())
	require.NoError(t, orders.Create(context.Background(), o))

	err := engine.Run(context.Background(), o, fakeSigner{})
	require.Error(t, err)
	assert.Equal(t, models.StateFailed, o.State)
	assert.Equal(t, "FILTER_REJECTED", o.FailureMarker)
	assert.Equal(t, 0, agg.quoteCalls)
}

func TestEngine_TransientQuoteErrorRetriesThenSucceeds(t *testing.T) {
	engine, orders, agg := buildEngine(t, models.SniperFilters{}, 10)
	agg.quoteErr = snipeerr.ErrNetworkError
	cfg := models.OrderConfig{TokenMint: "mint3", AmountInBaseUnits: 1, MaxRetries: 3, TimeoutMs: 30_000}
	o := NewOrder("user1", cfg, time.Now())
	require.NoError(t, orders.Create(context.Background(), o))

	go func() {
		time.Sleep(50 * time.Millisecond)
		agg.quoteErr = nil
	}()

	err := engine.Run(context.Background(), o, fakeSigner{})
	require.NoError(t, err)
	assert.Equal(t, models.StateConfirmed, o.State)
}

func TestEngine_NoRouteFailsWithoutRetry(t *testing.T) {
	engine, orders, agg := buildEngine(t, models.SniperFilters{}, 10)
	agg.quoteErr = snipeerr.ErrNoRoute
	cfg := models.OrderConfig{TokenMint: "mint4", AmountInBaseUnits: 1, MaxRetries: 3, TimeoutMs: 30_000}
	o := NewOrder("user1", cfg, time.Now())
	require.NoError(t, orders.Create(context.Background(), o))

	err := engine.Run(context.Background(), o, fakeSigner{})
	require.Error(t, err)
	assert.Equal(t, models.StateFailed, o.State)
	assert.Equal(t, "NO_ROUTE", o.FailureMarker)
	assert.Equal(t, 1, agg.quoteCalls)
}

func TestEngine_InsufficientBalanceFailsWithoutRetry(t *testing.T) {
	engine, orders, agg := buildEngine(t, models.SniperFilters{}, 10)
	agg.quoteErr = snipeerr.ErrInsufficientBalance
	cfg := models.OrderConfig{TokenMint: "mint5", AmountInBaseUnits: 1, MaxRetries: 3, TimeoutMs: 30_000}
	o := NewOrder("user1", cfg, time.Now())
	require.NoError(t, orders.Create(context.Background(), o))

	err := engine.Run(context.Background(), o, fakeSigner{})
	require.Error(t, err)
	assert.Equal(t, models.StateFailed, o.State)
	assert.Equal(t, "INSUFFICIENT_BALANCE", o.FailureMarker)
	assert.Equal(t, 1, agg.quoteCalls)
}
