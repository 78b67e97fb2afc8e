// Package position implements the Position Monitor: a single global ticker
// that scans OPEN positions for take-profit, stop-loss, and trailing-stop
// triggers, per spec.md §4.8.
package position

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"sync"
	"time"

	"github.com/rawblock/snipe-engine/internal/aggregator"
	"github.com/rawblock/snipe-engine/internal/cache"
	"github.com/rawblock/snipe-engine/internal/exit"
	"github.com/rawblock/snipe-engine/internal/rpc"
	"github.com/rawblock/snipe-engine/internal/store"
	"github.com/rawblock/snipe-engine/pkg/models"
)

// Config carries the monitor's tunables, per spec.md §6.
type Config struct {
	Interval          time.Duration
	BatchSize         int
	InterBatchDelay   time.Duration
	MaxExitAttempts   int
	ExitSlippageBps   int
	ExitPriorityFee   models.PriorityFeeMode
	ExitUseMEVBundle  bool
}

func DefaultConfig() Config {
	return Config{
		Interval:        5 * time.Second,
		BatchSize:       10,
		InterBatchDelay: 1 * time.Second,
		MaxExitAttempts: 3,
		ExitSlippageBps: 100,
		ExitPriorityFee: models.FeeModeMedium,
	}
}

// SignerResolver resolves the session-scoped decrypted keypair a position's
// owner trades under, per SPEC_FULL.md's open-question resolution (the
// monitor keypair-retrieval hook is assumed supplied in production).
type SignerResolver interface {
	ResolveSigner(ctx context.Context, userID string) (aggregator.KeypairSigner, error)
}

// Monitor scans registered OPEN positions on a shared ticker. Only
// positions with a take-profit or stop-loss configured are registered, per
// spec.md §4.10 step 6.
type Monitor struct {
	Positions store.PositionStore
	Prices    PriceProvider
	Cache     cache.Store
	Exit      *exit.Executor
	Signers   SignerResolver
	Config    Config

	mu         sync.Mutex
	registered map[string]bool

	breaker *rpc.Breaker
}

func NewMonitor(positions store.PositionStore, prices PriceProvider, c cache.Store, executor *exit.Executor, signers SignerResolver, cfg Config) *Monitor {
	return &Monitor{
		Positions:  positions,
		Prices:     prices,
		Cache:      c,
		Exit:       executor,
		Signers:    signers,
		Config:     cfg,
		registered: make(map[string]bool),
		breaker:    rpc.NewBreaker(rpc.BreakerConfig{FailureThreshold: 5, SuccessThreshold: 2, Timeout: 60 * time.Second, MonitoringPeriod: 60 * time.Second}),
	}
}

// Register adds a Position to the monitored set.
func (m *Monitor) Register(positionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered[positionID] = true
}

func (m *Monitor) Unregister(positionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.registered, positionID)
}

func (m *Monitor) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.registered))
	for id := range m.registered {
		out = append(out, id)
	}
	return out
}

// Run blocks, ticking until ctx is cancelled. In-flight batch checks run to
// completion on cancellation (they are idempotent), per spec.md §5.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.Config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	if !m.breaker.Allow(time.Now()) {
		log.Println("[PositionMonitor] breaker open, skipping tick")
		return
	}

	ids := m.ids()
	var positions []*models.Position
	for _, id := range ids {
		p, err := m.Positions.Get(ctx, id)
		if err != nil {
			log.Printf("[PositionMonitor] get position %s: %v", id, err)
			continue
		}
		if p == nil || p.Status != models.PositionOpen {
			m.Unregister(id)
			continue
		}
		positions = append(positions, p)
	}

	failed := false
	for start := 0; start < len(positions); start += m.Config.BatchSize {
		end := start + m.Config.BatchSize
		if end > len(positions) {
			end = len(positions)
		}
		batch := positions[start:end]

		results := make(chan bool, len(batch))
		for _, p := range batch {
			go func(p *models.Position) {
				results <- m.checkPosition(ctx, p)
			}(p)
		}
		for range batch {
			if !<-results {
				failed = true
			}
		}

		if end < len(positions) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.Config.InterBatchDelay):
			}
		}
	}

	if failed {
		m.breaker.RecordFailure(time.Now())
	} else {
		m.breaker.RecordSuccess(time.Now())
	}
}

// checkPosition evaluates one OPEN position; returns false on a hard error
// worth counting against the monitor's breaker.
func (m *Monitor) checkPosition(ctx context.Context, p *models.Position) bool {
	current, err := m.cachedPrice(ctx, p.TokenMint)
	if err != nil {
		log.Printf("[PositionMonitor] position %s: price fetch failed: %v", p.ID, err)
		return false
	}

	p.UpdateHighest(current)
	trigger := p.EvaluateTriggers(current)
	if trigger == "" {
		if err := m.Positions.Update(ctx, p); err != nil {
			log.Printf("[PositionMonitor] position %s: persist highest-price failed: %v", p.ID, err)
			return false
		}
		return true
	}

	if err := m.Positions.Update(ctx, p); err != nil {
		log.Printf("[PositionMonitor] position %s: persist pre-exit state failed: %v", p.ID, err)
		return false
	}

	signer, err := m.Signers.ResolveSigner(ctx, p.UserID)
	if err != nil {
		log.Printf("[PositionMonitor] position %s: resolve signer failed: %v", p.ID, err)
		return false
	}

	exitTrigger := models.ExitTrigger{
		Type:            trigger,
		SlippageBps:     m.Config.ExitSlippageBps,
		PriorityFeeMode: m.Config.ExitPriorityFee,
		UseMEVBundle:    m.Config.ExitUseMEVBundle,
		MaxAttempts:     m.Config.MaxExitAttempts,
	}
	result := m.Exit.Exit(ctx, p, exitTrigger, signer)
	if result.Failed {
		log.Printf("[PositionMonitor] position %s: exit failed after %d attempts: %s", p.ID, result.Attempts, result.FailureMarker)
		return false
	}
	m.Unregister(p.ID)
	return true
}

func (m *Monitor) cachedPrice(ctx context.Context, tokenMint string) (float64, error) {
	key := cache.PriceKey(tokenMint)
	if raw, ok, err := m.Cache.Get(ctx, key); err == nil && ok {
		var price float64
		if err := json.Unmarshal(raw, &price); err == nil && !math.IsNaN(price) {
			return price, nil
		}
	}

	price, err := m.Prices.CurrentPrice(ctx, tokenMint)
	if err != nil {
		return 0, err
	}

	if raw, err := json.Marshal(price); err == nil {
		_ = m.Cache.Set(ctx, key, raw, cache.TTLPrice)
	}
	return price, nil
}
