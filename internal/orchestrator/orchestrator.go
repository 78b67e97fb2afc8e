// Package orchestrator wires the full snipe pipeline described in spec.md
// §4.10: wallet selection, the Privacy Layer, the Order Engine, and
// registration of the resulting Position with both surveillance monitors.
package orchestrator

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/rawblock/snipe-engine/internal/aggregator"
	"github.com/rawblock/snipe-engine/internal/guard"
	"github.com/rawblock/snipe-engine/internal/order"
	"github.com/rawblock/snipe-engine/internal/position"
	"github.com/rawblock/snipe-engine/internal/privacy"
	"github.com/rawblock/snipe-engine/internal/rug"
	"github.com/rawblock/snipe-engine/internal/store"
	"github.com/rawblock/snipe-engine/pkg/models"
	"github.com/rawblock/snipe-engine/pkg/snipeerr"
)

// wipeable is checked via type assertion so an Orchestrator never needs to
// know how a concrete signer holds key material, mirroring io.Closer's
// optional-interface idiom.
type wipeable interface {
	Wipe()
}

// Orchestrator runs one SnipeRequest end to end.
type Orchestrator struct {
	Unlocker   aggregator.KeypairUnlocker
	Wallets    privacy.WalletPool
	Privacy    *privacy.Planner
	Orders     *order.Engine
	OrderStore store.OrderStore
	Positions  store.PositionStore
	PosMonitor *position.Monitor
	RugMonitor *rug.Monitor
	DefaultCfg models.OrderConfig

	// Guard is optional: nil-checked, wired only at the composition root.
	// When set, it enforces the per-user concurrent-snipe cap and per-mint
	// post-exit cooldown before a new Order is ever created.
	Guard *guard.Guard

	mu     sync.Mutex
	states map[string]*models.UserPrivacyState
}

func New(unlocker aggregator.KeypairUnlocker, wallets privacy.WalletPool, planner *privacy.Planner, orders *order.Engine, orderStore store.OrderStore, positions store.PositionStore, posMonitor *position.Monitor, rugMonitor *rug.Monitor, defaultCfg models.OrderConfig) *Orchestrator {
	return &Orchestrator{
		Unlocker:   unlocker,
		Wallets:    wallets,
		Privacy:    planner,
		Orders:     orders,
		OrderStore: orderStore,
		Positions:  positions,
		PosMonitor: posMonitor,
		RugMonitor: rugMonitor,
		DefaultCfg: defaultCfg,
		states:     make(map[string]*models.UserPrivacyState),
	}
}

func (o *Orchestrator) stateFor(userID string) *models.UserPrivacyState {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.states[userID]
	if !ok {
		s = &models.UserPrivacyState{}
		o.states[userID] = s
	}
	return s
}

// defaultPrivacySettings is applied when a request names no PrivacyMode: a
// plain round-robin wallet pick with a fixed medium fee and no obfuscation,
// chosen so computeFeeMode never calls out to the Fee Optimizer.
func defaultPrivacySettings() models.PrivacySettings {
	return models.PrivacySettings{
		Wallet: models.WalletSettings{Strategy: models.WalletRoundRobin},
		Fee:    models.FeeSettings{Strategy: models.FeeStrategyFixed, AllowedModes: []models.PriorityFeeMode{models.FeeModeMedium}},
	}
}

// Run executes one SnipeRequest per spec.md §4.10's seven steps.
func (o *Orchestrator) Run(ctx context.Context, req models.SnipeRequest) models.SnipeResult {
	start := time.Now()
	breakdown := models.ExecutionBreakdown{}

	if o.Guard != nil && !o.Guard.CanEnter(req.UserID, req.TokenMint) {
		breakdown.TotalMs = time.Since(start).Milliseconds()
		return models.SnipeResult{Breakdown: breakdown, Err: snipeerr.ErrExposureBlocked}
	}

	settings := defaultPrivacySettings()
	if req.PrivacyMode != nil {
		settings = *req.PrivacyMode
	}
	state := o.stateFor(req.UserID)

	walletStart := time.Now()
	plan, err := o.Privacy.Plan(ctx, settings, state)
	if err != nil {
		breakdown.PrivacyError = err.Error()
		plan = models.PrivacyPlan{WalletID: o.fallbackWallet(), FeeMode: models.FeeModeMedium}
	} else {
		breakdown.PrivacyApplied = true
	}
	breakdown.WalletSelectMs = time.Since(walletStart).Milliseconds()
	breakdown.PrivacyMs = breakdown.WalletSelectMs

	signer, err := o.Unlocker.Unlock(ctx, req.UserID, plan.WalletID)
	if err != nil {
		breakdown.TotalMs = time.Since(start).Milliseconds()
		return models.SnipeResult{Breakdown: breakdown, Err: err}
	}
	if w, ok := signer.(wipeable); ok {
		defer w.Wipe()
	}

	delayStart := time.Now()
	if plan.DelayMs > 0 {
		select {
		case <-ctx.Done():
			breakdown.TotalMs = time.Since(start).Milliseconds()
			return models.SnipeResult{Breakdown: breakdown, Err: ctx.Err()}
		case <-time.After(time.Duration(plan.DelayMs) * time.Millisecond):
		}
	}
	breakdown.DelayMs = time.Since(delayStart).Milliseconds()

	cfg := o.DefaultCfg
	cfg.TokenMint = req.TokenMint
	cfg.AmountInBaseUnits = req.AmountIn
	cfg.PriorityFeeMode = plan.FeeMode
	cfg.TakeProfitPct = req.TakeProfitPct
	cfg.StopLossPct = req.StopLossPct

	ord := order.NewOrder(req.UserID, cfg, time.Now())
	if err := o.OrderStore.Create(ctx, ord); err != nil {
		breakdown.TotalMs = time.Since(start).Milliseconds()
		return models.SnipeResult{Order: ord, Breakdown: breakdown, Err: err}
	}
	if o.Guard != nil {
		o.Guard.RegisterTrade(req.UserID)
	}

	orderStart := time.Now()
	runErr := o.Orders.Run(ctx, ord, signer)
	breakdown.OrderEngineMs = time.Since(orderStart).Milliseconds()
	breakdown.TotalMs = time.Since(start).Milliseconds()

	if runErr != nil || ord.State != models.StateConfirmed {
		o.persistBreakdown(ctx, ord, breakdown)
		return models.SnipeResult{Order: ord, Breakdown: breakdown, Err: runErr}
	}

	pos, err := o.Positions.GetByOrderID(ctx, ord.ID)
	if err != nil || pos == nil {
		log.Printf("[Orchestrator] order %s confirmed but position lookup failed: %v", ord.ID, err)
		o.persistBreakdown(ctx, ord, breakdown)
		return models.SnipeResult{Order: ord, Breakdown: breakdown, Err: err}
	}
	breakdown.PositionRegistered = req.TakeProfitPct != nil || req.StopLossPct != nil
	if breakdown.PositionRegistered {
		o.PosMonitor.Register(pos.ID)
	}
	o.RugMonitor.Register(pos.ID)
	breakdown.RugMonitorRegistered = true

	o.persistBreakdown(ctx, ord, breakdown)
	return models.SnipeResult{Order: ord, Position: pos, Breakdown: breakdown}
}

// persistBreakdown attaches the settled request's per-phase timing to the
// Order record so GET /orders/{id} can replay it later. Best-effort: a
// failure here does not change the SnipeResult already computed.
func (o *Orchestrator) persistBreakdown(ctx context.Context, ord *models.Order, breakdown models.ExecutionBreakdown) {
	ord.Breakdown = &breakdown
	if err := o.OrderStore.Save(ctx, ord); err != nil {
		log.Printf("[Orchestrator] order %s: persist execution breakdown failed: %v", ord.ID, err)
	}
}

func (o *Orchestrator) fallbackWallet() string {
	wallets := o.Wallets.ListWallets()
	for _, w := range wallets {
		if w.IsPrimary {
			return w.ID
		}
	}
	if len(wallets) > 0 {
		return wallets[0].ID
	}
	return ""
}
