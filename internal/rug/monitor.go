// Package rug implements the Rug Monitor: a second global ticker that
// compares each registered Position's on-chain state against its baseline
// snapshot and triggers an emergency exit on severe degradation, per
// spec.md §4.9.
package rug

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rawblock/snipe-engine/internal/aggregator"
	"github.com/rawblock/snipe-engine/internal/alert"
	"github.com/rawblock/snipe-engine/internal/exit"
	"github.com/rawblock/snipe-engine/internal/rpc"
	"github.com/rawblock/snipe-engine/internal/store"
	"github.com/rawblock/snipe-engine/pkg/models"
)

// AuthorityReader decodes a mint account's authority state.
type AuthorityReader interface {
	ReadAuthorities(ctx context.Context, tokenMint string) (models.AuthorityState, error)
}

// LiquidityReader resolves a token's current pool liquidity in base units.
type LiquidityReader interface {
	ReadLiquidity(ctx context.Context, tokenMint string) (uint64, error)
}

// SignerResolver resolves the session-scoped decrypted keypair a position's
// owner trades under, mirroring the Position Monitor's equivalent port.
type SignerResolver interface {
	ResolveSigner(ctx context.Context, userID string) (aggregator.KeypairSigner, error)
}

// Broadcaster fans a JSON-encoded event out to connected telemetry
// subscribers. Satisfied structurally by *internal/api.Hub.
type Broadcaster interface {
	Broadcast(data []byte)
}

// AlertEmitter raises a webhook alert for a severe rug detection. Satisfied
// structurally by *internal/alert.Manager.
type AlertEmitter interface {
	EmitAlert(alert.Alert)
}

// Monitor watches all registered positions for rug signals.
type Monitor struct {
	Positions  store.PositionStore
	RPC        *rpc.Client
	Authority  AuthorityReader
	Liquidity  LiquidityReader
	Exit       *exit.Executor
	Signers    SignerResolver
	Config     Config

	// Telemetry and Alerts are optional: nil-checked, wired only at the
	// composition root once both collaborators exist.
	Telemetry Broadcaster
	Alerts    AlertEmitter

	AutoExitEnabled bool

	mu         sync.Mutex
	registered map[string]*models.RugMonitorState

	breaker *rpc.Breaker
}

func NewMonitor(positions store.PositionStore, client *rpc.Client, authority AuthorityReader, liquidity LiquidityReader, executor *exit.Executor, signers SignerResolver, cfg Config) *Monitor {
	return &Monitor{
		Positions:       positions,
		RPC:             client,
		Authority:       authority,
		Liquidity:       liquidity,
		Exit:            executor,
		Signers:         signers,
		Config:          cfg,
		AutoExitEnabled: true,
		registered:      make(map[string]*models.RugMonitorState),
		breaker:         rpc.NewBreaker(rpc.BreakerConfig{FailureThreshold: 5, SuccessThreshold: 2, Timeout: 60 * time.Second, MonitoringPeriod: 60 * time.Second}),
	}
}

// Register adds a Position to the monitored set, per spec.md §4.10 step 6
// ("register ... with Rug Monitor, always"). The baseline snapshot is taken
// lazily on the position's first tick.
func (m *Monitor) Register(positionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.registered[positionID]; !ok {
		m.registered[positionID] = &models.RugMonitorState{PositionID: positionID, Status: models.RugMonitorActive}
	}
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

func (m *Monitor) stateFor(positionID string) *models.RugMonitorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registered[positionID]
}

// Run blocks, ticking until ctx is cancelled.
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
		log.Println("[RugMonitor] breaker open, skipping tick")
		return
	}

	ids := m.ids()
	failed := false
	for _, id := range ids {
		if err := m.checkOne(ctx, id); err != nil {
			log.Printf("[RugMonitor] position %s: %v", id, err)
			failed = true
		}
	}

	if failed {
		m.breaker.RecordFailure(time.Now())
	} else {
		m.breaker.RecordSuccess(time.Now())
	}
}

// checkOne fetches the current snapshot for one registered position, diffs
// it against the stored baseline, and invokes an emergency exit when
// warranted.
func (m *Monitor) checkOne(ctx context.Context, positionID string) error {
	position, err := m.Positions.Get(ctx, positionID)
	if err != nil {
		return err
	}
	if position == nil || position.Status != models.PositionOpen {
		m.Unregister(positionID)
		return nil
	}

	supply, err := m.RPC.ReadSupply(ctx, position.TokenMint)
	if err != nil {
		return err
	}

	var authority models.AuthorityState
	var liquidityUnits uint64
	var holders []models.HolderBalance

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		a, err := m.Authority.ReadAuthorities(gctx, position.TokenMint)
		if err != nil {
			return err
		}
		authority = a
		return nil
	})
	group.Go(func() error {
		l, err := m.Liquidity.ReadLiquidity(gctx, position.TokenMint)
		if err != nil {
			return err
		}
		liquidityUnits = l
		return nil
	})
	group.Go(func() error {
		hs, err := m.RPC.ReadLargestHolders(gctx, position.TokenMint, m.Config.TopHoldersN)
		if err != nil {
			return err
		}
		for _, h := range hs {
			holders = append(holders, models.HolderBalance{Address: h.Address, Balance: h.Amount})
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return err
	}

	now := time.Now()
	latest := models.Snapshot{
		Authority:  authority,
		Liquidity:  models.LiquiditySnapshot{LiquidityBaseUnits: liquidityUnits, ObservedAt: now},
		Supply:     models.SupplySnapshot{TotalSupply: supply.TotalSupply, ObservedAt: now},
		TopHolders: holders,
	}

	state := m.stateFor(positionID)
	if state == nil {
		return nil
	}

	m.mu.Lock()
	isFirst := state.ChecksPerformed == 0
	if isFirst {
		state.Baseline = latest
	}
	state.Latest = latest
	state.ChecksPerformed++
	m.mu.Unlock()

	if isFirst {
		return nil
	}

	detections := detect(m.Config, state.Baseline, latest, now)
	if len(detections) == 0 {
		return nil
	}

	m.mu.Lock()
	state.Detections = append(state.Detections, detections...)
	m.mu.Unlock()

	m.broadcastDetections(position, detections)

	if !m.AutoExitEnabled {
		return nil
	}

	for _, d := range detections {
		if d.Recommendation != models.RecommendExitEmergency {
			continue
		}
		m.emergencyExit(ctx, position, d)
		break
	}
	return nil
}

func (m *Monitor) emergencyExit(ctx context.Context, position *models.Position, detection models.RugDetection) {
	signer, err := m.Signers.ResolveSigner(ctx, position.UserID)
	if err != nil {
		log.Printf("[RugMonitor] position %s: resolve signer for emergency exit failed: %v", position.ID, err)
		return
	}

	trigger := models.ExitTrigger{
		Type:              models.TriggerStopLoss,
		SlippageBps:       int(m.Config.EmergencyExitSlippagePct * 100),
		PriorityFeeMode:   m.Config.EmergencyPriorityFee,
		UseMEVBundle:      true,
		MaxAttempts:       m.Config.EmergencyExitRetries,
		RugRecommendation: detection.Recommendation,
	}

	result := m.Exit.Exit(ctx, position, trigger, signer)
	if result.Failed {
		log.Printf("[RugMonitor] position %s: emergency exit failed: %s", position.ID, result.FailureMarker)
		m.emitEmergencyAlert(position, detection, result)
		return
	}
	log.Printf("[RugMonitor] position %s: emergency exit saved %.2f%% of position", position.ID, result.PositionSavedPct)
	m.emitEmergencyAlert(position, detection, result)
}

// broadcastDetections fans every detection from one tick out over telemetry,
// if wired. Emergency-grade detections also raise a webhook alert once the
// exit they trigger has settled (see emitEmergencyAlert).
func (m *Monitor) broadcastDetections(position *models.Position, detections []models.RugDetection) {
	if m.Telemetry == nil {
		return
	}
	payload, err := json.Marshal(struct {
		Type       string               `json:"type"`
		PositionID string               `json:"positionId"`
		TokenMint  string               `json:"tokenMint"`
		Detections []models.RugDetection `json:"detections"`
	}{Type: "rug_detection", PositionID: position.ID, TokenMint: position.TokenMint, Detections: detections})
	if err != nil {
		log.Printf("[RugMonitor] position %s: marshal telemetry event failed: %v", position.ID, err)
		return
	}
	m.Telemetry.Broadcast(payload)
}

// emitEmergencyAlert raises a webhook alert describing an emergency exit's
// outcome, if an alert emitter is wired. Severity reflects whether the
// Exit Executor actually got the position out.
func (m *Monitor) emitEmergencyAlert(position *models.Position, detection models.RugDetection, result models.ExitResult) {
	if m.Alerts == nil {
		return
	}

	severity := alert.SeverityHigh
	title := fmt.Sprintf("Emergency exit triggered: %s", detection.RugType)
	description := fmt.Sprintf("position %s saved %.2f%% of capital on %s detection", position.ID, result.PositionSavedPct, detection.RugType)
	if result.Failed {
		severity = alert.SeverityCritical
		description = fmt.Sprintf("position %s emergency exit FAILED (%s) on %s detection", position.ID, result.FailureMarker, detection.RugType)
	}

	m.Alerts.EmitAlert(alert.Alert{
		Severity:    severity,
		AlertType:   string(detection.RugType),
		Title:       title,
		Description: description,
		PositionID:  position.ID,
		TokenMint:   position.TokenMint,
		Signature:   result.Signature,
		Details: map[string]any{
			"recommendation": detection.Recommendation,
			"confidence":     detection.Confidence,
		},
	})
}
