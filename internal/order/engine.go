// Package order implements the Order Engine: the per-Order state machine
// pipeline from PENDING through CONFIRMED or FAILED, per spec.md §4.7.
package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rawblock/snipe-engine/internal/aggregator"
	"github.com/rawblock/snipe-engine/internal/fee"
	"github.com/rawblock/snipe-engine/internal/filter"
	"github.com/rawblock/snipe-engine/internal/honeypot"
	"github.com/rawblock/snipe-engine/internal/rpc"
	"github.com/rawblock/snipe-engine/internal/store"
	"github.com/rawblock/snipe-engine/pkg/models"
	"github.com/rawblock/snipe-engine/pkg/snipeerr"
)

const wrappedNativeMint = "So11111111111111111111111111111111111111112"

// FilterData supplies the auxiliary on-chain data the Filter Validator
// needs beyond the honeypot result, per spec.md §4.4.
type FilterData interface {
	Load(ctx context.Context, userID, tokenMint string) (filter.AuxData, string, models.SniperFilters, error)
}

// Broadcaster fans a JSON-encoded event out to connected telemetry
// subscribers. Satisfied structurally by *internal/api.Hub.
type Broadcaster interface {
	Broadcast(data []byte)
}

// Engine drives a single Order through its pipeline, per attempt, retrying
// the whole attempt on retryable failure classes with capped backoff.
type Engine struct {
	Orders     store.OrderStore
	Positions  store.PositionStore
	Honeypot   *honeypot.Evaluator
	Filter     *filter.Checker
	FilterData FilterData
	Fees       *fee.Optimizer
	Aggregator aggregator.Aggregator
	RPC        *rpc.Client

	// Telemetry is optional: nil-checked, wired only once the websocket hub
	// exists at the composition root.
	Telemetry Broadcaster
}

func NewEngine(orders store.OrderStore, positions store.PositionStore, hp *honeypot.Evaluator, flt *filter.Checker, fd FilterData, fees *fee.Optimizer, agg aggregator.Aggregator, rpcClient *rpc.Client) *Engine {
	return &Engine{Orders: orders, Positions: positions, Honeypot: hp, Filter: flt, FilterData: fd, Fees: fees, Aggregator: agg, RPC: rpcClient}
}

// NewOrder constructs a fresh PENDING order for cfg, owned by userID.
func NewOrder(userID string, cfg models.OrderConfig, now time.Time) *models.Order {
	return &models.Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Config:    cfg,
		State:     models.StatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Run drives order through the pipeline to a terminal state, retrying
// between attempts with the backoff from spec.md §4.7: min(1000*2^(n-1), 10000) ms.
func (e *Engine) Run(ctx context.Context, order *models.Order, signer aggregator.KeypairSigner) error {
	timeout := time.Duration(order.Config.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	deadline := time.Now().Add(timeout)

	maxRetries := order.Config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	release, err := e.Orders.Claim(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("order engine: claim: %w", err)
	}
	defer release(context.Background())

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if time.Now().After(deadline) {
			return e.fail(ctx, order, snipeerr.Wrap(snipeerr.KindTransient, "MAX_RETRIES_EXCEEDED", "order wall-clock timeout exceeded", lastErr))
		}

		err := e.attempt(ctx, order, signer)
		if err == nil {
			return nil
		}
		lastErr = err

		var se *snipeerr.Error
		if !errors.As(err, &se) || !se.Retryable() {
			return e.fail(ctx, order, err)
		}

		if attempt == maxRetries {
			return e.fail(ctx, order, snipeerr.Wrap(snipeerr.KindTransient, "MAX_RETRIES_EXCEEDED", "retries exhausted", err))
		}

		order.RetryCount++
		_ = e.Orders.Save(ctx, order)

		backoff := time.Duration(minInt64(1000*int64pow2(attempt-1), 10_000)) * time.Millisecond
		select {
		case <-ctx.Done():
			return e.fail(ctx, order, snipeerr.Wrap(snipeerr.KindTransient, "NETWORK_ERROR", "context cancelled during backoff", ctx.Err()))
		case <-time.After(backoff):
		}
	}
	return e.fail(ctx, order, lastErr)
}

func int64pow2(n int) int64 {
	v := int64(1)
	for i := 0; i < n; i++ {
		v *= 2
	}
	return v
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// attempt runs one pass of the pipeline, advancing order's state as it goes.
func (e *Engine) attempt(ctx context.Context, order *models.Order, signer aggregator.KeypairSigner) error {
	loaded, err := e.Orders.Get(ctx, order.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return snipeerr.Wrap(snipeerr.KindStructural, "UNKNOWN", "load order", err)
	}
	if err == nil {
		*order = *loaded
	}

	if order.State == models.StatePending {
		if err := e.validate(ctx, order); err != nil {
			return err
		}
	}

	quote, err := e.quote(ctx, order)
	if err != nil {
		return err
	}

	swapResult, err := e.swap(ctx, order, quote, signer)
	if err != nil {
		return err
	}

	position := &models.Position{
		ID:                  uuid.NewString(),
		OrderID:             order.ID,
		UserID:              order.UserID,
		TokenMint:           order.Config.TokenMint,
		EntrySignature:      swapResult.Signature,
		AmountIn:            order.Config.AmountInBaseUnits,
		AmountOut:           swapResult.AmountOut,
		EntryPriceImpactPct: quote.PriceImpactPct,
		Status:              models.PositionOpen,
		TakeProfitPct:       order.Config.TakeProfitPct,
		StopLossPct:         order.Config.StopLossPct,
		CreatedAt:           time.Now(),
		UpdatedAt:           time.Now(),
	}
	if order.Config.AmountInBaseUnits > 0 {
		position.EntryPrice = float64(swapResult.AmountOut) / float64(order.Config.AmountInBaseUnits)
	}
	position.CurrentBalance = swapResult.AmountOut

	// Position creation is best-effort: failure here is logged but does not
	// fail the Order, per spec.md §4.7 step 5.
	if err := e.Positions.Create(ctx, position); err != nil {
		log.Printf("[OrderEngine] order %s: position creation failed: %v", order.ID, err)
	}

	order.Signature = swapResult.Signature
	order.Slot = swapResult.Slot
	order.AmountOut = swapResult.AmountOut
	order.PriceImpactPct = quote.PriceImpactPct
	order.ExecutionTimeMs = swapResult.ExecutionTimeMs
	order.Transition(models.StateConfirming, time.Now())
	order.Transition(models.StateConfirmed, time.Now())
	e.broadcastTransition(order)
	return e.Orders.Save(ctx, order)
}

// broadcastTransition fans out order's terminal state over telemetry, if
// wired. Called only from the two states that end the pipeline.
func (e *Engine) broadcastTransition(order *models.Order) {
	if e.Telemetry == nil {
		return
	}
	payload, err := json.Marshal(struct {
		Type    string            `json:"type"`
		OrderID string            `json:"orderId"`
		UserID  string            `json:"userId"`
		State   models.OrderState `json:"state"`
	}{Type: "order_transition", OrderID: order.ID, UserID: order.UserID, State: order.State})
	if err != nil {
		log.Printf("[OrderEngine] order %s: marshal telemetry event failed: %v", order.ID, err)
		return
	}
	e.Telemetry.Broadcast(payload)
}

// validate runs the Honeypot Evaluator and Filter Validator in parallel,
// per spec.md §4.7 step 2.
func (e *Engine) validate(ctx context.Context, order *models.Order) error {
	var honeypotResult models.HoneypotResult
	var aux filter.AuxData
	var lpMint string
	var filters models.SniperFilters

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := e.Honeypot.Evaluate(gctx, order.Config.TokenMint)
		if err != nil {
			return err
		}
		honeypotResult = res
		return nil
	})
	g.Go(func() error {
		a, lp, f, err := e.FilterData.Load(gctx, order.UserID, order.Config.TokenMint)
		if err != nil {
			return err
		}
		aux, lpMint, filters = a, lp, f
		return nil
	})
	if err := g.Wait(); err != nil {
		return snipeerr.Wrap(snipeerr.KindTransient, "NETWORK_ERROR", "validate: evaluator fan-out failed", err)
	}

	result, err := e.Filter.Check(ctx, honeypotResult, filters, aux, lpMint)
	if err != nil {
		return snipeerr.Wrap(snipeerr.KindStructural, "UNKNOWN", "filter check", err)
	}
	if !result.Passed {
		order.Violations = result.Violations
		return snipeerr.Wrap(snipeerr.KindPolicy, "FILTER_REJECTED", "token failed filter policy", filterViolationsErr(result.Violations))
	}

	order.Transition(models.StateValidated, time.Now())
	order.Transition(models.StateSimulating, time.Now())
	return e.Orders.Save(ctx, order)
}

func filterViolationsErr(v []models.Violation) error {
	if len(v) == 0 {
		return nil
	}
	return fmt.Errorf("%d filter violation(s), first: %s", len(v), v[0].Message)
}

// quote asks the aggregator for a route in a single call. Neither this method
// nor HTTPAggregator retries a transient quote error; it is returned as
// retryable, and Run retries the whole attempt after its own backoff.
func (e *Engine) quote(ctx context.Context, order *models.Order) (models.Quote, error) {
	q, err := e.Aggregator.Quote(ctx, wrappedNativeMint, order.Config.TokenMint, order.Config.AmountInBaseUnits, order.Config.SlippageBps)
	if err != nil {
		var se *snipeerr.Error
		if errors.As(err, &se) {
			return models.Quote{}, se
		}
		return models.Quote{}, snipeerr.Wrap(snipeerr.KindTransient, "QUOTE_FAILED", "aggregator quote failed", err)
	}

	order.Transition(models.StateSigning, time.Now())
	if err := e.Orders.Save(ctx, order); err != nil {
		return models.Quote{}, snipeerr.Wrap(snipeerr.KindStructural, "UNKNOWN", "save after quote", err)
	}
	return q, nil
}

// swap asks the Fee Optimizer for a compute-unit price, builds the unsigned
// swap tx via the aggregator, signs it locally, then hands the signed tx to
// the RPC Fabric for broadcast. Per spec.md §4.1, the Fabric caps submit at
// 2 attempts with 500-2000ms backoff to avoid a duplicate fill; routing
// broadcast through rpc.Client.Submit (rather than the aggregator's own
// endpoint) is what gives that cap teeth.
func (e *Engine) swap(ctx context.Context, order *models.Order, q models.Quote, signer aggregator.KeypairSigner) (models.SwapResult, error) {
	feeResult, err := e.Fees.Optimize(ctx, nil, order.Config.PriorityFeeMode, nil, nil)
	if err != nil {
		return models.SwapResult{}, snipeerr.Wrap(snipeerr.KindTransient, "NETWORK_ERROR", "fee optimize failed", err)
	}

	unsignedTx, err := e.Aggregator.BuildSwapTx(ctx, q, feeResult.ComputeUnitPrice, signer.PublicKey(), order.Config.UseMEVBundle)
	if err != nil {
		var se *snipeerr.Error
		if errors.As(err, &se) {
			return models.SwapResult{}, se
		}
		return models.SwapResult{}, snipeerr.Wrap(snipeerr.KindTransient, "TRANSACTION_TIMEOUT", "aggregator build swap tx failed", err)
	}

	signedTx, err := signer.Sign(ctx, unsignedTx)
	if err != nil {
		return models.SwapResult{}, snipeerr.Wrap(snipeerr.KindStructural, "UNKNOWN", "sign swap tx", err)
	}

	order.Transition(models.StateBroadcasting, time.Now())
	if err := e.Orders.Save(ctx, order); err != nil {
		return models.SwapResult{}, snipeerr.Wrap(snipeerr.KindStructural, "UNKNOWN", "save before broadcast", err)
	}

	start := time.Now()
	sig, err := e.RPC.Submit(ctx, signedTx)
	if err != nil {
		var se *snipeerr.Error
		if errors.As(err, &se) {
			return models.SwapResult{}, se
		}
		return models.SwapResult{}, snipeerr.Wrap(snipeerr.KindTransient, "TRANSACTION_TIMEOUT", "rpc submit failed", err)
	}

	return models.SwapResult{
		Signature:       sig,
		AmountOut:       q.ExpectedOutput,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// fail transitions order to FAILED, attaching structured error context, and
// persists it. Per spec.md §7, every terminal failure carries kind + context.
func (e *Engine) fail(ctx context.Context, order *models.Order, cause error) error {
	var se *snipeerr.Error
	if !errors.As(cause, &se) {
		se = snipeerr.Wrap(snipeerr.KindStructural, "UNKNOWN", "unclassified failure", cause)
	}

	order.FailureKind = string(se.Kind)
	order.FailureMarker = se.Marker
	order.FailureMessage = se.Error()

	if order.State != models.StateFailed {
		order.Transition(models.StateFailed, time.Now())
	}
	if err := e.Orders.Save(ctx, order); err != nil {
		log.Printf("[OrderEngine] order %s: failed to persist FAILED state: %v", order.ID, err)
	}
	e.broadcastTransition(order)
	return se
}
