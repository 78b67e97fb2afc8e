// Package exit implements the Exit Executor: the shared sell path both
// Position Monitor and Rug Monitor enqueue into, per spec.md §4.11.
package exit

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/rawblock/snipe-engine/internal/aggregator"
	"github.com/rawblock/snipe-engine/internal/fee"
	"github.com/rawblock/snipe-engine/internal/rpc"
	"github.com/rawblock/snipe-engine/internal/store"
	"github.com/rawblock/snipe-engine/pkg/models"
	"github.com/rawblock/snipe-engine/pkg/snipeerr"
)

const wrappedNativeMint = "So11111111111111111111111111111111111111112"

// ExposureGuard releases a user's concurrency slot and starts a mint's
// post-exit cooldown once a Position is done exiting, win or lose.
// Satisfied structurally by *internal/guard.Guard.
type ExposureGuard interface {
	Release(userID, tokenMint string)
}

// Broadcaster fans a JSON-encoded event out to connected telemetry
// subscribers. Satisfied structurally by *internal/api.Hub.
type Broadcaster interface {
	Broadcast(data []byte)
}

// Executor runs the sell path for a Position, never starting two concurrent
// exits for the same Position (spec.md §5).
type Executor struct {
	Positions  store.PositionStore
	Aggregator aggregator.Aggregator
	Fees       *fee.Optimizer
	RPC        *rpc.Client

	// Guard and Telemetry are optional: nil-checked, wired only at the
	// composition root once both collaborators exist.
	Guard     ExposureGuard
	Telemetry Broadcaster

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewExecutor(positions store.PositionStore, agg aggregator.Aggregator, fees *fee.Optimizer, rpcClient *rpc.Client) *Executor {
	return &Executor{Positions: positions, Aggregator: agg, Fees: fees, RPC: rpcClient, inFlight: make(map[string]bool)}
}

func (e *Executor) claim(positionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight[positionID] {
		return false
	}
	e.inFlight[positionID] = true
	return true
}

func (e *Executor) release(positionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, positionID)
}

// Exit sells position's remaining balance per trigger's policy, retrying up
// to trigger.MaxAttempts times with exponential backoff starting 500ms
// (the emergency-exit cadence from spec.md §4.9, reused here for any
// caller that sets MaxAttempts > 1).
func (e *Executor) Exit(ctx context.Context, position *models.Position, trigger models.ExitTrigger, signer aggregator.KeypairSigner) models.ExitResult {
	if !e.claim(position.ID) {
		return models.ExitResult{PositionID: position.ID, Failed: true, FailureMarker: "EXIT_ALREADY_IN_PROGRESS"}
	}
	defer e.release(position.ID)

	position.Status = models.PositionExiting
	position.UpdatedAt = time.Now()
	if err := e.Positions.Update(ctx, position); err != nil {
		log.Printf("[ExitExecutor] position %s: persist EXITING failed: %v", position.ID, err)
	}

	maxAttempts := trigger.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		position.ExitAttempts++

		result, err := e.attempt(ctx, position, trigger, signer)
		if err == nil {
			position.Status = models.PositionClosed
			position.ExitSignature = result.Signature
			position.AmountOut = result.AmountOut
			pnl := computePnL(position, result.AmountOut)
			position.RealizedPnL = &pnl
			position.UpdatedAt = time.Now()
			if err := e.Positions.Update(ctx, position); err != nil {
				log.Printf("[ExitExecutor] position %s: persist CLOSED failed: %v", position.ID, err)
			}

			result.PositionID = position.ID
			result.RealizedPnL = pnl
			result.Attempts = position.ExitAttempts
			result.CompletedAt = time.Now()
			if position.AmountIn > 0 {
				result.PositionSavedPct = 100 * float64(result.AmountOut) / float64(position.AmountIn)
			}
			e.onExitSettled(position, result)
			return result
		}

		lastErr = err
		var se *snipeerr.Error
		if !errors.As(err, &se) || !se.Retryable() || attempt == maxAttempts {
			break
		}

		backoff := time.Duration(500*int64pow2(attempt-1)) * time.Millisecond
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			attempt = maxAttempts
		case <-time.After(backoff):
		}
	}

	position.Status = models.PositionFailed
	if position.ExitAttempts >= maxAttempts {
		position.UpdatedAt = time.Now()
	}
	if err := e.Positions.Update(ctx, position); err != nil {
		log.Printf("[ExitExecutor] position %s: persist FAILED failed: %v", position.ID, err)
	}

	marker := "UNKNOWN"
	var se *snipeerr.Error
	if errors.As(lastErr, &se) {
		marker = se.Marker
	}
	result := models.ExitResult{
		PositionID:    position.ID,
		Failed:        true,
		FailureMarker: marker,
		Attempts:      position.ExitAttempts,
		CompletedAt:   time.Now(),
	}
	e.onExitSettled(position, result)
	return result
}

// onExitSettled runs once a Position's exit reaches CLOSED or FAILED:
// freeing the exposure guard's slot and starting tokenMint's cooldown, and
// broadcasting the result over telemetry. Both collaborators are optional.
func (e *Executor) onExitSettled(position *models.Position, result models.ExitResult) {
	if e.Guard != nil {
		e.Guard.Release(position.UserID, position.TokenMint)
	}
	if e.Telemetry != nil {
		payload, err := json.Marshal(struct {
			Type     string            `json:"type"`
			Position string            `json:"positionId"`
			Result   models.ExitResult `json:"result"`
		}{Type: "exit_result", Position: position.ID, Result: result})
		if err != nil {
			log.Printf("[ExitExecutor] position %s: marshal telemetry event failed: %v", position.ID, err)
		} else {
			e.Telemetry.Broadcast(payload)
		}
	}
}

func (e *Executor) attempt(ctx context.Context, position *models.Position, trigger models.ExitTrigger, signer aggregator.KeypairSigner) (models.ExitResult, error) {
	q, err := e.Aggregator.Quote(ctx, position.TokenMint, wrappedNativeMint, position.CurrentBalance, trigger.SlippageBps)
	if err != nil {
		return models.ExitResult{}, classify(err, "QUOTE_FAILED")
	}

	feeResult, err := e.Fees.Optimize(ctx, nil, trigger.PriorityFeeMode, nil, nil)
	if err != nil {
		return models.ExitResult{}, classify(err, "NETWORK_ERROR")
	}

	unsignedTx, err := e.Aggregator.BuildSwapTx(ctx, q, feeResult.ComputeUnitPrice, signer.PublicKey(), trigger.UseMEVBundle)
	if err != nil {
		return models.ExitResult{}, classify(err, "TRANSACTION_TIMEOUT")
	}

	signedTx, err := signer.Sign(ctx, unsignedTx)
	if err != nil {
		return models.ExitResult{}, classify(err, "UNKNOWN")
	}

	sig, err := e.RPC.Submit(ctx, signedTx)
	if err != nil {
		return models.ExitResult{}, classify(err, "TRANSACTION_TIMEOUT")
	}

	return models.ExitResult{Signature: sig, AmountOut: q.ExpectedOutput}, nil
}

func classify(err error, defaultMarker string) error {
	var se *snipeerr.Error
	if errors.As(err, &se) {
		return se
	}
	return snipeerr.Wrap(snipeerr.KindTransient, defaultMarker, "exit executor call failed", err)
}

func computePnL(position *models.Position, amountOut uint64) float64 {
	if position.AmountIn == 0 {
		return 0
	}
	return float64(amountOut) - float64(position.AmountIn)
}

func int64pow2(n int) int64 {
	v := int64(1)
	for i := 0; i < n; i++ {
		v *= 2
	}
	return v
}
