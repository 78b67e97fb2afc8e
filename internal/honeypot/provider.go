// Package honeypot runs an ordered provider fallback chain producing a
// combined risk score and flag set for a token mint, per spec.md §4.3.
package honeypot

import (
	"context"
	"time"

	"github.com/rawblock/snipe-engine/pkg/models"
)

// ProviderResult is what a single provider's check() call returns.
type ProviderResult struct {
	Score      int
	Confidence int
	Flags      []models.Flag
	RawData    map[string]any
	LatencyMs  int64
}

// Provider is the narrow capability every honeypot data source implements.
// The Evaluator wraps each Check call in a per-provider circuit breaker and a
// per-call deadline.
type Provider interface {
	Name() string
	Check(ctx context.Context, tokenMint string) (ProviderResult, error)
}

// Mode selects how the fallback chain combines provider results.
type Mode string

const (
	ModeStopOnFirstSuccess Mode = "stop_on_first_success"
	ModeAggregate          Mode = "aggregate"
)

// timed wraps a provider call with a per-call deadline so a slow provider
// never blocks the chain past its own budget (spec.md §5 "Timeouts").
func timed(ctx context.Context, timeout time.Duration, p Provider, tokenMint string) (ProviderResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	res, err := p.Check(ctx, tokenMint)
	if err == nil && res.LatencyMs == 0 {
		res.LatencyMs = time.Since(start).Milliseconds()
	}
	return res, err
}
