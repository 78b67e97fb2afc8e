// Package fee implements the Fee Optimizer: a 10-second cached view of
// recent prioritization fees translated into a compute-unit price for a
// requested aggressiveness mode, per spec.md §4.5.
package fee

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rawblock/snipe-engine/internal/rpc"
	"github.com/rawblock/snipe-engine/pkg/models"
	"github.com/rawblock/snipe-engine/pkg/snipeerr"
)

const (
	sampleTTL        = 10 * time.Second
	minNonZeroSamples = 10
)

// Optimizer samples recent prioritization fees per account filter and
// derives a compute-unit price for a requested mode.
type Optimizer struct {
	RPC *rpc.Client

	mu      sync.Mutex
	samples map[string]models.FeeMarketSample
}

func NewOptimizer(client *rpc.Client) *Optimizer {
	return &Optimizer{RPC: client, samples: make(map[string]models.FeeMarketSample)}
}

func filterKey(accountFilter []string) string {
	key := ""
	for _, a := range accountFilter {
		key += a + ","
	}
	return key
}

// sample returns the cached FeeMarketSample for accountFilter, refreshing it
// if stale or absent.
func (o *Optimizer) sample(ctx context.Context, accountFilter []string, now time.Time) (models.FeeMarketSample, error) {
	key := filterKey(accountFilter)

	o.mu.Lock()
	if s, ok := o.samples[key]; ok && now.Sub(s.FetchedAt) < sampleTTL {
		o.mu.Unlock()
		return s, nil
	}
	o.mu.Unlock()

	raw, err := o.RPC.ReadRecentPrioritizationFees(ctx, accountFilter)
	if err != nil {
		return models.FeeMarketSample{}, fmt.Errorf("fee optimizer: sample: %w", err)
	}

	nonZero := make([]uint64, 0, len(raw))
	for _, s := range raw {
		if s.PrioritizationFee > 0 {
			nonZero = append(nonZero, s.PrioritizationFee)
		}
	}
	if len(nonZero) < minNonZeroSamples {
		return models.FeeMarketSample{}, snipeerr.New(snipeerr.KindTransient, "insufficient_samples", "fewer than 10 non-zero prioritization fee samples")
	}

	sort.Slice(nonZero, func(i, j int) bool { return nonZero[i] < nonZero[j] })

	sample := models.FeeMarketSample{
		RecentFeesSorted: nonZero,
		P50:              percentile(nonZero, 0.50),
		P75:              percentile(nonZero, 0.75),
		P90:              percentile(nonZero, 0.90),
		P95:              percentile(nonZero, 0.95),
		FetchedAt:        now,
		SampleCount:      len(nonZero),
	}
	sample.Congestion = congestion(sample.P75, sample.P90)

	o.mu.Lock()
	o.samples[key] = sample
	o.mu.Unlock()

	return sample, nil
}

func percentile(sorted []uint64, p float64) uint64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

func congestion(p75, p90 uint64) float64 {
	switch {
	case p90 >= 200_000:
		return 1.0
	case p75 >= 100_000:
		c := 0.5 + min1(float64(p75)/200_000)*0.3
		if c > 0.8 {
			c = 0.8
		}
		return c
	default:
		return min1(float64(p75)/100_000) * 0.5
	}
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

func baseFee(mode models.PriorityFeeMode, s models.FeeMarketSample) uint64 {
	switch mode {
	case models.FeeModeNone:
		return 0
	case models.FeeModeLow:
		return maxU64(s.P50, 10_000)
	case models.FeeModeMedium:
		return maxU64(s.P75, 50_000)
	case models.FeeModeHigh:
		return maxU64(s.P90, 200_000)
	case models.FeeModeTurbo:
		return maxU64(s.P95, 500_000)
	case models.FeeModeUltra:
		return maxU64(uint64(float64(s.P95)*1.5), 1_000_000)
	default:
		return 0
	}
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func congestionMultiplier(c float64) float64 {
	switch {
	case c >= 0.8:
		return 2.0
	case c >= 0.5:
		return 1.5
	default:
		return 1.0
	}
}

// Optimize computes a compute-unit price for mode, applying an optional
// hype boost and an optional hard cap, per spec.md §4.5.
func (o *Optimizer) Optimize(ctx context.Context, accountFilter []string, mode models.PriorityFeeMode, maxCap *uint64, hypeBoostPct *float64) (models.FeeOptimizeResult, error) {
	s, err := o.sample(ctx, accountFilter, time.Now())
	if err != nil {
		return models.FeeOptimizeResult{}, err
	}

	base := baseFee(mode, s)
	mult := congestionMultiplier(s.Congestion)
	fee := uint64(float64(base) * mult)

	var wasBoosted bool
	if hypeBoostPct != nil && *hypeBoostPct > 0 {
		fee = uint64(float64(fee) * (1 + *hypeBoostPct/100))
		wasBoosted = true
	}

	var wasCapped bool
	if maxCap != nil && fee > *maxCap {
		fee = *maxCap
		wasCapped = true
	}

	return models.FeeOptimizeResult{
		ComputeUnitPrice:  fee,
		ComputeUnitLimit:  models.ComputeUnitLimitFixed,
		TotalFeeBaseUnits: fee * models.ComputeUnitLimitFixed / 1_000_000,
		WasBoosted:        wasBoosted,
		WasCapped:         wasCapped,
	}, nil
}
