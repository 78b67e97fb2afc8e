package privacy

import (
	"context"

	"github.com/rawblock/snipe-engine/pkg/models"
)

// FeeOptimizer is the subset of the Fee Optimizer the Privacy Layer needs
// for the ADAPTIVE fee-mode strategy.
type FeeOptimizer interface {
	Optimize(ctx context.Context, accountFilter []string, mode models.PriorityFeeMode, maxCap *uint64, hypeBoostPct *float64) (models.FeeOptimizeResult, error)
}

// bucketPrice maps a compute-unit price back onto the mode whose baseline it
// falls under, using the same floors the Fee Optimizer applies per mode.
func bucketPrice(price uint64) models.PriorityFeeMode {
	switch {
	case price >= 1_000_000:
		return models.FeeModeUltra
	case price >= 500_000:
		return models.FeeModeTurbo
	case price >= 200_000:
		return models.FeeModeHigh
	case price >= 50_000:
		return models.FeeModeMedium
	case price >= 10_000:
		return models.FeeModeLow
	default:
		return models.FeeModeNone
	}
}
