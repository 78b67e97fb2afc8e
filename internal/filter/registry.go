package filter

import (
	"context"

	"github.com/rawblock/snipe-engine/pkg/models"
)

// LockRegistry resolves what fraction of an LP mint's supply sits behind a
// known lock program or a registered burn address. Absence of an lp_mint
// defaults to "locked" for backward compatibility, per spec.md §4.4.
type LockRegistry interface {
	LookupLock(ctx context.Context, lpMint string) (lockPct float64, status models.LockStatus, err error)
}
