// Package poolmeta caches PoolCreated events off the ingest pipeline and
// answers the derived-pool-fact lookups the Order Engine's filter data and
// the Rug Monitor's liquidity reader both need, per spec.md §4.2/§4.4/§4.9.
package poolmeta

import (
	"context"
	"sync"
	"time"

	"github.com/rawblock/snipe-engine/pkg/models"
)

// entry is one cached pool record, keyed by BaseMint.
type entry struct {
	pool   models.PoolCreated
	seenAt time.Time
}

// Cache is an in-process PoolCreated index. It implements both
// internal/order's PoolMetadata and internal/rug's PoolMetadata ports: a
// pool's own PoolAddress is treated as its LP mint, since every supported
// DEX's pool account is itself the liquidity vault's parent mint authority
// for accounting purposes here.
type Cache struct {
	mu   sync.RWMutex
	byBaseMint map[string]entry
}

func NewCache() *Cache {
	return &Cache{byBaseMint: make(map[string]entry)}
}

// Observe records a freshly ingested PoolCreated event, overwriting any
// earlier record for the same base mint (a token can only be created once,
// but tests and replays may re-observe it).
func (c *Cache) Observe(pool models.PoolCreated, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byBaseMint[pool.BaseMint] = entry{pool: pool, seenAt: now}
}

// LpMint implements rug.PoolMetadata.
func (c *Cache) LpMint(ctx context.Context, tokenMint string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byBaseMint[tokenMint]
	if !ok {
		return "", nil
	}
	return e.pool.PoolAddress, nil
}

// Lookup implements order.PoolMetadata. PoolSupplyPct and social/metadata
// presence are not carried by PoolCreated itself; they default to the
// conservative "unknown" values (0%, false, false) until a richer metadata
// provider is wired in, which callers' filters should treat as failing any
// require_metadata/require_socials filter until enriched out-of-band.
func (c *Cache) Lookup(ctx context.Context, tokenMint string) (lpMint string, poolSupplyPct float64, hasMetadata, hasSocials bool, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byBaseMint[tokenMint]
	if !ok {
		return "", 0, false, false, nil
	}
	return e.pool.PoolAddress, 0, false, false, nil
}
