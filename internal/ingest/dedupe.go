package ingest

import (
	"sync"
	"time"

	"github.com/rawblock/snipe-engine/pkg/models"
)

// DedupWindow is 5s per spec.md §4.2/§3 (I5) and §8 P6: two PoolCreated
// events with identical (dex, pool_address) within the window collapse to
// one downstream event, regardless of which driver produced them.
const DedupWindow = 5 * time.Second

// Deduper is shared across both ingest drivers so cross-source duplicates
// collapse correctly.
type Deduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[string]time.Time)}
}

// Admit returns true the first time a (dex, pool_address) key is seen
// within the dedup window, and false for any duplicate seen before the
// window elapses. now is injected for deterministic tests.
func (d *Deduper) Admit(ev models.PoolCreated, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := ev.DedupKey()
	if last, ok := d.seen[key]; ok && now.Sub(last) < DedupWindow {
		return false
	}
	d.seen[key] = now

	// Opportunistic cleanup to bound memory growth.
	if len(d.seen) > 10_000 {
		cutoff := now.Add(-DedupWindow)
		for k, t := range d.seen {
			if t.Before(cutoff) {
				delete(d.seen, k)
			}
		}
	}
	return true
}
