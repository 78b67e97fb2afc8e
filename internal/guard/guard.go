// Package guard implements the cross-order throttling spec.md's data model
// leaves unaddressed: a hard cap on concurrent snipes per user and a
// post-exit cooldown per mint, grounded on the GlobalExposureGuard pattern
// (concurrent-trade cap + per-symbol BlockedUntil cooldown map).
package guard

import (
	"sync"
	"time"
)

// Guard throttles snipes across orders: no user may have more than
// MaxConcurrent snipes in flight, and a mint that just exited stays blocked
// for Cooldown so a flapping signal can't immediately re-enter the same token.
type Guard struct {
	mu            sync.Mutex
	MaxConcurrent int
	Cooldown      time.Duration

	activeByUser map[string]int
	blockedUntil map[string]time.Time
}

func New(maxConcurrent int, cooldown time.Duration) *Guard {
	return &Guard{
		MaxConcurrent: maxConcurrent,
		Cooldown:      cooldown,
		activeByUser:  make(map[string]int),
		blockedUntil:  make(map[string]time.Time),
	}
}

// CanEnter reports whether userID may open a new snipe on tokenMint right
// now: the mint isn't in cooldown and the user is below MaxConcurrent.
func (g *Guard) CanEnter(userID, tokenMint string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if until, ok := g.blockedUntil[tokenMint]; ok {
		if time.Now().Before(until) {
			return false
		}
		delete(g.blockedUntil, tokenMint)
	}

	if g.MaxConcurrent > 0 && g.activeByUser[userID] >= g.MaxConcurrent {
		return false
	}
	return true
}

// RegisterTrade marks one snipe as in flight for userID.
func (g *Guard) RegisterTrade(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.activeByUser[userID]++
}

// Release frees userID's concurrency slot and, if Cooldown is set, blocks
// tokenMint from re-entry until it elapses. Safe to call from the Exit
// Executor regardless of whether RegisterTrade's slot is still held (e.g.
// an order that failed before opening a position never registered).
func (g *Guard) Release(userID, tokenMint string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.activeByUser[userID] > 0 {
		g.activeByUser[userID]--
	}
	if g.Cooldown > 0 {
		g.blockedUntil[tokenMint] = time.Now().Add(g.Cooldown)
	}
}
