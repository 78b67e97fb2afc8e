// Package rpc provides uniform access to chain reads and writes, guarded by
// per-endpoint circuit breakers and bounded retries with jitter, per
// spec.md §4.1.
package rpc

import (
	"sync"
	"time"
)

// BreakerState is one of the three states in the CLOSED/OPEN/HALF_OPEN
// machine described in spec.md §4.1.
type BreakerState string

const (
	StateClosed   BreakerState = "CLOSED"
	StateOpen     BreakerState = "OPEN"
	StateHalfOpen BreakerState = "HALF_OPEN"
)

// BreakerConfig carries the four tunables from spec.md §8.
type BreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
	MonitoringPeriod time.Duration
}

// DefaultBreakerConfig matches the defaults named in spec.md §4.1/§8.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          60 * time.Second,
		MonitoringPeriod: 120 * time.Second,
	}
}

// Breaker is a single named circuit breaker guarding one RPC Fabric
// operation (e.g. "read.account", "submit").
type Breaker struct {
	mu     sync.Mutex
	cfg    BreakerConfig
	state  BreakerState
	fails  []time.Time
	succ   int
	openedAt time.Time
}

func NewBreaker(cfg BreakerConfig) *Breaker {
	return &Breaker{cfg: cfg, state: StateClosed}
}

// Allow reports whether a call may proceed, transitioning OPEN -> HALF_OPEN
// once the timeout has elapsed.
func (b *Breaker) Allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if now.Sub(b.openedAt) >= b.cfg.Timeout {
			b.state = StateHalfOpen
			b.succ = 0
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess advances HALF_OPEN -> CLOSED after success_threshold
// consecutive successes; has no effect on CLOSED failure counters.
func (b *Breaker) RecordSuccess(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.succ++
		if b.succ >= b.cfg.SuccessThreshold {
			b.state = StateClosed
			b.fails = nil
			b.succ = 0
		}
	case StateClosed:
		// A success in CLOSED state doesn't need to clear fails immediately;
		// the monitoring window below ages them out naturally.
	}
}

// RecordFailure increments the failure counter (pruned to the monitoring
// window) and trips the breaker to OPEN once the threshold is reached. Any
// failure while HALF_OPEN immediately returns to OPEN.
func (b *Breaker) RecordFailure(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.state = StateOpen
		b.openedAt = now
		return
	}

	b.fails = append(b.fails, now)
	cutoff := now.Add(-b.cfg.MonitoringPeriod)
	pruned := b.fails[:0]
	for _, t := range b.fails {
		if t.After(cutoff) {
			pruned = append(pruned, t)
		}
	}
	b.fails = pruned

	if len(b.fails) >= b.cfg.FailureThreshold {
		b.state = StateOpen
		b.openedAt = now
	}
}

func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Registry is a process-wide, per-operation-name breaker registry,
// initialized once at startup per spec.md §9 "Global state".
type Registry struct {
	mu       sync.Mutex
	cfg      BreakerConfig
	breakers map[string]*Breaker
}

func NewRegistry(cfg BreakerConfig) *Registry {
	return &Registry{cfg: cfg, breakers: make(map[string]*Breaker)}
}

func (r *Registry) Get(operation string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[operation]
	if !ok {
		b = NewBreaker(r.cfg)
		r.breakers[operation] = b
	}
	return b
}
