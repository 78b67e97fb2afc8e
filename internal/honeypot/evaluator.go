package honeypot

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rawblock/snipe-engine/internal/cache"
	"github.com/rawblock/snipe-engine/internal/rpc"
	"github.com/rawblock/snipe-engine/pkg/models"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Config carries the evaluator's tunables.
type Config struct {
	Mode              Mode
	MaxProviders      int
	HighThreshold     int
	Timeout           time.Duration
	CacheTTL          time.Duration
	RequestsPerSecond float64
	Burst             int
}

func DefaultConfig() Config {
	return Config{
		Mode:              ModeStopOnFirstSuccess,
		MaxProviders:      3,
		HighThreshold:     70,
		Timeout:           3 * time.Second,
		CacheTTL:          cache.TTLHoneypot,
		RequestsPerSecond: 5,
		Burst:             5,
	}
}

// Evaluator runs the ordered provider fallback chain and caches results
// per (token_mint, provider_chain), per spec.md §4.3 and I5 (no two chain
// runs execute concurrently for the same token_mint within the window —
// enforced by the cache fast-path plus an in-flight dedup map).
type Evaluator struct {
	Providers []Provider
	Breakers  *rpc.Registry
	Cache     cache.Store
	Config    Config

	inflight singleflight.Group

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
}

func NewEvaluator(providers []Provider, breakers *rpc.Registry, store cache.Store, cfg Config) *Evaluator {
	return &Evaluator{Providers: providers, Breakers: breakers, Cache: store, Config: cfg, limiters: make(map[string]*rate.Limiter)}
}

// limiterFor returns the per-provider token bucket, lazily created so a
// dynamically added provider never needs registering separately.
func (e *Evaluator) limiterFor(name string) *rate.Limiter {
	e.limiterMu.Lock()
	defer e.limiterMu.Unlock()
	l, ok := e.limiters[name]
	if !ok {
		l = rate.NewLimiter(rate.Limit(e.Config.RequestsPerSecond), e.Config.Burst)
		e.limiters[name] = l
	}
	return l
}

// chainCacheKey folds the ordered provider names into the cache key so
// distinct provider chains for the same mint never collide.
func (e *Evaluator) chainCacheKey(tokenMint string) string {
	key := cache.HoneypotKey(tokenMint)
	for _, p := range e.Providers {
		key += "|" + p.Name()
	}
	return key
}

// Evaluate returns the cached result if fresh, otherwise runs the fallback
// chain and caches the outcome.
func (e *Evaluator) Evaluate(ctx context.Context, tokenMint string) (models.HoneypotResult, error) {
	key := e.chainCacheKey(tokenMint)

	if raw, ok, err := e.Cache.Get(ctx, key); err == nil && ok {
		var cached models.HoneypotResult
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}

	v, err, _ := e.inflight.Do(key, func() (interface{}, error) {
		return e.runChain(ctx, tokenMint)
	})
	if err != nil {
		return models.HoneypotResult{}, err
	}
	result := v.(models.HoneypotResult)

	if raw, err := json.Marshal(result); err == nil {
		_ = e.Cache.Set(ctx, key, raw, e.Config.CacheTTL)
	}
	return result, nil
}

func (e *Evaluator) runChain(ctx context.Context, tokenMint string) (models.HoneypotResult, error) {
	layers := make(map[string]models.ProviderLayer)
	maxScore := 0
	flagSet := make(map[models.Flag]bool)
	confidenceSum, confidenceCount := 0, 0

	providersRun := 0
	for _, p := range e.Providers {
		if e.Config.Mode == ModeAggregate && providersRun >= e.Config.MaxProviders {
			break
		}

		b := e.Breakers.Get("honeypot." + p.Name())
		if !b.Allow(time.Now()) {
			continue
		}

		if err := e.limiterFor(p.Name()).Wait(ctx); err != nil {
			continue
		}

		res, err := timed(ctx, e.Config.Timeout, p, tokenMint)
		if err != nil {
			b.RecordFailure(time.Now())
			continue
		}
		b.RecordSuccess(time.Now())
		providersRun++

		layers[p.Name()] = models.ProviderLayer{
			Score:      res.Score,
			Flags:      res.Flags,
			LatencyMs:  res.LatencyMs,
			RawData:    res.RawData,
			Confidence: res.Confidence,
		}

		if res.Score > maxScore {
			maxScore = res.Score
		}
		for _, f := range res.Flags {
			flagSet[f] = true
		}
		confidenceSum += res.Confidence
		confidenceCount++

		if e.Config.Mode == ModeStopOnFirstSuccess {
			break
		}
	}

	flags := make([]models.Flag, 0, len(flagSet))
	for f := range flagSet {
		flags = append(flags, f)
	}

	confidence := 0
	if confidenceCount > 0 {
		confidence = confidenceSum / confidenceCount
	}

	return models.HoneypotResult{
		TokenMint:  tokenMint,
		RiskScore:  maxScore,
		Confidence: confidence,
		Flags:      flags,
		Layers:     layers,
		CheckedAt:  time.Now(),
	}, nil
}
