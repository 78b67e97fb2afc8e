// Package privacy computes a per-trade operational plan (delay, fee
// pattern, wallet choice, MEV tip, obfuscation) from a user's PrivacySettings,
// per spec.md §4.6.
package privacy

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"math"
	mrand "math/rand"
	"time"

	"github.com/rawblock/snipe-engine/pkg/models"
)

// Planner computes PrivacyPlans and tracks per-user rotation counters.
type Planner struct {
	Wallets WalletPool
	Fees    FeeOptimizer
	rng     *mrand.Rand
}

func NewPlanner(wallets WalletPool, fees FeeOptimizer) *Planner {
	return &Planner{Wallets: wallets, Fees: fees, rng: mrand.New(mrand.NewSource(time.Now().UnixNano()))}
}

// Plan computes the operational plan for one trade and mutates state to
// reflect the trade having happened.
func (p *Planner) Plan(ctx context.Context, settings models.PrivacySettings, state *models.UserPrivacyState) (models.PrivacyPlan, error) {
	plan := models.PrivacyPlan{ComputedAt: time.Now()}

	plan.DelayMs = p.computeDelay(settings.Delay)

	feeMode, err := p.computeFeeMode(ctx, settings.Fee, state)
	if err != nil {
		return models.PrivacyPlan{}, err
	}
	plan.FeeMode = feeMode

	walletID, isFresh := p.computeWallet(settings.Wallet, state)
	plan.WalletID = walletID
	plan.WalletIsFresh = isFresh

	if settings.MEV.ForceMEV {
		plan.MEVTip = p.computeMEVTip(settings.MEV)
	}

	if settings.Obfuscation.RandomMemo {
		plan.MemoHex = p.randomMemo(settings.Obfuscation.MaxMemoLen)
	}
	plan.SplitAmount = settings.Obfuscation.SplitAmount
	plan.DummyInstruction = settings.Obfuscation.DummyInstruction

	plan.PrivacyScore = privacyScore(plan, settings)

	state.TradeCount++
	state.TradesSinceLastRotation++
	if isFresh {
		state.TradesSinceLastRotation = 0
	}

	return plan, nil
}

func (p *Planner) computeDelay(d models.DelaySettings) int64 {
	if !d.Enabled {
		return 0
	}
	maxJitter := float64(d.BaseMs) * d.JitterPct
	jitter := (p.rng.Float64()*2 - 1) * maxJitter
	delay := float64(d.BaseMs) + jitter
	return clampI64(int64(math.Round(delay)), d.MinMs, d.MaxMs)
}

func clampI64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (p *Planner) computeFeeMode(ctx context.Context, fs models.FeeSettings, state *models.UserPrivacyState) (models.PriorityFeeMode, error) {
	if len(fs.AllowedModes) == 0 {
		return models.FeeModeMedium, nil
	}

	switch fs.Strategy {
	case models.FeeStrategyFixed:
		return fs.AllowedModes[0], nil
	case models.FeeStrategyRandom:
		return fs.AllowedModes[p.rng.Intn(len(fs.AllowedModes))], nil
	case models.FeeStrategyGradualIncrease:
		idx := state.TradeCount % len(fs.AllowedModes)
		return fs.AllowedModes[idx], nil
	case models.FeeStrategySpikePattern:
		sorted := sortedModes(fs.AllowedModes)
		if p.rng.Float64() < 0.2 {
			return sorted[len(sorted)-1], nil
		}
		return sorted[0], nil
	case models.FeeStrategyAdaptive:
		res, err := p.Fees.Optimize(ctx, nil, models.FeeModeMedium, nil, nil)
		if err != nil {
			return "", err
		}
		return bucketPrice(res.ComputeUnitPrice), nil
	default:
		return fs.AllowedModes[0], nil
	}
}

func sortedModes(modes []models.PriorityFeeMode) []models.PriorityFeeMode {
	out := make([]models.PriorityFeeMode, len(modes))
	copy(out, modes)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Rank() > out[j].Rank(); j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func (p *Planner) computeWallet(ws models.WalletSettings, state *models.UserPrivacyState) (string, bool) {
	wallets := p.Wallets.ListWallets()
	if len(wallets) == 0 {
		return "", false
	}

	switch ws.Strategy {
	case models.WalletPrimaryOnly:
		for _, w := range wallets {
			if w.IsPrimary {
				return w.ID, false
			}
		}
		return wallets[0].ID, false
	case models.WalletFreshOnly:
		for _, w := range wallets {
			if w.IsFresh {
				return w.ID, true
			}
		}
		return wallets[0].ID, false
	case models.WalletFreshThreshold:
		if state.TradesSinceLastRotation >= ws.FreshThreshold {
			for _, w := range wallets {
				if w.IsFresh {
					return w.ID, true
				}
			}
		}
		idx := state.LastWalletIndex % len(wallets)
		return wallets[idx].ID, false
	case models.WalletRandom:
		idx := p.rng.Intn(len(wallets))
		return wallets[idx].ID, wallets[idx].IsFresh
	case models.WalletRoundRobin:
		idx := state.LastWalletIndex % len(wallets)
		state.LastWalletIndex++
		return wallets[idx].ID, wallets[idx].IsFresh
	default:
		return wallets[0].ID, wallets[0].IsFresh
	}
}

func (p *Planner) computeMEVTip(m models.MEVSettings) uint64 {
	if !m.Randomize || m.MaxTip <= m.MinTip {
		return m.MinTip
	}
	span := m.MaxTip - m.MinTip
	return m.MinTip + uint64(p.rng.Int63n(int64(span)+1))
}

func (p *Planner) randomMemo(maxLen int) string {
	if maxLen <= 0 {
		maxLen = 1
	}
	n := p.rng.Intn(maxLen) + 1
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

// privacyScore sums informational contributions from each plan dimension,
// capped at 100, per spec.md §4.6.
func privacyScore(plan models.PrivacyPlan, settings models.PrivacySettings) int {
	score := 0

	if plan.DelayMs > 0 {
		score += 15
		if settings.Delay.JitterPct > 0 {
			score += 10
		}
	}

	switch settings.Fee.Strategy {
	case models.FeeStrategyFixed:
		score += 0
	case models.FeeStrategyRandom:
		score += 10
	case models.FeeStrategyGradualIncrease:
		score += 8
	case models.FeeStrategySpikePattern:
		score += 12
	case models.FeeStrategyAdaptive:
		score += 15
	}

	switch settings.Wallet.Strategy {
	case models.WalletPrimaryOnly:
		score += 0
	case models.WalletRoundRobin:
		score += 10
	case models.WalletRandom:
		score += 15
	case models.WalletFreshOnly, models.WalletFreshThreshold:
		score += 20
	}

	if settings.MEV.ForceMEV {
		score += 10
		if settings.MEV.Randomize {
			score += 5
		}
	}

	patterns := 0
	if settings.Obfuscation.RandomMemo {
		patterns++
	}
	if settings.Obfuscation.SplitAmount {
		patterns++
	}
	if settings.Obfuscation.DummyInstruction {
		patterns++
	}
	score += patterns * 5

	if score > 100 {
		score = 100
	}
	return score
}
