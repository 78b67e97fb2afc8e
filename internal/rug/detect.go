package rug

import (
	"time"

	"github.com/rawblock/snipe-engine/pkg/models"
)

// pctChange returns 100*(latest-baseline)/baseline, or 0 if baseline is zero
// (nothing to compare a fresh-from-zero baseline against).
func pctChange(baseline, latest float64) float64 {
	if baseline == 0 {
		return 0
	}
	return 100 * (latest - baseline) / baseline
}

// detect compares baseline against latest and returns every RugDetection the
// snapshot pair triggers, per spec.md §4.9's four rug types.
func detect(cfg Config, baseline, latest models.Snapshot, now time.Time) []models.RugDetection {
	var out []models.RugDetection

	liqDelta := pctChange(float64(baseline.Liquidity.LiquidityBaseUnits), float64(latest.Liquidity.LiquidityBaseUnits))
	if baseline.Liquidity.LiquidityBaseUnits > 0 && liqDelta <= cfg.LiqDropPct {
		out = append(out, models.RugDetection{
			RugType:        models.RugLiquidityRemoval,
			Severity:       liquiditySeverity(liqDelta),
			Confidence:     clamp100(50 + absF(liqDelta)),
			Evidence:       map[string]any{"delta_pct": liqDelta, "baseline": baseline.Liquidity.LiquidityBaseUnits, "latest": latest.Liquidity.LiquidityBaseUnits},
			Recommendation: "",
			DetectedAt:     now,
		})
	}

	if (baseline.Authority.MintAuthorityNull && !latest.Authority.MintAuthorityNull) ||
		(baseline.Authority.FreezeAuthorityNull && !latest.Authority.FreezeAuthorityNull) {
		out = append(out, models.RugDetection{
			RugType:        models.RugAuthorityReenabled,
			Severity:       models.SeverityCriticalRug,
			Confidence:     95,
			Evidence:       map[string]any{"baseline": baseline.Authority, "latest": latest.Authority},
			Recommendation: "",
			DetectedAt:     now,
		})
	}

	supplyDelta := pctChange(float64(baseline.Supply.TotalSupply), float64(latest.Supply.TotalSupply))
	if baseline.Supply.TotalSupply > 0 && supplyDelta >= cfg.SupplyUpPct {
		out = append(out, models.RugDetection{
			RugType:        models.RugSupplyManipulation,
			Severity:       supplySeverity(supplyDelta),
			Confidence:     clamp100(60 + 2*supplyDelta),
			Evidence:       map[string]any{"delta_pct": supplyDelta, "baseline": baseline.Supply.TotalSupply, "latest": latest.Supply.TotalSupply},
			Recommendation: "",
			DetectedAt:     now,
		})
	}

	if dumpPct, affectedPct, dumped := holderDump(cfg, baseline.TopHolders, latest.TopHolders); dumped {
		out = append(out, models.RugDetection{
			RugType:        models.RugHolderDump,
			Severity:       holderSeverity(dumpPct),
			Confidence:     clamp100(50 + 3*affectedPct),
			Evidence:       map[string]any{"worst_drop_pct": dumpPct, "affected_market_pct": affectedPct},
			Recommendation: "",
			DetectedAt:     now,
		})
	}

	if len(out) > 1 {
		for i := range out {
			out[i].Severity = models.SeverityCriticalRug
			out[i].Confidence = 98
			out[i].RugType = models.RugMultiple
		}
	}

	for i := range out {
		out[i].Recommendation = recommend(out[i].Severity, out[i].Confidence)
	}
	return out
}

// holderDump reports the worst single holder-balance drop and the share of
// baseline top-holder supply that drop represents, per spec.md §4.9 ("any
// baseline top holder's balance dropped by >= 30%, absolute or missing
// entirely = 100% drop").
func holderDump(cfg Config, baseline, latest []models.HolderBalance) (worstDropPct, affectedMarketPct float64, dumped bool) {
	latestByAddr := make(map[string]uint64, len(latest))
	for _, h := range latest {
		latestByAddr[h.Address] = h.Balance
	}

	var baseTotal, affected uint64
	for _, b := range baseline {
		if b.Balance == 0 {
			continue
		}
		baseTotal += b.Balance

		cur, ok := latestByAddr[b.Address]
		var dropPct float64
		if !ok {
			dropPct = 100
		} else {
			dropPct = pctChange(float64(b.Balance), float64(cur)) * -1
		}
		if dropPct > worstDropPct {
			worstDropPct = dropPct
		}
		if dropPct >= -cfg.HolderDumpPct {
			affected += b.Balance
			dumped = true
		}
	}
	if baseTotal > 0 {
		affectedMarketPct = 100 * float64(affected) / float64(baseTotal)
	}
	return worstDropPct, affectedMarketPct, dumped
}

func liquiditySeverity(deltaPct float64) models.RugSeverity {
	d := absF(deltaPct)
	switch {
	case d >= 90:
		return models.SeverityCriticalRug
	case d >= 70:
		return models.SeverityHighRug
	case d >= 50:
		return models.SeverityMediumRug
	default:
		return models.SeverityInfoRug
	}
}

func supplySeverity(deltaPct float64) models.RugSeverity {
	switch {
	case deltaPct >= 50:
		return models.SeverityCriticalRug
	case deltaPct >= 25:
		return models.SeverityHighRug
	case deltaPct >= 10:
		return models.SeverityMediumRug
	default:
		return models.SeverityInfoRug
	}
}

func holderSeverity(dropPct float64) models.RugSeverity {
	switch {
	case dropPct >= 90:
		return models.SeverityCriticalRug
	case dropPct >= 60:
		return models.SeverityHighRug
	case dropPct >= 30:
		return models.SeverityMediumRug
	default:
		return models.SeverityInfoRug
	}
}

// recommend applies spec.md §4.9's recommendation ladder.
func recommend(sev models.RugSeverity, confidence float64) models.Recommendation {
	switch {
	case sev == models.SeverityCriticalRug && confidence >= 90:
		return models.RecommendExitEmergency
	case sev == models.SeverityCriticalRug || (sev == models.SeverityHighRug && confidence >= 80):
		return models.RecommendExitFull
	case sev == models.SeverityHighRug || (sev == models.SeverityMediumRug && confidence >= 70):
		return models.RecommendExitPartial
	default:
		return models.RecommendHold
	}
}

func clamp100(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
