package ingest

import (
	"context"
	"time"

	"github.com/rawblock/snipe-engine/internal/rpc"
	"github.com/rawblock/snipe-engine/pkg/models"
)

// LbPairDecoder decodes a fetched lb_pair account into its raw activation
// fields. Production decoding uses the Meteora SDK's account layout; this
// interface keeps that dependency out of the core per spec.md §1.
type LbPairDecoder interface {
	DecodeLbPair(data []byte) (activationType models.ActivationType, activationPoint int64, preActivationDuration time.Duration, preActivationSwapAddr string, err error)
}

// DeriveAntiSniperConfig implements the Meteora addendum of spec.md §4.2:
// fetch the lb_pair account, decode its activation configuration, and
// derive the fee_scheduler / rate_limiter / alpha_vault suite. On SDK or
// decoding failure, conservative defaults are returned rather than an
// error, since a degraded anti-sniper read must never block ingest.
func DeriveAntiSniperConfig(ctx context.Context, client *rpc.Client, decoder LbPairDecoder, lbPairAddress string, now time.Time) *models.AntiSniperConfig {
	info, err := client.ReadAccount(ctx, lbPairAddress)
	if err != nil {
		return models.ConservativeAntiSniperDefaults()
	}

	activationType, activationPoint, preDur, preSwapAddr, err := decoder.DecodeLbPair(info.Data)
	if err != nil {
		return models.ConservativeAntiSniperDefaults()
	}

	launchTime := now
	if activationType == models.ActivationTimestamp {
		launchTime = time.Unix(activationPoint, 0)
	}

	cfg := &models.AntiSniperConfig{
		ActivationType:        activationType,
		ActivationPoint:       activationPoint,
		PreActivationDuration: preDur,
		PreActivationSwapAddr: preSwapAddr,
		FeeScheduler: &models.FeeScheduler{
			CliffFeeBps:     9900,
			NumPeriods:      10,
			PeriodDuration:  30 * time.Second,
			ReductionFactor: 1000,
			LaunchTime:      launchTime,
		},
		RateLimiter: &models.RateLimiter{BaseFeeBpsPerSOL: 100},
	}

	alphaVaultEnabled := preSwapAddr != "" && preSwapAddr != zeroAddress
	if alphaVaultEnabled {
		activation := launchTime
		windowStart := activation.Add(-preDur)
		alphaVaultEnabled = now.After(windowStart) && now.Before(activation)
	}
	cfg.AlphaVault = &models.AlphaVault{Enabled: alphaVaultEnabled}

	return cfg
}

const zeroAddress = "11111111111111111111111111111111"
