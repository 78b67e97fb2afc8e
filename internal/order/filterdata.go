package order

import (
	"context"
	"fmt"

	"github.com/rawblock/snipe-engine/internal/filter"
	"github.com/rawblock/snipe-engine/internal/honeypot"
	"github.com/rawblock/snipe-engine/internal/rpc"
	"github.com/rawblock/snipe-engine/pkg/models"
)

// PresetResolver maps a user to the SniperFilters it should trade under,
// e.g. a named preset or a saved custom override.
type PresetResolver interface {
	ResolveFilters(ctx context.Context, userID string) (models.SniperFilters, string, error)
}

// PoolMetadata supplies the derived pool facts (lp mint, pool-supply %,
// metadata/social presence) that neither the honeypot evaluator nor the
// lock registry know about.
type PoolMetadata interface {
	Lookup(ctx context.Context, tokenMint string) (lpMint string, poolSupplyPct float64, hasMetadata, hasSocials bool, err error)
}

// ChainFilterData assembles filter.AuxData from the RPC Fabric, mint
// decoding, and sell simulation, mirroring the OnChainProvider's reads.
type ChainFilterData struct {
	RPC      *rpc.Client
	Decoder  honeypot.MintDecoder
	Sim      honeypot.SellSimulator
	Pools    PoolMetadata
	Presets  PresetResolver
	TopN     int
}

func NewChainFilterData(client *rpc.Client, decoder honeypot.MintDecoder, sim honeypot.SellSimulator, pools PoolMetadata, presets PresetResolver) *ChainFilterData {
	return &ChainFilterData{RPC: client, Decoder: decoder, Sim: sim, Pools: pools, Presets: presets, TopN: 10}
}

func (c *ChainFilterData) Load(ctx context.Context, userID, tokenMint string) (filter.AuxData, string, models.SniperFilters, error) {
	filters, _, err := c.Presets.ResolveFilters(ctx, userID)
	if err != nil {
		return filter.AuxData{}, "", models.SniperFilters{}, fmt.Errorf("filter data: resolve filters: %w", err)
	}

	lpMint, poolSupplyPct, hasMetadata, hasSocials, err := c.Pools.Lookup(ctx, tokenMint)
	if err != nil {
		return filter.AuxData{}, "", models.SniperFilters{}, fmt.Errorf("filter data: pool metadata: %w", err)
	}

	info, err := c.RPC.ReadAccount(ctx, tokenMint)
	if err != nil {
		return filter.AuxData{}, "", models.SniperFilters{}, fmt.Errorf("filter data: read mint: %w", err)
	}
	auth, err := c.Decoder.DecodeMint(info.Data)
	if err != nil {
		return filter.AuxData{}, "", models.SniperFilters{}, fmt.Errorf("filter data: decode mint: %w", err)
	}

	holders, err := c.RPC.ReadLargestHolders(ctx, tokenMint, c.TopN)
	if err != nil {
		return filter.AuxData{}, "", models.SniperFilters{}, fmt.Errorf("filter data: read holders: %w", err)
	}
	supply, err := c.RPC.ReadSupply(ctx, tokenMint)
	if err != nil {
		return filter.AuxData{}, "", models.SniperFilters{}, fmt.Errorf("filter data: read supply: %w", err)
	}

	sim, err := c.Sim.SimulateRoundTrip(ctx, tokenMint)
	if err != nil {
		sim = models.SellSimulationOutcome{Simulated: false}
	}

	top10Pct, singleHolderPct := holderConcentration(holders, supply.TotalSupply, c.TopN)

	var liquidityBaseUnits uint64
	for _, h := range holders {
		if h.Address == lpMint {
			liquidityBaseUnits = h.Amount
		}
	}

	aux := filter.AuxData{
		MintAuthorityPresent:   auth.MintAuthorityPresent,
		FreezeAuthorityPresent: auth.FreezeAuthorityPresent,
		LiquidityBaseUnits:     liquidityBaseUnits,
		Top10HolderPct:         top10Pct,
		SingleHolderPct:        singleHolderPct,
		BuyTaxPct:              sim.BuyTaxPct,
		SellTaxPct:             sim.SellTaxPct,
		PoolSupplyPct:          poolSupplyPct,
		HasMetadata:            hasMetadata,
		HasSocials:             hasSocials,
		SellSimulation:         sim,
	}
	return aux, lpMint, filters, nil
}

func holderConcentration(holders []rpc.HolderBalance, totalSupply uint64, topN int) (top10Pct, singleHolderPct float64) {
	if totalSupply == 0 {
		return 0, 0
	}
	var sum uint64
	for i, h := range holders {
		if i >= topN {
			break
		}
		sum += h.Amount
		if i == 0 {
			singleHolderPct = 100 * float64(h.Amount) / float64(totalSupply)
		}
	}
	top10Pct = 100 * float64(sum) / float64(totalSupply)
	return top10Pct, singleHolderPct
}
