package honeypot

import (
	"context"

	"github.com/rawblock/snipe-engine/internal/rpc"
	"github.com/rawblock/snipe-engine/pkg/models"
)

// MintAuthorities is the subset of a mint account's decoded state the
// on-chain provider scores against. Decoding the raw account layout is an
// injected concern (MintDecoder) so this package never depends on a
// chain-specific SDK, mirroring ingest's LbPairDecoder.
type MintAuthorities struct {
	MintAuthorityPresent   bool
	FreezeAuthorityPresent bool
	OwnershipReclaimable   bool
	MetadataExists         bool
}

// MintDecoder decodes a raw mint account into its authority state.
type MintDecoder interface {
	DecodeMint(data []byte) (MintAuthorities, error)
}

// SellSimulator simulates a buy/sell round-trip to measure tax and
// sellability, the external aggregator-simulation collaborator.
type SellSimulator interface {
	SimulateRoundTrip(ctx context.Context, tokenMint string) (models.SellSimulationOutcome, error)
}

// OnChainProvider reads mint authority, freeze authority, supply/decimals,
// metadata existence, and simulates a buy/sell, per spec.md §4.3.
type OnChainProvider struct {
	RPC       *rpc.Client
	Decoder   MintDecoder
	Simulator SellSimulator
	TopN      int
}

func NewOnChainProvider(client *rpc.Client, decoder MintDecoder, sim SellSimulator) *OnChainProvider {
	return &OnChainProvider{RPC: client, Decoder: decoder, Simulator: sim, TopN: 10}
}

func (p *OnChainProvider) Name() string { return "onchain" }

// scoringRules are the additive contributions from spec.md §4.3, capped at
// 100 within this provider.
const (
	scoreMintAuthority       = 30
	scoreFreezeAuthority     = 30
	scoreOwnershipReclaimable = 40
	scoreHighSellTax         = 50
	scoreTop10Concentration  = 20
	scoreSingleHolderDominant = 25
	scoreExplicitHoneypot    = 100
)

func (p *OnChainProvider) Check(ctx context.Context, tokenMint string) (ProviderResult, error) {
	info, err := p.RPC.ReadAccount(ctx, tokenMint)
	if err != nil {
		return ProviderResult{}, err
	}

	auth, err := p.Decoder.DecodeMint(info.Data)
	if err != nil {
		return ProviderResult{}, err
	}

	holders, err := p.RPC.ReadLargestHolders(ctx, tokenMint, p.TopN)
	if err != nil {
		return ProviderResult{}, err
	}
	supply, err := p.RPC.ReadSupply(ctx, tokenMint)
	if err != nil {
		return ProviderResult{}, err
	}

	sim, err := p.Simulator.SimulateRoundTrip(ctx, tokenMint)
	if err != nil {
		// Simulation failure degrades to "unknown sellability" rather than
		// failing the whole provider; other signals still contribute.
		sim = models.SellSimulationOutcome{Simulated: false}
	}

	score := 0
	var flags []models.Flag

	if auth.MintAuthorityPresent {
		score += scoreMintAuthority
		flags = append(flags, models.FlagMintAuthorityPresent)
	}
	if auth.FreezeAuthorityPresent {
		score += scoreFreezeAuthority
		flags = append(flags, models.FlagFreezeAuthorityPresent)
	}
	if auth.OwnershipReclaimable {
		score += scoreOwnershipReclaimable
		flags = append(flags, models.FlagOwnershipReclaimable)
	}
	if sim.Simulated && sim.SellTaxPct > 50 {
		score += scoreHighSellTax
		flags = append(flags, models.FlagHighSellTax)
	}
	if sim.Simulated && !sim.CanSell {
		score = scoreExplicitHoneypot
		flags = append(flags, models.FlagExplicitHoneypot)
	}

	top10Pct, singleHolderPct := holderConcentration(holders, supply.TotalSupply)
	if top10Pct > 80 {
		score += scoreTop10Concentration
		flags = append(flags, models.FlagTop10HoldersConcentrated)
	}
	if singleHolderPct > 50 {
		score += scoreSingleHolderDominant
		flags = append(flags, models.FlagSingleHolderDominant)
	}

	if score > 100 {
		score = 100
	}

	confidence := 60
	if sim.Simulated {
		confidence = 85
	}

	return ProviderResult{
		Score:      score,
		Confidence: confidence,
		Flags:      flags,
		RawData: map[string]any{
			"mint_authority_present":   auth.MintAuthorityPresent,
			"freeze_authority_present": auth.FreezeAuthorityPresent,
			"metadata_exists":          auth.MetadataExists,
			"top10_holder_pct":         top10Pct,
			"single_holder_pct":        singleHolderPct,
			"sell_simulation":          sim,
		},
	}, nil
}

func holderConcentration(holders []rpc.HolderBalance, totalSupply uint64) (top10Pct, singleHolderPct float64) {
	if totalSupply == 0 {
		return 0, 0
	}
	var sum uint64
	for i, h := range holders {
		if i >= 10 {
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
