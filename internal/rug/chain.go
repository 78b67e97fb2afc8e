package rug

import (
	"context"

	"github.com/rawblock/snipe-engine/internal/honeypot"
	"github.com/rawblock/snipe-engine/internal/rpc"
	"github.com/rawblock/snipe-engine/pkg/models"
)

// PoolMetadata resolves the LP mint backing a token's pool, the collaborator
// a concrete LiquidityReader needs to price a pool's reserves.
type PoolMetadata interface {
	LpMint(ctx context.Context, tokenMint string) (string, error)
}

// ChainAuthorityReader decodes a mint account's authority state directly
// off the RPC Fabric, reusing the same MintDecoder port the Honeypot
// Evaluator's on-chain provider depends on.
type ChainAuthorityReader struct {
	RPC     *rpc.Client
	Decoder honeypot.MintDecoder
}

func NewChainAuthorityReader(client *rpc.Client, decoder honeypot.MintDecoder) *ChainAuthorityReader {
	return &ChainAuthorityReader{RPC: client, Decoder: decoder}
}

func (r *ChainAuthorityReader) ReadAuthorities(ctx context.Context, tokenMint string) (models.AuthorityState, error) {
	info, err := r.RPC.ReadAccount(ctx, tokenMint)
	if err != nil {
		return models.AuthorityState{}, err
	}
	auth, err := r.Decoder.DecodeMint(info.Data)
	if err != nil {
		return models.AuthorityState{}, err
	}
	return models.AuthorityState{
		MintAuthorityNull:   !auth.MintAuthorityPresent,
		FreezeAuthorityNull: !auth.FreezeAuthorityPresent,
	}, nil
}

// ChainLiquidityReader reads a pool's base-unit reserves by resolving its LP
// mint and treating the LP mint's largest holder balance as the pool
// reserve proxy (the LP vault is conventionally the top holder of its own
// mint's backing asset account).
type ChainLiquidityReader struct {
	RPC   *rpc.Client
	Pools PoolMetadata
}

func NewChainLiquidityReader(client *rpc.Client, pools PoolMetadata) *ChainLiquidityReader {
	return &ChainLiquidityReader{RPC: client, Pools: pools}
}

func (r *ChainLiquidityReader) ReadLiquidity(ctx context.Context, tokenMint string) (uint64, error) {
	lpMint, err := r.Pools.LpMint(ctx, tokenMint)
	if err != nil {
		return 0, err
	}
	if lpMint == "" {
		return 0, nil
	}
	holders, err := r.RPC.ReadLargestHolders(ctx, lpMint, 1)
	if err != nil {
		return 0, err
	}
	if len(holders) == 0 {
		return 0, nil
	}
	return holders[0].Amount, nil
}
