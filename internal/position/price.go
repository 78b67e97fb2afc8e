package position

import "context"

// PriceProvider resolves the current price for a token mint, expressed in
// the same unit as Position.EntryPrice. The concrete implementation is an
// out-of-scope price-feed collaborator.
type PriceProvider interface {
	CurrentPrice(ctx context.Context, tokenMint string) (float64, error)
}
