// Package aggregator defines the ports to the swap-aggregator and keypair
// collaborators the Order Engine drives, per spec.md §1 (both are named
// out-of-scope external libraries) and §4.7.
package aggregator

import (
	"context"

	"github.com/rawblock/snipe-engine/pkg/models"
)

// Aggregator quotes a route and builds the unsigned swap transaction
// against an external router (e.g. a DEX aggregator). It is the
// out-of-scope quote/build client library. Broadcasting the signed
// transaction is deliberately NOT this interface's job: that goes through
// the RPC Fabric (internal/rpc.Client.Submit), which carries the
// submit-specific circuit breaker and capped 2-attempt retry policy spec.md
// §4.1 requires to avoid a duplicate fill. An aggregator that also exposed
// its own submit endpoint would give callers two uncoordinated ways to
// broadcast the same transaction.
type Aggregator interface {
	Quote(ctx context.Context, inputMint, outputMint string, amountIn uint64, slippageBps int) (models.Quote, error)
	BuildSwapTx(ctx context.Context, quote models.Quote, computeUnitPrice uint64, walletPublicKey string, useMEVBundle bool) (unsignedTx []byte, err error)
}

// KeypairSigner is the out-of-scope keypair-unlock collaborator: it signs
// raw transaction bytes without this package ever touching key material.
type KeypairSigner interface {
	Sign(ctx context.Context, rawTx []byte) (signedTx []byte, err error)
	PublicKey() string
}

// KeypairUnlocker resolves a user's signer, e.g. from an encrypted vault or
// hardware wallet bridge.
type KeypairUnlocker interface {
	Unlock(ctx context.Context, userID, walletID string) (KeypairSigner, error)
}
