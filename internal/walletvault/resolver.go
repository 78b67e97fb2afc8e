package walletvault

import (
	"context"

	"github.com/rawblock/snipe-engine/internal/aggregator"
)

// primaryWalletID is the fixed wallet name both monitors resolve a user's
// exit signer under. The monitors never track which wallet bought into a
// position (that detail lives on the Position record as metadata the
// monitors don't need); they always exit from the user's primary wallet.
const primaryWalletID = "primary"

// MonitorResolver adapts Vault to position.SignerResolver and
// rug.SignerResolver, both of which resolve a signer from userID alone.
type MonitorResolver struct {
	Vault *Vault
}

func NewMonitorResolver(v *Vault) *MonitorResolver {
	return &MonitorResolver{Vault: v}
}

func (r *MonitorResolver) ResolveSigner(ctx context.Context, userID string) (aggregator.KeypairSigner, error) {
	return r.Vault.Unlock(ctx, userID, primaryWalletID)
}
