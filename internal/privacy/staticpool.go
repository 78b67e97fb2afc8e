package privacy

import "fmt"

// StaticWalletPool names a fixed rotation of wallet IDs shared by every
// user's vault directory convention ("primary", "w2", "w3", ...), up to a
// configured pool size. It implements WalletPool without needing a live
// balance/usage feed: freshness is approximated by position in the list,
// since newly added wallets sort last.
type StaticWalletPool struct {
	wallets []WalletInfo
}

func NewStaticWalletPool(size int) *StaticWalletPool {
	if size < 1 {
		size = 1
	}
	wallets := make([]WalletInfo, size)
	wallets[0] = WalletInfo{ID: "primary", IsPrimary: true}
	for i := 1; i < size; i++ {
		wallets[i] = WalletInfo{ID: fmt.Sprintf("w%d", i+1), IsFresh: true}
	}
	return &StaticWalletPool{wallets: wallets}
}

func (p *StaticWalletPool) ListWallets() []WalletInfo {
	return p.wallets
}
