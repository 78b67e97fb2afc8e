package privacy

// WalletInfo describes one wallet in the rotation pool.
type WalletInfo struct {
	ID        string
	IsPrimary bool
	IsFresh   bool
}

// WalletPool is the external collaborator that knows the set of wallets
// available for rotation and which of them are unused ("fresh").
type WalletPool interface {
	ListWallets() []WalletInfo
}
