// Package walletvault implements the keypair-unlock collaborator
// aggregator.KeypairUnlocker depends on: a directory of per-wallet ed25519
// keystore files decrypted on demand, wiped from memory once a signer's
// caller is done with it.
package walletvault

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rawblock/snipe-engine/internal/aggregator"
)

// keystoreFile is the on-disk shape of one wallet's keystore. Real deployments
// encrypt Seed at rest (e.g. via a KMS-wrapped envelope key); this format
// assumes that encryption happens at the filesystem layer, since no
// encryption-at-rest library appears anywhere in the reference pack.
type keystoreFile struct {
	WalletID string `json:"wallet_id"`
	Seed     []byte `json:"seed"`
}

// Vault resolves a user's wallet keystore from a directory laid out as
// <dir>/<userID>/<walletID>.json.
type Vault struct {
	Dir string
}

func New(dir string) *Vault {
	return &Vault{Dir: dir}
}

// Unlock implements aggregator.KeypairUnlocker.
func (v *Vault) Unlock(ctx context.Context, userID, walletID string) (aggregator.KeypairSigner, error) {
	path := filepath.Join(v.Dir, userID, walletID+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("walletvault: read keystore: %w", err)
	}
	var ks keystoreFile
	if err := json.Unmarshal(raw, &ks); err != nil {
		return nil, fmt.Errorf("walletvault: parse keystore: %w", err)
	}
	if len(ks.Seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("walletvault: keystore %s: seed must be %d bytes", walletID, ed25519.SeedSize)
	}
	key := ed25519.NewKeyFromSeed(ks.Seed)
	for i := range ks.Seed {
		ks.Seed[i] = 0
	}
	return &Signer{key: key}, nil
}

// Signer holds a decrypted ed25519 private key in memory just long enough
// to sign a transaction, then Wipe zeroes it.
type Signer struct {
	key ed25519.PrivateKey
}

func (s *Signer) Sign(ctx context.Context, rawTx []byte) ([]byte, error) {
	if s.key == nil {
		return nil, fmt.Errorf("walletvault: signer wiped")
	}
	sig := ed25519.Sign(s.key, rawTx)
	return append(rawTx, sig...), nil
}

func (s *Signer) PublicKey() string {
	if s.key == nil {
		return ""
	}
	pub := s.key.Public().(ed25519.PublicKey)
	return fmt.Sprintf("%x", []byte(pub))
}

// Wipe zeroes the in-memory private key, satisfying the Orchestrator's
// optional wipeable interface.
func (s *Signer) Wipe() {
	for i := range s.key {
		s.key[i] = 0
	}
	s.key = nil
}
