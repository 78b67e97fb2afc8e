package ingest

import (
	"bytes"
	"fmt"
	"time"

	"github.com/rawblock/snipe-engine/pkg/models"
)

// wrappedNativeMint is the quote mint pump.fun pools always denominate in.
const wrappedNativeMint = "So11111111111111111111111111111111111111112"

// Decode locates the first instruction whose program-id matches a known
// DEX and decodes it against the fixed account-index table for that DEX
// (spec.md §4.2/§6). Mismatched discriminators or too-short account lists
// are silently skipped, never retried, per the §4.2 failure semantics.
func Decode(tx RawTransaction, programs ProgramIDs, now time.Time) (*models.PoolCreated, error) {
	for _, ix := range tx.Instructions {
		programID, ok := tx.account(ix.ProgramIDIndex)
		if !ok {
			continue
		}
		dex := programs.ResolveDex(programID)
		if dex == "" {
			continue
		}

		accts := resolveAccounts(tx, ix.AccountIndexes)

		switch dex {
		case "amm_v4":
			if ev, ok := decodeAMMv4(tx, accts, ix, now); ok {
				return ev, nil
			}
		case "clmm":
			if ev, ok := decodeCLMM(tx, accts, now); ok {
				return ev, nil
			}
		case "orca_whirlpool":
			if ev, ok := decodeOrcaWhirlpool(tx, accts, now); ok {
				return ev, nil
			}
		case "meteora":
			if ev, ok := decodeMeteora(tx, accts, now); ok {
				return ev, nil
			}
		case "pumpfun":
			if ev, ok := decodePumpfun(tx, accts, ix, now); ok {
				return ev, nil
			}
		}
	}
	return nil, fmt.Errorf("ingest: no known DEX instruction found in %s", tx.Signature)
}

func resolveAccounts(tx RawTransaction, indexes []int) []string {
	out := make([]string, len(indexes))
	for i, idx := range indexes {
		a, _ := tx.account(idx)
		out[i] = a
	}
	return out
}

// decodeAMMv4 implements spec.md §6: pool=4, base_mint=8, quote_mint=9,
// creator=17 (min 18 accounts); first-byte discriminator must be 0x01
// (initialize2).
func decodeAMMv4(tx RawTransaction, accts []string, ix Instruction, now time.Time) (*models.PoolCreated, bool) {
	if len(ix.Data) == 0 || ix.Data[0] != ammV4Initialize2FirstByte {
		return nil, false
	}
	if len(accts) < 18 {
		return nil, false
	}
	return &models.PoolCreated{
		Signature:   tx.Signature,
		Slot:        tx.Slot,
		Timestamp:   now,
		Dex:         models.DexAMMv4,
		PoolAddress: accts[4],
		BaseMint:    accts[8],
		QuoteMint:   accts[9],
		Creator:     accts[17],
	}, true
}

// decodeCLMM implements spec.md §6: pool=1, mints at 2,3.
func decodeCLMM(tx RawTransaction, accts []string, now time.Time) (*models.PoolCreated, bool) {
	if len(accts) < 4 {
		return nil, false
	}
	return &models.PoolCreated{
		Signature:   tx.Signature,
		Slot:        tx.Slot,
		Timestamp:   now,
		Dex:         models.DexCLMM,
		PoolAddress: accts[1],
		BaseMint:    accts[2],
		QuoteMint:   accts[3],
	}, true
}

// decodeOrcaWhirlpool implements spec.md §6: pool=4, mints at 1,2.
func decodeOrcaWhirlpool(tx RawTransaction, accts []string, now time.Time) (*models.PoolCreated, bool) {
	if len(accts) < 5 {
		return nil, false
	}
	return &models.PoolCreated{
		Signature:   tx.Signature,
		Slot:        tx.Slot,
		Timestamp:   now,
		Dex:         models.DexOrcaWhirlpool,
		PoolAddress: accts[4],
		BaseMint:    accts[1],
		QuoteMint:   accts[2],
	}, true
}

// decodeMeteora implements spec.md §6: lb_pair=0, mints at 2,3 (min 4
// accounts). The anti-sniper config derivation happens as a separate
// addendum step (meteora.go), not here, since it requires an extra account
// fetch through the RPC Fabric.
func decodeMeteora(tx RawTransaction, accts []string, now time.Time) (*models.PoolCreated, bool) {
	if len(accts) < 4 {
		return nil, false
	}
	return &models.PoolCreated{
		Signature:   tx.Signature,
		Slot:        tx.Slot,
		Timestamp:   now,
		Dex:         models.DexMeteora,
		PoolAddress: accts[0],
		BaseMint:    accts[2],
		QuoteMint:   accts[3],
	}, true
}

// decodePumpfun implements spec.md §6: discriminator must equal the fixed
// 8-byte prefix; mint=0, bonding_curve=2, creator=7; quote is the native
// wrapped token.
func decodePumpfun(tx RawTransaction, accts []string, ix Instruction, now time.Time) (*models.PoolCreated, bool) {
	if len(ix.Data) < 8 || !bytes.Equal(ix.Data[:8], pumpCreateDiscriminator[:]) {
		return nil, false
	}
	if len(accts) < 8 {
		return nil, false
	}
	return &models.PoolCreated{
		Signature:   tx.Signature,
		Slot:        tx.Slot,
		Timestamp:   now,
		Dex:         models.DexPumpfun,
		PoolAddress: accts[2], // bonding_curve acts as the pool for pump.fun
		BaseMint:    accts[0],
		QuoteMint:   wrappedNativeMint,
		Creator:     accts[7],
	}, true
}
