package ingest

// ProgramIDs are configuration constants naming the on-chain program
// identity for each supported DEX, per spec.md §6. DefaultProgramIDs holds
// the well-known mainnet program addresses; Config carries no override.
type ProgramIDs struct {
	AMMv4         string
	CLMM          string
	OrcaWhirlpool string
	MeteoraDLMM   string
	PumpPlatform  string
}

// DefaultProgramIDs mirrors the well-known public program addresses.
func DefaultProgramIDs() ProgramIDs {
	return ProgramIDs{
		AMMv4:         "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8",
		CLMM:          "CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK",
		OrcaWhirlpool: "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc",
		MeteoraDLMM:   "LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo",
		PumpPlatform:  "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P",
	}
}

// pumpCreateDiscriminator is the fixed 8-byte Anchor instruction
// discriminator for the pump-platform "create" instruction (spec.md §6).
var pumpCreateDiscriminator = [8]byte{0x18, 0x1e, 0xc8, 0x28, 0x05, 0x1c, 0x07, 0x77}

// ammV4Initialize2FirstByte is the first-byte discriminator for AMM v4's
// initialize2 instruction.
const ammV4Initialize2FirstByte = 0x01

// ResolveDex returns which DEX owns the instruction's program, or "" if the
// program id doesn't match any known DEX.
func (p ProgramIDs) ResolveDex(programID string) string {
	switch programID {
	case p.AMMv4:
		return "amm_v4"
	case p.CLMM:
		return "clmm"
	case p.OrcaWhirlpool:
		return "orca_whirlpool"
	case p.MeteoraDLMM:
		return "meteora"
	case p.PumpPlatform:
		return "pumpfun"
	default:
		return ""
	}
}
