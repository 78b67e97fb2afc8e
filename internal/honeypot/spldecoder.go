package honeypot

import "fmt"

// splMintLayout sizes describe the fixed binary layout of an SPL Token
// mint account: a 4-byte authority-present tag followed by the 32-byte
// pubkey, repeated for supply/decimals/init flag and the freeze authority.
const (
	splMintMinLen             = 82
	splMintAuthorityTagOffset = 0
	splFreezeAuthorityTagOffset = 46
)

// SPLMintDecoder decodes the well-known raw SPL Token mint account layout.
// It implements honeypot.MintDecoder; the Rug Monitor's ChainAuthorityReader
// reuses it through that same port.
type SPLMintDecoder struct{}

func NewSPLMintDecoder() SPLMintDecoder { return SPLMintDecoder{} }

// DecodeMint implements MintDecoder. A four-byte little-endian option tag
// of 1 means the following pubkey field is populated (authority present);
// 0 means it was set to None (authority renounced).
func (SPLMintDecoder) DecodeMint(data []byte) (MintAuthorities, error) {
	if len(data) < splMintMinLen {
		return MintAuthorities{}, fmt.Errorf("honeypot: mint account too short: %d bytes", len(data))
	}
	return MintAuthorities{
		MintAuthorityPresent:   optionTagSet(data, splMintAuthorityTagOffset),
		FreezeAuthorityPresent: optionTagSet(data, splFreezeAuthorityTagOffset),
	}, nil
}

func optionTagSet(data []byte, offset int) bool {
	return data[offset] == 1
}
