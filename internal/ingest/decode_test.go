package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accountsOf(n int, fill func(i int) string) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = fill(i)
	}
	return out
}

func TestDecode_AMMv4(t *testing.T) {
	programs := DefaultProgramIDs()
	accts := accountsOf(18, func(i int) string { return "acct" + string(rune('A'+i)) })
	accts[0] = programs.AMMv4
	tx := RawTransaction{
		Signature: "sig1",
		Slot:      42,
		Accounts:  accts,
		Instructions: []Instruction{
			{ProgramIDIndex: 0, AccountIndexes: accountsIndexRange(18), Data: []byte{0x01}},
		},
	}

	ev, err := Decode(tx, programs, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "amm_v4", string(ev.Dex))
	assert.Equal(t, accts[4], ev.PoolAddress)
	assert.Equal(t, accts[8], ev.BaseMint)
	assert.Equal(t, accts[9], ev.QuoteMint)
	assert.Equal(t, accts[17], ev.Creator)
}

func accountsIndexRange(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestDecode_AMMv4_WrongDiscriminator_Skipped(t *testing.T) {
	programs := DefaultProgramIDs()
	accts := accountsOf(18, func(i int) string { return "acct" })
	accts[0] = programs.AMMv4
	tx := RawTransaction{
		Signature: "sig2",
		Accounts:  accts,
		Instructions: []Instruction{
			{ProgramIDIndex: 0, AccountIndexes: accountsIndexRange(18), Data: []byte{0x02}},
		},
	}
	_, err := Decode(tx, programs, time.Now())
	assert.Error(t, err)
}

func TestDecode_Pumpfun(t *testing.T) {
	programs := DefaultProgramIDs()
	accts := accountsOf(8, func(i int) string { return "p" + string(rune('0'+i)) })
	accts[0] = programs.PumpPlatform
	tx := RawTransaction{
		Signature: "sig3",
		Accounts:  accts,
		Instructions: []Instruction{
			{ProgramIDIndex: 0, AccountIndexes: accountsIndexRange(8), Data: append(pumpCreateDiscriminator[:], 0xAA)},
		},
	}
	ev, err := Decode(tx, programs, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "pumpfun", string(ev.Dex))
	assert.Equal(t, wrappedNativeMint, ev.QuoteMint)
	assert.Equal(t, accts[2], ev.PoolAddress)
	assert.Equal(t, accts[7], ev.Creator)
}

func TestDecode_NoKnownDex_ReturnsError(t *testing.T) {
	programs := DefaultProgramIDs()
	tx := RawTransaction{
		Signature:    "sig4",
		Accounts:     []string{"unrelated"},
		Instructions: []Instruction{{ProgramIDIndex: 0}},
	}
	_, err := Decode(tx, programs, time.Now())
	assert.Error(t, err)
}
