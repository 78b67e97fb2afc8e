// Package ingest discovers newly-created liquidity pools via two
// interchangeable drivers and decodes them into typed PoolCreated events,
// per spec.md §4.2 and the account-index tables in §6.
package ingest

import "time"

// Instruction is one instruction of a raw transaction, account-index based
// per spec.md §6 ("identification is bitwise equality against the account
// array at the instruction's program_id_index").
type Instruction struct {
	ProgramIDIndex int
	AccountIndexes []int
	Data           []byte
}

// RawTransaction is the minimal shape both ingest drivers decode against.
// It is produced by the push-stream driver directly or fetched through the
// RPC Fabric by the log-subscription driver.
type RawTransaction struct {
	Signature    string
	Slot         uint64
	BlockTime    time.Time
	Accounts     []string
	Instructions []Instruction
	Logs         []string
}

func (t RawTransaction) account(idx int) (string, bool) {
	if idx < 0 || idx >= len(t.Accounts) {
		return "", false
	}
	return t.Accounts[idx], true
}
