package rpc

import (
	"context"
	"errors"

	"github.com/rawblock/snipe-engine/pkg/snipeerr"
)

// ErrCircuitOpen is surfaced whenever a breaker is OPEN; it is distinct from
// the retried transient classes and is never itself retried.
var ErrCircuitOpen = snipeerr.ErrCircuitOpen

// AccountInfo is a minimal on-chain account read result.
type AccountInfo struct {
	Owner    string
	Data     []byte
	Lamports uint64
}

// SupplyInfo is a mint's total supply read result.
type SupplyInfo struct {
	TotalSupply uint64
	Decimals    uint8
}

// HolderBalance is one entry of a largest-holders read.
type HolderBalance struct {
	Address string
	Amount  uint64
}

// PrioritizationFeeSample is one recent-fees data point.
type PrioritizationFeeSample struct {
	Slot             uint64
	PrioritizationFee uint64
}

// Backend is the externally supplied capability this package wraps: raw
// chain reads and transaction submission. It is the out-of-scope RPC client
// library referenced in spec.md §1 — the core only depends on this narrow
// interface, never on a concrete client.
type Backend interface {
	ReadAccount(ctx context.Context, address string) (AccountInfo, error)
	ReadSupply(ctx context.Context, mint string) (SupplyInfo, error)
	ReadLargestHolders(ctx context.Context, mint string, n int) ([]HolderBalance, error)
	ReadRecentPrioritizationFees(ctx context.Context, accountFilter []string) ([]PrioritizationFeeSample, error)
	SubmitTransaction(ctx context.Context, signedTx []byte) (signature string, err error)
}

// Client is the RPC Fabric: every named operation is wrapped by its own
// circuit breaker and retry policy so saturation in one verb never blocks
// another (spec.md §5 "Shared resources").
type Client struct {
	backend  Backend
	breakers *Registry
}

func NewClient(backend Backend, breakers *Registry) *Client {
	return &Client{backend: backend, breakers: breakers}
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) {
		return false
	}
	var se *snipeerr.Error
	if errors.As(err, &se) {
		return se.Retryable()
	}
	// Unclassified backend errors default to retryable network errors.
	return true
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var se *snipeerr.Error
	if errors.As(err, &se) {
		return se
	}
	return snipeerr.Wrap(snipeerr.KindTransient, "NETWORK_ERROR", "rpc backend error", err)
}

func (c *Client) ReadAccount(ctx context.Context, address string) (AccountInfo, error) {
	var out AccountInfo
	b := c.breakers.Get("read.account")
	err := WithRetry(ctx, b, ReadRetryPolicy, isTransient, func(ctx context.Context) error {
		res, err := c.backend.ReadAccount(ctx, address)
		if err != nil {
			return classify(err)
		}
		out = res
		return nil
	})
	return out, err
}

func (c *Client) ReadSupply(ctx context.Context, mint string) (SupplyInfo, error) {
	var out SupplyInfo
	b := c.breakers.Get("read.supply")
	err := WithRetry(ctx, b, ReadRetryPolicy, isTransient, func(ctx context.Context) error {
		res, err := c.backend.ReadSupply(ctx, mint)
		if err != nil {
			return classify(err)
		}
		out = res
		return nil
	})
	return out, err
}

func (c *Client) ReadLargestHolders(ctx context.Context, mint string, n int) ([]HolderBalance, error) {
	var out []HolderBalance
	b := c.breakers.Get("read.largest_holders")
	err := WithRetry(ctx, b, ReadRetryPolicy, isTransient, func(ctx context.Context) error {
		res, err := c.backend.ReadLargestHolders(ctx, mint, n)
		if err != nil {
			return classify(err)
		}
		out = res
		return nil
	})
	return out, err
}

func (c *Client) ReadRecentPrioritizationFees(ctx context.Context, accountFilter []string) ([]PrioritizationFeeSample, error) {
	var out []PrioritizationFeeSample
	b := c.breakers.Get("read.prioritization_fees")
	err := WithRetry(ctx, b, ReadRetryPolicy, isTransient, func(ctx context.Context) error {
		res, err := c.backend.ReadRecentPrioritizationFees(ctx, accountFilter)
		if err != nil {
			return classify(err)
		}
		out = res
		return nil
	})
	return out, err
}

// Submit broadcasts a signed transaction. Per spec.md §4.1, submit is
// capped at 2 attempts to avoid double-charging the chain.
func (c *Client) Submit(ctx context.Context, signedTx []byte) (string, error) {
	var sig string
	b := c.breakers.Get("submit")
	err := WithRetry(ctx, b, SubmitRetryPolicy, isTransient, func(ctx context.Context) error {
		res, err := c.backend.SubmitTransaction(ctx, signedTx)
		if err != nil {
			return classify(err)
		}
		sig = res
		return nil
	})
	return sig, err
}
