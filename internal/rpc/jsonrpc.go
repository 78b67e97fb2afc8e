package rpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// JSONRPCBackend is a minimal JSON-RPC HTTP client implementing Backend
// against a Solana-style RPC endpoint. It is the composition root's
// concrete choice for the out-of-scope RPC client library named in
// spec.md §1; no example repo in the reference pack ships a chain RPC
// client for this domain, so this wraps net/http directly rather than
// reaching for an unrelated SDK.
type JSONRPCBackend struct {
	Endpoint string
	HTTP     *http.Client
}

func NewJSONRPCBackend(endpoint string) *JSONRPCBackend {
	return &JSONRPCBackend{Endpoint: endpoint, HTTP: &http.Client{Timeout: 10 * time.Second}}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (b *JSONRPCBackend) call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("rpc: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("rpc: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("rpc: %s: %w", method, err)
	}
	defer resp.Body.Close()

	var rr rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return fmt.Errorf("rpc: %s: decode response: %w", method, err)
	}
	if rr.Error != nil {
		return fmt.Errorf("rpc: %s: %s (code %d)", method, rr.Error.Message, rr.Error.Code)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rr.Result, out); err != nil {
		return fmt.Errorf("rpc: %s: unmarshal result: %w", method, err)
	}
	return nil
}

func (b *JSONRPCBackend) ReadAccount(ctx context.Context, address string) (AccountInfo, error) {
	var result struct {
		Value *struct {
			Owner    string   `json:"owner"`
			Lamports uint64   `json:"lamports"`
			Data     []string `json:"data"`
		} `json:"value"`
	}
	if err := b.call(ctx, "getAccountInfo", []any{address, map[string]string{"encoding": "base64"}}, &result); err != nil {
		return AccountInfo{}, err
	}
	if result.Value == nil {
		return AccountInfo{}, fmt.Errorf("rpc: account %s not found", address)
	}
	var data []byte
	if len(result.Value.Data) > 0 {
		decoded, err := base64.StdEncoding.DecodeString(result.Value.Data[0])
		if err != nil {
			return AccountInfo{}, fmt.Errorf("rpc: decode account data: %w", err)
		}
		data = decoded
	}
	return AccountInfo{Owner: result.Value.Owner, Data: data, Lamports: result.Value.Lamports}, nil
}

func (b *JSONRPCBackend) ReadSupply(ctx context.Context, mint string) (SupplyInfo, error) {
	var result struct {
		Value struct {
			Amount   string `json:"amount"`
			Decimals uint8  `json:"decimals"`
		} `json:"value"`
	}
	if err := b.call(ctx, "getTokenSupply", []any{mint}, &result); err != nil {
		return SupplyInfo{}, err
	}
	var total uint64
	if _, err := fmt.Sscanf(result.Value.Amount, "%d", &total); err != nil {
		return SupplyInfo{}, fmt.Errorf("rpc: parse supply amount: %w", err)
	}
	return SupplyInfo{TotalSupply: total, Decimals: result.Value.Decimals}, nil
}

func (b *JSONRPCBackend) ReadLargestHolders(ctx context.Context, mint string, n int) ([]HolderBalance, error) {
	var result struct {
		Value []struct {
			Address string `json:"address"`
			Amount  string `json:"amount"`
		} `json:"value"`
	}
	if err := b.call(ctx, "getTokenLargestAccounts", []any{mint}, &result); err != nil {
		return nil, err
	}
	out := make([]HolderBalance, 0, n)
	for i, v := range result.Value {
		if i >= n {
			break
		}
		var amt uint64
		if _, err := fmt.Sscanf(v.Amount, "%d", &amt); err != nil {
			continue
		}
		out = append(out, HolderBalance{Address: v.Address, Amount: amt})
	}
	return out, nil
}

func (b *JSONRPCBackend) ReadRecentPrioritizationFees(ctx context.Context, accountFilter []string) ([]PrioritizationFeeSample, error) {
	var result []struct {
		Slot              uint64 `json:"slot"`
		PrioritizationFee uint64 `json:"prioritizationFee"`
	}
	params := []any{}
	if len(accountFilter) > 0 {
		params = append(params, accountFilter)
	}
	if err := b.call(ctx, "getRecentPrioritizationFees", params, &result); err != nil {
		return nil, err
	}
	out := make([]PrioritizationFeeSample, len(result))
	for i, r := range result {
		out[i] = PrioritizationFeeSample{Slot: r.Slot, PrioritizationFee: r.PrioritizationFee}
	}
	return out, nil
}

func (b *JSONRPCBackend) SubmitTransaction(ctx context.Context, signedTx []byte) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(signedTx)
	var signature string
	if err := b.call(ctx, "sendTransaction", []any{encoded, map[string]string{"encoding": "base64"}}, &signature); err != nil {
		return "", err
	}
	return signature, nil
}
