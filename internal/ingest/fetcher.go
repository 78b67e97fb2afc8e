package ingest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPTransactionFetcher fetches a full transaction by signature over the
// same JSON-RPC endpoint the RPC Fabric reads from, implementing
// TransactionFetcher for the log-subscription driver.
type HTTPTransactionFetcher struct {
	Endpoint string
	HTTP     *http.Client
}

func NewHTTPTransactionFetcher(endpoint string) *HTTPTransactionFetcher {
	return &HTTPTransactionFetcher{Endpoint: endpoint, HTTP: &http.Client{Timeout: 10 * time.Second}}
}

type getTransactionResult struct {
	Slot        uint64 `json:"slot"`
	BlockTime   int64  `json:"blockTime"`
	Transaction struct {
		Message struct {
			AccountKeys  []string `json:"accountKeys"`
			Instructions []struct {
				ProgramIDIndex int    `json:"programIdIndex"`
				Accounts       []int  `json:"accounts"`
				Data           string `json:"data"`
			} `json:"instructions"`
		} `json:"message"`
	} `json:"transaction"`
	Meta struct {
		LogMessages []string `json:"logMessages"`
	} `json:"meta"`
}

func (f *HTTPTransactionFetcher) FetchTransaction(ctx context.Context, signature string) (RawTransaction, error) {
	reqBody, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": 1, "method": "getTransaction",
		"params": []any{signature, map[string]string{"encoding": "json"}},
	})
	if err != nil {
		return RawTransaction{}, fmt.Errorf("ingest: marshal getTransaction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.Endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return RawTransaction{}, fmt.Errorf("ingest: build getTransaction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.HTTP.Do(req)
	if err != nil {
		return RawTransaction{}, fmt.Errorf("ingest: fetch transaction: %w", err)
	}
	defer resp.Body.Close()

	var rr struct {
		Result *getTransactionResult `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return RawTransaction{}, fmt.Errorf("ingest: decode getTransaction response: %w", err)
	}
	if rr.Error != nil {
		return RawTransaction{}, fmt.Errorf("ingest: getTransaction: %s", rr.Error.Message)
	}
	if rr.Result == nil {
		return RawTransaction{}, fmt.Errorf("ingest: transaction %s not found", signature)
	}

	ixs := make([]Instruction, len(rr.Result.Transaction.Message.Instructions))
	for i, ix := range rr.Result.Transaction.Message.Instructions {
		data, err := base64.StdEncoding.DecodeString(ix.Data)
		if err != nil {
			return RawTransaction{}, fmt.Errorf("ingest: decode instruction data: %w", err)
		}
		ixs[i] = Instruction{ProgramIDIndex: ix.ProgramIDIndex, AccountIndexes: ix.Accounts, Data: data}
	}

	return RawTransaction{
		Signature:    signature,
		Slot:         rr.Result.Slot,
		BlockTime:    time.Unix(rr.Result.BlockTime, 0),
		Accounts:     rr.Result.Transaction.Message.AccountKeys,
		Instructions: ixs,
		Logs:         rr.Result.Meta.LogMessages,
	}, nil
}
