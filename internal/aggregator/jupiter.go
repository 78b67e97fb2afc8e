package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rawblock/snipe-engine/pkg/models"
)

// HTTPAggregator is a thin JSON/HTTP client against a Jupiter-style swap
// aggregator. Like rpc.JSONRPCBackend, this is the composition root's
// concrete choice for the out-of-scope aggregator client library named in
// spec.md §1 — no example repo ships one, so this talks plain net/http.
type HTTPAggregator struct {
	BaseURL string
	HTTP    *http.Client
}

func NewHTTPAggregator(baseURL string) *HTTPAggregator {
	return &HTTPAggregator{BaseURL: baseURL, HTTP: &http.Client{Timeout: 10 * time.Second}}
}

func (a *HTTPAggregator) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("aggregator: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("aggregator: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("aggregator: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("aggregator: %s: status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (a *HTTPAggregator) Quote(ctx context.Context, inputMint, outputMint string, amountIn uint64, slippageBps int) (models.Quote, error) {
	var out struct {
		QuoteID        string  `json:"quoteId"`
		ExpectedOutput uint64  `json:"outAmount"`
		PriceImpactPct float64 `json:"priceImpactPct"`
	}
	req := map[string]any{
		"inputMint": inputMint, "outputMint": outputMint,
		"amount": amountIn, "slippageBps": slippageBps,
	}
	if err := a.post(ctx, "/quote", req, &out); err != nil {
		return models.Quote{}, err
	}
	return models.Quote{
		QuoteID:        out.QuoteID,
		InputMint:      inputMint,
		OutputMint:     outputMint,
		AmountIn:       amountIn,
		ExpectedOutput: out.ExpectedOutput,
		PriceImpactPct: out.PriceImpactPct,
	}, nil
}

// BuildSwapTx asks the aggregator to build an unsigned swap transaction for
// quote. Broadcasting is the caller's job, via the RPC Fabric.
func (a *HTTPAggregator) BuildSwapTx(ctx context.Context, quote models.Quote, computeUnitPrice uint64, walletPublicKey string, useMEVBundle bool) ([]byte, error) {
	var out struct {
		UnsignedTx string `json:"swapTransaction"`
	}
	req := map[string]any{
		"quoteId": quote.QuoteID, "computeUnitPrice": computeUnitPrice,
		"userPublicKey": walletPublicKey, "useMEVBundle": useMEVBundle,
	}
	if err := a.post(ctx, "/swap", req, &out); err != nil {
		return nil, err
	}
	return []byte(out.UnsignedTx), nil
}
