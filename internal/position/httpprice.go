package position

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPPriceFeed reads the current quote-denominated price for a mint from
// an external price API (e.g. a DEX aggregator's price endpoint).
type HTTPPriceFeed struct {
	BaseURL string
	HTTP    *http.Client
}

func NewHTTPPriceFeed(baseURL string) *HTTPPriceFeed {
	return &HTTPPriceFeed{BaseURL: baseURL, HTTP: &http.Client{Timeout: 5 * time.Second}}
}

func (f *HTTPPriceFeed) CurrentPrice(ctx context.Context, tokenMint string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+"/price/"+tokenMint, nil)
	if err != nil {
		return 0, fmt.Errorf("position: build price request: %w", err)
	}

	resp, err := f.HTTP.Do(req)
	if err != nil {
		return 0, fmt.Errorf("position: fetch price: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("position: fetch price: status %d", resp.StatusCode)
	}

	var out struct {
		Price float64 `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("position: decode price: %w", err)
	}
	return out.Price, nil
}
