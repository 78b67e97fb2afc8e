package honeypot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rawblock/snipe-engine/pkg/models"
)

// HTTPSellSimulator asks an external transaction-simulation service to run
// a synthetic buy/sell round trip for a mint, surfacing honeypot taxes a
// static account read cannot see.
type HTTPSellSimulator struct {
	BaseURL string
	HTTP    *http.Client
}

func NewHTTPSellSimulator(baseURL string) *HTTPSellSimulator {
	return &HTTPSellSimulator{BaseURL: baseURL, HTTP: &http.Client{Timeout: 5 * time.Second}}
}

func (s *HTTPSellSimulator) SimulateRoundTrip(ctx context.Context, tokenMint string) (models.SellSimulationOutcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/simulate/"+tokenMint, nil)
	if err != nil {
		return models.SellSimulationOutcome{}, fmt.Errorf("honeypot: build simulate request: %w", err)
	}

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return models.SellSimulationOutcome{}, fmt.Errorf("honeypot: simulate round trip: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return models.SellSimulationOutcome{}, fmt.Errorf("honeypot: simulate round trip: status %d", resp.StatusCode)
	}

	var out models.SellSimulationOutcome
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.SellSimulationOutcome{}, fmt.Errorf("honeypot: decode simulate response: %w", err)
	}
	out.Simulated = true
	return out, nil
}
