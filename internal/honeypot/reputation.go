package honeypot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rawblock/snipe-engine/pkg/models"
)

// ReputationProvider queries an HTTP-based token reputation service.
// Typical latency is sub-3s per spec.md §4.3.
type ReputationProvider struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewReputationProvider(baseURL, apiKey string) *ReputationProvider {
	return &ReputationProvider{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 3 * time.Second},
	}
}

func (p *ReputationProvider) Name() string { return "reputation_http" }

type reputationResponse struct {
	Score      int      `json:"score"`
	Confidence int      `json:"confidence"`
	Flags      []string `json:"flags"`
}

func (p *ReputationProvider) Check(ctx context.Context, tokenMint string) (ProviderResult, error) {
	url := fmt.Sprintf("%s/v1/tokens/%s/risk", p.BaseURL, tokenMint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, bytes.NewReader(nil))
	if err != nil {
		return ProviderResult{}, fmt.Errorf("reputation provider: build request: %w", err)
	}
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	start := time.Now()
	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return ProviderResult{}, fmt.Errorf("reputation provider: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ProviderResult{}, fmt.Errorf("reputation provider: unexpected status %d", resp.StatusCode)
	}

	var body reputationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ProviderResult{}, fmt.Errorf("reputation provider: decode response: %w", err)
	}

	flags := make([]models.Flag, 0, len(body.Flags))
	for _, f := range body.Flags {
		flags = append(flags, models.Flag(f))
	}

	return ProviderResult{
		Score:      clamp0to100(body.Score),
		Confidence: clamp0to100(body.Confidence),
		Flags:      flags,
		RawData:    map[string]any{"source": "reputation_http"},
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

func clamp0to100(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
