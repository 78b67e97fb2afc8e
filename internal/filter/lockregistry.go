package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rawblock/snipe-engine/pkg/models"
)

// HTTPLockRegistry queries an external liquidity-lock tracking service
// (e.g. a locker-program indexer). Absence of a known lock record defaults
// to LockStatusLocked/100%, per spec.md §4.4's backward-compatibility rule.
type HTTPLockRegistry struct {
	BaseURL string
	HTTP    *http.Client
}

func NewHTTPLockRegistry(baseURL string) *HTTPLockRegistry {
	return &HTTPLockRegistry{BaseURL: baseURL, HTTP: &http.Client{Timeout: 5 * time.Second}}
}

func (r *HTTPLockRegistry) LookupLock(ctx context.Context, lpMint string) (float64, models.LockStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BaseURL+"/locks/"+lpMint, nil)
	if err != nil {
		return 0, "", fmt.Errorf("filter: build lock lookup request: %w", err)
	}

	resp, err := r.HTTP.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("filter: lock lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 100, models.LockStatusLocked, nil
	}
	if resp.StatusCode >= 300 {
		return 0, "", fmt.Errorf("filter: lock lookup: status %d", resp.StatusCode)
	}

	var out struct {
		LockPct float64            `json:"lock_pct"`
		Status  models.LockStatus `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, "", fmt.Errorf("filter: decode lock lookup: %w", err)
	}
	return out.LockPct, out.Status, nil
}
