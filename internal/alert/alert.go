// Package alert implements webhook alerting for emergency exits: a small
// manager that keeps recent alert history and fans severity-qualifying
// alerts out to registered webhook endpoints, grounded on the
// AlertManager/WebhookEndpoint pattern used for anomaly notifications
// elsewhere in this codebase's lineage.
package alert

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"
)

// Severity is the urgency band of an Alert, ordered low to high.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Alert is one emitted notification, e.g. an emergency exit firing on a
// registered Position.
type Alert struct {
	ID          string         `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	Severity    Severity       `json:"severity"`
	AlertType   string         `json:"alertType"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	PositionID  string         `json:"positionId,omitempty"`
	TokenMint   string         `json:"tokenMint,omitempty"`
	Signature   string         `json:"signature,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
}

// WebhookEndpoint is one registered outbound alert sink.
type WebhookEndpoint struct {
	Name        string
	URL         string
	Enabled     bool
	Headers     map[string]string
	MinSeverity Severity
}

// Manager stores recent alert history and dispatches qualifying alerts to
// every enabled webhook whose MinSeverity the alert meets.
type Manager struct {
	mu           sync.Mutex
	webhooks     []WebhookEndpoint
	recentAlerts []Alert
	maxHistory   int

	httpClient    *http.Client
	broadcastFunc func(Alert)
}

// NewManager constructs a Manager. broadcastFn is optional (nil-safe) and,
// if set, is called synchronously with every emitted Alert so a caller can
// fan it out over telemetry without the Manager importing that concern.
func NewManager(broadcastFn func(Alert)) *Manager {
	return &Manager{
		maxHistory:    200,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		broadcastFunc: broadcastFn,
	}
}

// RegisterWebhook adds an outbound sink. An empty minSeverity defaults to
// SeverityInfo (receive everything).
func (m *Manager) RegisterWebhook(name, url string, minSeverity Severity, headers map[string]string) {
	if minSeverity == "" {
		minSeverity = SeverityInfo
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.webhooks = append(m.webhooks, WebhookEndpoint{
		Name:        name,
		URL:         url,
		Enabled:     true,
		Headers:     headers,
		MinSeverity: minSeverity,
	})
}

// RemoveWebhook disables the endpoint named name, if registered.
func (m *Manager) RemoveWebhook(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.webhooks {
		if m.webhooks[i].Name == name {
			m.webhooks[i].Enabled = false
		}
	}
}

// EmitAlert records alert in history, invokes the broadcast callback if
// set, and fires an async POST to every enabled webhook that meets the
// alert's severity threshold.
func (m *Manager) EmitAlert(alert Alert) {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}

	m.mu.Lock()
	m.recentAlerts = append(m.recentAlerts, alert)
	if len(m.recentAlerts) > m.maxHistory {
		m.recentAlerts = m.recentAlerts[len(m.recentAlerts)-m.maxHistory:]
	}
	webhooks := make([]WebhookEndpoint, len(m.webhooks))
	copy(webhooks, m.webhooks)
	m.mu.Unlock()

	if m.broadcastFunc != nil {
		m.broadcastFunc(alert)
	}

	for _, wh := range webhooks {
		if !wh.Enabled || !severityMeetsThreshold(alert.Severity, wh.MinSeverity) {
			continue
		}
		go m.sendWebhook(wh, alert)
	}
}

// GetRecentAlerts returns up to limit of the most recent alerts, newest
// last. limit <= 0 returns the full retained history.
func (m *Manager) GetRecentAlerts(limit int) []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit >= len(m.recentAlerts) {
		out := make([]Alert, len(m.recentAlerts))
		copy(out, m.recentAlerts)
		return out
	}
	out := make([]Alert, limit)
	copy(out, m.recentAlerts[len(m.recentAlerts)-limit:])
	return out
}

func (m *Manager) sendWebhook(wh WebhookEndpoint, alert Alert) {
	body, err := json.Marshal(alert)
	if err != nil {
		log.Printf("[Alert] webhook %s: marshal alert failed: %v", wh.Name, err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		log.Printf("[Alert] webhook %s: build request failed: %v", wh.Name, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range wh.Headers {
		req.Header.Set(k, v)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		log.Printf("[Alert] webhook %s: delivery failed: %v", wh.Name, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[Alert] webhook %s: non-2xx response %d", wh.Name, resp.StatusCode)
	}
}

func severityMeetsThreshold(severity, min Severity) bool {
	return severityRank[severity] >= severityRank[min]
}
