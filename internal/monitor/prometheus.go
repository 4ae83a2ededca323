// Package monitor implements per-tenant cost watching over Prometheus with
// Slack alerting. It runs as its own service next to the relay.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// PrometheusClient queries the instant-query API.
type PrometheusClient struct {
	baseURL string
	client  *http.Client
}

func NewPrometheusClient(baseURL string, timeout time.Duration) *PrometheusClient {
	return &PrometheusClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type queryResponse struct {
	Status string `json:"status"`
	Data   struct {
		Result []struct {
			Metric map[string]string `json:"metric"`
			Value  []interface{}     `json:"value"`
		} `json:"result"`
	} `json:"data"`
}

// SandboxCost is one tenant's spend over the query window.
type SandboxCost struct {
	SandboxID string
	Cost      float64
}

func (c *PrometheusClient) query(ctx context.Context, promql string) (*queryResponse, error) {
	u := fmt.Sprintf("%s/api/v1/query?query=%s", c.baseURL, url.QueryEscape(promql))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create prometheus request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query prometheus: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prometheus returned status %d", resp.StatusCode)
	}

	var decoded queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode prometheus response: %w", err)
	}
	if decoded.Status != "success" {
		return nil, fmt.Errorf("prometheus query failed: status %q", decoded.Status)
	}

	return &decoded, nil
}

// sampleValue extracts the scalar from a [timestamp, "value"] pair.
func sampleValue(value []interface{}) float64 {
	if len(value) < 2 {
		return 0
	}
	s, ok := value[1].(string)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// SandboxCosts returns per-tenant spend over the window.
func (c *PrometheusClient) SandboxCosts(ctx context.Context, window time.Duration) ([]SandboxCost, error) {
	promql := fmt.Sprintf("sum by(sandbox_id) (increase(openai_cost_usd_total[%dh]))", int(window.Hours()))

	resp, err := c.query(ctx, promql)
	if err != nil {
		return nil, err
	}

	costs := make([]SandboxCost, 0, len(resp.Data.Result))
	for _, r := range resp.Data.Result {
		sandboxID := r.Metric["sandbox_id"]
		if sandboxID == "" {
			sandboxID = "unknown"
		}
		costs = append(costs, SandboxCost{
			SandboxID: sandboxID,
			Cost:      sampleValue(r.Value),
		})
	}
	return costs, nil
}

// CostBreakdown returns one tenant's spend grouped by operation type.
func (c *PrometheusClient) CostBreakdown(ctx context.Context, sandboxID string, window time.Duration) (map[string]float64, error) {
	promql := fmt.Sprintf(
		"sum by(operation_type) (increase(openai_cost_usd_total{sandbox_id=%q}[%dh]))",
		sandboxID, int(window.Hours()),
	)

	resp, err := c.query(ctx, promql)
	if err != nil {
		return nil, err
	}

	breakdown := make(map[string]float64, len(resp.Data.Result))
	for _, r := range resp.Data.Result {
		opType := r.Metric["operation_type"]
		if opType == "" {
			opType = "unknown"
		}
		breakdown[opType] = sampleValue(r.Value)
	}
	return breakdown, nil
}

// TokenUsage returns one tenant's token consumption over the window.
func (c *PrometheusClient) TokenUsage(ctx context.Context, sandboxID string, window time.Duration) (int64, error) {
	promql := fmt.Sprintf(
		"sum(increase(token_usage_total{sandbox_id=%q}[%dh]))",
		sandboxID, int(window.Hours()),
	)

	resp, err := c.query(ctx, promql)
	if err != nil {
		return 0, err
	}
	if len(resp.Data.Result) == 0 {
		return 0, nil
	}
	return int64(sampleValue(resp.Data.Result[0].Value)), nil
}
