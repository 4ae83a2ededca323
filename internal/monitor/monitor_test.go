package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rylie-seo/vendor-relay/internal/logging"
)

type capturingChannel struct {
	mu     sync.Mutex
	alerts []*BudgetAlert
	err    error
}

func (c *capturingChannel) Send(ctx context.Context, alert *BudgetAlert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.alerts = append(c.alerts, alert)
	return nil
}

func (c *capturingChannel) Type() string { return "capturing" }

func (c *capturingChannel) sent() []*BudgetAlert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*BudgetAlert(nil), c.alerts...)
}

// fakePrometheus serves canned instant-query vectors keyed by a substring
// of the PromQL expression.
func fakePrometheus(t *testing.T, costs map[string]float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")

		result := []map[string]interface{}{}
		switch {
		case strings.Contains(query, "sum by(sandbox_id)"):
			for id, cost := range costs {
				result = append(result, map[string]interface{}{
					"metric": map[string]string{"sandbox_id": id},
					"value":  []interface{}{1756600000, fmt.Sprintf("%f", cost)},
				})
			}
		case strings.Contains(query, "operation_type"):
			result = append(result, map[string]interface{}{
				"metric": map[string]string{"operation_type": "chat_completion"},
				"value":  []interface{}{1756600000, "3.50"},
			})
		case strings.Contains(query, "token_usage_total"):
			result = append(result, map[string]interface{}{
				"metric": map[string]string{},
				"value":  []interface{}{1756600000, "125000"},
			})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"data":   map[string]interface{}{"result": result, "resultType": "vector"},
		})
	}))
}

func newTestMonitor(t *testing.T, promURL string, ch Channel) *Monitor {
	t.Helper()
	return New(
		NewPrometheusClient(promURL, 5*time.Second),
		ch,
		Config{
			CostThreshold:  5.0,
			WarningPercent: 70.0,
			CheckInterval:  time.Minute,
			TimeWindow:     24 * time.Hour,
		},
		logging.New(slog.LevelError, "text"),
	)
}

func TestClassify(t *testing.T) {
	m := newTestMonitor(t, "http://unused", &capturingChannel{})

	tests := []struct {
		cost float64
		want string
	}{
		{0.0, ""},
		{3.49, ""},
		{3.5, LevelWarning}, // 70% of $5
		{4.99, LevelWarning},
		{5.0, LevelCritical},
		{12.0, LevelCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, m.classify(tt.cost), "cost %.2f", tt.cost)
	}
}

func TestCheckOnceAlertsOverThreshold(t *testing.T) {
	prom := fakePrometheus(t, map[string]float64{
		"sandbox-cheap":    0.40,
		"sandbox-warning":  4.00,
		"sandbox-critical": 7.25,
	})
	defer prom.Close()

	ch := &capturingChannel{}
	m := newTestMonitor(t, prom.URL, ch)

	require.NoError(t, m.CheckOnce(context.Background()))

	alerts := ch.sent()
	require.Len(t, alerts, 2)

	byID := map[string]*BudgetAlert{}
	for _, a := range alerts {
		byID[a.SandboxID] = a
	}

	require.Contains(t, byID, "sandbox-warning")
	assert.Equal(t, LevelWarning, byID["sandbox-warning"].Level)

	require.Contains(t, byID, "sandbox-critical")
	assert.Equal(t, LevelCritical, byID["sandbox-critical"].Level)
	assert.InDelta(t, 7.25, byID["sandbox-critical"].Cost, 0.001)
	assert.EqualValues(t, 125000, byID["sandbox-critical"].TokenUsage)
	assert.InDelta(t, 3.50, byID["sandbox-critical"].Breakdown["chat_completion"], 0.001)

	state := m.State()
	assert.Equal(t, "success", state.LastCheckStatus)
	assert.Equal(t, 3, state.TenantsChecked)
	assert.Equal(t, 2, state.AlertsActive)
}

func TestRepeatAlertSuppression(t *testing.T) {
	prom := fakePrometheus(t, map[string]float64{"sandbox-hot": 9.0})
	defer prom.Close()

	ch := &capturingChannel{}
	m := newTestMonitor(t, prom.URL, ch)

	base := time.Now()
	m.now = func() time.Time { return base }

	require.NoError(t, m.CheckOnce(context.Background()))
	require.Len(t, ch.sent(), 1)

	// Same level shortly after: suppressed
	m.now = func() time.Time { return base.Add(time.Hour) }
	require.NoError(t, m.CheckOnce(context.Background()))
	assert.Len(t, ch.sent(), 1)

	// Past the suppression window: re-alerts
	m.now = func() time.Time { return base.Add(repeatSuppression + time.Minute) }
	require.NoError(t, m.CheckOnce(context.Background()))
	assert.Len(t, ch.sent(), 2)
}

func TestLevelChangeBypassesSuppression(t *testing.T) {
	ch := &capturingChannel{}
	m := newTestMonitor(t, "http://unused", ch)

	now := time.Now()
	assert.True(t, m.shouldAlert("sandbox-1", LevelWarning, now))
	assert.False(t, m.shouldAlert("sandbox-1", LevelWarning, now.Add(time.Hour)))

	// Escalation alerts immediately regardless of the last send time
	assert.True(t, m.shouldAlert("sandbox-1", LevelCritical, now.Add(time.Hour)))
}

func TestFailedDeliveryRetriesNextCycle(t *testing.T) {
	prom := fakePrometheus(t, map[string]float64{"sandbox-hot": 9.0})
	defer prom.Close()

	ch := &capturingChannel{err: fmt.Errorf("webhook down")}
	m := newTestMonitor(t, prom.URL, ch)

	require.NoError(t, m.CheckOnce(context.Background()))
	assert.Empty(t, ch.sent())

	// Channel recovers: the very next cycle delivers
	ch.mu.Lock()
	ch.err = nil
	ch.mu.Unlock()

	require.NoError(t, m.CheckOnce(context.Background()))
	assert.Len(t, ch.sent(), 1)
}

func TestCheckOnceRecordsPrometheusFailure(t *testing.T) {
	prom := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer prom.Close()

	m := newTestMonitor(t, prom.URL, &capturingChannel{})

	require.Error(t, m.CheckOnce(context.Background()))

	state := m.State()
	assert.Equal(t, "error", state.LastCheckStatus)
	assert.NotEmpty(t, state.LastCheckError)
}

func TestSlackChannelPayload(t *testing.T) {
	var received map[string]interface{}
	slack := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer slack.Close()

	ch := NewSlackChannel(slack.URL, "#alerts", 5*time.Second)
	err := ch.Send(context.Background(), &BudgetAlert{
		SandboxID:  "sandbox-42",
		Cost:       6.40,
		Threshold:  5.0,
		Level:      LevelCritical,
		Breakdown:  map[string]float64{"chat_completion": 5.1, "embedding": 1.3},
		TokenUsage: 98000,
		Window:     24 * time.Hour,
	})
	require.NoError(t, err)

	assert.Equal(t, "#alerts", received["channel"])
	attachments := received["attachments"].([]interface{})
	require.Len(t, attachments, 1)
	attachment := attachments[0].(map[string]interface{})
	assert.Equal(t, "#ff0000", attachment["color"])
	assert.Contains(t, attachment["title"], "CRITICAL")
	assert.Contains(t, attachment["text"], "sandbox-42")
	assert.Contains(t, attachment["text"], "$6.40")
}

func TestSlackChannelRejectedWebhook(t *testing.T) {
	slack := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer slack.Close()

	ch := NewSlackChannel(slack.URL, "#alerts", 5*time.Second)
	err := ch.Send(context.Background(), &BudgetAlert{SandboxID: "s", Level: LevelWarning})
	assert.Error(t, err)
}

func TestPrometheusClientParsesVector(t *testing.T) {
	prom := fakePrometheus(t, map[string]float64{"sandbox-a": 1.25, "sandbox-b": 0.10})
	defer prom.Close()

	client := NewPrometheusClient(prom.URL, 5*time.Second)
	costs, err := client.SandboxCosts(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, costs, 2)

	total := 0.0
	for _, c := range costs {
		total += c.Cost
	}
	assert.InDelta(t, 1.35, total, 0.001)
}
