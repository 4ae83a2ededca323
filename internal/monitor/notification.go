package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"
)

// Alert levels in ascending severity.
const (
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// BudgetAlert describes one tenant exceeding a spend threshold.
type BudgetAlert struct {
	SandboxID  string
	Cost       float64
	Threshold  float64
	Level      string
	Breakdown  map[string]float64
	TokenUsage int64
	Window     time.Duration
}

// Channel defines the interface for budget alert delivery.
type Channel interface {
	Send(ctx context.Context, alert *BudgetAlert) error
	Type() string
}

// SlackChannel sends budget alerts to Slack via webhook.
type SlackChannel struct {
	WebhookURL string
	SlackChan  string
	client     *http.Client
}

// NewSlackChannel creates a Slack notification channel.
func NewSlackChannel(webhookURL, channel string, timeout time.Duration) *SlackChannel {
	return &SlackChannel{
		WebhookURL: webhookURL,
		SlackChan:  channel,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *SlackChannel) Type() string {
	return "slack"
}

func (s *SlackChannel) Send(ctx context.Context, alert *BudgetAlert) error {
	payload := map[string]interface{}{
		"channel":     s.SlackChan,
		"attachments": []map[string]interface{}{s.attachment(alert)},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}

	return nil
}

func (s *SlackChannel) attachment(alert *BudgetAlert) map[string]interface{} {
	color := "#ff9800"
	title := "WARNING: Sandbox Cost Alert"
	if alert.Level == LevelCritical {
		color = "#ff0000"
		title = "CRITICAL: Sandbox Cost Alert"
	}

	percent := 0.0
	if alert.Threshold > 0 {
		percent = alert.Cost / alert.Threshold * 100
	}

	return map[string]interface{}{
		"color": color,
		"title": title,
		"text": fmt.Sprintf(
			"Sandbox *%s* has spent *$%.2f* in the last %d hours, which is *%.1f%%* of the $%.2f threshold.",
			alert.SandboxID, alert.Cost, int(alert.Window.Hours()), percent, alert.Threshold,
		),
		"fields": []map[string]interface{}{
			{"title": "Sandbox ID", "value": alert.SandboxID, "short": true},
			{"title": "Current Cost", "value": fmt.Sprintf("$%.2f", alert.Cost), "short": true},
			{"title": "Threshold", "value": fmt.Sprintf("$%.2f", alert.Threshold), "short": true},
			{"title": "Token Usage", "value": fmt.Sprintf("%d", alert.TokenUsage), "short": true},
			{"title": "Alert Level", "value": alert.Level, "short": true},
			{"title": "Cost Breakdown", "value": breakdownText(alert.Breakdown), "short": false},
		},
		"footer": "Rylie SEO Budget Monitor",
		"ts":     time.Now().Unix(),
	}
}

func breakdownText(breakdown map[string]float64) string {
	if len(breakdown) == 0 {
		return "No breakdown available"
	}

	ops := make([]string, 0, len(breakdown))
	for op := range breakdown {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	var buf bytes.Buffer
	for i, op := range ops {
		if i > 0 {
			buf.WriteString("\n")
		}
		fmt.Fprintf(&buf, "*%s*: $%.2f", op, breakdown[op])
	}
	return buf.String()
}

// LogChannel writes budget alerts to logs (for testing/debugging).
type LogChannel struct {
	logger func(format string, v ...interface{})
}

// NewLogChannel creates a log-based notification channel.
func NewLogChannel(logger func(format string, v ...interface{})) *LogChannel {
	return &LogChannel{logger: logger}
}

func (l *LogChannel) Type() string {
	return "log"
}

func (l *LogChannel) Send(ctx context.Context, alert *BudgetAlert) error {
	l.logger("BUDGET ALERT: sandbox=%s cost=$%.2f threshold=$%.2f level=%s tokens=%d",
		alert.SandboxID, alert.Cost, alert.Threshold, alert.Level, alert.TokenUsage)
	return nil
}
