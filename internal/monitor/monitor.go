package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rylie-seo/vendor-relay/internal/logging"
)

// repeatSuppression is how long an unchanged alert stays quiet. A level
// change always re-alerts immediately.
const repeatSuppression = 6 * time.Hour

var (
	lastCheckTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "budget_monitor_last_check_timestamp_seconds",
		Help: "Unix time of the last completed cost check",
	})
	lastCheckSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "budget_monitor_last_check_success",
		Help: "1 if the last cost check succeeded, 0 otherwise",
	})
	alertsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "budget_monitor_alerts_sent_total",
		Help: "Budget alerts delivered, labeled by level",
	}, []string{"level"})
)

// Config holds the monitor's thresholds and cadence.
type Config struct {
	CostThreshold  float64
	WarningPercent float64
	CheckInterval  time.Duration
	TimeWindow     time.Duration
}

// State is a snapshot of the last check, read by the health endpoint.
type State struct {
	LastCheckTime   time.Time
	LastCheckStatus string
	LastCheckError  string
	TenantsChecked  int
	AlertsActive    int
}

type sentAlert struct {
	at    time.Time
	level string
}

// Monitor runs the periodic cost check loop. All mutable state lives
// behind the mutex; the health endpoint and the loop share nothing else.
type Monitor struct {
	prom    *PrometheusClient
	channel Channel
	cfg     Config
	logger  *logging.Logger
	now     func() time.Time

	mu      sync.Mutex
	state   State
	alerted map[string]sentAlert
}

func New(prom *PrometheusClient, channel Channel, cfg Config, logger *logging.Logger) *Monitor {
	return &Monitor{
		prom:    prom,
		channel: channel,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		state:   State{LastCheckStatus: "not started"},
		alerted: make(map[string]sentAlert),
	}
}

// State returns a copy of the last-check snapshot.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// warningThreshold derives the warning line from the critical threshold.
func (m *Monitor) warningThreshold() float64 {
	return m.cfg.CostThreshold * m.cfg.WarningPercent / 100
}

// classify maps a spend figure to an alert level, or "" below both lines.
func (m *Monitor) classify(cost float64) string {
	switch {
	case cost >= m.cfg.CostThreshold:
		return LevelCritical
	case cost >= m.warningThreshold():
		return LevelWarning
	default:
		return ""
	}
}

// shouldAlert applies the repeat-suppression policy and records the send
// decision. Callers only invoke it for costs already over a threshold.
func (m *Monitor) shouldAlert(sandboxID, level string, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, alerted := m.alerted[sandboxID]
	if alerted && prev.level == level && now.Sub(prev.at) < repeatSuppression {
		return false
	}

	m.alerted[sandboxID] = sentAlert{at: now, level: level}
	return true
}

// CheckOnce runs a single check-and-alert cycle.
func (m *Monitor) CheckOnce(ctx context.Context) error {
	now := m.now()

	costs, err := m.prom.SandboxCosts(ctx, m.cfg.TimeWindow)
	if err != nil {
		m.recordCheck(now, 0, err)
		return err
	}

	active := 0
	for _, sc := range costs {
		level := m.classify(sc.Cost)
		if level == "" {
			continue
		}
		active++

		if !m.shouldAlert(sc.SandboxID, level, now) {
			m.logger.InfoContext(ctx, "suppressed repeat budget alert",
				"sandbox_id", sc.SandboxID, "level", level)
			continue
		}

		// Breakdown and token usage are best-effort detail; a failed
		// lookup must not swallow the alert itself.
		breakdown, err := m.prom.CostBreakdown(ctx, sc.SandboxID, m.cfg.TimeWindow)
		if err != nil {
			m.logger.WarnContext(ctx, "cost breakdown lookup failed",
				"sandbox_id", sc.SandboxID, "error", err)
		}
		tokens, err := m.prom.TokenUsage(ctx, sc.SandboxID, m.cfg.TimeWindow)
		if err != nil {
			m.logger.WarnContext(ctx, "token usage lookup failed",
				"sandbox_id", sc.SandboxID, "error", err)
		}

		alert := &BudgetAlert{
			SandboxID:  sc.SandboxID,
			Cost:       sc.Cost,
			Threshold:  m.cfg.CostThreshold,
			Level:      level,
			Breakdown:  breakdown,
			TokenUsage: tokens,
			Window:     m.cfg.TimeWindow,
		}

		if err := m.channel.Send(ctx, alert); err != nil {
			m.logger.ErrorContext(ctx, "budget alert delivery failed",
				"sandbox_id", sc.SandboxID, "channel", m.channel.Type(), "error", err)
			// Allow a retry on the next cycle
			m.forgetAlert(sc.SandboxID)
			continue
		}

		alertsSent.WithLabelValues(level).Inc()
		m.logger.InfoContext(ctx, "sent budget alert",
			"sandbox_id", sc.SandboxID, "level", level, "cost", sc.Cost)
	}

	m.recordCheck(now, len(costs), nil)
	m.setActiveAlerts(active)
	return nil
}

func (m *Monitor) forgetAlert(sandboxID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.alerted, sandboxID)
}

func (m *Monitor) setActiveAlerts(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.AlertsActive = n
}

func (m *Monitor) recordCheck(at time.Time, tenants int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.LastCheckTime = at
	m.state.TenantsChecked = tenants
	lastCheckTimestamp.Set(float64(at.Unix()))

	if err != nil {
		m.state.LastCheckStatus = "error"
		m.state.LastCheckError = err.Error()
		lastCheckSuccess.Set(0)
		return
	}
	m.state.LastCheckStatus = "success"
	m.state.LastCheckError = ""
	lastCheckSuccess.Set(1)
}

// Run executes the check loop until the context is cancelled. The first
// check runs immediately.
func (m *Monitor) Run(ctx context.Context) {
	if err := m.CheckOnce(ctx); err != nil {
		m.logger.ErrorContext(ctx, "cost check failed", "error", err)
	}

	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.CheckOnce(ctx); err != nil {
				m.logger.ErrorContext(ctx, "cost check failed", "error", err)
			}
		}
	}
}
