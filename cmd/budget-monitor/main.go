package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"

	"github.com/rylie-seo/vendor-relay/internal/logging"
	"github.com/rylie-seo/vendor-relay/internal/monitor"
)

type monitorConfig struct {
	Port           int           `mapstructure:"port"`
	PrometheusURL  string        `mapstructure:"prometheus_url"`
	SlackWebhook   string        `mapstructure:"slack_webhook_url"`
	SlackChannel   string        `mapstructure:"slack_channel"`
	CostThreshold  float64       `mapstructure:"cost_threshold_usd"`
	WarningPercent float64       `mapstructure:"warning_threshold_percent"`
	CheckInterval  time.Duration `mapstructure:"check_interval"`
	TimeWindow     time.Duration `mapstructure:"time_window"`
	LogLevel       string        `mapstructure:"log_level"`
	LogFormat      string        `mapstructure:"log_format"`
}

func loadConfig(configPath string) (*monitorConfig, error) {
	v := viper.New()

	v.SetDefault("port", 8080)
	v.SetDefault("prometheus_url", "http://prometheus:9090")
	v.SetDefault("slack_webhook_url", "")
	v.SetDefault("slack_channel", "#alerts")
	v.SetDefault("cost_threshold_usd", 5.0)
	v.SetDefault("warning_threshold_percent", 70.0)
	v.SetDefault("check_interval", "15m")
	v.SetDefault("time_window", "24h")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("budget-monitor")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/rylie/relay")
	}

	v.SetEnvPrefix("MONITOR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg monitorConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	log.Printf("Starting budget monitor on port %d", cfg.Port)
	log.Printf("Prometheus URL: %s", cfg.PrometheusURL)
	log.Printf("Cost threshold: $%.2f, warning at %.0f%%, window %s, interval %s",
		cfg.CostThreshold, cfg.WarningPercent, cfg.TimeWindow, cfg.CheckInterval)

	var channel monitor.Channel
	if cfg.SlackWebhook != "" {
		channel = monitor.NewSlackChannel(cfg.SlackWebhook, cfg.SlackChannel, 10*time.Second)
	} else {
		log.Println("Slack webhook not configured; alerts go to the log only")
		channel = monitor.NewLogChannel(log.Printf)
	}

	m := monitor.New(
		monitor.NewPrometheusClient(cfg.PrometheusURL, 10*time.Second),
		channel,
		monitor.Config{
			CostThreshold:  cfg.CostThreshold,
			WarningPercent: cfg.WarningPercent,
			CheckInterval:  cfg.CheckInterval,
			TimeWindow:     cfg.TimeWindow,
		},
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		state := m.State()

		stale := !state.LastCheckTime.IsZero() &&
			time.Since(state.LastCheckTime) > 2*cfg.CheckInterval
		healthy := state.LastCheckStatus != "error" && !stale

		status := http.StatusOK
		overall := "healthy"
		if !healthy {
			status = http.StatusInternalServerError
			overall = "unhealthy"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":            overall,
			"last_check_time":   state.LastCheckTime,
			"last_check_status": state.LastCheckStatus,
			"last_check_error":  state.LastCheckError,
			"tenants_checked":   state.TenantsChecked,
			"alerts_active":     state.AlertsActive,
		})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Budget monitor listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down budget monitor...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Budget monitor stopped")
}
