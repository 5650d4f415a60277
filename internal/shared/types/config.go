package types

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diillson/aws-cost-monitor-go/internal/domain/entity"
)

// Config represents the application configuration that can be loaded from a file.
// Durations are Go duration strings ("30m", "1h").
type Config struct {
	Timezone               string   `json:"timezone" yaml:"timezone" toml:"timezone" mapstructure:"timezone"`
	Baseline               string   `json:"baseline" yaml:"baseline" toml:"baseline" mapstructure:"baseline"`
	AnomalyThresholdPct    float64  `json:"anomaly_threshold_percent" yaml:"anomaly_threshold_percent" toml:"anomaly_threshold_percent" mapstructure:"anomaly_threshold_percent"`
	AnomalyThresholdUSD    float64  `json:"anomaly_threshold_dollars" yaml:"anomaly_threshold_dollars" toml:"anomaly_threshold_dollars" mapstructure:"anomaly_threshold_dollars"`
	AIServiceMultiplier    float64  `json:"ai_service_multiplier" yaml:"ai_service_multiplier" toml:"ai_service_multiplier" mapstructure:"ai_service_multiplier"`
	CriticalAIDollarFloor  float64  `json:"critical_ai_dollar_floor" yaml:"critical_ai_dollar_floor" toml:"critical_ai_dollar_floor" mapstructure:"critical_ai_dollar_floor"`
	AIServices             []string `json:"ai_services" yaml:"ai_services" toml:"ai_services" mapstructure:"ai_services"`
	ExtremeIncreasePct     float64  `json:"extreme_increase_percent" yaml:"extreme_increase_percent" toml:"extreme_increase_percent" mapstructure:"extreme_increase_percent"`
	ExtremeIncreaseMinUSD  float64  `json:"extreme_increase_min_dollars" yaml:"extreme_increase_min_dollars" toml:"extreme_increase_min_dollars" mapstructure:"extreme_increase_min_dollars"`
	NegativeAmountBound    float64  `json:"negative_amount_bound" yaml:"negative_amount_bound" toml:"negative_amount_bound" mapstructure:"negative_amount_bound"`
	ExcludeUnknownAccounts bool     `json:"exclude_unknown_accounts" yaml:"exclude_unknown_accounts" toml:"exclude_unknown_accounts" mapstructure:"exclude_unknown_accounts"`

	EmailFrom         string   `json:"email_from" yaml:"email_from" toml:"email_from" mapstructure:"email_from"`
	EmailTo           []string `json:"email_to" yaml:"email_to" toml:"email_to" mapstructure:"email_to"`
	RateLimitPerHour  int      `json:"rate_limit_per_hour" yaml:"rate_limit_per_hour" toml:"rate_limit_per_hour" mapstructure:"rate_limit_per_hour"`
	DedupWindow       string   `json:"dedup_window" yaml:"dedup_window" toml:"dedup_window" mapstructure:"dedup_window"`
	QuotaSafetyMargin float64  `json:"quota_safety_margin" yaml:"quota_safety_margin" toml:"quota_safety_margin" mapstructure:"quota_safety_margin"`
	AlwaysSendReport  bool     `json:"always_send_report" yaml:"always_send_report" toml:"always_send_report" mapstructure:"always_send_report"`

	Profile  string `json:"profile" yaml:"profile" toml:"profile" mapstructure:"profile"`
	Region   string `json:"region" yaml:"region" toml:"region" mapstructure:"region"`
	MaxPages int    `json:"max_pages" yaml:"max_pages" toml:"max_pages" mapstructure:"max_pages"`

	Store     string `json:"store" yaml:"store" toml:"store" mapstructure:"store"`
	StorePath string `json:"store_path" yaml:"store_path" toml:"store_path" mapstructure:"store_path"`

	Schedule    string `json:"schedule" yaml:"schedule" toml:"schedule" mapstructure:"schedule"`
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr" toml:"metrics_addr" mapstructure:"metrics_addr"`

	ReportName string   `json:"report_name" yaml:"report_name" toml:"report_name" mapstructure:"report_name"`
	ReportType []string `json:"report_type" yaml:"report_type" toml:"report_type" mapstructure:"report_type"`
	Dir        string   `json:"dir" yaml:"dir" toml:"dir" mapstructure:"dir"`
}

const (
	// StoreAuto deixa o comando escolher o store (ver ResolveStore).
	StoreAuto   = ""
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// ResolveStore fills an unset store. One-shot runs keep rate-limit and dedup counters in SQLite
// so they carry over to the next invocation; a long-running process keeps them in memory.
func (c *Config) ResolveStore(oneShot bool) {
	if c.Store != StoreAuto {
		return
	}
	if oneShot {
		c.Store = StoreSQLite
		return
	}
	c.Store = StoreMemory
}

// DefaultConfig returns the configuration used when neither file nor environment set a key.
func DefaultConfig() Config {
	return Config{
		Timezone:              "UTC",
		Baseline:              string(entity.BaselinePreviousDay),
		AnomalyThresholdPct:   50,
		AnomalyThresholdUSD:   50,
		AIServiceMultiplier:   0.5,
		CriticalAIDollarFloor: 100,
		AIServices:            append([]string(nil), entity.DefaultAIServices...),
		ExtremeIncreasePct:    500,
		ExtremeIncreaseMinUSD: 10,
		NegativeAmountBound:   10000,
		EmailFrom:             "noreply@awscostmonitor.com",
		RateLimitPerHour:      10,
		DedupWindow:           "30m",
		QuotaSafetyMargin:     0.8,
		MaxPages:              20,
		Store:                 StoreAuto,
		StorePath:             "cost-monitor.db",
		Schedule:              "0 */6 * * *",
		MetricsAddr:           ":9102",
		ReportName:            "aws-cost-report",
		Dir:                   ".",
	}
}

// DedupDuration parses DedupWindow.
func (c *Config) DedupDuration() (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(c.DedupWindow))
	if err != nil {
		return 0, NewConfigurationError("dedup_window", "invalid duration %q: %v", c.DedupWindow, err)
	}
	if d <= 0 {
		return 0, NewConfigurationError("dedup_window", "must be positive, got %s", d)
	}
	return d, nil
}

// Validate checks every key; it returns the first *ConfigurationError found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Timezone) == "" {
		return NewConfigurationError("timezone", "timezone must not be empty")
	}
	if _, err := time.LoadLocation(strings.TrimSpace(c.Timezone)); err != nil {
		return &ConfigurationError{Key: "timezone", Err: err}
	}
	if !entity.BaselineMode(c.Baseline).Valid() {
		return NewConfigurationError("baseline", "unsupported baseline mode %q (use %s or %s)",
			c.Baseline, entity.BaselinePreviousDay, entity.BaselineSameWeekday)
	}

	for _, v := range []struct {
		key   string
		value float64
	}{
		{"anomaly_threshold_percent", c.AnomalyThresholdPct},
		{"anomaly_threshold_dollars", c.AnomalyThresholdUSD},
		{"critical_ai_dollar_floor", c.CriticalAIDollarFloor},
		{"extreme_increase_percent", c.ExtremeIncreasePct},
		{"extreme_increase_min_dollars", c.ExtremeIncreaseMinUSD},
		{"negative_amount_bound", c.NegativeAmountBound},
	} {
		if v.value < 0 {
			return NewConfigurationError(v.key, "must not be negative, got %v", v.value)
		}
	}
	if c.AIServiceMultiplier <= 0 {
		return NewConfigurationError("ai_service_multiplier", "must be positive, got %v", c.AIServiceMultiplier)
	}

	if strings.TrimSpace(c.EmailFrom) == "" {
		return &ConfigurationError{Key: "email_from", Err: ErrNoSender}
	}
	if len(c.EmailTo) == 0 {
		return &ConfigurationError{Key: "email_to", Err: ErrNoRecipients}
	}
	if c.RateLimitPerHour < 1 {
		return NewConfigurationError("rate_limit_per_hour", "must be at least 1, got %d", c.RateLimitPerHour)
	}
	if _, err := c.DedupDuration(); err != nil {
		return err
	}
	if c.QuotaSafetyMargin <= 0 || c.QuotaSafetyMargin > 1 {
		return NewConfigurationError("quota_safety_margin", "must be in (0, 1], got %v", c.QuotaSafetyMargin)
	}
	if c.MaxPages < 1 {
		return NewConfigurationError("max_pages", "must be at least 1, got %d", c.MaxPages)
	}

	switch c.Store {
	case StoreAuto, StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(c.StorePath) == "" {
			return NewConfigurationError("store_path", "required when store is %s", StoreSQLite)
		}
	default:
		return NewConfigurationError("store", "unsupported store %q (use %s or %s)", c.Store, StoreMemory, StoreSQLite)
	}

	for _, rt := range c.ReportType {
		switch strings.ToLower(rt) {
		case "csv", "json", "pdf":
		default:
			return &ConfigurationError{Key: "report_type", Err: fmt.Errorf("unsupported report type %q: %w", rt, errUnsupportedReport)}
		}
	}
	return nil
}

var errUnsupportedReport = errors.New("supported types are csv, json and pdf")
