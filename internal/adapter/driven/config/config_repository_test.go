package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/diillson/aws-cost-monitor-go/internal/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFile_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "toml",
			file: "config.toml",
			content: `timezone = "America/New_York"
anomaly_threshold_percent = 25.0
email_to = ["ops@example.com", "finops@example.com"]
baseline = "same_weekday"
`,
		},
		{
			name: "yaml",
			file: "config.yaml",
			content: `timezone: America/New_York
anomaly_threshold_percent: 25
email_to:
  - ops@example.com
  - finops@example.com
baseline: same_weekday
`,
		},
		{
			name:    "json",
			file:    "config.json",
			content: `{"timezone":"America/New_York","anomaly_threshold_percent":25,"email_to":["ops@example.com","finops@example.com"],"baseline":"same_weekday"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewConfigRepository().LoadConfigFile(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)

			assert.Equal(t, "America/New_York", cfg.Timezone)
			assert.Equal(t, 25.0, cfg.AnomalyThresholdPct)
			assert.Equal(t, []string{"ops@example.com", "finops@example.com"}, cfg.EmailTo)
			assert.Equal(t, "same_weekday", cfg.Baseline)

			// chaves ausentes mantêm o padrão
			assert.Equal(t, 50.0, cfg.AnomalyThresholdUSD)
			assert.Equal(t, 10, cfg.RateLimitPerHour)
			assert.Equal(t, "30m", cfg.DedupWindow)
			assert.Len(t, cfg.AIServices, 8)
			require.NoError(t, cfg.Validate())
		})
	}
}

func TestLoadConfigFile_ExplicitZeroValuesOverrideDefaults(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "toml",
			file: "config.toml",
			content: `anomaly_threshold_dollars = 0
negative_amount_bound = 0
extreme_increase_percent = 0
exclude_unknown_accounts = false
ai_services = []
`,
		},
		{
			name: "yaml",
			file: "config.yaml",
			content: `anomaly_threshold_dollars: 0
negative_amount_bound: 0
extreme_increase_percent: 0
exclude_unknown_accounts: false
ai_services: []
`,
		},
		{
			name:    "json",
			file:    "config.json",
			content: `{"anomaly_threshold_dollars":0,"negative_amount_bound":0,"extreme_increase_percent":0,"exclude_unknown_accounts":false,"ai_services":[]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewConfigRepository().LoadConfigFile(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)

			assert.Zero(t, cfg.AnomalyThresholdUSD)
			assert.Zero(t, cfg.NegativeAmountBound)
			assert.Zero(t, cfg.ExtremeIncreasePct)
			assert.False(t, cfg.ExcludeUnknownAccounts)
			assert.Empty(t, cfg.AIServices)

			// chaves ausentes mantêm o padrão
			assert.Equal(t, 50.0, cfg.AnomalyThresholdPct)
			assert.Equal(t, 10.0, cfg.ExtremeIncreaseMinUSD)
			assert.Equal(t, "UTC", cfg.Timezone)
		})
	}
}

func TestLoadConfigFile_TypeMismatch(t *testing.T) {
	_, err := NewConfigRepository().LoadConfigFile(writeFile(t, "config.yaml", "rate_limit_per_hour: lots\n"))
	assert.ErrorContains(t, err, "error parsing YAML file")
}

func TestLoadConfigFile_Errors(t *testing.T) {
	repo := NewConfigRepository()

	_, err := repo.LoadConfigFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "error accessing config file")

	_, err = repo.LoadConfigFile(t.TempDir())
	assert.ErrorContains(t, err, "is a directory")

	_, err = repo.LoadConfigFile(writeFile(t, "config.ini", "a=b"))
	assert.ErrorContains(t, err, "unsupported config file format")

	_, err = repo.LoadConfigFile(writeFile(t, "config.json", "{"))
	assert.ErrorContains(t, err, "error parsing JSON file")
}

func TestLoadEnvironment_Overrides(t *testing.T) {
	t.Setenv("EMAIL_TO", "a@example.com, b@example.com,,")
	t.Setenv("ANOMALY_THRESHOLD_PERCENT", "75")
	t.Setenv("COST_MONITOR_RATE_LIMIT_PER_HOUR", "3")
	t.Setenv("ALWAYS_SEND_REPORT", "true")
	t.Setenv("TIMEZONE", "")

	cfg := types.DefaultConfig()
	require.NoError(t, NewConfigRepository().LoadEnvironment(&cfg))

	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.EmailTo)
	assert.Equal(t, 75.0, cfg.AnomalyThresholdPct)
	assert.Equal(t, 3, cfg.RateLimitPerHour)
	assert.True(t, cfg.AlwaysSendReport)
	assert.Equal(t, "UTC", cfg.Timezone, "empty variables are ignored")
}

func TestLoadEnvironment_PrefixWins(t *testing.T) {
	t.Setenv("COST_MONITOR_EMAIL_FROM", "prefixed@example.com")
	t.Setenv("EMAIL_FROM", "plain@example.com")

	cfg := types.DefaultConfig()
	require.NoError(t, NewConfigRepository().LoadEnvironment(&cfg))

	assert.Equal(t, "prefixed@example.com", cfg.EmailFrom)
}

func TestLoadEnvironment_InvalidNumber(t *testing.T) {
	t.Setenv("ANOMALY_THRESHOLD_DOLLARS", "fifty")

	cfg := types.DefaultConfig()
	err := NewConfigRepository().LoadEnvironment(&cfg)

	var cfgErr *types.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "anomaly_threshold_dollars", cfgErr.Key)
}

func TestValidate(t *testing.T) {
	valid := func() types.Config {
		cfg := types.DefaultConfig()
		cfg.EmailTo = []string{"ops@example.com"}
		return cfg
	}

	require.NoError(t, func() error { c := valid(); return c.Validate() }())

	tests := []struct {
		name   string
		mutate func(*types.Config)
		key    string
	}{
		{"empty timezone", func(c *types.Config) { c.Timezone = " " }, "timezone"},
		{"unknown timezone", func(c *types.Config) { c.Timezone = "Mars/Olympus_Mons" }, "timezone"},
		{"baseline", func(c *types.Config) { c.Baseline = "last_year" }, "baseline"},
		{"negative threshold", func(c *types.Config) { c.AnomalyThresholdUSD = -1 }, "anomaly_threshold_dollars"},
		{"zero multiplier", func(c *types.Config) { c.AIServiceMultiplier = 0 }, "ai_service_multiplier"},
		{"no sender", func(c *types.Config) { c.EmailFrom = "" }, "email_from"},
		{"no recipients", func(c *types.Config) { c.EmailTo = nil }, "email_to"},
		{"rate limit", func(c *types.Config) { c.RateLimitPerHour = 0 }, "rate_limit_per_hour"},
		{"dedup window", func(c *types.Config) { c.DedupWindow = "soon" }, "dedup_window"},
		{"quota margin", func(c *types.Config) { c.QuotaSafetyMargin = 1.5 }, "quota_safety_margin"},
		{"max pages", func(c *types.Config) { c.MaxPages = 0 }, "max_pages"},
		{"store", func(c *types.Config) { c.Store = "redis" }, "store"},
		{"store path", func(c *types.Config) { c.Store = types.StoreSQLite; c.StorePath = "" }, "store_path"},
		{"report type", func(c *types.Config) { c.ReportType = []string{"xlsx"} }, "report_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()

			var cfgErr *types.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.key, cfgErr.Key)
		})
	}
}

func TestValidate_SentinelErrors(t *testing.T) {
	cfg := types.DefaultConfig()
	assert.ErrorIs(t, cfg.Validate(), types.ErrNoRecipients)

	cfg.EmailTo = []string{"ops@example.com"}
	cfg.EmailFrom = ""
	assert.ErrorIs(t, cfg.Validate(), types.ErrNoSender)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList(" a ,b,, "))
	assert.Nil(t, SplitList(""))
}
