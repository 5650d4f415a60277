package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/diillson/aws-cost-monitor-go/internal/domain/repository"
	"github.com/diillson/aws-cost-monitor-go/internal/shared/types"
	"github.com/pelletier/go-toml"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix é o prefixo opcional das variáveis de ambiente (COST_MONITOR_EMAIL_TO).
// The unprefixed name (EMAIL_TO) is accepted as well.
const EnvPrefix = "COST_MONITOR"

// ConfigRepositoryImpl implementa o ConfigRepository.
type ConfigRepositoryImpl struct{}

// NewConfigRepository cria uma nova implementação do ConfigRepository.
func NewConfigRepository() repository.ConfigRepository {
	return &ConfigRepositoryImpl{}
}

// LoadConfigFile carrega um arquivo de configuração TOML, YAML ou JSON.
// Keys missing from the file keep their default values.
func (r *ConfigRepositoryImpl) LoadConfigFile(filePath string) (*types.Config, error) {
	fileExtension := strings.ToLower(filepath.Ext(filePath))

	// Verifica se o arquivo existe
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("error accessing config file: %w", err)
	}

	if fileInfo.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a file", filePath)
	}

	fileData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// O arquivo é decodificado sobre os padrões: chaves presentes vencem, inclusive zero e false
	config := types.DefaultConfig()

	switch fileExtension {
	case ".toml":
		tree, err := toml.LoadBytes(fileData)
		if err != nil {
			return nil, fmt.Errorf("error parsing TOML file: %w", err)
		}
		if err := decodeOver(&config, tree.ToMap()); err != nil {
			return nil, fmt.Errorf("error parsing TOML file: %w", err)
		}
	case ".yaml", ".yml":
		var values map[string]interface{}
		if err := yaml.Unmarshal(fileData, &values); err != nil {
			return nil, fmt.Errorf("error parsing YAML file: %w", err)
		}
		if err := decodeOver(&config, values); err != nil {
			return nil, fmt.Errorf("error parsing YAML file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(fileData, &config); err != nil {
			return nil, fmt.Errorf("error parsing JSON file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", fileExtension)
	}

	return &config, nil
}

// decodeOver aplica as chaves presentes em values sobre cfg; chaves ausentes ficam intactas.
// The values go through encoding/json so every format shares the json tags of types.Config.
func decodeOver(cfg *types.Config, values map[string]interface{}) error {
	if len(values) == 0 {
		return nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}

// envBinding liga uma chave de configuração ao campo correspondente.
type envBinding struct {
	key   string
	apply func(cfg *types.Config, raw string) error
}

var envBindings = []envBinding{
	{"timezone", setString(func(c *types.Config) *string { return &c.Timezone })},
	{"baseline", setString(func(c *types.Config) *string { return &c.Baseline })},
	{"anomaly_threshold_percent", setFloat(func(c *types.Config) *float64 { return &c.AnomalyThresholdPct })},
	{"anomaly_threshold_dollars", setFloat(func(c *types.Config) *float64 { return &c.AnomalyThresholdUSD })},
	{"ai_service_multiplier", setFloat(func(c *types.Config) *float64 { return &c.AIServiceMultiplier })},
	{"critical_ai_dollar_floor", setFloat(func(c *types.Config) *float64 { return &c.CriticalAIDollarFloor })},
	{"extreme_increase_percent", setFloat(func(c *types.Config) *float64 { return &c.ExtremeIncreasePct })},
	{"extreme_increase_min_dollars", setFloat(func(c *types.Config) *float64 { return &c.ExtremeIncreaseMinUSD })},
	{"ai_services", setList(func(c *types.Config) *[]string { return &c.AIServices })},
	{"negative_amount_bound", setFloat(func(c *types.Config) *float64 { return &c.NegativeAmountBound })},
	{"exclude_unknown_accounts", setBool(func(c *types.Config) *bool { return &c.ExcludeUnknownAccounts })},
	{"email_from", setString(func(c *types.Config) *string { return &c.EmailFrom })},
	{"email_to", setList(func(c *types.Config) *[]string { return &c.EmailTo })},
	{"rate_limit_per_hour", setInt(func(c *types.Config) *int { return &c.RateLimitPerHour })},
	{"dedup_window", setString(func(c *types.Config) *string { return &c.DedupWindow })},
	{"quota_safety_margin", setFloat(func(c *types.Config) *float64 { return &c.QuotaSafetyMargin })},
	{"always_send_report", setBool(func(c *types.Config) *bool { return &c.AlwaysSendReport })},
	{"profile", setString(func(c *types.Config) *string { return &c.Profile })},
	{"region", setString(func(c *types.Config) *string { return &c.Region })},
	{"max_pages", setInt(func(c *types.Config) *int { return &c.MaxPages })},
	{"store", setString(func(c *types.Config) *string { return &c.Store })},
	{"store_path", setString(func(c *types.Config) *string { return &c.StorePath })},
	{"schedule", setString(func(c *types.Config) *string { return &c.Schedule })},
	{"metrics_addr", setString(func(c *types.Config) *string { return &c.MetricsAddr })},
	{"report_name", setString(func(c *types.Config) *string { return &c.ReportName })},
	{"report_type", setList(func(c *types.Config) *[]string { return &c.ReportType })},
	{"dir", setString(func(c *types.Config) *string { return &c.Dir })},
}

// LoadEnvironment sobrepõe variáveis de ambiente à configuração.
// Each key is read from COST_MONITOR_<KEY> or <KEY>; lists are comma separated.
func (r *ConfigRepositoryImpl) LoadEnvironment(cfg *types.Config) error {
	v := viper.New()
	v.AllowEmptyEnv(false)

	for _, b := range envBindings {
		upper := strings.ToUpper(b.key)
		if err := v.BindEnv(b.key, EnvPrefix+"_"+upper, upper); err != nil {
			return fmt.Errorf("failed to bind environment for %s: %w", b.key, err)
		}
	}

	for _, b := range envBindings {
		if !v.IsSet(b.key) {
			continue
		}
		raw := strings.TrimSpace(v.GetString(b.key))
		if raw == "" {
			continue
		}
		if err := b.apply(cfg, raw); err != nil {
			return &types.ConfigurationError{Key: b.key, Err: err}
		}
	}
	return nil
}

func setString(field func(*types.Config) *string) func(*types.Config, string) error {
	return func(cfg *types.Config, raw string) error {
		*field(cfg) = raw
		return nil
	}
}

func setFloat(field func(*types.Config) *float64) func(*types.Config, string) error {
	return func(cfg *types.Config, raw string) error {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", raw)
		}
		*field(cfg) = v
		return nil
	}
}

func setInt(field func(*types.Config) *int) func(*types.Config, string) error {
	return func(cfg *types.Config, raw string) error {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid integer %q", raw)
		}
		*field(cfg) = v
		return nil
	}
}

func setBool(field func(*types.Config) *bool) func(*types.Config, string) error {
	return func(cfg *types.Config, raw string) error {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", raw)
		}
		*field(cfg) = v
		return nil
	}
}

func setList(field func(*types.Config) *[]string) func(*types.Config, string) error {
	return func(cfg *types.Config, raw string) error {
		*field(cfg) = SplitList(raw)
		return nil
	}
}

// SplitList separa valores por vírgula, descartando itens vazios.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
