package repository

import (
	"github.com/diillson/aws-cost-monitor-go/internal/shared/types"
)

// ConfigRepository defines the interface for loading configuration.
type ConfigRepository interface {
	// LoadConfigFile decodes a TOML, YAML or JSON file into a Config.
	LoadConfigFile(filePath string) (*types.Config, error)
	// LoadEnvironment overlays environment variables on top of cfg.
	LoadEnvironment(cfg *types.Config) error
}
