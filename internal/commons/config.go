package commons

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"quartermaster/internal/config"
)

// LoadConfig reads configuration from a YAML file. When the file does not
// exist, configuration falls back to environment variables with defaults.
func LoadConfig(path string) (*config.Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}
