package resolver

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Config tunes the cascade. Provider order is fixed; only enablement and
// result counts are configurable.
type Config struct {
	Providers ProvidersConfig `yaml:"providers"`
}

// ProvidersConfig holds per-provider knobs.
type ProvidersConfig struct {
	Datagen ProviderConfig `yaml:"datagen"`
	Linkup  ProviderConfig `yaml:"linkup"`
	Exa     ProviderConfig `yaml:"exa"`
}

// ProviderConfig enables or disables one provider.
type ProviderConfig struct {
	Enabled    bool `yaml:"enabled"`
	NumResults int  `yaml:"num_results,omitempty"`
}

// DefaultConfig enables every provider.
func DefaultConfig() Config {
	return Config{
		Providers: ProvidersConfig{
			Datagen: ProviderConfig{Enabled: true},
			Linkup:  ProviderConfig{Enabled: true},
			Exa:     ProviderConfig{Enabled: true, NumResults: 5},
		},
	}
}

// LoadConfig reads an optional resolver.yaml. A missing file returns the
// defaults without error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, eris.Wrap(err, "resolver: read config")
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, eris.Wrap(err, "resolver: parse config")
	}
	if cfg.Providers.Exa.NumResults <= 0 {
		cfg.Providers.Exa.NumResults = 5
	}
	return cfg, nil
}
