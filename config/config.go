// Package config contains the metavote client configuration definitions.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/metapool/go-metavote/gateway"
	"github.com/metapool/go-metavote/orchestrator"
	"github.com/metapool/go-metavote/vpower"
)

const (
	defaultConfigFileName = "./metavote.toml"
	defaultDataDirName    = ".metavote"
	defaultKeyFileName    = "key.json"
)

// Config defines the top level configuration for the metavote client.
type Config struct {
	BaseConfig   `mapstructure:"main"`
	Gateway      gateway.Config      `mapstructure:"gateway"`
	Orchestrator orchestrator.Config `mapstructure:"orchestrator"`
	// Locking holds the compiled locking period bounds, used only for
	// offline previews. The ledger's own bounds override them at runtime.
	Locking vpower.Bounds `mapstructure:"locking"`
	LOGGING LoggerConfig  `mapstructure:"logging"`
}

// BaseConfig defines the default configuration options for the metavote app.
type BaseConfig struct {
	ConfigFile string `mapstructure:"config"`

	// Account is the voter account transactions are signed for.
	Account string `mapstructure:"account"`
	// KeyFile holds the signing key. Created by `metavote init`.
	KeyFile string `mapstructure:"key-file"`

	// AssumeYes skips interactive confirmation prompts.
	AssumeYes bool `mapstructure:"yes"`

	CollectMetrics bool `mapstructure:"metrics"`
	MetricsPort    int  `mapstructure:"metrics-port"`
}

// DefaultConfig returns the default configuration for the metavote client.
func DefaultConfig() Config {
	return Config{
		BaseConfig:   defaultBaseConfig(),
		Gateway:      gateway.DefaultConfig(),
		Orchestrator: orchestrator.DefaultConfig(),
		Locking:      vpower.DefaultBounds(),
		LOGGING:      defaultLoggingConfig(),
	}
}

func defaultBaseConfig() BaseConfig {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return BaseConfig{
		ConfigFile:     defaultConfigFileName,
		KeyFile:        filepath.Join(home, defaultDataDirName, defaultKeyFileName),
		CollectMetrics: false,
		MetricsPort:    1010,
	}
}

// Validate checks that the configuration can reach and address the ledger.
func (cfg *Config) Validate() error {
	if cfg.Gateway.NodeURL == "" {
		return fmt.Errorf("node-url is required")
	}
	if cfg.Gateway.ContractID == "" {
		return fmt.Errorf("contract-id is required")
	}
	if cfg.Gateway.TokenID == "" {
		return fmt.Errorf("token-id is required")
	}
	if err := cfg.Locking.Validate(); err != nil {
		return fmt.Errorf("locking bounds: %w", err)
	}
	return nil
}

// LoadConfig loads the config file into vip.
func LoadConfig(fileLocation string, vip *viper.Viper) error {
	if fileLocation == "" {
		fileLocation = defaultConfigFileName
	}

	vip.SetConfigFile(fileLocation)
	if err := vip.ReadInConfig(); err != nil {
		// a missing default config file is not an error; flags and
		// defaults carry the whole configuration
		if fileLocation == defaultConfigFileName && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %w", err)
	}
	return nil
}

// ParseConfig unmarshals whatever vip accumulated (config file, bound flags,
// environment) on top of the defaults.
func ParseConfig(vip *viper.Viper) (*Config, error) {
	conf := DefaultConfig()
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := vip.Unmarshal(&conf, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &conf, nil
}

// SetConfigFile overrides the default config file path.
func (cfg *BaseConfig) SetConfigFile(file string) {
	cfg.ConfigFile = file
}
