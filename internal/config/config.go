// Package config provides configuration management for UWealth.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version      int                          `yaml:"version"`
	Home         string                       `yaml:"home"`
	Environment  string                       `yaml:"environment"`
	Environments map[string]EnvironmentConfig `yaml:"environments"`
	Wallet       WalletConfig                 `yaml:"wallet"`
	Gas          GasConfig                    `yaml:"gas"`
	Output       OutputConfig                 `yaml:"output"`
	Logging      LoggingConfig                `yaml:"logging"`
	Metrics      MetricsConfig                `yaml:"metrics"`
}

// EnvironmentConfig describes one deployment of the UWealth contracts.
type EnvironmentConfig struct {
	ChainID         int64           `yaml:"chain_id"`
	ChainName       string          `yaml:"chain_name"`
	RPC             string          `yaml:"rpc"`
	FallbackRPCs    []string        `yaml:"fallback_rpcs,omitempty"`
	Contracts       ContractsConfig `yaml:"contracts"`
	RefreshInterval time.Duration   `yaml:"refresh_interval"`
	BlockInterval   time.Duration   `yaml:"block_interval"`
	GasMultiplier   float64         `yaml:"gas_multiplier"`
}

// ContractsConfig holds the contract addresses of an environment.
type ContractsConfig struct {
	Token      string `yaml:"uwealth_token"`
	Presale    string `yaml:"presale"`
	Fund       string `yaml:"blue_chip_crypto_fund"`
	TradingBot string `yaml:"trading_bot"`
	Staking    string `yaml:"uwealth_staking"`
	Vesting    string `yaml:"uwealth_vesting"`
	Stablecoin string `yaml:"stablecoin"`
}

// WalletConfig selects and configures the wallet provider.
type WalletConfig struct {
	// Provider is one of "auto", "rpc" or "keystore".
	Provider     string        `yaml:"provider"`
	SignerURL    string        `yaml:"signer_url"`
	KeystoreDir  string        `yaml:"keystore_dir"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// GasConfig defines fixed gas limits and the pre-flight estimate.
type GasConfig struct {
	NativePurchaseLimit uint64 `yaml:"native_purchase_limit"`
	StablePurchaseLimit uint64 `yaml:"stable_purchase_limit"`
	MinimalEstimate     uint64 `yaml:"minimal_estimate"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// MetricsConfig defines the Prometheus listener.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads configuration from the specified file.
// Environments in the file are merged over the built-in ones.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, uwerr.WithDetails(uwerr.WithCause(uwerr.ErrConfigNotFound, err), map[string]string{"path": path})
	}
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	builtin := cfg.Environments
	cfg.Environments = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, uwerr.WithDetails(uwerr.WithCause(uwerr.ErrConfigInvalid, err), map[string]string{"path": path})
	}

	merged := make(map[string]EnvironmentConfig, len(builtin)+len(cfg.Environments))
	for name, env := range builtin {
		merged[name] = env
	}
	for name, env := range cfg.Environments {
		name = strings.ToLower(name)
		if base, ok := merged[name]; ok {
			env = mergeEnvironment(base, env)
		}
		merged[name] = env
	}
	cfg.Environments = merged

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return writeFileAtomic(path, data, 0o600)
}

// writeFileAtomic replaces path through a synced temp file in the same
// directory, so a crash never leaves a truncated config behind.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp config: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp config: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("setting config permissions: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp config: %w", err)
	}
	return os.Rename(tmpPath, path) //nolint:gosec // G703: path comes from config.Path
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// DefaultHome returns the default uwealth home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".uwealth"
	}
	return filepath.Join(home, ".uwealth")
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// GetHome returns the uwealth home directory path.
func (c *Config) GetHome() string {
	return ExpandHome(c.Home)
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// mergeEnvironment overlays the non-zero fields of override onto base.
func mergeEnvironment(base, override EnvironmentConfig) EnvironmentConfig {
	if override.ChainID != 0 {
		base.ChainID = override.ChainID
	}
	if override.ChainName != "" {
		base.ChainName = override.ChainName
	}
	if override.RPC != "" {
		base.RPC = override.RPC
	}
	if len(override.FallbackRPCs) > 0 {
		base.FallbackRPCs = override.FallbackRPCs
	}
	if override.RefreshInterval > 0 {
		base.RefreshInterval = override.RefreshInterval
	}
	if override.BlockInterval > 0 {
		base.BlockInterval = override.BlockInterval
	}
	if override.GasMultiplier > 0 {
		base.GasMultiplier = override.GasMultiplier
	}

	c, o := &base.Contracts, override.Contracts
	for _, pair := range []struct {
		dst *string
		src string
	}{
		{&c.Token, o.Token},
		{&c.Presale, o.Presale},
		{&c.Fund, o.Fund},
		{&c.TradingBot, o.TradingBot},
		{&c.Staking, o.Staking},
		{&c.Vesting, o.Vesting},
		{&c.Stablecoin, o.Stablecoin},
	} {
		if pair.src != "" {
			*pair.dst = pair.src
		}
	}

	return base
}
