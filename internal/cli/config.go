package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/uwealth/internal/config"
	"github.com/mrz1836/uwealth/internal/output"
	"github.com/mrz1836/uwealth/internal/wallet"
	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and modify UWealth configuration settings.`,
}

// configInitCmd initializes the configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a default configuration file at ~/.uwealth/config.yaml.

If a configuration file already exists, this command will not overwrite it
unless --force is specified.`,
	Example: `  uwealth config init
  uwealth config init --force`,
	RunE: runConfigInit,
}

// configShowCmd shows the current configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings, environments included.`,
	Example: `  uwealth config show
  uwealth config show -o json`,
	RunE: runConfigShow,
}

// configGetCmd gets a specific configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configGetCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Get a configuration value",
	Long: `Get a specific configuration value by its path.

The path uses dot notation to navigate the configuration tree. Environment
settings are addressed as environments.<name>.<key>.`,
	Example: `  uwealth config get environment
  uwealth config get wallet.signer_url
  uwealth config get environments.development.contracts.presale`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

// configSetCmd sets a configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configSetCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value by its path.

The path uses dot notation to navigate the configuration tree.
The configuration file will be updated immediately.`,
	Example: `  uwealth config set output.default_format json
  uwealth config set logging.level debug
  uwealth config set environments.development.rpc https://bsc-testnet.example.org`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	configCmd.GroupID = groupConfig
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

// configKey is one settable configuration path.
type configKey struct {
	get func(c *config.Config) string
	set func(c *config.Config, value string) error
}

// envKey is one settable path below environments.<name>.
type envKey struct {
	get func(e *config.EnvironmentConfig) string
	set func(e *config.EnvironmentConfig, value string) error
}

//nolint:gochecknoglobals // Fixed lookup table
var configKeys = map[string]configKey{
	"home": {
		get: func(c *config.Config) string { return c.Home },
		set: func(c *config.Config, v string) error { c.Home = v; return nil },
	},
	"environment": {
		get: func(c *config.Config) string { return c.Environment },
		set: func(c *config.Config, v string) error {
			name := strings.ToLower(v)
			if _, err := c.LookupEnvironment(name); err != nil {
				return err
			}
			c.Environment = name
			return nil
		},
	},
	"wallet.provider": {
		get: func(c *config.Config) string { return c.Wallet.Provider },
		set: func(c *config.Config, v string) error {
			return oneOf(&c.Wallet.Provider, v, wallet.ModeAuto, wallet.ModeRPC, wallet.ModeKeystore)
		},
	},
	"wallet.signer_url": {
		get: func(c *config.Config) string { return c.Wallet.SignerURL },
		set: func(c *config.Config, v string) error { c.Wallet.SignerURL = config.SanitizeURL(v); return nil },
	},
	"wallet.keystore_dir": {
		get: func(c *config.Config) string { return c.Wallet.KeystoreDir },
		set: func(c *config.Config, v string) error { c.Wallet.KeystoreDir = v; return nil },
	},
	"wallet.poll_interval": {
		get: func(c *config.Config) string { return c.Wallet.PollInterval.String() },
		set: func(c *config.Config, v string) error { return setDuration(&c.Wallet.PollInterval, v) },
	},
	"gas.native_purchase_limit": {
		get: func(c *config.Config) string { return strconv.FormatUint(c.Gas.NativePurchaseLimit, 10) },
		set: func(c *config.Config, v string) error { return setUint(&c.Gas.NativePurchaseLimit, v) },
	},
	"gas.stable_purchase_limit": {
		get: func(c *config.Config) string { return strconv.FormatUint(c.Gas.StablePurchaseLimit, 10) },
		set: func(c *config.Config, v string) error { return setUint(&c.Gas.StablePurchaseLimit, v) },
	},
	"gas.minimal_estimate": {
		get: func(c *config.Config) string { return strconv.FormatUint(c.Gas.MinimalEstimate, 10) },
		set: func(c *config.Config, v string) error { return setUint(&c.Gas.MinimalEstimate, v) },
	},
	"output.default_format": {
		get: func(c *config.Config) string { return c.Output.DefaultFormat },
		set: func(c *config.Config, v string) error {
			return oneOf(&c.Output.DefaultFormat, v, "text", "json", "auto")
		},
	},
	"output.color": {
		get: func(c *config.Config) string { return c.Output.Color },
		set: func(c *config.Config, v string) error {
			return oneOf(&c.Output.Color, v, "auto", "always", "never")
		},
	},
	"output.verbose": {
		get: func(c *config.Config) string { return strconv.FormatBool(c.Output.Verbose) },
		set: func(c *config.Config, v string) error { c.Output.Verbose = v == "true"; return nil },
	},
	"logging.level": {
		get: func(c *config.Config) string { return c.Logging.Level },
		set: func(c *config.Config, v string) error {
			return oneOf(&c.Logging.Level, v, "off", "error", "info", "debug")
		},
	},
	"logging.file": {
		get: func(c *config.Config) string { return c.Logging.File },
		set: func(c *config.Config, v string) error { c.Logging.File = v; return nil },
	},
	"metrics.addr": {
		get: func(c *config.Config) string { return c.Metrics.Addr },
		set: func(c *config.Config, v string) error { c.Metrics.Addr = v; return nil },
	},
}

//nolint:gochecknoglobals // Fixed lookup table
var envKeys = map[string]envKey{
	"chain_id": {
		get: func(e *config.EnvironmentConfig) string { return strconv.FormatInt(e.ChainID, 10) },
		set: func(e *config.EnvironmentConfig, v string) error {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil || id <= 0 {
				return invalidValue(v, "a positive chain id")
			}
			e.ChainID = id
			return nil
		},
	},
	"chain_name": {
		get: func(e *config.EnvironmentConfig) string { return e.ChainName },
		set: func(e *config.EnvironmentConfig, v string) error { e.ChainName = v; return nil },
	},
	"rpc": {
		get: func(e *config.EnvironmentConfig) string { return e.RPC },
		set: func(e *config.EnvironmentConfig, v string) error { e.RPC = config.SanitizeURL(v); return nil },
	},
	"fallback_rpcs": {
		get: func(e *config.EnvironmentConfig) string { return strings.Join(e.FallbackRPCs, ",") },
		set: func(e *config.EnvironmentConfig, v string) error {
			e.FallbackRPCs = nil
			for _, u := range strings.Split(v, ",") {
				if u = config.SanitizeURL(u); u != "" {
					e.FallbackRPCs = append(e.FallbackRPCs, u)
				}
			}
			return nil
		},
	},
	"refresh_interval": {
		get: func(e *config.EnvironmentConfig) string { return e.RefreshInterval.String() },
		set: func(e *config.EnvironmentConfig, v string) error { return setDuration(&e.RefreshInterval, v) },
	},
	"block_interval": {
		get: func(e *config.EnvironmentConfig) string { return e.BlockInterval.String() },
		set: func(e *config.EnvironmentConfig, v string) error { return setDuration(&e.BlockInterval, v) },
	},
	"gas_multiplier": {
		get: func(e *config.EnvironmentConfig) string { return strconv.FormatFloat(e.GasMultiplier, 'f', -1, 64) },
		set: func(e *config.EnvironmentConfig, v string) error {
			m, err := strconv.ParseFloat(v, 64)
			if err != nil || m < 1 {
				return invalidValue(v, "a multiplier of at least 1")
			}
			e.GasMultiplier = m
			return nil
		},
	},
	"contracts.presale":               contractKey(func(e *config.EnvironmentConfig) *string { return &e.Contracts.Presale }),
	"contracts.uwealth_token":         contractKey(func(e *config.EnvironmentConfig) *string { return &e.Contracts.Token }),
	"contracts.stablecoin":            contractKey(func(e *config.EnvironmentConfig) *string { return &e.Contracts.Stablecoin }),
	"contracts.uwealth_staking":       contractKey(func(e *config.EnvironmentConfig) *string { return &e.Contracts.Staking }),
	"contracts.uwealth_vesting":       contractKey(func(e *config.EnvironmentConfig) *string { return &e.Contracts.Vesting }),
	"contracts.blue_chip_crypto_fund": contractKey(func(e *config.EnvironmentConfig) *string { return &e.Contracts.Fund }),
	"contracts.trading_bot":           contractKey(func(e *config.EnvironmentConfig) *string { return &e.Contracts.TradingBot }),
}

func contractKey(field func(e *config.EnvironmentConfig) *string) envKey {
	return envKey{
		get: func(e *config.EnvironmentConfig) string { return *field(e) },
		set: func(e *config.EnvironmentConfig, v string) error {
			*field(e) = strings.TrimSpace(v)
			return nil
		},
	}
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	configPath := config.Path(cfg.GetHome())

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil && !configForce {
		return uwerr.WithSuggestion(
			uwerr.ErrGeneral,
			fmt.Sprintf("configuration already exists at %s. Use --force to overwrite.", configPath),
		)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	defaultCfg := config.Defaults()
	defaultCfg.Home = cfg.Home

	if err := config.Save(defaultCfg, configPath); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	w := cmd.OutOrStdout()
	out(w, "Configuration initialized at %s\n", configPath)
	outln(w)
	outln(w, "Edit this file to configure:")
	outln(w, "  - environment: The deployment to use (development by default)")
	outln(w, "  - environments.<name>.rpc: Your BSC RPC endpoint")
	outln(w, "  - wallet.provider: Wallet provider (auto/rpc/keystore)")
	outln(w, "  - output.default_format: Output format (text/json)")
	outln(w, "  - logging.level: Log level (off/error/info/debug)")

	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	if formatter.IsJSON() {
		return output.NewFormatter(output.FormatJSON, w).Emit(configView(cfg), nil)
	}
	return displayConfigText(w, cfg)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	path := args[0]

	value, err := getConfigValue(cfg, path)
	if err != nil {
		return err
	}

	outln(cmd.OutOrStdout(), value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	path := args[0]
	value := args[1]

	// Validate the path exists
	if _, err := getConfigValue(cfg, path); err != nil {
		return err
	}

	// Load current config from file
	configPath := config.Path(cfg.GetHome())
	currentCfg, err := config.Load(configPath)
	switch {
	case errors.Is(err, uwerr.ErrConfigNotFound):
		currentCfg = config.Defaults()
		currentCfg.Home = cfg.Home
	case err != nil:
		return err
	}

	if err := setConfigValue(currentCfg, path, value); err != nil {
		return err
	}

	if err := config.Save(currentCfg, configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	out(cmd.OutOrStdout(), "Set %s = %s\n", path, value)
	return nil
}

// getConfigValue retrieves a value from the config using dot notation.
func getConfigValue(c *config.Config, path string) (string, error) {
	if name, key, ok := splitEnvPath(path); ok {
		env, k, err := lookupEnvKey(c, name, key)
		if err != nil {
			return "", err
		}
		return k.get(env), nil
	}

	k, ok := configKeys[path]
	if !ok {
		return "", unknownPath(path)
	}
	return k.get(c), nil
}

// setConfigValue sets a value in the config using dot notation.
func setConfigValue(c *config.Config, path, value string) error {
	if name, key, ok := splitEnvPath(path); ok {
		env, k, err := lookupEnvKey(c, name, key)
		if err != nil {
			return err
		}
		if err := k.set(env, value); err != nil {
			return err
		}
		c.Environments[strings.ToLower(name)] = *env
		return nil
	}

	k, ok := configKeys[path]
	if !ok {
		return unknownPath(path)
	}
	return k.set(c, value)
}

func splitEnvPath(path string) (name, key string, ok bool) {
	rest, found := strings.CutPrefix(path, "environments.")
	if !found {
		return "", "", false
	}
	name, key, ok = strings.Cut(rest, ".")
	return name, key, ok
}

func lookupEnvKey(c *config.Config, name, key string) (*config.EnvironmentConfig, envKey, error) {
	k, ok := envKeys[key]
	if !ok {
		return nil, envKey{}, unknownPath("environments." + name + "." + key)
	}
	env, err := c.LookupEnvironment(name)
	if err != nil {
		return nil, envKey{}, err
	}
	return env, k, nil
}

func unknownPath(path string) error {
	return uwerr.WithSuggestion(
		uwerr.WithDetails(uwerr.ErrNotFound, map[string]string{"path": path}),
		fmt.Sprintf("configuration path '%s' not found", path),
	)
}

func invalidValue(value, valid string) error {
	return uwerr.WithDetails(uwerr.ErrInvalidInput, map[string]string{"value": value, "valid": valid})
}

func oneOf(target *string, value string, valid ...string) error {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, v := range valid {
		if value == v {
			*target = value
			return nil
		}
	}
	return invalidValue(value, strings.Join(valid, ", "))
}

func setDuration(target *time.Duration, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return invalidValue(value, "a positive duration such as 30s or 5m")
	}
	*target = d
	return nil
}

func setUint(target *uint64, value string) error {
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil || n == 0 {
		return invalidValue(value, "a positive integer")
	}
	*target = n
	return nil
}

// configPaths returns every top-level path in sorted order.
func configPaths() []string {
	paths := make([]string, 0, len(configKeys))
	for p := range configKeys {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// envPaths returns every environment key in sorted order.
func envPaths() []string {
	paths := make([]string, 0, len(envKeys))
	for p := range envKeys {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// configView flattens the config for JSON output.
func configView(c *config.Config) map[string]any {
	view := make(map[string]any, len(configKeys)+1)
	for _, p := range configPaths() {
		view[p] = configKeys[p].get(c)
	}
	envs := make(map[string]map[string]string, len(c.Environments))
	for _, name := range c.EnvironmentNames() {
		env := c.Environments[name]
		values := make(map[string]string, len(envKeys))
		for _, p := range envPaths() {
			values[p] = envKeys[p].get(&env)
		}
		envs[name] = values
	}
	view["environments"] = envs
	return view
}

// displayConfigText shows the config in text format.
func displayConfigText(w io.Writer, c *config.Config) error {
	outln(w, "Configuration:")
	outln(w)
	for _, p := range configPaths() {
		value := configKeys[p].get(c)
		if value == "" {
			value = "(not configured)"
		}
		out(w, "  %s: %s\n", p, value)
	}
	for _, name := range c.EnvironmentNames() {
		env := c.Environments[name]
		outln(w)
		marker := ""
		if name == c.Environment {
			marker = " (active)"
		}
		out(w, "  Environment %s%s:\n", name, marker)
		for _, p := range envPaths() {
			value := envKeys[p].get(&env)
			if value == "" {
				value = "(not configured)"
			}
			out(w, "    %s: %s\n", p, value)
		}
	}
	return nil
}
