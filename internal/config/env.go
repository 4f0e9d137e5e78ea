package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/mrz1836/go-sanitize"
)

// Environment variable names.
const (
	EnvHome            = "UWEALTH_HOME"
	EnvEnvironment     = "UWEALTH_ENV"
	EnvRPC             = "UWEALTH_RPC"
	EnvSignerURL       = "UWEALTH_SIGNER_URL"
	EnvKeystoreDir     = "UWEALTH_KEYSTORE_DIR"
	EnvWalletProvider  = "UWEALTH_WALLET_PROVIDER"
	EnvRefreshInterval = "UWEALTH_REFRESH_INTERVAL"
	EnvOutputFormat    = "UWEALTH_OUTPUT_FORMAT"
	EnvVerbose         = "UWEALTH_VERBOSE"
	EnvLogLevel        = "UWEALTH_LOG_LEVEL"
	EnvMetricsAddr     = "UWEALTH_METRICS_ADDR"
	EnvNoColor         = "NO_COLOR"
)

// envOverrides mirrors the UWEALTH_* variables.
// Names are spelled out so envconfig never falls back to unprefixed keys.
type envOverrides struct {
	Home            string        `envconfig:"UWEALTH_HOME"`
	Environment     string        `envconfig:"UWEALTH_ENV"`
	RPC             string        `envconfig:"UWEALTH_RPC"`
	SignerURL       string        `envconfig:"UWEALTH_SIGNER_URL"`
	KeystoreDir     string        `envconfig:"UWEALTH_KEYSTORE_DIR"`
	WalletProvider  string        `envconfig:"UWEALTH_WALLET_PROVIDER"`
	RefreshInterval time.Duration `envconfig:"UWEALTH_REFRESH_INTERVAL"`
	OutputFormat    string        `envconfig:"UWEALTH_OUTPUT_FORMAT"`
	Verbose         string        `envconfig:"UWEALTH_VERBOSE"`
	LogLevel        string        `envconfig:"UWEALTH_LOG_LEVEL"`
	MetricsAddr     string        `envconfig:"UWEALTH_METRICS_ADDR"`
}

// LoadDotEnv loads variables from a .env file. A missing file is not an error.
// Variables already present in the process environment win.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ApplyEnvironment applies environment variable overrides to the configuration.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) error {
	var o envOverrides
	if err := envconfig.Process("", &o); err != nil {
		return err
	}

	if o.Home != "" {
		cfg.Home = o.Home
	}

	if o.Environment != "" {
		cfg.Environment = strings.ToLower(strings.TrimSpace(o.Environment))
	}

	if o.RPC != "" || o.RefreshInterval > 0 {
		name := strings.ToLower(cfg.Environment)
		if env, ok := cfg.Environments[name]; ok {
			if o.RPC != "" {
				env.RPC = SanitizeURL(o.RPC)
			}
			if o.RefreshInterval > 0 {
				env.RefreshInterval = o.RefreshInterval
			}
			cfg.Environments[name] = env
		}
	}

	if o.SignerURL != "" {
		cfg.Wallet.SignerURL = SanitizeURL(o.SignerURL)
	}

	if o.KeystoreDir != "" {
		cfg.Wallet.KeystoreDir = o.KeystoreDir
	}

	if o.WalletProvider != "" {
		cfg.Wallet.Provider = strings.ToLower(o.WalletProvider)
	}

	if o.OutputFormat != "" {
		cfg.Output.DefaultFormat = strings.ToLower(o.OutputFormat)
	}

	if o.Verbose != "" {
		cfg.Output.Verbose = parseBool(o.Verbose)
	}

	if o.LogLevel != "" {
		cfg.Logging.Level = strings.ToLower(o.LogLevel)
	}

	if o.MetricsAddr != "" {
		cfg.Metrics.Addr = o.MetricsAddr
	}

	// NO_COLOR disables colored output
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}

	return nil
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL cleans a URL string by removing invalid characters and trimming whitespace.
func SanitizeURL(url string) string {
	return sanitize.URL(strings.TrimSpace(url))
}
