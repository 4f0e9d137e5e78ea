// Package cli implements the UWealth command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and released in cleanup.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mrz1836/uwealth/internal/config"
	"github.com/mrz1836/uwealth/internal/output"
	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

var (
	// Global flags
	homeDir      string
	envName      string
	outputFormat string
	verbose      bool

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *config.Logger
	formatter *output.Formatter

	// active is the chain session opened by the first command that needs one.
	active *CommandContext
)

// Command group IDs.
const (
	groupDashboard = "dashboard"
	groupEarn      = "earn"
	groupOwner     = "owner"
	groupConfig    = "config"
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "uwealth",
	Short: "UWealth presale dashboard for Binance Smart Chain",
	Long: `UWealth is a terminal dashboard for the UWealth token presale.

It reads the presale state from the chain, buys tokens with BNB or USDT
through your wallet, stakes and deposits UWT and, for the contract owner,
configures the sale and withdraws its proceeds.

The wallet is an external signer reached over JSON-RPC or a local keystore.`,
	Example: `  uwealth presale status
  uwealth presale buy --amount 0.5 --currency BNB
  uwealth --env development wallet status -o json`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return initGlobals()
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context, which ends watch mode and abandons receipt waits.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer cleanup()

	enrichHelp(rootCmd)
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		// Format and print error
		if formatter != nil {
			_ = output.FormatError(os.Stderr, err, formatter.Format())
		} else {
			_ = output.FormatError(os.Stderr, err, output.FormatText)
		}
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return uwerr.ExitCode(err)
}

// initGlobals initializes global configuration, logger, and formatter.
func initGlobals() error {
	// A .env in the working directory may set UWEALTH_HOME itself.
	if err := config.LoadDotEnv(".env"); err != nil {
		return uwerr.WithCause(uwerr.ErrConfigInvalid, err)
	}

	// Determine home directory
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}
	home = config.ExpandHome(home)

	if err := config.LoadDotEnv(filepath.Join(home, ".env")); err != nil {
		return uwerr.WithCause(uwerr.ErrConfigInvalid, err)
	}

	// Load or create config
	var err error
	cfg, err = config.Load(config.Path(home))
	switch {
	case errors.Is(err, uwerr.ErrConfigNotFound):
		cfg = config.Defaults()
		cfg.Home = home
	case err != nil:
		return err
	}

	// Apply environment variable overrides
	if err := config.ApplyEnvironment(cfg); err != nil {
		return uwerr.WithCause(uwerr.ErrConfigInvalid, err)
	}

	// Override with command-line flags
	if homeDir != "" {
		cfg.Home = homeDir
	}
	if envName != "" {
		cfg.Environment = envName
	}
	if verbose {
		cfg.Output.Verbose = true
		cfg.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != "auto" {
		cfg.Output.DefaultFormat = outputFormat
	}

	// Initialize logger
	logLevel := config.ParseLogLevel(cfg.Logging.Level)
	logger, err = config.NewLogger(logLevel, config.ExpandHome(cfg.Logging.File))
	if err != nil {
		// Use null logger if we can't create the file
		logger = config.NullLogger()
	}

	// Initialize formatter
	explicitFormat := output.ParseFormat(cfg.Output.DefaultFormat)
	detectedFormat := output.DetectFormat(os.Stdout, explicitFormat)
	formatter = output.NewFormatter(detectedFormat, os.Stdout)

	return nil
}

// cleanup releases resources. It is safe to call more than once.
func cleanup() {
	if active != nil {
		active.Close()
		active = nil
	}
	if logger != nil {
		_ = logger.Close()
		logger = nil
	}
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: groupDashboard, Title: "Presale & Wallet:"},
		&cobra.Group{ID: groupEarn, Title: "Staking & Vaults:"},
		&cobra.Group{ID: groupOwner, Title: "Owner Tools:"},
		&cobra.Group{ID: groupConfig, Title: "Configuration:"},
	)
	rootCmd.SetHelpCommandGroupID(groupConfig)

	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "uwealth data directory (default: ~/.uwealth)")
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "environment to connect to (default: development)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}
