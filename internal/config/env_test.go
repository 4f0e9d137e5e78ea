package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected bool
	}{
		{"1", true},
		{"true", true},
		{"YES", true},
		{"on", true},
		{"  true  ", true},
		{"0", false},
		{"false", false},
		{"no", false},
		{"", false},
		{"random", false},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, parseBool(tc.input))
		})
	}
}

func TestSanitizeURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://bsc-testnet-rpc.publicnode.com",
		SanitizeURL("  https://bsc-testnet-rpc.publicnode.com  "))
	assert.Equal(t, "https://data-seed-prebsc-1-s1.bnbchain.org:8545",
		SanitizeURL("https://data-seed-prebsc-1-s1.bnbchain.org:8545"))
	assert.Equal(t, "http://127.0.0.1:8550", SanitizeURL("http://127.0.0.1:8550\n"))
}

func TestApplyEnvironment(t *testing.T) {
	// Cannot run in parallel because we modify environment variables

	t.Run("UWEALTH_HOME", func(t *testing.T) {
		cfg := Defaults()
		t.Setenv(EnvHome, "/custom/home")
		require.NoError(t, ApplyEnvironment(cfg))
		assert.Equal(t, "/custom/home", cfg.Home)
	})

	t.Run("UWEALTH_ENV", func(t *testing.T) {
		cfg := Defaults()
		t.Setenv(EnvEnvironment, "  Staging ")
		require.NoError(t, ApplyEnvironment(cfg))
		assert.Equal(t, "staging", cfg.Environment)
	})

	t.Run("UWEALTH_RPC applies to active environment", func(t *testing.T) {
		cfg := Defaults()
		t.Setenv(EnvRPC, "  https://rpc.example.org  ")
		require.NoError(t, ApplyEnvironment(cfg))
		assert.Equal(t, "https://rpc.example.org", cfg.Environments[DefaultEnvironment].RPC)
	})

	t.Run("UWEALTH_REFRESH_INTERVAL", func(t *testing.T) {
		cfg := Defaults()
		t.Setenv(EnvRefreshInterval, "45s")
		require.NoError(t, ApplyEnvironment(cfg))
		assert.Equal(t, 45*time.Second, cfg.Environments[DefaultEnvironment].RefreshInterval)
	})

	t.Run("UWEALTH_REFRESH_INTERVAL invalid", func(t *testing.T) {
		cfg := Defaults()
		t.Setenv(EnvRefreshInterval, "soon")
		assert.Error(t, ApplyEnvironment(cfg))
	})

	t.Run("wallet overrides", func(t *testing.T) {
		cfg := Defaults()
		t.Setenv(EnvWalletProvider, "KEYSTORE")
		t.Setenv(EnvKeystoreDir, "/tmp/keys")
		t.Setenv(EnvSignerURL, "http://localhost:8550")
		require.NoError(t, ApplyEnvironment(cfg))
		assert.Equal(t, "keystore", cfg.Wallet.Provider)
		assert.Equal(t, "/tmp/keys", cfg.Wallet.KeystoreDir)
		assert.Equal(t, "http://localhost:8550", cfg.Wallet.SignerURL)
	})

	t.Run("output and logging", func(t *testing.T) {
		cfg := Defaults()
		t.Setenv(EnvOutputFormat, "JSON")
		t.Setenv(EnvVerbose, "yes")
		t.Setenv(EnvLogLevel, "DEBUG")
		t.Setenv(EnvMetricsAddr, ":9100")
		require.NoError(t, ApplyEnvironment(cfg))
		assert.Equal(t, "json", cfg.Output.DefaultFormat)
		assert.True(t, cfg.Output.Verbose)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, ":9100", cfg.Metrics.Addr)
	})

	t.Run("NO_COLOR", func(t *testing.T) {
		cfg := Defaults()
		t.Setenv(EnvNoColor, "")
		require.NoError(t, ApplyEnvironment(cfg))
		assert.Equal(t, "never", cfg.Output.Color)
	})
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("sets unset variables only", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("UWEALTH_LOG_LEVEL=debug\nUWEALTH_OUTPUT_FORMAT=json\n"), 0o600))

		t.Setenv(EnvOutputFormat, "text")
		t.Setenv(EnvLogLevel, "")
		require.NoError(t, os.Unsetenv(EnvLogLevel))

		require.NoError(t, LoadDotEnv(path))
		assert.Equal(t, "debug", os.Getenv(EnvLogLevel))
		assert.Equal(t, "text", os.Getenv(EnvOutputFormat))
	})
}
