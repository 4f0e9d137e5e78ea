package config

import "time"

// DefaultEnvironment is used when no environment is selected.
const DefaultEnvironment = "development"

// BSC testnet endpoints. Both are public and require no API key.
const (
	DefaultBSCTestnetRPC         = "https://data-seed-prebsc-1-s1.bnbchain.org:8545"
	DefaultBSCTestnetFallbackRPC = "https://bsc-testnet-rpc.publicnode.com"
)

// Gas defaults.
const (
	DefaultNativePurchaseGas = 900000
	DefaultStablePurchaseGas = 500000
	DefaultMinimalGas        = 21000
	DefaultGasMultiplier     = 1.5
)

// developmentEnvironment is the BSC testnet deployment.
func developmentEnvironment() EnvironmentConfig {
	return EnvironmentConfig{
		ChainID:      97,
		ChainName:    "Binance Smart Chain Testnet",
		RPC:          DefaultBSCTestnetRPC,
		FallbackRPCs: []string{DefaultBSCTestnetFallbackRPC},
		Contracts: ContractsConfig{
			Token:      "0x1b49d75bf32f2e2274aad0cec293100e33cae787",
			Presale:    "0xb824d37cc5150445e7ffeba1762b3c9e65f1535c",
			Fund:       "0x9a7fafe7e7d317f315393cab2f6fd10f4db5484b",
			TradingBot: "0x3ae2e93b05f0e3a4098a57a47ac8ac17cc35ba97",
			Staking:    "0x2ee34342e37a27fb753858a01239f0315a899801",
			Vesting:    "0xf1f39ee079201ad31fa64e9ee0649ef58c35fcaa",
			Stablecoin: "0x337610d27c682E347C9cD60BD4b3b107C9d34dDd",
		},
		RefreshInterval: 5 * time.Minute,
		BlockInterval:   3 * time.Second,
		GasMultiplier:   DefaultGasMultiplier,
	}
}

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version:     1,
		Home:        "~/.uwealth",
		Environment: DefaultEnvironment,
		Environments: map[string]EnvironmentConfig{
			DefaultEnvironment: developmentEnvironment(),
		},
		Wallet: WalletConfig{
			Provider:     "auto",
			SignerURL:    "http://127.0.0.1:8550",
			KeystoreDir:  "~/.uwealth/keystore",
			PollInterval: 2 * time.Second,
		},
		Gas: GasConfig{
			NativePurchaseLimit: DefaultNativePurchaseGas,
			StablePurchaseLimit: DefaultStablePurchaseGas,
			MinimalEstimate:     DefaultMinimalGas,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.uwealth/uwealth.log",
		},
	}
}
