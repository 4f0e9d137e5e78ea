package cli

import (
	"context"
	"io"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/mrz1836/uwealth/internal/chain"
	"github.com/mrz1836/uwealth/internal/chain/eth"
	"github.com/mrz1836/uwealth/internal/config"
	"github.com/mrz1836/uwealth/internal/metrics"
	"github.com/mrz1836/uwealth/internal/output"
	"github.com/mrz1836/uwealth/internal/service/presale"
	"github.com/mrz1836/uwealth/internal/service/staking"
	"github.com/mrz1836/uwealth/internal/service/transaction"
	"github.com/mrz1836/uwealth/internal/wallet"
	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// Command timeouts.
const (
	readTimeout    = 30 * time.Second
	connectTimeout = 2 * time.Minute
	// txTimeout covers the wallet prompt, an optional approval and the
	// purchase receipt.
	txTimeout = 15 * time.Minute
)

type cmdContextKey struct{}

// CommandContext holds dependencies for CLI commands.
type CommandContext struct {
	Cfg     *config.Config
	Env     *config.EnvironmentConfig
	Log     *config.Logger
	Fmt     *output.Formatter
	Metrics *metrics.Metrics

	Wallet       WalletSession
	Reader       *presale.Reader
	Refresher    *presale.Refresher
	Draft        *presale.Draft
	Reconciler   *transaction.Reconciler
	Orchestrator *presale.Orchestrator
	Admin        *presale.Admin
	Staking      *staking.Service
	Vaults       map[string]*staking.Vault

	// updates is signaled after every applied refresh.
	updates chan struct{}
	closers []func()
	now     func() time.Time
}

// Contracts are the parsed contract addresses of an environment. A zero
// address marks a contract the environment does not deploy.
type Contracts struct {
	Presale    common.Address
	Token      common.Address
	Stable     common.Address
	Staking    common.Address
	Fund       common.Address
	TradingBot common.Address
}

// Wiring is what the services are assembled from.
type Wiring struct {
	Config    *config.Config
	Env       *config.EnvironmentConfig
	Contracts Contracts
	Logger    *config.Logger
	Formatter *output.Formatter
	Metrics   *metrics.Metrics
	Node      Node
	Wallet    WalletSession

	// Notices receives transaction notifications. Defaults to stderr.
	Notices io.Writer
	Now     func() time.Time
}

// SetCmdContext attaches a command context to cmd.
func SetCmdContext(cmd *cobra.Command, cc *CommandContext) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	cmd.SetContext(context.WithValue(base, cmdContextKey{}, cc))
}

// GetCmdContext returns the command context attached to cmd, or nil.
func GetCmdContext(cmd *cobra.Command) *CommandContext {
	if ctx := cmd.Context(); ctx != nil {
		if cc, ok := ctx.Value(cmdContextKey{}).(*CommandContext); ok {
			return cc
		}
	}
	return nil
}

// commandContext returns the attached context or dials the selected
// environment. The dialed session is closed by cleanup.
func commandContext(cmd *cobra.Command) (*CommandContext, error) {
	if cc := GetCmdContext(cmd); cc != nil {
		return cc, nil
	}
	if active != nil {
		return active, nil
	}

	ctx, cancel := contextWithTimeout(cmd, readTimeout)
	defer cancel()

	cc, err := Dial(ctx, cfg, logger, formatter)
	if err != nil {
		return nil, err
	}
	active = cc
	return cc, nil
}

// contextWithTimeout returns a timeout context rooted in the command context.
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(baseContext(cmd), d)
}

func baseContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// Dial connects to the selected environment: the node client, the detected
// wallet and every service on top of them. A missing wallet is not an error;
// reads still work and transactions fail with ErrProviderNotFound.
func Dial(ctx context.Context, c *config.Config, log *config.Logger, f *output.Formatter) (*CommandContext, error) {
	if log == nil {
		log = config.NullLogger()
	}
	if f == nil {
		f = output.NewFormatter(output.FormatText, os.Stdout)
	}

	env, err := resolveEnvironment(c)
	if err != nil {
		return nil, err
	}
	contracts, err := parseContracts(env.Contracts)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	chainID := big.NewInt(env.ChainID)
	client, err := eth.NewClient(env.RPC, &eth.ClientOptions{
		FallbackURLs: env.FallbackRPCs,
		ChainID:      chainID,
		Limiter:      chain.DefaultRateLimiter(),
		Observer:     m,
	})
	if err != nil {
		return nil, err
	}

	var session WalletSession = noWallet{}
	var manager *wallet.Manager
	provider, found := wallet.DetectProvider(ctx, wallet.DetectConfig{
		Mode:         c.Wallet.Provider,
		SignerURL:    c.Wallet.SignerURL,
		KeystoreDir:  config.ExpandHome(c.Wallet.KeystoreDir),
		PollInterval: c.Wallet.PollInterval,
		Node:         client,
		Prompter:     wallet.TerminalPrompter{Out: os.Stderr},
		Logger:       log,
	})
	if found {
		manager, err = wallet.NewManager(&wallet.ManagerConfig{
			Provider:  provider,
			ChainID:   chainID,
			ChainName: env.ChainName,
			Prompter:  networkPrompter{w: os.Stderr},
			Logger:    log,
		})
		if err != nil {
			provider.Close()
			client.Close()
			return nil, err
		}
		if err := manager.Start(ctx); err != nil {
			log.Error("starting wallet session: %v", err)
		}
		session = manager
	} else {
		log.Debug("no wallet provider detected (mode %s)", c.Wallet.Provider)
	}

	cc := Wire(&Wiring{
		Config:    c,
		Env:       env,
		Contracts: contracts,
		Logger:    log,
		Formatter: f,
		Metrics:   m,
		Node:      client,
		Wallet:    session,
	})

	if manager != nil {
		manager.OnAccountsChanged(func([]common.Address) { cc.Refresher.Invalidate() })
		manager.OnChainChanged(func(*big.Int) { cc.Refresher.Invalidate() })
		cc.closers = append(cc.closers, manager.Teardown)
	}
	cc.closers = append(cc.closers, client.Close)
	return cc, nil
}

// Wire assembles the services over an existing node and wallet.
func Wire(w *Wiring) *CommandContext {
	m := w.Metrics
	if m == nil {
		m = metrics.New()
	}
	log := w.Logger
	if log == nil {
		log = config.NullLogger()
	}
	notices := w.Notices
	if notices == nil {
		notices = os.Stderr
	}
	var session WalletSession = noWallet{}
	if w.Wallet != nil {
		session = w.Wallet
	}

	cc := &CommandContext{
		Cfg:     w.Config,
		Env:     w.Env,
		Log:     log,
		Fmt:     w.Formatter,
		Metrics: m,
		Wallet:  session,
		Draft:   presale.NewDraft(),
		Vaults:  make(map[string]*staking.Vault),
		updates: make(chan struct{}, 1),
		now:     w.Now,
	}
	if cc.now == nil {
		cc.now = time.Now
	}
	if cc.Fmt == nil {
		cc.Fmt = output.NewFormatter(output.FormatText, os.Stdout)
	}

	cc.Reader = presale.NewReader(&presale.ReaderConfig{
		Node: w.Node,
		Contracts: presale.Contracts{
			Presale: w.Contracts.Presale,
			Token:   w.Contracts.Token,
			Stable:  w.Contracts.Stable,
		},
		Logger:   log,
		Recorder: m,
		Now:      w.Now,
	})
	cc.Refresher = presale.NewRefresher(&presale.RefresherConfig{
		Reader:   cc.Reader,
		Accounts: session,
		Interval: w.Env.RefreshInterval,
		Logger:   log,
		Recorder: m,
		OnApply: func(presale.State) {
			select {
			case cc.updates <- struct{}{}:
			default:
			}
		},
	})
	cc.Reconciler = transaction.NewReconciler(&transaction.Config{
		Backend:       w.Node,
		BlockInterval: w.Env.BlockInterval,
		Hooks: transaction.Hooks{
			Refresh:    cc.Refresher.RefreshNow,
			ClearInput: func(transaction.Kind) { cc.Draft.Clear() },
		},
		Notifier: noticePrinter(notices),
		Logger:   log,
		Recorder: m,
	})

	gas := w.Config.Gas
	cc.Orchestrator = presale.NewOrchestrator(&presale.OrchestratorConfig{
		Wallet:         session,
		Node:           w.Node,
		Reader:         cc.Reader,
		Refresher:      cc.Refresher,
		Transactor:     cc.Reconciler,
		GasMultiplier:  w.Env.GasMultiplier,
		NativeGasLimit: gas.NativePurchaseLimit,
		StableGasLimit: gas.StablePurchaseLimit,
		MinimalGas:     gas.MinimalEstimate,
		Logger:         log,
	})
	cc.Admin = presale.NewAdmin(&presale.AdminConfig{
		Wallet:     session,
		Reader:     cc.Reader,
		Refresher:  cc.Refresher,
		Transactor: cc.Reconciler,
		Logger:     log,
		Now:        w.Now,
	})

	if w.Contracts.Staking != (common.Address{}) {
		cc.Staking = staking.NewService(&staking.Config{
			Node:       w.Node,
			Token:      w.Contracts.Token,
			Staking:    w.Contracts.Staking,
			Wallet:     session,
			Transactor: cc.Reconciler,
			Logger:     log,
		})
	}
	for name, addr := range map[string]common.Address{
		staking.VaultInvestment: w.Contracts.Fund,
		staking.VaultTradingBot: w.Contracts.TradingBot,
	} {
		if addr == (common.Address{}) {
			continue
		}
		cc.Vaults[name] = staking.NewVault(&staking.VaultConfig{
			Name:       name,
			Node:       w.Node,
			Token:      w.Contracts.Token,
			Vault:      addr,
			Wallet:     session,
			Transactor: cc.Reconciler,
			Logger:     log,
		})
	}

	return cc
}

// Close stops the refresher and releases the wallet and node connections.
func (c *CommandContext) Close() {
	c.Refresher.Stop()
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// StakingService returns the staking service or a configuration error when
// the environment has no staking contract.
func (c *CommandContext) StakingService() (*staking.Service, error) {
	if c.Staking == nil {
		return nil, missingContract("uwealth_staking")
	}
	return c.Staking, nil
}

// Vault returns the named vault or a configuration error.
func (c *CommandContext) Vault(name string) (*staking.Vault, error) {
	v, ok := c.Vaults[name]
	if !ok {
		key := "blue_chip_crypto_fund"
		if name == staking.VaultTradingBot {
			key = "trading_bot"
		}
		return nil, missingContract(key)
	}
	return v, nil
}

// resolveEnvironment returns the selected environment once it is usable.
func resolveEnvironment(c *config.Config) (*config.EnvironmentConfig, error) {
	if c == nil {
		c = config.Defaults()
	}
	env, err := c.ActiveEnvironment()
	if err != nil {
		return nil, err
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return env, nil
}

func parseContracts(cc config.ContractsConfig) (Contracts, error) {
	var out Contracts
	fields := []struct {
		name     string
		value    string
		target   *common.Address
		optional bool
	}{
		{"presale", cc.Presale, &out.Presale, false},
		{"uwealth_token", cc.Token, &out.Token, false},
		{"stablecoin", cc.Stablecoin, &out.Stable, false},
		{"uwealth_staking", cc.Staking, &out.Staking, true},
		{"blue_chip_crypto_fund", cc.Fund, &out.Fund, true},
		{"trading_bot", cc.TradingBot, &out.TradingBot, true},
	}
	for _, f := range fields {
		if f.value == "" && f.optional {
			continue
		}
		addr, err := eth.ParseHexAddress(f.value)
		if err != nil {
			return Contracts{}, uwerr.WithDetails(err, map[string]string{"contract": f.name})
		}
		*f.target = addr
	}
	return out, nil
}

func missingContract(key string) error {
	return uwerr.WithSuggestion(
		uwerr.WithDetails(uwerr.ErrConfigInvalid, map[string]string{"missing": "contracts." + key}),
		"set environments.<name>.contracts."+key+" in ~/.uwealth/config.yaml",
	)
}

// noWallet stands in for the session when no provider was detected.
type noWallet struct{}

func (noWallet) ActiveAddress() (common.Address, error) {
	return common.Address{}, uwerr.ErrProviderNotFound
}

func (noWallet) RequireChain(context.Context) error {
	return uwerr.ErrProviderNotFound
}

func (noWallet) SendTransaction(context.Context, wallet.TxRequest) (common.Hash, error) {
	return common.Hash{}, uwerr.ErrProviderNotFound
}

func (noWallet) Session() wallet.Session {
	return wallet.Session{}
}

func (noWallet) RequestAccounts(context.Context) ([]common.Address, error) {
	return nil, uwerr.ErrProviderNotFound
}

func (noWallet) VerifyChain(context.Context) (bool, error) {
	return false, uwerr.ErrProviderNotFound
}
