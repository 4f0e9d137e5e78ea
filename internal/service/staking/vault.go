package staking

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mrz1836/uwealth/internal/chain"
	"github.com/mrz1836/uwealth/internal/chain/eth"
	"github.com/mrz1836/uwealth/internal/service/transaction"
	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// Vault names.
const (
	VaultInvestment = "investment"
	VaultTradingBot = "trading_bot"
)

// VaultConfig holds dependencies for a vault.
type VaultConfig struct {
	Name       string
	Node       bind.ContractCaller
	Token      common.Address
	Vault      common.Address
	Wallet     Wallet
	Transactor Transactor
	Logger     LogWriter
}

// Vault holds deposited project tokens on behalf of accounts.
type Vault struct {
	name   string
	token  *eth.Contract
	vault  *eth.Contract
	wallet Wallet
	tx     Transactor
	logger LogWriter
}

// NewVault creates a vault client.
func NewVault(cfg *VaultConfig) *Vault {
	v := &Vault{
		name:   cfg.Name,
		token:  eth.NewContract(cfg.Token, eth.ERC20ABI, cfg.Node),
		vault:  eth.NewContract(cfg.Vault, eth.VaultABI, cfg.Node),
		wallet: cfg.Wallet,
		tx:     cfg.Transactor,
		logger: cfg.Logger,
	}
	if v.logger == nil {
		v.logger = nopLogger{}
	}
	return v
}

// Name returns the vault name.
func (v *Vault) Name() string {
	return v.name
}

// Balance returns the deposited balance of account.
func (v *Vault) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := v.vault.CallBig(ctx, nil, eth.MethodGetUserBalance, account)
	if err != nil {
		v.logger.Error("reading %s balance of %s: %v", v.name, account.Hex(), err)
		return nil, readFailure(eth.MethodGetUserBalance, err)
	}
	return balance, nil
}

// Deposit moves amount tokens into the vault, approving it first when the
// current allowance is short.
func (v *Vault) Deposit(ctx context.Context, amount *big.Int) (*types.Receipt, error) {
	account, err := begin(ctx, v.wallet, amount)
	if err != nil {
		return nil, err
	}
	if err := requireBalance(ctx, v.token, account, amount); err != nil {
		return nil, err
	}
	if _, err := v.tx.EnsureAllowance(ctx, v.wallet, v.token, account, v.vault.Address(), amount); err != nil {
		return nil, err
	}
	return v.call(ctx, transaction.KindDeposit, eth.MethodDeposit, amount)
}

// Withdraw moves amount tokens out of the vault.
func (v *Vault) Withdraw(ctx context.Context, amount *big.Int) (*types.Receipt, error) {
	account, err := begin(ctx, v.wallet, amount)
	if err != nil {
		return nil, err
	}
	balance, err := v.Balance(ctx, account)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(amount) < 0 {
		return nil, uwerr.WithDetails(uwerr.ErrInsufficientTokenBalance, map[string]string{
			"deposited": chain.Token.FormatWithSymbol(balance),
			"required":  chain.Token.FormatWithSymbol(amount),
		})
	}
	return v.call(ctx, transaction.KindWithdraw, eth.MethodWithdraw, amount)
}

func (v *Vault) call(ctx context.Context, kind transaction.Kind, method string, args ...any) (*types.Receipt, error) {
	data, err := v.vault.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	v.logger.Debug("%s call %s", v.name, method)
	return v.tx.Submit(ctx, kind, transaction.Send(v.wallet, v.vault.Address(), nil, data, 0))
}
