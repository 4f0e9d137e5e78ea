package presale

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mrz1836/uwealth/internal/chain"
	"github.com/mrz1836/uwealth/internal/chain/eth"
	"github.com/mrz1836/uwealth/internal/service/transaction"
	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// Fixed purchase gas limits.
const (
	DefaultNativePurchaseGas uint64 = 900000
	DefaultStablePurchaseGas uint64 = 500000
)

// OrchestratorConfig holds dependencies for the orchestrator.
type OrchestratorConfig struct {
	Wallet         Wallet
	Node           Node
	Reader         *Reader
	Refresher      *Refresher
	Transactor     Transactor
	GasMultiplier  float64
	NativeGasLimit uint64
	StableGasLimit uint64
	MinimalGas     uint64
	Logger         LogWriter
}

// Orchestrator runs purchases: chain check, validation, the stablecoin
// allowance step and submission through the transactor.
type Orchestrator struct {
	wallet     Wallet
	node       Node
	reader     *Reader
	refresher  *Refresher
	tx         Transactor
	multiplier float64
	nativeGas  uint64
	stableGas  uint64
	minimalGas uint64
	logger     LogWriter
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(cfg *OrchestratorConfig) *Orchestrator {
	o := &Orchestrator{
		wallet:     cfg.Wallet,
		node:       cfg.Node,
		reader:     cfg.Reader,
		refresher:  cfg.Refresher,
		tx:         cfg.Transactor,
		multiplier: cfg.GasMultiplier,
		nativeGas:  cfg.NativeGasLimit,
		stableGas:  cfg.StableGasLimit,
		minimalGas: cfg.MinimalGas,
		logger:     cfg.Logger,
	}
	if o.multiplier <= 0 {
		o.multiplier = DefaultGasMultiplier
	}
	if o.nativeGas == 0 {
		o.nativeGas = DefaultNativePurchaseGas
	}
	if o.stableGas == 0 {
		o.stableGas = DefaultStablePurchaseGas
	}
	if o.logger == nil {
		o.logger = nopLogger{}
	}
	return o
}

// Validate checks a purchase of amount against the last applied snapshot,
// the current native balance and the current gas price.
func (o *Orchestrator) Validate(ctx context.Context, amount *big.Int, currency Currency) error {
	snap, err := o.snapshot(ctx)
	if err != nil {
		return err
	}

	account, err := o.wallet.ActiveAddress()
	if err != nil {
		return err
	}

	in := ValidationInput{
		Amount:        amount,
		Currency:      currency,
		Snapshot:      snap,
		GasMultiplier: o.multiplier,
		MinimalGas:    o.minimalGas,
	}
	// Failed reads leave the inputs nil; Validate reports them only when
	// the earlier checks pass.
	if balance, err := o.node.BalanceAt(ctx, account, nil); err == nil {
		in.NativeBalance = balance
	} else {
		o.logger.Error("reading native balance of %s: %v", account.Hex(), err)
	}
	if price, err := o.node.SuggestGasPrice(ctx); err == nil {
		in.GasPrice = price
	} else {
		o.logger.Error("reading gas price: %v", err)
	}

	return Validate(in)
}

// PurchaseWithNative buys tokens paying amount wei of the native currency.
func (o *Orchestrator) PurchaseWithNative(ctx context.Context, amount *big.Int) (*types.Receipt, error) {
	if err := o.wallet.RequireChain(ctx); err != nil {
		return nil, err
	}
	if err := o.Validate(ctx, amount, CurrencyNative); err != nil {
		return nil, err
	}

	presale := o.reader.Presale()
	data, err := presale.Pack(eth.MethodBuyTokensWithBNB)
	if err != nil {
		return nil, err
	}

	o.logger.Debug("buying with %s", chain.Native.FormatWithSymbol(amount))
	return o.tx.Submit(ctx, transaction.KindPurchase,
		transaction.Send(o.wallet, presale.Address(), amount, data, o.nativeGas))
}

// PurchaseWithStable buys tokens paying amount units of the stablecoin.
// The presale is approved for exactly amount first when the current
// allowance is short.
func (o *Orchestrator) PurchaseWithStable(ctx context.Context, amount *big.Int) (*types.Receipt, error) {
	if err := o.wallet.RequireChain(ctx); err != nil {
		return nil, err
	}
	if err := o.Validate(ctx, amount, CurrencyStable); err != nil {
		return nil, err
	}

	account, err := o.wallet.ActiveAddress()
	if err != nil {
		return nil, err
	}

	balance, err := o.reader.StableBalance(ctx, account)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(amount) < 0 {
		return nil, uwerr.WithDetails(uwerr.ErrInsufficientTokenBalance, map[string]string{
			"balance":  chain.Stable.FormatWithSymbol(balance),
			"required": chain.Stable.FormatWithSymbol(amount),
		})
	}

	snap, err := o.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	rate := snap.Rate(CurrencyStable)
	if !rate.Known() {
		return nil, uwerr.WithDetails(uwerr.ErrReadFailure, map[string]string{"field": eth.MethodTokensPerUSDT})
	}
	needed := chain.ConvertAtRate(amount, rate.Raw, chain.Stable)

	liquidity, err := o.reader.PresaleLiquidity(ctx)
	if err != nil {
		return nil, err
	}
	if liquidity.Cmp(needed) < 0 {
		return nil, uwerr.WithDetails(uwerr.ErrInsufficientPresaleLiquidity, map[string]string{
			"available": chain.Token.FormatWithSymbol(liquidity),
			"required":  chain.Token.FormatWithSymbol(needed),
		})
	}

	presale := o.reader.Presale()
	approved, err := o.tx.EnsureAllowance(ctx, o.wallet, o.reader.Stable(), account, presale.Address(), amount)
	if err != nil {
		return nil, err
	}
	if approved {
		o.logger.Debug("approved %s for the presale", chain.Stable.FormatWithSymbol(amount))
	}

	data, err := presale.Pack(eth.MethodBuyTokensWithUSDT, amount)
	if err != nil {
		return nil, err
	}
	return o.tx.Submit(ctx, transaction.KindPurchase,
		transaction.Send(o.wallet, presale.Address(), nil, data, o.stableGas))
}

// Purchase dispatches on currency.
func (o *Orchestrator) Purchase(ctx context.Context, amount *big.Int, currency Currency) (*types.Receipt, error) {
	if currency == CurrencyStable {
		return o.PurchaseWithStable(ctx, amount)
	}
	return o.PurchaseWithNative(ctx, amount)
}

// snapshot returns the last applied snapshot, refreshing once when nothing
// has been applied yet.
func (o *Orchestrator) snapshot(ctx context.Context) (*SaleSnapshot, error) {
	if snap := o.refresher.State().Snapshot; snap != nil {
		return snap, nil
	}
	if err := o.refresher.RefreshNow(ctx); err != nil {
		return nil, err
	}
	return o.refresher.State().Snapshot, nil
}
