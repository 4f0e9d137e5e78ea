// Package staking stakes the project token and moves it in and out of the
// deposit vaults (investment fund, trading bot).
package staking

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/uwealth/internal/chain"
	"github.com/mrz1836/uwealth/internal/chain/eth"
	"github.com/mrz1836/uwealth/internal/service/transaction"
	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// Position is the staking state of one account, in token units.
type Position struct {
	Address common.Address
	Balance *big.Int
	Staked  *big.Int
	Earned  *big.Int
}

// Config holds dependencies for the staking service.
type Config struct {
	Node       bind.ContractCaller
	Token      common.Address
	Staking    common.Address
	Wallet     Wallet
	Transactor Transactor
	Logger     LogWriter
}

// Service stakes tokens, unstakes them and claims rewards.
type Service struct {
	token   *eth.Contract
	staking *eth.Contract
	wallet  Wallet
	tx      Transactor
	logger  LogWriter
}

// NewService creates a staking service.
func NewService(cfg *Config) *Service {
	s := &Service{
		token:   eth.NewContract(cfg.Token, eth.ERC20ABI, cfg.Node),
		staking: eth.NewContract(cfg.Staking, eth.StakingABI, cfg.Node),
		wallet:  cfg.Wallet,
		tx:      cfg.Transactor,
		logger:  cfg.Logger,
	}
	if s.logger == nil {
		s.logger = nopLogger{}
	}
	return s
}

// Position reads the staking balances of account.
func (s *Service) Position(ctx context.Context, account common.Address) (*Position, error) {
	pos := &Position{Address: account}

	g, gctx := errgroup.WithContext(ctx)
	for _, read := range []struct {
		method string
		target **big.Int
	}{
		{eth.MethodBalanceOf, &pos.Balance},
		{eth.MethodStakedAmount, &pos.Staked},
		{eth.MethodEarned, &pos.Earned},
	} {
		g.Go(func() error {
			v, err := s.staking.CallBig(gctx, nil, read.method, account)
			if err != nil {
				return readFailure(read.method, err)
			}
			*read.target = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("reading staking position of %s: %v", account.Hex(), err)
		return nil, err
	}
	return pos, nil
}

// Stake locks amount tokens, approving the staking contract first when the
// current allowance is short.
func (s *Service) Stake(ctx context.Context, amount *big.Int) (*types.Receipt, error) {
	account, err := begin(ctx, s.wallet, amount)
	if err != nil {
		return nil, err
	}
	if err := requireBalance(ctx, s.token, account, amount); err != nil {
		return nil, err
	}
	if _, err := s.tx.EnsureAllowance(ctx, s.wallet, s.token, account, s.staking.Address(), amount); err != nil {
		return nil, err
	}
	return s.call(ctx, transaction.KindStake, eth.MethodStake, amount)
}

// Unstake withdraws amount staked tokens.
func (s *Service) Unstake(ctx context.Context, amount *big.Int) (*types.Receipt, error) {
	account, err := begin(ctx, s.wallet, amount)
	if err != nil {
		return nil, err
	}
	staked, err := s.staking.CallBig(ctx, nil, eth.MethodStakedAmount, account)
	if err != nil {
		return nil, readFailure(eth.MethodStakedAmount, err)
	}
	if staked.Cmp(amount) < 0 {
		return nil, uwerr.WithDetails(uwerr.ErrInsufficientTokenBalance, map[string]string{
			"staked":   chain.Token.FormatWithSymbol(staked),
			"required": chain.Token.FormatWithSymbol(amount),
		})
	}
	return s.call(ctx, transaction.KindWithdraw, eth.MethodWithdraw, amount)
}

// ClaimRewards collects the earned rewards.
func (s *Service) ClaimRewards(ctx context.Context) (*types.Receipt, error) {
	if err := s.wallet.RequireChain(ctx); err != nil {
		return nil, err
	}
	return s.call(ctx, transaction.KindClaimReward, eth.MethodGetReward)
}

func (s *Service) call(ctx context.Context, kind transaction.Kind, method string, args ...any) (*types.Receipt, error) {
	data, err := s.staking.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("staking call %s", method)
	return s.tx.Submit(ctx, kind, transaction.Send(s.wallet, s.staking.Address(), nil, data, 0))
}

// begin verifies the chain and the amount and returns the active account.
func begin(ctx context.Context, w Wallet, amount *big.Int) (common.Address, error) {
	if err := w.RequireChain(ctx); err != nil {
		return common.Address{}, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return common.Address{}, uwerr.WithDetails(uwerr.ErrInvalidAmount, map[string]string{
			"reason": "amount must be positive",
		})
	}
	return w.ActiveAddress()
}

func requireBalance(ctx context.Context, token *eth.Contract, account common.Address, amount *big.Int) error {
	balance, err := token.CallBig(ctx, nil, eth.MethodBalanceOf, account)
	if err != nil {
		return readFailure("tokenBalance", err)
	}
	if balance.Cmp(amount) < 0 {
		return uwerr.WithDetails(uwerr.ErrInsufficientTokenBalance, map[string]string{
			"balance":  chain.Token.FormatWithSymbol(balance),
			"required": chain.Token.FormatWithSymbol(amount),
		})
	}
	return nil
}

func readFailure(field string, err error) error {
	return uwerr.WithDetails(uwerr.WithCause(uwerr.ErrReadFailure, err), map[string]string{"field": field})
}
