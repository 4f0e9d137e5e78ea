package staking

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mrz1836/uwealth/internal/chain/eth"
	"github.com/mrz1836/uwealth/internal/service/transaction"
	"github.com/mrz1836/uwealth/internal/wallet"
)

// Wallet is the connected wallet session.
type Wallet interface {
	ActiveAddress() (common.Address, error)
	RequireChain(ctx context.Context) error
	SendTransaction(ctx context.Context, req wallet.TxRequest) (common.Hash, error)
}

// Transactor submits transactions and waits for their outcome.
type Transactor interface {
	Submit(ctx context.Context, kind transaction.Kind, send transaction.SendFunc) (*types.Receipt, error)
	EnsureAllowance(ctx context.Context, sender transaction.Sender, token *eth.Contract, owner, spender common.Address, amount *big.Int) (bool, error)
}

// LogWriter provides logging operations.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// Compile-time interface checks.
var (
	_ Wallet     = (*wallet.Manager)(nil)
	_ Transactor = (*transaction.Reconciler)(nil)
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}
