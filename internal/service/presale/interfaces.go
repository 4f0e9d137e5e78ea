package presale

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mrz1836/uwealth/internal/chain/eth"
	"github.com/mrz1836/uwealth/internal/service/transaction"
	"github.com/mrz1836/uwealth/internal/wallet"
)

// Node provides the chain reads the presale service needs.
type Node interface {
	bind.ContractCaller
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, block *big.Int) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// AccountSource reports the active wallet account.
type AccountSource interface {
	ActiveAddress() (common.Address, error)
}

// Wallet is the connected wallet session.
type Wallet interface {
	AccountSource
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

// Recorder counts reads and refreshes.
type Recorder interface {
	ObserveRead(field string, err error)
	ObserveRefresh(result string)
}

// Compile-time interface checks.
var (
	_ Wallet     = (*wallet.Manager)(nil)
	_ Transactor = (*transaction.Reconciler)(nil)
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

type nopRecorder struct{}

func (nopRecorder) ObserveRead(string, error) {}
func (nopRecorder) ObserveRefresh(string)     {}
