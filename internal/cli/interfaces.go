package cli

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/uwealth/internal/chain/eth"
	"github.com/mrz1836/uwealth/internal/config"
	"github.com/mrz1836/uwealth/internal/service/presale"
	"github.com/mrz1836/uwealth/internal/service/staking"
	"github.com/mrz1836/uwealth/internal/wallet"
)

// Compile-time interface checks.
var (
	_ LogWriter      = (*config.Logger)(nil)
	_ Node           = (*eth.Client)(nil)
	_ WalletSession  = (*wallet.Manager)(nil)
	_ WalletSession  = noWallet{}
	_ staking.Wallet = WalletSession(nil)
)

// LogWriter provides logging capabilities.
// This interface enables mocking logging in tests.
type LogWriter interface {
	// Debug logs a debug-level message.
	Debug(format string, args ...any)

	// Error logs an error-level message.
	Error(format string, args ...any)
}

// Node is the chain access the commands need: contract reads, balances,
// gas prices and receipts.
type Node interface {
	presale.Node
	eth.ReceiptBackend
}

// WalletSession is the wallet as the commands see it.
type WalletSession interface {
	presale.Wallet

	// Session returns the current connection state.
	Session() wallet.Session

	// RequestAccounts asks the wallet for access.
	RequestAccounts(ctx context.Context) ([]common.Address, error)

	// VerifyChain reports whether the wallet is on the expected chain.
	VerifyChain(ctx context.Context) (bool, error)
}
