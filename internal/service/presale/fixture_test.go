package presale

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/uwealth/internal/chain"
	"github.com/mrz1836/uwealth/internal/chain/eth"
	"github.com/mrz1836/uwealth/internal/chain/eth/ethtest"
	"github.com/mrz1836/uwealth/internal/service/transaction"
	"github.com/mrz1836/uwealth/internal/wallet"
	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

//nolint:gochecknoglobals // Test fixtures
var (
	presaleAddr = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	tokenAddr   = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	stableAddr  = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	alice       = common.HexToAddress("0x000000000000000000000000000000000000a11c")
	bob         = common.HexToAddress("0x0000000000000000000000000000000000000b0b")

	fixedNow = time.Unix(1_800_000_000, 0)
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func native(t *testing.T, s string) *big.Int {
	t.Helper()
	v, err := chain.Native.Parse(s)
	require.NoError(t, err)
	return v
}

func stable(t *testing.T, s string) *big.Int {
	t.Helper()
	v, err := chain.Stable.Parse(s)
	require.NoError(t, err)
	return v
}

func token(t *testing.T, s string) *big.Int {
	t.Helper()
	v, err := chain.Token.Parse(s)
	require.NoError(t, err)
	return v
}

// fakeWallet sends by mining the request on the backend.
type fakeWallet struct {
	backend *ethtest.Backend
	account common.Address

	mu        sync.Mutex
	connected bool
	chainErr  error
	sent      []wallet.TxRequest
	// status returns the receipt status of a request; nil means success.
	status  func(req wallet.TxRequest) uint64
	sendErr func(req wallet.TxRequest) error
	onMined func(req wallet.TxRequest)
}

func (w *fakeWallet) ActiveAddress() (common.Address, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		return common.Address{}, uwerr.ErrNotConnected
	}
	return w.account, nil
}

func (w *fakeWallet) RequireChain(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chainErr
}

func (w *fakeWallet) SendTransaction(_ context.Context, req wallet.TxRequest) (common.Hash, error) {
	w.mu.Lock()
	sendErr, statusFn, onMined := w.sendErr, w.status, w.onMined
	w.sent = append(w.sent, req)
	n := len(w.sent)
	w.mu.Unlock()

	if sendErr != nil {
		if err := sendErr(req); err != nil {
			return common.Hash{}, err
		}
	}

	status := types.ReceiptStatusSuccessful
	if statusFn != nil {
		status = statusFn(req)
	}
	hash := common.BigToHash(big.NewInt(int64(n)))
	w.backend.Mine(hash, status)
	if onMined != nil && status == types.ReceiptStatusSuccessful {
		onMined(req)
	}
	return hash, nil
}

func (w *fakeWallet) requests() []wallet.TxRequest {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]wallet.TxRequest(nil), w.sent...)
}

// methods returns the contract method of every sent request.
func (w *fakeWallet) methods(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, req := range w.requests() {
		require.GreaterOrEqual(t, len(req.Data), 4)
		name, ok := methodName(req.Data)
		require.True(t, ok, "unknown selector %x", req.Data[:4])
		out = append(out, name)
	}
	return out
}

func methodName(data []byte) (string, bool) {
	if m, err := eth.PresaleABI.MethodById(data[:4]); err == nil {
		return m.Name, true
	}
	if m, err := eth.ERC20ABI.MethodById(data[:4]); err == nil {
		return m.Name, true
	}
	return "", false
}

type fixture struct {
	backend    *ethtest.Backend
	wallet     *fakeWallet
	reader     *Reader
	refresher  *Refresher
	reconciler *transaction.Reconciler
	orch       *Orchestrator
	admin      *Admin

	mu        sync.Mutex
	allowance *big.Int
	cleared   int
}

// newFixture builds an active sale: 1000 UWT per BNB, 10 UWT per USDT,
// 0.1 to 10 BNB and 10 to 1000 USDT per purchase. Alice is connected with
// 5 BNB and 500 USDT, and owns the presale.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	b := ethtest.NewBackend()
	b.Register(presaleAddr, eth.PresaleABI)
	b.Register(tokenAddr, eth.ERC20ABI)
	b.Register(stableAddr, eth.ERC20ABI)

	f := &fixture{backend: b, allowance: new(big.Int)}

	b.Set(presaleAddr, eth.MethodStartTime, big.NewInt(fixedNow.Add(-time.Hour).Unix()))
	b.Set(presaleAddr, eth.MethodEndTime, big.NewInt(fixedNow.Add(time.Hour).Unix()))
	b.Set(presaleAddr, eth.MethodPresaleSupply, token(t, "1000000"))
	b.Set(presaleAddr, eth.MethodTotalTokensSold, token(t, "250000"))
	b.Set(presaleAddr, eth.MethodTokensPerBNB, token(t, "1000"))
	b.Set(presaleAddr, eth.MethodTokensPerUSDT, token(t, "10"))
	b.Set(presaleAddr, eth.MethodMinPurchaseBNB, native(t, "0.1"))
	b.Set(presaleAddr, eth.MethodMaxPurchaseBNB, native(t, "10"))
	b.Set(presaleAddr, eth.MethodMinPurchaseUSDT, stable(t, "10"))
	b.Set(presaleAddr, eth.MethodMaxPurchaseUSDT, stable(t, "1000"))
	b.Set(presaleAddr, eth.MethodPurchases, big.NewInt(0))
	b.Set(presaleAddr, eth.MethodOwner, alice)

	b.Handle(tokenAddr, eth.MethodBalanceOf, func(_ *big.Int, args []any) ([]any, error) {
		if args[0].(common.Address) == presaleAddr {
			return []any{token(t, "750000")}, nil
		}
		return []any{big.NewInt(0)}, nil
	})
	b.Set(stableAddr, eth.MethodBalanceOf, stable(t, "500"))
	b.Handle(stableAddr, eth.MethodAllowance, func(*big.Int, []any) ([]any, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		return []any{new(big.Int).Set(f.allowance)}, nil
	})
	b.SetBalance(alice, native(t, "5"))

	f.wallet = &fakeWallet{backend: b, account: alice, connected: true}
	// A mined approval sets the allowance to the approved amount.
	f.wallet.onMined = func(req wallet.TxRequest) {
		if name, _ := methodName(req.Data); name != eth.MethodApprove {
			return
		}
		args, err := eth.ERC20ABI.Methods[eth.MethodApprove].Inputs.Unpack(req.Data[4:])
		if err != nil {
			return
		}
		f.setAllowance(args[1].(*big.Int))
	}

	f.reader = NewReader(&ReaderConfig{
		Node:      b,
		Contracts: Contracts{Presale: presaleAddr, Token: tokenAddr, Stable: stableAddr},
		Now:       func() time.Time { return fixedNow },
	})
	f.refresher = NewRefresher(&RefresherConfig{Reader: f.reader, Accounts: f.wallet})
	f.reconciler = transaction.NewReconciler(&transaction.Config{
		Backend:       b,
		BlockInterval: time.Millisecond,
		Hooks: transaction.Hooks{
			Refresh: f.refresher.RefreshNow,
			ClearInput: func(transaction.Kind) {
				f.mu.Lock()
				defer f.mu.Unlock()
				f.cleared++
			},
		},
	})
	f.orch = NewOrchestrator(&OrchestratorConfig{
		Wallet:     f.wallet,
		Node:       b,
		Reader:     f.reader,
		Refresher:  f.refresher,
		Transactor: f.reconciler,
	})
	f.admin = NewAdmin(&AdminConfig{
		Wallet:     f.wallet,
		Reader:     f.reader,
		Transactor: f.reconciler,
		Now:        func() time.Time { return fixedNow },
	})
	return f
}

func (f *fixture) setAllowance(v *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allowance = new(big.Int).Set(v)
}

func (f *fixture) clearedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cleared
}

func assertAmount(t *testing.T, want, got *big.Int, msgAndArgs ...any) {
	t.Helper()
	require.NotNil(t, got, msgAndArgs...)
	assert.Equal(t, want.String(), got.String(), msgAndArgs...)
}
