package cli

import (
	"bytes"
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/uwealth/internal/chain"
	"github.com/mrz1836/uwealth/internal/chain/eth"
	"github.com/mrz1836/uwealth/internal/chain/eth/ethtest"
	"github.com/mrz1836/uwealth/internal/config"
	"github.com/mrz1836/uwealth/internal/output"
	"github.com/mrz1836/uwealth/internal/wallet"
	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

//nolint:gochecknoglobals // Test fixtures
var (
	presaleAddr = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	tokenAddr   = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	stableAddr  = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	stakingAddr = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	fundAddr    = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	alice       = common.HexToAddress("0x000000000000000000000000000000000000a11c")
	bob         = common.HexToAddress("0x0000000000000000000000000000000000000b0b")

	fixedNow = time.Unix(1_800_000_000, 0)
)

func amountOf(t *testing.T, asset chain.Asset, s string) *big.Int {
	t.Helper()
	v, err := asset.Parse(s)
	require.NoError(t, err)
	return v
}

// fakeSession is a connected wallet that mines every request on the backend.
type fakeSession struct {
	backend *ethtest.Backend
	account common.Address
	chainID *big.Int

	mu        sync.Mutex
	connected bool
	sent      []wallet.TxRequest
	onMined   func(req wallet.TxRequest)
}

func (w *fakeSession) ActiveAddress() (common.Address, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		return common.Address{}, uwerr.ErrNotConnected
	}
	return w.account, nil
}

func (w *fakeSession) RequireChain(context.Context) error {
	return nil
}

func (w *fakeSession) SendTransaction(_ context.Context, req wallet.TxRequest) (common.Hash, error) {
	w.mu.Lock()
	w.sent = append(w.sent, req)
	hash := common.BigToHash(big.NewInt(int64(len(w.sent))))
	onMined := w.onMined
	w.mu.Unlock()

	w.backend.Mine(hash, types.ReceiptStatusSuccessful)
	if onMined != nil {
		onMined(req)
	}
	return hash, nil
}

func (w *fakeSession) Session() wallet.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := wallet.Session{Connected: w.connected, ChainID: w.chainID}
	if w.connected {
		account := w.account
		s.ActiveAddress = &account
	}
	return s
}

func (w *fakeSession) RequestAccounts(context.Context) ([]common.Address, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.connected = true
	return []common.Address{w.account}, nil
}

func (w *fakeSession) VerifyChain(context.Context) (bool, error) {
	return w.chainID != nil && w.chainID.Int64() == 97, nil
}

// requests returns the sent requests decoded as contract method names.
func (w *fakeSession) methods(t *testing.T) []string {
	t.Helper()
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []string
	for _, req := range w.sent {
		require.NotNil(t, req.To)
		var parsed abi.ABI
		switch *req.To {
		case presaleAddr:
			parsed = eth.PresaleABI
		case tokenAddr, stableAddr:
			parsed = eth.ERC20ABI
		case stakingAddr:
			parsed = eth.StakingABI
		case fundAddr:
			parsed = eth.VaultABI
		default:
			t.Fatalf("unexpected recipient %s", req.To.Hex())
		}
		m, err := parsed.MethodById(req.Data[:4])
		require.NoError(t, err)
		out = append(out, m.Name)
	}
	return out
}

type cliFixture struct {
	backend *ethtest.Backend
	wallet  *fakeSession
	cc      *CommandContext
	stdout  *bytes.Buffer
	notices *bytes.Buffer

	mu         sync.Mutex
	allowances map[common.Address]*big.Int
}

// newCLIFixture wires the commands over an active sale: 1000 UWT per BNB,
// 10 UWT per USDT, 0.1 to 10 BNB and 10 to 1000 USDT per purchase, 25% sold.
// Alice is connected on chain 97 with 5 BNB, 500 USDT and 100 UWT; she owns
// the presale, has 40 UWT staked and 30 UWT in the fund.
func newCLIFixture(t *testing.T, format output.Format) *cliFixture {
	t.Helper()

	b := ethtest.NewBackend()
	b.Register(presaleAddr, eth.PresaleABI)
	b.Register(tokenAddr, eth.ERC20ABI)
	b.Register(stableAddr, eth.ERC20ABI)
	b.Register(stakingAddr, eth.StakingABI)
	b.Register(fundAddr, eth.VaultABI)

	f := &cliFixture{
		backend:    b,
		stdout:     new(bytes.Buffer),
		notices:    new(bytes.Buffer),
		allowances: make(map[common.Address]*big.Int),
	}

	tok := func(s string) *big.Int { return amountOf(t, chain.Token, s) }
	b.Set(presaleAddr, eth.MethodStartTime, big.NewInt(fixedNow.Add(-time.Hour).Unix()))
	b.Set(presaleAddr, eth.MethodEndTime, big.NewInt(fixedNow.Add(time.Hour).Unix()))
	b.Set(presaleAddr, eth.MethodPresaleSupply, tok("1000000"))
	b.Set(presaleAddr, eth.MethodTotalTokensSold, tok("250000"))
	b.Set(presaleAddr, eth.MethodTokensPerBNB, tok("1000"))
	b.Set(presaleAddr, eth.MethodTokensPerUSDT, tok("10"))
	b.Set(presaleAddr, eth.MethodMinPurchaseBNB, amountOf(t, chain.Native, "0.1"))
	b.Set(presaleAddr, eth.MethodMaxPurchaseBNB, amountOf(t, chain.Native, "10"))
	b.Set(presaleAddr, eth.MethodMinPurchaseUSDT, amountOf(t, chain.Stable, "10"))
	b.Set(presaleAddr, eth.MethodMaxPurchaseUSDT, amountOf(t, chain.Stable, "1000"))
	b.Set(presaleAddr, eth.MethodPurchases, tok("500"))
	b.Set(presaleAddr, eth.MethodOwner, alice)

	b.Handle(tokenAddr, eth.MethodBalanceOf, func(_ *big.Int, args []any) ([]any, error) {
		if args[0].(common.Address) == presaleAddr {
			return []any{tok("750000")}, nil
		}
		return []any{tok("100")}, nil
	})
	b.Set(stableAddr, eth.MethodBalanceOf, amountOf(t, chain.Stable, "500"))
	allowance := func(_ *big.Int, args []any) ([]any, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if v, ok := f.allowances[args[1].(common.Address)]; ok {
			return []any{new(big.Int).Set(v)}, nil
		}
		return []any{big.NewInt(0)}, nil
	}
	b.Handle(tokenAddr, eth.MethodAllowance, allowance)
	b.Handle(stableAddr, eth.MethodAllowance, allowance)
	b.Set(stakingAddr, eth.MethodBalanceOf, tok("40"))
	b.Set(stakingAddr, eth.MethodStakedAmount, tok("40"))
	b.Set(stakingAddr, eth.MethodEarned, tok("2.5"))
	b.Set(fundAddr, eth.MethodGetUserBalance, tok("30"))
	b.SetBalance(alice, amountOf(t, chain.Native, "5"))

	f.wallet = &fakeSession{backend: b, account: alice, chainID: big.NewInt(97), connected: true}
	// A mined approval sets the allowance of the spender.
	f.wallet.onMined = func(req wallet.TxRequest) {
		m, err := eth.ERC20ABI.MethodById(req.Data[:4])
		if err != nil || m.Name != eth.MethodApprove {
			return
		}
		args, err := m.Inputs.Unpack(req.Data[4:])
		if err != nil {
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.allowances[args[0].(common.Address)] = args[1].(*big.Int)
	}

	c := config.Defaults()
	env := c.Environments[config.DefaultEnvironment]
	env.RefreshInterval = time.Hour
	env.BlockInterval = time.Millisecond

	f.cc = Wire(&Wiring{
		Config: c,
		Env:    &env,
		Contracts: Contracts{
			Presale: presaleAddr,
			Token:   tokenAddr,
			Stable:  stableAddr,
			Staking: stakingAddr,
			Fund:    fundAddr,
		},
		Logger:    config.NullLogger(),
		Formatter: output.NewFormatter(format, f.stdout),
		Node:      b,
		Wallet:    f.wallet,
		Notices:   f.notices,
		Now:       func() time.Time { return fixedNow },
	})
	t.Cleanup(f.cc.Close)
	return f
}

// run executes cmd's RunE against the fixture.
func (f *cliFixture) run(t *testing.T, cmd *cobra.Command) error {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	cmd.SetContext(ctx)
	SetCmdContext(cmd, f.cc)

	stderr := new(bytes.Buffer)
	cmd.SetOut(f.stdout)
	cmd.SetErr(stderr)
	t.Cleanup(func() {
		cmd.SetOut(nil)
		cmd.SetErr(nil)
	})
	return cmd.RunE(cmd, nil)
}

// confirmWith replaces the confirmation prompt for the test.
func confirmWith(t *testing.T, answer bool) *[]string {
	t.Helper()
	var asked []string
	orig := promptConfirmFn
	promptConfirmFn = func(question string) bool {
		asked = append(asked, question)
		return answer
	}
	t.Cleanup(func() { promptConfirmFn = orig })
	return &asked
}

// setFlag sets a package flag variable for the test.
func setFlag[T any](t *testing.T, target *T, value T) {
	t.Helper()
	orig := *target
	*target = value
	t.Cleanup(func() { *target = orig })
}
