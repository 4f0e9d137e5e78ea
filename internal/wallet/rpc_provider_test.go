package wallet

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

type signerError struct {
	code int
}

func (e signerError) Error() string  { return "signer error" }
func (e signerError) ErrorCode() int { return e.code }

// fakeSigner answers eth_accounts and eth_chainId from mutable state.
type fakeSigner struct {
	mu       sync.Mutex
	accounts []common.Address
	chainID  int64
	failWith error
	closed   bool
}

func (s *fakeSigner) CallContext(_ context.Context, result any, method string, _ ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWith != nil {
		return s.failWith
	}
	switch method {
	case MethodAccounts, MethodRequestAccounts:
		return assign(result, s.accounts)
	case MethodChainID:
		return assign(result, (*hexutil.Big)(big.NewInt(s.chainID)))
	default:
		return errors.New("unsupported")
	}
}

func (s *fakeSigner) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *fakeSigner) set(accounts []common.Address, chainID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = accounts
	s.chainID = chainID
}

func TestRPCProvider_WatcherEmitsChanges(t *testing.T) {
	defer goleak.VerifyNone(t)

	signer := &fakeSigner{accounts: []common.Address{common.HexToAddress("0x01")}, chainID: 97}
	p := newRPCProvider(signer, 5*time.Millisecond)

	accountsCh := make(chan []common.Address, 4)
	chainCh := make(chan *big.Int, 4)
	p.Subscribe(EventAccountsChanged, func(payload any) { accountsCh <- accountsPayload(payload) })
	p.Subscribe(EventChainChanged, func(payload any) { chainCh <- chainPayload(payload) })

	// Let the watcher record its baseline before changing state.
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.chainID != nil
	}, time.Second, time.Millisecond)

	signer.set([]common.Address{common.HexToAddress("0x02")}, 56)

	select {
	case accounts := <-accountsCh:
		assert.Equal(t, []common.Address{common.HexToAddress("0x02")}, accounts)
	case <-time.After(time.Second):
		t.Fatal("no accountsChanged event")
	}
	select {
	case id := <-chainCh:
		assert.Equal(t, int64(56), id.Int64())
	case <-time.After(time.Second):
		t.Fatal("no chainChanged event")
	}

	p.Close()
	p.Close()

	signer.mu.Lock()
	assert.True(t, signer.closed)
	signer.mu.Unlock()
	assert.Equal(t, 0, p.events.count(EventAccountsChanged))
}

func TestRPCProvider_RequestMapsRejection(t *testing.T) {
	t.Parallel()

	signer := &fakeSigner{failWith: signerError{code: 4001}}
	p := newRPCProvider(signer, time.Second)
	defer p.Close()

	var accounts []common.Address
	err := p.Request(context.Background(), &accounts, MethodRequestAccounts)
	require.ErrorIs(t, err, uwerr.ErrUserRejected)

	signer.mu.Lock()
	signer.failWith = signerError{code: -32000}
	signer.mu.Unlock()

	err = p.Request(context.Background(), &accounts, MethodAccounts)
	require.Error(t, err)
	assert.NotErrorIs(t, err, uwerr.ErrUserRejected)
}

func TestRPCProvider_CloseWithoutSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)

	signer := &fakeSigner{chainID: 97}
	p := newRPCProvider(signer, 0)
	assert.Equal(t, DefaultPollInterval, p.interval)
	p.Close()
}
