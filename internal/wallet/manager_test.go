package wallet

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

type fakeProvider struct {
	mu         sync.Mutex
	authorized []common.Address
	granted    []common.Address
	chainID    int64
	requestErr error
	sendErr    error
	sent       []TxRequest
	closed     bool
	events     *emitter
}

func newFakeProvider(chainID int64) *fakeProvider {
	return &fakeProvider{chainID: chainID, granted: []common.Address{alice}, events: newEmitter()}
}

func (p *fakeProvider) Request(_ context.Context, result any, method string, params ...any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch method {
	case MethodAccounts:
		return assign(result, p.authorized)
	case MethodRequestAccounts:
		if p.requestErr != nil {
			return p.requestErr
		}
		p.authorized = p.granted
		return assign(result, p.authorized)
	case MethodChainID:
		return assign(result, (*hexutil.Big)(big.NewInt(p.chainID)))
	case MethodSendTransaction:
		if p.sendErr != nil {
			return p.sendErr
		}
		p.sent = append(p.sent, params[0].(TxRequest))
		return assign(result, common.HexToHash("0xbeef"))
	default:
		return errors.New("unsupported")
	}
}

func (p *fakeProvider) Subscribe(event string, handler func(any)) func() {
	return p.events.subscribe(event, handler)
}

func (p *fakeProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

type recordingPrompter struct {
	mu       sync.Mutex
	prompted int
	expected *big.Int
	actual   *big.Int
}

func (p *recordingPrompter) PromptSwitch(_ string, expectedID, actualID *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompted++
	p.expected = expectedID
	p.actual = actualID
}

func newTestManager(t *testing.T, provider Provider, prompter NetworkPrompter) *Manager {
	t.Helper()
	m, err := NewManager(&ManagerConfig{
		Provider:  provider,
		ChainID:   big.NewInt(97),
		ChainName: "Binance Smart Chain Testnet",
		Prompter:  prompter,
	})
	require.NoError(t, err)
	return m
}

func TestNewManager_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewManager(nil)
	require.ErrorIs(t, err, uwerr.ErrProviderNotFound)

	_, err = NewManager(&ManagerConfig{Provider: newFakeProvider(97)})
	require.ErrorIs(t, err, uwerr.ErrConfigInvalid)
}

func TestManager_StartWithoutAuthorization(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, newFakeProvider(97), nil)
	require.NoError(t, m.Start(context.Background()))
	defer m.Teardown()

	s := m.Session()
	assert.False(t, s.Connected)
	assert.Nil(t, s.ActiveAddress)
	assert.Equal(t, int64(97), s.ChainID.Int64())

	_, err := m.ActiveAddress()
	require.ErrorIs(t, err, uwerr.ErrNotConnected)
}

func TestManager_RequestAccounts(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, newFakeProvider(97), nil)
	require.NoError(t, m.Start(context.Background()))
	defer m.Teardown()

	accounts, err := m.RequestAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []common.Address{alice}, accounts)

	active, err := m.ActiveAddress()
	require.NoError(t, err)
	assert.Equal(t, alice, active)

	current, err := m.CurrentAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []common.Address{alice}, current)
}

func TestManager_RequestAccountsRejected(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider(97)
	provider.requestErr = signerError{code: 4001}
	m := newTestManager(t, provider, nil)
	defer m.Teardown()

	_, err := m.RequestAccounts(context.Background())
	require.ErrorIs(t, err, uwerr.ErrUserRejected)
	assert.False(t, m.Session().Connected)
}

func TestManager_EventsUpdateSessionBeforeListeners(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider(97)
	m := newTestManager(t, provider, nil)
	require.NoError(t, m.Start(context.Background()))
	defer m.Teardown()

	var seen *common.Address
	var seenChain *big.Int
	m.OnAccountsChanged(func([]common.Address) { seen = m.Session().ActiveAddress })
	m.OnChainChanged(func(*big.Int) { seenChain = m.Session().ChainID })

	provider.events.emit(EventAccountsChanged, []common.Address{bob, alice})
	require.NotNil(t, seen)
	assert.Equal(t, bob, *seen)

	provider.events.emit(EventChainChanged, big.NewInt(56))
	require.NotNil(t, seenChain)
	assert.Equal(t, int64(56), seenChain.Int64())

	provider.events.emit(EventAccountsChanged, []common.Address{})
	assert.False(t, m.Session().Connected)
}

func TestManager_DisposeListener(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider(97)
	m := newTestManager(t, provider, nil)
	require.NoError(t, m.Start(context.Background()))
	defer m.Teardown()

	calls := 0
	dispose := m.OnAccountsChanged(func([]common.Address) { calls++ })
	assert.Equal(t, 3, m.Listeners())

	provider.events.emit(EventAccountsChanged, []common.Address{alice})
	dispose()
	dispose()
	provider.events.emit(EventAccountsChanged, []common.Address{bob})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, m.Listeners())
}

func TestManager_TeardownRemovesEveryListener(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider(97)
	m := newTestManager(t, provider, nil)
	require.NoError(t, m.Start(context.Background()))

	calls := 0
	m.OnAccountsChanged(func([]common.Address) { calls++ })
	m.OnChainChanged(func(*big.Int) { calls++ })

	m.Teardown()
	m.Teardown()

	assert.Equal(t, 0, m.Listeners())
	assert.Equal(t, 0, provider.events.count(EventAccountsChanged))
	assert.Equal(t, 0, provider.events.count(EventChainChanged))
	provider.events.emit(EventAccountsChanged, []common.Address{bob})
	assert.Equal(t, 0, calls)

	provider.mu.Lock()
	assert.True(t, provider.closed)
	provider.mu.Unlock()

	// Registering after teardown is a no-op.
	m.OnAccountsChanged(func([]common.Address) { calls++ })()
	assert.Equal(t, 0, m.Listeners())
}

func TestManager_VerifyChain(t *testing.T) {
	t.Parallel()

	t.Run("expected chain", func(t *testing.T) {
		t.Parallel()

		prompter := &recordingPrompter{}
		m := newTestManager(t, newFakeProvider(97), prompter)
		defer m.Teardown()

		ok, err := m.VerifyChain(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Zero(t, prompter.prompted)
		require.NoError(t, m.RequireChain(context.Background()))
	})

	t.Run("wrong chain prompts", func(t *testing.T) {
		t.Parallel()

		prompter := &recordingPrompter{}
		m := newTestManager(t, newFakeProvider(1), prompter)
		defer m.Teardown()

		ok, err := m.VerifyChain(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 1, prompter.prompted)
		assert.Equal(t, int64(97), prompter.expected.Int64())
		assert.Equal(t, int64(1), prompter.actual.Int64())

		err = m.RequireChain(context.Background())
		require.ErrorIs(t, err, uwerr.ErrWrongNetwork)
		assert.Equal(t, "97", uwerr.DetailsOf(err)["expected"])
	})
}

func TestManager_SendTransaction(t *testing.T) {
	t.Parallel()

	provider := newFakeProvider(97)
	m := newTestManager(t, provider, nil)
	require.NoError(t, m.Start(context.Background()))
	defer m.Teardown()

	req := NewTxRequest(common.HexToAddress("0xaa"), big.NewInt(1), nil, 21000)

	_, err := m.SendTransaction(context.Background(), req)
	require.ErrorIs(t, err, uwerr.ErrNotConnected)

	_, err = m.RequestAccounts(context.Background())
	require.NoError(t, err)

	hash, err := m.SendTransaction(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0xbeef"), hash)

	provider.mu.Lock()
	require.Len(t, provider.sent, 1)
	assert.Equal(t, alice, provider.sent[0].From)
	provider.mu.Unlock()
}

func TestManager_SendTransactionClassifiesFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"rejected", signerError{code: 4001}, uwerr.ErrUserRejected},
		{"funds", errors.New("insufficient funds for gas * price + value"), uwerr.ErrInsufficientFunds},
		{"other", errors.New("nonce too low"), uwerr.ErrTxUnknownFailure},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			provider := newFakeProvider(97)
			provider.authorized = []common.Address{alice}
			provider.sendErr = tc.err
			m := newTestManager(t, provider, nil)
			require.NoError(t, m.Start(context.Background()))
			defer m.Teardown()

			_, err := m.SendTransaction(context.Background(), NewTxRequest(bob, nil, nil, 0))
			require.ErrorIs(t, err, tc.want)
		})
	}
}
