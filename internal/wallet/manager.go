package wallet

import (
	"context"
	"math/big"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/mrz1836/uwealth/internal/chain/eth"
	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// Session is the derived view of the wallet connection.
type Session struct {
	ActiveAddress *common.Address
	ChainID       *big.Int
	Connected     bool
}

// ManagerConfig holds dependencies for the manager.
type ManagerConfig struct {
	Provider  Provider
	ChainID   *big.Int
	ChainName string
	Prompter  NetworkPrompter
	Logger    LogWriter
}

// Manager owns the provider for one session. It keeps the Session in sync
// with provider events and removes every listener it registered on Teardown.
type Manager struct {
	provider  Provider
	expected  *big.Int
	chainName string
	prompter  NetworkPrompter
	logger    LogWriter
	events    *emitter

	mu        sync.RWMutex
	session   Session
	nextID    int
	disposers map[int]func()
	torn      bool
}

// NewManager creates a manager for a detected provider.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	if cfg == nil || cfg.Provider == nil {
		return nil, uwerr.ErrProviderNotFound
	}
	if cfg.ChainID == nil {
		return nil, uwerr.WithDetails(uwerr.ErrConfigInvalid, map[string]string{"missing": "chain_id"})
	}

	logger := cfg.Logger
	if logger == nil {
		logger = nopLogger{}
	}

	return &Manager{
		provider:  cfg.Provider,
		expected:  new(big.Int).Set(cfg.ChainID),
		chainName: cfg.ChainName,
		prompter:  cfg.Prompter,
		logger:    logger,
		events:    newEmitter(),
		disposers: make(map[int]func()),
	}, nil
}

// Start subscribes to provider events and loads the current accounts and
// chain without prompting. Listeners registered on the manager only fire
// after Start.
func (m *Manager) Start(ctx context.Context) error {
	m.track(m.provider.Subscribe(EventAccountsChanged, func(payload any) {
		accounts := accountsPayload(payload)
		m.setAccounts(accounts)
		m.events.emit(EventAccountsChanged, slices.Clone(accounts))
	}))
	m.track(m.provider.Subscribe(EventChainChanged, func(payload any) {
		id := chainPayload(payload)
		m.setChain(id)
		m.events.emit(EventChainChanged, id)
	}))

	if _, err := m.CurrentAccounts(ctx); err != nil {
		return err
	}
	_, err := m.chainID(ctx)
	return err
}

// Session returns a copy of the current session.
func (m *Manager) Session() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Session{Connected: m.session.Connected}
	if m.session.ActiveAddress != nil {
		addr := *m.session.ActiveAddress
		s.ActiveAddress = &addr
	}
	if m.session.ChainID != nil {
		s.ChainID = new(big.Int).Set(m.session.ChainID)
	}
	return s
}

// ActiveAddress returns the connected account or ErrNotConnected.
func (m *Manager) ActiveAddress() (common.Address, error) {
	s := m.Session()
	if !s.Connected || s.ActiveAddress == nil {
		return common.Address{}, uwerr.ErrNotConnected
	}
	return *s.ActiveAddress, nil
}

// ExpectedChain returns the chain this session must be on.
func (m *Manager) ExpectedChain() (string, *big.Int) {
	return m.chainName, new(big.Int).Set(m.expected)
}

// RequestAccounts asks the wallet for access. The wallet may prompt; a
// declined prompt returns ErrUserRejected.
func (m *Manager) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := m.provider.Request(ctx, &accounts, MethodRequestAccounts); err != nil {
		if eth.IsUserRejected(err) {
			return nil, uwerr.WithCause(uwerr.ErrUserRejected, err)
		}
		return nil, err
	}
	m.setAccounts(accounts)
	return slices.Clone(accounts), nil
}

// CurrentAccounts returns the accounts already authorized, possibly none.
func (m *Manager) CurrentAccounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := m.provider.Request(ctx, &accounts, MethodAccounts); err != nil {
		return nil, err
	}
	m.setAccounts(accounts)
	return slices.Clone(accounts), nil
}

// OnAccountsChanged registers cb for account changes. The session is
// already updated when cb runs.
func (m *Manager) OnAccountsChanged(cb func(accounts []common.Address)) func() {
	return m.track(m.events.subscribe(EventAccountsChanged, func(payload any) {
		cb(accountsPayload(payload))
	}))
}

// OnChainChanged registers cb for chain changes.
func (m *Manager) OnChainChanged(cb func(chainID *big.Int)) func() {
	return m.track(m.events.subscribe(EventChainChanged, func(payload any) {
		cb(chainPayload(payload))
	}))
}

// VerifyChain reports whether the wallet is on the expected chain. On a
// mismatch the prompter is asked to switch and false is returned.
func (m *Manager) VerifyChain(ctx context.Context) (bool, error) {
	actual, err := m.chainID(ctx)
	if err != nil {
		return false, err
	}
	if actual.Cmp(m.expected) == 0 {
		return true, nil
	}

	m.logger.Debug("wallet on chain %s, expected %s (%s)", actual, m.expected, m.chainName)
	if m.prompter != nil {
		m.prompter.PromptSwitch(m.chainName, new(big.Int).Set(m.expected), actual)
	}
	return false, nil
}

// RequireChain is VerifyChain as an error: ErrWrongNetwork on mismatch.
func (m *Manager) RequireChain(ctx context.Context) error {
	ok, err := m.VerifyChain(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return uwerr.WithDetails(uwerr.ErrWrongNetwork, map[string]string{
			"expected": m.expected.String(),
			"network":  m.chainName,
		})
	}
	return nil
}

// SendTransaction submits req from the active account and returns the hash.
func (m *Manager) SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error) {
	from, err := m.ActiveAddress()
	if err != nil {
		return common.Hash{}, err
	}
	req.From = from

	var hash common.Hash
	if err := m.provider.Request(ctx, &hash, MethodSendTransaction, req); err != nil {
		m.logger.Error("eth_sendTransaction from %s failed: %v", from.Hex(), err)
		return common.Hash{}, eth.AsTxError(err)
	}
	m.logger.Debug("submitted %s from %s", hash.Hex(), from.Hex())
	return hash, nil
}

// Teardown removes every listener and closes the provider.
func (m *Manager) Teardown() {
	m.mu.Lock()
	if m.torn {
		m.mu.Unlock()
		return
	}
	m.torn = true
	disposers := make([]func(), 0, len(m.disposers))
	for _, d := range m.disposers {
		disposers = append(disposers, d)
	}
	m.disposers = make(map[int]func())
	m.mu.Unlock()

	for _, d := range disposers {
		d()
	}
	m.events.clear()
	m.provider.Close()
}

// Listeners returns how many listeners the manager holds.
func (m *Manager) Listeners() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.disposers)
}

// track records a disposer and returns one that also forgets it.
func (m *Manager) track(dispose func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.torn {
		dispose()
		return func() {}
	}

	id := m.nextID
	m.nextID++
	m.disposers[id] = dispose

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.disposers, id)
			m.mu.Unlock()
			dispose()
		})
	}
}

func (m *Manager) chainID(ctx context.Context) (*big.Int, error) {
	var id hexutil.Big
	if err := m.provider.Request(ctx, &id, MethodChainID); err != nil {
		return nil, err
	}
	actual := new(big.Int).Set(id.ToInt())
	m.setChain(actual)
	return actual, nil
}

func (m *Manager) setAccounts(accounts []common.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(accounts) == 0 {
		m.session.ActiveAddress = nil
		m.session.Connected = false
		return
	}
	addr := accounts[0]
	m.session.ActiveAddress = &addr
	m.session.Connected = true
}

func (m *Manager) setChain(id *big.Int) {
	if id == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.ChainID = new(big.Int).Set(id)
}
