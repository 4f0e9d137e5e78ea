package wallet

import (
	"context"
	"math/big"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/mrz1836/uwealth/internal/chain/eth"
	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// DefaultPollInterval is how often an external signer is asked for its
// accounts and chain when it cannot push events.
const DefaultPollInterval = 2 * time.Second

// rpcCaller is the slice of *rpc.Client the provider uses.
type rpcCaller interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
	Close()
}

// RPCProvider talks to an external signer over JSON-RPC. Account and chain
// changes are detected by polling and emitted as provider events.
type RPCProvider struct {
	client   rpcCaller
	interval time.Duration
	events   *emitter

	startOnce sync.Once
	closeOnce sync.Once
	stop      chan struct{}
	wg        sync.WaitGroup

	mu       sync.Mutex
	accounts []common.Address
	chainID  *big.Int
}

// DialRPCProvider connects to a signer endpoint.
func DialRPCProvider(ctx context.Context, url string, pollInterval time.Duration) (*RPCProvider, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, uwerr.WithCause(uwerr.ErrProviderNotFound, err)
	}
	return newRPCProvider(client, pollInterval), nil
}

func newRPCProvider(client rpcCaller, pollInterval time.Duration) *RPCProvider {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &RPCProvider{
		client:   client,
		interval: pollInterval,
		events:   newEmitter(),
		stop:     make(chan struct{}),
	}
}

// Request forwards the call to the signer. EIP-1193 code 4001 is returned
// as ErrUserRejected.
func (p *RPCProvider) Request(ctx context.Context, result any, method string, params ...any) error {
	err := p.client.CallContext(ctx, result, method, params...)
	if err == nil {
		return nil
	}
	if eth.IsUserRejected(err) {
		return uwerr.WithCause(uwerr.ErrUserRejected, err)
	}
	return err
}

// Subscribe registers a handler and starts the watcher on first use.
func (p *RPCProvider) Subscribe(event string, handler func(payload any)) func() {
	dispose := p.events.subscribe(event, handler)
	p.startOnce.Do(func() {
		p.wg.Add(1)
		go p.watch()
	})
	return dispose
}

// Close stops the watcher and closes the connection.
func (p *RPCProvider) Close() {
	p.closeOnce.Do(func() {
		close(p.stop)
		p.wg.Wait()
		p.events.clear()
		p.client.Close()
	})
}

func (p *RPCProvider) watch() {
	defer p.wg.Done()

	p.poll(false)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.poll(true)
		}
	}
}

// poll reads accounts and chain id and, when emit is set, reports changes.
// Failed reads leave the previous values in place.
func (p *RPCProvider) poll(emit bool) {
	ctx, cancel := context.WithTimeout(context.Background(), p.interval)
	defer cancel()

	go func() {
		select {
		case <-p.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	var accounts []common.Address
	accountsErr := p.client.CallContext(ctx, &accounts, MethodAccounts)

	var id hexutil.Big
	chainErr := p.client.CallContext(ctx, &id, MethodChainID)

	p.mu.Lock()
	var accountsChanged, chainChanged bool
	if accountsErr == nil && !slices.Equal(accounts, p.accounts) {
		p.accounts = accounts
		accountsChanged = true
	}
	if chainErr == nil && (p.chainID == nil || p.chainID.Cmp(id.ToInt()) != 0) {
		p.chainID = new(big.Int).Set(id.ToInt())
		chainChanged = true
	}
	snapshotAccounts := slices.Clone(p.accounts)
	snapshotChain := new(big.Int)
	if p.chainID != nil {
		snapshotChain.Set(p.chainID)
	}
	p.mu.Unlock()

	if !emit {
		return
	}
	if accountsChanged {
		p.events.emit(EventAccountsChanged, snapshotAccounts)
	}
	if chainChanged {
		p.events.emit(EventChainChanged, snapshotChain)
	}
}
