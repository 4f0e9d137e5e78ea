// Package ethtest provides in-memory contract and node fakes for tests.
package ethtest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// ErrNoHandler is returned for a call nobody registered.
var ErrNoHandler = errors.New("ethtest: no handler")

// CallFunc computes the outputs of a view call.
type CallFunc func(block *big.Int, args []any) ([]any, error)

// Call records one contract call.
type Call struct {
	Address common.Address
	Method  string
	Block   *big.Int
	Args    []any
}

type callKey struct {
	address common.Address
	method  string
}

// Backend is a fake node: it answers contract view calls from registered
// handlers and serves balances, gas price, block number and receipts.
type Backend struct {
	mu        sync.Mutex
	contracts map[common.Address]abi.ABI
	handlers  map[callKey]CallFunc
	calls     []Call
	block     uint64
	balances  map[common.Address]*big.Int
	gasPrice  *big.Int
	receipts  map[common.Hash]*types.Receipt

	// BeforeCall runs before every contract call is answered, outside the lock.
	BeforeCall func(method string)
}

// NewBackend creates an empty backend at block 100 with a 1 gwei gas price.
func NewBackend() *Backend {
	return &Backend{
		contracts: make(map[common.Address]abi.ABI),
		handlers:  make(map[callKey]CallFunc),
		block:     100,
		balances:  make(map[common.Address]*big.Int),
		gasPrice:  big.NewInt(1_000_000_000),
		receipts:  make(map[common.Hash]*types.Receipt),
	}
}

// Register declares the ABI of a contract address.
func (b *Backend) Register(address common.Address, parsed abi.ABI) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.contracts[address] = parsed
}

// Handle sets the handler of a method.
func (b *Backend) Handle(address common.Address, method string, fn CallFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[callKey{address, method}] = fn
}

// Set makes a method return fixed values.
func (b *Backend) Set(address common.Address, method string, values ...any) {
	b.Handle(address, method, func(*big.Int, []any) ([]any, error) {
		return values, nil
	})
}

// Fail makes a method return err.
func (b *Backend) Fail(address common.Address, method string, err error) {
	b.Handle(address, method, func(*big.Int, []any) ([]any, error) {
		return nil, err
	})
}

// Calls returns the recorded contract calls.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

// CallCount returns how often a method was called on any contract.
func (b *Backend) CallCount(method string) int {
	n := 0
	for _, c := range b.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (b *Backend) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}

// CodeAt reports code at every registered address.
func (b *Backend) CodeAt(_ context.Context, contract common.Address, _ *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.contracts[contract]; ok {
		return []byte{0x60, 0x80}, nil
	}
	return nil, nil
}

// CallContract decodes the calldata and dispatches to the handler.
func (b *Backend) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, fmt.Errorf("ethtest: malformed call")
	}

	b.mu.Lock()
	parsed, ok := b.contracts[*msg.To]
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("ethtest: unknown contract %s", msg.To.Hex())
	}

	method, err := parsed.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.calls = append(b.calls, Call{Address: *msg.To, Method: method.Name, Block: copyBig(block), Args: args})
	fn := b.handlers[callKey{*msg.To, method.Name}]
	hook := b.BeforeCall
	b.mu.Unlock()

	if hook != nil {
		hook(method.Name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, fmt.Errorf("%w for %s", ErrNoHandler, method.Name)
	}

	values, err := fn(block, args)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(values...)
}

// SetBlock sets the current block number.
func (b *Backend) SetBlock(n uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.block = n
}

// BlockNumber returns the current block number.
func (b *Backend) BlockNumber(context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.block, nil
}

// SetBalance sets the native balance of an account.
func (b *Backend) SetBalance(account common.Address, balance *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[account] = copyBig(balance)
}

// BalanceAt returns the native balance, zero for unknown accounts.
func (b *Backend) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v, ok := b.balances[account]; ok {
		return copyBig(v), nil
	}
	return new(big.Int), nil
}

// SetGasPrice sets the suggested gas price.
func (b *Backend) SetGasPrice(price *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gasPrice = copyBig(price)
}

// SuggestGasPrice returns the configured gas price.
func (b *Backend) SuggestGasPrice(context.Context) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return copyBig(b.gasPrice), nil
}

// Mine stores a receipt with the given status for hash.
func (b *Backend) Mine(hash common.Hash, status uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.block++
	b.receipts[hash] = &types.Receipt{
		Status:      status,
		TxHash:      hash,
		BlockNumber: new(big.Int).SetUint64(b.block),
		GasUsed:     21000,
	}
}

// TransactionReceipt returns a mined receipt or ethereum.NotFound.
func (b *Backend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r, ok := b.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

// SubscribeNewHead is unsupported, like an HTTP endpoint.
func (b *Backend) SubscribeNewHead(context.Context, chan<- *types.Header) (ethereum.Subscription, error) {
	return nil, rpc.ErrNotificationsUnsupported
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
