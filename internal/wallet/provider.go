// Package wallet connects to the user's wallet: an external signer reached
// over JSON-RPC or a local keystore. Providers speak the EIP-1193 request
// and event shape; the Manager derives the connected session from them.
package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Provider events.
const (
	// EventAccountsChanged carries a []common.Address payload.
	EventAccountsChanged = "accountsChanged"
	// EventChainChanged carries a *big.Int payload.
	EventChainChanged = "chainChanged"
)

// Provider request methods.
const (
	MethodAccounts        = "eth_accounts"
	MethodRequestAccounts = "eth_requestAccounts"
	MethodChainID         = "eth_chainId"
	MethodSendTransaction = "eth_sendTransaction"
)

// Provider is an EIP-1193 style wallet connection.
type Provider interface {
	// Request performs a JSON-RPC style request and decodes the answer into result.
	Request(ctx context.Context, result any, method string, params ...any) error
	// Subscribe registers an event handler. The returned func removes it.
	Subscribe(event string, handler func(payload any)) (dispose func())
	// Close releases the connection and stops event delivery.
	Close()
}

// TxRequest is the eth_sendTransaction parameter object.
type TxRequest struct {
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to,omitempty"`
	Value    *hexutil.Big    `json:"value,omitempty"`
	Data     hexutil.Bytes   `json:"data,omitempty"`
	Gas      *hexutil.Uint64 `json:"gas,omitempty"`
	GasPrice *hexutil.Big    `json:"gasPrice,omitempty"`
}

// NewTxRequest builds a request for a contract call. A zero gas limit lets
// the wallet estimate.
func NewTxRequest(to common.Address, value *big.Int, data []byte, gas uint64) TxRequest {
	req := TxRequest{To: &to, Data: data}
	if value != nil && value.Sign() > 0 {
		req.Value = (*hexutil.Big)(new(big.Int).Set(value))
	}
	if gas > 0 {
		g := hexutil.Uint64(gas)
		req.Gas = &g
	}
	return req
}

// ValueInt returns the value in wei, zero when unset.
func (r TxRequest) ValueInt() *big.Int {
	if r.Value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(r.Value.ToInt())
}

// accountsPayload reads an accountsChanged payload.
func accountsPayload(payload any) []common.Address {
	accounts, _ := payload.([]common.Address)
	return accounts
}

// chainPayload reads a chainChanged payload.
func chainPayload(payload any) *big.Int {
	id, _ := payload.(*big.Int)
	return id
}

// assign copies value into result through its JSON form, the way an RPC
// answer would be decoded.
func assign(result, value any) error {
	if result == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("decoding result: %w", err)
	}
	return nil
}

// emitter fans provider events out to registered handlers.
type emitter struct {
	mu       sync.Mutex
	next     int
	handlers map[string]map[int]func(any)
}

func newEmitter() *emitter {
	return &emitter{handlers: make(map[string]map[int]func(any))}
}

func (e *emitter) subscribe(event string, handler func(any)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.next
	e.next++
	if e.handlers[event] == nil {
		e.handlers[event] = make(map[int]func(any))
	}
	e.handlers[event][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.handlers[event], id)
		})
	}
}

func (e *emitter) emit(event string, payload any) {
	e.mu.Lock()
	handlers := make([]func(any), 0, len(e.handlers[event]))
	for _, h := range e.handlers[event] {
		handlers = append(handlers, h)
	}
	e.mu.Unlock()

	for _, h := range handlers {
		h(payload)
	}
}

func (e *emitter) count(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers[event])
}

func (e *emitter) clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = make(map[string]map[int]func(any))
}
