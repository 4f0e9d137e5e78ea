package wallet

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"syscall"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/term"

	"github.com/mrz1836/uwealth/internal/chain/eth"
	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// Node is the chain access a keystore wallet needs to complete, sign and
// broadcast transactions and to answer plain reads.
type Node interface {
	eth.TxBackend
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	RawCall(ctx context.Context, result any, method string, args ...any) error
}

// PassphrasePrompter asks the user to unlock an account. An empty answer
// declines the connection.
type PassphrasePrompter interface {
	Passphrase(account common.Address) (string, error)
}

// TerminalPrompter reads the passphrase from the terminal without echo.
type TerminalPrompter struct {
	Out io.Writer
}

// Passphrase prompts on Out and reads hidden input from stdin.
func (p TerminalPrompter) Passphrase(account common.Address) (string, error) {
	out := p.Out
	if out == nil {
		out = os.Stderr
	}
	_, _ = fmt.Fprintf(out, "Passphrase for %s: ", account.Hex())

	password, err := term.ReadPassword(syscall.Stdin)
	_, _ = fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(password), nil
}

// KeystoreProvider is a wallet backed by a local keystore directory.
// Accounts stay locked until eth_requestAccounts unlocks one; only unlocked
// accounts are reported by eth_accounts.
type KeystoreProvider struct {
	ks       *keystore.KeyStore
	node     Node
	prompter PassphrasePrompter
	nonces   *eth.NonceManager
	events   *emitter

	mu       sync.Mutex
	unlocked []common.Address
}

// NewKeystoreProvider opens the keystore in dir.
func NewKeystoreProvider(dir string, node Node, prompter PassphrasePrompter) (*KeystoreProvider, error) {
	if dir == "" || node == nil {
		return nil, uwerr.ErrProviderNotFound
	}
	return &KeystoreProvider{
		ks:       keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP),
		node:     node,
		prompter: prompter,
		nonces:   eth.NewNonceManager(),
		events:   newEmitter(),
	}, nil
}

// HasAccounts reports whether the keystore holds any key.
func (p *KeystoreProvider) HasAccounts() bool {
	return len(p.ks.Accounts()) > 0
}

// Request handles account, chain and transaction methods and forwards the
// rest to the node.
func (p *KeystoreProvider) Request(ctx context.Context, result any, method string, params ...any) error {
	switch method {
	case MethodAccounts:
		return assign(result, p.unlockedAccounts())

	case MethodRequestAccounts:
		unlocked, err := p.requestAccounts()
		if err != nil {
			return err
		}
		return assign(result, unlocked)

	case MethodChainID:
		id, err := p.node.ChainID(ctx)
		if err != nil {
			return err
		}
		return assign(result, (*hexutil.Big)(id))

	case MethodSendTransaction:
		if len(params) != 1 {
			return uwerr.WithDetails(uwerr.ErrInvalidInput, map[string]string{"method": method})
		}
		var req TxRequest
		if err := assign(&req, params[0]); err != nil {
			return err
		}
		hash, err := p.send(ctx, req)
		if err != nil {
			return err
		}
		return assign(result, hash)

	default:
		return p.node.RawCall(ctx, result, method, params...)
	}
}

// Subscribe registers an event handler.
func (p *KeystoreProvider) Subscribe(event string, handler func(payload any)) func() {
	return p.events.subscribe(event, handler)
}

// Close locks every unlocked account.
func (p *KeystoreProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, addr := range p.unlocked {
		_ = p.ks.Lock(addr)
	}
	p.unlocked = nil
	p.events.clear()
}

func (p *KeystoreProvider) unlockedAccounts() []common.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.unlocked)
}

// requestAccounts unlocks the first keystore account after prompting.
func (p *KeystoreProvider) requestAccounts() ([]common.Address, error) {
	p.mu.Lock()
	if len(p.unlocked) > 0 {
		out := slices.Clone(p.unlocked)
		p.mu.Unlock()
		return out, nil
	}

	all := p.ks.Accounts()
	if len(all) == 0 {
		p.mu.Unlock()
		return nil, uwerr.WithSuggestion(uwerr.ErrProviderNotFound,
			"the keystore is empty; import or create an account first")
	}
	if p.prompter == nil {
		p.mu.Unlock()
		return nil, uwerr.ErrUserRejected
	}

	account := all[0]
	passphrase, err := p.prompter.Passphrase(account.Address)
	if err != nil {
		p.mu.Unlock()
		return nil, uwerr.WithCause(uwerr.ErrUserRejected, err)
	}
	if passphrase == "" {
		p.mu.Unlock()
		return nil, uwerr.ErrUserRejected
	}
	if err := p.ks.Unlock(account, passphrase); err != nil {
		p.mu.Unlock()
		return nil, uwerr.WithCause(uwerr.ErrUserRejected, err)
	}

	p.unlocked = []common.Address{account.Address}
	out := slices.Clone(p.unlocked)
	p.mu.Unlock()

	p.events.emit(EventAccountsChanged, slices.Clone(out))
	return out, nil
}

// send fills, signs and broadcasts a transaction from an unlocked account.
func (p *KeystoreProvider) send(ctx context.Context, req TxRequest) (common.Hash, error) {
	if !slices.Contains(p.unlockedAccounts(), req.From) {
		return common.Hash{}, uwerr.WithDetails(uwerr.ErrNotConnected, map[string]string{
			"account": req.From.Hex(),
		})
	}

	params := &eth.TxParams{
		From:  req.From,
		To:    req.To,
		Value: req.ValueInt(),
		Data:  req.Data,
	}
	if req.Gas != nil {
		params.GasLimit = uint64(*req.Gas)
	}
	if req.GasPrice != nil {
		params.GasPrice = req.GasPrice.ToInt()
	}

	if err := params.Fill(ctx, p.node, p.nonces); err != nil {
		return common.Hash{}, err
	}
	tx, err := params.Build()
	if err != nil {
		return common.Hash{}, err
	}

	signed, err := p.ks.SignTx(accounts.Account{Address: req.From}, tx, params.ChainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("signing transaction: %w", err)
	}

	if err := p.node.SendTransaction(ctx, signed); err != nil {
		p.nonces.Reset(req.From)
		return common.Hash{}, err
	}
	return signed.Hash(), nil
}
