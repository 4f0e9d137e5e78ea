package eth

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// NonceManager tracks the next nonce per account so an approval and the
// purchase that follows it never reuse a nonce while the first is still
// invisible to the node's pending pool.
type NonceManager struct {
	mu     sync.Mutex
	nonces map[common.Address]uint64
}

// NewNonceManager creates a new NonceManager.
func NewNonceManager() *NonceManager {
	return &NonceManager{
		nonces: make(map[common.Address]uint64),
	}
}

// Next returns the higher of the node's pending nonce and the locally
// tracked one, and reserves it.
func (nm *NonceManager) Next(account common.Address, pending uint64) uint64 {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	nonce := pending
	if local, ok := nm.nonces[account]; ok && local > pending {
		nonce = local
	}
	nm.nonces[account] = nonce + 1

	return nonce
}

// Reset forgets the local nonce of an account, e.g. after a failed broadcast.
func (nm *NonceManager) Reset(account common.Address) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	delete(nm.nonces, account)
}
