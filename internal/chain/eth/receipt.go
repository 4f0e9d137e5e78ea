package eth

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mrz1836/uwealth/internal/chain"
)

// DefaultBlockInterval is the BSC block time, the polling cadence when the
// transport cannot push new heads.
const DefaultBlockInterval = 3 * time.Second

// ReceiptBackend is the node surface needed to wait for a receipt.
type ReceiptBackend interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
}

// WaitForReceipt blocks until the transaction is mined or ctx ends.
// Receipts are checked once per new head when the transport streams heads,
// otherwise once per block interval. The returned receipt may carry a failed
// status; callers decide what a revert means.
//
//nolint:gocognit // Event loop over heads, ticks and subscription errors
func WaitForReceipt(ctx context.Context, backend ReceiptBackend, hash common.Hash, blockInterval time.Duration) (*types.Receipt, error) {
	if blockInterval <= 0 {
		blockInterval = DefaultBlockInterval
	}

	if receipt, done, err := checkReceipt(ctx, backend, hash); done {
		return receipt, err
	}

	heads := make(chan *types.Header, 16)
	var subErr <-chan error
	sub, err := backend.SubscribeNewHead(ctx, heads)
	if err == nil {
		defer sub.Unsubscribe()
		subErr = sub.Err()
	}

	// The ticker always runs; with a live subscription it only covers heads
	// missed while a receipt lookup was in flight.
	ticker := time.NewTicker(blockInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-subErr:
			subErr = nil
			continue
		case <-heads:
		case <-ticker.C:
		}

		if receipt, done, err := checkReceipt(ctx, backend, hash); done {
			return receipt, err
		}
	}
}

// checkReceipt reports done when a receipt was found or a terminal error
// occurred.
func checkReceipt(ctx context.Context, backend ReceiptBackend, hash common.Hash) (*types.Receipt, bool, error) {
	receipt, err := backend.TransactionReceipt(ctx, hash)
	switch {
	case err == nil && receipt != nil:
		return receipt, true, nil
	case err == nil, errors.Is(err, ethereum.NotFound), chain.IsRetryable(err):
		return nil, false, nil
	case ctx.Err() != nil:
		return nil, true, ctx.Err()
	default:
		return nil, true, err
	}
}
