package eth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/uwealth/internal/chain"
	"github.com/mrz1836/uwealth/internal/chain/eth"
)

type fakeSubscription struct {
	errs chan error
	once sync.Once
}

func (s *fakeSubscription) Unsubscribe()      { s.once.Do(func() { close(s.errs) }) }
func (s *fakeSubscription) Err() <-chan error { return s.errs }

// receiptBackend returns NotFound until minedAfter lookups have happened.
type receiptBackend struct {
	mu         sync.Mutex
	lookups    int
	minedAfter int
	status     uint64
	lookupErr  error
	heads      chan<- *types.Header
	subscribe  bool
}

func (b *receiptBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lookups++
	if b.lookupErr != nil {
		return nil, b.lookupErr
	}
	if b.lookups <= b.minedAfter {
		return nil, ethereum.NotFound
	}
	return &types.Receipt{Status: b.status, TxHash: hash}, nil
}

func (b *receiptBackend) SubscribeNewHead(_ context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	if !b.subscribe {
		return nil, errors.New("notifications not supported")
	}
	b.mu.Lock()
	b.heads = ch
	b.mu.Unlock()
	return &fakeSubscription{errs: make(chan error)}, nil
}

func (b *receiptBackend) headChannel() chan<- *types.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.heads
}

func (b *receiptBackend) lookupCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lookups
}

func TestWaitForReceipt_AlreadyMined(t *testing.T) {
	t.Parallel()

	backend := &receiptBackend{status: types.ReceiptStatusSuccessful}
	receipt, err := eth.WaitForReceipt(testContext(t), backend, common.HexToHash("0x1"), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	assert.Equal(t, 1, backend.lookupCount())
}

func TestWaitForReceipt_PollsUntilMined(t *testing.T) {
	t.Parallel()

	backend := &receiptBackend{minedAfter: 3, status: types.ReceiptStatusFailed}
	receipt, err := eth.WaitForReceipt(testContext(t), backend, common.HexToHash("0x2"), time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusFailed, receipt.Status)
	assert.Equal(t, 4, backend.lookupCount())
}

func TestWaitForReceipt_NewHeads(t *testing.T) {
	t.Parallel()

	backend := &receiptBackend{minedAfter: 1, status: types.ReceiptStatusSuccessful, subscribe: true}

	ctx := testContext(t)
	done := make(chan *types.Receipt, 1)
	go func() {
		receipt, err := eth.WaitForReceipt(ctx, backend, common.HexToHash("0x3"), time.Hour)
		assert.NoError(t, err)
		done <- receipt
	}()

	require.Eventually(t, func() bool { return backend.headChannel() != nil }, 2*time.Second, time.Millisecond)
	backend.headChannel() <- &types.Header{}

	select {
	case receipt := <-done:
		require.NotNil(t, receipt)
		assert.Equal(t, 2, backend.lookupCount())
	case <-time.After(2 * time.Second):
		t.Fatal("receipt not observed after new head")
	}
}

func TestWaitForReceipt_TransientErrorsKeepWaiting(t *testing.T) {
	t.Parallel()

	backend := &receiptBackend{lookupErr: chain.WrapRetryable(errors.New("reset"))}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := eth.WaitForReceipt(ctx, backend, common.HexToHash("0x4"), time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, backend.lookupCount(), 1)
}

func TestWaitForReceipt_TerminalError(t *testing.T) {
	t.Parallel()

	errBad := errors.New("invalid hash")
	backend := &receiptBackend{lookupErr: errBad}
	_, err := eth.WaitForReceipt(testContext(t), backend, common.HexToHash("0x5"), time.Millisecond)
	require.ErrorIs(t, err, errBad)
}
