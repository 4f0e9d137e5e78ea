// Package transaction tracks submitted transactions, waits for their
// receipts and turns the outcome into state refreshes and notifications.
package transaction

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mrz1836/uwealth/internal/chain/eth"
	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// SendFunc submits a transaction through the wallet and returns its hash.
type SendFunc func(ctx context.Context) (common.Hash, error)

// Hooks run after a transaction that settles is confirmed.
type Hooks struct {
	// Refresh reloads chain state. It should not return before the new
	// state is applied.
	Refresh func(ctx context.Context) error
	// ClearInput resets the form that produced the transaction.
	ClearInput func(kind Kind)
}

// Config holds dependencies for the reconciler.
type Config struct {
	Backend       eth.ReceiptBackend
	Tracker       *Tracker
	BlockInterval time.Duration
	Hooks         Hooks
	Notifier      Notifier
	Logger        LogWriter
	Recorder      Recorder
}

// Reconciler follows a transaction from submission to its receipt.
// Failures are reported once and never retried.
type Reconciler struct {
	backend  eth.ReceiptBackend
	tracker  *Tracker
	interval time.Duration
	hooks    Hooks
	notifier Notifier
	logger   LogWriter
	recorder Recorder
}

// NewReconciler creates a reconciler.
func NewReconciler(cfg *Config) *Reconciler {
	r := &Reconciler{
		backend:  cfg.Backend,
		tracker:  cfg.Tracker,
		interval: cfg.BlockInterval,
		hooks:    cfg.Hooks,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
		recorder: cfg.Recorder,
	}
	if r.tracker == nil {
		r.tracker = NewTracker()
	}
	if r.interval <= 0 {
		r.interval = eth.DefaultBlockInterval
	}
	if r.notifier == nil {
		r.notifier = nopNotifier{}
	}
	if r.logger == nil {
		r.logger = nopLogger{}
	}
	if r.recorder == nil {
		r.recorder = nopRecorder{}
	}
	return r
}

// Tracker returns the tracker the reconciler records into.
func (r *Reconciler) Tracker() *Tracker {
	return r.tracker
}

// Submit reserves the kind, sends and waits for the outcome.
func (r *Reconciler) Submit(ctx context.Context, kind Kind, send SendFunc) (*types.Receipt, error) {
	if err := r.tracker.Begin(kind); err != nil {
		return nil, err
	}

	hash, err := send(ctx)
	if err != nil {
		return nil, r.fail(kind, hash, err)
	}

	pending := r.tracker.Submitted(kind, hash)
	r.logger.Debug("%s transaction %s submitted", kind, hash.Hex())
	r.notifier.Notify(Notification{
		Kind:    kind,
		Status:  StatusSubmitted,
		Hash:    hash,
		Message: Message(kind, StatusSubmitted, "", hash),
	})

	return r.Await(ctx, pending)
}

// Resume waits again for the outstanding transaction of kind, typically one
// whose earlier wait ended with its context. ErrTxPending is returned while
// the transaction is still being sent and ErrInvalidInput when nothing of
// kind is outstanding.
func (r *Reconciler) Resume(ctx context.Context, kind Kind) (*types.Receipt, error) {
	pending, ok := r.tracker.Outstanding(kind)
	if !ok {
		return nil, uwerr.WithDetails(uwerr.ErrInvalidInput, map[string]string{
			"kind":   string(kind),
			"reason": "no outstanding transaction",
		})
	}
	if pending.Hash == (common.Hash{}) {
		return nil, uwerr.WithDetails(uwerr.ErrTxPending, map[string]string{"kind": string(kind)})
	}
	return r.Await(ctx, pending)
}

// Await waits for the receipt of a submitted transaction and settles it.
// When ctx ends first the transaction stays outstanding: it may still be
// mined and is never cancelled.
func (r *Reconciler) Await(ctx context.Context, pending Pending) (*types.Receipt, error) {
	receipt, err := eth.WaitForReceipt(ctx, r.backend, pending.Hash, r.interval)
	if err != nil {
		if ctx.Err() != nil {
			r.logger.Debug("stopped waiting for %s: %v", pending.Hash.Hex(), err)
			return nil, err
		}
		return nil, r.fail(pending.Kind, pending.Hash, err)
	}

	if err := eth.ReceiptError(receipt); err != nil {
		return receipt, r.fail(pending.Kind, pending.Hash, err)
	}

	r.tracker.Confirm(pending.Kind)
	r.recorder.ObserveTransaction(string(pending.Kind), string(StatusConfirmed))
	r.logger.Debug("%s transaction %s confirmed in block %s", pending.Kind, pending.Hash.Hex(), receipt.BlockNumber)

	if pending.Kind.settles() {
		if r.hooks.Refresh != nil {
			if err := r.hooks.Refresh(ctx); err != nil {
				r.logger.Error("refresh after %s failed: %v", pending.Hash.Hex(), err)
			}
		}
		if r.hooks.ClearInput != nil {
			r.hooks.ClearInput(pending.Kind)
		}
	}

	r.notifier.Notify(Notification{
		Kind:    pending.Kind,
		Status:  StatusConfirmed,
		Hash:    pending.Hash,
		Message: Message(pending.Kind, StatusConfirmed, "", pending.Hash),
	})
	return receipt, nil
}

// fail settles kind as failed, classifies err and notifies once.
func (r *Reconciler) fail(kind Kind, hash common.Hash, err error) error {
	txErr := eth.AsTxError(err)
	class := eth.Classify(txErr)

	r.tracker.Fail(kind, txErr)
	r.recorder.ObserveTransaction(string(kind), string(StatusFailed))
	r.logger.Error("%s transaction failed (%s): %v", kind, class, err)

	r.notifier.Notify(Notification{
		Kind:    kind,
		Status:  StatusFailed,
		Class:   class,
		Hash:    hash,
		Message: Message(kind, StatusFailed, class, hash),
		Err:     txErr,
	})
	return txErr
}
