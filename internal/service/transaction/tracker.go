package transaction

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// Tracker holds at most one outstanding transaction per kind and keeps the
// settled ones for display.
//
// A kind whose wait ended with its context stays outstanding, and Begin keeps
// rejecting it, until Reconciler.Resume (or Await on the Outstanding entry)
// sees the receipt. Nothing expires an entry on its own.
type Tracker struct {
	mu          sync.Mutex
	outstanding map[Kind]*Pending
	history     []Pending
	now         func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		outstanding: make(map[Kind]*Pending),
		now:         time.Now,
	}
}

// Begin reserves the slot for kind. ErrTxPending is returned while another
// transaction of the same kind is outstanding.
func (t *Tracker) Begin(kind Kind) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.outstanding[kind]; ok {
		details := map[string]string{"kind": string(kind)}
		if p.Hash != (common.Hash{}) {
			details["tx"] = p.Hash.Hex()
		}
		return uwerr.WithDetails(uwerr.ErrTxPending, details)
	}

	t.outstanding[kind] = &Pending{
		Kind:        kind,
		SubmittedAt: t.now(),
		Status:      StatusSubmitted,
	}
	return nil
}

// Submitted records the hash returned by the wallet.
func (t *Tracker) Submitted(kind Kind, hash common.Hash) Pending {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.outstanding[kind]
	if !ok {
		p = &Pending{Kind: kind, Status: StatusSubmitted}
		t.outstanding[kind] = p
	}
	p.Hash = hash
	p.SubmittedAt = t.now()
	return *p
}

// Confirm settles kind as confirmed and frees its slot.
func (t *Tracker) Confirm(kind Kind) Pending {
	return t.settle(kind, StatusConfirmed, nil)
}

// Fail settles kind as failed and frees its slot.
func (t *Tracker) Fail(kind Kind, err error) Pending {
	return t.settle(kind, StatusFailed, err)
}

// Outstanding returns the in-flight transaction of kind, if any.
func (t *Tracker) Outstanding(kind Kind) (Pending, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.outstanding[kind]
	if !ok {
		return Pending{}, false
	}
	return *p, true
}

// History returns settled transactions, oldest first.
func (t *Tracker) History() []Pending {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Pending, len(t.history))
	copy(out, t.history)
	return out
}

func (t *Tracker) settle(kind Kind, status Status, err error) Pending {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.outstanding[kind]
	if !ok {
		p = &Pending{Kind: kind}
	}
	delete(t.outstanding, kind)

	p.Status = status
	p.Err = err
	p.SettledAt = t.now()
	t.history = append(t.history, *p)
	return *p
}
