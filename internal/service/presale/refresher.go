package presale

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultRefreshInterval matches the dashboard's update cadence.
const DefaultRefreshInterval = 5 * time.Minute

// Refresh results reported to the recorder.
const (
	RefreshApplied   = "applied"
	RefreshDiscarded = "discarded"
	RefreshFailed    = "failed"
	RefreshSkipped   = "skipped"
)

// RefresherConfig holds dependencies for the refresher.
type RefresherConfig struct {
	Reader   *Reader
	Accounts AccountSource
	Interval time.Duration
	Logger   LogWriter
	Recorder Recorder
	// OnApply is called with every newly applied state.
	OnApply func(State)
}

// Refresher keeps the dashboard state current. At most one refresh runs at
// a time, and a result is applied only when it is newer than the last
// applied one and the refresher has not been stopped.
type Refresher struct {
	reader   *Reader
	accounts AccountSource
	interval time.Duration
	logger   LogWriter
	recorder Recorder
	onApply  func(State)

	// running is held for the whole duration of a refresh.
	running sync.Mutex

	mu      sync.Mutex
	issued  uint64
	applied uint64
	state   State
	alive   bool
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// requested wakes the loop for an out-of-schedule refresh.
	requested chan struct{}
}

// NewRefresher creates a refresher. Nothing runs until Refresh or Start.
func NewRefresher(cfg *RefresherConfig) *Refresher {
	r := &Refresher{
		reader:   cfg.Reader,
		accounts: cfg.Accounts,
		interval: cfg.Interval,
		logger:   cfg.Logger,
		recorder: cfg.Recorder,
		onApply:  cfg.OnApply,
		alive:    true,

		requested: make(chan struct{}, 1),
	}
	if r.interval <= 0 {
		r.interval = DefaultRefreshInterval
	}
	if r.logger == nil {
		r.logger = nopLogger{}
	}
	if r.recorder == nil {
		r.recorder = nopRecorder{}
	}
	return r
}

// Refresh runs one refresh unless one is already in flight, in which case
// it returns false without issuing any call.
func (r *Refresher) Refresh(ctx context.Context) (bool, error) {
	if !r.running.TryLock() {
		r.recorder.ObserveRefresh(RefreshSkipped)
		return false, nil
	}
	defer r.running.Unlock()
	return true, r.refresh(ctx)
}

// RefreshNow waits for an in-flight refresh and then runs its own, so the
// applied state was read after RefreshNow was called.
func (r *Refresher) RefreshNow(ctx context.Context) error {
	r.running.Lock()
	defer r.running.Unlock()
	return r.refresh(ctx)
}

// Start refreshes immediately and then on every interval until Stop.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started || !r.alive {
		r.mu.Unlock()
		return
	}
	r.started = true
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	go r.loop(loopCtx)
}

// Stop ends the timer, waits for the loop and discards any result that
// arrives afterwards. A stopped refresher cannot be restarted.
func (r *Refresher) Stop() {
	r.mu.Lock()
	r.alive = false
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// Invalidate drops the user position after an account or chain change.
// Refreshes already in flight are numbered before the change and will not
// be applied. A started refresher then re-reads the state for the new
// session without waiting for the interval; Invalidate itself never blocks.
func (r *Refresher) Invalidate() {
	r.mu.Lock()
	r.issued++
	r.applied = r.issued
	r.state.Position = nil
	r.mu.Unlock()

	r.Request()
}

// Request asks a started loop for a refresh as soon as it is free. Requests
// made while one is pending collapse into it.
func (r *Refresher) Request() {
	select {
	case r.requested <- struct{}{}:
	default:
	}
}

// State returns the last applied state.
func (r *Refresher) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Epoch returns the epoch of the last applied state.
func (r *Refresher) Epoch() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applied
}

func (r *Refresher) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// A pending request predates the first refresh, which covers it.
	select {
	case <-r.requested:
	default:
	}

	if _, err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
		r.logger.Error("refresh failed: %v", err)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("refresh failed: %v", err)
			}
		case <-r.requested:
			// Waits out a refresh in flight, whose result the session
			// change has already made stale.
			if err := r.RefreshNow(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("refresh after session change failed: %v", err)
			}
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) error {
	epoch := r.nextEpoch()

	snap, err := r.reader.FetchSaleSnapshot(ctx)
	if err != nil {
		r.recorder.ObserveRefresh(RefreshFailed)
		return err
	}
	snap.Epoch = epoch

	var position *UserPosition
	if account, ok := r.activeAccount(); ok {
		position, err = r.reader.FetchUserPosition(ctx, account)
		if err != nil {
			r.logger.Error("position of %s not refreshed: %v", account.Hex(), err)
			position = r.retainedPosition(account)
		}
	}

	if !r.apply(epoch, State{Snapshot: snap, Position: position}) {
		r.logger.Debug("discarding refresh of epoch %d", epoch)
		r.recorder.ObserveRefresh(RefreshDiscarded)
		return nil
	}
	r.recorder.ObserveRefresh(RefreshApplied)
	return nil
}

func (r *Refresher) nextEpoch() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issued++
	return r.issued
}

func (r *Refresher) activeAccount() (common.Address, bool) {
	if r.accounts == nil {
		return common.Address{}, false
	}
	account, err := r.accounts.ActiveAddress()
	if err != nil {
		return common.Address{}, false
	}
	return account, true
}

// retainedPosition returns the applied position when it belongs to account.
func (r *Refresher) retainedPosition(account common.Address) *UserPosition {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Position != nil && r.state.Position.Address == account {
		return r.state.Position
	}
	return nil
}

func (r *Refresher) apply(epoch uint64, state State) bool {
	r.mu.Lock()
	if !r.alive || epoch <= r.applied {
		r.mu.Unlock()
		return false
	}
	r.applied = epoch
	r.state = state
	onApply := r.onApply
	r.mu.Unlock()

	if onApply != nil {
		onApply(state)
	}
	return true
}
