// Package presale reads the presale contract, keeps the dashboard state
// fresh, validates purchases and orchestrates purchase and owner
// transactions.
package presale

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/uwealth/internal/chain/eth"
	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// DefaultReadConcurrency bounds the concurrent calls of one read batch.
const DefaultReadConcurrency = 4

// ReaderConfig holds dependencies for the reader.
type ReaderConfig struct {
	Node        Node
	Contracts   Contracts
	Concurrency int
	Logger      LogWriter
	Recorder    Recorder
	Now         func() time.Time
}

// Reader fetches presale snapshots and user positions. A field whose read
// fails keeps the value of the previous snapshot.
type Reader struct {
	node     Node
	presale  *eth.Contract
	token    *eth.Contract
	stable   *eth.Contract
	limit    int
	logger   LogWriter
	recorder Recorder
	now      func() time.Time

	mu   sync.Mutex
	last *SaleSnapshot
}

// NewReader creates a reader.
func NewReader(cfg *ReaderConfig) *Reader {
	r := &Reader{
		node:     cfg.Node,
		presale:  eth.NewContract(cfg.Contracts.Presale, eth.PresaleABI, cfg.Node),
		token:    eth.NewContract(cfg.Contracts.Token, eth.ERC20ABI, cfg.Node),
		stable:   eth.NewContract(cfg.Contracts.Stable, eth.ERC20ABI, cfg.Node),
		limit:    cfg.Concurrency,
		logger:   cfg.Logger,
		recorder: cfg.Recorder,
		now:      cfg.Now,
	}
	if r.limit <= 0 {
		r.limit = DefaultReadConcurrency
	}
	if r.logger == nil {
		r.logger = nopLogger{}
	}
	if r.recorder == nil {
		r.recorder = nopRecorder{}
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Presale returns the presale contract binding.
func (r *Reader) Presale() *eth.Contract {
	return r.presale
}

// Token returns the project token binding.
func (r *Reader) Token() *eth.Contract {
	return r.token
}

// Stable returns the stablecoin binding.
func (r *Reader) Stable() *eth.Contract {
	return r.stable
}

// FetchSaleSnapshot reads the whole presale batch at the latest block.
// Only a failure to determine that block is returned; per-field failures
// are logged, counted and leave the previous value marked stale.
func (r *Reader) FetchSaleSnapshot(ctx context.Context) (*SaleSnapshot, error) {
	block, err := r.node.BlockNumber(ctx)
	if err != nil {
		r.recorder.ObserveRead("blockNumber", err)
		return nil, uwerr.WithDetails(uwerr.WithCause(uwerr.ErrReadFailure, err), map[string]string{
			"field": "blockNumber",
		})
	}
	pin := new(big.Int).SetUint64(block)

	prev := r.previous()
	snap := &SaleSnapshot{Block: block, FetchedAt: r.now()}

	var g errgroup.Group
	g.SetLimit(r.limit)
	for _, f := range snapshotFields {
		g.Go(func() error {
			target := f.field(snap)
			v, err := r.presale.CallBig(ctx, pin, f.method)
			r.recorder.ObserveRead(f.method, err)
			if err == nil {
				*target = Field{Raw: v}
				return nil
			}

			r.logger.Error("reading %s at block %d: %v", f.method, block, err)
			*target = Field{Err: err}
			if prev != nil {
				if old := f.field(prev); old.Raw != nil {
					target.Raw = new(big.Int).Set(old.Raw)
					target.Stale = true
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	snap.Status = statusAt(snap.StartTime, snap.EndTime, snap.FetchedAt)

	r.mu.Lock()
	r.last = snap
	r.mu.Unlock()

	return snap, nil
}

// FetchUserPosition reads the balances and presale contribution of account.
// Accounts without history read as zero.
func (r *Reader) FetchUserPosition(ctx context.Context, account common.Address) (*UserPosition, error) {
	block, err := r.node.BlockNumber(ctx)
	if err != nil {
		return nil, uwerr.WithDetails(uwerr.WithCause(uwerr.ErrReadFailure, err), map[string]string{
			"field": "blockNumber",
		})
	}
	pin := new(big.Int).SetUint64(block)
	pos := &UserPosition{Address: account, Block: block}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)

	read := func(field string, target **big.Int, call func(context.Context) (*big.Int, error)) {
		g.Go(func() error {
			v, err := call(gctx)
			r.recorder.ObserveRead(field, err)
			if err != nil {
				return uwerr.WithDetails(uwerr.WithCause(uwerr.ErrReadFailure, err), map[string]string{
					"field": field,
				})
			}
			*target = v
			return nil
		})
	}

	read("nativeBalance", &pos.NativeBalance, func(ctx context.Context) (*big.Int, error) {
		return r.node.BalanceAt(ctx, account, pin)
	})
	read("stableBalance", &pos.StableBalance, func(ctx context.Context) (*big.Int, error) {
		return r.stable.CallBig(ctx, pin, eth.MethodBalanceOf, account)
	})
	read("tokenBalance", &pos.TokenBalance, func(ctx context.Context) (*big.Int, error) {
		return r.token.CallBig(ctx, pin, eth.MethodBalanceOf, account)
	})
	read(eth.MethodPurchases, &pos.ContributionTotal, func(ctx context.Context) (*big.Int, error) {
		return r.presale.CallBig(ctx, pin, eth.MethodPurchases, account)
	})

	if err := g.Wait(); err != nil {
		r.logger.Error("reading position of %s: %v", account.Hex(), err)
		return nil, err
	}
	return pos, nil
}

// PresaleLiquidity returns the project tokens held by the presale contract.
func (r *Reader) PresaleLiquidity(ctx context.Context) (*big.Int, error) {
	v, err := r.token.CallBig(ctx, nil, eth.MethodBalanceOf, r.presale.Address())
	r.recorder.ObserveRead("presaleLiquidity", err)
	if err != nil {
		return nil, uwerr.WithDetails(uwerr.WithCause(uwerr.ErrReadFailure, err), map[string]string{
			"field": "presaleLiquidity",
		})
	}
	return v, nil
}

// StableBalance returns the stablecoin balance of account at the latest block.
func (r *Reader) StableBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	v, err := r.stable.CallBig(ctx, nil, eth.MethodBalanceOf, account)
	r.recorder.ObserveRead("stableBalance", err)
	if err != nil {
		return nil, uwerr.WithDetails(uwerr.WithCause(uwerr.ErrReadFailure, err), map[string]string{
			"field": "stableBalance",
		})
	}
	return v, nil
}

func (r *Reader) previous() *SaleSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
