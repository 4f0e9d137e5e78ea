// Package eth provides the go-ethereum backed node client, contract bindings,
// gas heuristics, receipt waiting and RPC error classification for the
// UWealth contracts on BNB Smart Chain.
package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/mrz1836/uwealth/internal/chain"
	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// ErrRPCURLRequired indicates the RPC URL was not provided.
var ErrRPCURLRequired = &uwerr.UWealthError{
	Code:     "RPC_URL_REQUIRED",
	Message:  "RPC URL is required",
	ExitCode: uwerr.ExitInput,
}

// LatencyObserver receives the duration of every node call.
type LatencyObserver interface {
	ObserveRPC(method string, elapsed time.Duration, err error)
}

// ClientOptions contains optional configuration for the client.
type ClientOptions struct {
	// FallbackURLs are tried in order when the primary endpoint cannot be reached.
	FallbackURLs []string
	// ChainID skips chain id detection when set.
	ChainID *big.Int
	// Limiter throttles calls per endpoint. Nil disables limiting.
	Limiter *chain.RateLimiter
	// Retry overrides the read retry policy.
	Retry *chain.RetryConfig
	// Observer records call latency.
	Observer LatencyObserver
}

// Client provides node access for contract reads, gas data, nonces,
// broadcasting and receipts.
type Client struct {
	urls     []string
	limiter  *chain.RateLimiter
	retry    chain.RetryConfig
	observer LatencyObserver

	mu        sync.Mutex
	rpcClient *rpc.Client
	eth       *ethclient.Client
	endpoint  string
	chainID   *big.Int
	initErr   error
}

// NewClient creates a new client. The connection is established lazily.
func NewClient(rpcURL string, opts *ClientOptions) (*Client, error) {
	if strings.TrimSpace(rpcURL) == "" {
		return nil, ErrRPCURLRequired
	}

	c := &Client{
		urls:  []string{rpcURL},
		retry: chain.ReadRetryConfig(),
	}

	if opts != nil {
		for _, u := range opts.FallbackURLs {
			if u != "" && u != rpcURL {
				c.urls = append(c.urls, u)
			}
		}
		if opts.ChainID != nil {
			c.chainID = new(big.Int).Set(opts.ChainID)
		}
		if opts.Retry != nil {
			c.retry = *opts.Retry
		}
		c.limiter = opts.Limiter
		c.observer = opts.Observer
	}

	return c, nil
}

// Endpoint returns the URL of the connected endpoint, or the primary URL
// before the first call.
func (c *Client) Endpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.endpoint != "" {
		return c.endpoint
	}
	return c.urls[0]
}

// ChainID returns the chain id reported by the node.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.chainID), nil
}

// BlockNumber returns the latest block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return read(ctx, c, "eth_blockNumber", func(ctx context.Context, ec *ethclient.Client) (uint64, error) {
		return ec.BlockNumber(ctx)
	})
}

// BalanceAt returns the native balance of an account at a block (nil = latest).
func (c *Client) BalanceAt(ctx context.Context, account common.Address, block *big.Int) (*big.Int, error) {
	return read(ctx, c, "eth_getBalance", func(ctx context.Context, ec *ethclient.Client) (*big.Int, error) {
		return ec.BalanceAt(ctx, account, block)
	})
}

// CodeAt returns the contract code at a block. Part of bind.ContractCaller.
func (c *Client) CodeAt(ctx context.Context, contract common.Address, block *big.Int) ([]byte, error) {
	return read(ctx, c, "eth_getCode", func(ctx context.Context, ec *ethclient.Client) ([]byte, error) {
		return ec.CodeAt(ctx, contract, block)
	})
}

// CallContract executes a view call at a block. Part of bind.ContractCaller.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	return read(ctx, c, "eth_call", func(ctx context.Context, ec *ethclient.Client) ([]byte, error) {
		return ec.CallContract(ctx, msg, block)
	})
}

// SuggestGasPrice returns the node's suggested legacy gas price.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return read(ctx, c, "eth_gasPrice", func(ctx context.Context, ec *ethclient.Client) (*big.Int, error) {
		return ec.SuggestGasPrice(ctx)
	})
}

// PendingNonceAt returns the next nonce including pending transactions.
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return read(ctx, c, "eth_getTransactionCount", func(ctx context.Context, ec *ethclient.Client) (uint64, error) {
		return ec.PendingNonceAt(ctx, account)
	})
}

// EstimateGas asks the node for a gas limit. Reverts are returned as-is.
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return read(ctx, c, "eth_estimateGas", func(ctx context.Context, ec *ethclient.Client) (uint64, error) {
		return ec.EstimateGas(ctx, msg)
	})
}

// TransactionReceipt returns the receipt of a mined transaction or
// ethereum.NotFound while it is pending.
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return read(ctx, c, "eth_getTransactionReceipt", func(ctx context.Context, ec *ethclient.Client) (*types.Receipt, error) {
		return ec.TransactionReceipt(ctx, hash)
	})
}

// SendTransaction broadcasts a signed transaction. It is never retried.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	ec, err := c.ethClient(ctx)
	if err != nil {
		return err
	}
	start := time.Now()
	err = ec.SendTransaction(ctx, tx)
	c.observe("eth_sendRawTransaction", start, err)
	return err
}

// SubscribeNewHead subscribes to new block headers. Only streaming
// transports support this; HTTP endpoints return rpc.ErrNotificationsUnsupported.
func (c *Client) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	ec, err := c.ethClient(ctx)
	if err != nil {
		return nil, err
	}
	return ec.SubscribeNewHead(ctx, ch)
}

// RawCall forwards an arbitrary JSON-RPC request to the node. It is used
// by wallet providers for reads they do not handle themselves and is not
// retried.
func (c *Client) RawCall(ctx context.Context, result any, method string, args ...any) error {
	if err := c.connect(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	rc := c.rpcClient
	c.mu.Unlock()

	start := time.Now()
	err := rc.CallContext(ctx, result, method, args...)
	c.observe(method, start, err)
	return err
}

// Close closes the client connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rpcClient != nil {
		c.rpcClient.Close()
		c.rpcClient = nil
		c.eth = nil
	}
}

func (c *Client) ethClient(ctx context.Context) (*ethclient.Client, error) {
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eth, nil
}

// connect establishes the RPC connection if not already connected.
// Endpoints are tried in order; the first that reports a chain id wins.
// A failed attempt is not cached, so the next call tries again.
func (c *Client) connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rpcClient != nil && c.initErr == nil {
		return nil
	}

	var lastErr error
	for _, url := range c.urls {
		rc, err := rpc.DialContext(ctx, url)
		if err != nil {
			lastErr = fmt.Errorf("dialing %s: %w", url, err)
			continue
		}
		ec := ethclient.NewClient(rc)

		id, err := ec.ChainID(ctx)
		if err != nil {
			rc.Close()
			lastErr = fmt.Errorf("getting chain ID from %s: %w", url, err)
			continue
		}
		if c.chainID != nil && c.chainID.Cmp(id) != 0 {
			rc.Close()
			lastErr = uwerr.WithDetails(uwerr.ErrWrongNetwork, map[string]string{
				"endpoint": url,
				"expected": c.chainID.String(),
				"actual":   id.String(),
			})
			continue
		}

		c.rpcClient, c.eth, c.endpoint, c.chainID, c.initErr = rc, ec, url, id, nil
		return nil
	}

	c.initErr = uwerr.WithCause(uwerr.ErrNetworkError, lastErr)
	return c.initErr
}

func (c *Client) observe(method string, start time.Time, err error) {
	if c.observer != nil {
		c.observer.ObserveRPC(method, time.Since(start), err)
	}
}

// read runs a node call under the rate limiter and read retry policy.
func read[T any](ctx context.Context, c *Client, method string, call func(context.Context, *ethclient.Client) (T, error)) (T, error) {
	ec, err := c.ethClient(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	return chain.Guarded(ctx, c.limiter, c.Endpoint(), c.retry, func(ctx context.Context) (T, error) {
		start := time.Now()
		v, err := call(ctx, ec)
		c.observe(method, start, err)
		return v, markTransient(err)
	})
}

// markTransient flags transport failures as retryable; node-side errors
// such as reverts or ethereum.NotFound pass through untouched.
func markTransient(err error) error {
	if err == nil || errors.Is(err, ethereum.NotFound) {
		return err
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == 429 {
			return fmt.Errorf("%w: %w", chain.ErrRateLimited, err)
		}
		if httpErr.StatusCode >= 500 {
			return chain.WrapRetryable(err)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return chain.WrapRetryable(err)
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset") || strings.Contains(msg, "eof") {
		return chain.WrapRetryable(err)
	}
	return err
}
