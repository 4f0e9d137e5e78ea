package eth

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// TxBackend is the node surface needed to complete a transaction locally.
type TxBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// TxParams contains parameters for building a legacy (EIP-155) transaction.
// BSC does not price EIP-1559 transactions differently, so only legacy
// transactions are built.
type TxParams struct {
	From     common.Address
	To       *common.Address
	Value    *big.Int
	Data     []byte
	GasLimit uint64
	GasPrice *big.Int
	Nonce    *uint64
	ChainID  *big.Int
}

// Validate checks that the parameters are complete.
func (p *TxParams) Validate() error {
	var missing string
	switch {
	case p.To == nil:
		missing = "to"
	case p.GasLimit == 0:
		missing = "gas"
	case p.GasPrice == nil:
		missing = "gasPrice"
	case p.Nonce == nil:
		missing = "nonce"
	case p.ChainID == nil:
		missing = "chainId"
	}
	if missing != "" {
		return uwerr.WithDetails(uwerr.ErrInvalidInput, map[string]string{"missing": missing})
	}
	return nil
}

// Fill queries the node for every unset field. Nonces are reserved through
// nonces so back-to-back sends from one account do not collide.
func (p *TxParams) Fill(ctx context.Context, backend TxBackend, nonces *NonceManager) error {
	if p.Value == nil {
		p.Value = new(big.Int)
	}

	if p.ChainID == nil {
		id, err := backend.ChainID(ctx)
		if err != nil {
			return fmt.Errorf("getting chain ID: %w", err)
		}
		p.ChainID = id
	}

	if p.GasPrice == nil {
		price, err := backend.SuggestGasPrice(ctx)
		if err != nil {
			return fmt.Errorf("getting gas price: %w", err)
		}
		p.GasPrice = price
	}

	if p.GasLimit == 0 {
		estimate, err := backend.EstimateGas(ctx, ethereum.CallMsg{
			From:  p.From,
			To:    p.To,
			Value: p.Value,
			Data:  p.Data,
		})
		if err != nil {
			return fmt.Errorf("estimating gas: %w", err)
		}
		p.GasLimit = PadGasEstimate(estimate)
	}

	if p.Nonce == nil {
		pending, err := backend.PendingNonceAt(ctx, p.From)
		if err != nil {
			return fmt.Errorf("getting nonce: %w", err)
		}
		nonce := pending
		if nonces != nil {
			nonce = nonces.Next(p.From, pending)
		}
		p.Nonce = &nonce
	}

	return p.Validate()
}

// Build creates the unsigned transaction.
func (p *TxParams) Build() (*types.Transaction, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    *p.Nonce,
		To:       p.To,
		Value:    p.Value,
		Gas:      p.GasLimit,
		GasPrice: p.GasPrice,
		Data:     p.Data,
	}), nil
}

// MaxCost returns gas × gasPrice + value.
func (p *TxParams) MaxCost() *big.Int {
	cost := new(big.Int)
	if p.GasPrice != nil {
		cost.Mul(p.GasPrice, new(big.Int).SetUint64(p.GasLimit))
	}
	if p.Value != nil {
		cost.Add(cost, p.Value)
	}
	return cost
}
