package eth

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// ErrUnexpectedOutput indicates a view call returned an unexpected shape.
var ErrUnexpectedOutput = &uwerr.UWealthError{
	Code:     "UNEXPECTED_OUTPUT",
	Message:  "contract returned an unexpected value",
	ExitCode: uwerr.ExitGeneral,
}

// Contract is a read binding plus calldata encoder for one deployed contract.
// Writes are not sent from here: the wallet signs them, so only the
// calldata is produced.
type Contract struct {
	address common.Address
	abi     abi.ABI
	bound   *bind.BoundContract
}

// NewContract binds a contract for view calls through caller.
func NewContract(address common.Address, parsed abi.ABI, caller bind.ContractCaller) *Contract {
	return &Contract{
		address: address,
		abi:     parsed,
		bound:   bind.NewBoundContract(address, parsed, caller, nil, nil),
	}
}

// Address returns the contract address.
func (c *Contract) Address() common.Address {
	return c.address
}

// Call executes a view method at block (nil = latest) and returns the
// unpacked outputs.
func (c *Contract) Call(ctx context.Context, block *big.Int, method string, args ...any) ([]any, error) {
	var out []any
	opts := &bind.CallOpts{Context: ctx, BlockNumber: block}
	if err := c.bound.Call(opts, &out, method, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return out, nil
}

// CallBig executes a view method returning a single uint256.
func (c *Contract) CallBig(ctx context.Context, block *big.Int, method string, args ...any) (*big.Int, error) {
	out, err := c.Call(ctx, block, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, unexpected(method, out)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, unexpected(method, out)
	}
	return v, nil
}

// CallAddress executes a view method returning a single address.
func (c *Contract) CallAddress(ctx context.Context, block *big.Int, method string, args ...any) (common.Address, error) {
	out, err := c.Call(ctx, block, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	if len(out) != 1 {
		return common.Address{}, unexpected(method, out)
	}
	v, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, unexpected(method, out)
	}
	return v, nil
}

// Pack encodes calldata for a method.
func (c *Contract) Pack(method string, args ...any) ([]byte, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", method, err)
	}
	return data, nil
}

func unexpected(method string, out []any) error {
	return uwerr.WithDetails(ErrUnexpectedOutput, map[string]string{
		"method":  method,
		"outputs": fmt.Sprintf("%v", out),
	})
}
