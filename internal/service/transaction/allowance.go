package transaction

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/uwealth/internal/chain/eth"
	"github.com/mrz1836/uwealth/internal/wallet"
	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// Sender submits a transaction from the active wallet account.
type Sender interface {
	SendTransaction(ctx context.Context, req wallet.TxRequest) (common.Hash, error)
}

// Send returns a SendFunc that submits a call to to through sender.
// A zero gas limit lets the wallet estimate.
func Send(sender Sender, to common.Address, value *big.Int, data []byte, gas uint64) SendFunc {
	return func(ctx context.Context) (common.Hash, error) {
		return sender.SendTransaction(ctx, wallet.NewTxRequest(to, value, data, gas))
	}
}

// EnsureAllowance makes sure spender may move amount of token from owner.
// The allowance is read first; an approval for exactly amount is submitted
// and awaited only when it is short. It reports whether an approval was sent.
// A confirmed approval followed by a failed spend leaves the allowance in
// place, so the next attempt skips the approval.
func (r *Reconciler) EnsureAllowance(ctx context.Context, sender Sender, token *eth.Contract, owner, spender common.Address, amount *big.Int) (bool, error) {
	allowance, err := token.CallBig(ctx, nil, eth.MethodAllowance, owner, spender)
	if err != nil {
		return false, uwerr.WithDetails(uwerr.WithCause(uwerr.ErrReadFailure, err), map[string]string{
			"field": eth.MethodAllowance,
		})
	}
	if allowance.Cmp(amount) >= 0 {
		r.logger.Debug("allowance of %s for %s already covers %s", owner.Hex(), spender.Hex(), amount)
		return false, nil
	}

	data, err := token.Pack(eth.MethodApprove, spender, amount)
	if err != nil {
		return false, err
	}

	if _, err := r.Submit(ctx, KindApprove, Send(sender, token.Address(), nil, data, 0)); err != nil {
		return false, uwerr.WithCause(uwerr.ErrAllowanceInsufficient, err)
	}
	return true, nil
}
