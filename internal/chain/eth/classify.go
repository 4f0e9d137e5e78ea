package eth

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// CodeUserRejected is the EIP-1193 provider error code for a request the
// user declined.
const CodeUserRejected = 4001

// FailureClass groups transaction failures by what the user should do next.
type FailureClass string

// Failure classes.
const (
	FailureUserRejected      FailureClass = "user_rejected"
	FailureInsufficientFunds FailureClass = "insufficient_funds"
	FailureReverted          FailureClass = "reverted"
	FailureUnknown           FailureClass = "unknown"
)

// Classify inspects a submission, signing or receipt error.
func Classify(err error) FailureClass {
	switch {
	case err == nil:
		return FailureUnknown
	case IsUserRejected(err):
		return FailureUserRejected
	case errors.Is(err, uwerr.ErrInsufficientFunds), containsAny(err, "insufficient funds"):
		return FailureInsufficientFunds
	case errors.Is(err, uwerr.ErrTxReverted), containsAny(err, "execution reverted", "reverted", "out of gas"):
		return FailureReverted
	default:
		return FailureUnknown
	}
}

// IsUserRejected reports whether err means the user declined in the wallet.
func IsUserRejected(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, uwerr.ErrUserRejected) {
		return true
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == CodeUserRejected {
		return true
	}
	return containsAny(err, "user denied", "user rejected")
}

// AsTxError converts a failure into the matching structured error.
// Errors that are already classified keep their code.
func AsTxError(err error) error {
	if err == nil {
		return nil
	}
	switch Classify(err) {
	case FailureUserRejected:
		if errors.Is(err, uwerr.ErrUserRejected) {
			return err
		}
		return uwerr.WithCause(uwerr.ErrUserRejected, err)
	case FailureInsufficientFunds:
		if errors.Is(err, uwerr.ErrInsufficientFunds) {
			return err
		}
		return uwerr.WithCause(uwerr.ErrInsufficientFunds, err)
	case FailureReverted:
		if errors.Is(err, uwerr.ErrTxReverted) {
			return err
		}
		return uwerr.WithCause(uwerr.ErrTxReverted, err)
	case FailureUnknown:
		return uwerr.WithCause(uwerr.ErrTxUnknownFailure, err)
	default:
		return uwerr.WithCause(uwerr.ErrTxUnknownFailure, err)
	}
}

// ReceiptError returns ErrTxReverted for a mined transaction whose
// execution failed and nil for a successful one.
func ReceiptError(receipt *types.Receipt) error {
	if receipt == nil || receipt.Status == types.ReceiptStatusSuccessful {
		return nil
	}
	return uwerr.WithDetails(uwerr.ErrTxReverted, map[string]string{
		"tx":    receipt.TxHash.Hex(),
		"block": receipt.BlockNumber.String(),
	})
}

func containsAny(err error, needles ...string) bool {
	msg := strings.ToLower(err.Error())
	for _, n := range needles {
		if strings.Contains(msg, n) {
			return true
		}
	}
	return false
}
