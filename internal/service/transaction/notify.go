package transaction

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/uwealth/internal/chain/eth"
)

// Notification tells the user what happened to a transaction.
type Notification struct {
	Kind    Kind
	Status  Status
	Class   eth.FailureClass
	Hash    common.Hash
	Message string
	Err     error
}

// Notifier receives transaction notifications.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

//nolint:gochecknoglobals // Fixed user-facing messages
var (
	successMessages = map[Kind]string{
		KindApprove:     "Approval confirmed.",
		KindPurchase:    "Purchase successful!",
		KindWithdraw:    "Withdrawal successful!",
		KindAdminUpdate: "Presale settings have been updated successfully!",
		KindStake:       "Stake successful!",
		KindClaimReward: "Rewards claimed successfully!",
		KindDeposit:     "Deposit successful!",
	}

	failureMessages = map[eth.FailureClass]string{
		eth.FailureUserRejected:      "Transaction was cancelled.",
		eth.FailureInsufficientFunds: "Insufficient funds for gas * price + value.",
		eth.FailureReverted:          "Transaction reverted by the contract. Please check contract conditions.",
		eth.FailureUnknown:           "An unknown error occurred.",
	}
)

// Message returns the text shown for a transaction outcome.
func Message(kind Kind, status Status, class eth.FailureClass, hash common.Hash) string {
	switch status {
	case StatusSubmitted:
		return fmt.Sprintf("Transaction submitted: %s", hash.Hex())
	case StatusConfirmed:
		if msg, ok := successMessages[kind]; ok {
			return msg
		}
		return "Transaction confirmed."
	case StatusFailed:
		if msg, ok := failureMessages[class]; ok {
			return msg
		}
		return failureMessages[eth.FailureUnknown]
	default:
		return ""
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}
