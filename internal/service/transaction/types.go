package transaction

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Kind identifies what a transaction does.
type Kind string

// Transaction kinds.
const (
	KindApprove     Kind = "approve"
	KindPurchase    Kind = "purchase"
	KindWithdraw    Kind = "withdraw"
	KindAdminUpdate Kind = "admin_update"
	KindStake       Kind = "stake"
	KindClaimReward Kind = "claim_reward"
	KindDeposit     Kind = "deposit"
)

// settles reports whether confirming this kind changes what the dashboard
// shows. Approvals are a step inside another flow and do not.
func (k Kind) settles() bool {
	return k != KindApprove
}

// Status is the lifecycle state of a submitted transaction.
type Status string

// Transaction statuses.
const (
	StatusSubmitted Status = "submitted"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Pending is one tracked transaction. Hash is zero while the wallet has not
// returned it yet.
type Pending struct {
	Kind        Kind
	Hash        common.Hash
	SubmittedAt time.Time
	SettledAt   time.Time
	Status      Status
	Err         error
}
