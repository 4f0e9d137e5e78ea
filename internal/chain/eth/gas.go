package eth

import (
	"fmt"
	"math/big"
)

const (
	// GasLimitTransfer is the minimal gas of any transaction, used by the
	// pre-flight funds check.
	GasLimitTransfer uint64 = 21000
	// GasLimitERC20Approve is the fallback gas limit for ERC-20 approve calls.
	GasLimitERC20Approve uint64 = 60000
	// GasLimitContractCall is the fallback for other state-changing calls.
	GasLimitContractCall uint64 = 300000

	// estimateHeadroom pads node estimates, which are exact for the state
	// they were computed against.
	estimateHeadroom = 1.2
)

// EstimatedFee returns gasPrice × gasLimit × multiplier, rounded down.
// The multiplier makes the pre-flight check conservative.
func EstimatedFee(gasPrice *big.Int, gasLimit uint64, multiplier float64) *big.Int {
	if gasPrice == nil {
		return new(big.Int)
	}
	fee := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasLimit))
	if multiplier <= 0 {
		return fee
	}
	return multiplyBigInt(fee, multiplier)
}

// PadGasEstimate adds headroom to a node gas estimate.
func PadGasEstimate(estimate uint64) uint64 {
	return uint64(float64(estimate) * estimateHeadroom)
}

// FormatGasPrice formats a gas price in wei to a human-readable Gwei string.
func FormatGasPrice(weiPrice *big.Int) string {
	if weiPrice == nil {
		return "0 Gwei"
	}

	gwei := new(big.Float).SetInt(weiPrice)
	gwei.Quo(gwei, new(big.Float).SetInt64(1_000_000_000))

	return fmt.Sprintf("%.2f Gwei", gwei)
}

// multiplyBigInt multiplies a big.Int by a float multiplier.
func multiplyBigInt(n *big.Int, multiplier float64) *big.Int {
	f := new(big.Float).SetInt(n)
	f.Mul(f, new(big.Float).SetFloat64(multiplier))

	result, _ := f.Int(nil)
	return result
}
