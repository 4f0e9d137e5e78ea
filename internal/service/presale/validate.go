package presale

import (
	"math/big"
	"strings"

	"github.com/mrz1836/uwealth/internal/chain"
	"github.com/mrz1836/uwealth/internal/chain/eth"
	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// DefaultGasMultiplier makes the gas funds check conservative.
const DefaultGasMultiplier = 1.5

// ValidationInput is everything a purchase is checked against.
type ValidationInput struct {
	Amount        *big.Int
	Currency      Currency
	Snapshot      *SaleSnapshot
	NativeBalance *big.Int
	GasPrice      *big.Int
	GasMultiplier float64
	// MinimalGas is the gas priced by the funds check; zero means a plain transfer.
	MinimalGas uint64
}

// Validate checks a purchase before anything is submitted. Checks run in
// order: sale window, amount, purchase bounds, gas funds. The bound errors
// carry the violated bound in the currency's decimals.
func Validate(in ValidationInput) error {
	if in.Snapshot == nil || in.Snapshot.Status != StatusActive {
		status := StatusUnknown
		if in.Snapshot != nil {
			status = in.Snapshot.Status
		}
		return uwerr.WithDetails(uwerr.ErrSaleNotActive, map[string]string{"status": status.String()})
	}

	asset := in.Currency.Asset()
	if in.Amount == nil || in.Amount.Sign() <= 0 {
		return uwerr.WithDetails(uwerr.ErrInvalidAmount, map[string]string{"reason": "amount must be positive"})
	}

	minimum, maximum := in.Snapshot.Limits(in.Currency)
	if minimum.Known() && in.Amount.Cmp(minimum.Raw) < 0 {
		return uwerr.WithDetails(uwerr.ErrBelowMinimum, map[string]string{
			"minimum": asset.FormatWithSymbol(minimum.Raw),
		})
	}
	if maximum.Known() && in.Amount.Cmp(maximum.Raw) > 0 {
		return uwerr.WithDetails(uwerr.ErrAboveMaximum, map[string]string{
			"maximum": asset.FormatWithSymbol(maximum.Raw),
		})
	}
	if missing := unknownLimits(in.Currency, minimum, maximum); missing != "" {
		return uwerr.WithDetails(uwerr.ErrReadFailure, map[string]string{"field": missing})
	}

	if in.NativeBalance == nil || in.GasPrice == nil {
		field := "nativeBalance"
		if in.NativeBalance != nil {
			field = "gasPrice"
		}
		return uwerr.WithDetails(uwerr.ErrReadFailure, map[string]string{"field": field})
	}

	multiplier := in.GasMultiplier
	if multiplier <= 0 {
		multiplier = DefaultGasMultiplier
	}
	gas := in.MinimalGas
	if gas == 0 {
		gas = eth.GasLimitTransfer
	}
	required := eth.EstimatedFee(in.GasPrice, gas, multiplier)
	if in.Currency == CurrencyNative {
		required.Add(required, in.Amount)
	}
	if in.NativeBalance.Cmp(required) < 0 {
		return uwerr.WithDetails(uwerr.ErrInsufficientGasFunds, map[string]string{
			"required": chain.Native.FormatWithSymbol(required),
			"balance":  chain.Native.FormatWithSymbol(in.NativeBalance),
		})
	}
	return nil
}

func unknownLimits(c Currency, minimum, maximum Field) string {
	var names []string
	if !minimum.Known() {
		names = append(names, "minPurchase"+string(c))
	}
	if !maximum.Known() {
		names = append(names, "maxPurchase"+string(c))
	}
	return strings.Join(names, ",")
}
