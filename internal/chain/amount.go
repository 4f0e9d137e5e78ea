package chain

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// ParseDecimalAmount parses a decimal amount string to big.Int with the given decimal places.
// For example, "1.5" with 18 decimals returns 1500000000000000000.
// Negative values, exponents and more fractional digits than the asset
// carries are rejected.
func ParseDecimalAmount(amount string, decimalPlaces int) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" || strings.HasPrefix(amount, "-") || strings.ContainsAny(amount, "eE") {
		return nil, invalidAmount(amount)
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, invalidAmount(amount)
	}

	if -d.Exponent() > int32(decimalPlaces) && !d.Equal(d.Truncate(int32(decimalPlaces))) { //nolint:gosec // decimals are small constants
		return nil, uwerr.WithDetails(uwerr.ErrInvalidAmount, map[string]string{
			"amount":   amount,
			"decimals": decimal.NewFromInt(int64(decimalPlaces)).String(),
		})
	}

	return d.Shift(int32(decimalPlaces)).BigInt(), nil //nolint:gosec // decimals are small constants
}

// FormatDecimalAmount converts a big.Int to a human-readable string with the given decimal places.
// Trailing zeros after the decimal point are removed.
// For example, 1500000000000000000 with 18 decimals returns "1.5".
func FormatDecimalAmount(amount *big.Int, decimalPlaces int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimalPlaces)).String() //nolint:gosec // decimals are small constants
}

// ToDecimal converts a raw amount into a decimal value in whole units.
func ToDecimal(amount *big.Int, decimalPlaces int) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimalPlaces)) //nolint:gosec // decimals are small constants
}

// FromDecimal converts a decimal value in whole units into a raw amount,
// truncating digits below the smallest unit.
func FromDecimal(d decimal.Decimal, decimalPlaces int) *big.Int {
	return d.Shift(int32(decimalPlaces)).BigInt() //nolint:gosec // decimals are small constants
}

// AmountToBigInt converts a uint64 amount to *big.Int.
func AmountToBigInt(amount uint64) *big.Int {
	return new(big.Int).SetUint64(amount)
}

func invalidAmount(amount string) error {
	return uwerr.WithDetails(uwerr.ErrInvalidAmount, map[string]string{"amount": amount})
}
