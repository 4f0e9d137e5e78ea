// Package chain provides asset definitions, amount scaling and the common
// retry and rate limiting utilities used by the chain clients.
package chain

import (
	"math/big"
)

// Asset describes a currency that crosses the contract boundary as a
// fixed-point integer.
type Asset struct {
	Symbol   string
	Decimals int
}

// Assets used by the UWealth contracts.
//
//nolint:gochecknoglobals // Immutable asset definitions
var (
	// Native is the chain's base currency, used for gas and native purchases.
	Native = Asset{Symbol: "BNB", Decimals: 18}

	// Token is the UWealth project token.
	Token = Asset{Symbol: "UWT", Decimals: 18}

	// Stable is the stablecoin accepted by the presale.
	Stable = Asset{Symbol: "USDT", Decimals: 6}
)

// RateDecimals is the fixed-point scale of the presale rates and of the
// values written by the owner configuration.
const RateDecimals = 18

// Parse converts a human-readable amount into the asset's smallest unit.
func (a Asset) Parse(amount string) (*big.Int, error) {
	return ParseDecimalAmount(amount, a.Decimals)
}

// Format converts a raw amount into a human-readable string.
func (a Asset) Format(amount *big.Int) string {
	return FormatDecimalAmount(amount, a.Decimals)
}

// FormatWithSymbol formats a raw amount followed by the asset symbol.
func (a Asset) FormatWithSymbol(amount *big.Int) string {
	return a.Format(amount) + " " + a.Symbol
}

// Unit returns 10^decimals, the raw value of one whole unit.
func (a Asset) Unit() *big.Int {
	return pow10(a.Decimals)
}

// String returns the asset symbol.
func (a Asset) String() string {
	return a.Symbol
}

// ConvertAtRate converts a raw amount of the paying asset into raw project
// tokens using a rate scaled by RateDecimals tokens per whole unit.
// Both the token and the rate carry 18 decimals, so the product only has to
// drop the paying asset's scale.
func ConvertAtRate(amount, rate *big.Int, paying Asset) *big.Int {
	if amount == nil || rate == nil {
		return new(big.Int)
	}
	out := new(big.Int).Mul(amount, rate)
	return out.Quo(out, paying.Unit())
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
