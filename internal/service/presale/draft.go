package presale

import (
	"math/big"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mrz1836/uwealth/internal/chain"
	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// Draft is the purchase form: an amount typed in a currency.
type Draft struct {
	mu       sync.Mutex
	amount   string
	currency Currency
}

// NewDraft creates an empty draft paying in the native currency.
func NewDraft() *Draft {
	return &Draft{currency: CurrencyNative}
}

// SetAmount replaces the typed amount.
func (d *Draft) SetAmount(amount string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.amount = amount
}

// Amount returns the typed amount.
func (d *Draft) Amount() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.amount
}

// Currency returns the selected currency.
func (d *Draft) Currency() Currency {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.currency
}

// SelectCurrency switches to the other currency and clears the amount.
func (d *Draft) SelectCurrency() Currency {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.currency = d.currency.Other()
	d.amount = ""
	return d.currency
}

// Clear empties the amount, keeping the currency.
func (d *Draft) Clear() {
	d.SetAmount("")
}

// Parse returns the amount in the currency's smallest unit.
func (d *Draft) Parse() (*big.Int, Currency, error) {
	d.mu.Lock()
	amount, currency := d.amount, d.currency
	d.mu.Unlock()

	v, err := currency.Asset().Parse(amount)
	if err != nil {
		return nil, currency, err
	}
	return v, currency, nil
}

// Estimate returns the tokens the amount buys at the snapshot's rate.
func (d *Draft) Estimate(snap *SaleSnapshot) (decimal.Decimal, error) {
	d.mu.Lock()
	amount, currency := d.amount, d.currency
	d.mu.Unlock()
	return EstimateTokens(amount, currency, snap)
}

// EstimateTokens multiplies a human amount by the currency's rate.
func EstimateTokens(amount string, currency Currency, snap *SaleSnapshot) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(amount)
	if err != nil || value.IsNegative() {
		return decimal.Zero, uwerr.WithDetails(uwerr.ErrInvalidAmount, map[string]string{"amount": amount})
	}
	if snap == nil {
		return decimal.Zero, uwerr.WithDetails(uwerr.ErrReadFailure, map[string]string{"field": "tokensPer" + string(currency)})
	}
	rate := snap.Rate(currency)
	if !rate.Known() {
		return decimal.Zero, uwerr.WithDetails(uwerr.ErrReadFailure, map[string]string{"field": "tokensPer" + string(currency)})
	}
	return value.Mul(chain.ToDecimal(rate.Raw, chain.RateDecimals)), nil
}
