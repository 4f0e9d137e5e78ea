package presale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

func TestDraft_SelectCurrencyClears(t *testing.T) {
	t.Parallel()

	d := NewDraft()
	assert.Equal(t, CurrencyNative, d.Currency())

	d.SetAmount("1.5")
	assert.Equal(t, CurrencyStable, d.SelectCurrency())
	assert.Empty(t, d.Amount())

	d.SetAmount("25")
	assert.Equal(t, CurrencyNative, d.SelectCurrency())
	assert.Empty(t, d.Amount())

	d.SetAmount("2")
	d.Clear()
	assert.Empty(t, d.Amount())
	assert.Equal(t, CurrencyNative, d.Currency())
}

func TestDraft_Parse(t *testing.T) {
	t.Parallel()

	d := NewDraft()
	d.SetAmount("0.25")
	v, c, err := d.Parse()
	require.NoError(t, err)
	assert.Equal(t, CurrencyNative, c)
	assertAmount(t, native(t, "0.25"), v)

	d.SelectCurrency()
	d.SetAmount("12.345678")
	v, c, err = d.Parse()
	require.NoError(t, err)
	assert.Equal(t, CurrencyStable, c)
	assertAmount(t, stable(t, "12.345678"), v)

	d.SetAmount("1.0000001")
	_, _, err = d.Parse()
	assert.ErrorIs(t, err, uwerr.ErrInvalidAmount)
}

func TestEstimateTokens(t *testing.T) {
	t.Parallel()

	snap := activeSnapshot(t)

	tests := []struct {
		amount   string
		currency Currency
		want     string
	}{
		{"1", CurrencyNative, "1000"},
		{"0.25", CurrencyNative, "250"},
		{"50", CurrencyStable, "500"},
		{"0.5", CurrencyStable, "5"},
		{"0", CurrencyStable, "0"},
	}
	for _, tc := range tests {
		got, err := EstimateTokens(tc.amount, tc.currency, snap)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got.String(), "%s %s", tc.amount, tc.currency)
	}

	_, err := EstimateTokens("abc", CurrencyNative, snap)
	require.ErrorIs(t, err, uwerr.ErrInvalidAmount)

	_, err = EstimateTokens("1", CurrencyNative, nil)
	require.ErrorIs(t, err, uwerr.ErrReadFailure)

	snap.TokensPerStable = Field{}
	d := NewDraft()
	d.SelectCurrency()
	d.SetAmount("10")
	_, err = d.Estimate(snap)
	assert.ErrorIs(t, err, uwerr.ErrReadFailure)
}

func TestParseCurrency(t *testing.T) {
	t.Parallel()

	c, ok := ParseCurrency(" usdt ")
	require.True(t, ok)
	assert.Equal(t, CurrencyStable, c)

	c, ok = ParseCurrency("BNB")
	require.True(t, ok)
	assert.Equal(t, CurrencyNative, c)

	_, ok = ParseCurrency("ETH")
	assert.False(t, ok)
}
