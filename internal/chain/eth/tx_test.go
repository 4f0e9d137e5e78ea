package eth_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/uwealth/internal/chain/eth"
	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

type txBackend struct {
	nonce    uint64
	estimate uint64
	estErr   error
	calls    int
}

func (b *txBackend) ChainID(context.Context) (*big.Int, error) { return big.NewInt(97), nil }

func (b *txBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return b.nonce, nil
}

func (b *txBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(5_000_000_000), nil
}

func (b *txBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	b.calls++
	return b.estimate, b.estErr
}

func TestTxParams_Fill(t *testing.T) {
	t.Parallel()

	to := common.HexToAddress(testAccount)
	backend := &txBackend{nonce: 7, estimate: 100000}
	params := &eth.TxParams{From: to, To: &to, Data: []byte{1}}

	require.NoError(t, params.Fill(testContext(t), backend, nil))
	assert.Equal(t, uint64(120000), params.GasLimit)
	assert.Equal(t, uint64(7), *params.Nonce)
	assert.Equal(t, int64(97), params.ChainID.Int64())
	assert.Equal(t, int64(5_000_000_000), params.GasPrice.Int64())
	assert.Equal(t, 0, params.Value.Sign())

	tx, err := params.Build()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, uint64(120000), tx.Gas())
	assert.Equal(t, &to, tx.To())
}

func TestTxParams_FillKeepsExplicitGas(t *testing.T) {
	t.Parallel()

	to := common.HexToAddress(testAccount)
	backend := &txBackend{nonce: 1}
	params := &eth.TxParams{From: to, To: &to, GasLimit: 900000, Value: big.NewInt(10)}

	require.NoError(t, params.Fill(testContext(t), backend, nil))
	assert.Equal(t, uint64(900000), params.GasLimit)
	assert.Zero(t, backend.calls)

	expected := new(big.Int).Mul(big.NewInt(5_000_000_000), big.NewInt(900000))
	expected.Add(expected, big.NewInt(10))
	assert.Equal(t, 0, expected.Cmp(params.MaxCost()))
}

func TestTxParams_FillReservesNonces(t *testing.T) {
	t.Parallel()

	from := common.HexToAddress(testAccount)
	backend := &txBackend{nonce: 3, estimate: 50000}
	nonces := eth.NewNonceManager()

	first := &eth.TxParams{From: from, To: &from}
	second := &eth.TxParams{From: from, To: &from}
	require.NoError(t, first.Fill(testContext(t), backend, nonces))
	require.NoError(t, second.Fill(testContext(t), backend, nonces))

	assert.Equal(t, uint64(3), *first.Nonce)
	assert.Equal(t, uint64(4), *second.Nonce)
}

func TestTxParams_FillEstimateError(t *testing.T) {
	t.Parallel()

	to := common.HexToAddress(testAccount)
	errRevert := errors.New("execution reverted")
	params := &eth.TxParams{From: to, To: &to}

	err := params.Fill(testContext(t), &txBackend{estErr: errRevert}, nil)
	require.ErrorIs(t, err, errRevert)
}

func TestTxParams_Validate(t *testing.T) {
	t.Parallel()

	to := common.HexToAddress(testAccount)
	nonce := uint64(0)

	tests := []struct {
		name    string
		params  eth.TxParams
		missing string
	}{
		{"no to", eth.TxParams{}, "to"},
		{"no gas", eth.TxParams{To: &to}, "gas"},
		{"no price", eth.TxParams{To: &to, GasLimit: 1}, "gasPrice"},
		{"no nonce", eth.TxParams{To: &to, GasLimit: 1, GasPrice: big.NewInt(1)}, "nonce"},
		{"no chain", eth.TxParams{To: &to, GasLimit: 1, GasPrice: big.NewInt(1), Nonce: &nonce}, "chainId"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.params.Validate()
			require.ErrorIs(t, err, uwerr.ErrInvalidInput)
			assert.Equal(t, tc.missing, uwerr.DetailsOf(err)["missing"])
		})
	}
}

func TestNonceManager(t *testing.T) {
	t.Parallel()

	a := common.HexToAddress("0x01")
	b := common.HexToAddress("0x02")
	nm := eth.NewNonceManager()

	assert.Equal(t, uint64(5), nm.Next(a, 5))
	assert.Equal(t, uint64(6), nm.Next(a, 5))
	assert.Equal(t, uint64(9), nm.Next(a, 9))
	assert.Equal(t, uint64(0), nm.Next(b, 0))

	nm.Reset(a)
	assert.Equal(t, uint64(5), nm.Next(a, 5))
}
