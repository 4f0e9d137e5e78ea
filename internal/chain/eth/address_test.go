package eth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/uwealth/internal/chain/eth"
	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

func TestParseAddress(t *testing.T) {
	t.Parallel()

	checksummed := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"checksummed", checksummed, nil},
		{"lowercase", "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", nil},
		{"uppercase", "0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED", nil},
		{"padded", "  " + checksummed + " ", nil},
		{"bad checksum", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD", eth.ErrInvalidChecksum},
		{"no prefix", "5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", uwerr.ErrInvalidAddress},
		{"short", "0x1234", uwerr.ErrInvalidAddress},
		{"not hex", "0xzzaeb6053f3e94c9b9a09f33669435e7ef1beaed", uwerr.ErrInvalidAddress},
		{"empty", "", uwerr.ErrInvalidAddress},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			addr, err := eth.ParseAddress(tc.input)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, checksummed, addr.Hex())
		})
	}
}

func TestParseHexAddress_IgnoresChecksum(t *testing.T) {
	t.Parallel()

	addr, err := eth.ParseHexAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD")
	require.NoError(t, err)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", addr.Hex())

	_, err = eth.ParseHexAddress("nope")
	require.ErrorIs(t, err, uwerr.ErrInvalidAddress)
}
