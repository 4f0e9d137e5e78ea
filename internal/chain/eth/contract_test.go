package eth_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/uwealth/internal/chain/eth"
	"github.com/mrz1836/uwealth/internal/chain/eth/ethtest"
)

func TestContract_CallBig(t *testing.T) {
	t.Parallel()

	presaleAddr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	buyer := common.HexToAddress(testAccount)

	backend := ethtest.NewBackend()
	backend.Register(presaleAddr, eth.PresaleABI)
	backend.Set(presaleAddr, eth.MethodTotalTokensSold, big.NewInt(1234))
	backend.Handle(presaleAddr, eth.MethodPurchases, func(_ *big.Int, args []any) ([]any, error) {
		if args[0].(common.Address) == buyer {
			return []any{big.NewInt(77)}, nil
		}
		return []any{big.NewInt(0)}, nil
	})

	presale := eth.NewContract(presaleAddr, eth.PresaleABI, backend)
	assert.Equal(t, presaleAddr, presale.Address())

	ctx := testContext(t)
	sold, err := presale.CallBig(ctx, big.NewInt(90), eth.MethodTotalTokensSold)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), sold.Int64())

	contribution, err := presale.CallBig(ctx, nil, eth.MethodPurchases, buyer)
	require.NoError(t, err)
	assert.Equal(t, int64(77), contribution.Int64())

	calls := backend.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, int64(90), calls[0].Block.Int64())
	assert.Nil(t, calls[1].Block)
}

func TestContract_CallAddress(t *testing.T) {
	t.Parallel()

	presaleAddr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	owner := common.HexToAddress(testAccount)

	backend := ethtest.NewBackend()
	backend.Register(presaleAddr, eth.PresaleABI)
	backend.Set(presaleAddr, eth.MethodOwner, owner)

	presale := eth.NewContract(presaleAddr, eth.PresaleABI, backend)
	got, err := presale.CallAddress(testContext(t), nil, eth.MethodOwner)
	require.NoError(t, err)
	assert.Equal(t, owner, got)
}

func TestContract_CallError(t *testing.T) {
	t.Parallel()

	tokenAddr := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	backend := ethtest.NewBackend()
	backend.Register(tokenAddr, eth.ERC20ABI)
	errNode := errors.New("node exploded")
	backend.Fail(tokenAddr, eth.MethodBalanceOf, errNode)

	token := eth.NewContract(tokenAddr, eth.ERC20ABI, backend)
	_, err := token.CallBig(testContext(t), nil, eth.MethodBalanceOf, common.HexToAddress(testAccount))
	require.ErrorIs(t, err, errNode)
	assert.Contains(t, err.Error(), eth.MethodBalanceOf)
}

func TestContract_Pack(t *testing.T) {
	t.Parallel()

	token := eth.NewContract(common.Address{}, eth.ERC20ABI, ethtest.NewBackend())
	spender := common.HexToAddress(testAccount)

	data, err := token.Pack(eth.MethodApprove, spender, big.NewInt(10))
	require.NoError(t, err)
	require.Len(t, data, 4+32+32)
	assert.Equal(t, eth.ERC20ABI.Methods[eth.MethodApprove].ID, data[:4])

	_, err = token.Pack(eth.MethodApprove, spender)
	require.Error(t, err)
}

func TestABI_PresaleMethods(t *testing.T) {
	t.Parallel()

	for _, name := range []string{
		eth.MethodStartTime, eth.MethodEndTime, eth.MethodTotalTokensSold, eth.MethodPresaleSupply,
		eth.MethodTokensPerBNB, eth.MethodTokensPerUSDT, eth.MethodMinPurchaseBNB, eth.MethodMaxPurchaseBNB,
		eth.MethodMinPurchaseUSDT, eth.MethodMaxPurchaseUSDT, eth.MethodPurchases, eth.MethodOwner,
		eth.MethodBuyTokensWithBNB, eth.MethodBuyTokensWithUSDT, eth.MethodStartPresale,
		eth.MethodWithdrawRemaining, eth.MethodWithdrawBNB, eth.MethodWithdrawUSDT,
	} {
		_, ok := eth.PresaleABI.Methods[name]
		assert.True(t, ok, name)
	}

	assert.True(t, eth.PresaleABI.Methods[eth.MethodBuyTokensWithBNB].IsPayable())
	assert.Len(t, eth.PresaleABI.Methods[eth.MethodStartPresale].Inputs, 7)
	assert.Contains(t, eth.StakingABI.Methods, eth.MethodGetReward)
	assert.Contains(t, eth.VaultABI.Methods, eth.MethodGetUserBalance)
}
