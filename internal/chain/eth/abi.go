package eth

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract method names.
const (
	MethodStartTime         = "startTime"
	MethodEndTime           = "endTime"
	MethodTotalTokensSold   = "totalTokensSold"
	MethodPresaleSupply     = "PRESALE_SUPPLY"
	MethodTokensPerBNB      = "tokensPerBNB"
	MethodTokensPerUSDT     = "tokensPerUSDT"
	MethodMinPurchaseBNB    = "minPurchaseBNB"
	MethodMaxPurchaseBNB    = "maxPurchaseBNB"
	MethodMinPurchaseUSDT   = "minPurchaseUSDT"
	MethodMaxPurchaseUSDT   = "maxPurchaseUSDT"
	MethodPurchases         = "purchases"
	MethodOwner             = "owner"
	MethodBuyTokensWithBNB  = "buyTokensWithBNB"
	MethodBuyTokensWithUSDT = "buyTokensWithUSDT"
	MethodStartPresale      = "startPresale"
	MethodWithdrawRemaining = "withdrawRemainingTokens"
	MethodWithdrawBNB       = "withdrawBNB"
	MethodWithdrawUSDT      = "withdrawUSDT"
	MethodBalanceOf         = "balanceOf"
	MethodAllowance         = "allowance"
	MethodApprove           = "approve"
	MethodStakedAmount      = "stakedAmount"
	MethodEarned            = "earned"
	MethodStake             = "stake"
	MethodWithdraw          = "withdraw"
	MethodGetReward         = "getReward"
	MethodGetUserBalance    = "getUserBalance"
	MethodDeposit           = "deposit"
)

const presaleViewUint256Output = `"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"`

func presaleView(name string) string {
	return `{"inputs":[],"name":"` + name + `",` + presaleViewUint256Output + `}`
}

// PresaleABIJSON describes the presale contract methods used by the client.
//
//nolint:gochecknoglobals // ABI definition assembled once at startup
var PresaleABIJSON = `[` + strings.Join([]string{
	presaleView(MethodStartTime),
	presaleView(MethodEndTime),
	presaleView(MethodTotalTokensSold),
	presaleView(MethodPresaleSupply),
	presaleView(MethodTokensPerBNB),
	presaleView(MethodTokensPerUSDT),
	presaleView(MethodMinPurchaseBNB),
	presaleView(MethodMaxPurchaseBNB),
	presaleView(MethodMinPurchaseUSDT),
	presaleView(MethodMaxPurchaseUSDT),
	`{"inputs":[{"name":"","type":"address"}],"name":"purchases",` + presaleViewUint256Output + `}`,
	`{"inputs":[],"name":"owner","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"}`,
	`{"inputs":[],"name":"buyTokensWithBNB","outputs":[],"stateMutability":"payable","type":"function"}`,
	`{"inputs":[{"name":"usdtAmount","type":"uint256"}],"name":"buyTokensWithUSDT","outputs":[],"stateMutability":"nonpayable","type":"function"}`,
	`{"inputs":[` +
		`{"name":"_endTime","type":"uint256"},` +
		`{"name":"_tokensPerBNB","type":"uint256"},` +
		`{"name":"_tokensPerUSDT","type":"uint256"},` +
		`{"name":"_minPurchaseBNB","type":"uint256"},` +
		`{"name":"_maxPurchaseBNB","type":"uint256"},` +
		`{"name":"_minPurchaseUSDT","type":"uint256"},` +
		`{"name":"_maxPurchaseUSDT","type":"uint256"}` +
		`],"name":"startPresale","outputs":[],"stateMutability":"nonpayable","type":"function"}`,
	`{"inputs":[],"name":"withdrawRemainingTokens","outputs":[],"stateMutability":"nonpayable","type":"function"}`,
	`{"inputs":[],"name":"withdrawBNB","outputs":[],"stateMutability":"nonpayable","type":"function"}`,
	`{"inputs":[],"name":"withdrawUSDT","outputs":[],"stateMutability":"nonpayable","type":"function"}`,
}, ",") + `]`

// ERC20ABIJSON covers the token methods used for balances and allowances.
const ERC20ABIJSON = `[
{"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

// StakingABIJSON describes the staking contract.
const StakingABIJSON = `[
{"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"account","type":"address"}],"name":"stakedAmount","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"account","type":"address"}],"name":"earned","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"amount","type":"uint256"}],"name":"stake","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"name":"amount","type":"uint256"}],"name":"withdraw","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[],"name":"getReward","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// VaultABIJSON describes the investment fund and trading bot contracts.
const VaultABIJSON = `[
{"inputs":[{"name":"user","type":"address"}],"name":"getUserBalance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"amount","type":"uint256"}],"name":"deposit","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"name":"amount","type":"uint256"}],"name":"withdraw","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// Parsed ABIs.
//
//nolint:gochecknoglobals // Parsed once from the constant definitions above
var (
	PresaleABI = mustParseABI(PresaleABIJSON)
	ERC20ABI   = mustParseABI(ERC20ABIJSON)
	StakingABI = mustParseABI(StakingABIJSON)
	VaultABI   = mustParseABI(VaultABIJSON)
)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic("invalid ABI definition: " + err.Error())
	}
	return parsed
}
