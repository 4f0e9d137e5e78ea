package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/uwealth/internal/chain"
	"github.com/mrz1836/uwealth/internal/output"
	"github.com/mrz1836/uwealth/internal/service/staking"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// vaultAmount is the UWT amount to deposit or withdraw.
	vaultAmount string
	// vaultConfirm skips the confirmation prompt.
	vaultConfirm bool
)

// vaultTitles are the display names of the vaults.
//
//nolint:gochecknoglobals // Fixed lookup table
var vaultTitles = map[string]string{
	staking.VaultInvestment: "Blue Chip Crypto Fund",
	staking.VaultTradingBot: "Trading Bot",
}

// investCmd is the parent command for the investment fund.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var investCmd = &cobra.Command{
	Use:   "invest",
	Short: "Invest UWT in the Blue Chip Crypto Fund",
	Long:  `Deposit UWT into the Blue Chip Crypto Fund and view your investment.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var investInfoCmd = &cobra.Command{
	Use:     "info",
	Short:   "Show your fund balance",
	Long:    `Show the UWT the connected account holds in the Blue Chip Crypto Fund.`,
	Example: `  uwealth invest info`,
	RunE:    vaultInfo(staking.VaultInvestment),
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var investDepositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Deposit UWT into the fund",
	Long: `Deposit UWT into the Blue Chip Crypto Fund.

The fund is approved to spend exactly the amount first when the current
approval is smaller.`,
	Example: `  uwealth invest deposit --amount 1000`,
	RunE:    vaultDeposit(staking.VaultInvestment),
}

// botCmd is the parent command for the trading bot vault.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Fund the trading bot with UWT",
	Long:  `Deposit UWT into the trading bot, withdraw it and view your balance.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var botInfoCmd = &cobra.Command{
	Use:     "info",
	Short:   "Show your trading bot balance",
	Long:    `Show the UWT the connected account holds in the trading bot.`,
	Example: `  uwealth bot info -o json`,
	RunE:    vaultInfo(staking.VaultTradingBot),
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var botDepositCmd = &cobra.Command{
	Use:     "deposit",
	Short:   "Deposit UWT into the trading bot",
	Long:    `Deposit UWT into the trading bot, approving it first when needed.`,
	Example: `  uwealth bot deposit --amount 250 --yes`,
	RunE:    vaultDeposit(staking.VaultTradingBot),
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var botWithdrawCmd = &cobra.Command{
	Use:     "withdraw",
	Short:   "Withdraw UWT from the trading bot",
	Long:    `Withdraw UWT from the trading bot back to the connected account.`,
	Example: `  uwealth bot withdraw --amount 250`,
	RunE:    vaultWithdraw(staking.VaultTradingBot),
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	investCmd.GroupID = groupEarn
	botCmd.GroupID = groupEarn
	rootCmd.AddCommand(investCmd)
	rootCmd.AddCommand(botCmd)
	investCmd.AddCommand(investInfoCmd)
	investCmd.AddCommand(investDepositCmd)
	botCmd.AddCommand(botInfoCmd)
	botCmd.AddCommand(botDepositCmd)
	botCmd.AddCommand(botWithdrawCmd)

	for _, c := range []*cobra.Command{investDepositCmd, botDepositCmd, botWithdrawCmd} {
		c.Flags().StringVar(&vaultAmount, "amount", "", "UWT amount (required)")
		c.Flags().BoolVar(&vaultConfirm, "yes", false, "skip confirmation prompt")
		_ = c.MarkFlagRequired("amount")
	}
}

type vaultBalanceJSON struct {
	Vault   string `json:"vault"`
	Address string `json:"address"`
	Balance string `json:"balance_uwt"`
}

func vaultInfo(name string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cc, err := commandContext(cmd)
		if err != nil {
			return err
		}
		v, err := cc.Vault(name)
		if err != nil {
			return err
		}
		account, err := cc.Wallet.ActiveAddress()
		if err != nil {
			return err
		}

		ctx, cancel := contextWithTimeout(cmd, readTimeout)
		defer cancel()

		balance, err := v.Balance(ctx, account)
		if err != nil {
			return err
		}
		view := vaultBalanceJSON{
			Vault:   v.Name(),
			Address: account.Hex(),
			Balance: chain.Token.Format(balance),
		}
		return cc.Fmt.Emit(view, func(w io.Writer) error {
			panel := output.NewPanel(vaultTitles[name])
			panel.Add("Account", view.Address)
			panel.Addf("Balance", "%s UWT", view.Balance)
			return panel.Render(w)
		})
	}
}

func vaultDeposit(name string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		amount, err := parseAmount("amount", vaultAmount, chain.Token)
		if err != nil {
			return err
		}
		cc, err := commandContext(cmd)
		if err != nil {
			return err
		}
		v, err := cc.Vault(name)
		if err != nil {
			return err
		}
		question := "Deposit " + chain.Token.FormatWithSymbol(amount) + " into " + vaultTitles[name] + "?"
		if !confirmAction(cmd, vaultConfirm, question) {
			return nil
		}

		ctx, cancel := contextWithTimeout(cmd, txTimeout)
		defer cancel()

		receipt, err := v.Deposit(ctx, amount)
		if err != nil {
			return err
		}
		return emitReceipt(cc, receipt)
	}
}

func vaultWithdraw(name string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		amount, err := parseAmount("amount", vaultAmount, chain.Token)
		if err != nil {
			return err
		}
		cc, err := commandContext(cmd)
		if err != nil {
			return err
		}
		v, err := cc.Vault(name)
		if err != nil {
			return err
		}
		question := "Withdraw " + chain.Token.FormatWithSymbol(amount) + " from " + vaultTitles[name] + "?"
		if !confirmAction(cmd, vaultConfirm, question) {
			return nil
		}

		ctx, cancel := contextWithTimeout(cmd, txTimeout)
		defer cancel()

		receipt, err := v.Withdraw(ctx, amount)
		if err != nil {
			return err
		}
		return emitReceipt(cc, receipt)
	}
}
