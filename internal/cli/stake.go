package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/uwealth/internal/chain"
	"github.com/mrz1836/uwealth/internal/output"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// stakeAmount is the UWT amount to stake or withdraw.
	stakeAmount string
	// stakeConfirm skips the confirmation prompt.
	stakeConfirm bool
)

// stakeCmd is the parent command for staking operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var stakeCmd = &cobra.Command{
	Use:   "stake",
	Short: "Stake UWT and claim rewards",
	Long:  `Stake UWT in the UWealth staking contract, withdraw it and claim rewards.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var stakeInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show your staking position",
	Long:  `Show the staked balance and the rewards earned by the connected account.`,
	Example: `  uwealth stake info
  uwealth stake info -o json`,
	RunE: runStakeInfo,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var stakeDepositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Stake UWT",
	Long: `Stake UWT from the connected account.

The staking contract is approved to spend exactly the amount first when
the current approval is smaller.`,
	Example: `  uwealth stake deposit --amount 1000
  uwealth stake deposit --amount 1000 --yes`,
	RunE: runStakeDeposit,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var stakeWithdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Withdraw staked UWT",
	Long:  `Withdraw staked UWT back to the connected account.`,
	Example: `  uwealth stake withdraw --amount 500
  uwealth stake withdraw --amount 500 --yes`,
	RunE: runStakeWithdraw,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var stakeClaimCmd = &cobra.Command{
	Use:     "claim",
	Short:   "Claim staking rewards",
	Long:    `Claim the rewards earned by the connected account.`,
	Example: `  uwealth stake claim --yes`,
	RunE:    runStakeClaim,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	stakeCmd.GroupID = groupEarn
	rootCmd.AddCommand(stakeCmd)
	stakeCmd.AddCommand(stakeInfoCmd)
	stakeCmd.AddCommand(stakeDepositCmd)
	stakeCmd.AddCommand(stakeWithdrawCmd)
	stakeCmd.AddCommand(stakeClaimCmd)

	for _, c := range []*cobra.Command{stakeDepositCmd, stakeWithdrawCmd} {
		c.Flags().StringVar(&stakeAmount, "amount", "", "UWT amount (required)")
		c.Flags().BoolVar(&stakeConfirm, "yes", false, "skip confirmation prompt")
		_ = c.MarkFlagRequired("amount")
	}
	stakeClaimCmd.Flags().BoolVar(&stakeConfirm, "yes", false, "skip confirmation prompt")
}

type stakePositionJSON struct {
	Address string `json:"address"`
	Balance string `json:"balance_uwt"`
	Staked  string `json:"staked_uwt"`
	Earned  string `json:"earned_uwt"`
}

func runStakeInfo(cmd *cobra.Command, _ []string) error {
	cc, err := commandContext(cmd)
	if err != nil {
		return err
	}
	svc, err := cc.StakingService()
	if err != nil {
		return err
	}
	account, err := cc.Wallet.ActiveAddress()
	if err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmd, readTimeout)
	defer cancel()

	pos, err := svc.Position(ctx, account)
	if err != nil {
		return err
	}
	view := stakePositionJSON{
		Address: pos.Address.Hex(),
		Balance: chain.Token.Format(pos.Balance),
		Staked:  chain.Token.Format(pos.Staked),
		Earned:  chain.Token.Format(pos.Earned),
	}
	return cc.Fmt.Emit(view, func(w io.Writer) error {
		panel := output.NewPanel("Staking")
		panel.Add("Account", view.Address)
		panel.Addf("Staking balance", "%s UWT", view.Balance)
		panel.Addf("Staked", "%s UWT", view.Staked)
		panel.Addf("Earned", "%s UWT", view.Earned)
		return panel.Render(w)
	})
}

func runStakeDeposit(cmd *cobra.Command, _ []string) error {
	amount, err := parseAmount("amount", stakeAmount, chain.Token)
	if err != nil {
		return err
	}
	cc, err := commandContext(cmd)
	if err != nil {
		return err
	}
	svc, err := cc.StakingService()
	if err != nil {
		return err
	}
	if !confirmAction(cmd, stakeConfirm, "Stake "+chain.Token.FormatWithSymbol(amount)+"?") {
		return nil
	}

	ctx, cancel := contextWithTimeout(cmd, txTimeout)
	defer cancel()

	receipt, err := svc.Stake(ctx, amount)
	if err != nil {
		return err
	}
	return emitReceipt(cc, receipt)
}

func runStakeWithdraw(cmd *cobra.Command, _ []string) error {
	amount, err := parseAmount("amount", stakeAmount, chain.Token)
	if err != nil {
		return err
	}
	cc, err := commandContext(cmd)
	if err != nil {
		return err
	}
	svc, err := cc.StakingService()
	if err != nil {
		return err
	}
	if !confirmAction(cmd, stakeConfirm, "Withdraw "+chain.Token.FormatWithSymbol(amount)+" from staking?") {
		return nil
	}

	ctx, cancel := contextWithTimeout(cmd, txTimeout)
	defer cancel()

	receipt, err := svc.Unstake(ctx, amount)
	if err != nil {
		return err
	}
	return emitReceipt(cc, receipt)
}

func runStakeClaim(cmd *cobra.Command, _ []string) error {
	cc, err := commandContext(cmd)
	if err != nil {
		return err
	}
	svc, err := cc.StakingService()
	if err != nil {
		return err
	}
	if !confirmAction(cmd, stakeConfirm, "Claim staking rewards?") {
		return nil
	}

	ctx, cancel := contextWithTimeout(cmd, txTimeout)
	defer cancel()

	receipt, err := svc.ClaimRewards(ctx)
	if err != nil {
		return err
	}
	return emitReceipt(cc, receipt)
}

// confirmAction returns true when the action was pre-confirmed or the user
// agrees. A refusal is reported on stdout.
func confirmAction(cmd *cobra.Command, yes bool, question string) bool {
	if yes {
		return true
	}
	if promptConfirmFn(question) {
		return true
	}
	outln(cmd.OutOrStdout(), "Canceled.")
	return false
}
