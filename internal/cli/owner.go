package cli

import (
	"context"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/spf13/cobra"

	"github.com/mrz1836/uwealth/internal/chain"
	"github.com/mrz1836/uwealth/internal/output"
	"github.com/mrz1836/uwealth/internal/service/presale"
	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// Withdrawable assets.
const (
	assetTokens = "tokens"
	assetBNB    = "bnb"
	assetUSDT   = "usdt"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// ownerSettings is the presale settings form.
	ownerSettings presale.SettingsInput
	// ownerAsset selects what to withdraw.
	ownerAsset string
	// ownerConfirm skips the confirmation prompt.
	ownerConfirm bool
)

// ownerCmd is the parent command for presale administration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var ownerCmd = &cobra.Command{
	Use:   "owner",
	Short: "Administer the presale (owner only)",
	Long: `Administer the presale contract. Every owner command first checks that
the connected account is the presale owner.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var ownerStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show the current presale settings",
	Long:    `Show the end time, rates and purchase limits the presale runs with.`,
	Example: `  uwealth owner status`,
	RunE:    runOwnerStatus,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var ownerUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Start or restart the presale with new settings",
	Long: `Start or restart the presale with a new end time, rates and limits.

Rates are UWT per whole BNB or USDT. Limits are in BNB and USDT. The end
time is RFC 3339 or local "YYYY-MM-DDTHH:MM" and must be in the future.`,
	Example: `  uwealth owner update --end-time 2026-12-31T23:59 \
    --tokens-per-bnb 50000 --tokens-per-usdt 100 \
    --min-bnb 0.1 --max-bnb 10 --min-usdt 50 --max-usdt 5000`,
	RunE: runOwnerUpdate,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var ownerWithdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Withdraw unsold tokens or collected funds",
	Long: `Withdraw from the presale contract to the owner account:

  tokens  the unsold UWT
  bnb     the collected BNB
  usdt    the collected USDT`,
	Example: `  uwealth owner withdraw --asset bnb
  uwealth owner withdraw --asset tokens --yes`,
	RunE: runOwnerWithdraw,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	ownerCmd.GroupID = groupOwner
	rootCmd.AddCommand(ownerCmd)
	ownerCmd.AddCommand(ownerStatusCmd)
	ownerCmd.AddCommand(ownerUpdateCmd)
	ownerCmd.AddCommand(ownerWithdrawCmd)

	f := ownerUpdateCmd.Flags()
	f.StringVar(&ownerSettings.EndTime, "end-time", "", "sale end time (required)")
	f.StringVar(&ownerSettings.TokensPerNative, "tokens-per-bnb", "", "UWT per BNB (required)")
	f.StringVar(&ownerSettings.TokensPerStable, "tokens-per-usdt", "", "UWT per USDT (required)")
	f.StringVar(&ownerSettings.MinPurchaseNative, "min-bnb", "", "minimum BNB purchase (required)")
	f.StringVar(&ownerSettings.MaxPurchaseNative, "max-bnb", "", "maximum BNB purchase (required)")
	f.StringVar(&ownerSettings.MinPurchaseStable, "min-usdt", "", "minimum USDT purchase (required)")
	f.StringVar(&ownerSettings.MaxPurchaseStable, "max-usdt", "", "maximum USDT purchase (required)")
	f.BoolVar(&ownerConfirm, "yes", false, "skip confirmation prompt")
	for _, name := range []string{"end-time", "tokens-per-bnb", "tokens-per-usdt", "min-bnb", "max-bnb", "min-usdt", "max-usdt"} {
		_ = ownerUpdateCmd.MarkFlagRequired(name)
	}

	ownerWithdrawCmd.Flags().StringVar(&ownerAsset, "asset", "", "what to withdraw: tokens, bnb or usdt (required)")
	ownerWithdrawCmd.Flags().BoolVar(&ownerConfirm, "yes", false, "skip confirmation prompt")
	_ = ownerWithdrawCmd.MarkFlagRequired("asset")
}

type ownerSettingsJSON struct {
	Owner           string `json:"owner"`
	Block           uint64 `json:"block"`
	Status          string `json:"status"`
	EndTime         string `json:"end_time"`
	TokensPerBNB    string `json:"tokens_per_bnb"`
	TokensPerUSDT   string `json:"tokens_per_usdt"`
	MinPurchaseBNB  string `json:"min_purchase_bnb"`
	MaxPurchaseBNB  string `json:"max_purchase_bnb"`
	MinPurchaseUSDT string `json:"min_purchase_usdt"`
	MaxPurchaseUSDT string `json:"max_purchase_usdt"`
}

// ownerContext gates an owner command on the connected account.
func ownerContext(cmd *cobra.Command) (*CommandContext, error) {
	cc, err := commandContext(cmd)
	if err != nil {
		return nil, err
	}
	ctx, cancel := contextWithTimeout(cmd, readTimeout)
	defer cancel()
	if _, err := cc.Admin.RequireOwner(ctx); err != nil {
		return nil, err
	}
	return cc, nil
}

func runOwnerStatus(cmd *cobra.Command, _ []string) error {
	cc, err := ownerContext(cmd)
	if err != nil {
		return err
	}
	owner, _ := cc.Wallet.ActiveAddress()

	ctx, cancel := contextWithTimeout(cmd, readTimeout)
	defer cancel()

	s, err := cc.Admin.CurrentSettings(ctx)
	if err != nil {
		return err
	}
	view := ownerSettingsJSON{
		Owner:           owner.Hex(),
		Block:           s.Block,
		Status:          string(s.Status),
		EndTime:         formatUnix(s.EndTime, "2006-01-02T15:04"),
		TokensPerBNB:    s.TokensPerNative.Format(chain.Token),
		TokensPerUSDT:   s.TokensPerStable.Format(chain.Token),
		MinPurchaseBNB:  s.MinPurchaseNative.Format(chain.Native),
		MaxPurchaseBNB:  s.MaxPurchaseNative.Format(chain.Native),
		MinPurchaseUSDT: s.MinPurchaseStable.Format(chain.Stable),
		MaxPurchaseUSDT: s.MaxPurchaseStable.Format(chain.Stable),
	}
	return cc.Fmt.Emit(view, func(w io.Writer) error {
		panel := output.NewPanel("Presale Settings")
		panel.Add("Owner", view.Owner)
		panel.Add("Status", s.Status.String())
		panel.Add("End time", view.EndTime)
		panel.Add("UWT per BNB", view.TokensPerBNB)
		panel.Add("UWT per USDT", view.TokensPerUSDT)
		panel.Addf("Limits (BNB)", "%s - %s", view.MinPurchaseBNB, view.MaxPurchaseBNB)
		panel.Addf("Limits (USDT)", "%s - %s", view.MinPurchaseUSDT, view.MaxPurchaseUSDT)
		panel.Addf("Block", "%d", view.Block)
		return panel.Render(w)
	})
}

func runOwnerUpdate(cmd *cobra.Command, _ []string) error {
	settings, err := presale.ParseSettings(ownerSettings)
	if err != nil {
		return err
	}
	cc, err := ownerContext(cmd)
	if err != nil {
		return err
	}
	if err := settings.Check(cc.now()); err != nil {
		return err
	}

	if !ownerConfirm {
		w := cmd.ErrOrStderr()
		out(w, "End time:      %s\n", settings.EndTime.Format("2006-01-02 15:04 MST"))
		out(w, "UWT per BNB:   %s\n", chain.Token.Format(settings.TokensPerNative))
		out(w, "UWT per USDT:  %s\n", chain.Token.Format(settings.TokensPerStable))
		out(w, "Limits (BNB):  %s - %s\n", chain.Native.Format(settings.MinPurchaseNative), chain.Native.Format(settings.MaxPurchaseNative))
		out(w, "Limits (USDT): %s - %s\n", chain.Stable.Format(settings.MinPurchaseStable), chain.Stable.Format(settings.MaxPurchaseStable))
	}
	if !confirmAction(cmd, ownerConfirm, "Start the presale with these settings?") {
		return nil
	}

	ctx, cancel := contextWithTimeout(cmd, txTimeout)
	defer cancel()

	receipt, err := cc.Admin.UpdatePresale(ctx, settings)
	if err != nil {
		return err
	}
	return emitReceipt(cc, receipt)
}

func runOwnerWithdraw(cmd *cobra.Command, _ []string) error {
	asset := strings.ToLower(strings.TrimSpace(ownerAsset))
	labels := map[string]string{
		assetTokens: "the unsold UWT",
		assetBNB:    "the collected BNB",
		assetUSDT:   "the collected USDT",
	}
	label, ok := labels[asset]
	if !ok {
		return uwerr.WithSuggestion(
			uwerr.WithDetails(uwerr.ErrInvalidInput, map[string]string{"asset": ownerAsset}),
			"use --asset tokens, --asset bnb or --asset usdt",
		)
	}

	cc, err := ownerContext(cmd)
	if err != nil {
		return err
	}
	withdraw := map[string]func(context.Context) (*types.Receipt, error){
		assetTokens: cc.Admin.WithdrawRemainingTokens,
		assetBNB:    cc.Admin.WithdrawNative,
		assetUSDT:   cc.Admin.WithdrawStable,
	}[asset]

	if !confirmAction(cmd, ownerConfirm, "Withdraw "+label+" to the owner account?") {
		return nil
	}

	ctx, cancel := contextWithTimeout(cmd, txTimeout)
	defer cancel()

	receipt, err := withdraw(ctx)
	if err != nil {
		return err
	}
	return emitReceipt(cc, receipt)
}
