package cli

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/uwealth/internal/chain"
	"github.com/mrz1836/uwealth/internal/output"
	"github.com/mrz1836/uwealth/internal/service/presale"
	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// presaleWatch keeps the dashboard open and refreshes it.
	presaleWatch bool
	// presaleMetricsAddr serves Prometheus metrics while watching.
	presaleMetricsAddr string
	// presaleAmount is an amount to estimate tokens for.
	presaleAmount string
	// presaleCurrency is the currency of presaleAmount or of a purchase.
	presaleCurrency string
	// buyConfirm skips the confirmation prompt.
	buyConfirm bool
)

// presaleCmd is the parent command for presale operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var presaleCmd = &cobra.Command{
	Use:   "presale",
	Short: "View the presale and buy tokens",
	Long:  `View the UWealth presale dashboard and buy UWT with BNB or USDT.`,
}

// presaleStatusCmd renders the dashboard.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var presaleStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the presale dashboard",
	Long: `Show the sale window, progress, rates and purchase limits, and the
balances of the connected account.

All sale values are read at one block. A value that could not be read is
shown from the previous refresh and the dashboard is marked out of date.

With --watch the dashboard refreshes every refresh_interval until
interrupted, and --metrics-addr serves Prometheus metrics meanwhile.`,
	Example: `  uwealth presale status
  uwealth presale status --amount 250 --currency USDT
  uwealth presale status --watch --metrics-addr :9090`,
	RunE: runPresaleStatus,
}

// presaleBuyCmd buys tokens.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var presaleBuyCmd = &cobra.Command{
	Use:   "buy",
	Short: "Buy UWT with BNB or USDT",
	Long: `Buy UWT with BNB or USDT from the connected account.

The purchase is checked against the sale window, the purchase limits
and your balances before anything is sent to the wallet. USDT purchases
first approve the presale to spend exactly the amount, unless a large
enough approval already exists.`,
	Example: `  uwealth presale buy --amount 0.5 --currency BNB
  uwealth presale buy --amount 100 --currency USDT --yes`,
	RunE: runPresaleBuy,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	presaleCmd.GroupID = groupDashboard
	rootCmd.AddCommand(presaleCmd)
	presaleCmd.AddCommand(presaleStatusCmd)
	presaleCmd.AddCommand(presaleBuyCmd)

	presaleStatusCmd.Flags().BoolVar(&presaleWatch, "watch", false, "keep refreshing until interrupted")
	presaleStatusCmd.Flags().StringVar(&presaleMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while watching")
	presaleStatusCmd.Flags().StringVar(&presaleAmount, "amount", "", "estimate the tokens this amount buys")
	presaleStatusCmd.Flags().StringVar(&presaleCurrency, "currency", "BNB", "currency of --amount: BNB or USDT")

	presaleBuyCmd.Flags().StringVar(&presaleAmount, "amount", "", "amount to pay (required)")
	presaleBuyCmd.Flags().StringVar(&presaleCurrency, "currency", "BNB", "currency to pay with: BNB or USDT")
	presaleBuyCmd.Flags().BoolVar(&buyConfirm, "yes", false, "skip confirmation prompt")
	_ = presaleBuyCmd.MarkFlagRequired("amount")
}

// presaleStatusJSON is the JSON form of the dashboard.
type presaleStatusJSON struct {
	Environment     string        `json:"environment"`
	Block           uint64        `json:"block"`
	Status          string        `json:"status"`
	StartTime       string        `json:"start_time"`
	EndTime         string        `json:"end_time"`
	TokensSold      string        `json:"tokens_sold"`
	TokensAvailable string        `json:"tokens_available"`
	Progress        float64       `json:"progress_percent"`
	TokensPerBNB    string        `json:"tokens_per_bnb"`
	TokensPerUSDT   string        `json:"tokens_per_usdt"`
	MinPurchaseBNB  string        `json:"min_purchase_bnb"`
	MaxPurchaseBNB  string        `json:"max_purchase_bnb"`
	MinPurchaseUSDT string        `json:"min_purchase_usdt"`
	MaxPurchaseUSDT string        `json:"max_purchase_usdt"`
	Stale           bool          `json:"stale"`
	Position        *positionJSON `json:"position,omitempty"`
	Estimate        *estimateJSON `json:"estimate,omitempty"`
}

type positionJSON struct {
	Address   string `json:"address"`
	BNB       string `json:"bnb"`
	USDT      string `json:"usdt"`
	UWT       string `json:"uwt"`
	Purchased string `json:"purchased_uwt"`
}

type estimateJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Tokens   string `json:"tokens"`
}

// receiptJSON is the JSON form of a mined transaction.
type receiptJSON struct {
	Hash    string `json:"hash"`
	Block   string `json:"block"`
	GasUsed uint64 `json:"gas_used"`
	Status  string `json:"status"`
}

func runPresaleStatus(cmd *cobra.Command, _ []string) error {
	cc, err := commandContext(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmd, readTimeout)
	err = cc.Refresher.RefreshNow(ctx)
	cancel()
	if err != nil {
		return err
	}

	if err := renderPresale(cc, cc.Refresher.State()); err != nil {
		return err
	}
	if !presaleWatch {
		return nil
	}
	return watchPresale(baseContext(cmd), cc)
}

// watchPresale re-renders after every applied refresh until ctx ends.
func watchPresale(ctx context.Context, cc *CommandContext) error {
	addr := presaleMetricsAddr
	if addr == "" && cc.Cfg != nil {
		addr = cc.Cfg.Metrics.Addr
	}

	g, gctx := errgroup.WithContext(ctx)
	if addr != "" {
		cc.Log.Info("serving metrics on %s", addr)
		g.Go(func() error {
			return cc.Metrics.Serve(gctx, addr)
		})
	}

	// The state from RefreshNow is already on screen.
	select {
	case <-cc.updates:
	default:
	}
	cc.Refresher.Start(gctx)
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-cc.updates:
				if err := renderPresale(cc, cc.Refresher.State()); err != nil {
					return err
				}
			}
		}
	})

	err := g.Wait()
	cc.Refresher.Stop()
	return err
}

func renderPresale(cc *CommandContext, state presale.State) error {
	view := presaleView(cc, state)
	if presaleAmount != "" && view.Estimate == nil {
		return estimateError(state.Snapshot)
	}
	return cc.Fmt.Emit(view, func(w io.Writer) error {
		return writePresaleText(w, view, state)
	})
}

func presaleView(cc *CommandContext, state presale.State) *presaleStatusJSON {
	view := &presaleStatusJSON{Environment: cc.Cfg.Environment}
	if snap := state.Snapshot; snap != nil {
		view.Block = snap.Block
		view.Status = string(snap.Status)
		view.StartTime = formatUnix(snap.StartTime, time.RFC3339)
		view.EndTime = formatUnix(snap.EndTime, time.RFC3339)
		view.TokensSold = snap.TokensSold.Format(chain.Token)
		view.TokensAvailable = snap.TokensAvailable.Format(chain.Token)
		view.Progress = snap.Progress()
		view.TokensPerBNB = snap.TokensPerNative.Format(chain.Token)
		view.TokensPerUSDT = snap.TokensPerStable.Format(chain.Token)
		view.MinPurchaseBNB = snap.MinPurchaseNative.Format(chain.Native)
		view.MaxPurchaseBNB = snap.MaxPurchaseNative.Format(chain.Native)
		view.MinPurchaseUSDT = snap.MinPurchaseStable.Format(chain.Stable)
		view.MaxPurchaseUSDT = snap.MaxPurchaseStable.Format(chain.Stable)
		view.Stale = snap.Stale()
	}
	if pos := state.Position; pos != nil {
		view.Position = &positionJSON{
			Address:   pos.Address.Hex(),
			BNB:       chain.Native.Format(pos.NativeBalance),
			USDT:      chain.Stable.Format(pos.StableBalance),
			UWT:       chain.Token.Format(pos.TokenBalance),
			Purchased: chain.Token.Format(pos.ContributionTotal),
		}
	}
	if presaleAmount != "" {
		if currency, ok := presale.ParseCurrency(presaleCurrency); ok {
			if tokens, err := presale.EstimateTokens(presaleAmount, currency, state.Snapshot); err == nil {
				view.Estimate = &estimateJSON{
					Amount:   presaleAmount,
					Currency: string(currency),
					Tokens:   tokens.StringFixed(2),
				}
			}
		}
	}
	return view
}

func estimateError(snap *presale.SaleSnapshot) error {
	currency, ok := presale.ParseCurrency(presaleCurrency)
	if !ok {
		return invalidCurrency(presaleCurrency)
	}
	_, err := presale.EstimateTokens(presaleAmount, currency, snap)
	return err
}

func writePresaleText(w io.Writer, view *presaleStatusJSON, state presale.State) error {
	snap := state.Snapshot
	if snap == nil {
		output.Warn(w, "Presale state unavailable.")
		return nil
	}

	panel := output.NewPanel("UWealth Presale")
	panel.Add("Status", snap.Status.String())
	panel.Add("Starts", formatUnix(snap.StartTime, time.DateTime))
	panel.Add("Ends", formatUnix(snap.EndTime, time.DateTime))
	panel.Addf("Sold", "%s / %s UWT (%.2f%%)", view.TokensSold, view.TokensAvailable, view.Progress)
	panel.Addf("Price (BNB)", "1 BNB = %s UWT", view.TokensPerBNB)
	panel.Addf("Price (USDT)", "1 USDT = %s UWT", view.TokensPerUSDT)
	panel.Addf("Limits (BNB)", "%s - %s BNB", view.MinPurchaseBNB, view.MaxPurchaseBNB)
	panel.Addf("Limits (USDT)", "%s - %s USDT", view.MinPurchaseUSDT, view.MaxPurchaseUSDT)
	panel.Addf("Block", "%d", snap.Block)
	if err := panel.Render(w); err != nil {
		return err
	}
	if view.Stale {
		output.Warn(w, "Some values could not be refreshed and may be out of date.")
	}

	if pos := view.Position; pos != nil {
		outln(w)
		account := output.NewPanel("Your Position")
		account.Add("Account", pos.Address)
		account.Addf("BNB", "%s BNB", pos.BNB)
		account.Addf("USDT", "%s USDT", pos.USDT)
		account.Addf("UWT", "%s UWT", pos.UWT)
		account.Addf("Purchased", "%s UWT", pos.Purchased)
		if err := account.Render(w); err != nil {
			return err
		}
	}

	if est := view.Estimate; est != nil {
		outln(w)
		out(w, "%s %s buys approximately %s UWT\n", est.Amount, est.Currency, est.Tokens)
	}
	return nil
}

func runPresaleBuy(cmd *cobra.Command, _ []string) error {
	currency, ok := presale.ParseCurrency(presaleCurrency)
	if !ok {
		return invalidCurrency(presaleCurrency)
	}

	cc, err := commandContext(cmd)
	if err != nil {
		return err
	}

	cc.Draft.SetAmount(presaleAmount)
	if cc.Draft.Currency() != currency {
		cc.Draft.SelectCurrency()
		cc.Draft.SetAmount(presaleAmount)
	}
	amount, _, err := cc.Draft.Parse()
	if err != nil {
		return err
	}

	ctx, cancel := contextWithTimeout(cmd, txTimeout)
	defer cancel()

	if err := cc.Wallet.RequireChain(ctx); err != nil {
		return err
	}
	// Checked up front so a rejected purchase never reaches the prompt.
	if err := cc.Orchestrator.Validate(ctx, amount, currency); err != nil {
		return err
	}

	if !buyConfirm {
		w := cmd.ErrOrStderr()
		out(w, "Buying with %s", currency.Asset().FormatWithSymbol(amount))
		if tokens, err := cc.Draft.Estimate(cc.Refresher.State().Snapshot); err == nil {
			out(w, " (about %s UWT)", tokens.StringFixed(2))
		}
		outln(w)
		if !promptConfirmFn("Send this purchase to your wallet?") {
			outln(cmd.OutOrStdout(), "Purchase canceled.")
			return nil
		}
	}

	receipt, err := cc.Orchestrator.Purchase(ctx, amount, currency)
	if err != nil {
		return err
	}
	return emitReceipt(cc, receipt)
}

// emitReceipt prints a mined transaction.
func emitReceipt(cc *CommandContext, receipt *types.Receipt) error {
	view := receiptJSON{
		Hash:    receipt.TxHash.Hex(),
		GasUsed: receipt.GasUsed,
		Status:  "confirmed",
	}
	if receipt.BlockNumber != nil {
		view.Block = receipt.BlockNumber.String()
	}
	return cc.Fmt.Emit(view, func(w io.Writer) error {
		out(w, "Transaction %s mined in block %s\n", view.Hash, view.Block)
		return nil
	})
}

// formatUnix renders a unix-seconds field in local time, or "-" when unknown.
func formatUnix(f presale.Field, layout string) string {
	if !f.Known() || !f.Raw.IsInt64() {
		return "-"
	}
	t := time.Unix(f.Raw.Int64(), 0)
	if layout == time.RFC3339 {
		t = t.UTC()
	}
	return t.Format(layout)
}

// parseAmount parses a token amount flag.
func parseAmount(flag, value string, asset chain.Asset) (*big.Int, error) {
	if strings.TrimSpace(value) == "" {
		return nil, uwerr.WithDetails(uwerr.ErrInvalidAmount, map[string]string{"flag": flag})
	}
	amount, err := asset.Parse(value)
	if err != nil {
		return nil, err
	}
	if amount.Sign() <= 0 {
		return nil, uwerr.WithDetails(uwerr.ErrInvalidAmount, map[string]string{"reason": "amount must be positive"})
	}
	return amount, nil
}

func invalidCurrency(value string) error {
	return uwerr.WithSuggestion(
		uwerr.WithDetails(uwerr.ErrInvalidInput, map[string]string{"currency": value}),
		fmt.Sprintf("use --currency %s or --currency %s", presale.CurrencyNative, presale.CurrencyStable),
	)
}
