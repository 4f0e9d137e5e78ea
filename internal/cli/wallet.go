package cli

import (
	"fmt"
	"io"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/mrz1836/uwealth/internal/config"
	"github.com/mrz1836/uwealth/internal/output"
	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// out is a helper for CLI output that ignores write errors (standard pattern for CLI tools).
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func out(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format, args...)
}

// outln is a helper for CLI output with newline.
//
//nolint:errcheck // CLI output writes to stdout are intentionally unchecked
func outln(w io.Writer, args ...interface{}) {
	fmt.Fprintln(w, args...)
}

// walletCmd is the parent command for wallet session operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Inspect and connect the wallet",
	Long: `Inspect and connect the wallet used to sign transactions.

The wallet is either an external signer reached over JSON-RPC
(wallet.signer_url) or a keystore directory (wallet.keystore_dir).`,
}

// walletStatusCmd shows the session without prompting.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the wallet session",
	Long: `Show whether a wallet was detected, which account is connected and
whether the wallet is on the network of the selected environment.

Nothing is requested from the wallet; use "wallet connect" to grant access.`,
	Example: `  uwealth wallet status
  uwealth wallet status -o json`,
	RunE: runWalletStatus,
}

// walletConnectCmd requests account access.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect a wallet account",
	Long: `Ask the wallet for access to an account and check its network.

An external signer may show its own approval prompt; a keystore account
is unlocked with its passphrase.`,
	Example: `  uwealth wallet connect
  UWEALTH_WALLET_PROVIDER=keystore uwealth wallet connect`,
	RunE: runWalletConnect,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	walletCmd.GroupID = groupDashboard
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletStatusCmd)
	walletCmd.AddCommand(walletConnectCmd)
}

// walletStatusJSON is the JSON form of the wallet session.
type walletStatusJSON struct {
	Detected        bool   `json:"detected"`
	Connected       bool   `json:"connected"`
	Address         string `json:"address,omitempty"`
	ChainID         string `json:"chain_id,omitempty"`
	ExpectedChainID string `json:"expected_chain_id"`
	Network         string `json:"network"`
	CorrectNetwork  bool   `json:"correct_network"`
}

func runWalletStatus(cmd *cobra.Command, _ []string) error {
	cc, err := commandContext(cmd)
	if err != nil {
		return err
	}

	status := walletStatus(cc)
	return cc.Fmt.Emit(status, func(w io.Writer) error {
		if !status.Detected {
			printInstallPrompt(w, cc.Cfg)
			return nil
		}

		panel := output.NewPanel("Wallet")
		if status.Connected {
			panel.Add("Account", status.Address)
		} else {
			panel.Add("Account", "not connected")
		}
		chainID := status.ChainID
		if chainID == "" {
			chainID = "-"
		}
		panel.Add("Chain ID", chainID)
		panel.Addf("Network", "%s (chain id %s)", status.Network, status.ExpectedChainID)
		if err := panel.Render(w); err != nil {
			return err
		}

		if status.ChainID != "" && !status.CorrectNetwork {
			output.Warn(w, "Wrong network. Please switch your wallet to %s.", status.Network)
		}
		if !status.Connected {
			output.Info(w, "Run \"uwealth wallet connect\" to connect an account.")
		}
		return nil
	})
}

func runWalletConnect(cmd *cobra.Command, _ []string) error {
	cc, err := commandContext(cmd)
	if err != nil {
		return err
	}
	if _, missing := cc.Wallet.(noWallet); missing {
		printInstallPrompt(cmd.ErrOrStderr(), cc.Cfg)
		return uwerr.ErrProviderNotFound
	}

	ctx, cancel := contextWithTimeout(cmd, connectTimeout)
	defer cancel()

	if _, err := cc.Wallet.RequestAccounts(ctx); err != nil {
		return err
	}
	// A mismatch prompts the user to switch; the session stays connected.
	if _, err := cc.Wallet.VerifyChain(ctx); err != nil {
		return err
	}

	status := walletStatus(cc)
	return cc.Fmt.Emit(status, func(w io.Writer) error {
		output.Success(w, "Connected %s", status.Address)
		return nil
	})
}

func walletStatus(cc *CommandContext) walletStatusJSON {
	expected := big.NewInt(cc.Env.ChainID)
	status := walletStatusJSON{
		ExpectedChainID: expected.String(),
		Network:         cc.Env.ChainName,
	}
	if _, missing := cc.Wallet.(noWallet); missing {
		return status
	}

	status.Detected = true
	s := cc.Wallet.Session()
	if s.Connected && s.ActiveAddress != nil {
		status.Connected = true
		status.Address = s.ActiveAddress.Hex()
	}
	if s.ChainID != nil {
		status.ChainID = s.ChainID.String()
		status.CorrectNetwork = s.ChainID.Cmp(expected) == 0
	}
	return status
}

// printInstallPrompt tells the user how to make a wallet available.
func printInstallPrompt(w io.Writer, c *config.Config) {
	output.Warn(w, "No wallet detected.")
	if c == nil {
		return
	}
	outln(w, "Start an external signer or create a keystore account:")
	out(w, "  signer:   %s (wallet.signer_url)\n", c.Wallet.SignerURL)
	out(w, "  keystore: %s (wallet.keystore_dir)\n", config.ExpandHome(c.Wallet.KeystoreDir))
}
