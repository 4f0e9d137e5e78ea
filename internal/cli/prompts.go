package cli

import (
	"bufio"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/mrz1836/uwealth/internal/output"
	"github.com/mrz1836/uwealth/internal/service/transaction"
)

// promptConfirmFn is the confirmation prompt; replaced in tests.
//
//nolint:gochecknoglobals // Replaceable for testing
var promptConfirmFn = promptConfirmation

// promptConfirmation asks a yes/no question on stderr and reads stdin.
func promptConfirmation(question string) bool {
	return confirm(os.Stdin, os.Stderr, question)
}

func confirm(in io.Reader, w io.Writer, question string) bool {
	out(w, "\n%s [y/N]: ", question)

	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && response == "" {
		return false
	}

	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

// networkPrompter asks the user to switch the wallet's network. The wallet
// itself performs the switch; the next command re-checks the chain.
type networkPrompter struct {
	w io.Writer
}

func (p networkPrompter) PromptSwitch(expectedName string, expectedID, actualID *big.Int) {
	name := expectedName
	if name == "" {
		name = "chain " + expectedID.String()
	}
	output.Warn(p.w, "Wrong network. Please switch your wallet to %s (chain id %s); it is on chain id %s.",
		name, expectedID, actualID)
}

// noticePrinter writes transaction notifications as status lines.
func noticePrinter(w io.Writer) transaction.Notifier {
	return transaction.NotifierFunc(func(n transaction.Notification) {
		switch n.Status {
		case transaction.StatusConfirmed:
			output.Success(w, "%s", n.Message)
		case transaction.StatusFailed:
			output.Failure(w, "%s", n.Message)
		default:
			output.Info(w, "%s", n.Message)
		}
	})
}
