package cli

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Help is enriched once per process
var enrichOnce sync.Once

// enrichHelp lists the subcommands in the Long text of every parent below
// root. Root help already shows the command groups.
func enrichHelp(root *cobra.Command) {
	enrichOnce.Do(func() {
		for _, cmd := range root.Commands() {
			walkCommands(cmd, enrichParentLong)
		}
	})
}

// walkCommands visits every command in the tree depth-first.
func walkCommands(cmd *cobra.Command, fn func(*cobra.Command)) {
	fn(cmd)
	for _, sub := range cmd.Commands() {
		walkCommands(sub, fn)
	}
}

// enrichParentLong appends a dynamically generated subcommand list to a parent
// command's Long description. This ensures parent help stays current when
// subcommands are added or removed.
func enrichParentLong(cmd *cobra.Command) {
	if !cmd.HasSubCommands() {
		return
	}

	var sb strings.Builder
	sb.WriteString(cmd.Long)
	sb.WriteString("\n\nSubcommands:\n")

	for _, sub := range cmd.Commands() {
		if sub.IsAvailableCommand() {
			sb.WriteString(fmt.Sprintf("  %-16s %s\n", sub.Name(), sub.Short))
		}
	}

	cmd.Long = sb.String()
}
