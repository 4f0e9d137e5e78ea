package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

// BuildInfo holds version information injected at build time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

//nolint:gochecknoglobals // Set once from main before Execute
var buildInfo BuildInfo

// SetBuildInfo records the build metadata shown by "uwealth version".
func SetBuildInfo(info BuildInfo) {
	buildInfo = info
}

// versionCmd prints the build metadata.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Show the uwealth version, the commit it was built from and the build date.`,
	Example: `  uwealth version
  uwealth version -o json`,
	RunE: runVersion,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	versionCmd.GroupID = groupConfig
	rootCmd.AddCommand(versionCmd)
}

type versionJSON struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
}

func runVersion(cmd *cobra.Command, _ []string) error {
	info := withDefaults(buildInfo)
	view := versionJSON{
		Version: info.Version,
		Commit:  info.Commit,
		Date:    info.Date,
		Go:      runtime.Version(),
	}
	if formatter != nil && formatter.IsJSON() {
		return formatter.Emit(view, nil)
	}
	w := cmd.OutOrStdout()
	return writeVersion(w, info)
}

func writeVersion(w io.Writer, info BuildInfo) error {
	_, err := fmt.Fprintf(w, "uwealth %s\n", formatVersion(info))
	return err
}

// formatVersion renders "v1.2.3 (commit: abc1234, built: 2024-01-15)".
func formatVersion(info BuildInfo) string {
	info = withDefaults(info)
	return fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date)
}

func withDefaults(info BuildInfo) BuildInfo {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return info
}
