package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCompletion_Generators tests script generation for every shell.
func TestCompletion_Generators(t *testing.T) {
	tests := []struct {
		shell  string
		marker string
	}{
		{"bash", "uwealth"},
		{"zsh", "#compdef uwealth"},
		{"fish", "complete"},
		{"powershell", "Register-ArgumentCompleter"},
	}

	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			var buf bytes.Buffer
			completionCmd.SetOut(&buf)
			t.Cleanup(func() { completionCmd.SetOut(nil) })

			require.NoError(t, completionCmd.RunE(completionCmd, []string{tt.shell}))
			assert.Contains(t, buf.String(), tt.marker)
		})
	}
}

// TestCompletion_RejectsUnknownShell tests argument validation.
func TestCompletion_RejectsUnknownShell(t *testing.T) {
	require.Error(t, completionCmd.Args(completionCmd, []string{"tcsh"}))
	require.Error(t, completionCmd.Args(completionCmd, nil))
	require.NoError(t, completionCmd.Args(completionCmd, []string{"zsh"}))
}
