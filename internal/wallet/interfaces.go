package wallet

import "math/big"

// LogWriter provides logging operations.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// NetworkPrompter asks the user to switch the wallet to the expected chain.
type NetworkPrompter interface {
	PromptSwitch(expectedName string, expectedID, actualID *big.Int)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}
