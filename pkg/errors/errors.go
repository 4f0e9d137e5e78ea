// Package errors provides structured error handling for UWealth.
// It defines sentinel errors, exit codes, and helpers for adding
// context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes.
const (
	ExitSuccess    = 0 // Successful execution
	ExitGeneral    = 1 // General/unknown error
	ExitInput      = 2 // Invalid input or failed validation
	ExitAuth       = 3 // Wallet access denied
	ExitNotFound   = 4 // Resource not found
	ExitPermission = 5 // Permission denied or insufficient funds
	ExitCanceled   = 6 // User rejected the request in the wallet
	ExitNetwork    = 7 // Wrong network or chain communication failure
)

// UWealthError is the structured error type for UWealth.
type UWealthError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *UWealthError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *UWealthError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for UWealthError.
func (e *UWealthError) Is(target error) bool {
	var t *UWealthError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// General sentinel errors.
var (
	ErrGeneral = &UWealthError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &UWealthError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	ErrNotFound = &UWealthError{
		Code:     "NOT_FOUND",
		Message:  "resource not found",
		ExitCode: ExitNotFound,
	}

	ErrInvalidAddress = &UWealthError{
		Code:     "INVALID_ADDRESS",
		Message:  "invalid address format",
		ExitCode: ExitInput,
	}

	ErrInvalidAmount = &UWealthError{
		Code:     "INVALID_AMOUNT",
		Message:  "invalid amount format",
		ExitCode: ExitInput,
	}

	ErrNetworkError = &UWealthError{
		Code:     "NETWORK_ERROR",
		Message:  "network communication failed",
		ExitCode: ExitNetwork,
	}

	ErrConfigNotFound = &UWealthError{
		Code:     "CONFIG_NOT_FOUND",
		Message:  "configuration file not found",
		ExitCode: ExitNotFound,
	}

	ErrConfigInvalid = &UWealthError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration is invalid",
		ExitCode: ExitInput,
	}

	ErrUnknownEnvironment = &UWealthError{
		Code:     "UNKNOWN_ENVIRONMENT",
		Message:  "unknown environment",
		ExitCode: ExitInput,
	}
)

// Wallet session errors.
var (
	ErrProviderNotFound = &UWealthError{
		Code:       "PROVIDER_NOT_FOUND",
		Message:    "no compatible wallet provider found",
		Suggestion: "configure wallet.provider (rpc or keystore) in ~/.uwealth/config.yaml",
		ExitCode:   ExitNotFound,
	}

	ErrUserRejected = &UWealthError{
		Code:     "USER_REJECTED",
		Message:  "request was rejected in the wallet",
		ExitCode: ExitCanceled,
	}

	ErrNotConnected = &UWealthError{
		Code:       "NOT_CONNECTED",
		Message:    "wallet is not connected",
		Suggestion: "run 'uwealth wallet connect' first",
		ExitCode:   ExitAuth,
	}

	ErrWrongNetwork = &UWealthError{
		Code:     "WRONG_NETWORK",
		Message:  "wallet is connected to the wrong network",
		ExitCode: ExitNetwork,
	}
)

// Purchase validation errors.
var (
	ErrBelowMinimum = &UWealthError{
		Code:     "BELOW_MINIMUM",
		Message:  "amount is below the minimum purchase",
		ExitCode: ExitInput,
	}

	ErrAboveMaximum = &UWealthError{
		Code:     "ABOVE_MAXIMUM",
		Message:  "amount is above the maximum purchase",
		ExitCode: ExitInput,
	}

	ErrSaleNotActive = &UWealthError{
		Code:     "SALE_NOT_ACTIVE",
		Message:  "presale is not active at the moment",
		ExitCode: ExitInput,
	}

	ErrInsufficientGasFunds = &UWealthError{
		Code:       "INSUFFICIENT_GAS_FUNDS",
		Message:    "insufficient native balance for gas fees",
		Suggestion: "add more native currency to your account",
		ExitCode:   ExitPermission,
	}

	ErrInsufficientTokenBalance = &UWealthError{
		Code:     "INSUFFICIENT_TOKEN_BALANCE",
		Message:  "insufficient token balance",
		ExitCode: ExitPermission,
	}

	ErrInsufficientPresaleLiquidity = &UWealthError{
		Code:     "INSUFFICIENT_PRESALE_LIQUIDITY",
		Message:  "insufficient tokens left in the presale contract",
		ExitCode: ExitPermission,
	}

	ErrAllowanceInsufficient = &UWealthError{
		Code:     "ALLOWANCE_INSUFFICIENT",
		Message:  "token allowance could not be set",
		ExitCode: ExitPermission,
	}

	ErrReadFailure = &UWealthError{
		Code:     "READ_FAILURE",
		Message:  "failed to read on-chain value",
		ExitCode: ExitNetwork,
	}

	ErrNotOwner = &UWealthError{
		Code:     "NOT_OWNER",
		Message:  "active account is not the contract owner",
		ExitCode: ExitPermission,
	}
)

// Transaction errors.
var (
	ErrTxPending = &UWealthError{
		Code:       "TX_PENDING",
		Message:    "a transaction of this kind is already pending",
		Suggestion: "wait for the pending transaction to settle",
		ExitCode:   ExitInput,
	}

	ErrTxReverted = &UWealthError{
		Code:       "TX_REVERTED",
		Message:    "transaction reverted by the contract",
		Suggestion: "check the contract conditions and try again",
		ExitCode:   ExitGeneral,
	}

	ErrInsufficientFunds = &UWealthError{
		Code:     "INSUFFICIENT_FUNDS",
		Message:  "insufficient funds for gas * price + value",
		ExitCode: ExitPermission,
	}

	ErrTxUnknownFailure = &UWealthError{
		Code:     "TX_UNKNOWN_FAILURE",
		Message:  "transaction failed",
		ExitCode: ExitGeneral,
	}
)

// New creates a new UWealthError with the given code and message.
func New(code, message string) *UWealthError {
	return &UWealthError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var ue *UWealthError
	if errors.As(err, &ue) {
		return &UWealthError{
			Code:       ue.Code,
			Message:    fmt.Sprintf("%s: %s", msg, ue.Message),
			Details:    ue.Details,
			Suggestion: ue.Suggestion,
			Cause:      err,
			ExitCode:   ue.ExitCode,
		}
	}

	return &UWealthError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithCause attaches an underlying cause to a sentinel error, keeping its code.
func WithCause(sentinel *UWealthError, cause error) error {
	return &UWealthError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		Details:    sentinel.Details,
		Suggestion: sentinel.Suggestion,
		Cause:      cause,
		ExitCode:   sentinel.ExitCode,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var ue *UWealthError
	if errors.As(err, &ue) {
		return &UWealthError{
			Code:       ue.Code,
			Message:    ue.Message,
			Details:    details,
			Suggestion: ue.Suggestion,
			Cause:      ue.Cause,
			ExitCode:   ue.ExitCode,
		}
	}

	return &UWealthError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var ue *UWealthError
	if errors.As(err, &ue) {
		return &UWealthError{
			Code:       ue.Code,
			Message:    ue.Message,
			Details:    ue.Details,
			Suggestion: suggestion,
			Cause:      ue.Cause,
			ExitCode:   ue.ExitCode,
		}
	}

	return &UWealthError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// DetailsOf returns the details attached to an error, if any.
func DetailsOf(err error) map[string]string {
	var ue *UWealthError
	if errors.As(err, &ue) {
		return ue.Details
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var ue *UWealthError
	if errors.As(err, &ue) {
		return ue.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var ue *UWealthError
	if errors.As(err, &ue) {
		return ue.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
