package eth

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	uwerr "github.com/mrz1836/uwealth/pkg/errors"
)

// ErrInvalidChecksum indicates a mixed-case address with a wrong EIP-55 checksum.
var ErrInvalidChecksum = &uwerr.UWealthError{
	Code:     "INVALID_CHECKSUM",
	Message:  "address checksum does not match",
	ExitCode: uwerr.ExitInput,
}

// ParseAddress validates a hex address and returns it.
// All lowercase and all uppercase addresses are accepted; mixed-case
// addresses must carry the correct EIP-55 checksum.
func ParseAddress(address string) (common.Address, error) {
	address = strings.TrimSpace(address)
	if !strings.HasPrefix(address, "0x") || !common.IsHexAddress(address) {
		return common.Address{}, uwerr.WithDetails(uwerr.ErrInvalidAddress, map[string]string{
			"address": address,
		})
	}

	parsed := common.HexToAddress(address)
	body := address[2:]
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return parsed, nil
	}

	if expected := parsed.Hex(); expected != address {
		return common.Address{}, uwerr.WithDetails(ErrInvalidChecksum, map[string]string{
			"expected": expected,
			"actual":   address,
		})
	}
	return parsed, nil
}

// ParseHexAddress validates only the hex format of an address.
// Used for configured contract addresses, whose casing is not under the
// user's control.
func ParseHexAddress(address string) (common.Address, error) {
	address = strings.TrimSpace(address)
	if !strings.HasPrefix(address, "0x") || !common.IsHexAddress(address) {
		return common.Address{}, uwerr.WithDetails(uwerr.ErrInvalidAddress, map[string]string{
			"address": address,
		})
	}
	return common.HexToAddress(address), nil
}
