package domain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ZeroAddress is the canonical form of the empty EVM address
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// NormalizeAddress converts an EVM address into its canonical lowercase
// hex form. Empty input stays empty so optional fields round-trip.
func NormalizeAddress(address string) string {
	if address == "" {
		return ""
	}
	return strings.ToLower(common.HexToAddress(address).Hex())
}

// IsZeroAddress reports whether the address is empty or the zero address
func IsZeroAddress(address string) bool {
	return address == "" || NormalizeAddress(address) == ZeroAddress
}

// ParseAmount parses a decimal base-unit amount. Empty or malformed
// strings parse as zero, matching contract-read fallbacks.
func ParseAmount(s string) *big.Int {
	if s == "" {
		return new(big.Int)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}

// AmountGreaterThan reports a > b for decimal amount strings
func AmountGreaterThan(a, b string) bool {
	return ParseAmount(a).Cmp(ParseAmount(b)) > 0
}

// AddAmounts returns a + b as a decimal amount string
func AddAmounts(a, b string) string {
	return new(big.Int).Add(ParseAmount(a), ParseAmount(b)).String()
}
