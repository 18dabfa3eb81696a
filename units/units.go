package units

import (
	"github.com/idena-network/idena-go/common/hexutil"
	"github.com/idena-network/idena-wallet-connect/types"
	"github.com/shopspring/decimal"
	"strings"
)

const (
	DefaultExponent int32 = 18
	// MaxExponent keeps 10^exponent within uint256.
	MaxExponent int32 = 77
)

// Sanitize drops everything except digits and dots. When more than one dot
// remains only the first two dot-separated groups are kept.
func Sanitize(input string) string {
	filtered := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, input)
	parts := strings.Split(filtered, ".")
	if len(parts) > 2 {
		return parts[0] + "." + parts[1]
	}
	return filtered
}

// ToBaseUnits converts a decimal amount of whole coins into a 0x-prefixed hex
// number of base units (amount * 10^exponent). Fractions of a base unit are
// truncated.
func ToBaseUnits(input string, exponent int32) (string, error) {
	if exponent < 0 {
		return "", types.Failuref(types.InvalidAmount, "negative exponent %d", exponent)
	}
	if exponent > MaxExponent {
		return "", types.Failuref(types.InvalidAmount, "exponent %d exceeds %d", exponent, MaxExponent)
	}
	value, err := parse(Sanitize(input))
	if err != nil {
		return "", err
	}
	baseUnits := value.Shift(exponent).Truncate(0).BigInt()
	return hexutil.EncodeBig(baseUnits), nil
}

func parse(sanitized string) (decimal.Decimal, error) {
	intPart, fracPart := sanitized, ""
	if i := strings.IndexByte(sanitized, '.'); i >= 0 {
		intPart, fracPart = sanitized[:i], sanitized[i+1:]
	}
	if intPart == "" && fracPart == "" {
		return decimal.Zero, types.NewFailure(types.InvalidAmount, "amount is empty")
	}
	if intPart == "" {
		intPart = "0"
	}
	normalized := intPart
	if fracPart != "" {
		normalized += "." + fracPart
	}
	value, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, types.WrapFailure(types.InvalidAmount, err)
	}
	return value, nil
}
