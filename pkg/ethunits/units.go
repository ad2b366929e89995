package ethunits

import (
	"fmt"
	"math/big"
	"strings"
)

const weiPerEtherDigits = 18

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(weiPerEtherDigits), nil)

// ParseEther converts a decimal ether string ("0.05") to wei.
func ParseEther(amount string) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("empty amount")
	}

	neg := strings.HasPrefix(amount, "-")
	if neg {
		return nil, fmt.Errorf("negative amount: %s", amount)
	}

	intPart := amount
	fracPart := ""
	if i := strings.IndexByte(amount, '.'); i >= 0 {
		intPart, fracPart = amount[:i], amount[i+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > weiPerEtherDigits {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", amount, weiPerEtherDigits)
	}

	whole, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", amount)
	}

	frac := big.NewInt(0)
	if fracPart != "" {
		frac, ok = new(big.Int).SetString(fracPart, 10)
		if !ok || frac.Sign() < 0 {
			return nil, fmt.Errorf("invalid amount: %s", amount)
		}
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(weiPerEtherDigits-len(fracPart))), nil)
		frac.Mul(frac, scale)
	}

	wei := new(big.Int).Mul(whole, weiPerEther)
	wei.Add(wei, frac)
	return wei, nil
}

// FormatEther converts wei to a decimal ether string with trailing
// zeros trimmed.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}

	whole := new(big.Int)
	frac := new(big.Int)
	whole.QuoRem(wei, weiPerEther, frac)

	if frac.Sign() == 0 {
		return whole.String()
	}

	fracStr := fmt.Sprintf("%0*s", weiPerEtherDigits, frac.Abs(frac).String())
	fracStr = strings.TrimRight(fracStr, "0")
	return whole.String() + "." + fracStr
}

// IsHexAddress reports whether s is a 0x-prefixed 20-byte hex address.
func IsHexAddress(s string) bool {
	if len(s) != 42 {
		return false
	}
	if s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// IsHexHash reports whether s is a 0x-prefixed 32-byte hex transaction hash.
func IsHexHash(s string) bool {
	if len(s) != 66 {
		return false
	}
	if s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// ValidDecimalAmount reports whether s parses as a strictly positive
// ether amount.
func ValidDecimalAmount(s string) bool {
	wei, err := ParseEther(s)
	if err != nil {
		return false
	}
	return wei.Sign() > 0
}
