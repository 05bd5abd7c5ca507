package token

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Klingon-tech/splwallet/config"
)

// MaxDecimals is the largest exponent Pow10 accepts.
const MaxDecimals = config.MaxDecimals

var (
	ErrEmptyAmount    = errors.New("empty amount")
	ErrNegativeAmount = errors.New("negative amount")
	ErrAmountTooLarge = errors.New("amount too large")
)

// Pow10 returns 10^decimals.
func Pow10(decimals uint8) (uint64, error) {
	if decimals > MaxDecimals {
		return 0, fmt.Errorf("decimals %d out of range (max %d)", decimals, MaxDecimals)
	}
	p := uint64(1)
	for i := uint8(0); i < decimals; i++ {
		p *= 10
	}
	return p, nil
}

// ParseAmount converts a user-entered decimal string to base units scaled by
// 10^decimals. "5" with 9 decimals is 5000000000. Leading-dot fractions
// (".5") and exponents ("1e3") are accepted, as a number input field would.
func ParseAmount(s string, decimals uint8) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmptyAmount
	}
	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeAmount
	}
	if decimals > MaxDecimals {
		return 0, fmt.Errorf("decimals %d out of range (max %d)", decimals, MaxDecimals)
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	s = strings.TrimSuffix(s, ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if d.IsZero() {
		return 0, nil
	}
	if d.IsNegative() {
		return 0, ErrNegativeAmount
	}
	// Keep the exponent small so scaling never builds huge integers.
	switch exp := d.Exponent(); {
	case exp > maxExponent:
		return 0, ErrAmountTooLarge
	case exp < -maxExponent:
		return 0, fmt.Errorf("too many decimal places (max %d)", decimals)
	}

	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("too many decimal places (max %d)", decimals)
	}
	if scaled.GreaterThan(maxUnits) {
		return 0, ErrAmountTooLarge
	}
	return scaled.BigInt().Uint64(), nil
}

const maxExponent = 64

var maxUnits = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

// FormatAmount renders base units as a decimal string with trailing zeros
// trimmed: 1500000 with 6 decimals is "1.5".
func FormatAmount(units uint64, decimals uint8) string {
	scale, err := Pow10(decimals)
	if err != nil || decimals == 0 {
		return strconv.FormatUint(units, 10)
	}
	whole := units / scale
	frac := units % scale
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}
	fs := fmt.Sprintf("%0*d", int(decimals), frac)
	return strconv.FormatUint(whole, 10) + "." + strings.TrimRight(fs, "0")
}

// FormatNative renders lamports as SOL with four fractional digits, rounding
// half up: 2000000000 is "2.0000".
func FormatNative(lamports uint64) string {
	const step = config.LamportsPerSOL / 10000
	units := lamports / step
	if lamports%step >= step/2 {
		units++
	}
	return fmt.Sprintf("%d.%04d", units/10000, units%10000)
}
