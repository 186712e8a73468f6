package domain

import (
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// MicroUnitsPerToken is the fixed scale of every stored amount.
const MicroUnitsPerToken = 1_000_000

// AmountTolerance is the largest difference between a declared and a transferred
// amount that is still treated as equal.
const AmountTolerance = 1e-6

var (
	ErrNonFiniteAmount = errors.New("amount is not a finite number")
	ErrAmountOverflow  = errors.New("amount does not fit in 64 bits")
)

// ToMicroUnits converts a decimal price to micro-units, rounding half away from zero.
func ToMicroUnits(price float64) (int64, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, ErrNonFiniteAmount
	}
	scaled := math.Round(price * MicroUnitsPerToken)
	if scaled > math.MaxInt64 || scaled < math.MinInt64 {
		return 0, ErrAmountOverflow
	}
	return int64(scaled), nil
}

// SumMicroUnits rounds every price to micro-units and adds them up.
func SumMicroUnits(prices []float64) (int64, error) {
	var total int64
	for _, p := range prices {
		m, err := ToMicroUnits(p)
		if err != nil {
			return 0, err
		}
		if (m > 0 && total > math.MaxInt64-m) || (m < 0 && total < math.MinInt64-m) {
			return 0, ErrAmountOverflow
		}
		total += m
	}
	return total, nil
}

// FormatMicroUnits renders micro-units as a plain decimal string ("19.99", "5").
func FormatMicroUnits(micro int64) string {
	neg := micro < 0
	if neg {
		micro = -micro
	}
	whole := micro / MicroUnitsPerToken
	frac := micro % MicroUnitsPerToken

	s := strconv.FormatInt(whole, 10)
	if frac != 0 {
		fs := strings.TrimRight(strconv.FormatInt(frac+MicroUnitsPerToken, 10)[1:], "0")
		s += "." + fs
	}
	if neg {
		s = "-" + s
	}
	return s
}

// MicroToRaw converts micro-units to the raw integer amount of a mint with the
// given decimals. The result is floored: floor(micro * 10^decimals / 10^6).
func MicroToRaw(micro int64, decimals uint8) (uint64, error) {
	if micro < 0 {
		return 0, errors.New("negative amount")
	}
	n := new(big.Int).Mul(big.NewInt(micro), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	n.Quo(n, big.NewInt(MicroUnitsPerToken))
	if !n.IsUint64() {
		return 0, ErrAmountOverflow
	}
	return n.Uint64(), nil
}

// AmountsMatch compares a declared amount with the observed one within AmountTolerance.
func AmountsMatch(declared, actual float64) bool {
	return math.Abs(declared-actual) <= AmountTolerance
}

// FormatRawAmount renders a raw token amount with the mint's decimals ("5", "19.99").
func FormatRawAmount(raw uint64, decimals uint8) string {
	s := strconv.FormatUint(raw, 10)
	if decimals == 0 {
		return s
	}
	d := int(decimals)
	if len(s) <= d {
		s = strings.Repeat("0", d-len(s)+1) + s
	}
	whole, frac := s[:len(s)-d], strings.TrimRight(s[len(s)-d:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}
