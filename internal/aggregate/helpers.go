package aggregate

import (
	"math/big"
)

const ratioScale = 18

func formatTokenAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	rat := new(big.Rat).SetFrac(abs, denom)
	text := rat.FloatString(int(decimals))
	if sign < 0 {
		return "-" + text
	}
	return text
}

// computeRate returns num/denom as an 18-place decimal, or nil when either
// side is zero.
func computeRate(num *big.Int, denom *big.Int) *string {
	if num == nil || num.Sign() == 0 || denom == nil || denom.Sign() == 0 {
		return nil
	}
	rat := new(big.Rat).SetFrac(num, denom)
	text := rat.FloatString(ratioScale)
	return &text
}

func windowStart(ts int64, windowSec int64) int64 {
	start := ts - (ts % windowSec)
	if ts < 0 && ts%windowSec != 0 {
		start -= windowSec
	}
	return start
}
