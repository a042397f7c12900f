package ledger

import (
	"errors"
	"math"

	"github.com/holiman/uint256"
)

// Every intermediate is computed in 256 bits and narrowed back to 64 bits, so
// products of two amounts never wrap before the final range check.

var errDivisionByZero = errors.New("division by zero")

func u256(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

func narrow(v *uint256.Int) (uint64, error) {
	if !v.IsUint64() {
		return 0, ErrArithmeticOverflow
	}
	return v.Uint64(), nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	return narrow(new(uint256.Int).Add(u256(a), u256(b)))
}

func checkedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrArithmeticUnderflow
	}
	return a - b, nil
}

// mulDiv returns floor(a*b/d).
func mulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, errDivisionByZero
	}
	product := new(uint256.Int).Mul(u256(a), u256(b))
	return narrow(product.Div(product, u256(d)))
}

// mulDivUp returns ceil(a*b/d).
func mulDivUp(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, errDivisionByZero
	}
	product := new(uint256.Int).Mul(u256(a), u256(b))
	quo, rem := new(uint256.Int), new(uint256.Int)
	quo.DivMod(product, u256(d), rem)
	if !rem.IsZero() {
		quo.AddUint64(quo, 1)
	}
	return narrow(quo)
}

// productGreater reports whether a*b > c*d.
func productGreater(a, b, c, d uint64) bool {
	left := new(uint256.Int).Mul(u256(a), u256(b))
	right := new(uint256.Int).Mul(u256(c), u256(d))
	return left.Gt(right)
}

// ratioBps returns floor(num*10000/den), saturating at MaxUint64.
func ratioBps(num, den uint64) uint64 {
	if den == 0 {
		return 0
	}
	v, err := mulDiv(num, BasisPoints, den)
	if err != nil {
		return math.MaxUint64
	}
	return v
}

func addSeconds(ts, seconds int64) (int64, error) {
	if seconds > 0 && ts > math.MaxInt64-seconds {
		return 0, ErrArithmeticOverflow
	}
	if seconds < 0 && ts < math.MinInt64-seconds {
		return 0, ErrArithmeticUnderflow
	}
	return ts + seconds, nil
}
