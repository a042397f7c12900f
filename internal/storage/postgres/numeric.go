package postgres

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"rebateLedger/internal/model"
)

var ten = big.NewInt(10)

func numeric(v uint64) pgtype.Numeric {
	return pgtype.Numeric{Int: new(big.Int).SetUint64(v), Valid: true}
}

// numericToUint64 converts a scanned NUMERIC back into an amount. Values with
// a fractional part, negative values and values above 2^64-1 are rejected.
func numericToUint64(n pgtype.Numeric) (uint64, error) {
	if !n.Valid {
		return 0, nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return 0, fmt.Errorf("numeric is not finite")
	}
	if n.Int == nil {
		return 0, nil
	}

	value := new(big.Int).Set(n.Int)
	switch {
	case n.Exp > 0:
		value.Mul(value, new(big.Int).Exp(ten, big.NewInt(int64(n.Exp)), nil))
	case n.Exp < 0:
		divisor := new(big.Int).Exp(ten, big.NewInt(int64(-n.Exp)), nil)
		quo, rem := new(big.Int).QuoRem(value, divisor, new(big.Int))
		if rem.Sign() != 0 {
			return 0, fmt.Errorf("numeric %s has a fractional part", n.Int.String())
		}
		value = quo
	}
	if value.Sign() < 0 || !value.IsUint64() {
		return 0, fmt.Errorf("numeric %s out of range", value.String())
	}
	return value.Uint64(), nil
}

func idText(id model.ID) string {
	return strings.ToLower(id.Hex())
}

// uint64Scanner scans a NUMERIC column straight into an amount.
type uint64Scanner struct {
	dst *uint64
}

func scanUint64(dst *uint64) *uint64Scanner {
	return &uint64Scanner{dst: dst}
}

func (s *uint64Scanner) ScanNumeric(v pgtype.Numeric) error {
	out, err := numericToUint64(v)
	if err != nil {
		return err
	}
	*s.dst = out
	return nil
}
