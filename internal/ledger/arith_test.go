package ledger

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckedArithmetic(t *testing.T) {
	_, err := checkedAdd(math.MaxUint64, 1)
	require.ErrorIs(t, err, ErrArithmeticOverflow)

	_, err = checkedSub(1, 2)
	require.ErrorIs(t, err, ErrArithmeticUnderflow)

	v, err := mulDiv(math.MaxUint64, 2, 4)
	require.NoError(t, err)
	require.Equal(t, uint64(math.MaxUint64/2), v)

	v, err = mulDivUp(7, 3, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(11), v)

	_, err = mulDiv(1, 1, 0)
	require.Error(t, err)

	_, err = addSeconds(math.MaxInt64, 1)
	require.ErrorIs(t, err, ErrArithmeticOverflow)

	require.Equal(t, uint64(math.MaxUint64), ratioBps(math.MaxUint64, 1))
}
