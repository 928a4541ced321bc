package fixed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddSub(t *testing.T) {
	sum, err := Add(math.MaxUint64-1, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(math.MaxUint64), sum)

	_, err = Add(math.MaxUint64, 1)
	require.ErrorIs(t, err, ErrOverflow)

	diff, err := Sub(5, 5)
	require.NoError(t, err)
	require.Zero(t, diff)

	_, err = Sub(4, 5)
	require.ErrorIs(t, err, ErrUnderflow)
}

func TestMulDivWideIntermediate(t *testing.T) {
	// a*b overflows 64 bits but the quotient does not.
	got, err := MulDivFloor(math.MaxUint64, math.MaxUint64, math.MaxUint64)
	require.NoError(t, err)
	require.Equal(t, uint64(math.MaxUint64), got)

	_, err = MulDivFloor(math.MaxUint64, 2, 1)
	require.ErrorIs(t, err, ErrOverflow)

	_, err = MulDivFloor(1, 1, 0)
	require.ErrorIs(t, err, ErrDivideByZero)
	_, err = MulDivCeil(1, 1, 0)
	require.ErrorIs(t, err, ErrDivideByZero)
}

func TestMulDivRounding(t *testing.T) {
	tests := []struct {
		a, b, d     uint64
		floor, ceil uint64
	}{
		{a: 3, b: 5, d: 5, floor: 3, ceil: 3},
		{a: 7, b: 3, d: 2, floor: 10, ceil: 11},
		{a: 1, b: 1, d: 3, floor: 0, ceil: 1},
		{a: 0, b: 9, d: 4, floor: 0, ceil: 0},
	}
	for _, tt := range tests {
		floor, err := MulDivFloor(tt.a, tt.b, tt.d)
		require.NoError(t, err)
		require.Equal(t, tt.floor, floor, "floor(%d*%d/%d)", tt.a, tt.b, tt.d)

		ceil, err := MulDivCeil(tt.a, tt.b, tt.d)
		require.NoError(t, err)
		require.Equal(t, tt.ceil, ceil, "ceil(%d*%d/%d)", tt.a, tt.b, tt.d)
	}
}

func TestSqrtProduct(t *testing.T) {
	require.Equal(t, uint64(5), SqrtProduct(5, 5))
	require.Equal(t, uint64(0), SqrtProduct(0, 100))
	require.Equal(t, uint64(1), SqrtProduct(1, 3))
	require.Equal(t, uint64(14), SqrtProduct(10, 20))
	require.Equal(t, uint64(math.MaxUint64), SqrtProduct(math.MaxUint64, math.MaxUint64))
}
