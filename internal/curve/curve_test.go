package curve

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"cpamm/internal/fixed"
	"cpamm/internal/model"
)

func TestDepositBootstrap(t *testing.T) {
	q, err := Deposit(0, 0, 0, 5, 5)
	require.NoError(t, err)
	require.Equal(t, DepositQuote{Shares: 5, UsedX: 5, UsedY: 5}, q)

	q, err = Deposit(0, 0, 0, 10, 1000)
	require.NoError(t, err)
	require.Equal(t, DepositQuote{Shares: 100, UsedX: 10, UsedY: 1000}, q)

	_, err = Deposit(0, 0, 0, 0, 1000)
	require.ErrorIs(t, err, ErrZeroQuote)

	_, err = Deposit(5, 0, 0, 1, 1)
	require.ErrorIs(t, err, ErrEmptyReserve)
}

func TestDepositSteadyStateRoundsUp(t *testing.T) {
	// 7 * 3 / 10 = 2.1 shares by X, 7 * 3 / 20 = 1.05 by Y -> 1 share.
	q, err := Deposit(10, 20, 3, 7, 7)
	require.NoError(t, err)
	require.Equal(t, uint64(1), q.Shares)
	// ceil(1 * 10 / 3) = 4, ceil(1 * 20 / 3) = 7
	require.Equal(t, uint64(4), q.UsedX)
	require.Equal(t, uint64(7), q.UsedY)

	_, err = Deposit(10, 20, 3, 1, 1)
	require.ErrorIs(t, err, ErrZeroQuote)
}

func TestDepositExact(t *testing.T) {
	q, err := DepositExact(5, 5, 5, 3)
	require.NoError(t, err)
	require.Equal(t, DepositQuote{Shares: 3, UsedX: 3, UsedY: 3}, q)

	_, err = DepositExact(0, 0, 0, 3)
	require.ErrorIs(t, err, ErrEmptyReserve)
	_, err = DepositExact(5, 5, 5, 0)
	require.ErrorIs(t, err, ErrZeroQuote)
}

func TestWithdraw(t *testing.T) {
	q, err := Withdraw(5, 5, 5, 3)
	require.NoError(t, err)
	require.Equal(t, WithdrawQuote{OutX: 3, OutY: 3}, q)

	q, err = Withdraw(5, 5, 5, 5)
	require.NoError(t, err)
	require.Equal(t, WithdrawQuote{OutX: 5, OutY: 5}, q)

	_, err = Withdraw(5, 5, 5, 0)
	require.ErrorIs(t, err, ErrZeroQuote)

	_, err = Withdraw(5, 5, 5, 6)
	require.ErrorIs(t, err, ErrExceedsSupply)

	// 1 * 1 / 1000 rounds to zero.
	_, err = Withdraw(1, 1_000_000, 1000, 1)
	require.ErrorIs(t, err, ErrZeroQuote)
}

func TestSwapSmallAmountBoundary(t *testing.T) {
	// floor(2*9900/10000) = 1; floor(5*1/(5+1)) = 0.
	_, err := Swap(5, 5, 2, 100, model.XToY)
	require.ErrorIs(t, err, ErrZeroQuote)
}

func TestSwapQuote(t *testing.T) {
	q, err := Swap(1000, 2000, 100, 30, model.XToY)
	require.NoError(t, err)
	// afterFee = floor(100 * 9970 / 10000) = 99; out = floor(2000*99/1099) = 180
	require.Equal(t, SwapQuote{AmountIn: 100, AmountOut: 180, Fee: 1}, q)

	q, err = Swap(1000, 2000, 100, 30, model.YToX)
	require.NoError(t, err)
	// out = floor(1000*99/2099) = 47
	require.Equal(t, uint64(47), q.AmountOut)

	_, err = Swap(1000, 2000, 0, 30, model.XToY)
	require.ErrorIs(t, err, ErrZeroQuote)

	_, err = Swap(1000, 2000, 10, 10_001, model.XToY)
	require.ErrorIs(t, err, ErrInvalidFee)

	_, err = Swap(0, 0, 10, 30, model.XToY)
	require.ErrorIs(t, err, ErrEmptyReserve)

	_, err = Swap(1000, 2000, 10, 10_000, model.XToY)
	require.ErrorIs(t, err, ErrZeroQuote)
}

func TestSwapOverflow(t *testing.T) {
	_, err := Swap(math.MaxUint64-1, 1000, 10, 0, model.XToY)
	require.ErrorIs(t, err, fixed.ErrOverflow)
}

func TestSwapInvariantGrows(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 5000; i++ {
		rX := uint64(rng.Int63n(1<<40)) + 1
		rY := uint64(rng.Int63n(1<<40)) + 1
		amountIn := uint64(rng.Int63n(1<<36)) + 1
		fee := uint16(rng.Intn(1001))
		dir := model.Direction(rng.Intn(2))

		q, err := Swap(rX, rY, amountIn, fee, dir)
		if err != nil {
			require.ErrorIs(t, err, ErrZeroQuote)
			continue
		}

		var nX, nY uint64
		if dir == model.XToY {
			nX, nY = rX+q.AmountIn, rY-q.AmountOut
		} else {
			nX, nY = rX-q.AmountOut, rY+q.AmountIn
		}
		before := Invariant(rX, rY)
		after := Invariant(nX, nY)
		if fee == 0 {
			require.False(t, after.Lt(before), "k decreased: %s -> %s", before, after)
		} else {
			require.True(t, after.Gt(before), "k did not grow with fee %d: %s -> %s", fee, before, after)
		}
	}
}

func TestDepositWithdrawRoundTripNeverProfits(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 5000; i++ {
		rX := uint64(rng.Int63n(1<<32)) + 1
		rY := uint64(rng.Int63n(1<<32)) + 1
		supply := uint64(rng.Int63n(1<<32)) + 1
		maxX := uint64(rng.Int63n(1 << 30))
		maxY := uint64(rng.Int63n(1 << 30))

		dep, err := Deposit(rX, rY, supply, maxX, maxY)
		if err != nil {
			require.ErrorIs(t, err, ErrZeroQuote)
			continue
		}
		require.LessOrEqual(t, dep.UsedX, maxX)
		require.LessOrEqual(t, dep.UsedY, maxY)

		wd, err := Withdraw(rX+dep.UsedX, rY+dep.UsedY, supply+dep.Shares, dep.Shares)
		if err != nil {
			require.ErrorIs(t, err, ErrZeroQuote)
			continue
		}
		require.LessOrEqual(t, wd.OutX, dep.UsedX)
		require.LessOrEqual(t, wd.OutY, dep.UsedY)
	}
}

func TestDepositPreservesShareValue(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	for i := 0; i < 2000; i++ {
		rX := uint64(rng.Int63n(1<<32)) + 1
		rY := uint64(rng.Int63n(1<<32)) + 1
		supply := uint64(rng.Int63n(1<<32)) + 1
		maxX := uint64(rng.Int63n(1<<30)) + 1
		maxY := uint64(rng.Int63n(1<<30)) + 1

		dep, err := Deposit(rX, rY, supply, maxX, maxY)
		if err != nil {
			continue
		}
		// reserve per share must not drop: (r + used) * s >= r * (s + shares)
		newX, newS := rX+dep.UsedX, supply+dep.Shares
		lhs := fixed.Product(newX, supply)
		rhs := fixed.Product(rX, newS)
		require.False(t, lhs.Lt(rhs), "x per share diluted")

		newY := rY + dep.UsedY
		lhs = fixed.Product(newY, supply)
		rhs = fixed.Product(rY, newS)
		require.False(t, lhs.Lt(rhs), "y per share diluted")
	}
}

func TestEqualDepositsMintEqualShares(t *testing.T) {
	first, err := Deposit(1000, 4000, 2000, 100, 400)
	require.NoError(t, err)
	second, err := Deposit(1000, 4000, 2000, 100, 400)
	require.NoError(t, err)
	require.Equal(t, first, second)

	// Exact-ratio pool: the second deposit sees a scaled copy of the first.
	next, err := Deposit(1000+first.UsedX, 4000+first.UsedY, 2000+first.Shares, 100, 400)
	require.NoError(t, err)
	require.Equal(t, first.Shares, next.Shares)
}
