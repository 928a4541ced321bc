// Package curve computes constant-product quotes from reserves and share
// supply. All functions are pure and round in the pool's favor.
package curve

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"cpamm/internal/fixed"
	"cpamm/internal/model"
)

// BpsDenominator is the basis-point scale of the swap fee.
const BpsDenominator uint64 = 10_000

var (
	// ErrZeroQuote is returned when an input or a computed quantity is zero.
	ErrZeroQuote = errors.New("quote resolves to zero")
	// ErrEmptyReserve is returned when shares are outstanding against an
	// empty reserve, or a swap is quoted against an empty pool.
	ErrEmptyReserve = errors.New("empty reserve")
	// ErrExceedsSupply is returned when more shares are redeemed than exist.
	ErrExceedsSupply = errors.New("shares exceed supply")
	// ErrInvalidFee is returned for a fee above BpsDenominator.
	ErrInvalidFee = errors.New("fee exceeds 10000 bps")
)

// DepositQuote is the outcome of a deposit computation.
type DepositQuote struct {
	Shares uint64
	UsedX  uint64
	UsedY  uint64
}

// WithdrawQuote is the outcome of a withdraw computation.
type WithdrawQuote struct {
	OutX uint64
	OutY uint64
}

// SwapQuote is the outcome of a swap computation. Fee is the part of
// AmountIn retained by the pool without pricing against the curve.
type SwapQuote struct {
	AmountIn  uint64
	AmountOut uint64
	Fee       uint64
}

// Deposit mints shares for at most maxX and maxY.
//
// An empty pool takes both caps in full and issues floor(sqrt(maxX*maxY))
// shares. A live pool issues the largest share amount both caps can cover and
// charges the rounded-up reserve slice for it.
func Deposit(reserveX, reserveY, supply, maxX, maxY uint64) (DepositQuote, error) {
	if supply == 0 {
		if reserveX != 0 || reserveY != 0 {
			return DepositQuote{}, fmt.Errorf("%w: reserves without shares", ErrEmptyReserve)
		}
		shares := fixed.SqrtProduct(maxX, maxY)
		if shares == 0 {
			return DepositQuote{}, ErrZeroQuote
		}
		return DepositQuote{Shares: shares, UsedX: maxX, UsedY: maxY}, nil
	}
	if reserveX == 0 || reserveY == 0 {
		return DepositQuote{}, fmt.Errorf("%w: shares outstanding", ErrEmptyReserve)
	}

	byX, err := fixed.MulDivFloor(maxX, supply, reserveX)
	if err != nil {
		return DepositQuote{}, err
	}
	byY, err := fixed.MulDivFloor(maxY, supply, reserveY)
	if err != nil {
		return DepositQuote{}, err
	}
	shares := fixed.Min(byX, byY)
	if shares == 0 {
		return DepositQuote{}, ErrZeroQuote
	}
	return DepositExact(reserveX, reserveY, supply, shares)
}

// DepositExact returns the assets needed to mint exactly shares into a live pool.
func DepositExact(reserveX, reserveY, supply, shares uint64) (DepositQuote, error) {
	if shares == 0 {
		return DepositQuote{}, ErrZeroQuote
	}
	if supply == 0 || reserveX == 0 || reserveY == 0 {
		return DepositQuote{}, ErrEmptyReserve
	}
	usedX, err := fixed.MulDivCeil(shares, reserveX, supply)
	if err != nil {
		return DepositQuote{}, err
	}
	usedY, err := fixed.MulDivCeil(shares, reserveY, supply)
	if err != nil {
		return DepositQuote{}, err
	}
	return DepositQuote{Shares: shares, UsedX: usedX, UsedY: usedY}, nil
}

// Withdraw returns the reserve slice redeemed by shares, rounded down.
func Withdraw(reserveX, reserveY, supply, shares uint64) (WithdrawQuote, error) {
	if shares == 0 {
		return WithdrawQuote{}, ErrZeroQuote
	}
	if supply == 0 {
		return WithdrawQuote{}, fmt.Errorf("%w: no shares outstanding", ErrEmptyReserve)
	}
	if shares > supply {
		return WithdrawQuote{}, fmt.Errorf("%w: %d > %d", ErrExceedsSupply, shares, supply)
	}
	outX, err := fixed.MulDivFloor(shares, reserveX, supply)
	if err != nil {
		return WithdrawQuote{}, err
	}
	outY, err := fixed.MulDivFloor(shares, reserveY, supply)
	if err != nil {
		return WithdrawQuote{}, err
	}
	if outX == 0 || outY == 0 {
		return WithdrawQuote{}, fmt.Errorf("%w: %d shares redeem (%d, %d)", ErrZeroQuote, shares, outX, outY)
	}
	return WithdrawQuote{OutX: outX, OutY: outY}, nil
}

// Swap prices amountIn against the reserves in the given direction.
// The fee is taken from the input first, rounding the fee up.
func Swap(reserveX, reserveY, amountIn uint64, feeBps uint16, direction model.Direction) (SwapQuote, error) {
	if uint64(feeBps) > BpsDenominator {
		return SwapQuote{}, ErrInvalidFee
	}
	if amountIn == 0 {
		return SwapQuote{}, ErrZeroQuote
	}

	reserveIn, reserveOut, err := orient(reserveX, reserveY, direction)
	if err != nil {
		return SwapQuote{}, err
	}
	if reserveIn == 0 || reserveOut == 0 {
		return SwapQuote{}, ErrEmptyReserve
	}

	afterFee, err := fixed.MulDivFloor(amountIn, BpsDenominator-uint64(feeBps), BpsDenominator)
	if err != nil {
		return SwapQuote{}, err
	}
	// The full input lands in the reserve, so it must fit.
	if _, err := fixed.Add(reserveIn, amountIn); err != nil {
		return SwapQuote{}, err
	}
	denominator, err := fixed.Add(reserveIn, afterFee)
	if err != nil {
		return SwapQuote{}, err
	}
	amountOut, err := fixed.MulDivFloor(reserveOut, afterFee, denominator)
	if err != nil {
		return SwapQuote{}, err
	}
	if amountOut == 0 {
		return SwapQuote{}, fmt.Errorf("%w: %d in yields nothing", ErrZeroQuote, amountIn)
	}
	return SwapQuote{AmountIn: amountIn, AmountOut: amountOut, Fee: amountIn - afterFee}, nil
}

// Invariant returns reserveX * reserveY at full width.
func Invariant(reserveX, reserveY uint64) *uint256.Int {
	return fixed.Product(reserveX, reserveY)
}

func orient(reserveX, reserveY uint64, direction model.Direction) (uint64, uint64, error) {
	switch direction {
	case model.XToY:
		return reserveX, reserveY, nil
	case model.YToX:
		return reserveY, reserveX, nil
	default:
		return 0, 0, fmt.Errorf("invalid swap direction: %d", uint8(direction))
	}
}
