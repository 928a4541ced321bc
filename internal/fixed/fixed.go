// Package fixed provides overflow-checked integer helpers for pool math.
//
// Every quantity handled by the pool is a uint64. Products are widened to 256
// bits before division so intermediate values never wrap; a result that does
// not fit back into 64 bits is reported as ErrOverflow.
package fixed

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	ErrOverflow     = errors.New("arithmetic overflow")
	ErrUnderflow    = errors.New("arithmetic underflow")
	ErrDivideByZero = errors.New("division by zero")
)

// Add returns a + b.
func Add(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrOverflow
	}
	return sum, nil
}

// Sub returns a - b.
func Sub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrUnderflow
	}
	return a - b, nil
}

// Product returns the full-width product a * b.
func Product(a, b uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
}

// MulDivFloor returns floor(a * b / d).
func MulDivFloor(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrDivideByZero
	}
	q := Product(a, b)
	q.Div(q, uint256.NewInt(d))
	return narrow(q)
}

// MulDivCeil returns ceil(a * b / d).
func MulDivCeil(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrDivideByZero
	}
	num := Product(a, b)
	den := uint256.NewInt(d)
	q, r := new(uint256.Int), new(uint256.Int)
	q.DivMod(num, den, r)
	if !r.IsZero() {
		q.AddUint64(q, 1)
	}
	return narrow(q)
}

// SqrtProduct returns floor(sqrt(a * b)). The result always fits in 64 bits.
func SqrtProduct(a, b uint64) uint64 {
	root := new(uint256.Int).Sqrt(Product(a, b))
	return root.Uint64()
}

// Min returns the smaller of a and b.
func Min(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func narrow(v *uint256.Int) (uint64, error) {
	if !v.IsUint64() {
		return 0, ErrOverflow
	}
	return v.Uint64(), nil
}
