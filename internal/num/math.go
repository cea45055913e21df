package num

import (
	"errors"

	"github.com/holiman/uint256"
)

// ErrOverflow indicates a checked operation whose mathematical result cannot
// be represented in 256 bits.
var ErrOverflow = errors.New("arithmetic overflow or underflow")

// MaxUint112 is the upper bound for pool reserves.
var MaxUint112 = func() *uint256.Int {
	z := new(uint256.Int).Lsh(uint256.NewInt(1), 112)
	return z.Sub(z, uint256.NewInt(1))
}()

// MaxUint256 is used as the infinite-allowance sentinel.
var MaxUint256 = new(uint256.Int).SetAllOne()

// CheckedAdd returns x+y or ErrOverflow.
func CheckedAdd(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// CheckedSub returns x-y or ErrOverflow when y > x.
func CheckedSub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// CheckedMul returns x*y or ErrOverflow.
func CheckedMul(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Sqrt returns the floor of the square root of x, by Newton iteration.
func Sqrt(x *uint256.Int) *uint256.Int {
	if x.IsZero() {
		return new(uint256.Int)
	}
	if x.LtUint64(4) {
		return uint256.NewInt(1)
	}
	one := uint256.NewInt(1)
	z := x.Clone()
	// The seed x/2 + 1 never wraps and bounds the root from above for x >= 4.
	y := new(uint256.Int).Rsh(x, 1)
	y.Add(y, one)
	tmp := new(uint256.Int)
	for y.Lt(z) {
		z.Set(y)
		// y = (z + x/z) / 2
		tmp.Div(x, z)
		y.Add(z, tmp)
		y.Rsh(y, 1)
	}
	return z
}

// Min returns the smaller of x and y.
func Min(x, y *uint256.Int) *uint256.Int {
	if x.Lt(y) {
		return x.Clone()
	}
	return y.Clone()
}
