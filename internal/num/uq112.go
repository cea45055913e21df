package num

import "github.com/holiman/uint256"

// UQ112x112 values carry 112 integer and 112 fractional bits, so a reserve
// ratio keeps sub-unit precision inside the cumulative price counters.

// EncodeUQ112 left-shifts a reserve (at most 112 bits) into UQ112x112.
func EncodeUQ112(x *uint256.Int) *uint256.Int {
	return new(uint256.Int).Lsh(x, 112)
}

// DivUQ112 divides a UQ112x112 numerator by a plain integer, truncating.
// Callers must ensure the denominator is non-zero.
func DivUQ112(numerator, denominator *uint256.Int) *uint256.Int {
	return new(uint256.Int).Div(numerator, denominator)
}
