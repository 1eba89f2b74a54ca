package core

import (
	"fmt"
	"math/bits"
)

// CollateralDue returns the credit collateral owed for minting amount units
// at price with ratio percent: floor(amount * price * ratio / 100).
// Products are computed before the single division so small ratios are not
// truncated to zero; every multiplication is overflow checked.
func CollateralDue(ratio, amount, price uint64) (uint64, error) {
	value, err := mulChecked(amount, price)
	if err != nil {
		return 0, fmt.Errorf("amount %d * price %d: %w", amount, price, err)
	}
	scaled, err := mulChecked(value, ratio)
	if err != nil {
		return 0, fmt.Errorf("value %d * ratio %d: %w", value, ratio, err)
	}
	return scaled / 100, nil
}

func mulChecked(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrArithmeticOverflow
	}
	return lo, nil
}
