// Package quantity implements bounded cart quantity arithmetic shared by the
// cart, checkout and sweeper paths. Quantities are always kept in [1, max]
// where max is the live stock of the backing product.
package quantity

import (
	"errors"
	"fmt"
)

const floor = 1

var (
	// ErrAtMinimum signals a decrement below the floor of one unit.
	ErrAtMinimum = errors.New("quantity already at minimum")
	// ErrAtMaximum signals an increment past the available stock.
	ErrAtMaximum = errors.New("quantity already at maximum")
)

// InsufficientStockError reports a requested quantity above the available stock.
type InsufficientStockError struct {
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("requested %d but only %d available", e.Requested, e.Available)
}

// Bounds captures the upper limit for a cart line.
type Bounds struct {
	Max int
}

// CanIncrement reports whether one more unit fits under max.
func CanIncrement(q, max int) bool {
	return q < max
}

// CanDecrement reports whether the quantity can drop without breaking the floor.
func CanDecrement(q int) bool {
	return q > floor
}

// Increment adds one unit, refusing to pass max.
func Increment(q, max int) (int, error) {
	if !CanIncrement(q, max) {
		return q, ErrAtMaximum
	}
	return q + 1, nil
}

// Decrement removes one unit, refusing to drop below one.
func Decrement(q int) (int, error) {
	if !CanDecrement(q) {
		return q, ErrAtMinimum
	}
	return q - 1, nil
}

// Validate checks that a requested quantity is a legal cart line quantity for
// the given stock level.
func Validate(q, max int) error {
	if q < floor {
		return ErrAtMinimum
	}
	if q > max {
		return &InsufficientStockError{Available: max, Requested: q}
	}
	return nil
}

// ClampToFloor lifts a non-positive quantity to the floor of one.
func ClampToFloor(q int) int {
	if q < floor {
		return floor
	}
	return q
}

// Clamp forces q into [1, max]. Used by the sweeper when stock shrinks under
// an existing cart line.
func Clamp(q, max int) int {
	if max < floor {
		return floor
	}
	if q < floor {
		return floor
	}
	if q > max {
		return max
	}
	return q
}
