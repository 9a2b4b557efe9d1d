package quantity

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrementStopsAtMax(t *testing.T) {
	q, err := Increment(2, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, q)

	q, err = Increment(5, 5)
	assert.ErrorIs(t, err, ErrAtMaximum)
	assert.Equal(t, 5, q, "failed increment must not change the quantity")
}

func TestDecrementStopsAtOne(t *testing.T) {
	q, err := Decrement(3)
	require.NoError(t, err)
	assert.Equal(t, 2, q)

	q, err = Decrement(1)
	assert.ErrorIs(t, err, ErrAtMinimum)
	assert.Equal(t, 1, q, "failed decrement must not change the quantity")
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(1, 1))
	assert.NoError(t, Validate(4, 9))
	assert.ErrorIs(t, Validate(0, 5), ErrAtMinimum)

	err := Validate(7, 3)
	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 3, stockErr.Available)
	assert.Equal(t, 7, stockErr.Requested)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1, Clamp(0, 5))
	assert.Equal(t, 5, Clamp(9, 5))
	assert.Equal(t, 3, Clamp(3, 5))
	assert.Equal(t, 1, Clamp(4, 0), "zero stock clamps to the floor")
	assert.Equal(t, 1, ClampToFloor(-2))
	assert.Equal(t, 6, ClampToFloor(6))
}

// Quantity stays within [1, max] after any sequence of increments and
// decrements, and operations at the bounds leave it unchanged.
func TestBoundsHoldUnderRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 100; run++ {
		max := 1 + rng.Intn(10)
		q := 1 + rng.Intn(max)
		for step := 0; step < 200; step++ {
			before := q
			var err error
			if rng.Intn(2) == 0 {
				q, err = Increment(q, max)
				if errors.Is(err, ErrAtMaximum) {
					assert.Equal(t, before, q)
					assert.Equal(t, max, q)
				}
			} else {
				q, err = Decrement(q)
				if errors.Is(err, ErrAtMinimum) {
					assert.Equal(t, before, q)
					assert.Equal(t, 1, q)
				}
			}
			require.GreaterOrEqual(t, q, 1)
			require.LessOrEqual(t, q, max)
			require.NoError(t, Validate(q, max))
		}
	}
}
