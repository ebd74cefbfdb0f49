package scanning

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRandomizer_Disabled(t *testing.T) {
	r := NewRandomizer(false, 0, 1)

	assert.Equal(t, []int{0, 1, 2, 3}, r.HostOrder(4))
	assert.Equal(t, []uint16{22, 80, 443}, r.PortOrder([]uint16{22, 80, 443}))
	assert.Zero(t, r.Delay())
	assert.False(t, r.Enabled())
}

func TestRandomizer_PermutationMembership(t *testing.T) {
	r := NewRandomizer(true, 0, 42)
	ps := make([]uint16, 500)
	for i := range ps {
		ps[i] = uint16(i + 1)
	}

	for range 10 {
		got := r.PortOrder(ps)
		assert.Len(t, got, len(ps))
		sorted := slices.Clone(got)
		slices.Sort(sorted)
		assert.Equal(t, ps, sorted)
	}

	order := r.HostOrder(100)
	slices.Sort(order)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestRandomizer_DoesNotMutateInput(t *testing.T) {
	r := NewRandomizer(true, 0, 7)
	ps := []uint16{1, 2, 3, 4, 5, 6, 7, 8}
	_ = r.PortOrder(ps)
	assert.Equal(t, []uint16{1, 2, 3, 4, 5, 6, 7, 8}, ps)
}

func TestRandomizer_Seeded(t *testing.T) {
	a := NewRandomizer(true, time.Second, 99)
	b := NewRandomizer(true, time.Second, 99)

	assert.Equal(t, a.HostOrder(50), b.HostOrder(50))
	assert.Equal(t, a.Delay(), b.Delay())
}

func TestRandomizer_DelayBounds(t *testing.T) {
	r := NewRandomizer(true, 50*time.Millisecond, 3)
	for range 1000 {
		d := r.Delay()
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 50*time.Millisecond)
	}

	neg := NewRandomizer(true, -time.Second, 3)
	assert.Zero(t, neg.Delay())
}
