package scale

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeSumNeverExceedsBudget(t *testing.T) {
	cases := []struct {
		isc, voc         uint16
		aspectW, aspectH int16
	}{
		{500, 4000, 4, 3},
		{4000, 500, 4, 3},
		{2000, 2000, 1, 1},
		{1, 4095, 16, 9},
		{4095, 1, 16, 9},
	}
	for _, c := range cases {
		v, i := Compute(c.isc, c.voc, c.aspectW, c.aspectH)
		assert.LessOrEqual(t, int(v)+int(i), TotalScaleBudget)
		assert.GreaterOrEqual(t, v, int16(1))
		assert.GreaterOrEqual(t, i, int16(1))
	}
}

func TestComputeDegenerateInputsFallBackToEvenSplit(t *testing.T) {
	v, i := Compute(0, 4000, 4, 3)
	assert.Equal(t, int16(1), v)
	assert.Equal(t, int16(1), i)

	v, i = Compute(500, 0, 4, 3)
	assert.Equal(t, int16(1), v)
	assert.Equal(t, int16(1), i)

	v, i = Compute(500, 4000, 0, 3)
	assert.Equal(t, int16(1), v)
	assert.Equal(t, int16(1), i)
}

// §8 scenario 5: (Isc=4000, Voc=4000, aspects 1,1) -> v_scale=i_scale=8.
func TestComputeScenario5SquareAspectEqualIscVoc(t *testing.T) {
	v, i := Compute(4000, 4000, 1, 1)
	assert.Equal(t, int16(8), v)
	assert.Equal(t, int16(8), i)
}

// §8 scenario 5: (Isc=10, Voc=4000, aspects 1,8) -> i_scale >= 1,
// v_scale >= 1, sum <= 16, and i_scale < v_scale. Axis inversion here is
// the exact defect this test guards against: a small Isc against a much
// larger Voc, rendered on a tall aspect, must bias the *voltage* axis
// scale upward, not the current axis.
func TestComputeScenario5SmallIscAgainstLargeVoc(t *testing.T) {
	v, i := Compute(10, 4000, 1, 8)
	assert.GreaterOrEqual(t, v, int16(1))
	assert.GreaterOrEqual(t, i, int16(1))
	assert.LessOrEqual(t, int(v)+int(i), TotalScaleBudget)
	assert.Less(t, i, v)
	assert.Equal(t, int16(15), v)
	assert.Equal(t, int16(1), i)
}

func TestComputeSquareAspectSplitsEvenly(t *testing.T) {
	v, i := Compute(2000, 2000, 1, 1)
	assert.Equal(t, int16(8), v)
	assert.Equal(t, int16(8), i)
}
