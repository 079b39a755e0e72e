package metrics

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mrixform/pkg/volume"
)

func createGradient(t *testing.T, typ volume.ScalarType) *volume.Volume {
	t.Helper()
	v, err := volume.Allocate(8, 8, 4, typ)
	require.NoError(t, err)
	for z := 0; z < 4; z++ {
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				v.Write(x, y, z, float64(x*y+z))
			}
		}
	}
	return v
}

func TestCompareIdentical(t *testing.T) {
	a := createGradient(t, volume.Short)
	b, err := volume.Copy(a, nil)
	require.NoError(t, err)

	m, err := Compare(a, b)
	require.NoError(t, err)
	assert.Zero(t, m.RMSE)
	assert.Zero(t, m.MaxAbsDiff)
	assert.Zero(t, m.MeanAbsDiff)
	assert.Zero(t, m.EntropyDiff)
	assert.InDelta(t, 1.0, m.SSIM, 1e-12)
	assert.InDelta(t, Entropy(mustValues(t, a)), m.MI, 0.5)
	assert.Greater(t, m.MI, 0.0)
}

func mustValues(t *testing.T, v *volume.Volume) []float64 {
	t.Helper()
	vals, err := v.Values(0)
	require.NoError(t, err)
	return vals
}

func TestCompareOffset(t *testing.T) {
	a := createGradient(t, volume.Float)
	b := createGradient(t, volume.Float)
	b.Write(3, 3, 3, b.Read(3, 3, 3)+16)

	m, err := Compare(a, b)
	require.NoError(t, err)
	n := float64(8 * 8 * 4)
	assert.InDelta(t, 16.0, m.MaxAbsDiff, 1e-12)
	assert.InDelta(t, 16/n, m.MeanAbsDiff, 1e-12)
	assert.InDelta(t, math.Sqrt(256/n), m.RMSE, 1e-12)
	assert.Less(t, m.SSIM, 1.0)
}

func TestCompareShapeMismatch(t *testing.T) {
	a := createGradient(t, volume.Float)
	b, err := volume.Allocate(8, 8, 5, volume.Float)
	require.NoError(t, err)
	_, err = Compare(a, b)
	assert.True(t, errors.Is(err, volume.ErrShapeMismatch))
}

func TestEntropy(t *testing.T) {
	assert.Zero(t, Entropy(nil))
	assert.Zero(t, Entropy([]float64{3, 3, 3}))
	// two equally likely values carry one bit
	assert.InDelta(t, 1.0, Entropy([]float64{0, 1, 0, 1}), 1e-12)
}

func TestMutualInformation(t *testing.T) {
	x := []float64{0, 1, 0, 1}
	// a copy shares all of its one bit
	assert.InDelta(t, 1.0, MutualInformation(x, x), 1e-12)
	// so does an inverted copy
	assert.InDelta(t, 1.0, MutualInformation(x, []float64{5, 2, 5, 2}), 1e-12)
	// a balanced pattern independent of x shares nothing
	assert.InDelta(t, 0.0, MutualInformation(x, []float64{0, 0, 1, 1}), 1e-12)
	assert.Zero(t, MutualInformation(x, x[:2]))
}

func TestAbsDiffAndSubtract(t *testing.T) {
	a, err := volume.Allocate(2, 2, 2, volume.UChar)
	require.NoError(t, err)
	b, err := volume.Allocate(2, 2, 2, volume.UChar)
	require.NoError(t, err)
	a.Fill(10)
	b.Fill(30)

	d, err := AbsDiff(a, b, nil)
	require.NoError(t, err)
	assert.Equal(t, 20.0, d.Read(1, 0, 1))

	// unsigned destination saturates at zero
	s, err := Subtract(a, b, nil)
	require.NoError(t, err)
	assert.Zero(t, s.Read(0, 0, 0))

	signed, err := volume.Allocate(2, 2, 2, volume.Short)
	require.NoError(t, err)
	_, err = Subtract(a, b, signed)
	require.NoError(t, err)
	assert.Equal(t, -20.0, signed.Read(1, 1, 1))

	wrong, err := volume.Allocate(3, 2, 2, volume.Short)
	require.NoError(t, err)
	_, err = AbsDiff(a, b, wrong)
	assert.True(t, errors.Is(err, volume.ErrShapeMismatch))
}
