package moments

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/slrealizer/internal/errors"
)

// fineGrid is a 1000x1000 grid over [0, 10) with step 0.01
var fineGrid = Grid{Width: 1000, Height: 1000, X0: 0, Y0: 0, Step: 0.01}

var knownGaussian = Moments{Flux: 2, X: 4, Y: 6, Ixx: 0.8, Ixy: 0.4, Iyy: 0.6}

func TestExtract_KnownGaussian(t *testing.T) {
	t.Parallel()

	img, err := Render(knownGaussian, fineGrid)
	require.NoError(t, err)

	m, err := Extract(img)
	require.NoError(t, err)

	const tol = 1e-3
	assert.InDelta(t, 2.0, m.Flux, tol)
	assert.InDelta(t, 4.0, m.X, tol)
	assert.InDelta(t, 6.0, m.Y, tol)
	assert.InDelta(t, 0.8, m.Ixx, tol)
	assert.InDelta(t, 0.4, m.Ixy, tol)
	assert.InDelta(t, 0.6, m.Iyy, tol)
}

func TestExtract_Idempotent(t *testing.T) {
	t.Parallel()

	img, err := Render(knownGaussian, fineGrid)
	require.NoError(t, err)

	first, err := Extract(img)
	require.NoError(t, err)
	second, err := Extract(img)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRenderExtract_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []Moments{
		{Flux: 1, X: 0, Y: 0, Ixx: 4, Ixy: 0, Iyy: 4},
		{Flux: 150, X: 1.5, Y: -2, Ixx: 6, Ixy: -2, Iyy: 3},
		{Flux: 0.3, X: -3, Y: 2.5, Ixx: 2.5, Ixy: 1.2, Iyy: 5},
	}
	grid := CenteredGrid(64, 64)

	for _, want := range tests {
		img, err := Render(want, grid)
		require.NoError(t, err)

		got, err := Extract(img)
		require.NoError(t, err)

		assert.InEpsilon(t, want.Flux, got.Flux, 1e-3)
		assert.InDelta(t, want.X, got.X, 1e-3)
		assert.InDelta(t, want.Y, got.Y, 1e-3)
		assert.InDelta(t, want.Ixx, got.Ixx, 1e-2)
		assert.InDelta(t, want.Ixy, got.Ixy, 1e-2)
		assert.InDelta(t, want.Iyy, got.Iyy, 1e-2)
	}
}

func TestExtract_Failures(t *testing.T) {
	t.Parallel()

	grid := CenteredGrid(8, 8)

	zero := NewImage(grid)
	_, err := Extract(zero)
	require.Error(t, err)
	assert.True(t, errors.IsMeasurementFailure(err))

	negative := NewImage(grid)
	negative.Pix[3] = -1
	_, err = Extract(negative)
	assert.True(t, errors.IsMeasurementFailure(err))

	nan := NewImage(grid)
	nan.Pix[5] = math.NaN()
	_, err = Extract(nan)
	assert.True(t, errors.IsMeasurementFailure(err))

	broken := &Image{Width: 4, Height: 4, Pix: make([]float64, 3), Step: 1}
	_, err = Extract(broken)
	assert.True(t, errors.IsInvalidParameter(err))
}

func TestExtract_SinglePixel(t *testing.T) {
	t.Parallel()

	img := NewImage(CenteredGrid(5, 5))
	img.Pix[2*5+3] = 7

	m, err := Extract(img)
	require.NoError(t, err)
	assert.InDelta(t, 7.0, m.Flux, 1e-12)
	assert.InDelta(t, 1.0, m.X, 1e-12)
	assert.InDelta(t, 0.0, m.Y, 1e-12)
	assert.InDelta(t, 0.0, m.Ixx, 1e-12)
	assert.InDelta(t, 0.0, m.Iyy, 1e-12)
}

func TestCov(t *testing.T) {
	t.Parallel()

	c := Cov{Xx: 2, Xy: 0, Yy: 1}
	assert.InDelta(t, 2.0, c.Det(), 1e-12)
	assert.True(t, c.IsPositiveDefinite())
	assert.False(t, Cov{Xx: 1, Xy: 2, Yy: 1}.IsPositiveDefinite())
	assert.False(t, Cov{Xx: math.NaN(), Yy: 1}.IsPositiveDefinite())

	r := c.Rotate(math.Pi / 2)
	assert.InDelta(t, 1.0, r.Xx, 1e-12)
	assert.InDelta(t, 0.0, r.Xy, 1e-12)
	assert.InDelta(t, 2.0, r.Yy, 1e-12)
	assert.InDelta(t, c.Det(), c.Rotate(0.7).Det(), 1e-12)

	sum := c.Add(Isotropic(1)).Scale(2)
	assert.Equal(t, Cov{Xx: 6, Xy: 0, Yy: 4}, sum)
}

func TestGaussianDensity(t *testing.T) {
	t.Parallel()

	g, err := NewGaussian(0, 0, Isotropic(1))
	require.NoError(t, err)
	assert.InDelta(t, 1/(2*math.Pi), g.Density(0, 0), 1e-12)
	assert.InDelta(t, math.Exp(-0.5)/(2*math.Pi), g.Density(1, 0), 1e-12)

	_, err = NewGaussian(0, 0, Cov{})
	assert.True(t, errors.IsMeasurementFailure(err))
}

func BenchmarkExtract(b *testing.B) {
	img, err := Render(knownGaussian, Grid{Width: 64, Height: 64, X0: 0, Y0: 0, Step: 0.16})
	require.NoError(b, err)

	b.ReportAllocs()
	for b.Loop() {
		_, _ = Extract(img)
	}
}
