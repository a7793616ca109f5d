// Package moments measures zeroth, first and second image moments and
// renders images from them.
//
// Image samples are stored row-major. Sample (ix, iy) sits at
// (X0 + ix*Step, Y0 + iy*Step) and Pix[iy*Width+ix] holds its intensity.
package moments

import (
	"math"

	"github.com/tphakala/simd/f64"

	"github.com/tphakala/slrealizer/internal/errors"
)

// Image is a sampled 2D intensity distribution
type Image struct {
	Width  int
	Height int
	Pix    []float64
	X0     float64 // position of column 0
	Y0     float64 // position of row 0
	Step   float64 // sample spacing
}

// Grid is an image geometry without samples
type Grid struct {
	Width  int
	Height int
	X0     float64
	Y0     float64
	Step   float64
}

// CenteredGrid returns a width x height grid with unit step whose centre is the origin
func CenteredGrid(width, height int) Grid {
	return Grid{
		Width:  width,
		Height: height,
		X0:     -float64(width-1) / 2,
		Y0:     -float64(height-1) / 2,
		Step:   1,
	}
}

// NewImage allocates a zero image on the grid
func NewImage(g Grid) *Image {
	return &Image{
		Width:  g.Width,
		Height: g.Height,
		Pix:    make([]float64, g.Width*g.Height),
		X0:     g.X0,
		Y0:     g.Y0,
		Step:   g.Step,
	}
}

// Grid returns the geometry of the image
func (img *Image) Grid() Grid {
	return Grid{Width: img.Width, Height: img.Height, X0: img.X0, Y0: img.Y0, Step: img.Step}
}

// Row returns the samples of row iy
func (img *Image) Row(iy int) []float64 {
	return img.Pix[iy*img.Width : (iy+1)*img.Width]
}

// Xs returns the x position of every column
func (g Grid) Xs() []float64 {
	xs := make([]float64, g.Width)
	for i := range xs {
		xs[i] = g.X0 + float64(i)*g.Step
	}
	return xs
}

// Ys returns the y position of every row
func (g Grid) Ys() []float64 {
	ys := make([]float64, g.Height)
	for i := range ys {
		ys[i] = g.Y0 + float64(i)*g.Step
	}
	return ys
}

// Moments are the flux, centroid and central second moments of a light distribution
type Moments struct {
	Flux float64
	X    float64
	Y    float64
	Ixx  float64
	Ixy  float64
	Iyy  float64
}

// Covariance returns the second moments as a covariance matrix
func (m Moments) Covariance() Cov {
	return Cov{Xx: m.Ixx, Xy: m.Ixy, Yy: m.Iyy}
}

// IsFinite reports whether every field is finite
func (m Moments) IsFinite() bool {
	for _, v := range [...]float64{m.Flux, m.X, m.Y, m.Ixx, m.Ixy, m.Iyy} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Extract computes flux = sum(I), centroid = sum(I*pos)/flux and
// covariance = sum(I*(pos_i-mean_i)*(pos_j-mean_j))/flux.
//
// The centroid is found first and the central moments are summed in a
// second pass. Non-positive or non-finite flux and non-finite results are
// measurement failures.
func Extract(img *Image) (Moments, error) {
	if img == nil || img.Width <= 0 || img.Height <= 0 || len(img.Pix) != img.Width*img.Height {
		return Moments{}, errors.InvalidParameter("moments: image geometry does not match its samples").
			Component("moments").
			Build()
	}

	g := img.Grid()
	xs := g.Xs()
	ys := g.Ys()

	rowSums := make([]float64, img.Height)
	var flux, sumX float64
	for iy := range img.Height {
		row := img.Row(iy)
		rowSums[iy] = f64.Sum(row)
		flux += rowSums[iy]
		sumX += f64.DotProduct(row, xs)
	}

	if flux <= 0 || math.IsNaN(flux) || math.IsInf(flux, 0) {
		return Moments{}, errors.MeasurementFailure("moments: total flux %g is not positive and finite", flux).
			Component("moments").
			Build()
	}

	xbar := sumX / flux
	ybar := f64.DotProduct(rowSums, ys) / flux

	dx := make([]float64, img.Width)
	dx2 := make([]float64, img.Width)
	for i, x := range xs {
		dx[i] = x - xbar
		dx2[i] = dx[i] * dx[i]
	}

	var sxx, sxy, syy float64
	for iy := range img.Height {
		row := img.Row(iy)
		dy := ys[iy] - ybar
		sxx += f64.DotProduct(row, dx2)
		sxy += dy * f64.DotProduct(row, dx)
		syy += dy * dy * rowSums[iy]
	}

	m := Moments{
		Flux: flux,
		X:    xbar,
		Y:    ybar,
		Ixx:  sxx / flux,
		Ixy:  sxy / flux,
		Iyy:  syy / flux,
	}
	if !m.IsFinite() {
		return Moments{}, errors.MeasurementFailure("moments: non-finite moments %+v", m).
			Component("moments").
			Build()
	}
	return m, nil
}

// Render samples the Gaussian with the given moments on g. Sample values are
// the density times the cell area, so their sum approximates the flux.
func Render(m Moments, g Grid) (*Image, error) {
	img := NewImage(g)
	if err := AddGaussian(img, m); err != nil {
		return nil, err
	}
	return img, nil
}

// AddGaussian accumulates a Gaussian with the given moments into img
func AddGaussian(img *Image, m Moments) error {
	gauss, err := NewGaussian(m.X, m.Y, m.Covariance())
	if err != nil {
		return err
	}

	g := img.Grid()
	xs := g.Xs()
	area := m.Flux * g.Step * g.Step
	for iy := range img.Height {
		y := g.Y0 + float64(iy)*g.Step
		row := img.Row(iy)
		for ix, x := range xs {
			row[ix] += area * gauss.Density(x, y)
		}
	}
	return nil
}
