// Package render models a lensed quasar system under a seeing PSF as a
// mixture of Gaussians and measures its blended moments.
//
// Every component is expressed in pixels relative to the lens galaxy:
// the lens galaxy is an elliptical Gaussian convolved with the PSF and each
// quasar image is a point source, so it takes the PSF shape.
package render

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/tphakala/slrealizer/internal/errors"
	"github.com/tphakala/slrealizer/internal/lens"
	"github.com/tphakala/slrealizer/internal/moments"
	"github.com/tphakala/slrealizer/internal/noise"
)

// hwhmToSigma converts a Gaussian half width at half maximum to sigma
var hwhmToSigma = 1 / math.Sqrt(2*math.Ln2)

// Method measures the blended moments of a set of components on a grid
type Method func(components []moments.Moments, grid moments.Grid) (moments.Moments, error)

// Methods maps configuration names to render methods
var Methods = map[string]Method{
	"pixel":    Pixel,
	"analytic": Analytic,
}

// Lookup returns the method registered under name
func Lookup(name string) (Method, error) {
	m, ok := Methods[name]
	if !ok {
		return nil, errors.Newf("unknown render method %q, valid methods are %v", name, slices.Sorted(maps.Keys(Methods))).
			Category(errors.CategoryConfiguration).
			Component("render").
			Build()
	}
	return m, nil
}

// PSFSigma converts a PSF half width at half maximum in arcsec to sigma in pixels
func PSFSigma(psfHWHM, pixelScale float64) float64 {
	return psfHWHM * hwhmToSigma / pixelScale
}

// Components builds the Gaussian components of sys in band under a PSF
// with the given half width. Positions and covariances are in pixels.
func Components(sys *lens.System, band string, psfHWHM, pixelScale float64) ([]moments.Moments, error) {
	if !(psfHWHM > 0) || math.IsInf(psfHWHM, 0) {
		return nil, errors.InvalidParameter("render: PSF half width %g must be positive and finite", psfHWHM).
			Component("render").
			Context("lens_id", sys.LensID).
			Build()
	}
	if !(pixelScale > 0) {
		return nil, errors.InvalidParameter("render: pixel scale %g must be positive", pixelScale).
			Component("render").
			Build()
	}

	lensMag, srcMag, err := sys.Magnitudes(band)
	if err != nil {
		return nil, err
	}

	psf := moments.Isotropic(PSFSigma(psfHWHM, pixelScale))

	sigma := sys.GalaxySigma / pixelScale
	q := 1 - sys.GalaxyEllip
	galaxy := moments.Cov{Xx: sigma * sigma / q, Yy: sigma * sigma * q}.
		Rotate(sys.GalaxyPhi * math.Pi / 180).
		Add(psf)

	comps := make([]moments.Moments, 0, 1+sys.NImg())
	comps = append(comps, withCov(moments.Moments{Flux: noise.MagToFlux(lensMag)}, galaxy))

	srcFlux := noise.MagToFlux(srcMag)
	for _, img := range sys.Images {
		comps = append(comps, withCov(moments.Moments{
			Flux: srcFlux * math.Abs(img.Mag),
			X:    img.X / pixelScale,
			Y:    img.Y / pixelScale,
		}, psf))
	}
	return comps, nil
}

func withCov(m moments.Moments, c moments.Cov) moments.Moments {
	m.Ixx, m.Ixy, m.Iyy = c.Xx, c.Xy, c.Yy
	return m
}

// Draw samples every component onto grid
func Draw(components []moments.Moments, grid moments.Grid) (*moments.Image, error) {
	img := moments.NewImage(grid)
	for i, c := range components {
		if err := moments.AddGaussian(img, c); err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
	}
	return img, nil
}

// Pixel draws the components on the grid and extracts moments from the image
func Pixel(components []moments.Moments, grid moments.Grid) (moments.Moments, error) {
	img, err := Draw(components, grid)
	if err != nil {
		return moments.Moments{}, err
	}
	return moments.Extract(img)
}

// Analytic returns the exact moments of the mixture. The grid is unused.
func Analytic(components []moments.Moments, _ moments.Grid) (moments.Moments, error) {
	var flux, sx, sy float64
	for _, c := range components {
		flux += c.Flux
		sx += c.Flux * c.X
		sy += c.Flux * c.Y
	}
	if !(flux > 0) || math.IsInf(flux, 0) {
		return moments.Moments{}, errors.MeasurementFailure("render: mixture flux %g is not positive and finite", flux).
			Component("render").
			Build()
	}

	m := moments.Moments{Flux: flux, X: sx / flux, Y: sy / flux}
	for _, c := range components {
		dx := c.X - m.X
		dy := c.Y - m.Y
		m.Ixx += c.Flux * (c.Ixx + dx*dx)
		m.Ixy += c.Flux * (c.Ixy + dx*dy)
		m.Iyy += c.Flux * (c.Iyy + dy*dy)
	}
	m.Ixx /= flux
	m.Ixy /= flux
	m.Iyy /= flux

	if !m.IsFinite() || !m.Covariance().IsPositiveDefinite() {
		return moments.Moments{}, errors.MeasurementFailure("render: mixture moments %+v are degenerate", m).
			Component("render").
			Build()
	}
	return m, nil
}
