package moments

import (
	"math"

	"github.com/tphakala/slrealizer/internal/errors"
)

// Cov is a symmetric 2x2 covariance matrix
type Cov struct {
	Xx float64
	Xy float64
	Yy float64
}

// Det returns the determinant
func (c Cov) Det() float64 {
	return c.Xx*c.Yy - c.Xy*c.Xy
}

// IsPositiveDefinite reports whether c is a valid, non-degenerate covariance
func (c Cov) IsPositiveDefinite() bool {
	if math.IsNaN(c.Xx) || math.IsNaN(c.Xy) || math.IsNaN(c.Yy) {
		return false
	}
	return c.Xx > 0 && c.Det() > 0
}

// Add returns the sum of two covariances, as for a convolution of Gaussians
func (c Cov) Add(o Cov) Cov {
	return Cov{Xx: c.Xx + o.Xx, Xy: c.Xy + o.Xy, Yy: c.Yy + o.Yy}
}

// Scale multiplies every element by s
func (c Cov) Scale(s float64) Cov {
	return Cov{Xx: c.Xx * s, Xy: c.Xy * s, Yy: c.Yy * s}
}

// Rotate returns R c R^T for a counter-clockwise rotation by theta radians
func (c Cov) Rotate(theta float64) Cov {
	sin, cos := math.Sincos(theta)
	return Cov{
		Xx: cos*cos*c.Xx - 2*sin*cos*c.Xy + sin*sin*c.Yy,
		Xy: sin*cos*(c.Xx-c.Yy) + (cos*cos-sin*sin)*c.Xy,
		Yy: sin*sin*c.Xx + 2*sin*cos*c.Xy + cos*cos*c.Yy,
	}
}

// Isotropic returns sigma^2 times the identity
func Isotropic(sigma float64) Cov {
	return Cov{Xx: sigma * sigma, Yy: sigma * sigma}
}

// Gaussian is a normalized bivariate normal density
type Gaussian struct {
	X    float64
	Y    float64
	Cov  Cov
	inv  Cov
	norm float64
}

// NewGaussian prepares a density with the given mean and covariance
func NewGaussian(x, y float64, c Cov) (Gaussian, error) {
	if !c.IsPositiveDefinite() {
		return Gaussian{}, errors.MeasurementFailure("moments: covariance %+v is not positive definite", c).
			Component("moments").
			Build()
	}
	det := c.Det()
	return Gaussian{
		X:    x,
		Y:    y,
		Cov:  c,
		inv:  Cov{Xx: c.Yy / det, Xy: -c.Xy / det, Yy: c.Xx / det},
		norm: 1 / (2 * math.Pi * math.Sqrt(det)),
	}, nil
}

// Density evaluates the normalized density at (x, y)
func (g Gaussian) Density(x, y float64) float64 {
	dx := x - g.X
	dy := y - g.Y
	q := g.inv.Xx*dx*dx + 2*g.inv.Xy*dx*dy + g.inv.Yy*dy*dy
	return g.norm * math.Exp(-0.5*q)
}
