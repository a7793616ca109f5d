// Package noise applies calibrated measurement noise and estimates
// measurement errors for realized sources.
package noise

import (
	"math"
	"math/rand/v2"

	"github.com/tphakala/slrealizer/internal/errors"
)

// ZeroPoint is the magnitude of unit flux
const ZeroPoint = 22.5

// DetectionSignificance is the signal-to-noise ratio at the sky detection
// limit. A source at the sky magnitude is a 5 sigma detection, so one sigma
// of flux is the sky flux divided by DetectionSignificance.
const DetectionSignificance = 5.0

// RelativeNoise is a Gaussian relative perturbation N(Mean, Std)
type RelativeNoise struct {
	Mean float64
	Std  float64
}

// Draw returns one relative offset
func (rn RelativeNoise) Draw(rng *rand.Rand) float64 {
	return rn.Mean + rn.Std*rng.NormFloat64()
}

// Perturb returns value + value*N(mean, std)
func Perturb(rng *rand.Rand, value float64, rn RelativeNoise) float64 {
	return value + value*rn.Draw(rng)
}

// MagToFlux converts an AB-like magnitude to flux on the ZeroPoint scale
func MagToFlux(mag float64) float64 {
	return math.Pow(10, (ZeroPoint-mag)/2.5)
}

// FluxError returns the one sigma flux error at the given sky magnitude
func FluxError(skyMag float64) (float64, error) {
	if math.IsNaN(skyMag) || math.IsInf(skyMag, 0) {
		return 0, errors.InvalidParameter("noise: sky magnitude %g is not finite", skyMag).
			Component("noise").
			Build()
	}
	return MagToFlux(skyMag) / DetectionSignificance, nil
}

// CentroidError returns psfHWHM / sqrt(flux/fluxErr)
func CentroidError(psfHWHM, flux, fluxErr float64) (float64, error) {
	snr := flux / fluxErr
	if !(snr > 0) || math.IsInf(snr, 0) {
		return 0, errors.MeasurementFailure("noise: signal to noise %g is not positive and finite", snr).
			Component("noise").
			Build()
	}
	return psfHWHM / math.Sqrt(snr), nil
}

// SecondMomentError returns the error estimate for a second moment.
// Second moment errors are not yet modeled and are reported as zero.
func SecondMomentError() float64 {
	return 0
}

// Model bundles the relative noise applied to each measured quantity
type Model struct {
	Flux         RelativeNoise
	FirstMoment  RelativeNoise
	SecondMoment RelativeNoise
}
