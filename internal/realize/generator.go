// Package realize turns lens systems and survey epochs into source and
// object tables.
package realize

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/tphakala/slrealizer/internal/catalog"
	"github.com/tphakala/slrealizer/internal/conf"
	"github.com/tphakala/slrealizer/internal/errors"
	"github.com/tphakala/slrealizer/internal/lens"
	"github.com/tphakala/slrealizer/internal/moments"
	"github.com/tphakala/slrealizer/internal/noise"
	"github.com/tphakala/slrealizer/internal/render"
	"github.com/tphakala/slrealizer/internal/survey"
)

const arcsecPerDegree = 3600.0

// Pointing is a sky position in degrees
type Pointing struct {
	RA  float64
	DEC float64
}

// RowGenerator realizes one (lens, epoch) pair into a source record
type RowGenerator struct {
	Method         render.Method
	Grid           moments.Grid
	PixelScale     float64 // arcsec per pixel
	Noise          noise.Model
	AstrometricStd float64 // degrees
	FieldRadius    float64 // degrees
	Pointing       Pointing
}

// NewRowGenerator builds a generator from settings
func NewRowGenerator(settings *conf.Settings) (*RowGenerator, error) {
	method, err := render.Lookup(settings.Realize.Method)
	if err != nil {
		return nil, err
	}
	g := settings.Realize.Grid
	return &RowGenerator{
		Method:     method,
		Grid:       moments.CenteredGrid(g.Width, g.Height),
		PixelScale: g.PixelScale,
		Noise: noise.Model{
			Flux:         noise.RelativeNoise(settings.Noise.Flux),
			FirstMoment:  noise.RelativeNoise(settings.Noise.FirstMoment),
			SecondMoment: noise.RelativeNoise(settings.Noise.SecondMoment),
		},
		AstrometricStd: settings.Noise.AstrometricStd,
		FieldRadius:    settings.Noise.FieldRadius,
		Pointing: Pointing{
			RA:  settings.Survey.Pointing.RA,
			DEC: settings.Survey.Pointing.DEC,
		},
	}, nil
}

// Measure renders sys at ep and returns the noiseless blended moments
func (g *RowGenerator) Measure(sys *lens.System, ep survey.Epoch) (moments.Moments, error) {
	comps, err := render.Components(sys, ep.Filter, ep.PSFHWHM, g.PixelScale)
	if err != nil {
		return moments.Moments{}, err
	}
	return g.Method(comps, g.Grid)
}

// Generate realizes sys at ep. Random draws come only from rng and happen in
// a fixed order, so equal seeds give identical records.
func (g *RowGenerator) Generate(sys *lens.System, ep survey.Epoch, rng *rand.Rand) (catalog.SourceRecord, error) {
	fluxErr, err := noise.FluxError(ep.SkyMag)
	if err != nil {
		return catalog.SourceRecord{}, err
	}

	m, err := g.Measure(sys, ep)
	if err != nil {
		return catalog.SourceRecord{}, err
	}

	flux := noise.Perturb(rng, m.Flux, g.Noise.Flux)
	x := noise.Perturb(rng, m.X, g.Noise.FirstMoment)
	y := noise.Perturb(rng, m.Y, g.Noise.FirstMoment)

	// centroid errors are reported in pixels
	comErr, err := noise.CentroidError(ep.PSFHWHM/g.PixelScale, flux, fluxErr)
	if err != nil {
		return catalog.SourceRecord{}, err
	}

	ra, dec := g.skyPosition(ep, x, y, rng)

	ixx := noise.Perturb(rng, m.Ixx, g.Noise.SecondMoment)
	ixy := noise.Perturb(rng, m.Ixy, g.Noise.SecondMoment)
	iyy := noise.Perturb(rng, m.Iyy, g.Noise.SecondMoment)
	qErr := noise.SecondMomentError()

	return catalog.SourceRecord{
		LensID:     sys.LensID,
		EpochIndex: ep.Index,
		MJD:        ep.MJD,
		Filter:     ep.Filter,
		RA:         ra,
		RAErr:      g.AstrometricStd,
		DEC:        dec,
		DECErr:     g.AstrometricStd,
		X:          x,
		XErr:       comErr,
		Y:          y,
		YErr:       comErr,
		Flux:       flux,
		FluxErr:    fluxErr,
		Ixx:        ixx,
		IxxErr:     qErr,
		Ixy:        ixy,
		IxyErr:     qErr,
		Iyy:        iyy,
		IyyErr:     qErr,
		PSFHWHM:    ep.PSFHWHM,
		Sky:        ep.SkyMag,
	}, nil
}

// skyPosition offsets the pointing by the centroid, a uniform field dither
// and the astrometric error
func (g *RowGenerator) skyPosition(ep survey.Epoch, x, y float64, rng *rand.Rand) (ra, dec float64) {
	p := g.Pointing
	if ep.HasPointing {
		p = Pointing{RA: ep.FieldRA, DEC: ep.FieldDEC}
	}

	ra = p.RA + x*g.PixelScale/arcsecPerDegree/math.Cos(p.DEC*math.Pi/180)
	dec = p.DEC + y*g.PixelScale/arcsecPerDegree

	ra += g.FieldRadius * (2*rng.Float64() - 1)
	dec += g.FieldRadius * (2*rng.Float64() - 1)

	ra += g.AstrometricStd * rng.NormFloat64()
	dec += g.AstrometricStd * rng.NormFloat64()

	return wrapRA(ra), dec
}

// wrapRA maps ra into [0, 360)
func wrapRA(ra float64) float64 {
	ra = math.Mod(ra, 360)
	if ra < 0 {
		ra += 360
	}
	if ra >= 360 {
		ra = 0
	}
	return ra
}

// pairSeed derives the two PCG seed words of a (lens, epoch) pair. For a
// fixed seed the mapping is injective over all int values of both ids.
func pairSeed(seed uint64, epochIndex, lensID int) (hi, lo uint64) {
	return seed ^ mix64(uint64(epochIndex)), uint64(lensID)
}

// mix64 is the splitmix64 finalizer, a bijection on uint64
func mix64(z uint64) uint64 {
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// NewPairRand returns the generator of one (lens, epoch) pair. It depends only
// on the base seed and the pair, never on scheduling.
func NewPairRand(seed uint64, epochIndex, lensID int) *rand.Rand {
	return rand.New(rand.NewPCG(pairSeed(seed, epochIndex, lensID)))
}

// pairError annotates err with the pair it came from, keeping its category
func pairError(err error, lensID, epochIndex int) error {
	return errors.New(fmt.Errorf("lens %d epoch %d: %w", lensID, epochIndex, err)).
		Component("realize").
		PairContext(lensID, epochIndex).
		Build()
}

// failureReason is the metrics label of a measurement failure
func failureReason(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) && ee.GetComponent() != "" {
		return ee.GetComponent()
	}
	return "unknown"
}
