// Package lens holds lensed quasar systems and the catalogs that supply them.
package lens

import (
	"fmt"
	"math"

	"github.com/tphakala/slrealizer/internal/errors"
)

// Bands lists every photometric band a system may carry
var Bands = []string{"u", "g", "r", "i", "z", "y"}

// MaxImages is the largest number of quasar images in a system
const MaxImages = 4

// Image is one lensed quasar image
type Image struct {
	X   float64 `yaml:"x"`   // arcsec offset from the lens galaxy
	Y   float64 `yaml:"y"`   // arcsec offset from the lens galaxy
	Mag float64 `yaml:"mag"` // signed magnification
}

// System is a lensed quasar with its lens galaxy. Systems are immutable
// once loaded into a Catalog.
type System struct {
	LensID      int                `yaml:"lensid"`
	RA          float64            `yaml:"ra"`
	DEC         float64            `yaml:"dec"`
	ZLens       float64            `yaml:"zlens"`
	ZSrc        float64            `yaml:"zsrc"`
	GalaxySigma float64            `yaml:"galaxy_sigma"` // arcsec
	GalaxyEllip float64            `yaml:"galaxy_ellip"` // 1 - axis ratio
	GalaxyPhi   float64            `yaml:"galaxy_phi"`   // degrees
	LensMag     map[string]float64 `yaml:"lens_mag"`     // lens galaxy magnitude per band
	SrcMag      map[string]float64 `yaml:"src_mag"`      // unlensed quasar magnitude per band
	Images      []Image            `yaml:"images"`
}

// NImg returns the number of quasar images
func (s *System) NImg() int {
	return len(s.Images)
}

// Magnitudes returns the lens galaxy and quasar magnitudes in band
func (s *System) Magnitudes(band string) (lensMag, srcMag float64, err error) {
	lensMag, okLens := s.LensMag[band]
	srcMag, okSrc := s.SrcMag[band]
	if !okLens || !okSrc {
		return 0, 0, errors.InvalidParameter("lens %d has no magnitudes in band %q", s.LensID, band).
			Component("lens").
			Context("lens_id", s.LensID).
			Context("band", band).
			Build()
	}
	return lensMag, srcMag, nil
}

// Validate checks the structural invariants of a system
func (s *System) Validate() error {
	var problems []string

	if s.NImg() < 1 || s.NImg() > MaxImages {
		problems = append(problems, fmt.Sprintf("NIMG %d outside 1..%d", s.NImg(), MaxImages))
	}
	if !(s.GalaxySigma > 0) || math.IsInf(s.GalaxySigma, 0) {
		problems = append(problems, fmt.Sprintf("SIGMA %g must be positive", s.GalaxySigma))
	}
	if !(s.GalaxyEllip >= 0 && s.GalaxyEllip < 1) {
		problems = append(problems, fmt.Sprintf("ELLIP %g outside [0, 1)", s.GalaxyEllip))
	}
	if !finite(s.GalaxyPhi) || !finite(s.RA) || !finite(s.DEC) {
		problems = append(problems, "PHIE, RA and DEC must be finite")
	}
	for i, img := range s.Images {
		if !finite(img.X) || !finite(img.Y) || !finite(img.Mag) {
			problems = append(problems, fmt.Sprintf("image %d has non-finite fields", i+1))
		}
	}
	for band, mag := range s.LensMag {
		if !finite(mag) {
			problems = append(problems, magColumn(band, "LENS")+" is not finite")
		}
	}
	for band, mag := range s.SrcMag {
		if !finite(mag) {
			problems = append(problems, magColumn(band, "SRC")+" is not finite")
		}
	}

	if len(problems) > 0 {
		return errors.InvalidParameter("lens %d: %v", s.LensID, problems).
			Component("lens").
			Context("lens_id", s.LensID).
			Build()
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
