// Package testutil provides shared test fixtures: painted lens catalogs and
// observation histories written to temporary files.
package testutil

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tphakala/slrealizer/internal/catalog"
	"github.com/tphakala/slrealizer/internal/lens"
	"github.com/tphakala/slrealizer/internal/survey"
)

// SurveyBands is the band cycle used by Epochs
var SurveyBands = []string{"u", "g", "r", "i", "z", "y"}

// Epochs returns n epochs a little over a day apart, cycling through SurveyBands
func Epochs(n int) []survey.Epoch {
	epochs := make([]survey.Epoch, n)
	for i := range epochs {
		epochs[i] = survey.Epoch{
			Index:   i,
			MJD:     59580 + float64(i)*1.3,
			Filter:  SurveyBands[i%len(SurveyBands)],
			PSFHWHM: 0.6 + 0.02*float64(i%10),
			SkyMag:  21,
		}
	}
	return epochs
}

// WriteObservations writes epochs as an observation history CSV at path
func WriteObservations(t *testing.T, path string, epochs []survey.Epoch) {
	t.Helper()
	require.NoError(t, catalog.WriteFile(path, func(w io.Writer) error {
		return survey.WriteObservations(w, epochs)
	}))
}

// WriteCatalog paints n systems with ids from firstID and writes them to
// dir/name. The format follows the extension of name.
func WriteCatalog(t *testing.T, dir, name string, n, firstID int) (string, []*lens.System) {
	t.Helper()
	systems := lens.NewPainter(5, 0.5, firstID).PaintN(n)
	path := filepath.Join(dir, name)

	encode := lens.WriteYAML
	if filepath.Ext(name) == ".csv" {
		encode = lens.WriteCSV
	}
	require.NoError(t, catalog.WriteFile(path, func(w io.Writer) error { return encode(w, systems) }))
	return path, systems
}
